package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_AllowsBurst(t *testing.T) {
	config := DefaultRateLimitConfig()
	config.BurstSize = 3
	rl := NewRateLimiter(config)

	for i := 0; i < 3; i++ {
		result := rl.Check(context.Background(), 42)
		assert.True(t, result.Allowed, "request %d should be allowed", i)
	}

	result := rl.Check(context.Background(), 42)
	assert.False(t, result.Allowed)
	assert.Greater(t, result.RetryAfter, time.Duration(0))
	assert.Contains(t, result.ResponseMessage, "Too many requests")
}

func TestRateLimiter_ChatsAreIndependent(t *testing.T) {
	config := DefaultRateLimitConfig()
	config.BurstSize = 1
	rl := NewRateLimiter(config)

	require.True(t, rl.Check(context.Background(), 1).Allowed)
	require.False(t, rl.Check(context.Background(), 1).Allowed)

	assert.True(t, rl.Check(context.Background(), 2).Allowed)
}

func TestRateLimiter_BansRepeatedViolators(t *testing.T) {
	config := DefaultRateLimitConfig()
	config.BurstSize = 1
	config.BanThreshold = 3
	rl := NewRateLimiter(config)

	require.True(t, rl.Check(context.Background(), 42).Allowed)

	// Three violations trip the ban
	for i := 0; i < 3; i++ {
		require.False(t, rl.Check(context.Background(), 42).Allowed)
	}

	result := rl.Check(context.Background(), 42)
	assert.False(t, result.Allowed)
	assert.True(t, result.IsBanned)
	assert.False(t, result.BanExpiresAt.IsZero())
}

func TestRateLimiter_UnbanRestoresAccess(t *testing.T) {
	config := DefaultRateLimitConfig()
	config.BurstSize = 1
	config.BanThreshold = 1
	rl := NewRateLimiter(config)

	require.True(t, rl.Check(context.Background(), 42).Allowed)
	require.False(t, rl.Check(context.Background(), 42).Allowed)
	require.True(t, rl.Check(context.Background(), 42).IsBanned)

	rl.Unban(42)
	rl.Reset(42)

	assert.True(t, rl.Check(context.Background(), 42).Allowed)
}

func TestRateLimiter_GetStats(t *testing.T) {
	config := DefaultRateLimitConfig()
	config.BurstSize = 5
	rl := NewRateLimiter(config)

	remaining, violations, banned := rl.GetStats(42)
	assert.Equal(t, 5, remaining)
	assert.Equal(t, 0, violations)
	assert.False(t, banned)

	rl.Check(context.Background(), 42)

	remaining, _, _ = rl.GetStats(42)
	assert.Equal(t, 4, remaining)
}
