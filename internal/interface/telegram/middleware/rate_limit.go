package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER MIDDLEWARE
// Token bucket per chat. Every bot command can fan out into portal calls,
// so a pasted burst of /attendance commands needs to be absorbed here
// rather than forwarded upstream.
// ══════════════════════════════════════════════════════════════════════════════

// RateLimitConfig tunes the per-chat limiter.
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained refill rate per chat.
	RequestsPerMinute int

	// BurstSize is the bucket capacity, i.e. how many commands can arrive
	// back to back before throttling kicks in.
	BurstSize int

	// BanThreshold is how many throttled requests in a row earn a
	// temporary ban.
	BanThreshold int

	// BanDuration is how long a banned chat stays blocked.
	BanDuration time.Duration

	// CleanupInterval is how often idle chat state is dropped.
	CleanupInterval time.Duration

	// OnRateLimited builds the reply sent to a throttled chat.
	OnRateLimited func(chatID int64, retryAfter time.Duration) string
}

// DefaultRateLimitConfig returns limits suitable for a single-owner bot.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 20,
		BurstSize:         5,
		BanThreshold:      3,
		BanDuration:       10 * time.Minute,
		CleanupInterval:   5 * time.Minute,
		OnRateLimited: func(chatID int64, retryAfter time.Duration) string {
			secs := int(retryAfter.Seconds())
			if secs < 60 {
				return fmt.Sprintf("⏳ Too many requests. Wait %d seconds and try again.", secs)
			}
			return fmt.Sprintf("⏳ Too many requests. Wait %d minutes and try again.", secs/60)
		},
	}
}

// RateLimitResult is the outcome of one admission check.
type RateLimitResult struct {
	Allowed         bool
	RetryAfter      time.Duration
	IsBanned        bool
	BanExpiresAt    time.Time
	ResponseMessage string
	RemainingTokens int
}

// chatState holds one chat's bucket plus its violation history. A zero
// banUntil means the chat is not banned.
type chatState struct {
	tokens     float64
	lastRefill time.Time

	violations    int
	lastViolation time.Time
	banUntil      time.Time
}

// RateLimiter admits or rejects commands per chat.
type RateLimiter struct {
	config RateLimitConfig

	mu    sync.Mutex
	chats map[int64]*chatState
}

// NewRateLimiter creates the limiter and starts its janitor goroutine.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config: config,
		chats:  make(map[int64]*chatState),
	}
	go rl.janitor()
	return rl
}

// Check consumes one token for chatID, or explains why it cannot.
func (rl *RateLimiter) Check(_ context.Context, chatID int64) *RateLimitResult {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	st := rl.stateLocked(chatID, now)

	if now.Before(st.banUntil) {
		wait := st.banUntil.Sub(now)
		return &RateLimitResult{
			Allowed:         false,
			IsBanned:        true,
			BanExpiresAt:    st.banUntil,
			RetryAfter:      wait,
			ResponseMessage: rl.config.OnRateLimited(chatID, wait),
		}
	}

	rl.refillLocked(st, now)

	if st.tokens >= 1 {
		st.tokens--
		return &RateLimitResult{
			Allowed:         true,
			RemainingTokens: int(st.tokens),
		}
	}

	// Violation streaks older than five minutes do not count toward a ban.
	if now.Sub(st.lastViolation) > 5*time.Minute {
		st.violations = 0
	}
	st.violations++
	st.lastViolation = now

	if st.violations >= rl.config.BanThreshold {
		st.banUntil = now.Add(rl.config.BanDuration)
	}

	perToken := time.Minute / time.Duration(rl.config.RequestsPerMinute)
	wait := time.Duration(float64(perToken) * (1 - st.tokens))
	return &RateLimitResult{
		Allowed:         false,
		RetryAfter:      wait,
		ResponseMessage: rl.config.OnRateLimited(chatID, wait),
	}
}

// Unban lifts a temporary ban without touching the bucket.
func (rl *RateLimiter) Unban(chatID int64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if st, ok := rl.chats[chatID]; ok {
		st.banUntil = time.Time{}
		st.violations = 0
	}
}

// Reset forgets everything about a chat.
func (rl *RateLimiter) Reset(chatID int64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.chats, chatID)
}

// GetStats reports a chat's remaining tokens, violation count and ban flag.
func (rl *RateLimiter) GetStats(chatID int64) (remaining int, violations int, isBanned bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	st, ok := rl.chats[chatID]
	if !ok {
		return rl.config.BurstSize, 0, false
	}
	if now.Before(st.banUntil) {
		return 0, 0, true
	}
	rl.refillLocked(st, now)
	return int(st.tokens), st.violations, false
}

// stateLocked fetches or creates a chat's state; caller holds the lock.
func (rl *RateLimiter) stateLocked(chatID int64, now time.Time) *chatState {
	st, ok := rl.chats[chatID]
	if !ok {
		st = &chatState{
			tokens:     float64(rl.config.BurstSize),
			lastRefill: now,
		}
		rl.chats[chatID] = st
	}
	return st
}

// refillLocked credits tokens for elapsed time; caller holds the lock.
func (rl *RateLimiter) refillLocked(st *chatState, now time.Time) {
	rate := float64(rl.config.RequestsPerMinute) / 60.0
	st.tokens += now.Sub(st.lastRefill).Seconds() * rate
	if max := float64(rl.config.BurstSize); st.tokens > max {
		st.tokens = max
	}
	st.lastRefill = now
}

// janitor drops chats that have been idle long enough that their bucket is
// full again anyway.
func (rl *RateLimiter) janitor() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-10 * time.Minute)
		rl.mu.Lock()
		for id, st := range rl.chats {
			if st.lastRefill.Before(cutoff) && time.Now().After(st.banUntil) {
				delete(rl.chats, id)
			}
		}
		rl.mu.Unlock()
	}
}
