package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetThenGet(t *testing.T) {
	c := New[string](time.Second)

	c.Set("k", "v", time.Second)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
	assert.True(t, c.IsValid("k"))
}

func TestExpiredEntryIsAMiss(t *testing.T) {
	c := New[int](time.Second)

	c.Set("k", 42, 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)

	assert.False(t, c.IsValid("k"))
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestMissOnUnknownKey(t *testing.T) {
	c := New[int](time.Second)

	_, ok := c.Get("nope")
	assert.False(t, ok)
	assert.False(t, c.IsValid("nope"))
}

func TestZeroTTLUsesDefault(t *testing.T) {
	c := New[int](time.Minute)

	c.Set("k", 1, 0)
	assert.True(t, c.IsValid("k"))
}

func TestDeleteAndClear(t *testing.T) {
	c := New[int](time.Minute)

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Clear()
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestGetOrFillFillsOnce(t *testing.T) {
	c := New[int](time.Minute)
	calls := 0

	fill := func(ctx context.Context) (int, error) {
		calls++
		return 7, nil
	}

	v, err := c.GetOrFill(context.Background(), "k", time.Minute, fill)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	v, err = c.GetOrFill(context.Background(), "k", time.Minute, fill)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 1, calls)
}

func TestGetOrFillSerializesConcurrentMisses(t *testing.T) {
	c := New[int](time.Minute)

	var mu sync.Mutex
	calls := 0

	fill := func(ctx context.Context) (int, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		return 9, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrFill(context.Background(), "shared", time.Minute, fill)
			assert.NoError(t, err)
			assert.Equal(t, 9, v)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, calls, "concurrent misses must not duplicate the fill")
}

func TestGetOrFillErrorNotCached(t *testing.T) {
	c := New[int](time.Minute)

	_, err := c.GetOrFill(context.Background(), "k", time.Minute, func(ctx context.Context) (int, error) {
		return 0, assert.AnError
	})
	require.Error(t, err)

	v, err := c.GetOrFill(context.Background(), "k", time.Minute, func(ctx context.Context) (int, error) {
		return 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestMarksSemesterKey(t *testing.T) {
	assert.Equal(t, "marks_semester_Odd 2024", MarksSemesterKey("Odd 2024"))
}
