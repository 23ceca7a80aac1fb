package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(limit int, window time.Duration) (*Limiter, *time.Time) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }
	return New(store, limit, window), &now
}

func TestWindowExhaustionAndReset(t *testing.T) {
	l, now := newTestLimiter(3, time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res := l.Allow(ctx, "k")
		assert.True(t, res.OK, "call %d should be admitted", i+1)
	}
	res := l.Allow(ctx, "k")
	assert.False(t, res.OK, "4th call in the window must be rejected")
	assert.Equal(t, 0, res.Remaining)

	*now = now.Add(1100 * time.Millisecond)
	res = l.Allow(ctx, "k")
	assert.True(t, res.OK, "new window must admit again")
	assert.Equal(t, 2, res.Remaining, "fresh window starts with count 1")
}

func TestRemainingAndResetAt(t *testing.T) {
	l, now := newTestLimiter(2, time.Minute)
	ctx := context.Background()
	start := *now

	res := l.Allow(ctx, "k")
	assert.True(t, res.OK)
	assert.Equal(t, 1, res.Remaining)
	assert.Equal(t, start.Add(time.Minute), res.ResetAt)

	*now = start.Add(10 * time.Millisecond)
	res = l.Allow(ctx, "k")
	assert.True(t, res.OK)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, start.Add(time.Minute), res.ResetAt, "resetAt is fixed at window start + width")

	*now = start.Add(20 * time.Millisecond)
	res = l.Allow(ctx, "k")
	assert.False(t, res.OK)
	assert.Equal(t, 0, res.Remaining)

	*now = start.Add(61 * time.Second)
	res = l.Allow(ctx, "k")
	assert.True(t, res.OK)
	assert.Equal(t, 1, res.Remaining)
}

func TestKeyIsolation(t *testing.T) {
	l, _ := newTestLimiter(1, time.Minute)
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "a").OK)
	assert.False(t, l.Allow(ctx, "a").OK)
	assert.True(t, l.Allow(ctx, "b").OK, "key b must not be affected by key a")
}

type failingStore struct{}

func (failingStore) Incr(context.Context, string, time.Duration) (int64, time.Time, error) {
	return 0, time.Time{}, assert.AnError
}

func TestFailOpenOnStoreError(t *testing.T) {
	l := New(failingStore{}, 5, time.Minute)
	res := l.Allow(context.Background(), "k")
	assert.True(t, res.OK)
	assert.Equal(t, 4, res.Remaining)
}
