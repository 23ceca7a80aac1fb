// Package ratelimit admits or rejects requests per key under a fixed
// count-per-window policy.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result is an admission decision. ResetAt is when the current window closes
// and the counter self-heals.
type Result struct {
	OK        bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Store keeps per-key window counters. Incr must atomically record one attempt
// for key: when no window is open (or the open one has expired) it starts a
// fresh window of the given width with count 1; otherwise it increments the
// open window's count. It returns the resulting count and the window's expiry.
//
// A process-local MemoryStore is correct for a single instance only; with N
// instances the effective limit is limit*N. Use RedisStore when the service
// runs behind multiple workers.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

// Limiter applies a fixed-window policy on top of a Store.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
}

func New(store Store, limit int, window time.Duration) *Limiter {
	return &Limiter{store: store, limit: limit, window: window}
}

// Allow records one attempt for key and returns the decision. It never fails:
// if the store is unreachable the request is admitted (fail-open) so that a
// degraded counter backend cannot take the API down.
func (l *Limiter) Allow(ctx context.Context, key string) Result {
	count, resetAt, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		return Result{OK: true, Limit: l.limit, Remaining: l.limit - 1, ResetAt: time.Now().Add(l.window)}
	}
	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		OK:        count <= int64(l.limit),
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

type window struct {
	count   int64
	resetAt time.Time
}

// MemoryStore is a process-lifetime mutex+map store. Entries are created
// lazily and reused once their window expires; distinct keys are never
// evicted, so memory grows with the key cardinality (client IPs).
type MemoryStore struct {
	mu  sync.Mutex
	m   map[string]*window
	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]*window), now: time.Now}
}

func (s *MemoryStore) Incr(_ context.Context, key string, width time.Duration) (int64, time.Time, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.m[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(width)}
		s.m[key] = w
		return 1, w.resetAt, nil
	}
	w.count++
	return w.count, w.resetAt, nil
}
