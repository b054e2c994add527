package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/wattrewards/wattrewards/internal/cache"
)

const (
	defaultRateWindow = time.Minute
	rateSweepInterval = time.Minute
)

// RateStore counts hits per key in fixed windows.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
}

// MemoryRateStore keeps windows in process memory. It suits a single
// instance and tests; lapsed windows are dropped lazily.
type MemoryRateStore struct {
	mu        sync.Mutex
	windows   map[string]rateWindow
	now       func() time.Time
	nextSweep time.Time
}

type rateWindow struct {
	hits int
	ends time.Time
}

// MemoryRateStoreOption customises a MemoryRateStore.
type MemoryRateStoreOption func(*MemoryRateStore)

// WithRateClock overrides the clock used to evaluate windows.
func WithRateClock(now func() time.Time) MemoryRateStoreOption {
	return func(s *MemoryRateStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewMemoryRateStore(opts ...MemoryRateStoreOption) *MemoryRateStore {
	s := &MemoryRateStore{windows: make(map[string]rateWindow), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryRateStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = defaultRateWindow
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !now.Before(s.nextSweep) {
		for k, w := range s.windows {
			if !now.Before(w.ends) {
				delete(s.windows, k)
			}
		}
		s.nextSweep = now.Add(rateSweepInterval)
	}

	w, ok := s.windows[key]
	if !ok || !now.Before(w.ends) {
		w = rateWindow{ends: now.Add(window)}
	}
	w.hits++
	s.windows[key] = w
	return w.hits, w.ends.Sub(now), nil
}

// Len reports how many windows are tracked.
func (s *MemoryRateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

type sharedRateStore struct {
	store cache.Store
}

// SharedRateStore counts through a cache.Store (Redis or SQL) so every API
// instance sees the same windows. A nil store yields nil.
func SharedRateStore(store cache.Store) RateStore {
	if store == nil {
		return nil
	}
	return sharedRateStore{store: store}
}

func (s sharedRateStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = defaultRateWindow
	}
	count, ttl, err := s.store.IncrementWithTTL(ctx, key, window)
	return int(count), ttl, err
}
