package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotConfigured is returned by stores constructed without a backend.
var ErrNotConfigured = errors.New("cache: store not configured")

// Store is the shared key/value contract behind rate-limit windows and the
// cache-backed verification code store. Implementations treat a ttl <= 0 in
// Set as "no expiry".
type Store interface {
	// IncrementWithTTL bumps the counter at key, opening a new window of the
	// given length when none is active, and returns the count and the time
	// left in the window.
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}
