package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wattrewards/wattrewards/internal/cache"
)

const cacheKeyPrefix = "otp:code:"

// CacheCodeStore keeps codes in the shared cache so that every API instance sees
// the same code. Entries carry a TTL slightly beyond expiry so Verify can still
// report Expired before the key disappears.
type CacheCodeStore struct {
	store cache.Store
	grace time.Duration
}

// NewCacheCodeStore constructs a cache-backed CodeStore.
func NewCacheCodeStore(store cache.Store) (*CacheCodeStore, error) {
	if store == nil {
		return nil, errors.New("otp code store: cache is required")
	}
	return &CacheCodeStore{store: store, grace: time.Hour}, nil
}

func (s *CacheCodeStore) Save(ctx context.Context, rec CodeRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("otp code store: encode: %w", err)
	}
	ttl := time.Until(rec.ExpiresAt) + s.grace
	if ttl <= 0 {
		ttl = s.grace
	}
	if err := s.store.Set(ctx, cacheKeyPrefix+rec.PhoneNumber, payload, ttl); err != nil {
		return fmt.Errorf("otp code store: save: %w", err)
	}
	return nil
}

func (s *CacheCodeStore) Get(ctx context.Context, phoneNumber string) (*CodeRecord, error) {
	payload, ok, err := s.store.Get(ctx, cacheKeyPrefix+phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("otp code store: get: %w", err)
	}
	if !ok {
		return nil, ErrCodeNotFound
	}
	var rec CodeRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("otp code store: decode: %w", err)
	}
	return &rec, nil
}

// Consume is a read-compare-delete; two racing verifications of the same code may both succeed.
func (s *CacheCodeStore) Consume(ctx context.Context, phoneNumber, codeHash string) (bool, error) {
	rec, err := s.Get(ctx, phoneNumber)
	if errors.Is(err, ErrCodeNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if rec.CodeHash != codeHash {
		return false, nil
	}
	if err := s.Delete(ctx, phoneNumber); err != nil {
		return false, err
	}
	return true, nil
}

func (s *CacheCodeStore) Delete(ctx context.Context, phoneNumber string) error {
	if err := s.store.Delete(ctx, cacheKeyPrefix+phoneNumber); err != nil {
		return fmt.Errorf("otp code store: delete: %w", err)
	}
	return nil
}
