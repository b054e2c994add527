package cache

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wattrewards/wattrewards/internal/models"
)

const defaultCounterWindow = time.Minute

var keyColumn = []clause.Column{{Name: "cache_key"}}

// DatabaseStore keeps cache entries in the primary SQL database so counters
// and codes survive restarts when Redis is disabled.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

// DatabaseStoreOption customises a DatabaseStore.
type DatabaseStoreOption func(*DatabaseStore)

// WithDatabaseClock overrides the clock used for expiry decisions.
func WithDatabaseClock(now func() time.Time) DatabaseStoreOption {
	return func(s *DatabaseStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewDatabaseStore returns nil when db is nil.
func NewDatabaseStore(db *gorm.DB, opts ...DatabaseStoreOption) *DatabaseStore {
	if db == nil {
		return nil
	}
	s := &DatabaseStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IncrementWithTTL drops a lapsed window, then upserts the counter in place.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if s == nil {
		return 0, 0, ErrNotConfigured
	}
	if window <= 0 {
		window = defaultCounterWindow
	}

	now := s.now()
	deadline := now.Add(window)
	var entry models.CacheEntry

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.expire(tx, now, key); err != nil {
			return err
		}
		seed := models.CacheEntry{Key: key, Hits: 1, ExpiresAt: &deadline}
		err := tx.Clauses(clause.OnConflict{
			Columns:   keyColumn,
			DoUpdates: clause.Assignments(map[string]any{"hits": gorm.Expr("cache_entries.hits + 1")}),
		}).Create(&seed).Error
		if err != nil {
			return err
		}
		return tx.Take(&entry, "cache_key = ?", key).Error
	})
	if err != nil {
		return 0, 0, err
	}

	remaining := window
	if entry.ExpiresAt != nil {
		remaining = entry.ExpiresAt.Sub(now)
	}
	return entry.Hits, remaining, nil
}

// Set replaces the value at key and resets its counter.
func (s *DatabaseStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s == nil {
		return ErrNotConfigured
	}

	entry := models.CacheEntry{Key: key, Value: value}
	if ttl > 0 {
		deadline := s.now().Add(ttl)
		entry.ExpiresAt = &deadline
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   keyColumn,
		DoUpdates: clause.AssignmentColumns([]string{"value", "hits", "expires_at", "updated_at"}),
	}).Create(&entry).Error
}

// Get treats expired rows as missing and removes them.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil {
		return nil, false, ErrNotConfigured
	}

	var entry models.CacheEntry
	err := s.db.WithContext(ctx).Take(&entry, "cache_key = ?", key).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}

	now := s.now()
	if entry.Expired(now) {
		if err := s.expire(s.db.WithContext(ctx), now, key); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return entry.Value, true, nil
}

func (s *DatabaseStore) Delete(ctx context.Context, keys ...string) error {
	if s == nil {
		return ErrNotConfigured
	}
	if len(keys) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Where("cache_key IN ?", keys).Delete(&models.CacheEntry{}).Error
}

// SweepExpired deletes every lapsed entry and reports how many were removed.
func (s *DatabaseStore) SweepExpired(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, ErrNotConfigured
	}
	result := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now()).
		Delete(&models.CacheEntry{})
	return result.RowsAffected, result.Error
}

func (s *DatabaseStore) expire(tx *gorm.DB, now time.Time, key string) error {
	return tx.Where("cache_key = ? AND expires_at IS NOT NULL AND expires_at <= ?", key, now).
		Delete(&models.CacheEntry{}).Error
}
