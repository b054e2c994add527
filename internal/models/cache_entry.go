package models

import "time"

// CacheEntry is one key of the SQL-backed cache used when Redis is disabled.
// Hits carries window counters; Value carries opaque payloads.
type CacheEntry struct {
	Key       string     `gorm:"column:cache_key;primaryKey;size:191"`
	Value     []byte     `gorm:"column:value"`
	Hits      int64      `gorm:"column:hits;not null;default:0"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index"`
	UpdatedAt time.Time
}

// Expired reports whether the entry has a deadline at or before now.
func (e CacheEntry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}
