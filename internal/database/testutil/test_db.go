package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wattrewards/wattrewards/internal/database"
)

// Option tweaks the database returned by MustOpenTestDB.
type Option func(*options)

type options struct {
	skipMigrations bool
}

// WithoutMigrations leaves the schema empty.
func WithoutMigrations() Option {
	return func(o *options) { o.skipMigrations = true }
}

// MustOpenTestDB returns a migrated in-memory SQLite database private to t.
// It is closed when the test finishes.
func MustOpenTestDB(t *testing.T, opts ...Option) *gorm.DB {
	t.Helper()

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	name := "test_" + uuid.NewString()
	db, err := database.Open(database.Config{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name),
	})
	require.NoError(t, err, "open %s", name)
	t.Cleanup(func() { _ = database.Close(db) })

	if !o.skipMigrations {
		require.NoError(t, database.AutoMigrate(db))
	}
	return db
}
