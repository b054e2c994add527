package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/wattrewards/wattrewards/internal/models"
)

// schema lists every persisted model in creation order.
func schema() []any {
	return []any{
		&models.Notification{},
		&models.DeviceToken{},
		&models.OneTimeCode{},
		&models.CacheEntry{},
	}
}

// AutoMigrate brings the tables for all models up to date.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("auto migrate: nil database handle")
	}
	for _, model := range schema() {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("auto migrate %T: %w", model, err)
		}
	}
	return nil
}
