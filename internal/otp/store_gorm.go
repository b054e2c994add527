package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wattrewards/wattrewards/internal/models"
)

// GormCodeStore keeps codes in the one_time_codes table.
type GormCodeStore struct {
	db *gorm.DB
}

// NewGormCodeStore constructs a database-backed CodeStore.
func NewGormCodeStore(db *gorm.DB) (*GormCodeStore, error) {
	if db == nil {
		return nil, errors.New("otp code store: db is required")
	}
	return &GormCodeStore{db: db}, nil
}

func (s *GormCodeStore) Save(ctx context.Context, rec CodeRecord) error {
	row := models.OneTimeCode{
		PhoneNumber: rec.PhoneNumber,
		CodeHash:    rec.CodeHash,
		IssuedAt:    rec.IssuedAt,
		ExpiresAt:   rec.ExpiresAt,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "phone_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"code_hash", "issued_at", "expires_at", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("otp code store: save: %w", err)
	}
	return nil
}

func (s *GormCodeStore) Get(ctx context.Context, phoneNumber string) (*CodeRecord, error) {
	var row models.OneTimeCode
	err := s.db.WithContext(ctx).Take(&row, "phone_number = ?", phoneNumber).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("otp code store: get: %w", err)
	}
	return &CodeRecord{
		PhoneNumber: row.PhoneNumber,
		CodeHash:    row.CodeHash,
		IssuedAt:    row.IssuedAt,
		ExpiresAt:   row.ExpiresAt,
	}, nil
}

func (s *GormCodeStore) Consume(ctx context.Context, phoneNumber, codeHash string) (bool, error) {
	result := s.db.WithContext(ctx).
		Where("phone_number = ? AND code_hash = ?", phoneNumber, codeHash).
		Delete(&models.OneTimeCode{})
	if result.Error != nil {
		return false, fmt.Errorf("otp code store: consume: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *GormCodeStore) Delete(ctx context.Context, phoneNumber string) error {
	if err := s.db.WithContext(ctx).
		Where("phone_number = ?", phoneNumber).
		Delete(&models.OneTimeCode{}).Error; err != nil {
		return fmt.Errorf("otp code store: delete: %w", err)
	}
	return nil
}

// DeleteExpired removes codes whose expiry is at or before now.
func (s *GormCodeStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&models.OneTimeCode{})
	if result.Error != nil {
		return 0, fmt.Errorf("otp code store: delete expired: %w", result.Error)
	}
	return result.RowsAffected, nil
}
