package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/wattrewards/wattrewards/internal/models"
	apperrors "github.com/wattrewards/wattrewards/pkg/errors"
)

// RegisterDeviceInput captures a push token registration request.
type RegisterDeviceInput struct {
	UserID   string
	Token    string
	Platform models.DevicePlatform
}

// DeviceOption customises a DeviceService.
type DeviceOption func(*DeviceService)

// WithDeviceClock overrides the clock used for lastUsedAt.
func WithDeviceClock(now func() time.Time) DeviceOption {
	return func(s *DeviceService) {
		if now != nil {
			s.now = now
		}
	}
}

// DeviceService maintains the registry of push device tokens.
type DeviceService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDeviceService constructs a DeviceService.
func NewDeviceService(db *gorm.DB, opts ...DeviceOption) (*DeviceService, error) {
	if db == nil {
		return nil, errors.New("device service: db is required")
	}
	svc := &DeviceService{db: db, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register stores a device token for the user. A token already registered,
// possibly by another user, is moved to the caller and refreshed.
func (s *DeviceService) Register(ctx context.Context, input RegisterDeviceInput) (*models.DeviceToken, error) {
	ctx = ensureContext(ctx)

	userID := strings.TrimSpace(input.UserID)
	token := strings.TrimSpace(input.Token)
	platform := models.DevicePlatform(strings.ToLower(strings.TrimSpace(string(input.Platform))))

	var fields []apperrors.FieldError
	if userID == "" {
		fields = append(fields, apperrors.FieldError{Field: "userId", Message: "is required"})
	}
	if token == "" {
		fields = append(fields, apperrors.FieldError{Field: "token", Message: "is required"})
	}
	switch {
	case platform == "":
		fields = append(fields, apperrors.FieldError{Field: "platform", Message: "is required"})
	case !platform.Valid():
		fields = append(fields, apperrors.FieldError{Field: "platform", Message: "must be one of android, ios, web"})
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidation(validationSummary(fields), fields...)
	}

	now := s.now().UTC()
	device, err := s.upsert(ctx, userID, token, platform, now)
	if err != nil && isUniqueConstraintError(err) {
		// A concurrent registration of the same token won the insert.
		device, err = s.upsert(ctx, userID, token, platform, now)
	}
	if err != nil {
		return nil, fmt.Errorf("device service: register token: %w", err)
	}
	return device, nil
}

func (s *DeviceService) upsert(ctx context.Context, userID, token string, platform models.DevicePlatform, now time.Time) (*models.DeviceToken, error) {
	var device models.DeviceToken
	err := s.db.WithContext(ctx).Take(&device, "token = ?", token).Error
	switch {
	case err == nil:
		updates := map[string]any{
			"user_id":      userID,
			"platform":     platform,
			"last_used_at": now,
			"updated_at":   now,
		}
		if err := s.db.WithContext(ctx).Model(&device).Updates(updates).Error; err != nil {
			return nil, err
		}
		device.UserID = userID
		device.Platform = platform
		device.LastUsedAt = now
		device.UpdatedAt = now
		return &device, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		device = models.DeviceToken{
			BaseModel:  models.BaseModel{CreatedAt: now, UpdatedAt: now},
			UserID:     userID,
			Token:      token,
			Platform:   platform,
			LastUsedAt: now,
		}
		if err := s.db.WithContext(ctx).Create(&device).Error; err != nil {
			return nil, err
		}
		return &device, nil
	default:
		return nil, err
	}
}

// Unregister removes the user's token. Removing an unknown token succeeds.
func (s *DeviceService) Unregister(ctx context.Context, userID, token string) error {
	ctx = ensureContext(ctx)
	token = strings.TrimSpace(token)
	if token == "" {
		return apperrors.NewValidation("token is required", apperrors.FieldError{Field: "token", Message: "is required"})
	}

	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND token = ?", userID, token).
		Delete(&models.DeviceToken{}).Error; err != nil {
		return fmt.Errorf("device service: unregister token: %w", err)
	}
	return nil
}

// Tokens returns every registered device of the user, most recently used first.
func (s *DeviceService) Tokens(ctx context.Context, userID string) ([]models.DeviceToken, error) {
	ctx = ensureContext(ctx)
	var devices []models.DeviceToken
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_used_at DESC").
		Find(&devices).Error; err != nil {
		return nil, fmt.Errorf("device service: list tokens: %w", err)
	}
	return devices, nil
}

// Prune deletes the given tokens from the registry.
func (s *DeviceService) Prune(ctx context.Context, tokens []string) (int64, error) {
	ctx = ensureContext(ctx)
	tokens = uniqueStrings(tokens)
	if len(tokens) == 0 {
		return 0, nil
	}
	result := s.db.WithContext(ctx).Where("token IN ?", tokens).Delete(&models.DeviceToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("device service: prune tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Touch refreshes lastUsedAt for tokens that accepted a delivery.
func (s *DeviceService) Touch(ctx context.Context, tokens []string) error {
	ctx = ensureContext(ctx)
	tokens = uniqueStrings(tokens)
	if len(tokens) == 0 {
		return nil
	}
	now := s.now().UTC()
	if err := s.db.WithContext(ctx).
		Model(&models.DeviceToken{}).
		Where("token IN ?", tokens).
		Updates(map[string]any{"last_used_at": now, "updated_at": now}).Error; err != nil {
		return fmt.Errorf("device service: touch tokens: %w", err)
	}
	return nil
}
