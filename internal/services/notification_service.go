package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/wattrewards/wattrewards/internal/models"
	"github.com/wattrewards/wattrewards/internal/realtime"
	apperrors "github.com/wattrewards/wattrewards/pkg/errors"
)

const (
	defaultNotificationPageLimit = 20
	maxNotificationPageLimit     = 100
)

// NotificationData is the opaque key/value payload carried to clients. Values must be JSON serialisable.
type NotificationData map[string]any

// NotificationDTO represents the API-friendly notification payload.
type NotificationDTO struct {
	ID          string                      `json:"id"`
	RecipientID string                      `json:"recipientId"`
	Title       string                      `json:"title"`
	Message     string                      `json:"message"`
	Type        models.NotificationType     `json:"type"`
	Status      models.NotificationStatus   `json:"status"`
	Priority    models.NotificationPriority `json:"priority"`
	Data        NotificationData            `json:"data,omitempty"`
	ActionURL   string                      `json:"actionUrl,omitempty"`
	ImageURL    string                      `json:"imageUrl,omitempty"`
	ExpiresAt   *time.Time                  `json:"expiresAt,omitempty"`
	ReadAt      *time.Time                  `json:"readAt,omitempty"`
	CreatedAt   time.Time                   `json:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt"`

	// Derived at read time, never persisted.
	TimeAgo   string `json:"timeAgo"`
	IsExpired bool   `json:"isExpired"`
}

// CreateNotificationInput defines attributes required to persist a notification.
type CreateNotificationInput struct {
	RecipientID string
	Title       string
	Message     string
	Type        models.NotificationType
	Priority    models.NotificationPriority
	Data        NotificationData
	ActionURL   string
	ImageURL    string
	ExpiresAt   *time.Time
}

// ListNotificationsInput defines filters for querying a recipient's notifications.
type ListNotificationsInput struct {
	RecipientID    string
	Page           int
	Limit          int
	Status         models.NotificationStatus
	Type           models.NotificationType
	IncludeExpired bool
}

// NotificationPage is one page of a filtered notification listing.
type NotificationPage struct {
	Items      []NotificationDTO `json:"items"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	Total      int64             `json:"total"`
	TotalPages int               `json:"totalPages"`
}

// NotificationEventPayload represents data sent to realtime consumers.
type NotificationEventPayload struct {
	Notification   *NotificationDTO `json:"notification,omitempty"`
	NotificationID string           `json:"notificationId,omitempty"`
	Count          int64            `json:"count,omitempty"`
}

// NotificationOption customises a NotificationService.
type NotificationOption func(*NotificationService)

// WithNotificationClock overrides the clock used for timestamps and expiry checks.
func WithNotificationClock(now func() time.Time) NotificationOption {
	return func(s *NotificationService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPageLimits overrides the default and maximum page sizes for List.
func WithPageLimits(defaultLimit, maxLimit int) NotificationOption {
	return func(s *NotificationService) {
		if maxLimit > 0 {
			s.maxLimit = maxLimit
		}
		if defaultLimit > 0 {
			s.defaultLimit = defaultLimit
		}
		if s.defaultLimit > s.maxLimit {
			s.defaultLimit = s.maxLimit
		}
	}
}

// NotificationService manages recipients' in-app notifications.
type NotificationService struct {
	db           *gorm.DB
	hub          realtime.Broadcaster
	now          func() time.Time
	defaultLimit int
	maxLimit     int
}

// NewNotificationService constructs a NotificationService. hub may be nil.
func NewNotificationService(db *gorm.DB, hub realtime.Broadcaster, opts ...NotificationOption) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	svc := &NotificationService{
		db:           db,
		hub:          hub,
		now:          time.Now,
		defaultLimit: defaultNotificationPageLimit,
		maxLimit:     maxNotificationPageLimit,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create validates and persists a new unread notification.
func (s *NotificationService) Create(ctx context.Context, input CreateNotificationInput) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)

	notification, err := s.buildNotification(input)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		return nil, fmt.Errorf("notification service: create notification: %w", err)
	}

	dto := s.present(*notification)
	s.broadcast(notification.RecipientID, realtime.EventNotificationCreated, &NotificationEventPayload{
		Notification: &dto,
	})
	return &dto, nil
}

func (s *NotificationService) buildNotification(input CreateNotificationInput) (*models.Notification, error) {
	recipientID := strings.TrimSpace(input.RecipientID)
	title := strings.TrimSpace(input.Title)
	message := strings.TrimSpace(input.Message)

	var fields []apperrors.FieldError
	if recipientID == "" {
		fields = append(fields, apperrors.FieldError{Field: "userId", Message: "is required"})
	}
	switch {
	case title == "":
		fields = append(fields, apperrors.FieldError{Field: "title", Message: "is required"})
	case utf8.RuneCountInString(title) > models.NotificationTitleMaxLength:
		fields = append(fields, apperrors.FieldError{Field: "title", Message: fmt.Sprintf("must be at most %d characters", models.NotificationTitleMaxLength)})
	}
	switch {
	case message == "":
		fields = append(fields, apperrors.FieldError{Field: "message", Message: "is required"})
	case utf8.RuneCountInString(message) > models.NotificationMessageMaxLength:
		fields = append(fields, apperrors.FieldError{Field: "message", Message: fmt.Sprintf("must be at most %d characters", models.NotificationMessageMaxLength)})
	}

	notificationType := models.NotificationType(defaultIfEmpty(string(input.Type), string(models.NotificationTypeInfo)))
	if !notificationType.Valid() {
		fields = append(fields, apperrors.FieldError{Field: "type", Message: "is not a supported notification type"})
	}
	priority := models.NotificationPriority(defaultIfEmpty(string(input.Priority), string(models.NotificationPriorityMedium)))
	if !priority.Valid() {
		fields = append(fields, apperrors.FieldError{Field: "priority", Message: "must be one of low, medium, high, urgent"})
	}

	if len(fields) > 0 {
		return nil, apperrors.NewValidation(validationSummary(fields), fields...)
	}

	now := s.now().UTC()
	notification := &models.Notification{
		BaseModel:   models.BaseModel{CreatedAt: now, UpdatedAt: now},
		RecipientID: recipientID,
		Title:       title,
		Message:     message,
		Type:        notificationType,
		Status:      models.NotificationStatusUnread,
		Priority:    priority,
		ActionURL:   strings.TrimSpace(input.ActionURL),
		ImageURL:    strings.TrimSpace(input.ImageURL),
	}

	if input.ExpiresAt != nil {
		expiresAt := input.ExpiresAt.UTC()
		notification.ExpiresAt = &expiresAt
	}

	if len(input.Data) > 0 {
		data, err := json.Marshal(input.Data)
		if err != nil {
			return nil, apperrors.NewValidation("data must be a JSON object", apperrors.FieldError{Field: "data", Message: "must be JSON serialisable"})
		}
		notification.Data = datatypes.JSON(data)
	}

	return notification, nil
}

// Get loads a notification by id regardless of owner.
func (s *NotificationService) Get(ctx context.Context, id string) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)
	var notification models.Notification
	if err := s.db.WithContext(ctx).Take(&notification, "id = ?", strings.TrimSpace(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("notification service: load notification: %w", err)
	}
	dto := s.present(notification)
	return &dto, nil
}

// GetForRecipient loads a notification only if recipientID owns it.
func (s *NotificationService) GetForRecipient(ctx context.Context, id, recipientID string) (*NotificationDTO, error) {
	dto, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if dto.RecipientID != recipientID {
		return nil, apperrors.ErrNotFound
	}
	return dto, nil
}

// List returns one page of the recipient's notifications, newest first.
// Expired notifications are excluded unless IncludeExpired is set.
func (s *NotificationService) List(ctx context.Context, input ListNotificationsInput) (*NotificationPage, error) {
	ctx = ensureContext(ctx)
	recipientID := strings.TrimSpace(input.RecipientID)
	if recipientID == "" {
		return nil, apperrors.NewValidation("recipient is required", apperrors.FieldError{Field: "userId", Message: "is required"})
	}
	if input.Status != "" && !input.Status.Valid() {
		return nil, apperrors.NewValidation("status must be unread or read", apperrors.FieldError{Field: "status", Message: "is not a supported status"})
	}
	if input.Type != "" && !input.Type.Valid() {
		return nil, apperrors.NewValidation("type is not a supported notification type", apperrors.FieldError{Field: "type", Message: "is not a supported notification type"})
	}

	page := input.Page
	if page < 1 {
		page = 1
	}
	limit := input.Limit
	if limit < 1 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	query := s.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ?", recipientID)
	if input.Status != "" {
		query = query.Where("status = ?", input.Status)
	}
	if input.Type != "" {
		query = query.Where("type = ?", input.Type)
	}
	now := s.now().UTC()
	if !input.IncludeExpired {
		query = query.Where("expires_at IS NULL OR expires_at > ?", now)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("notification service: count notifications: %w", err)
	}

	result := &NotificationPage{
		Items:      []NotificationDTO{},
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}

	if page > result.TotalPages {
		return result, nil
	}
	offset := (page - 1) * limit

	var rows []models.Notification
	if err := query.Session(&gorm.Session{}).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: list notifications: %w", err)
	}

	result.Items = s.presentRows(rows)
	return result, nil
}

// MarkAsRead transitions an owned unread notification to read. Marking an
// already-read notification succeeds without touching readAt. It reports
// whether this call performed the transition.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, recipientID string) (bool, error) {
	ctx = ensureContext(ctx)
	now := s.now().UTC()

	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ? AND status = ?", id, recipientID, models.NotificationStatusUnread).
		Updates(map[string]any{
			"status":     models.NotificationStatusRead,
			"read_at":    now,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("notification service: mark read: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).
			Model(&models.Notification{}).
			Where("id = ? AND recipient_id = ?", id, recipientID).
			Count(&count).Error; err != nil {
			return false, fmt.Errorf("notification service: load notification: %w", err)
		}
		if count == 0 {
			return false, apperrors.ErrNotFound
		}
		return false, nil
	}

	s.broadcast(recipientID, realtime.EventNotificationRead, &NotificationEventPayload{NotificationID: id})
	return true, nil
}

// MarkAllAsRead marks every unread notification of the recipient read with a single shared readAt.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, recipientID string) (int64, error) {
	ctx = ensureContext(ctx)
	now := s.now().UTC()

	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND status = ?", recipientID, models.NotificationStatusUnread).
		Updates(map[string]any{
			"status":     models.NotificationStatusRead,
			"read_at":    now,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: mark all read: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		s.broadcast(recipientID, realtime.EventNotificationReadAll, &NotificationEventPayload{Count: result.RowsAffected})
	}
	return result.RowsAffected, nil
}

// Delete removes a notification owned by recipientID.
func (s *NotificationService) Delete(ctx context.Context, id, recipientID string) error {
	ctx = ensureContext(ctx)
	result := s.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return fmt.Errorf("notification service: delete notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}

	s.broadcast(recipientID, realtime.EventNotificationDeleted, &NotificationEventPayload{NotificationID: id})
	return nil
}

// UnreadCount counts unread, unexpired notifications. It is recomputed on every call.
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	ctx = ensureContext(ctx)
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND status = ?", recipientID, models.NotificationStatusUnread).
		Where("expires_at IS NULL OR expires_at > ?", s.now().UTC()).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("notification service: unread count: %w", err)
	}
	return count, nil
}

// SweepExpired physically removes notifications whose expiry has elapsed.
func (s *NotificationService) SweepExpired(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	result := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now().UTC()).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: sweep expired: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *NotificationService) broadcast(recipientID, event string, payload *NotificationEventPayload) {
	if s.hub == nil {
		return
	}
	message := realtime.Message{
		Stream: realtime.StreamNotifications,
		Event:  event,
	}
	if payload != nil {
		message.Data = payload
	}
	s.hub.BroadcastToUser(realtime.StreamNotifications, recipientID, message)
}

func (s *NotificationService) presentRows(rows []models.Notification) []NotificationDTO {
	items := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, s.present(row))
	}
	return items
}

func (s *NotificationService) present(row models.Notification) NotificationDTO {
	now := s.now()
	return NotificationDTO{
		ID:          row.ID,
		RecipientID: row.RecipientID,
		Title:       row.Title,
		Message:     row.Message,
		Type:        row.Type,
		Status:      row.Status,
		Priority:    row.Priority,
		Data:        decodeJSON(row.Data),
		ActionURL:   row.ActionURL,
		ImageURL:    row.ImageURL,
		ExpiresAt:   row.ExpiresAt,
		ReadAt:      row.ReadAt,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
		TimeAgo:     TimeAgo(row.CreatedAt, now),
		IsExpired:   row.IsExpired(now),
	}
}

func decodeJSON(data datatypes.JSON) NotificationData {
	if len(data) == 0 {
		return nil
	}
	var out NotificationData
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func validationSummary(fields []apperrors.FieldError) string {
	if len(fields) == 0 {
		return apperrors.ErrValidation.Message
	}
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field.Field+" "+field.Message)
	}
	return strings.Join(parts, "; ")
}
