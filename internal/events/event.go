package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wattrewards/wattrewards/internal/models"
	"github.com/wattrewards/wattrewards/internal/services"
	apperrors "github.com/wattrewards/wattrewards/pkg/errors"
	"github.com/wattrewards/wattrewards/pkg/logger"
)

// ErrMalformedEvent marks a message that can never be processed and must not be redelivered.
var ErrMalformedEvent = errors.New("events: malformed notification event")

// NotificationEvent is published by other parts of the platform, for example when
// points are credited or a redemption ships.
type NotificationEvent struct {
	UserID    string                      `json:"userId"`
	Title     string                      `json:"title"`
	Message   string                      `json:"message"`
	Type      models.NotificationType     `json:"type,omitempty"`
	Priority  models.NotificationPriority `json:"priority,omitempty"`
	Data      map[string]any              `json:"data,omitempty"`
	ActionURL string                      `json:"actionUrl,omitempty"`
	ImageURL  string                      `json:"imageUrl,omitempty"`
	ExpiresAt *time.Time                  `json:"expiresAt,omitempty"`
	SendPush  *bool                       `json:"sendPush,omitempty"`
}

// Notifier persists and delivers a notification.
type Notifier interface {
	Notify(ctx context.Context, input services.NotifyInput) (*services.NotificationDTO, *services.DispatchResult, error)
}

// Processor turns raw event bodies into notifications.
type Processor struct {
	notifier Notifier
	log      *zap.Logger
}

// NewProcessor constructs a Processor.
func NewProcessor(notifier Notifier) (*Processor, error) {
	if notifier == nil {
		return nil, errors.New("events: notifier is required")
	}
	return &Processor{notifier: notifier, log: logger.WithModule("events")}, nil
}

// Process handles one message body. Errors wrapping ErrMalformedEvent are permanent.
func (p *Processor) Process(ctx context.Context, body []byte) error {
	var event NotificationEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	sendPush := true
	if event.SendPush != nil {
		sendPush = *event.SendPush
	}

	dto, result, err := p.notifier.Notify(ctx, services.NotifyInput{
		CreateNotificationInput: services.CreateNotificationInput{
			RecipientID: event.UserID,
			Title:       event.Title,
			Message:     event.Message,
			Type:        event.Type,
			Priority:    event.Priority,
			Data:        event.Data,
			ActionURL:   event.ActionURL,
			ImageURL:    event.ImageURL,
			ExpiresAt:   event.ExpiresAt,
		},
		SendPush: sendPush,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		return err
	}

	fields := []zap.Field{
		zap.String("notification_id", dto.ID),
		zap.String("user_id", dto.RecipientID),
	}
	if result != nil {
		fields = append(fields, zap.Int("delivered", len(result.Delivered)), zap.Int("failed", len(result.Failed)))
	}
	p.log.Debug("notification event processed", fields...)
	return nil
}
