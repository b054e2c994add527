package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/wattrewards/wattrewards/pkg/logger"
)

// Dispatcher delivers a payload to a recipient's push channels.
type Dispatcher interface {
	Dispatch(ctx context.Context, recipientID string, payload DispatchPayload) (*DispatchResult, error)
}

// NotifyInput is a notification to persist plus whether to push it.
type NotifyInput struct {
	CreateNotificationInput
	SendPush bool
}

// Notifier creates notifications and optionally pushes them to the recipient's devices.
type Notifier struct {
	notifications *NotificationService
	dispatcher    Dispatcher
	log           *zap.Logger
}

// NewNotifier constructs a Notifier. dispatcher may be nil, disabling push.
func NewNotifier(notifications *NotificationService, dispatcher Dispatcher) (*Notifier, error) {
	if notifications == nil {
		return nil, errors.New("notifier: notification service is required")
	}
	return &Notifier{
		notifications: notifications,
		dispatcher:    dispatcher,
		log:           logger.WithModule("notifier"),
	}, nil
}

// Notify persists the notification then dispatches it when requested. A
// dispatch failure is logged and never fails the call; the result is nil then.
func (n *Notifier) Notify(ctx context.Context, input NotifyInput) (*NotificationDTO, *DispatchResult, error) {
	ctx = ensureContext(ctx)

	dto, err := n.notifications.Create(ctx, input.CreateNotificationInput)
	if err != nil {
		return nil, nil, err
	}
	if !input.SendPush || n.dispatcher == nil {
		return dto, nil, nil
	}

	result, err := n.dispatcher.Dispatch(ctx, dto.RecipientID, DispatchPayload{
		NotificationID: dto.ID,
		Title:          dto.Title,
		Message:        dto.Message,
		Type:           dto.Type,
		Priority:       dto.Priority,
		Data:           dto.Data,
		ActionURL:      dto.ActionURL,
		ImageURL:       dto.ImageURL,
	})
	if err != nil {
		n.log.Warn("push dispatch failed",
			zap.String("notification_id", dto.ID),
			zap.String("user_id", dto.RecipientID),
			zap.Error(err),
		)
		return dto, nil, nil
	}
	return dto, result, nil
}
