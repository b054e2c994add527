package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wattrewards/wattrewards/internal/models"
	"github.com/wattrewards/wattrewards/internal/push"
	"github.com/wattrewards/wattrewards/pkg/logger"
	"github.com/wattrewards/wattrewards/pkg/metrics"
)

const defaultDispatchTimeout = 10 * time.Second

// DeviceRegistry resolves and maintains a recipient's push channels.
type DeviceRegistry interface {
	Tokens(ctx context.Context, userID string) ([]models.DeviceToken, error)
	Prune(ctx context.Context, tokens []string) (int64, error)
	Touch(ctx context.Context, tokens []string) error
}

// DispatchPayload is the push content fanned out to a recipient's devices.
type DispatchPayload struct {
	NotificationID string
	Title          string
	Message        string
	Type           models.NotificationType
	Priority       models.NotificationPriority
	Data           NotificationData
	ActionURL      string
	ImageURL       string
}

// DispatchResult lists the device tokens that accepted or rejected the payload.
type DispatchResult struct {
	Delivered []string `json:"delivered"`
	Failed    []string `json:"failed"`
}

// DispatchOption customises a DispatchService.
type DispatchOption func(*DispatchService)

// WithDispatchTimeout bounds every single device delivery.
func WithDispatchTimeout(timeout time.Duration) DispatchOption {
	return func(s *DispatchService) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// DispatchService fans a push payload out to every registered device of a recipient.
type DispatchService struct {
	registry DeviceRegistry
	sender   push.Sender
	timeout  time.Duration
	log      *zap.Logger
}

// NewDispatchService constructs a DispatchService.
func NewDispatchService(registry DeviceRegistry, sender push.Sender, opts ...DispatchOption) (*DispatchService, error) {
	if registry == nil {
		return nil, errors.New("dispatch service: device registry is required")
	}
	if sender == nil {
		return nil, errors.New("dispatch service: push sender is required")
	}
	svc := &DispatchService{
		registry: registry,
		sender:   sender,
		timeout:  defaultDispatchTimeout,
		log:      logger.WithModule("push"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Dispatch delivers payload to each device independently. Tokens the provider
// reports as invalid are pruned; transient failures keep the token registered.
// It never touches the stored notification.
func (s *DispatchService) Dispatch(ctx context.Context, recipientID string, payload DispatchPayload) (*DispatchResult, error) {
	ctx = ensureContext(ctx)

	devices, err := s.registry.Tokens(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("dispatch service: resolve devices: %w", err)
	}

	result := &DispatchResult{Delivered: []string{}, Failed: []string{}}
	if len(devices) == 0 {
		return result, nil
	}

	message := buildPushMessage(payload)
	errs := make([]error, len(devices))

	var wg sync.WaitGroup
	for i := range devices {
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			errs[i] = callWithTimeout(ctx, s.timeout, func(ctx context.Context) error {
				return s.sender.Send(ctx, token, message)
			})
		}(i, devices[i].Token)
	}
	wg.Wait()

	var invalid []string
	for i, device := range devices {
		err := errs[i]
		switch {
		case err == nil:
			result.Delivered = append(result.Delivered, device.Token)
			metrics.PushDeliveries.WithLabelValues("delivered").Inc()
		case push.IsInvalidToken(err):
			result.Failed = append(result.Failed, device.Token)
			invalid = append(invalid, device.Token)
			metrics.PushDeliveries.WithLabelValues("invalid_token").Inc()
			s.log.Info("pruning rejected device token",
				zap.String("user_id", recipientID),
				zap.String("platform", string(device.Platform)),
				zap.Error(err),
			)
		default:
			result.Failed = append(result.Failed, device.Token)
			metrics.PushDeliveries.WithLabelValues("failed").Inc()
			s.log.Warn("push delivery failed",
				zap.String("user_id", recipientID),
				zap.String("platform", string(device.Platform)),
				zap.Error(err),
			)
		}
	}

	// Bookkeeping runs on a fresh context so a cancelled request still prunes.
	bookkeeping := context.WithoutCancel(ctx)
	if len(invalid) > 0 {
		pruned, err := s.registry.Prune(bookkeeping, invalid)
		if err != nil {
			s.log.Error("failed to prune device tokens", zap.String("user_id", recipientID), zap.Error(err))
		} else {
			metrics.PrunedDeviceTokens.Add(float64(pruned))
		}
	}
	if len(result.Delivered) > 0 {
		if err := s.registry.Touch(bookkeeping, result.Delivered); err != nil {
			s.log.Warn("failed to refresh device tokens", zap.String("user_id", recipientID), zap.Error(err))
		}
	}

	return result, nil
}

func buildPushMessage(payload DispatchPayload) push.Message {
	data := make(map[string]string, len(payload.Data)+3)
	for key, value := range payload.Data {
		if push.ReservedDataKey(key) {
			continue
		}
		data[key] = stringifyValue(value)
	}
	if payload.NotificationID != "" {
		data["notificationId"] = payload.NotificationID
	}
	if payload.Type != "" {
		data["type"] = string(payload.Type)
	}
	if payload.ActionURL != "" {
		data["actionUrl"] = payload.ActionURL
	}

	return push.Message{
		Title:        payload.Title,
		Body:         payload.Message,
		ImageURL:     push.CleanImageURL(payload.ImageURL),
		Data:         data,
		HighPriority: payload.Priority == models.NotificationPriorityHigh || payload.Priority == models.NotificationPriorityUrgent,
	}
}

// stringifyValue flattens a data value into the string form push providers require.
func stringifyValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return strings.TrimSpace(fmt.Sprint(value))
	}
	return string(encoded)
}
