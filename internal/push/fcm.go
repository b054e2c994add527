package push

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/errorutils"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMConfig holds the Firebase project settings.
type FCMConfig struct {
	ProjectID       string
	CredentialsFile string
}

type fcmClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMSender delivers push notifications through Firebase Cloud Messaging.
type FCMSender struct {
	client fcmClient
}

// NewFCMSender initialises a Firebase app and its messaging client. extra is
// appended to the client options, e.g. to point at an emulator.
func NewFCMSender(ctx context.Context, cfg FCMConfig, extra ...option.ClientOption) (*FCMSender, error) {
	var opts []option.ClientOption
	if path := strings.TrimSpace(cfg.CredentialsFile); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}

	opts = append(opts, extra...)

	var appCfg *firebase.Config
	if projectID := strings.TrimSpace(cfg.ProjectID); projectID != "" {
		appCfg = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, appCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("fcm: initialise app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("fcm: messaging client: %w", err)
	}
	return &FCMSender{client: client}, nil
}

// Send delivers msg to token. Unregistered or malformed tokens yield an ErrInvalidToken error.
func (s *FCMSender) Send(ctx context.Context, token string, msg Message) error {
	if strings.TrimSpace(token) == "" {
		return InvalidTokenError(errors.New("empty token"))
	}

	_, err := s.client.Send(ctx, buildFCMMessage(token, msg))
	if err == nil {
		return nil
	}
	if isFCMTokenError(err) {
		return InvalidTokenError(err)
	}
	return fmt.Errorf("fcm: send: %w", err)
}

// isFCMTokenError reports whether FCM rejected the token itself. INVALID_ARGUMENT
// also covers malformed payloads, so it only counts when FCM names the token.
func isFCMTokenError(err error) bool {
	switch {
	case messaging.IsUnregistered(err), messaging.IsSenderIDMismatch(err):
		return true
	case errorutils.IsInvalidArgument(err):
		return strings.Contains(strings.ToLower(err.Error()), "registration token")
	}
	return false
}

func buildFCMMessage(token string, msg Message) *messaging.Message {
	androidPriority := "normal"
	apnsPriority := "5"
	if msg.HighPriority {
		androidPriority = "high"
		apnsPriority = "10"
	}

	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title:    msg.Title,
			Body:     msg.Body,
			ImageURL: CleanImageURL(msg.ImageURL),
		},
		Data: PayloadData(msg.Data),
		Android: &messaging.AndroidConfig{
			Priority: androidPriority,
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": apnsPriority},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}
}
