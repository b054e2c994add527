package push

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidToken marks a delivery failure caused by a device token the provider
// no longer accepts. Such tokens should be pruned; every other failure is transient.
var ErrInvalidToken = errors.New("push: device token invalid or unregistered")

// Message is a provider-agnostic push payload.
type Message struct {
	Title    string
	Body     string
	ImageURL string
	// Data is delivered as string key/value pairs alongside the visible notification.
	Data map[string]string
	// HighPriority asks the provider to wake the device immediately.
	HighPriority bool
}

// Sender delivers a push message to a single device token.
type Sender interface {
	Send(ctx context.Context, token string, msg Message) error
}

// IsInvalidToken reports whether err means the token should be removed from the registry.
func IsInvalidToken(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}

// InvalidTokenError wraps a provider error so that IsInvalidToken reports true for it.
func InvalidTokenError(cause error) error {
	if cause == nil {
		return ErrInvalidToken
	}
	return fmt.Errorf("%w: %v", ErrInvalidToken, cause)
}
