package otp

import (
	"context"
	"fmt"
	"time"
)

// Provider delivers a verification code to a phone number over one channel.
// Implementations must return an error for any non-success outcome so the
// caller can fall through to the next channel.
type Provider interface {
	Name() string
	Send(ctx context.Context, phoneNumber, code string) error
}

// DeliveryError describes a provider failure. Its text is for server logs only.
type DeliveryError struct {
	Provider   string
	StatusCode int
	Detail     string
}

func (e *DeliveryError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("otp %s: status %d: %s", e.Provider, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("otp %s: %s", e.Provider, e.Detail)
}

// MessageText renders the SMS body sent by text channels.
func MessageText(code string, ttl time.Duration) string {
	minutes := int(ttl.Minutes())
	if minutes <= 0 {
		minutes = 15
	}
	return fmt.Sprintf("%s is your WattRewards verification code. It is valid for %d minutes. Do not share it with anyone.", code, minutes)
}
