package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/wattrewards/wattrewards/internal/push"
	"github.com/wattrewards/wattrewards/internal/services"
)

// NewSender returns the push sender selected by Provider.
func (c PushConfig) NewSender(ctx context.Context) (push.Sender, error) {
	switch strings.ToLower(strings.TrimSpace(c.Provider)) {
	case "", "log":
		return push.NewLogSender(), nil
	case "fcm":
		sender, err := push.NewFCMSender(ctx, push.FCMConfig{
			ProjectID:       strings.TrimSpace(c.ProjectID),
			CredentialsFile: strings.TrimSpace(c.CredentialsFile),
		})
		if err != nil {
			return nil, err
		}
		return sender, nil
	default:
		return nil, fmt.Errorf("push: unsupported provider %q", c.Provider)
	}
}

// DispatchOptions returns options for the delivery fan-out.
func (c PushConfig) DispatchOptions() []services.DispatchOption {
	var opts []services.DispatchOption
	if c.Timeout > 0 {
		opts = append(opts, services.WithDispatchTimeout(c.Timeout))
	}
	return opts
}
