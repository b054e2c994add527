package app

import (
	"fmt"
	"strings"

	"github.com/wattrewards/wattrewards/internal/otp"
	"github.com/wattrewards/wattrewards/internal/services"
)

// ServiceConfig converts OTPConfig into the verification service parameters.
func (c OTPConfig) ServiceConfig() services.OTPServiceConfig {
	cfg := services.OTPServiceConfig{
		CodeTTL:         c.CodeTTL,
		ProviderTimeout: c.ProviderTimeout,
		CountryCode:     strings.TrimSpace(c.CountryCode),
	}
	if c.RateLimit.Enabled {
		cfg.Throttle = services.OTPThrottle{
			Window:      c.RateLimit.Window,
			MaxRequests: c.RateLimit.MaxRequests,
		}
	}
	return cfg
}

// TwilioConfig returns the Twilio channel settings.
func (c OTPConfig) TwilioConfig() otp.TwilioConfig {
	return otp.TwilioConfig{
		AccountSID: strings.TrimSpace(c.Twilio.AccountSID),
		AuthToken:  strings.TrimSpace(c.Twilio.AuthToken),
		From:       strings.TrimSpace(c.Twilio.From),
		CodeTTL:    c.CodeTTL,
	}
}

// InfobipConfig returns the Infobip channel settings.
func (c OTPConfig) InfobipConfig() otp.InfobipConfig {
	return otp.InfobipConfig{
		BaseURL: strings.TrimSpace(c.Infobip.BaseURL),
		APIKey:  strings.TrimSpace(c.Infobip.APIKey),
		Sender:  strings.TrimSpace(c.Infobip.Sender),
		CodeTTL: c.CodeTTL,
		Timeout: c.ProviderTimeout,
	}
}

// InteraktConfig returns the Interakt WhatsApp channel settings.
func (c OTPConfig) InteraktConfig() otp.InteraktConfig {
	return otp.InteraktConfig{
		BaseURL:      strings.TrimSpace(c.Interakt.BaseURL),
		APIKey:       strings.TrimSpace(c.Interakt.APIKey),
		Template:     strings.TrimSpace(c.Interakt.Template),
		LanguageCode: strings.TrimSpace(c.Interakt.LanguageCode),
		CountryCode:  strings.TrimSpace(c.CountryCode),
		Timeout:      c.ProviderTimeout,
	}
}

// Providers builds the ordered channel list named by Channels. Unknown or
// misconfigured channels are reported as errors; the local channel is always available.
func (c OTPConfig) Providers() ([]otp.Provider, error) {
	providers := make([]otp.Provider, 0, len(c.Channels))
	seen := make(map[string]struct{}, len(c.Channels))

	for _, raw := range c.Channels {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		var (
			provider otp.Provider
			err      error
		)
		switch name {
		case "twilio":
			provider, err = otp.NewTwilioProvider(c.TwilioConfig())
		case "infobip":
			provider, err = otp.NewInfobipProvider(c.InfobipConfig())
		case "interakt":
			provider, err = otp.NewInteraktProvider(c.InteraktConfig())
		case "local":
			provider = otp.NewLocalProvider()
		default:
			return nil, fmt.Errorf("otp: unknown channel %q", raw)
		}
		if err != nil {
			return nil, fmt.Errorf("otp: configure channel %q: %w", name, err)
		}
		providers = append(providers, provider)
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("otp: at least one channel must be configured")
	}
	return providers, nil
}
