package otp

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// InfobipConfig configures the Infobip SMS channel.
type InfobipConfig struct {
	BaseURL string
	APIKey  string
	Sender  string
	CodeTTL time.Duration
	Timeout time.Duration
}

// InfobipProvider sends codes through Infobip's SMS API.
type InfobipProvider struct {
	client  *http.Client
	url     string
	apiKey  string
	sender  string
	codeTTL time.Duration
}

type infobipRequest struct {
	Messages []infobipMessage `json:"messages"`
}

type infobipMessage struct {
	Destinations []infobipDestination `json:"destinations"`
	From         string               `json:"from,omitempty"`
	Text         string               `json:"text"`
}

type infobipDestination struct {
	To string `json:"to"`
}

type infobipResponse struct {
	Messages []struct {
		MessageID string `json:"messageId"`
		Status    struct {
			GroupName   string `json:"groupName"`
			Description string `json:"description"`
		} `json:"status"`
	} `json:"messages"`
}

// NewInfobipProvider validates configuration and prepares the HTTP client.
func NewInfobipProvider(cfg InfobipConfig) (*InfobipProvider, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("otp infobip: base url and api key are required")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &InfobipProvider{
		client:  &http.Client{Timeout: timeout},
		url:     baseURL + "/sms/2/text/advanced",
		apiKey:  cfg.APIKey,
		sender:  cfg.Sender,
		codeTTL: cfg.CodeTTL,
	}, nil
}

// Name identifies the channel in logs and metrics.
func (p *InfobipProvider) Name() string { return "infobip" }

// Send submits a single SMS. A REJECTED or UNDELIVERABLE status counts as failure.
func (p *InfobipProvider) Send(ctx context.Context, phoneNumber, code string) error {
	body := infobipRequest{Messages: []infobipMessage{{
		Destinations: []infobipDestination{{To: strings.TrimPrefix(phoneNumber, "+")}},
		From:         p.sender,
		Text:         MessageText(code, p.codeTTL),
	}}}

	var resp infobipResponse
	if err := postJSON(ctx, p.client, p.Name(), p.url, "App "+p.apiKey, body, &resp); err != nil {
		return err
	}

	if len(resp.Messages) == 0 {
		return &DeliveryError{Provider: p.Name(), Detail: "no message accepted"}
	}
	switch strings.ToUpper(resp.Messages[0].Status.GroupName) {
	case "REJECTED", "UNDELIVERABLE", "EXPIRED":
		return &DeliveryError{Provider: p.Name(), Detail: resp.Messages[0].Status.Description}
	}
	return nil
}
