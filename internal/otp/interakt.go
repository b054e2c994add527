package otp

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

const defaultInteraktBaseURL = "https://api.interakt.ai"

// InteraktConfig configures the Interakt WhatsApp channel.
type InteraktConfig struct {
	BaseURL      string
	APIKey       string
	Template     string
	LanguageCode string
	CountryCode  string
	Timeout      time.Duration
}

// InteraktProvider delivers codes as a WhatsApp authentication template via Interakt.
type InteraktProvider struct {
	client      *http.Client
	url         string
	apiKey      string
	template    string
	language    string
	countryCode string
}

type interaktTemplate struct {
	Name         string              `json:"name"`
	LanguageCode string              `json:"languageCode"`
	BodyValues   []string            `json:"bodyValues"`
	ButtonValues map[string][]string `json:"buttonValues,omitempty"`
}

type interaktRequest struct {
	CountryCode string           `json:"countryCode"`
	PhoneNumber string           `json:"phoneNumber"`
	Type        string           `json:"type"`
	Template    interaktTemplate `json:"template"`
}

type interaktResponse struct {
	Result  bool   `json:"result"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

// NewInteraktProvider validates configuration and prepares the HTTP client.
func NewInteraktProvider(cfg InteraktConfig) (*InteraktProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.Template) == "" {
		return nil, errors.New("otp interakt: api key and template are required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultInteraktBaseURL
	}
	language := cfg.LanguageCode
	if language == "" {
		language = "en"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &InteraktProvider{
		client:      &http.Client{Timeout: timeout},
		url:         baseURL + "/v1/public/message/",
		apiKey:      cfg.APIKey,
		template:    cfg.Template,
		language:    language,
		countryCode: cfg.CountryCode,
	}, nil
}

// Name identifies the channel in logs and metrics.
func (p *InteraktProvider) Name() string { return "interakt" }

// Send posts the template message. Interakt reports logical failures with result=false.
func (p *InteraktProvider) Send(ctx context.Context, phoneNumber, code string) error {
	countryCode, national := SplitCountryCode(phoneNumber, p.countryCode)
	body := interaktRequest{
		CountryCode: countryCode,
		PhoneNumber: national,
		Type:        "Template",
		Template: interaktTemplate{
			Name:         p.template,
			LanguageCode: p.language,
			BodyValues:   []string{code},
			ButtonValues: map[string][]string{"0": {code}},
		},
	}

	var resp interaktResponse
	if err := postJSON(ctx, p.client, p.Name(), p.url, "Basic "+p.apiKey, body, &resp); err != nil {
		return err
	}
	if !resp.Result {
		return &DeliveryError{Provider: p.Name(), Detail: resp.Message}
	}
	return nil
}
