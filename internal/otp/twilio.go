package otp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioConfig configures the Twilio SMS channel.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	CodeTTL    time.Duration
}

type twilioMessageCreator interface {
	CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error)
}

// TwilioProvider sends codes as SMS through the Twilio Messages API.
type TwilioProvider struct {
	api     twilioMessageCreator
	from    string
	codeTTL time.Duration
}

// NewTwilioProvider validates credentials and builds a Twilio REST client.
func NewTwilioProvider(cfg TwilioConfig) (*TwilioProvider, error) {
	if strings.TrimSpace(cfg.AccountSID) == "" || strings.TrimSpace(cfg.AuthToken) == "" {
		return nil, errors.New("otp twilio: account sid and auth token are required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("otp twilio: sender number is required")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &TwilioProvider{api: client.Api, from: cfg.From, codeTTL: cfg.CodeTTL}, nil
}

// Name identifies the channel in logs and metrics.
func (p *TwilioProvider) Name() string { return "twilio" }

// Send creates an outbound SMS. Twilio's SDK is not context aware, so the call
// runs in a goroutine and is abandoned when ctx is done.
func (p *TwilioProvider) Send(ctx context.Context, phoneNumber, code string) error {
	params := &twilioapi.CreateMessageParams{}
	params.SetTo(phoneNumber)
	params.SetFrom(p.from)
	params.SetBody(MessageText(code, p.codeTTL))

	type result struct {
		msg *twilioapi.ApiV2010Message
		err error
	}
	done := make(chan result, 1)
	go func() {
		msg, err := p.api.CreateMessage(params)
		done <- result{msg: msg, err: err}
	}()

	select {
	case <-ctx.Done():
		return &DeliveryError{Provider: p.Name(), Detail: ctx.Err().Error()}
	case res := <-done:
		if res.err != nil {
			return &DeliveryError{Provider: p.Name(), Detail: res.err.Error()}
		}
		return checkTwilioMessage(res.msg)
	}
}

func checkTwilioMessage(msg *twilioapi.ApiV2010Message) error {
	if msg == nil {
		return &DeliveryError{Provider: "twilio", Detail: "empty response"}
	}
	if msg.ErrorCode != nil && *msg.ErrorCode != 0 {
		detail := fmt.Sprintf("error code %d", *msg.ErrorCode)
		if msg.ErrorMessage != nil {
			detail += ": " + *msg.ErrorMessage
		}
		return &DeliveryError{Provider: "twilio", Detail: detail}
	}
	if msg.Status != nil {
		switch strings.ToLower(*msg.Status) {
		case "failed", "undelivered", "canceled":
			return &DeliveryError{Provider: "twilio", Detail: "message " + *msg.Status}
		}
	}
	return nil
}
