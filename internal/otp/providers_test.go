package otp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wattrewards/wattrewards/pkg/logger"
)

func TestInfobipProviderSend(t *testing.T) {
	var got infobipRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sms/2/text/advanced", r.URL.Path)
		require.Equal(t, "App key-123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"messages":[{"messageId":"m1","status":{"groupName":"PENDING"}}]}`))
	}))
	defer server.Close()

	provider, err := NewInfobipProvider(InfobipConfig{BaseURL: server.URL, APIKey: "key-123", Sender: "WATTRW"})
	require.NoError(t, err)

	require.NoError(t, provider.Send(context.Background(), "+919876543210", "123456"))
	require.Len(t, got.Messages, 1)
	require.Equal(t, "919876543210", got.Messages[0].Destinations[0].To)
	require.Equal(t, "WATTRW", got.Messages[0].From)
	require.Contains(t, got.Messages[0].Text, "123456")
}

func TestInfobipProviderRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"messages":[{"status":{"groupName":"REJECTED","description":"Not enough credits"}}]}`))
	}))
	defer server.Close()

	provider, err := NewInfobipProvider(InfobipConfig{BaseURL: server.URL, APIKey: "k"})
	require.NoError(t, err)

	err = provider.Send(context.Background(), "+919876543210", "123456")
	var deliveryErr *DeliveryError
	require.ErrorAs(t, err, &deliveryErr)
	require.Equal(t, "infobip", deliveryErr.Provider)
	require.Contains(t, deliveryErr.Detail, "credits")
}

func TestInfobipProviderHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"requestError":{"serviceException":{"text":"Invalid login details"}}}`))
	}))
	defer server.Close()

	provider, err := NewInfobipProvider(InfobipConfig{BaseURL: server.URL, APIKey: "k"})
	require.NoError(t, err)

	err = provider.Send(context.Background(), "+919876543210", "123456")
	var deliveryErr *DeliveryError
	require.ErrorAs(t, err, &deliveryErr)
	require.Equal(t, http.StatusUnauthorized, deliveryErr.StatusCode)
}

func TestInfobipProviderHonoursContextTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	provider, err := NewInfobipProvider(InfobipConfig{BaseURL: server.URL, APIKey: "k"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.Error(t, provider.Send(ctx, "+919876543210", "123456"))
}

func TestNewInfobipProviderRequiresCredentials(t *testing.T) {
	_, err := NewInfobipProvider(InfobipConfig{})
	require.Error(t, err)
}

func TestInteraktProviderSend(t *testing.T) {
	var got interaktRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/public/message/", r.URL.Path)
		require.Equal(t, "Basic secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"result":true,"message":"Message created successfully","id":"abc"}`))
	}))
	defer server.Close()

	provider, err := NewInteraktProvider(InteraktConfig{BaseURL: server.URL, APIKey: "secret", Template: "otp_auth", CountryCode: "+91"})
	require.NoError(t, err)

	require.NoError(t, provider.Send(context.Background(), "+919876543210", "654321"))
	require.Equal(t, "+91", got.CountryCode)
	require.Equal(t, "9876543210", got.PhoneNumber)
	require.Equal(t, "Template", got.Type)
	require.Equal(t, "otp_auth", got.Template.Name)
	require.Equal(t, []string{"654321"}, got.Template.BodyValues)
}

func TestInteraktProviderLogicalFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":false,"message":"Template not approved"}`))
	}))
	defer server.Close()

	provider, err := NewInteraktProvider(InteraktConfig{BaseURL: server.URL, APIKey: "secret", Template: "otp_auth"})
	require.NoError(t, err)

	err = provider.Send(context.Background(), "+919876543210", "654321")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Template not approved")
}

type fakeTwilioAPI struct {
	params *twilioapi.CreateMessageParams
	resp   *twilioapi.ApiV2010Message
	err    error
	delay  time.Duration
}

func (f *fakeTwilioAPI) CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error) {
	f.params = params
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.resp, f.err
}

func TestTwilioProviderSend(t *testing.T) {
	status := "queued"
	api := &fakeTwilioAPI{resp: &twilioapi.ApiV2010Message{Status: &status}}
	provider := &TwilioProvider{api: api, from: "+15005550006", codeTTL: 15 * time.Minute}

	require.NoError(t, provider.Send(context.Background(), "+919876543210", "111222"))
	require.Equal(t, "+919876543210", *api.params.To)
	require.Equal(t, "+15005550006", *api.params.From)
	require.Contains(t, *api.params.Body, "111222")
}

func TestTwilioProviderFailures(t *testing.T) {
	failed := "failed"
	code := 21211
	msg := "Invalid 'To' Phone Number"

	cases := []*fakeTwilioAPI{
		{err: errors.New("status: 401")},
		{resp: &twilioapi.ApiV2010Message{Status: &failed}},
		{resp: &twilioapi.ApiV2010Message{ErrorCode: &code, ErrorMessage: &msg}},
		{},
	}
	for _, api := range cases {
		provider := &TwilioProvider{api: api, from: "+15005550006"}
		err := provider.Send(context.Background(), "+919876543210", "111222")
		var deliveryErr *DeliveryError
		require.ErrorAs(t, err, &deliveryErr)
	}
}

func TestTwilioProviderTimeout(t *testing.T) {
	api := &fakeTwilioAPI{delay: 500 * time.Millisecond}
	provider := &TwilioProvider{api: api, from: "+15005550006"}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, provider.Send(ctx, "+919876543210", "111222"))
}

func TestNewTwilioProviderValidation(t *testing.T) {
	_, err := NewTwilioProvider(TwilioConfig{AccountSID: "AC1"})
	require.Error(t, err)
	_, err = NewTwilioProvider(TwilioConfig{AccountSID: "AC1", AuthToken: "tok"})
	require.Error(t, err)

	provider, err := NewTwilioProvider(TwilioConfig{AccountSID: "AC1", AuthToken: "tok", From: "+15005550006"})
	require.NoError(t, err)
	require.Equal(t, "twilio", provider.Name())
}

func TestLocalProviderLogsCode(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	t.Cleanup(logger.Replace(zap.New(core)))

	provider := NewLocalProvider()
	for _, code := range []string{"999000", "123456"} {
		require.NoError(t, provider.Send(context.Background(), "+919876543210", code))
	}

	entries := logs.All()
	require.Len(t, entries, 2)
	fields := entries[1].ContextMap()
	require.Equal(t, "123456", fields["code"])
	require.Equal(t, "*********3210", fields["phone"])
	require.Equal(t, "otp", fields["module"])
}
