package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/wattrewards/wattrewards/internal/models"
	"github.com/wattrewards/wattrewards/internal/push"
)

func TestDispatchServiceFanOut(t *testing.T) {
	devices, _ := newDeviceServiceForTest(t)
	ctx := context.Background()

	for _, token := range []string{"tok-ok", "tok-dead", "tok-flaky", "tok-slow"} {
		_, err := devices.Register(ctx, RegisterDeviceInput{UserID: "user-1", Token: token, Platform: models.DevicePlatformAndroid})
		require.NoError(t, err)
	}

	sender := newFakeSender()
	sender.errs["tok-dead"] = push.InvalidTokenError(errors.New("registration-token-not-registered"))
	sender.errs["tok-flaky"] = errors.New("service unavailable")
	sender.block["tok-slow"] = true

	svc, err := NewDispatchService(devices, sender, WithDispatchTimeout(50*time.Millisecond))
	require.NoError(t, err)

	result, err := svc.Dispatch(ctx, "user-1", DispatchPayload{
		NotificationID: "n-1",
		Title:          "Points credited",
		Message:        "500 points added",
		Type:           models.NotificationTypeSuccess,
		Priority:       models.NotificationPriorityUrgent,
		Data:           NotificationData{"points": 500, "scheme": "monsoon"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"tok-ok"}, result.Delivered)
	require.ElementsMatch(t, []string{"tok-dead", "tok-flaky", "tok-slow"}, result.Failed)

	msg, ok := sender.sentTo("tok-ok")
	require.True(t, ok)
	require.True(t, msg.HighPriority)
	require.Equal(t, "500", msg.Data["points"])
	require.Equal(t, "monsoon", msg.Data["scheme"])
	require.Equal(t, "n-1", msg.Data["notificationId"])

	remaining, err := devices.Tokens(ctx, "user-1")
	require.NoError(t, err)
	var tokens []string
	for _, device := range remaining {
		tokens = append(tokens, device.Token)
	}
	require.ElementsMatch(t, []string{"tok-ok", "tok-flaky", "tok-slow"}, tokens)
}

func TestDispatchServiceNoDevices(t *testing.T) {
	devices, _ := newDeviceServiceForTest(t)
	svc, err := NewDispatchService(devices, newFakeSender())
	require.NoError(t, err)

	result, err := svc.Dispatch(context.Background(), "nobody", DispatchPayload{Title: "t", Message: "m"})
	require.NoError(t, err)
	require.Empty(t, result.Delivered)
	require.Empty(t, result.Failed)
}

func TestNewDispatchServiceRequiresDependencies(t *testing.T) {
	_, err := NewDispatchService(nil, newFakeSender())
	require.Error(t, err)

	devices, _ := newDeviceServiceForTest(t)
	_, err = NewDispatchService(devices, nil)
	require.Error(t, err)
}

func TestStringifyValue(t *testing.T) {
	require.Equal(t, "", stringifyValue(nil))
	require.Equal(t, "plain", stringifyValue("plain"))
	require.Equal(t, "true", stringifyValue(true))
	require.Equal(t, `{"tier":"gold"}`, stringifyValue(map[string]string{"tier": "gold"}))
}

type failingDispatcher struct{ calls int }

func (d *failingDispatcher) Dispatch(context.Context, string, DispatchPayload) (*DispatchResult, error) {
	d.calls++
	return nil, errors.New("registry offline")
}

func TestNotifierDispatchFailureKeepsNotification(t *testing.T) {
	notifications, _, _ := newNotificationServiceForTest(t)
	dispatcher := &failingDispatcher{}
	notifier, err := NewNotifier(notifications, dispatcher)
	require.NoError(t, err)

	ctx := context.Background()
	dto, result, err := notifier.Notify(ctx, NotifyInput{
		CreateNotificationInput: CreateNotificationInput{RecipientID: "user-1", Title: "t", Message: "m"},
		SendPush:                true,
	})
	require.NoError(t, err)
	require.Nil(t, result)
	require.Equal(t, 1, dispatcher.calls)

	stored, err := notifications.Get(ctx, dto.ID)
	require.NoError(t, err)
	require.Equal(t, models.NotificationStatusUnread, stored.Status)
}

func TestNotifierPushesToDevices(t *testing.T) {
	notifications, _, _ := newNotificationServiceForTest(t)
	devices, _ := newDeviceServiceForTest(t)
	ctx := context.Background()
	_, err := devices.Register(ctx, RegisterDeviceInput{UserID: "user-1", Token: "tok", Platform: models.DevicePlatformIOS})
	require.NoError(t, err)

	sender := newFakeSender()
	dispatcher, err := NewDispatchService(devices, sender)
	require.NoError(t, err)
	notifier, err := NewNotifier(notifications, dispatcher)
	require.NoError(t, err)

	dto, result, err := notifier.Notify(ctx, NotifyInput{
		CreateNotificationInput: CreateNotificationInput{RecipientID: "user-1", Title: "Redeemed", Message: "Voucher on its way"},
		SendPush:                true,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"tok"}, result.Delivered)

	msg, ok := sender.sentTo("tok")
	require.True(t, ok)
	require.Equal(t, dto.ID, msg.Data["notificationId"])

	_, result, err = notifier.Notify(ctx, NotifyInput{
		CreateNotificationInput: CreateNotificationInput{RecipientID: "user-1", Title: "Quiet", Message: "In-app only"},
	})
	require.NoError(t, err)
	require.Nil(t, result)

	_, _, err = notifier.Notify(ctx, NotifyInput{CreateNotificationInput: CreateNotificationInput{RecipientID: "user-1"}})
	require.Error(t, err)
}

func TestDispatchServicePayloadRejectionKeepsTokens(t *testing.T) {
	devices, _ := newDeviceServiceForTest(t)
	ctx := context.Background()
	for _, token := range []string{"tok-phone", "tok-stale"} {
		_, err := devices.Register(ctx, RegisterDeviceInput{UserID: "user-1", Token: token, Platform: models.DevicePlatformAndroid})
		require.NoError(t, err)
	}

	var (
		mu      sync.Mutex
		gotData = map[string]map[string]string{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Message struct {
				Token string            `json:"token"`
				Data  map[string]string `json:"data"`
			} `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		gotData[req.Message.Token] = req.Message.Data
		mu.Unlock()

		message := "Invalid value at 'message.data[0].value' (TYPE_STRING)"
		if req.Message.Token == "tok-stale" {
			message = "The registration token is not a valid FCM registration token"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = fmt.Fprintf(w, `{"error":{"code":400,"message":%q,"status":"INVALID_ARGUMENT","details":[{"@type":"type.googleapis.com/google.firebase.fcm.v1.FcmError","errorCode":"INVALID_ARGUMENT"}]}}`, message)
	}))
	t.Cleanup(srv.Close)

	sender, err := push.NewFCMSender(ctx, push.FCMConfig{ProjectID: "wattrewards-test"},
		option.WithEndpoint(srv.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	svc, err := NewDispatchService(devices, sender, WithDispatchTimeout(5*time.Second))
	require.NoError(t, err)

	result, err := svc.Dispatch(ctx, "user-1", DispatchPayload{
		NotificationID: "n-1",
		Title:          "Scheme unlocked",
		Message:        "Monsoon bonus is live",
		ImageURL:       "::not-a-url",
		Data:           NotificationData{"from": "shop", "google.x": "1", "scheme": "monsoon"},
	})
	require.NoError(t, err)
	require.Empty(t, result.Delivered)
	require.ElementsMatch(t, []string{"tok-phone", "tok-stale"}, result.Failed)

	mu.Lock()
	sent := gotData["tok-phone"]
	mu.Unlock()
	require.Equal(t, "monsoon", sent["scheme"])
	require.NotContains(t, sent, "from")
	require.NotContains(t, sent, "google.x")

	remaining, err := devices.Tokens(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, "tok-phone", remaining[0].Token)
}

func TestBuildPushMessageDropsReservedKeys(t *testing.T) {
	msg := buildPushMessage(DispatchPayload{
		NotificationID: "n-1",
		ImageURL:       "javascript:alert(1)",
		Data:           NotificationData{"from": "shop", "gcm.n.e": 1, "points": 20},
	})
	require.Empty(t, msg.ImageURL)
	require.Equal(t, map[string]string{"points": "20", "notificationId": "n-1"}, msg.Data)
}
