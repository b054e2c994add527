package push

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/require"
)

type stubFCMClient struct {
	sent []*messaging.Message
	err  error
}

func (s *stubFCMClient) Send(_ context.Context, message *messaging.Message) (string, error) {
	s.sent = append(s.sent, message)
	if s.err != nil {
		return "", s.err
	}
	return "projects/p/messages/1", nil
}

func TestInvalidTokenError(t *testing.T) {
	err := InvalidTokenError(errors.New("registration-token-not-registered"))
	require.True(t, IsInvalidToken(err))
	require.Contains(t, err.Error(), "registration-token-not-registered")

	require.False(t, IsInvalidToken(errors.New("timeout")))
	require.True(t, IsInvalidToken(InvalidTokenError(nil)))
}

func TestFCMSenderBuildsMessage(t *testing.T) {
	stub := &stubFCMClient{}
	sender := &FCMSender{client: stub}

	err := sender.Send(context.Background(), "device-token", Message{
		Title:        "Points credited",
		Body:         "You earned 120 points",
		Data:         map[string]string{"notificationId": "n-1"},
		HighPriority: true,
	})
	require.NoError(t, err)
	require.Len(t, stub.sent, 1)

	msg := stub.sent[0]
	require.Equal(t, "device-token", msg.Token)
	require.Equal(t, "Points credited", msg.Notification.Title)
	require.Equal(t, "n-1", msg.Data["notificationId"])
	require.Equal(t, "high", msg.Android.Priority)
	require.Equal(t, "10", msg.APNS.Headers["apns-priority"])
}

func TestFCMSenderTransientErrorKeepsToken(t *testing.T) {
	sender := &FCMSender{client: &stubFCMClient{err: errors.New("connection reset")}}

	err := sender.Send(context.Background(), "device-token", Message{Title: "t"})
	require.Error(t, err)
	require.False(t, IsInvalidToken(err))
}

func TestFCMSenderRejectsEmptyToken(t *testing.T) {
	stub := &stubFCMClient{}
	sender := &FCMSender{client: stub}

	err := sender.Send(context.Background(), "  ", Message{Title: "t"})
	require.True(t, IsInvalidToken(err))
	require.Empty(t, stub.sent)
}

func TestLogSenderAlwaysSucceeds(t *testing.T) {
	require.NoError(t, NewLogSender().Send(context.Background(), "abcdefghijkl", Message{Title: "hi"}))
	require.Equal(t, "ghijkl", tokenSuffix("abcdefghijkl"))
	require.Equal(t, "abc", tokenSuffix("abc"))
}

func TestReservedDataKey(t *testing.T) {
	for key, reserved := range map[string]bool{
		"from":           true,
		"Notification":   true,
		"message_type":   true,
		"google.c.a.e":   true,
		"gcm.notif":      true,
		"":               true,
		"notificationId": false,
		"points":         false,
	} {
		require.Equal(t, reserved, ReservedDataKey(key), key)
	}
	require.Nil(t, PayloadData(map[string]string{"from": "shop"}))
}

func TestCleanImageURL(t *testing.T) {
	require.Equal(t, "https://cdn.wattrewards.in/p.png", CleanImageURL("https://cdn.wattrewards.in/p.png"))
	require.Empty(t, CleanImageURL("not a url"))
	require.Empty(t, CleanImageURL("ftp://cdn.wattrewards.in/p.png"))
	require.Empty(t, CleanImageURL("/relative/p.png"))
}
