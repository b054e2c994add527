package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/wattrewards/wattrewards/internal/api"
	"github.com/wattrewards/wattrewards/internal/app"
	iauth "github.com/wattrewards/wattrewards/internal/auth"
	sharedtestutil "github.com/wattrewards/wattrewards/internal/database/testutil"
	"github.com/wattrewards/wattrewards/internal/middleware"
	"github.com/wattrewards/wattrewards/internal/otp"
	"github.com/wattrewards/wattrewards/internal/push"
	"github.com/wattrewards/wattrewards/internal/realtime"
	"github.com/wattrewards/wattrewards/internal/services"
	"github.com/wattrewards/wattrewards/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T             *testing.T
	DB            *gorm.DB
	Router        *gin.Engine
	JWT           *iauth.TokenService
	Hub           *realtime.Hub
	Notifications *services.NotificationService
	Notifier      *services.Notifier
	Devices       *services.DeviceService
	OTP           *services.OTPService
	// LocalOTP is the only delivery channel, so tests can read issued codes.
	LocalOTP *RecordingOTP
	Push     *RecordingSender
	Clock    *Clock
}

// Clock is a settable time source shared by every service in the Env.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// RecordingOTP is a code delivery channel that remembers the last code per phone.
type RecordingOTP struct {
	mu    sync.Mutex
	codes map[string]string
}

// Name reports the channel name used by the local fallback.
func (p *RecordingOTP) Name() string { return "local" }

// Send records code for phoneNumber.
func (p *RecordingOTP) Send(_ context.Context, phoneNumber, code string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.codes == nil {
		p.codes = make(map[string]string)
	}
	p.codes[phoneNumber] = code
	return nil
}

// LastCode returns the most recent code sent to phoneNumber.
func (p *RecordingOTP) LastCode(phoneNumber string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	code, ok := p.codes[phoneNumber]
	return code, ok
}

// RecordingSender is a push sender that records every delivery.
type RecordingSender struct {
	mu   sync.Mutex
	sent map[string][]push.Message
}

// Send records msg against token.
func (s *RecordingSender) Send(_ context.Context, token string, msg push.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent == nil {
		s.sent = make(map[string][]push.Message)
	}
	s.sent[token] = append(s.sent[token], msg)
	return nil
}

// SentTo returns the messages delivered to token.
func (s *RecordingSender) SentTo(token string) []push.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]push.Message(nil), s.sent[token]...)
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t)
	clock := &Clock{current: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}

	jwtSvc, err := iauth.NewTokenService(iauth.TokenConfig{
		Secret: "test-suite-super-secret-key-32-bytes!!",
		Issuer: "test-suite",
		TTL:    time.Hour,
	})
	require.NoError(t, err)

	hub := realtime.NewHub()

	notifications, err := services.NewNotificationService(db, hub, services.WithNotificationClock(clock.Now))
	require.NoError(t, err)

	devices, err := services.NewDeviceService(db, services.WithDeviceClock(clock.Now))
	require.NoError(t, err)

	sender := &RecordingSender{}
	dispatcher, err := services.NewDispatchService(devices, sender, services.WithDispatchTimeout(2*time.Second))
	require.NoError(t, err)

	notifier, err := services.NewNotifier(notifications, dispatcher)
	require.NoError(t, err)

	codes, err := otp.NewGormCodeStore(db)
	require.NoError(t, err)

	rateStore := middleware.NewMemoryRateStore(middleware.WithRateClock(clock.Now))

	local := &RecordingOTP{}
	otpSvc, err := services.NewOTPService(codes, []otp.Provider{local}, services.OTPServiceConfig{
		CodeTTL:         15 * time.Minute,
		ProviderTimeout: 2 * time.Second,
		CountryCode:     "+91",
		HashCost:        bcrypt.MinCost,
		Throttle:        services.OTPThrottle{Window: time.Hour, MaxRequests: 3},
	},
		services.WithOTPClock(clock.Now),
		services.WithOTPRateCounter(rateStore),
	)
	require.NoError(t, err)

	cfg := &app.Config{
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
		},
	}

	router, err := api.NewRouter(cfg, api.Dependencies{
		DB:            db,
		JWT:           jwtSvc,
		Notifications: notifications,
		Notifier:      notifier,
		Devices:       devices,
		OTP:           otpSvc,
		Hub:           hub,
	})
	require.NoError(t, err)

	return &Env{
		T:             t,
		DB:            db,
		Router:        router,
		JWT:           jwtSvc,
		Hub:           hub,
		Notifications: notifications,
		Notifier:      notifier,
		Devices:       devices,
		OTP:           otpSvc,
		LocalOTP:      local,
		Push:          sender,
		Clock:         clock,
	}
}

// Token issues an access token for userID with the given role.
func (e *Env) Token(userID, role string) string {
	e.T.Helper()
	token, err := e.JWT.Issue(iauth.Principal{UserID: userID, Role: role})
	require.NoError(e.T, err)
	return token
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success    bool                 `json:"success"`
	Message    string               `json:"message"`
	Data       json.RawMessage      `json:"data"`
	Count      *int64               `json:"count"`
	Pagination *response.Pagination `json:"pagination"`
	Error      *response.ErrorInfo  `json:"error"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	buf := bytes.NewBuffer(nil)
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			data, err := json.Marshal(body)
			require.NoError(e.T, err)
			buf.Write(data)
		}
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
