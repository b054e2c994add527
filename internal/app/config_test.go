package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wattrewards/wattrewards/internal/auth"
	"github.com/wattrewards/wattrewards/internal/database"
	"github.com/wattrewards/wattrewards/internal/events"
	"github.com/wattrewards/wattrewards/internal/push"
	"github.com/wattrewards/wattrewards/internal/services"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, 45*time.Second, cfg.Server.RequestTimeout)
	require.Equal(t, []string{"https://app.wattrewards.in"}, cfg.Server.AllowedOrigins)
	require.Equal(t, 120, cfg.Server.RateLimit.Requests)
	require.Equal(t, 30*time.Second, cfg.Server.RateLimit.Window)
	require.Equal(t, 10, cfg.Server.RateLimit.AuthRequests)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)

	require.True(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, "redis.example.com:6380", cfg.Cache.Redis.Address)
	require.Equal(t, 2, cfg.Cache.Redis.DB)
	require.Equal(t, 3*time.Second, cfg.Cache.Redis.Timeout)
	require.Equal(t, "wr:", cfg.Cache.Redis.KeyPrefix)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)

	require.Equal(t, 25, cfg.Notifications.DefaultLimit)
	require.Equal(t, 50, cfg.Notifications.MaxLimit)
	require.Equal(t, "@every 30m", cfg.Notifications.SweepSchedule)
	require.False(t, cfg.Notifications.Realtime.Enabled)

	require.Equal(t, "fcm", cfg.Push.Provider)
	require.Equal(t, "wattrewards-prod", cfg.Push.ProjectID)
	require.Equal(t, 5*time.Second, cfg.Push.Timeout)

	require.Equal(t, 10*time.Minute, cfg.OTP.CodeTTL)
	require.Equal(t, 8*time.Second, cfg.OTP.ProviderTimeout)
	require.Equal(t, []string{"twilio", "interakt", "local"}, cfg.OTP.Channels)
	require.Equal(t, "cache", cfg.OTP.Store)
	require.Equal(t, 3, cfg.OTP.RateLimit.MaxRequests)
	require.Equal(t, "AC123", cfg.OTP.Twilio.AccountSID)
	require.Equal(t, "otp_login", cfg.OTP.Interakt.Template)
	// Defaults survive partial sections.
	require.Equal(t, "+91", cfg.OTP.CountryCode)
	require.Equal(t, "en", cfg.OTP.Interakt.LanguageCode)

	require.True(t, cfg.Events.RabbitMQ.Enabled)
	require.Equal(t, "loyalty.notifications", cfg.Events.RabbitMQ.Queue)
	require.Equal(t, 20, cfg.Events.RabbitMQ.Prefetch)
	require.Equal(t, 45*time.Second, cfg.Events.RabbitMQ.RetryDelay)
	require.Equal(t, 5, cfg.Events.RabbitMQ.MaxAttempts)

	require.False(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.False(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, 20, cfg.Notifications.DefaultLimit)
	require.Equal(t, 100, cfg.Notifications.MaxLimit)
	require.Equal(t, "@hourly", cfg.Notifications.SweepSchedule)
	require.Equal(t, "log", cfg.Push.Provider)
	require.Equal(t, 15*time.Minute, cfg.OTP.CodeTTL)
	require.Equal(t, 10*time.Second, cfg.OTP.ProviderTimeout)
	require.Equal(t, "database", cfg.OTP.Store)
	require.Equal(t, time.Hour, cfg.OTP.RateLimit.Window)
	require.Equal(t, 5, cfg.OTP.RateLimit.MaxRequests)
	require.False(t, cfg.Events.RabbitMQ.Enabled)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("WATTREWARDS_SERVER_PORT", "9191")
	t.Setenv("WATTREWARDS_AUTH_JWT_SECRET", "from-env")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 9191, cfg.Server.Port)
	require.Equal(t, "from-env", cfg.Auth.JWT.Secret)
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := AuthConfig{JWT: JWTSettings{Secret: " secret ", Issuer: "issuer", TTL: 30 * time.Minute}}
	require.Equal(t, auth.TokenConfig{
		Secret: "secret",
		Issuer: "issuer",
		TTL:    30 * time.Minute,
	}, cfg.TokenServiceConfig())

	var empty AuthConfig
	require.Equal(t, auth.DefaultTokenTTL, empty.TokenServiceConfig().TTL)
}

func TestDatabaseConnectionConfig(t *testing.T) {
	cfg := DatabaseConfig{
		Driver: "PostgreSQL",
		Postgres: DBAuthConfig{
			Host: "db", Port: 5432, Database: "wattrewards", Username: "loyalty", Password: "pw",
		},
		MaxOpenConns: 10,
	}
	require.Equal(t, database.Config{
		Driver:       "postgres",
		Host:         "db",
		Port:         5432,
		Name:         "wattrewards",
		User:         "loyalty",
		Password:     "pw",
		MaxOpenConns: 10,
	}, cfg.ConnectionConfig())

	sqlite := DatabaseConfig{Path: "./data/test.sqlite"}.ConnectionConfig()
	require.Equal(t, "sqlite", sqlite.Driver)
	require.Equal(t, "./data/test.sqlite", sqlite.Path)
}

func TestOTPConfigAdapters(t *testing.T) {
	cfg := OTPConfig{
		CodeTTL:         15 * time.Minute,
		ProviderTimeout: 10 * time.Second,
		CountryCode:     "+91",
		Channels:        []string{"Local", "local", ""},
		RateLimit:       OTPRateLimitConfig{Enabled: true, Window: time.Hour, MaxRequests: 5},
	}

	require.Equal(t, services.OTPServiceConfig{
		CodeTTL:         15 * time.Minute,
		ProviderTimeout: 10 * time.Second,
		CountryCode:     "+91",
		Throttle:        services.OTPThrottle{Window: time.Hour, MaxRequests: 5},
	}, cfg.ServiceConfig())

	providers, err := cfg.Providers()
	require.NoError(t, err)
	require.Len(t, providers, 1)
	require.Equal(t, "local", providers[0].Name())

	cfg.RateLimit.Enabled = false
	require.Zero(t, cfg.ServiceConfig().Throttle)
}

func TestOTPConfigProvidersRejectsBadChannels(t *testing.T) {
	_, err := OTPConfig{Channels: []string{"carrier-pigeon"}}.Providers()
	require.ErrorContains(t, err, "unknown channel")

	_, err = OTPConfig{Channels: []string{"twilio"}}.Providers()
	require.ErrorContains(t, err, "twilio")

	_, err = OTPConfig{}.Providers()
	require.Error(t, err)
}

func TestOTPConfigProvidersKeepOrder(t *testing.T) {
	cfg := OTPConfig{
		Channels: []string{"infobip", "interakt", "local"},
		Infobip:  InfobipSettings{BaseURL: "https://api.infobip.com", APIKey: "key"},
		Interakt: InteraktSettings{APIKey: "key", Template: "otp_login"},
	}
	providers, err := cfg.Providers()
	require.NoError(t, err)

	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())
	}
	require.Equal(t, []string{"infobip", "interakt", "local"}, names)
}

func TestPushConfigSender(t *testing.T) {
	sender, err := PushConfig{Provider: "log"}.NewSender(context.Background())
	require.NoError(t, err)
	require.IsType(t, &push.LogSender{}, sender)

	_, err = PushConfig{Provider: "pigeon"}.NewSender(context.Background())
	require.Error(t, err)

	require.Len(t, PushConfig{Timeout: time.Second}.DispatchOptions(), 1)
	require.Empty(t, PushConfig{}.DispatchOptions())
}

func TestEventsConsumerConfig(t *testing.T) {
	cfg := EventsConfig{RabbitMQ: RabbitMQConfig{URL: " amqp://mq ", Queue: "q", Prefetch: 5, RetryDelay: time.Minute, MaxAttempts: 3}}
	require.Equal(t, events.Config{URL: "amqp://mq", Queue: "q", Prefetch: 5, RetryDelay: time.Minute, MaxAttempts: 3}, cfg.ConsumerConfig())
}
