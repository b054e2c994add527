package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the WattRewards backend.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Push          PushConfig          `mapstructure:"push"`
	OTP           OTPConfig           `mapstructure:"otp"`
	Events        EventsConfig        `mapstructure:"events"`
	Monitoring    MonitoringConfig    `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int                 `mapstructure:"port"`
	LogLevel       string              `mapstructure:"log_level"`
	LogFormat      string              `mapstructure:"log_format"`
	RequestTimeout time.Duration       `mapstructure:"request_timeout"`
	AllowedOrigins []string            `mapstructure:"allowed_origins"`
	RateLimit      HTTPRateLimitConfig `mapstructure:"rate_limit"`
}

// HTTPRateLimitConfig limits requests per client IP and route.
type HTTPRateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
	// AuthRequests applies to the unauthenticated /api/auth routes.
	AuthRequests int `mapstructure:"auth_requests"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	Postgres        DBAuthConfig  `mapstructure:"postgres"`
	MySQL           DBAuthConfig  `mapstructure:"mysql"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CacheConfig describes cache backends.
type CacheConfig struct {
	Redis RedisCacheConfig `mapstructure:"redis"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Address   string        `mapstructure:"address"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	TLS       bool          `mapstructure:"tls"`
	Timeout   time.Duration `mapstructure:"timeout"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

// AuthConfig captures authentication settings. Tokens are issued by the
// identity service; this backend only validates them.
type AuthConfig struct {
	JWT JWTSettings `mapstructure:"jwt"`
}

// JWTSettings configures JWT access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// NotificationsConfig tunes the notification store and listing.
type NotificationsConfig struct {
	DefaultLimit  int            `mapstructure:"default_limit"`
	MaxLimit      int            `mapstructure:"max_limit"`
	SweepSchedule string         `mapstructure:"sweep_schedule"`
	Realtime      RealtimeConfig `mapstructure:"realtime"`
}

// RealtimeConfig toggles the websocket notification stream.
type RealtimeConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// PushConfig selects and configures the push provider.
type PushConfig struct {
	// Provider is "fcm" or "log".
	Provider        string        `mapstructure:"provider"`
	ProjectID       string        `mapstructure:"project_id"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// OTPConfig configures phone verification.
type OTPConfig struct {
	CodeTTL         time.Duration `mapstructure:"code_ttl"`
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
	CountryCode     string        `mapstructure:"country_code"`
	// Channels lists provider names in the order they are tried.
	Channels []string `mapstructure:"channels"`
	// Store is "database" or "cache".
	Store     string             `mapstructure:"store"`
	RateLimit OTPRateLimitConfig `mapstructure:"rate_limit"`
	Twilio    TwilioSettings     `mapstructure:"twilio"`
	Infobip   InfobipSettings    `mapstructure:"infobip"`
	Interakt  InteraktSettings   `mapstructure:"interakt"`
}

// OTPRateLimitConfig throttles code requests per phone number.
type OTPRateLimitConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Window      time.Duration `mapstructure:"window"`
	MaxRequests int           `mapstructure:"max_requests"`
}

// TwilioSettings holds Twilio Programmable SMS credentials.
type TwilioSettings struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	From       string `mapstructure:"from"`
}

// InfobipSettings holds Infobip SMS credentials.
type InfobipSettings struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Sender  string `mapstructure:"sender"`
}

// InteraktSettings holds Interakt WhatsApp template credentials.
type InteraktSettings struct {
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	Template     string `mapstructure:"template"`
	LanguageCode string `mapstructure:"language_code"`
}

// EventsConfig configures inbound notification events.
type EventsConfig struct {
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
}

// RabbitMQConfig holds the consumer connection settings.
type RabbitMQConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	URL         string        `mapstructure:"url"`
	Queue       string        `mapstructure:"queue"`
	Prefetch    int           `mapstructure:"prefetch"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// MonitoringConfig enables metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("WATTREWARDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.requests", 300)
	v.SetDefault("server.rate_limit.window", "1m")
	v.SetDefault("server.rate_limit.auth_requests", 20)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/wattrewards.sqlite")

	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.tls", false)
	v.SetDefault("cache.redis.timeout", "5s")
	v.SetDefault("cache.redis.key_prefix", "wattrewards:")

	v.SetDefault("auth.jwt.issuer", "wattrewards")
	v.SetDefault("auth.jwt.access_token_ttl", "15m")

	v.SetDefault("notifications.default_limit", 20)
	v.SetDefault("notifications.max_limit", 100)
	v.SetDefault("notifications.sweep_schedule", "@hourly")
	v.SetDefault("notifications.realtime.enabled", true)

	v.SetDefault("push.provider", "log")
	v.SetDefault("push.timeout", "10s")

	v.SetDefault("otp.code_ttl", "15m")
	v.SetDefault("otp.provider_timeout", "10s")
	v.SetDefault("otp.country_code", "+91")
	v.SetDefault("otp.channels", []string{"twilio", "infobip", "local"})
	v.SetDefault("otp.store", "database")
	v.SetDefault("otp.rate_limit.enabled", true)
	v.SetDefault("otp.rate_limit.window", "1h")
	v.SetDefault("otp.rate_limit.max_requests", 5)
	v.SetDefault("otp.infobip.base_url", "https://api.infobip.com")
	v.SetDefault("otp.interakt.base_url", "https://api.interakt.ai")
	v.SetDefault("otp.interakt.language_code", "en")

	v.SetDefault("events.rabbitmq.enabled", false)
	v.SetDefault("events.rabbitmq.queue", "wattrewards.notifications")
	v.SetDefault("events.rabbitmq.prefetch", 10)
	v.SetDefault("events.rabbitmq.retry_delay", "30s")
	v.SetDefault("events.rabbitmq.max_attempts", 5)

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
