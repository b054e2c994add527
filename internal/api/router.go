package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/wattrewards/wattrewards/internal/app"
	iauth "github.com/wattrewards/wattrewards/internal/auth"
	"github.com/wattrewards/wattrewards/internal/cache"
	"github.com/wattrewards/wattrewards/internal/handlers"
	"github.com/wattrewards/wattrewards/internal/middleware"
	"github.com/wattrewards/wattrewards/internal/realtime"
	"github.com/wattrewards/wattrewards/internal/services"
)

// Dependencies carries the services the HTTP layer is built on.
type Dependencies struct {
	DB            *gorm.DB
	JWT           *iauth.TokenService
	Notifications *services.NotificationService
	Notifier      *services.Notifier
	Devices       *services.DeviceService
	OTP           *services.OTPService
	// Hub is optional; without it the notification stream answers 404.
	Hub *realtime.Hub
	// RateStore is optional; without it HTTP rate limiting is disabled.
	RateStore middleware.RateStore
	// Redis is optional; when set /health probes it.
	Redis *cache.RedisClient
}

func (d Dependencies) validate() error {
	switch {
	case d.DB == nil:
		return fmt.Errorf("database handle must be provided")
	case d.JWT == nil:
		return fmt.Errorf("jwt service must be provided")
	case d.Notifications == nil:
		return fmt.Errorf("notification service must be provided")
	case d.Notifier == nil:
		return fmt.Errorf("notifier must be provided")
	case d.Devices == nil:
		return fmt.Errorf("device service must be provided")
	case d.OTP == nil:
		return fmt.Errorf("otp service must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(cfg *app.Config, deps Dependencies) (*gin.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}

	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins...))

	limits := cfg.Server.RateLimit
	if limits.Enabled && deps.RateStore != nil {
		r.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Store:    deps.RateStore,
			Requests: limits.Requests,
			Window:   limits.Window,
		}))
	}

	registerHealthRoutes(r, deps)

	otpHandler, err := handlers.NewOTPHandler(deps.OTP)
	if err != nil {
		return nil, err
	}
	var authLimiter gin.HandlerFunc
	if limits.Enabled && deps.RateStore != nil && limits.AuthRequests > 0 {
		authLimiter = middleware.RateLimit(middleware.RateLimitConfig{
			Store:     deps.RateStore,
			Requests:  limits.AuthRequests,
			Window:    limits.Window,
			KeyPrefix: "ratelimit:auth",
		})
	}
	registerAuthRoutes(r, otpHandler, authLimiter)

	notificationHandler, err := handlers.NewNotificationHandler(deps.Notifications, deps.Notifier, deps.Hub)
	if err != nil {
		return nil, err
	}
	deviceHandler, err := handlers.NewDeviceHandler(deps.Devices)
	if err != nil {
		return nil, err
	}

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.JWT))
	registerNotificationRoutes(api, notificationHandler, deviceHandler)

	if prom := cfg.Monitoring.Prometheus; prom.Enabled {
		endpoint := strings.TrimSpace(prom.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
