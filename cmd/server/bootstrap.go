package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wattrewards/wattrewards/internal/api"
	"github.com/wattrewards/wattrewards/internal/app"
	"github.com/wattrewards/wattrewards/internal/app/maintenance"
	iauth "github.com/wattrewards/wattrewards/internal/auth"
	"github.com/wattrewards/wattrewards/internal/cache"
	"github.com/wattrewards/wattrewards/internal/database"
	"github.com/wattrewards/wattrewards/internal/events"
	"github.com/wattrewards/wattrewards/internal/middleware"
	"github.com/wattrewards/wattrewards/internal/otp"
	"github.com/wattrewards/wattrewards/internal/realtime"
	"github.com/wattrewards/wattrewards/internal/services"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Redis     *cache.RedisClient
	Hub       *realtime.Hub
	Notifier  *services.Notifier
	Cleaner   *maintenance.Cleaner
	Consumer  *events.Consumer
	RateStore middleware.RateStore
	Router    *gin.Engine
}

// bootstrapRuntime initialises databases, caches, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if !strings.EqualFold(cfg.Server.LogLevel, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg, log)
	if err != nil {
		return nil, err
	}

	dbStore := cache.NewDatabaseStore(stack.DB)
	var shared cache.Store = dbStore

	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisClient(ctx, cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed operations", zap.Error(err))
			stack.Redis = nil
		} else {
			shared = stack.Redis
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	if stack.Redis != nil {
		stack.RateStore = middleware.SharedRateStore(stack.Redis)
	} else {
		stack.RateStore = middleware.SharedRateStore(dbStore)
	}

	jwtSvc, err := iauth.NewTokenService(cfg.Auth.TokenServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	var broadcaster realtime.Broadcaster
	if cfg.Notifications.Realtime.Enabled {
		stack.Hub = realtime.NewHub(realtime.WithAllowedOrigins(cfg.Server.AllowedOrigins...))
		broadcaster = stack.Hub
	}

	notifications, err := services.NewNotificationService(stack.DB, broadcaster, cfg.Notifications.ServiceOptions()...)
	if err != nil {
		return nil, fmt.Errorf("initialise notification service: %w", err)
	}

	devices, err := services.NewDeviceService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise device service: %w", err)
	}

	sender, err := cfg.Push.NewSender(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise push sender: %w", err)
	}
	dispatcher, err := services.NewDispatchService(devices, sender, cfg.Push.DispatchOptions()...)
	if err != nil {
		return nil, fmt.Errorf("initialise dispatch service: %w", err)
	}

	stack.Notifier, err = services.NewNotifier(notifications, dispatcher)
	if err != nil {
		return nil, fmt.Errorf("initialise notifier: %w", err)
	}

	targets := maintenance.Targets{Notifications: notifications, Cache: dbStore}

	var codes otp.CodeStore
	switch strings.ToLower(strings.TrimSpace(cfg.OTP.Store)) {
	case "cache":
		if codes, err = otp.NewCacheCodeStore(shared); err != nil {
			return nil, fmt.Errorf("initialise otp code store: %w", err)
		}
	case "", "database":
		gormCodes, storeErr := otp.NewGormCodeStore(stack.DB)
		if storeErr != nil {
			return nil, fmt.Errorf("initialise otp code store: %w", storeErr)
		}
		codes = gormCodes
		targets.OTPCodes = gormCodes
	default:
		return nil, fmt.Errorf("otp.store must be database or cache, got %q", cfg.OTP.Store)
	}

	providers, err := cfg.OTP.Providers()
	if err != nil {
		return nil, err
	}

	otpSvc, err := services.NewOTPService(codes, providers, cfg.OTP.ServiceConfig(),
		services.WithOTPRateCounter(stack.RateStore),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise otp service: %w", err)
	}
	log.Info("otp channels configured", zap.Strings("channels", otpSvc.Channels()))

	stack.Cleaner = maintenance.NewCleaner(targets, maintenance.WithSchedule(cfg.Notifications.SweepSchedule))
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	if cfg.Events.RabbitMQ.Enabled {
		processor, err := events.NewProcessor(stack.Notifier)
		if err != nil {
			return nil, err
		}
		stack.Consumer, err = events.NewConsumer(cfg.Events.ConsumerConfig(), processor)
		if err != nil {
			return nil, fmt.Errorf("initialise event consumer: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(cfg, api.Dependencies{
		DB:            stack.DB,
		JWT:           jwtSvc,
		Notifications: notifications,
		Notifier:      stack.Notifier,
		Devices:       devices,
		OTP:           otpSvc,
		Hub:           stack.Hub,
		RateStore:     stack.RateStore,
		Redis:         stack.Redis,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		<-stopCtx.Done()
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}
}

func initialiseDatabase(cfg *app.Config, log *zap.Logger) (*gorm.DB, error) {
	conn := cfg.Database.ConnectionConfig()
	db, err := database.Open(conn)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	log.Info("database ready", zap.String("driver", conn.Driver))
	return db, nil
}
