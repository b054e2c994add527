package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wattrewards/wattrewards/internal/otp"
	"github.com/wattrewards/wattrewards/pkg/crypto"
	apperrors "github.com/wattrewards/wattrewards/pkg/errors"
	"github.com/wattrewards/wattrewards/pkg/logger"
	"github.com/wattrewards/wattrewards/pkg/metrics"
)

const (
	defaultOTPCodeTTL         = 15 * time.Minute
	defaultOTPProviderTimeout = 10 * time.Second
)

// VerifyResult is the outcome of checking a submitted code.
type VerifyResult string

const (
	VerifyResultVerified VerifyResult = "verified"
	VerifyResultInvalid  VerifyResult = "invalid"
	VerifyResultExpired  VerifyResult = "expired"
	VerifyResultNotFound VerifyResult = "not_found"
)

// RateCounter counts events per key inside a fixed window.
type RateCounter interface {
	Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error)
}

// OTPThrottle limits how many codes one phone number may request per window.
// A zero MaxRequests disables the limit.
type OTPThrottle struct {
	Window      time.Duration
	MaxRequests int
}

// OTPServiceConfig configures code lifetime and channel behaviour.
type OTPServiceConfig struct {
	CodeTTL         time.Duration
	ProviderTimeout time.Duration
	CountryCode     string
	HashCost        int
	Throttle        OTPThrottle
}

// SendCodeResult reports which channel delivered the code.
type SendCodeResult struct {
	PhoneNumber string    `json:"phoneNumber"`
	ChannelUsed string    `json:"channelUsed"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// OTPOption customises an OTPService.
type OTPOption func(*OTPService)

// WithOTPClock overrides the clock used for issuing and expiring codes.
func WithOTPClock(now func() time.Time) OTPOption {
	return func(s *OTPService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithOTPGenerator overrides the code generator.
func WithOTPGenerator(generator otp.Generator) OTPOption {
	return func(s *OTPService) {
		if generator != nil {
			s.generator = generator
		}
	}
}

// WithOTPRateCounter enables the per-phone throttle backed by counter.
func WithOTPRateCounter(counter RateCounter) OTPOption {
	return func(s *OTPService) {
		s.counter = counter
	}
}

// OTPService issues and verifies phone verification codes over an ordered
// list of delivery channels. The first channel that succeeds wins.
type OTPService struct {
	store     otp.CodeStore
	providers []otp.Provider
	generator otp.Generator
	counter   RateCounter
	cfg       OTPServiceConfig
	now       func() time.Time
	log       *zap.Logger
}

// NewOTPService constructs an OTPService. providers are tried in order.
func NewOTPService(store otp.CodeStore, providers []otp.Provider, cfg OTPServiceConfig, opts ...OTPOption) (*OTPService, error) {
	if store == nil {
		return nil, errors.New("otp service: code store is required")
	}
	if len(providers) == 0 {
		return nil, errors.New("otp service: at least one provider is required")
	}
	for i, provider := range providers {
		if provider == nil {
			return nil, fmt.Errorf("otp service: provider %d is nil", i)
		}
	}

	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = defaultOTPCodeTTL
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = defaultOTPProviderTimeout
	}
	if cfg.CountryCode == "" {
		cfg.CountryCode = otp.DefaultCountryCode
	}

	svc := &OTPService{
		store:     store,
		providers: append([]otp.Provider(nil), providers...),
		generator: otp.NewHOTPGenerator(),
		cfg:       cfg,
		now:       time.Now,
		log:       logger.WithModule("otp"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Channels returns the provider names in the order they are tried.
func (s *OTPService) Channels() []string {
	names := make([]string, 0, len(s.providers))
	for _, provider := range s.providers {
		names = append(names, provider.Name())
	}
	return names
}

// SendCode issues a fresh code, replacing any active one once delivery succeeds.
func (s *OTPService) SendCode(ctx context.Context, phoneNumber string) (*SendCodeResult, error) {
	ctx = ensureContext(ctx)

	phone, err := s.normalize(phoneNumber)
	if err != nil {
		return nil, err
	}
	if err := s.throttle(ctx, phone); err != nil {
		return nil, err
	}
	return s.issue(ctx, phone)
}

// ResendCode invalidates the active code unconditionally and restarts the channel list.
func (s *OTPService) ResendCode(ctx context.Context, phoneNumber string) (*SendCodeResult, error) {
	ctx = ensureContext(ctx)

	phone, err := s.normalize(phoneNumber)
	if err != nil {
		return nil, err
	}
	if err := s.throttle(ctx, phone); err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, phone); err != nil {
		return nil, fmt.Errorf("otp service: invalidate code: %w", err)
	}
	return s.issue(ctx, phone)
}

// VerifyCode checks code against the active code for the number. A matching
// code is consumed; an expired one is removed.
func (s *OTPService) VerifyCode(ctx context.Context, phoneNumber, code string) (VerifyResult, error) {
	ctx = ensureContext(ctx)

	phone, err := s.normalize(phoneNumber)
	if err != nil {
		return "", err
	}

	result, err := s.verify(ctx, phone, strings.TrimSpace(code))
	if err != nil {
		return "", err
	}
	metrics.OTPVerifications.WithLabelValues(string(result)).Inc()
	return result, nil
}

func (s *OTPService) verify(ctx context.Context, phone, code string) (VerifyResult, error) {
	record, err := s.store.Get(ctx, phone)
	if errors.Is(err, otp.ErrCodeNotFound) {
		return VerifyResultNotFound, nil
	}
	if err != nil {
		return "", fmt.Errorf("otp service: load code: %w", err)
	}

	if s.now().After(record.ExpiresAt) {
		if err := s.store.Delete(ctx, phone); err != nil {
			s.log.Warn("failed to remove expired code", zap.String("phone", logger.MaskPhone(phone)), zap.Error(err))
		}
		return VerifyResultExpired, nil
	}

	if !otp.IsWellFormedCode(code) || !crypto.VerifySecret(record.CodeHash, code) {
		return VerifyResultInvalid, nil
	}

	consumed, err := s.store.Consume(ctx, phone, record.CodeHash)
	if err != nil {
		return "", fmt.Errorf("otp service: consume code: %w", err)
	}
	if !consumed {
		// Replaced or consumed by a concurrent request.
		return VerifyResultNotFound, nil
	}
	return VerifyResultVerified, nil
}

func (s *OTPService) issue(ctx context.Context, phone string) (*SendCodeResult, error) {
	code, err := s.generator.Generate()
	if err != nil {
		return nil, fmt.Errorf("otp service: generate code: %w", err)
	}
	hash, err := crypto.HashSecret(code, s.cfg.HashCost)
	if err != nil {
		return nil, fmt.Errorf("otp service: hash code: %w", err)
	}

	channel, err := s.deliver(ctx, phone, code)
	if err != nil {
		return nil, err
	}

	issuedAt := s.now().UTC()
	record := otp.CodeRecord{
		PhoneNumber: phone,
		CodeHash:    hash,
		IssuedAt:    issuedAt,
		ExpiresAt:   issuedAt.Add(s.cfg.CodeTTL),
	}
	if err := s.store.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("otp service: store code: %w", err)
	}

	s.log.Info("verification code issued",
		zap.String("phone", logger.MaskPhone(phone)),
		zap.String("channel", channel),
	)
	return &SendCodeResult{
		PhoneNumber: phone,
		ChannelUsed: channel,
		ExpiresAt:   record.ExpiresAt,
	}, nil
}

// deliver walks the providers in order and stops at the first success.
func (s *OTPService) deliver(ctx context.Context, phone, code string) (string, error) {
	var errs error
	for _, provider := range s.providers {
		name := provider.Name()
		err := callWithTimeout(ctx, s.cfg.ProviderTimeout, func(ctx context.Context) error {
			return provider.Send(ctx, phone, code)
		})
		if err == nil {
			metrics.OTPChannelAttempts.WithLabelValues(name, "success").Inc()
			return name, nil
		}

		metrics.OTPChannelAttempts.WithLabelValues(name, "failure").Inc()
		s.log.Warn("otp channel failed, trying next",
			zap.String("channel", name),
			zap.String("phone", logger.MaskPhone(phone)),
			zap.Error(err),
		)
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))

		if ctx.Err() != nil {
			break
		}
	}

	s.log.Error("all otp channels failed", zap.String("phone", logger.MaskPhone(phone)), zap.Error(errs))
	return "", apperrors.ErrProvider.WithInternal(errs)
}

func (s *OTPService) throttle(ctx context.Context, phone string) error {
	limit := s.cfg.Throttle
	if s.counter == nil || limit.MaxRequests <= 0 || limit.Window <= 0 {
		return nil
	}

	count, ttl, err := s.counter.Increment(ctx, "otp:phone:"+phone, limit.Window)
	if err != nil {
		s.log.Warn("otp throttle unavailable", zap.String("phone", logger.MaskPhone(phone)), zap.Error(err))
		return nil
	}
	if count <= limit.MaxRequests {
		return nil
	}

	metrics.RateLimitRejections.WithLabelValues("otp_phone").Inc()
	if ttl <= 0 {
		ttl = limit.Window
	}
	minutes := int(math.Ceil(ttl.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	unit := "minutes"
	if minutes == 1 {
		unit = "minute"
	}
	return apperrors.NewRateLimit(fmt.Sprintf("Too many verification requests. Please try again in %d %s.", minutes, unit), ttl)
}

func (s *OTPService) normalize(phoneNumber string) (string, error) {
	if strings.TrimSpace(phoneNumber) == "" {
		return "", apperrors.NewValidation("phoneNumber is required", apperrors.FieldError{Field: "phoneNumber", Message: "is required"})
	}
	phone, err := otp.NormalizePhone(phoneNumber, s.cfg.CountryCode)
	if err != nil {
		return "", apperrors.NewValidation("phoneNumber must be a valid phone number", apperrors.FieldError{Field: "phoneNumber", Message: "must be a valid phone number"})
	}
	return phone, nil
}
