// Package errors defines the error values the API renders to clients.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// FieldError describes a single invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError is an error with a client-safe message and an HTTP status.
// Internal holds the cause for logs and is never rendered.
type AppError struct {
	Code       string
	Message    string
	StatusCode int
	Fields     []FieldError
	RetryAfter time.Duration
	Internal   error
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Internal == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Internal)
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// Is matches on Code so derived copies still satisfy errors.Is against the
// sentinels below.
func (e *AppError) Is(target error) bool {
	other, ok := target.(*AppError)
	return ok && e != nil && other != nil && e.Code == other.Code
}

func (e *AppError) clone() *AppError {
	cpy := *e
	return &cpy
}

// WithInternal returns a copy carrying err as its cause.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}
	cpy := e.clone()
	cpy.Internal = err
	return cpy
}

// WithMessage returns a copy with a different client message.
func (e *AppError) WithMessage(message string) *AppError {
	if e == nil {
		return nil
	}
	cpy := e.clone()
	cpy.Message = message
	return cpy
}

// New defines an error value. Packages use it for their own sentinels.
func New(code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: status}
}

var (
	ErrValidation     = New("VALIDATION_ERROR", "Invalid request", http.StatusBadRequest)
	ErrUnauthorized   = New("UNAUTHORIZED", "Authentication required", http.StatusUnauthorized)
	ErrForbidden      = New("FORBIDDEN", "Permission denied", http.StatusForbidden)
	ErrNotFound       = New("NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrRateLimit      = New("RATE_LIMIT_EXCEEDED", "Too many requests, please slow down", http.StatusTooManyRequests)
	ErrInternalServer = New("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
	ErrProvider       = New("PROVIDER_UNAVAILABLE", "We could not reach the delivery service, please try again shortly", http.StatusBadGateway)
)

// FromError returns the AppError inside err, or ErrInternalServer wrapping it.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServer.WithInternal(err)
}

// NewValidation builds a 400 error with optional per-field detail.
func NewValidation(message string, fields ...FieldError) *AppError {
	cpy := ErrValidation.WithMessage(message)
	cpy.Fields = fields
	return cpy
}

// NewRateLimit builds a 429 error telling the client when to retry.
func NewRateLimit(message string, retryAfter time.Duration) *AppError {
	cpy := ErrRateLimit.WithMessage(message)
	cpy.RetryAfter = retryAfter
	return cpy
}
