// Package validator wraps go-playground/validator with JSON field names and
// human readable messages for API responses.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FieldError is one failed rule on one request field.
type FieldError struct {
	Field   string
	Tag     string
	Param   string
	Message string
}

// Errors is returned by ValidateStruct when any rule fails.
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Field + " " + fe.Message
	}
	return strings.Join(parts, "; ")
}

type registry struct {
	once     sync.Once
	engine   *validator.Validate
	mu       sync.RWMutex
	messages map[string]string
}

var std registry

func (r *registry) init() *validator.Validate {
	r.once.Do(func() {
		r.engine = validator.New(validator.WithRequiredStructEnabled())
		r.engine.RegisterTagNameFunc(jsonFieldName)
		r.messages = map[string]string{}
	})
	return r.engine
}

func (r *registry) register(tag string, fn validator.Func, message string) error {
	if err := r.engine.RegisterValidation(tag, fn); err != nil {
		return err
	}
	r.mu.Lock()
	r.messages[tag] = message
	r.mu.Unlock()
	return nil
}

func (r *registry) describe(fe validator.FieldError) string {
	r.mu.RLock()
	message, ok := r.messages[fe.Tag()]
	r.mu.RUnlock()
	if ok {
		return message
	}

	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "numeric":
		return "must contain digits only"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "url":
		return "must be a valid URL"
	}
	if fe.Param() != "" {
		return fmt.Sprintf("failed validation: %s=%s", fe.Tag(), fe.Param())
	}
	return "failed validation: " + fe.Tag()
}

// ValidateStruct runs the struct's validate tags. Rule failures come back as
// Errors; anything else, such as a non-struct argument, is returned as is.
func ValidateStruct(s any) error {
	err := std.init().Struct(s)
	var failures validator.ValidationErrors
	if !errors.As(err, &failures) {
		return err
	}

	out := make(Errors, len(failures))
	for i, fe := range failures {
		out[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: std.describe(fe),
		}
	}
	return out
}

// Register adds a custom rule together with the message shown when it fails.
func Register(tag string, fn validator.Func, message string) error {
	std.init()
	return std.register(tag, fn, message)
}

func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return field.Name
	}
	return name
}
