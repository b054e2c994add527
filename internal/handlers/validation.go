package handlers

import (
	stderrors "errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/wattrewards/wattrewards/pkg/errors"
	"github.com/wattrewards/wattrewards/pkg/response"
	appValidator "github.com/wattrewards/wattrewards/pkg/validator"
)

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When validation fails, an error response is automatically written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewValidation("invalid JSON payload"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		fields := fieldErrors(err)
		response.Error(c, appErrors.NewValidation(formatValidationError(fields), fields...))
		return false
	}

	return true
}

func fieldErrors(err error) []appErrors.FieldError {
	var failures appValidator.Errors
	if !stderrors.As(err, &failures) {
		return nil
	}
	fields := make([]appErrors.FieldError, len(failures))
	for i, fe := range failures {
		fields[i] = appErrors.FieldError{Field: fe.Field, Message: fe.Message}
	}
	return fields
}

func formatValidationError(fields []appErrors.FieldError) string {
	if len(fields) == 0 {
		return "invalid request payload"
	}

	messages := make([]string, 0, len(fields))
	for _, field := range fields {
		messages = append(messages, field.Field+" "+field.Message)
	}
	return strings.Join(messages, "; ")
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBoolQuery(c *gin.Context, key string) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(c.Query(key)))
	return err == nil && parsed
}
