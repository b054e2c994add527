package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	appErrors "github.com/wattrewards/wattrewards/pkg/errors"
)

func newContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	return ctx, rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	return raw
}

func TestSuccess(t *testing.T) {
	ctx, rec := newContext(t)
	Success(ctx, http.StatusCreated, gin.H{"id": "n-1"})

	require.Equal(t, http.StatusCreated, rec.Code)
	raw := decode(t, rec)
	require.Equal(t, true, raw["success"])
	require.Equal(t, map[string]any{"id": "n-1"}, raw["data"])
	require.NotContains(t, raw, "error")
}

func TestSuccessWithPagination(t *testing.T) {
	ctx, rec := newContext(t)
	SuccessWithPagination(ctx, http.StatusOK, []string{"a", "b"}, &Pagination{Page: 1, Limit: 10, Total: 20, TotalPages: 2})

	pagination, ok := decode(t, rec)["pagination"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, float64(2), pagination["totalPages"])
	require.Equal(t, float64(20), pagination["total"])
}

func TestCountKeepsZero(t *testing.T) {
	ctx, rec := newContext(t)
	Count(ctx, 0)

	raw := decode(t, rec)
	require.Contains(t, raw, "count")
	require.Equal(t, float64(0), raw["count"])
}

func TestMessage(t *testing.T) {
	ctx, rec := newContext(t)
	Message(ctx, http.StatusOK, "Notification marked as read")

	raw := decode(t, rec)
	require.Equal(t, true, raw["success"])
	require.Equal(t, "Notification marked as read", raw["message"])
}

func TestErrorWithAppError(t *testing.T) {
	ctx, rec := newContext(t)
	Error(ctx, appErrors.NewValidation("title is required", appErrors.FieldError{Field: "title", Message: "is required"}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.Equal(t, "title is required", resp.Message)
	require.Equal(t, appErrors.ErrValidation.Code, resp.Error.Code)
	require.Len(t, resp.Error.Fields, 1)
}

func TestErrorWithGenericErrorHidesDetail(t *testing.T) {
	ctx, rec := newContext(t)
	Error(ctx, errors.New("dial tcp 10.0.0.1:5432: connection refused"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, appErrors.ErrInternalServer.Message, resp.Error.Message)
	require.Len(t, ctx.Errors, 1)
	require.Contains(t, ctx.Errors.String(), "connection refused")
}

func TestErrorSetsRetryAfter(t *testing.T) {
	ctx, rec := newContext(t)
	Error(ctx, appErrors.NewRateLimit("slow down", 90*time.Second+time.Millisecond))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "91", rec.Header().Get("Retry-After"))
}

func TestErrorNil(t *testing.T) {
	ctx, rec := newContext(t)
	Error(ctx, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
