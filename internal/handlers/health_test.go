package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/wattrewards/wattrewards/internal/database"
	dbtestutil "github.com/wattrewards/wattrewards/internal/database/testutil"
	"github.com/wattrewards/wattrewards/internal/handlers"
	"github.com/wattrewards/wattrewards/internal/handlers/testutil"
)

func TestHealth(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, testutil.DecodeResponse(t, w).Success)
	require.Contains(t, w.Body.String(), `"database":"ok"`)

	w = env.Request(http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, database.Close(env.DB))

	w = env.Request(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.False(t, testutil.DecodeResponse(t, w).Success)
	require.Contains(t, w.Body.String(), `"database":"unavailable"`)
}

func TestHealthReportsFailingProbe(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := dbtestutil.MustOpenTestDB(t)

	r := gin.New()
	r.GET("/health", handlers.Health(db, handlers.Probe{
		Name:  "redis",
		Check: func(context.Context) error { return errors.New("connection refused") },
	}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), `"redis":"unavailable"`)
	require.Contains(t, w.Body.String(), `"database":"ok"`)
}
