package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func headersRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/api/notifications", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func doRequest(r http.Handler, method string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/notifications", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORSOpenByDefault(t *testing.T) {
	r := headersRouter(CORS())

	preflight := doRequest(r, http.MethodOptions, map[string]string{"Origin": "https://app.wattrewards.in"})
	require.Equal(t, http.StatusNoContent, preflight.Code)
	require.Equal(t, "*", preflight.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, preflight.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
	require.Contains(t, preflight.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	require.Contains(t, preflight.Header().Get("Access-Control-Allow-Headers"), HeaderRequestID)

	w := doRequest(r, http.MethodGet, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, HeaderRequestID, w.Header().Get("Access-Control-Expose-Headers"))
}

func TestCORSAllowList(t *testing.T) {
	r := headersRouter(CORS(" https://admin.wattrewards.in/ ", ""))

	cases := []struct {
		origin string
		want   string
	}{
		{origin: "https://admin.wattrewards.in", want: "https://admin.wattrewards.in"},
		{origin: "https://evil.example.com", want: ""},
		{origin: "", want: ""},
	}
	for _, tc := range cases {
		w := doRequest(r, http.MethodGet, map[string]string{"Origin": tc.origin})
		require.Equal(t, http.StatusOK, w.Code, tc.origin)
		require.Equal(t, tc.want, w.Header().Get("Access-Control-Allow-Origin"), tc.origin)
		require.Equal(t, "Origin", w.Header().Get("Vary"))
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := headersRouter(SecurityHeaders())

	w := doRequest(r, http.MethodGet, map[string]string{"X-Forwarded-Proto": "HTTPS"})
	require.Equal(t, http.StatusOK, w.Code)
	for name, want := range map[string]string{
		"X-Frame-Options":           "DENY",
		"X-Content-Type-Options":    "nosniff",
		"Referrer-Policy":           "no-referrer",
		"Cache-Control":             "no-store",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	} {
		require.Equal(t, want, w.Header().Get(name), name)
	}
	require.Contains(t, w.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")

	plain := doRequest(r, http.MethodGet, nil)
	require.Empty(t, plain.Header().Get("Strict-Transport-Security"))
}
