package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/wattrewards/wattrewards/internal/auth"
)

type tokenFixture struct {
	svc *iauth.TokenService
	now time.Time
}

func newTokenFixture(t *testing.T) *tokenFixture {
	t.Helper()
	f := &tokenFixture{now: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
	svc, err := iauth.NewTokenService(iauth.TokenConfig{
		Secret: "middleware-secret",
		Issuer: "wattrewards-test",
		TTL:    time.Minute,
		Clock:  func() time.Time { return f.now },
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *tokenFixture) issue(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := f.svc.Issue(iauth.Principal{UserID: userID, Role: role})
	require.NoError(t, err)
	return token
}

func callWith(r http.Handler, method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRejectsMissingOrMalformedTokens(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newTokenFixture(t)
	valid := f.issue(t, "electrician-1", "")

	r := gin.New()
	r.GET("/secure", Auth(f.svc), func(c *gin.Context) { c.Status(http.StatusOK) })

	for name, header := range map[string]string{
		"missing":      "",
		"garbage":      "Bearer not-a-token",
		"wrong scheme": "Basic " + valid,
		"no separator": "Bearer" + valid,
	} {
		h := map[string]string{}
		if header != "" {
			h["Authorization"] = header
		}
		w := callWith(r, http.MethodGet, "/secure", h)
		require.Equal(t, http.StatusUnauthorized, w.Code, name)
		require.Equal(t, `Bearer realm="wattrewards"`, w.Header().Get("WWW-Authenticate"), name)
	}
}

func TestAuthStoresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newTokenFixture(t)

	r := gin.New()
	r.GET("/secure", Auth(f.svc), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString(CtxUserIDKey),
			"role":    c.GetString(CtxRoleKey),
		})
	})

	w := callWith(r, http.MethodGet, "/secure", map[string]string{
		"Authorization": "bearer " + f.issue(t, "electrician-1", ""),
	})
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, "electrician-1", payload["user_id"])
	require.Equal(t, iauth.RoleElectrician, payload["role"])
}

func TestAuthQueryTokenOnlyForWebsocketUpgrade(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newTokenFixture(t)
	token := f.issue(t, "electrician-9", "")

	r := gin.New()
	r.GET("/stream", Auth(f.svc), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CtxUserIDKey))
	})

	w := callWith(r, http.MethodGet, "/stream?access_token="+token, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = callWith(r, http.MethodGet, "/stream?access_token="+token, map[string]string{"Upgrade": "websocket"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "electrician-9", w.Body.String())
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newTokenFixture(t)

	r := gin.New()
	r.POST("/admin", Auth(f.svc), RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.POST("/unguarded", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusCreated) })

	cases := []struct {
		target string
		token  string
		want   int
	}{
		{target: "/admin", token: f.issue(t, "electrician-1", ""), want: http.StatusForbidden},
		{target: "/admin", token: f.issue(t, "ops-1", iauth.RoleAdmin), want: http.StatusCreated},
		{target: "/unguarded", want: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		h := map[string]string{}
		if tc.token != "" {
			h["Authorization"] = "Bearer " + tc.token
		}
		w := callWith(r, http.MethodPost, tc.target, h)
		require.Equal(t, tc.want, w.Code, tc.target)
	}
}

func TestAuthReportsExpiredSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newTokenFixture(t)
	token := f.issue(t, "electrician-7", "")
	f.now = f.now.Add(time.Hour)

	r := gin.New()
	r.GET("/secure", Auth(f.svc), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := callWith(r, http.MethodGet, "/secure", map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "Session expired, please sign in again", body.Message)
}
