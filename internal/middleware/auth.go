package middleware

import (
	stderrors "errors"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/wattrewards/wattrewards/internal/auth"
	"github.com/wattrewards/wattrewards/pkg/errors"
	"github.com/wattrewards/wattrewards/pkg/response"
)

const (
	CtxClaimsKey = "authClaims"
	CtxUserIDKey = "userID"
	CtxRoleKey   = "userRole"
)

// Auth requires a valid bearer token and stores its claims on the context.
// Websocket handshakes may pass the token as the access_token query
// parameter instead of a header.
func Auth(tokens *iauth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := tokens.Verify(bearerToken(c))
		if err != nil {
			reject(c, err)
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID())
		c.Set(CtxRoleKey, claims.Role)
		c.Next()
	}
}

// RequireAdmin must run after Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := c.Get(CtxClaimsKey)
		if !ok {
			reject(c, iauth.ErrMissingToken)
			return
		}
		if typed, _ := claims.(*iauth.Claims); !typed.IsAdmin() {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

func reject(c *gin.Context, cause error) {
	c.Header("WWW-Authenticate", `Bearer realm="wattrewards"`)
	appErr := errors.ErrUnauthorized.WithInternal(cause)
	if stderrors.Is(cause, iauth.ErrExpiredToken) {
		appErr = appErr.WithMessage("Session expired, please sign in again")
	}
	response.Error(c, appErr)
	c.Abort()
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if scheme, token, found := strings.Cut(header, " "); found && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	if header == "" && strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return c.Query("access_token")
	}
	return ""
}
