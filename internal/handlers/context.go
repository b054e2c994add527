package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wattrewards/wattrewards/internal/middleware"
)

// requestContext is the request's context, or Background when a handler is
// driven without an *http.Request.
func requestContext(c *gin.Context) context.Context {
	if c != nil && c.Request != nil {
		return c.Request.Context()
	}
	return context.Background()
}

// currentUserID is the subject that middleware.Auth stored for this request.
func currentUserID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.GetString(middleware.CtxUserIDKey))
	return id, id != ""
}
