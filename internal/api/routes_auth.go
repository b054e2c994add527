package api

import (
	"github.com/gin-gonic/gin"

	"github.com/wattrewards/wattrewards/internal/handlers"
)

func registerAuthRoutes(engine *gin.Engine, handler *handlers.OTPHandler, limiter gin.HandlerFunc) {
	auth := engine.Group("/api/auth")
	if limiter != nil {
		auth.Use(limiter)
	}
	{
		auth.POST("/send-otp", handler.Send)
		auth.POST("/verify-otp", handler.Verify)
		auth.POST("/resend-otp", handler.Resend)
	}
}
