package api

import (
	"github.com/gin-gonic/gin"

	"github.com/wattrewards/wattrewards/internal/handlers"
	"github.com/wattrewards/wattrewards/internal/middleware"
)

func registerNotificationRoutes(api *gin.RouterGroup, notifications *handlers.NotificationHandler, devices *handlers.DeviceHandler) {
	group := api.Group("/notifications")
	{
		group.GET("", notifications.List)
		group.GET("/unread-count", notifications.UnreadCount)
		group.GET("/stream", notifications.Stream)
		group.PATCH("/mark-all-read", notifications.MarkAllRead)
		group.POST("/register-device", devices.Register)
		group.POST("/unregister-device", devices.Unregister)

		group.POST("", middleware.RequireAdmin(), notifications.Create)

		group.GET("/:id", notifications.Get)
		group.PATCH("/:id/read", notifications.MarkRead)
		group.DELETE("/:id", notifications.Delete)
	}
}
