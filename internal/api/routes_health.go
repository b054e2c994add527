package api

import (
	"github.com/gin-gonic/gin"

	"github.com/wattrewards/wattrewards/internal/handlers"
)

func registerHealthRoutes(r *gin.Engine, deps Dependencies) {
	var probes []handlers.Probe
	if deps.Redis != nil {
		probes = append(probes, handlers.Probe{Name: "redis", Check: deps.Redis.Ping})
	}
	health := handlers.Health(deps.DB, probes...)
	r.GET("/health", health)
	r.GET("/api/health", health)
}
