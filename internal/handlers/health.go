package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wattrewards/wattrewards/internal/database"
	"github.com/wattrewards/wattrewards/pkg/logger"
	"github.com/wattrewards/wattrewards/pkg/response"
)

const probeTimeout = 2 * time.Second

// Probe is an optional dependency reported by the health endpoint.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// Health answers 200 when the database and every probe respond, 503 otherwise.
func Health(db *gorm.DB, probes ...Probe) gin.HandlerFunc {
	log := logger.WithModule("health")
	all := append([]Probe{{
		Name:  "database",
		Check: func(ctx context.Context) error { return database.Ping(ctx, db) },
	}}, probes...)

	return func(c *gin.Context) {
		checks := make(gin.H, len(all))
		healthy := true
		for _, p := range all {
			ctx, cancel := context.WithTimeout(requestContext(c), probeTimeout)
			err := p.Check(ctx)
			cancel()
			if err != nil {
				healthy = false
				checks[p.Name] = "unavailable"
				log.Warn("health probe failed", zap.String("probe", p.Name), zap.Error(err))
				continue
			}
			checks[p.Name] = "ok"
		}

		if !healthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success":    false,
				"status":     "degraded",
				"checks":     checks,
				"checked_at": time.Now().UTC(),
			})
			return
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok", "checks": checks})
	}
}
