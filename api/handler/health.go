package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/complyscan/engine"
	"github.com/use-agent/complyscan/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// BrowserStats reports the shared browser state. *engine.BrowserPool does.
type BrowserStats interface {
	Stats() engine.PoolStats
}

// Health returns a handler for GET /api/v1/health.
//
// Status is "degraded" once browser launch has failed: detections still run
// but only on static HTML.
func Health(pool BrowserStats, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := pool.Stats()

		status := "healthy"
		if stats.Capability == engine.CapabilityUnavailable {
			status = "degraded"
		}

		info := models.BrowserInfo{
			Capability: stats.Capability.String(),
			Alive:      stats.Alive,
			Launches:   stats.Launches,
		}
		if stats.Alive && !stats.LastUsed.IsZero() {
			info.IdleFor = time.Since(stats.LastUsed).Round(time.Second).String()
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Browser: info,
			Version: Version,
		})
	}
}
