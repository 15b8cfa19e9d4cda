package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/complyscan/api/handler"
	"github.com/use-agent/complyscan/api/middleware"
	"github.com/use-agent/complyscan/cache"
	"github.com/use-agent/complyscan/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	Detect:  RateLimit
//
// Health is outside the rate limit so monitoring probes always work.
func NewRouter(d handler.Detector, pool handler.BrowserStats, cfg *config.Config, cc *cache.Cache, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(pool, startTime))

	limited := v1.Group("")
	limited.Use(middleware.RateLimit(cfg.RateLimit))
	limited.POST("/detect", handler.Detect(d, cc))

	return r
}
