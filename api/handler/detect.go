package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/complyscan/cache"
	"github.com/use-agent/complyscan/detector"
	"github.com/use-agent/complyscan/models"
)

// Detector runs one detection pass. *detector.Detector satisfies it.
type Detector interface {
	Run(ctx context.Context, url string) (*models.EnhancedDetectionResult, error)
}

// Detect returns a handler for POST /api/v1/detect.
//
// Orchestration flow:
//  1. Parse & validate request.
//  2. Cache lookup when max_age is set.
//  3. Detector.Run → result; BuildChecks → checks.
//  4. Cache store, return 200.
func Detect(d Detector, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ── 1. Parse request ────────────────────────────────────────
		var req models.DetectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.DetectResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		// ── 2. Cache lookup ─────────────────────────────────────────
		cacheKey := cache.Key(req.URL)
		if cc != nil && req.MaxAge > 0 {
			if cached, hit := cc.Get(cacheKey, req.MaxAge); hit {
				cached.CacheStatus = "hit"
				c.JSON(http.StatusOK, cached)
				return
			}
		}

		// ── 3. Detect ───────────────────────────────────────────────
		result, err := d.Run(c.Request.Context(), req.URL)
		if err != nil {
			respondError(c, err)
			return
		}

		resp := &models.DetectResponse{
			Success: true,
			Data:    result,
			Checks:  detector.BuildChecks(result),
		}

		// ── 4. Cache store ──────────────────────────────────────────
		if cc != nil && req.MaxAge > 0 {
			cc.Set(cacheKey, resp)
			resp.CacheStatus = "miss"
		}

		c.JSON(http.StatusOK, resp)
	}
}

// respondError maps a DetectError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error) {
	var detectErr *models.DetectError
	if !errors.As(err, &detectErr) {
		detectErr = models.NewDetectError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(detectErr), models.DetectResponse{
		Success: false,
		Error:   detectErr.ToDetail(),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.DetectError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeBrowserUnavailable:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}
