package models

// DetectResponse is the response for POST /api/v1/detect.
type DetectResponse struct {
	// Success indicates whether the detection completed.
	Success bool `json:"success"`

	// Data is the full detection result.
	Data *EnhancedDetectionResult `json:"data,omitempty"`

	// Checks is the ordered check list derived from Data.
	Checks []Check `json:"checks,omitempty"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string      `json:"status"` // "healthy" or "degraded"
	Uptime  string      `json:"uptime"`
	Browser BrowserInfo `json:"browser"`
	Version string      `json:"version"`
}

// BrowserInfo reports the state of the shared browser.
type BrowserInfo struct {
	Capability string `json:"capability"` // "unknown", "available", "unavailable"
	Alive      bool   `json:"alive"`
	Launches   int64  `json:"launches"`
	IdleFor    string `json:"idle_for,omitempty"`
}
