package models

// DetectRequest is the payload for POST /api/v1/detect.
type DetectRequest struct {
	// URL is the absolute http(s) URL of the page to audit. Required.
	URL string `json:"url" binding:"required,url"`

	// MaxAge allows serving a cached result younger than this many
	// milliseconds. Zero disables the cache lookup.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`
}
