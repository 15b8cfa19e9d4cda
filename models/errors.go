package models

import "fmt"

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeBrowserUnavailable = "BROWSER_UNAVAILABLE"
	ErrCodeNavigation         = "NAVIGATION_FAILED"
	ErrCodeTimeout            = "SCRAPE_TIMEOUT"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DetectError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type DetectError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *DetectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DetectError) Unwrap() error {
	return e.Err
}

// NewDetectError creates a new DetectError.
func NewDetectError(code, message string, err error) *DetectError {
	return &DetectError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *DetectError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}
