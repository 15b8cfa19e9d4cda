package models

// CheckStatus is the verdict of a single check.
type CheckStatus string

const (
	StatusPassed  CheckStatus = "passed"
	StatusWarning CheckStatus = "warning"
	StatusFailed  CheckStatus = "failed"
)

// Check categories.
const (
	CategoryCookies   = "cookies"
	CategoryFZ152     = "fz152"
	CategoryFZ149     = "fz149"
	CategoryLegal     = "legal"
	CategoryTechnical = "technical"
)

// Check is one named verdict derived from a detection result.
type Check struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Details  string      `json:"details"`
	Category string      `json:"category"`
}
