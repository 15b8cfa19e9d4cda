package models

import "time"

// Rendering methods recorded in EnhancedDetectionResult.RenderingMethod.
// "playwright" is kept as the wire value for headless-browser renders so
// existing report consumers keep working.
const (
	RenderingStatic  = "static"
	RenderingDynamic = "playwright"
)

// EnhancedDetectionResult is the complete output of one detection pass.
// It is never mutated after being returned.
type EnhancedDetectionResult struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	FinalURL   string    `json:"finalUrl,omitempty"`
	DetectedAt time.Time `json:"detectedAt"`

	CookieBanner         CookieBannerFinding  `json:"cookieBanner"`
	PrivacyPolicy        PrivacyPolicyFinding `json:"privacyPolicy"`
	ConsentForms         ConsentFormsFinding  `json:"consentForms"`
	CookiesBeforeConsent CookieTimingFinding  `json:"cookiesBeforeConsent"`
	Iframes              IframeFinding        `json:"iframes"`
	Network              NetworkFinding       `json:"network"`
	Meta                 MetaFinding          `json:"meta"`
	LegalPages           LegalPagesFinding    `json:"legalPages"`

	// RenderingMethod names the fetch that produced the analysed HTML.
	RenderingMethod string `json:"renderingMethod"`

	// Confidence is in [0,1].
	Confidence float64 `json:"confidence"`

	Timing DetectionTiming `json:"timing"`
}

// CookieBannerFinding describes the consent banner, if any.
type CookieBannerFinding struct {
	Found             bool   `json:"found"`
	Selector          string `json:"selector,omitempty"`
	CMP               string `json:"cmp,omitempty"`
	HasAcceptButton   bool   `json:"hasAcceptButton"`
	HasRejectButton   bool   `json:"hasRejectButton"`
	HasSettingsButton bool   `json:"hasSettingsButton"`
	Text              string `json:"text,omitempty"`
}

// Privacy policy sources.
const (
	PolicySourceHref      = "href"
	PolicySourceText      = "text"
	PolicySourceLegalPage = "legal-page"
	PolicySourceJSONLD    = "json-ld"
)

// PrivacyPolicyFinding describes the privacy policy link.
type PrivacyPolicyFinding struct {
	Found  bool   `json:"found"`
	URL    string `json:"url,omitempty"`
	Text   string `json:"text,omitempty"`
	Source string `json:"source,omitempty"`
}

// ConsentFormsFinding lists forms that collect personal data.
type ConsentFormsFinding struct {
	Total int           `json:"total"`
	Forms []ConsentForm `json:"forms"`
}

// ConsentForm is one form containing at least one personal-data input.
type ConsentForm struct {
	Index          int      `json:"index"`
	Action         string   `json:"action,omitempty"`
	PersonalFields []string `json:"personalFields"`
	HasCheckbox    bool     `json:"hasCheckbox"`
	HasPolicyLink  bool     `json:"hasPolicyLink"`
	HasPolicyText  bool     `json:"hasPolicyText"`
}

// CookieTimingFinding reports tracking cookies observed without any consent
// interaction having taken place.
type CookieTimingFinding struct {
	Violation       bool     `json:"violation"`
	TrackingCookies []string `json:"trackingCookies"`
	TotalCookies    int      `json:"totalCookies"`
}

// IframeFinding counts embedded frames.
type IframeFinding struct {
	Total      int      `json:"total"`
	ThirdParty int      `json:"thirdParty"`
	Sources    []string `json:"sources,omitempty"`
}

// NetworkFinding classifies outgoing requests.
type NetworkFinding struct {
	TotalRequests   int      `json:"totalRequests"`
	Analytics       []string `json:"analytics"`
	ForeignServices []string `json:"foreignServices"`
	RussianServices []string `json:"russianServices"`
}

// MetaFinding holds privacy meta tags and structured data.
type MetaFinding struct {
	HasPrivacyMeta      bool     `json:"hasPrivacyMeta"`
	PrivacyLinks        []string `json:"privacyLinks,omitempty"`
	Organization        string   `json:"organization,omitempty"`
	WebSite             string   `json:"website,omitempty"`
	JSONLDPrivacyPolicy string   `json:"jsonLdPrivacyPolicy,omitempty"`
	JSONLDBlocks        int      `json:"jsonLdBlocks"`
	Title               string   `json:"title,omitempty"`
	SiteName            string   `json:"siteName,omitempty"`
	Language            string   `json:"language,omitempty"`
}

// LegalPagesFinding partitions the probed legal paths.
type LegalPagesFinding struct {
	Found    []string `json:"found"`
	NotFound []string `json:"notFound"`
}

// DetectionTiming breaks down where time was spent.
type DetectionTiming struct {
	TotalMs   int64 `json:"totalMs"`
	StaticMs  int64 `json:"staticMs"`
	DynamicMs int64 `json:"dynamicMs"`
}
