package detector

import "github.com/use-agent/complyscan/models"

// Confidence weights.
const (
	baseConfidence    = 0.5
	dynamicBonus      = 0.2
	bannerBonus       = 0.1
	policyBonus       = 0.1
	cookieJarBonus    = 0.1
	maximumConfidence = 1.0
)

// Confidence scores how much evidence a detection pass saw. Every signal
// only adds, so the score never drops when a signal appears.
func Confidence(r *models.EnhancedDetectionResult) float64 {
	if r == nil {
		return 0
	}
	score := baseConfidence
	if r.RenderingMethod == models.RenderingDynamic {
		score += dynamicBonus
	}
	if r.CookieBanner.Found {
		score += bannerBonus
	}
	if r.PrivacyPolicy.Found {
		score += policyBonus
	}
	if r.CookiesBeforeConsent.TotalCookies > 0 {
		score += cookieJarBonus
	}
	return min(score, maximumConfidence)
}
