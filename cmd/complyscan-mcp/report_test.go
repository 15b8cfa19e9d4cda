package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/use-agent/complyscan/models"
)

func TestFormatReport(t *testing.T) {
	resp := &models.DetectResponse{
		Success:     true,
		CacheStatus: "hit",
		Data: &models.EnhancedDetectionResult{
			URL:             "https://example.ru",
			FinalURL:        "https://www.example.ru/",
			RenderingMethod: models.RenderingDynamic,
			Confidence:      0.8,
			PrivacyPolicy:   models.PrivacyPolicyFinding{Found: true, URL: "https://www.example.ru/privacy"},
			CookiesBeforeConsent: models.CookieTimingFinding{
				Violation: true, TrackingCookies: []string{"_ga", "_ym_uid"}, TotalCookies: 4,
			},
			Network: models.NetworkFinding{ForeignServices: []string{"Google Analytics"}},
		},
		Checks: []models.Check{
			{ID: "cookie_banner", Name: "Баннер согласия на cookie", Status: models.StatusPassed, Details: "Баннер cookie обнаружен"},
			{ID: "cookies_before_consent", Name: "Cookie до получения согласия", Status: models.StatusFailed, Details: "_ga, _ym_uid"},
			{ID: "foreign_services", Name: "Трансграничная передача данных", Status: models.StatusWarning, Details: "Google Analytics"},
		},
	}

	out := formatReport(resp)

	assert.True(t, strings.HasPrefix(out, "URL: https://example.ru\nFinal URL: https://www.example.ru/\n"))
	assert.Contains(t, out, "Rendering: playwright, confidence 0.80 (cache hit)")
	assert.Contains(t, out, "[PASS] Баннер согласия на cookie (cookie_banner)")
	assert.Contains(t, out, "[FAIL] Cookie до получения согласия (cookies_before_consent): _ga, _ym_uid")
	assert.Contains(t, out, "[WARN] Трансграничная передача данных (foreign_services)")
	assert.Contains(t, out, "Passed: 1, warnings: 1, failed: 1")
	assert.Contains(t, out, "Privacy policy: https://www.example.ru/privacy")
	assert.Contains(t, out, "Tracking cookies: _ga, _ym_uid")
	assert.Contains(t, out, "Foreign services: Google Analytics")
}

func TestFormatReport_Minimal(t *testing.T) {
	out := formatReport(&models.DetectResponse{
		Success: true,
		Data:    &models.EnhancedDetectionResult{URL: "https://example.ru", FinalURL: "https://example.ru", RenderingMethod: models.RenderingStatic, Confidence: 0.5},
	})

	assert.NotContains(t, out, "Final URL")
	assert.NotContains(t, out, "cache")
	assert.NotContains(t, out, "Privacy policy")
	assert.Contains(t, out, "Passed: 0, warnings: 0, failed: 0")
}
