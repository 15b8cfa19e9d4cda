package main

import (
	"fmt"
	"strings"

	"github.com/use-agent/complyscan/models"
)

var statusMarks = map[models.CheckStatus]string{
	models.StatusPassed:  "[PASS]",
	models.StatusWarning: "[WARN]",
	models.StatusFailed:  "[FAIL]",
}

// formatReport renders a detection response as plain text for the model.
func formatReport(resp *models.DetectResponse) string {
	r := resp.Data
	var sb strings.Builder

	fmt.Fprintf(&sb, "URL: %s\n", r.URL)
	if r.FinalURL != "" && r.FinalURL != r.URL {
		fmt.Fprintf(&sb, "Final URL: %s\n", r.FinalURL)
	}
	fmt.Fprintf(&sb, "Rendering: %s, confidence %.2f", r.RenderingMethod, r.Confidence)
	if resp.CacheStatus != "" {
		fmt.Fprintf(&sb, " (cache %s)", resp.CacheStatus)
	}
	sb.WriteString("\n\n")

	var passed, warned, failed int
	for _, c := range resp.Checks {
		switch c.Status {
		case models.StatusPassed:
			passed++
		case models.StatusWarning:
			warned++
		case models.StatusFailed:
			failed++
		}
		fmt.Fprintf(&sb, "%s %s (%s): %s\n", statusMarks[c.Status], c.Name, c.ID, c.Details)
	}
	fmt.Fprintf(&sb, "\n---\nPassed: %d, warnings: %d, failed: %d\n", passed, warned, failed)

	if r.PrivacyPolicy.Found {
		fmt.Fprintf(&sb, "Privacy policy: %s\n", r.PrivacyPolicy.URL)
	}
	if len(r.CookiesBeforeConsent.TrackingCookies) > 0 {
		fmt.Fprintf(&sb, "Tracking cookies: %s\n", strings.Join(r.CookiesBeforeConsent.TrackingCookies, ", "))
	}
	if len(r.Network.ForeignServices) > 0 {
		fmt.Fprintf(&sb, "Foreign services: %s\n", strings.Join(r.Network.ForeignServices, ", "))
	}
	return sb.String()
}
