package detector

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/complyscan/models"
)

func checkIDs(checks []models.Check) []string {
	return lo.Map(checks, func(c models.Check, _ int) string { return c.ID })
}

func checkByID(t *testing.T, checks []models.Check, id string) models.Check {
	t.Helper()
	c, ok := lo.Find(checks, func(c models.Check) bool { return c.ID == id })
	require.True(t, ok, "check %q not emitted", id)
	return c
}

func TestBuildChecks_NilResult(t *testing.T) {
	checks := BuildChecks(nil)

	assert.NotNil(t, checks)
	assert.Empty(t, checks)
}

func TestBuildChecks_BareResult(t *testing.T) {
	r := &models.EnhancedDetectionResult{RenderingMethod: models.RenderingStatic}

	checks := BuildChecks(r)

	assert.Equal(t, []string{
		"cookie_banner",
		"cookies_before_consent",
		"privacy_policy",
		"foreign_services",
		"analytics_services",
		"legal_pages",
		"structured_data",
		"rendering",
	}, checkIDs(checks))

	want := map[string]models.CheckStatus{
		"cookie_banner":          models.StatusWarning,
		"cookies_before_consent": models.StatusWarning,
		"privacy_policy":         models.StatusFailed,
		"foreign_services":       models.StatusPassed,
		"analytics_services":     models.StatusPassed,
		"legal_pages":            models.StatusWarning,
		"structured_data":        models.StatusWarning,
		"rendering":              models.StatusWarning,
	}
	for _, c := range checks {
		assert.Equal(t, want[c.ID], c.Status, c.ID)
		assert.NotEmpty(t, c.Name, c.ID)
		assert.NotEmpty(t, c.Details, c.ID)
	}
}

func TestBuildChecks_ConditionalChecks(t *testing.T) {
	r := &models.EnhancedDetectionResult{
		CookieBanner: models.CookieBannerFinding{Found: true, HasAcceptButton: true, CMP: "Cookiebot"},
		ConsentForms: models.ConsentFormsFinding{Total: 2, Forms: []models.ConsentForm{
			{Index: 1, PersonalFields: []string{FieldEmail}},
			{Index: 3, PersonalFields: []string{FieldPhone}, HasCheckbox: true, HasPolicyLink: true},
		}},
		RenderingMethod: models.RenderingDynamic,
	}

	checks := BuildChecks(r)

	assert.Equal(t, []string{
		"cookie_banner",
		"cookie_reject_option",
		"cookies_before_consent",
		"privacy_policy",
		"consent_form_1",
		"consent_form_3",
		"foreign_services",
		"analytics_services",
		"legal_pages",
		"structured_data",
		"cmp_detected",
		"rendering",
	}, checkIDs(checks))
	assert.Equal(t, models.StatusFailed, checkByID(t, checks, "cookie_reject_option").Status)
	assert.Equal(t, models.StatusFailed, checkByID(t, checks, "consent_form_1").Status)
	assert.Equal(t, models.StatusPassed, checkByID(t, checks, "consent_form_3").Status)
	assert.Equal(t, models.StatusPassed, checkByID(t, checks, "cmp_detected").Status)
	assert.Equal(t, models.StatusPassed, checkByID(t, checks, "rendering").Status)
}

func TestBuildChecks_CookieBanner(t *testing.T) {
	tests := []struct {
		name string
		r    models.EnhancedDetectionResult
		want models.CheckStatus
	}{
		{
			name: "banner found",
			r:    models.EnhancedDetectionResult{CookieBanner: models.CookieBannerFinding{Found: true}},
			want: models.StatusPassed,
		},
		{
			name: "tracking cookies without banner",
			r: models.EnhancedDetectionResult{CookiesBeforeConsent: models.CookieTimingFinding{
				Violation: true, TrackingCookies: []string{"_ga"}, TotalCookies: 1,
			}},
			want: models.StatusFailed,
		},
		{
			name: "analytics without banner",
			r:    models.EnhancedDetectionResult{Network: models.NetworkFinding{Analytics: []string{"Yandex.Metrica"}}},
			want: models.StatusFailed,
		},
		{
			name: "nothing tracked",
			want: models.StatusWarning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, checkByID(t, BuildChecks(&tt.r), "cookie_banner").Status)
		})
	}
}

func TestBuildChecks_RejectOption(t *testing.T) {
	tests := []struct {
		name   string
		banner models.CookieBannerFinding
		want   models.CheckStatus
	}{
		{"reject button", models.CookieBannerFinding{Found: true, HasRejectButton: true, HasSettingsButton: true}, models.StatusPassed},
		{"settings only", models.CookieBannerFinding{Found: true, HasSettingsButton: true}, models.StatusWarning},
		{"accept only", models.CookieBannerFinding{Found: true, HasAcceptButton: true}, models.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &models.EnhancedDetectionResult{CookieBanner: tt.banner}
			assert.Equal(t, tt.want, checkByID(t, BuildChecks(r), "cookie_reject_option").Status)
		})
	}
}

func TestBuildChecks_CookiesBeforeConsent(t *testing.T) {
	violation := &models.EnhancedDetectionResult{CookiesBeforeConsent: models.CookieTimingFinding{
		Violation: true, TrackingCookies: []string{"_ga", "_ym_uid"}, TotalCookies: 3,
	}}
	c := checkByID(t, BuildChecks(violation), "cookies_before_consent")
	assert.Equal(t, models.StatusFailed, c.Status)
	assert.Contains(t, c.Details, "_ga, _ym_uid")
	assert.Equal(t, models.CategoryCookies, c.Category)

	clean := &models.EnhancedDetectionResult{
		CookiesBeforeConsent: models.CookieTimingFinding{TotalCookies: 2, TrackingCookies: []string{}},
		Network:              models.NetworkFinding{TotalRequests: 12},
	}
	assert.Equal(t, models.StatusPassed, checkByID(t, BuildChecks(clean), "cookies_before_consent").Status)
}

func TestBuildChecks_ConsentForm(t *testing.T) {
	tests := []struct {
		name string
		form models.ConsentForm
		want models.CheckStatus
	}{
		{"checkbox and link", models.ConsentForm{Index: 1, HasCheckbox: true, HasPolicyLink: true}, models.StatusPassed},
		{"checkbox and text", models.ConsentForm{Index: 1, HasCheckbox: true, HasPolicyText: true}, models.StatusPassed},
		{"link only", models.ConsentForm{Index: 1, HasPolicyLink: true}, models.StatusWarning},
		{"checkbox only", models.ConsentForm{Index: 1, HasCheckbox: true}, models.StatusWarning},
		{"nothing", models.ConsentForm{Index: 1}, models.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.form.PersonalFields = []string{FieldEmail}
			c := consentFormCheck(tt.form)
			assert.Equal(t, "consent_form_1", c.ID)
			assert.Equal(t, models.CategoryFZ152, c.Category)
			assert.Equal(t, tt.want, c.Status)
		})
	}
}

func TestBuildChecks_ServicesAndAnalytics(t *testing.T) {
	r := &models.EnhancedDetectionResult{
		Network: models.NetworkFinding{
			TotalRequests:   5,
			Analytics:       []string{"Google Analytics"},
			ForeignServices: []string{"Google Analytics", "Google Fonts"},
		},
	}
	checks := BuildChecks(r)

	foreign := checkByID(t, checks, "foreign_services")
	assert.Equal(t, models.StatusWarning, foreign.Status)
	assert.Contains(t, foreign.Details, "Google Fonts")
	assert.Equal(t, models.StatusWarning, checkByID(t, checks, "analytics_services").Status)

	r.CookieBanner.Found = true
	assert.Equal(t, models.StatusPassed, checkByID(t, BuildChecks(r), "analytics_services").Status)
}

func TestBuildChecks_StructuredDataAndLegalPages(t *testing.T) {
	r := &models.EnhancedDetectionResult{
		Meta:       models.MetaFinding{Organization: "ООО Ромашка", JSONLDBlocks: 1},
		LegalPages: models.LegalPagesFinding{Found: []string{"/privacy"}, NotFound: []string{"/terms"}},
	}
	checks := BuildChecks(r)

	sd := checkByID(t, checks, "structured_data")
	assert.Equal(t, models.StatusPassed, sd.Status)
	assert.Equal(t, models.CategoryFZ149, sd.Category)
	assert.Equal(t, models.StatusPassed, checkByID(t, checks, "legal_pages").Status)
}
