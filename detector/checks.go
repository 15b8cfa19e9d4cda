package detector

import (
	"fmt"
	"strings"

	"github.com/use-agent/complyscan/models"
)

// BuildChecks derives the ordered check list from a detection result.
// Conditional checks are emitted only when their precondition holds:
// cookie_reject_option and cmp_detected need a banner, consent_form_<n>
// needs a qualifying form. The function is pure.
func BuildChecks(r *models.EnhancedDetectionResult) []models.Check {
	if r == nil {
		return []models.Check{}
	}
	checks := make([]models.Check, 0, 12+len(r.ConsentForms.Forms))

	checks = append(checks, cookieBannerCheck(r))
	if r.CookieBanner.Found {
		checks = append(checks, rejectOptionCheck(r))
	}
	checks = append(checks, cookiesBeforeConsentCheck(r))
	checks = append(checks, privacyPolicyCheck(r))
	for _, form := range r.ConsentForms.Forms {
		checks = append(checks, consentFormCheck(form))
	}
	checks = append(checks,
		foreignServicesCheck(r),
		analyticsCheck(r),
		legalPagesCheck(r),
		structuredDataCheck(r),
	)
	if r.CookieBanner.Found {
		checks = append(checks, cmpCheck(r))
	}
	checks = append(checks, renderingCheck(r))
	return checks
}

func cookieBannerCheck(r *models.EnhancedDetectionResult) models.Check {
	c := models.Check{ID: "cookie_banner", Name: "Баннер согласия на cookie", Category: models.CategoryCookies}
	b := r.CookieBanner
	switch {
	case b.Found:
		c.Status = models.StatusPassed
		c.Details = "Баннер cookie обнаружен"
		if b.Selector != "" {
			c.Details += " (" + b.Selector + ")"
		}
	case len(r.CookiesBeforeConsent.TrackingCookies) > 0 || len(r.Network.Analytics) > 0:
		c.Status = models.StatusFailed
		c.Details = "Сайт использует системы аналитики или трекинговые cookie, но баннер согласия не найден"
	default:
		c.Status = models.StatusWarning
		c.Details = "Баннер cookie не найден; трекинговые cookie не обнаружены"
	}
	return c
}

func rejectOptionCheck(r *models.EnhancedDetectionResult) models.Check {
	c := models.Check{ID: "cookie_reject_option", Name: "Возможность отказа от cookie", Category: models.CategoryCookies}
	b := r.CookieBanner
	switch {
	case b.HasRejectButton:
		c.Status = models.StatusPassed
		c.Details = "Баннер содержит кнопку отказа"
	case b.HasSettingsButton:
		c.Status = models.StatusWarning
		c.Details = "Отказ возможен только через настройки cookie"
	default:
		c.Status = models.StatusFailed
		c.Details = "Баннер не предоставляет возможности отказаться от cookie"
	}
	return c
}

func cookiesBeforeConsentCheck(r *models.EnhancedDetectionResult) models.Check {
	c := models.Check{ID: "cookies_before_consent", Name: "Cookie до получения согласия", Category: models.CategoryCookies}
	t := r.CookiesBeforeConsent
	switch {
	case t.Violation:
		c.Status = models.StatusFailed
		c.Details = "Трекинговые cookie устанавливаются до согласия: " + strings.Join(t.TrackingCookies, ", ")
	case t.TotalCookies == 0 && len(r.Network.Analytics) == 0 && r.Network.TotalRequests == 0:
		c.Status = models.StatusWarning
		c.Details = "Cookie не удалось проверить без рендеринга в браузере"
	default:
		c.Status = models.StatusPassed
		c.Details = fmt.Sprintf("Трекинговые cookie до согласия не обнаружены (всего cookie: %d)", t.TotalCookies)
	}
	return c
}

func privacyPolicyCheck(r *models.EnhancedDetectionResult) models.Check {
	c := models.Check{ID: "privacy_policy", Name: "Политика обработки персональных данных", Category: models.CategoryFZ152}
	p := r.PrivacyPolicy
	if p.Found {
		c.Status = models.StatusPassed
		c.Details = "Политика найдена: " + p.URL
		return c
	}
	c.Status = models.StatusFailed
	c.Details = "Ссылка на политику обработки персональных данных не найдена"
	return c
}

func consentFormCheck(form models.ConsentForm) models.Check {
	c := models.Check{
		ID:       fmt.Sprintf("consent_form_%d", form.Index),
		Name:     fmt.Sprintf("Согласие в форме №%d", form.Index),
		Category: models.CategoryFZ152,
	}
	fields := strings.Join(form.PersonalFields, ", ")
	references := form.HasPolicyLink || form.HasPolicyText
	switch {
	case form.HasCheckbox && references:
		c.Status = models.StatusPassed
		c.Details = "Форма (" + fields + ") содержит чекбокс согласия и ссылку на политику"
	case references:
		c.Status = models.StatusWarning
		c.Details = "Форма (" + fields + ") ссылается на политику, но не содержит чекбокса согласия"
	case form.HasCheckbox:
		c.Status = models.StatusWarning
		c.Details = "Форма (" + fields + ") содержит чекбокс, но не ссылается на политику"
	default:
		c.Status = models.StatusFailed
		c.Details = "Форма (" + fields + ") собирает персональные данные без согласия"
	}
	return c
}

func foreignServicesCheck(r *models.EnhancedDetectionResult) models.Check {
	c := models.Check{ID: "foreign_services", Name: "Трансграничная передача данных", Category: models.CategoryFZ152}
	if s := r.Network.ForeignServices; len(s) > 0 {
		c.Status = models.StatusWarning
		c.Details = "Используются иностранные сервисы: " + strings.Join(s, ", ") + ". Требуется уведомление о трансграничной передаче"
		return c
	}
	c.Status = models.StatusPassed
	c.Details = "Иностранные сервисы не обнаружены"
	return c
}

func analyticsCheck(r *models.EnhancedDetectionResult) models.Check {
	c := models.Check{ID: "analytics_services", Name: "Системы аналитики", Category: models.CategoryTechnical}
	a := r.Network.Analytics
	switch {
	case len(a) == 0:
		c.Status = models.StatusPassed
		c.Details = "Системы аналитики не обнаружены"
	case r.CookieBanner.Found:
		c.Status = models.StatusPassed
		c.Details = "Аналитика: " + strings.Join(a, ", ")
	default:
		c.Status = models.StatusWarning
		c.Details = "Аналитика без баннера согласия: " + strings.Join(a, ", ")
	}
	return c
}

func legalPagesCheck(r *models.EnhancedDetectionResult) models.Check {
	c := models.Check{ID: "legal_pages", Name: "Юридические страницы", Category: models.CategoryLegal}
	if found := r.LegalPages.Found; len(found) > 0 {
		c.Status = models.StatusPassed
		c.Details = "Найдены: " + strings.Join(found, ", ")
		return c
	}
	c.Status = models.StatusWarning
	c.Details = "Стандартные юридические страницы не найдены"
	return c
}

func structuredDataCheck(r *models.EnhancedDetectionResult) models.Check {
	c := models.Check{ID: "structured_data", Name: "Сведения о владельце сайта", Category: models.CategoryFZ149}
	m := r.Meta
	switch {
	case m.Organization != "":
		c.Status = models.StatusPassed
		c.Details = "Организация в структурированных данных: " + m.Organization
	case m.JSONLDBlocks > 0:
		c.Status = models.StatusWarning
		c.Details = "Структурированные данные есть, но владелец сайта не указан"
	default:
		c.Status = models.StatusWarning
		c.Details = "Структурированные данные (JSON-LD) отсутствуют"
	}
	return c
}

func cmpCheck(r *models.EnhancedDetectionResult) models.Check {
	c := models.Check{ID: "cmp_detected", Name: "Платформа управления согласиями", Category: models.CategoryCookies}
	if r.CookieBanner.CMP != "" {
		c.Status = models.StatusPassed
		c.Details = "Используется " + r.CookieBanner.CMP
		return c
	}
	c.Status = models.StatusWarning
	c.Details = "Собственная реализация баннера; CMP не распознана"
	return c
}

func renderingCheck(r *models.EnhancedDetectionResult) models.Check {
	c := models.Check{ID: "rendering", Name: "Метод анализа", Category: models.CategoryTechnical}
	switch {
	case r.RenderingMethod == models.RenderingDynamic:
		c.Status = models.StatusPassed
		c.Details = "Страница отрисована в браузере"
	case r.Network.TotalRequests > 0:
		c.Status = models.StatusPassed
		c.Details = "Статический HTML, cookie и запросы собраны в браузере"
	default:
		c.Status = models.StatusWarning
		c.Details = "Только статический HTML; cookie и сетевые запросы не проанализированы"
	}
	return c
}
