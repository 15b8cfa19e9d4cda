package detector

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/complyscan/models"
)

// bannerSelectors is tried in order; the first selector with a usable
// element wins. Vendor containers come first, generic substrings last.
var bannerSelectors = selectors(
	"onetrust", "#onetrust-banner-sdk",
	"onetrust", "#onetrust-consent-sdk",
	"cookiebot", "#CybotCookiebotDialog",
	"usercentrics", "#usercentrics-root",
	"quantcast", ".qc-cmp2-container",
	"didomi", "#didomi-host",
	"cookie-script", "#cookiescript_injected",
	"cookieyes", ".cky-consent-container",
	"complianz", ".cmplz-cookiebanner",
	"osano", ".osano-cm-window",
	"cookieconsent", ".cc-window",
	"cookie-banner", "#cookie-banner, .cookie-banner, [class*='cookie-banner'], [id*='cookie-banner']",
	"cookie-notice", "#cookie-notice, .cookie-notice, [class*='cookie-notice'], [id*='cookie-notice']",
	"cookie-consent", "[class*='cookie-consent'], [id*='cookie-consent'], [class*='cookieConsent'], [id*='cookieConsent']",
	"cookie", "[id*='cookie'], [class*='cookie'], [id*='Cookie'], [class*='Cookie']",
	"gdpr", "[id*='gdpr'], [class*='gdpr']",
	"consent", "[id*='consent'], [class*='consent']",
	"kuki", "[id*='kuki'], [class*='kuki']",
	"soglasie", "[id*='soglasie'], [class*='soglasie']",
	"ru-aria", "[aria-label*='куки'], [aria-label*='cookie'], [aria-label*='Cookie']",
)

var (
	acceptPatterns = []Pattern{
		pattern("accept-en", `(?i)\b(accept|agree|allow|got it|ok|okay|i understand|continue)\b`),
		pattern("accept-ru", `(?i)(принять|принимаю|согласен|согласна|соглашаюсь|понятно|хорошо|разрешить|подтвердить|^\s*ок\s*$)`),
	}
	rejectPatterns = []Pattern{
		pattern("reject-en", `(?i)\b(reject|decline|deny|refuse|disagree|necessary only|only necessary|essential only)\b`),
		pattern("reject-ru", `(?i)(отклонить|отказаться|отказываюсь|не согласен|запретить|только необходимые)`),
	}
	settingsPatterns = []Pattern{
		pattern("settings-en", `(?i)\b(settings|preferences|customi[sz]e|manage|options)\b`),
		pattern("settings-ru", `(?i)(настро|параметр|управл|выбрать)`),
	}

	// bannerTextPatterns is the body-text fallback when no container matched.
	bannerTextPatterns = []Pattern{
		pattern("ru-we-use", `(?i)(мы|сайт)\s+(используем|использует)\s+(файлы\s+)?(cookie|куки)`),
		pattern("ru-files", `(?i)использ\S*\s+(файл\S*\s+)?(cookie|куки)`),
		pattern("ru-continue", `(?i)продолжая\s+(использовать|пользоваться)\S*.{0,60}(cookie|куки)`),
		pattern("en-we-use", `(?i)\bwe use cookies\b`),
	}
)

// controlSelector matches elements a visitor can activate.
const controlSelector = "button, a, [role='button'], input[type='button'], input[type='submit']"

var nonContainerTags = map[string]struct{}{
	"html": {}, "head": {}, "body": {}, "script": {}, "style": {},
	"link": {}, "meta": {}, "noscript": {}, "template": {},
	// Form controls named "consent" belong to data-collection forms.
	"form": {}, "input": {}, "label": {}, "a": {}, "option": {},
	"select": {}, "textarea": {}, "button": {},
}

func isBannerContainer(s *goquery.Selection) bool {
	_, skip := nonContainerTags[goquery.NodeName(s)]
	return !skip
}

// DetectCookieBanner looks for a consent banner in doc.
func DetectCookieBanner(doc *goquery.Document) models.CookieBannerFinding {
	f, _ := locateBanner(doc)
	return f
}

// locateBanner is DetectCookieBanner that also returns the matched element
// (nil for the body-text fallback).
func locateBanner(doc *goquery.Document) (models.CookieBannerFinding, *goquery.Selection) {
	var f models.CookieBannerFinding
	if doc == nil {
		return f, nil
	}

	sp, el, ok := firstSelector(doc, bannerSelectors, isBannerContainer)
	if ok {
		f.Found = true
		f.Selector = sp.Selector
		f.HasAcceptButton, f.HasRejectButton, f.HasSettingsButton = scanControls(el)
		return f, el
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		return f, nil
	}
	if p, ok := firstMatch(bannerTextPatterns, visibleText(body)); ok {
		f.Found = true
		f.Selector = "text:" + p.Label
	}
	return f, nil
}

// scanControls checks every control inside el against the three
// independent text banks.
func scanControls(el *goquery.Selection) (accept, reject, settings bool) {
	el.Find(controlSelector).Each(func(_ int, c *goquery.Selection) {
		label := controlLabel(c)
		if label == "" {
			return
		}
		accept = accept || matchesAny(acceptPatterns, label)
		reject = reject || matchesAny(rejectPatterns, label)
		settings = settings || matchesAny(settingsPatterns, label)
	})
	return accept, reject, settings
}

// controlLabel is the text a visitor reads on a control.
func controlLabel(c *goquery.Selection) string {
	if t := strings.TrimSpace(c.Text()); t != "" {
		return t
	}
	for _, attr := range []string{"value", "aria-label", "title"} {
		if v, ok := c.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// visibleText returns the text of s without script and style contents.
func visibleText(s *goquery.Selection) string {
	clone := s.Clone()
	clone.Find("script, style, noscript, template").Remove()
	return strings.Join(strings.Fields(clone.Text()), " ")
}
