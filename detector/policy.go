package detector

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
	"github.com/use-agent/complyscan/models"
)

// policyHrefSubstrings identify privacy documents by their URL, including
// common transliterations of the Russian titles.
var policyHrefSubstrings = []string{
	"privacy",
	"policy",
	"personal",
	"consent",
	"confidential",
	"pdn",
	"politika",
	"politic",
	"konfidencial",
	"konfidentsial",
	"personalnyh",
	"personalnykh",
	"personalnye",
	"obrabotk",
	"soglasie",
	"persdannye",
}

// policyTextPatterns is the anchor-text fallback bank.
var policyTextPatterns = []Pattern{
	pattern("privacy-policy-ru", `(?i)политик\S*\s+конфиденциальност`),
	pattern("processing-policy-ru", `(?i)политик\S*\s+(в\s+отношении\s+)?обработки`),
	pattern("personal-data-ru", `(?i)персональн\S*\s+данн`),
	pattern("consent-ru", `(?i)согласи\S*\s+на\s+обработку`),
	pattern("fz152", `(?i)(152[\s-]*фз|фз[\s-]*152|№\s*152)`),
	pattern("fz149", `(?i)(149[\s-]*фз|фз[\s-]*149|№\s*149)`),
	pattern("confidentiality-ru", `(?i)конфиденциальност`),
	pattern("privacy-en", `(?i)\bprivacy\b`),
	pattern("data-protection-en", `(?i)\b(data protection|personal data)\b`),
}

// FindPrivacyPolicy locates a link to the privacy policy. The href pass
// runs over every link before the anchor-text pass is tried.
func FindPrivacyPolicy(doc *goquery.Document, base *url.URL) models.PrivacyPolicyFinding {
	var f models.PrivacyPolicyFinding
	if doc == nil {
		return f
	}
	links := doc.Find("a[href]")

	links.EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, abs, ok := linkTarget(a, base)
		if !ok {
			return true
		}
		lower := strings.ToLower(href)
		if lo.ContainsBy(policyHrefSubstrings, func(sub string) bool { return strings.Contains(lower, sub) }) {
			f = models.PrivacyPolicyFinding{
				Found:  true,
				URL:    abs,
				Text:   anchorText(a),
				Source: models.PolicySourceHref,
			}
			return false
		}
		return true
	})
	if f.Found {
		return f
	}

	links.EachWithBreak(func(_ int, a *goquery.Selection) bool {
		_, abs, ok := linkTarget(a, base)
		if !ok {
			return true
		}
		text := anchorText(a)
		if matchesAny(policyTextPatterns, text) {
			f = models.PrivacyPolicyFinding{
				Found:  true,
				URL:    abs,
				Text:   text,
				Source: models.PolicySourceText,
			}
			return false
		}
		return true
	})
	return f
}

// linkTarget returns the raw href of a and its absolute form. Fragment-only,
// javascript:, mailto: and tel: links are rejected.
func linkTarget(a *goquery.Selection, base *url.URL) (string, string, bool) {
	href, _ := a.Attr("href")
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", "", false
	}
	lower := strings.ToLower(href)
	for _, scheme := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, scheme) {
			return "", "", false
		}
	}
	return href, resolve(base, href), true
}

// resolve makes href absolute against base; unparsable hrefs are returned
// unchanged.
func resolve(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func anchorText(a *goquery.Selection) string {
	text := strings.Join(strings.Fields(a.Text()), " ")
	if text == "" {
		text, _ = a.Attr("title")
	}
	return strings.TrimSpace(text)
}
