package detector

import (
	"net/url"
	"strings"

	"github.com/samber/lo"
	"github.com/use-agent/complyscan/models"
)

// serviceRule matches a third-party service by request host.
type serviceRule struct {
	Pattern
	Analytics bool
}

func service(label, hostExpr string, analytics bool) serviceRule {
	return serviceRule{Pattern: pattern(label, `(?i)(^|\.)`+hostExpr+`$`), Analytics: analytics}
}

// foreignServices are hosted outside Russia; using them implies a
// cross-border transfer of visitor data.
var foreignServices = []serviceRule{
	service("Google Analytics", `(google-analytics\.com|analytics\.google\.com)`, true),
	service("Google Tag Manager", `googletagmanager\.com`, true),
	service("Google Ads", `(doubleclick\.net|googleadservices\.com|googlesyndication\.com)`, true),
	service("Google Fonts", `(fonts\.googleapis\.com|fonts\.gstatic\.com)`, false),
	service("Google reCAPTCHA", `(recaptcha\.net|www\.google\.com|www\.gstatic\.com)`, false),
	service("Google Maps", `maps\.googleapis\.com`, false),
	service("YouTube", `(youtube\.com|youtube-nocookie\.com|ytimg\.com)`, false),
	service("Facebook Pixel", `(connect\.facebook\.net|facebook\.com)`, true),
	service("Hotjar", `(hotjar\.com|hotjar\.io)`, true),
	service("Microsoft Clarity", `clarity\.ms`, true),
	service("Bing Ads", `bat\.bing\.com`, true),
	service("LinkedIn Insight", `(snap\.licdn\.com|px\.ads\.linkedin\.com)`, true),
	service("X (Twitter)", `(static\.ads-twitter\.com|analytics\.twitter\.com)`, true),
	service("TikTok Pixel", `analytics\.tiktok\.com`, true),
	service("Amplitude", `amplitude\.com`, true),
	service("Mixpanel", `mixpanel\.com`, true),
	service("Segment", `(segment\.com|segment\.io)`, true),
	service("HubSpot", `(hs-scripts\.com|hs-analytics\.net|hubspot\.com)`, true),
	service("Intercom", `(intercom\.io|intercomcdn\.com)`, false),
	service("Cloudflare Insights", `cloudflareinsights\.com`, true),
	service("Sentry", `(sentry\.io|sentry-cdn\.com)`, false),
	service("Vimeo", `(vimeo\.com|vimeocdn\.com)`, false),
}

// russianServices are hosted in Russia.
var russianServices = []serviceRule{
	service("Yandex.Metrica", `(mc\.yandex\.ru|mc\.yandex\.com|mc\.webvisor\.org|metrika\.yandex\.ru)`, true),
	service("Yandex.Direct", `(an\.yandex\.ru|yabs\.yandex\.ru)`, true),
	service("Yandex Maps", `(api-maps\.yandex\.ru|enterprise\.api-maps\.yandex\.ru)`, false),
	service("Yandex", `(yandex\.ru|yandex\.net|yastatic\.net)`, false),
	service("Top.Mail.Ru", `(top-fwz1\.mail\.ru|top\.mail\.ru)`, true),
	service("VK Pixel", `(vk\.com|vk\.ru|userapi\.com)`, true),
	service("LiveInternet", `counter\.yadro\.ru`, true),
	service("Rambler Top100", `(counter\.rambler\.ru|top100\.ru)`, true),
	service("Roistat", `roistat\.com`, true),
	service("Calltouch", `calltouch\.ru`, true),
	service("Carrot quest", `carrotquest\.io`, false),
	service("JivoSite", `(jivosite\.com|jivo\.ru)`, false),
	service("OK.ru", `ok\.ru`, false),
	service("Rutube", `rutube\.ru`, false),
}

// ClassifyNetwork buckets every third-party request by service. Requests to
// the audited site itself are not classified.
func ClassifyNetwork(requests []string, base *url.URL) models.NetworkFinding {
	f := models.NetworkFinding{
		TotalRequests:   len(requests),
		Analytics:       []string{},
		ForeignServices: []string{},
		RussianServices: []string{},
	}
	for _, raw := range requests {
		host := requestHost(raw)
		if host == "" || isFirstParty(host, base) {
			continue
		}
		if rule, ok := firstRule(russianServices, host); ok {
			f.RussianServices = append(f.RussianServices, rule.Label)
			if rule.Analytics {
				f.Analytics = append(f.Analytics, rule.Label)
			}
			continue
		}
		if rule, ok := firstRule(foreignServices, host); ok {
			f.ForeignServices = append(f.ForeignServices, rule.Label)
			if rule.Analytics {
				f.Analytics = append(f.Analytics, rule.Label)
			}
		}
	}
	f.Analytics = lo.Uniq(f.Analytics)
	f.ForeignServices = lo.Uniq(f.ForeignServices)
	f.RussianServices = lo.Uniq(f.RussianServices)
	return f
}

func firstRule(bank []serviceRule, host string) (serviceRule, bool) {
	for _, r := range bank {
		if r.Re.MatchString(host) {
			return r, true
		}
	}
	return serviceRule{}, false
}

func requestHost(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// isFirstParty reports whether host is the audited host or one of its
// subdomains, ignoring a leading "www.".
func isFirstParty(host string, base *url.URL) bool {
	if base == nil {
		return false
	}
	site := strings.TrimPrefix(strings.ToLower(base.Hostname()), "www.")
	if site == "" {
		return false
	}
	host = strings.TrimPrefix(host, "www.")
	return host == site || strings.HasSuffix(host, "."+site)
}
