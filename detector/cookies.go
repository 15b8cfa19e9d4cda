package detector

import (
	"strings"

	"github.com/samber/lo"
	"github.com/use-agent/complyscan/engine"
	"github.com/use-agent/complyscan/models"
)

// trackingCookiePrefixes are name prefixes of analytics and advertising
// cookies, matched case-sensitively as vendors set them.
var trackingCookiePrefixes = []string{
	// Google Analytics / Ads / Tag Manager
	"_ga", "_gid", "_gat", "_gcl_", "__utm", "_dc_gtm_", "IDE", "NID", "DSID", "__gads", "__gpi",
	// Yandex.Metrica
	"_ym_", "_ym", "yandexuid", "yuidss", "ymex", "i", "yabs-sid",
	// Facebook / Meta
	"_fbp", "_fbc", "fr",
	// VK / Mail.ru / Top.Mail.ru
	"tmr_", "_tmr", "remixlang", "vk_", "mrcu",
	// Microsoft
	"_uetsid", "_uetvid", "_clck", "_clsk", "MUID", "_clarity",
	// Others
	"_hjSession", "_hjid", "_hjFirstSeen", "hubspotutk", "__hstc", "__hssc",
	"_pin_unauth", "_ttp", "_tt_enable_cookie", "amplitude_id", "mp_", "ajs_",
	"_rdt_uuid", "li_sugr", "bcookie", "lidc", "_li", "roistat", "_ct_", "calltouch",
	"jivo_", "_cmg_", "carrotquest", "cted",
}

// exactOnlyCookies are too short to be used as prefixes.
var exactOnlyCookies = map[string]struct{}{"i": {}, "fr": {}, "IDE": {}, "NID": {}, "_ym": {}, "_li": {}}

// isTrackingCookie reports whether name belongs to a known tracker.
func isTrackingCookie(name string) bool {
	if _, ok := exactOnlyCookies[name]; ok {
		return true
	}
	for _, p := range trackingCookiePrefixes {
		if _, exact := exactOnlyCookies[p]; exact {
			continue
		}
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// ClassifyCookies reports tracking cookies observed in the jar. The engine
// never interacts with a consent banner, so every tracking cookie it sees
// was set before consent.
func ClassifyCookies(cookies []engine.Cookie) models.CookieTimingFinding {
	names := lo.FilterMap(cookies, func(c engine.Cookie, _ int) (string, bool) {
		return c.Name, isTrackingCookie(c.Name)
	})
	tracking := lo.Uniq(names)
	return models.CookieTimingFinding{
		Violation:       len(tracking) > 0,
		TrackingCookies: tracking,
		TotalCookies:    len(cookies),
	}
}
