package detector

// cmpSignatures identifies consent management platforms by the scripts,
// globals and container ids they leave in the page. First match wins.
var cmpSignatures = []Pattern{
	pattern("OneTrust", `(?i)(cdn\.cookielaw\.org|optanon|onetrust)`),
	pattern("Cookiebot", `(?i)(consent\.cookiebot\.(com|eu)|CybotCookiebot|cookiebot)`),
	pattern("Usercentrics", `(?i)(usercentrics)`),
	pattern("Quantcast Choice", `(?i)(quantcast\.mgr\.consensu\.org|qc-cmp2|__tcfapi.*quantcast)`),
	pattern("Didomi", `(?i)(sdk\.privacy-center\.org|didomi)`),
	pattern("TrustArc", `(?i)(consent\.trustarc\.com|truste\.com|trustarc)`),
	pattern("Sourcepoint", `(?i)(sourcepoint|sp-prod\.net)`),
	pattern("Osano", `(?i)(cmp\.osano\.com|osano-cm)`),
	pattern("CookieYes", `(?i)(cdn-cookieyes\.com|cookieyes|cky-consent)`),
	pattern("Complianz", `(?i)(cmplz-cookiebanner|complianz)`),
	pattern("Iubenda", `(?i)(cdn\.iubenda\.com|iubenda)`),
	pattern("Termly", `(?i)(app\.termly\.io|termly)`),
	pattern("Klaro", `(?i)(klaro\.js|klaro-config|kiprotect)`),
	pattern("Cookie Script", `(?i)(cookie-script\.com|cookiescript_injected)`),
	pattern("CookieConsent", `(?i)(cookieconsent(\.min)?\.js|cookieconsent\.initialise|cc-window)`),
}

// DetectCMP returns the name of the first consent management platform whose
// signature occurs in rawHTML, or "".
func DetectCMP(rawHTML string) string {
	if p, ok := firstMatch(cmpSignatures, rawHTML); ok {
		return p.Label
	}
	return ""
}
