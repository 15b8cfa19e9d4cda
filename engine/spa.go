package engine

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// SPAThresholds tunes the SPA shell classifier. The defaults were tuned on
// Russian commercial sites and are not assumed to generalise.
type SPAThresholds struct {
	// MaxBodyText is the visible body text length (in characters) below
	// which a page may be a shell.
	MaxBodyText int

	// MinScripts is the number of external scripts a shell must exceed.
	MinScripts int

	// NearEmptyHTML is the trimmed HTML length below which the static
	// response is treated as having no content at all.
	NearEmptyHTML int
}

// DefaultSPAThresholds returns the stock thresholds.
func DefaultSPAThresholds() SPAThresholds {
	return SPAThresholds{MaxBodyText: 500, MinScripts: 3, NearEmptyHTML: 100}
}

// mountIDs are element ids used by common frontend frameworks as the
// client-side render root.
var mountIDs = map[string]struct{}{
	"root":      {},
	"app":       {},
	"__next":    {},
	"__nuxt":    {},
	"___gatsby": {},
	"svelte":    {},
	"q-app":     {},
}

// mountAttrs mark a render root regardless of its id.
var mountAttrs = []string{"ng-version", "data-reactroot", "data-v-app", "data-server-rendered"}

// ShellStats is what the classifier measured.
type ShellStats struct {
	BodyTextLen     int
	ExternalScripts int
	HasMountMarker  bool
}

// MeasureShell tokenizes rawHTML once and collects the SPA shell signals.
func MeasureShell(rawHTML string) ShellStats {
	var stats ShellStats
	var text strings.Builder

	tokenizer := html.NewTokenizer(strings.NewReader(rawHTML))
	inBody := false
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			stats.BodyTextLen = utf8.RuneCountInString(strings.TrimSpace(text.String()))
			return stats
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := tokenizer.Token()
			switch tok.Data {
			case "body":
				inBody = true
			case "script":
				if hasAttr(tok, "src") {
					stats.ExternalScripts++
				}
				if tt == html.StartTagToken {
					skipDepth++
				}
			case "style", "noscript", "template":
				if tt == html.StartTagToken {
					skipDepth++
				}
			}
			if !stats.HasMountMarker && isMountMarker(tok) {
				stats.HasMountMarker = true
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			switch string(tn) {
			case "script", "style", "noscript", "template":
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if inBody && skipDepth == 0 {
				if t := strings.TrimSpace(string(tokenizer.Text())); t != "" {
					text.WriteString(t)
					text.WriteByte(' ')
				}
			}
		}
	}
}

// IsSPAShell reports whether rawHTML looks like a client-rendered shell:
// little visible text, a framework mount point and more than a handful of
// external scripts. It is a pure function of its inputs.
func IsSPAShell(rawHTML string, th SPAThresholds) bool {
	if strings.TrimSpace(rawHTML) == "" {
		return false
	}
	s := MeasureShell(rawHTML)
	return s.BodyTextLen < th.MaxBodyText && s.HasMountMarker && s.ExternalScripts > th.MinScripts
}

// IsNearEmpty reports whether the static response carries no usable document.
func IsNearEmpty(rawHTML string, th SPAThresholds) bool {
	return len(strings.TrimSpace(rawHTML)) < th.NearEmptyHTML
}

func isMountMarker(tok html.Token) bool {
	for _, a := range tok.Attr {
		if a.Key == "id" {
			if _, ok := mountIDs[a.Val]; ok {
				return true
			}
		}
		for _, m := range mountAttrs {
			if a.Key == m {
				return true
			}
		}
	}
	return false
}

func hasAttr(tok html.Token, key string) bool {
	for _, a := range tok.Attr {
		if a.Key == key && strings.TrimSpace(a.Val) != "" {
			return true
		}
	}
	return false
}
