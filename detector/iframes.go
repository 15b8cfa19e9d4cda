package detector

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
	"github.com/use-agent/complyscan/models"
)

// CountIframes counts embedded frames and those served by another site.
// Sources lists third-party frame URLs without duplicates.
func CountIframes(doc *goquery.Document, base *url.URL) models.IframeFinding {
	var f models.IframeFinding
	if doc == nil {
		return f
	}
	var sources []string
	doc.Find("iframe").Each(func(_ int, s *goquery.Selection) {
		f.Total++
		src := strings.TrimSpace(s.AttrOr("src", ""))
		if src == "" {
			src = strings.TrimSpace(s.AttrOr("data-src", ""))
		}
		if src == "" || strings.HasPrefix(src, "about:") || strings.HasPrefix(src, "javascript:") {
			return
		}
		abs := resolve(base, src)
		host := requestHost(abs)
		if host == "" || isFirstParty(host, base) {
			return
		}
		f.ThirdParty++
		sources = append(sources, abs)
	})
	f.Sources = lo.Uniq(sources)
	return f
}
