package cleaner

import (
	"log/slog"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// PageInfo is the descriptive metadata of a page as seen by readability.
type PageInfo struct {
	Title    string
	SiteName string
	Language string
	Excerpt  string
}

// ExtractPageInfo runs the Mozilla Readability algorithm on rawHTML and
// keeps only its metadata. Readability failures give an empty PageInfo;
// the audit must never fail because a page is not article-shaped.
func ExtractPageInfo(rawHTML string, sourceURL string) PageInfo {
	if strings.TrimSpace(rawHTML) == "" {
		return PageInfo{}
	}

	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Debug("readability: invalid source URL", "url", sourceURL, "error", err)
		return PageInfo{}
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Debug("readability: extraction failed", "url", sourceURL, "error", err)
		return PageInfo{}
	}

	return PageInfo{
		Title:    strings.TrimSpace(article.Title),
		SiteName: strings.TrimSpace(article.SiteName),
		Language: strings.TrimSpace(article.Language),
		Excerpt:  strings.TrimSpace(article.Excerpt),
	}
}
