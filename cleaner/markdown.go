package cleaner

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// DefaultSnippetLength is the rune limit used when callers pass zero.
const DefaultSnippetLength = 300

var (
	mdLinkRe     = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)
	mdMarkupRe   = regexp.MustCompile("[*_`#>|]+")
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Cleaner turns HTML fragments into short human-readable text. The
// converter is created once and reused (goroutine-safe).
type Cleaner struct {
	mdConverter *converter.Converter
}

// NewCleaner initialises the Cleaner with a pre-configured Markdown converter.
func NewCleaner() *Cleaner {
	return &Cleaner{mdConverter: newMarkdownConverter()}
}

// newMarkdownConverter strips script, style, iframe, noscript and form
// noise (base plugin) and renders the rest as CommonMark with compact tables.
func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
}

// ToMarkdown converts an HTML fragment to Markdown. domain resolves
// relative links.
func (c *Cleaner) ToMarkdown(fragment string, domain string) (string, error) {
	return c.mdConverter.ConvertString(fragment, converter.WithDomain(domain))
}

// Snippet renders fragment as a single line of plain text of at most
// maxRunes runes. Link targets and Markdown markup are dropped.
func (c *Cleaner) Snippet(fragment string, domain string, maxRunes int) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	if maxRunes <= 0 {
		maxRunes = DefaultSnippetLength
	}

	md, err := c.ToMarkdown(fragment, domain)
	if err != nil {
		slog.Debug("markdown: conversion failed", "error", err)
		return ""
	}

	text := mdLinkRe.ReplaceAllString(md, "$1")
	text = mdMarkupRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))

	runes := []rune(text)
	if len(runes) > maxRunes {
		return strings.TrimSpace(string(runes[:maxRunes])) + "…"
	}
	return text
}
