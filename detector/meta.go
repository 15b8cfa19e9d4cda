package detector

import (
	"encoding/json"
	"maps"
	"net/url"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
	"github.com/use-agent/complyscan/models"
)

// privacyMetaSelector matches head tags that point at privacy documents.
const privacyMetaSelector = "link[rel~='privacy-policy'], link[rel~='privacy'], link[rel~='terms-of-service'], " +
	"meta[name*='privacy'], meta[property*='privacy'], meta[name='dcterms.rights'], meta[name='dc.rights']"

// organizationTypes are schema.org types treated as the site owner.
var organizationTypes = map[string]struct{}{
	"Organization": {}, "Corporation": {}, "LocalBusiness": {}, "NGO": {},
	"GovernmentOrganization": {}, "EducationalOrganization": {}, "OnlineStore": {},
	"Store": {}, "NewsMediaOrganization": {}, "MedicalOrganization": {},
}

// ReadMeta collects privacy meta tags and JSON-LD structured data. A
// script block that is not valid JSON is skipped.
func ReadMeta(doc *goquery.Document, base *url.URL) models.MetaFinding {
	var f models.MetaFinding
	if doc == nil {
		return f
	}

	var links []string
	doc.Find(privacyMetaSelector).Each(func(_ int, s *goquery.Selection) {
		f.HasPrivacyMeta = true
		target := s.AttrOr("href", "")
		if target == "" {
			target = s.AttrOr("content", "")
		}
		target = strings.TrimSpace(target)
		if looksLikeURL(target) {
			links = append(links, resolve(base, target))
		}
	})
	f.PrivacyLinks = lo.Uniq(links)

	doc.Find("script[type='application/ld+json']").Each(func(_ int, s *goquery.Selection) {
		var block any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &block); err != nil {
			return
		}
		f.JSONLDBlocks++
		walkJSONLD(block, &f, base)
	})

	f.Title = strings.TrimSpace(doc.Find("title").First().Text())
	f.Language = strings.TrimSpace(doc.Find("html").AttrOr("lang", ""))
	f.SiteName = strings.TrimSpace(doc.Find("meta[property='og:site_name']").AttrOr("content", ""))
	return f
}

// walkJSONLD visits every object of a JSON-LD value, including @graph
// members and nested properties.
func walkJSONLD(v any, f *models.MetaFinding, base *url.URL) {
	switch node := v.(type) {
	case []any:
		for _, item := range node {
			walkJSONLD(item, f, base)
		}
	case map[string]any:
		types := jsonLDTypes(node["@type"])
		name := jsonLDString(node["name"])
		if f.Organization == "" && lo.SomeBy(types, isOrganizationType) {
			f.Organization = lo.CoalesceOrEmpty(name, jsonLDString(node["legalName"]), "unnamed")
		}
		if f.WebSite == "" && lo.Contains(types, "WebSite") {
			f.WebSite = lo.CoalesceOrEmpty(jsonLDString(node["url"]), name, "unnamed")
		}
		if f.JSONLDPrivacyPolicy == "" {
			if p := jsonLDString(node["privacyPolicy"]); p != "" {
				f.JSONLDPrivacyPolicy = resolve(base, p)
			}
		}
		for _, key := range slices.Sorted(maps.Keys(node)) {
			if key == "@context" {
				continue
			}
			switch child := node[key]; child.(type) {
			case map[string]any, []any:
				walkJSONLD(child, f, base)
			}
		}
	}
}

func isOrganizationType(t string) bool {
	_, ok := organizationTypes[t]
	return ok
}

// jsonLDTypes normalises @type, which may be a string or a list.
func jsonLDTypes(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		return lo.FilterMap(t, func(item any, _ int) (string, bool) {
			s, ok := item.(string)
			return s, ok
		})
	}
	return nil
}

// jsonLDString reads a text value that may also be given as an object
// with "url" or "@id", or as a list whose first element is used.
func jsonLDString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		return lo.CoalesceOrEmpty(jsonLDString(t["url"]), jsonLDString(t["@id"]))
	case []any:
		if len(t) > 0 {
			return jsonLDString(t[0])
		}
	}
	return ""
}

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "/") || strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
