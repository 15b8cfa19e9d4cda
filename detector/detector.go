// Package detector turns a fetched page into a compliance detection result.
//
// Run is the single entry point: it validates the URL, fetches the page
// (statically, and in a headless browser when the strategy asks for it),
// probes the origin for legal documents in parallel, runs every signal
// extractor and scores the result. Extractors are pure functions over a
// goquery document, the cookie jar and the request list, and never fail.
package detector

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/use-agent/complyscan/cleaner"
	"github.com/use-agent/complyscan/engine"
	"github.com/use-agent/complyscan/models"
	"golang.org/x/sync/errgroup"
)

// bannerSnippetRunes caps CookieBannerFinding.Text.
const bannerSnippetRunes = 300

// Detector wires the fetch strategy, the legal-page prober and the
// extractors together. It is safe for concurrent use.
type Detector struct {
	static     engine.StaticFetcher
	dispatcher *engine.Dispatcher
	prober     *Prober
	cleaner    *cleaner.Cleaner
}

// New creates a Detector. cl may be nil, in which case banner text
// snippets are not produced.
func New(static engine.StaticFetcher, dispatcher *engine.Dispatcher, prober *Prober, cl *cleaner.Cleaner) *Detector {
	return &Detector{
		static:     static,
		dispatcher: dispatcher,
		prober:     prober,
		cleaner:    cl,
	}
}

// ValidateURL accepts only absolute http(s) URLs with a host.
func ValidateURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, models.NewDetectError(models.ErrCodeInvalidInput, "url is required", nil)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, models.NewDetectError(models.ErrCodeInvalidInput, "url is not valid", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, models.NewDetectError(models.ErrCodeInvalidInput, "url scheme must be http or https", nil)
	}
	if u.Hostname() == "" {
		return nil, models.NewDetectError(models.ErrCodeInvalidInput, "url must have a host", nil)
	}
	return u, nil
}

// Run audits rawURL. The only error is an invalid URL, reported before any
// network I/O; every site-originated failure degrades the result instead.
func (d *Detector) Run(ctx context.Context, rawURL string) (*models.EnhancedDetectionResult, error) {
	target, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	pageURL := target.String()

	// ── Fetch and probe concurrently ─────────────────────────────────
	var (
		rendering     *engine.Rendering
		legal         models.LegalPagesFinding
		staticElapsed time.Duration
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t := time.Now()
		staticHTML := d.static.FetchHTML(gctx, pageURL)
		staticElapsed = time.Since(t)
		rendering = d.dispatcher.Render(gctx, pageURL, staticHTML)
		return nil
	})
	g.Go(func() error {
		legal = d.prober.Probe(gctx, target)
		return nil
	})
	_ = g.Wait()

	// ── Extract ──────────────────────────────────────────────────────
	doc := parseDocument(rendering.HTML)
	base := target
	if fu, err := url.Parse(rendering.FinalURL); err == nil && fu.Hostname() != "" {
		base = fu
	}

	result := &models.EnhancedDetectionResult{
		ID:              uuid.NewString(),
		URL:             pageURL,
		FinalURL:        base.String(),
		DetectedAt:      time.Now().UTC(),
		ConsentForms:    FindConsentForms(doc, base),
		Iframes:         CountIframes(doc, base),
		Network:         ClassifyNetwork(rendering.NetworkRequests, base),
		Meta:            ReadMeta(doc, base),
		LegalPages:      legal,
		RenderingMethod: rendering.Method,
	}

	banner, el := locateBanner(doc)
	banner.CMP = DetectCMP(rendering.HTML)
	if el != nil && d.cleaner != nil {
		if outer, err := goquery.OuterHtml(el); err == nil {
			banner.Text = d.cleaner.Snippet(outer, base.Scheme+"://"+base.Host, bannerSnippetRunes)
		}
	}
	result.CookieBanner = banner

	result.CookiesBeforeConsent = ClassifyCookies(rendering.Cookies)
	result.PrivacyPolicy = privacyPolicy(doc, base, result.Meta, legal, rendering.HTML != engine.EmptyDocument)
	fillPageInfo(&result.Meta, rendering.HTML, base.String())

	result.Confidence = Confidence(result)
	result.Timing = models.DetectionTiming{
		TotalMs:   time.Since(start).Milliseconds(),
		StaticMs:  staticElapsed.Milliseconds(),
		DynamicMs: rendering.DynamicElapsed.Milliseconds(),
	}

	slog.Info("detection complete",
		"url", pageURL,
		"rendering", result.RenderingMethod,
		"banner", result.CookieBanner.Found,
		"policy", result.PrivacyPolicy.Found,
		"forms", result.ConsentForms.Total,
		"trackingCookies", len(result.CookiesBeforeConsent.TrackingCookies),
		"confidence", result.Confidence,
		"totalMs", result.Timing.TotalMs,
	)
	return result, nil
}

// parseDocument never fails: unparsable input yields the empty document.
func parseDocument(rawHTML string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		slog.Debug("html parse failed, analysing empty document", "error", err)
		doc, _ = goquery.NewDocumentFromReader(strings.NewReader(engine.EmptyDocument))
	}
	return doc
}

// privacyPolicy runs the link finder and falls back to JSON-LD and then to
// a legal-page probe hit. Probe hits only count when a page was fetched;
// for an unreachable page they stay in LegalPages.
func privacyPolicy(doc *goquery.Document, base *url.URL, meta models.MetaFinding, legal models.LegalPagesFinding, fetched bool) models.PrivacyPolicyFinding {
	if f := FindPrivacyPolicy(doc, base); f.Found {
		return f
	}
	if meta.JSONLDPrivacyPolicy != "" {
		return models.PrivacyPolicyFinding{
			Found:  true,
			URL:    meta.JSONLDPrivacyPolicy,
			Source: models.PolicySourceJSONLD,
		}
	}
	if !fetched {
		return models.PrivacyPolicyFinding{}
	}
	for _, path := range legal.Found {
		if isPolicyPath(path) {
			return models.PrivacyPolicyFinding{
				Found:  true,
				URL:    originURL(base, path),
				Source: models.PolicySourceLegalPage,
			}
		}
	}
	return models.PrivacyPolicyFinding{}
}

func isPolicyPath(path string) bool {
	lower := strings.ToLower(path)
	for _, sub := range []string{"privacy", "politika", "personal", "policy"} {
		if strings.Contains(lower, sub) && !strings.Contains(lower, "cookie") {
			return true
		}
	}
	return false
}

// fillPageInfo completes missing descriptive metadata from readability.
func fillPageInfo(m *models.MetaFinding, rawHTML, pageURL string) {
	if m.Title != "" && m.SiteName != "" && m.Language != "" {
		return
	}
	info := cleaner.ExtractPageInfo(rawHTML, pageURL)
	if m.Title == "" {
		m.Title = info.Title
	}
	if m.SiteName == "" {
		m.SiteName = info.SiteName
	}
	if m.Language == "" {
		m.Language = info.Language
	}
}
