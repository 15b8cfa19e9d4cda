package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/complyscan/config"
	"github.com/use-agent/complyscan/models"
	"github.com/ysmood/gson"
)

// bannerWaitSelectors are waited on briefly after load so that consent
// banners injected late by CMP scripts are present in the captured HTML.
var bannerWaitSelectors = []string{
	"#onetrust-banner-sdk",
	"#CybotCookiebotDialog",
	"#usercentrics-root",
	".qc-cmp2-container",
	"#didomi-host",
	".cc-window",
	"[class*='cookie']",
	"[id*='cookie']",
	"[class*='consent']",
	"[id*='consent']",
	"[class*='gdpr']",
}

// RodEngineConfig controls how each browsing context is set up.
type RodEngineConfig struct {
	UserAgent      string
	Locale         string
	Timezone       string
	ViewportWidth  int
	ViewportHeight int
	Stealth        bool

	DOMLoadShare     float64
	NetworkIdleShare float64
	BannerWait       time.Duration
	ScrollPause      time.Duration
}

// RodEngineConfigFrom builds the engine config from application config.
func RodEngineConfigFrom(b config.BrowserConfig, d config.DetectorConfig) RodEngineConfig {
	return RodEngineConfig{
		UserAgent:        b.UserAgent,
		Locale:           b.Locale,
		Timezone:         b.Timezone,
		ViewportWidth:    b.ViewportWidth,
		ViewportHeight:   b.ViewportHeight,
		Stealth:          b.Stealth,
		DOMLoadShare:     d.DOMLoadShare,
		NetworkIdleShare: d.NetworkIdleShare,
		BannerWait:       d.BannerWait,
	}
}

// RodEngine is the dynamic fetcher. Each Fetch opens its own incognito
// browser context on the shared browser and always disposes it.
type RodEngine struct {
	pool *BrowserPool[*RodBrowser]
	cfg  RodEngineConfig
}

// NewRodEngine creates a RodEngine backed by pool.
func NewRodEngine(pool *BrowserPool[*RodBrowser], cfg RodEngineConfig) *RodEngine {
	if cfg.DOMLoadShare <= 0 {
		cfg.DOMLoadShare = 0.6
	}
	if cfg.NetworkIdleShare <= 0 {
		cfg.NetworkIdleShare = 0.3
	}
	if cfg.BannerWait <= 0 {
		cfg.BannerWait = 3 * time.Second
	}
	if cfg.ScrollPause <= 0 {
		cfg.ScrollPause = 400 * time.Millisecond
	}
	if cfg.Locale == "" {
		cfg.Locale = "ru-RU"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = config.DefaultUserAgent
	}
	if cfg.ViewportWidth <= 0 || cfg.ViewportHeight <= 0 {
		cfg.ViewportWidth, cfg.ViewportHeight = 1920, 1080
	}
	return &RodEngine{pool: pool, cfg: cfg}
}

func (e *RodEngine) Available() bool { return e.pool.Available() }

// Harvest reserve and banner cap, as fractions of the render budget.
const (
	harvestShare   = 0.1
	minHarvest     = time.Second
	bannerShareCap = 0.2
)

// renderPlan holds phase deadlines as offsets from the start of a render.
// DOM <= Idle <= Wait < the render timeout; whatever is left after Wait is
// reserved for reading HTML, cookies and requests.
type renderPlan struct {
	DOM  time.Duration
	Idle time.Duration
	Wait time.Duration
}

// planRender splits timeout so that the best-effort phases can never eat
// the harvest. The banner wait is carved out of the network-idle phase.
func planRender(timeout time.Duration, cfg RodEngineConfig) renderPlan {
	harvest := min(max(share(timeout, harvestShare), minHarvest), timeout/2)
	wait := timeout - harvest
	banner := min(cfg.BannerWait, share(wait, bannerShareCap))
	idle := min(share(timeout, cfg.DOMLoadShare+cfg.NetworkIdleShare), wait-banner)
	dom := min(share(timeout, cfg.DOMLoadShare), idle)
	return renderPlan{DOM: dom, Idle: idle, Wait: wait}
}

// Fetch renders url.
//
// Lifecycle:
//
//  1. Acquire the shared browser    – fails fast if the capability is gone
//  2. Incognito context + page      – own cookie jar, DEFER dispose
//  3. Emulation                     – UA, locale, timezone, viewport, stealth
//  4. Request recorder + idle waiter – registered BEFORE navigation
//  5. Navigate, wait DOMContentLoaded (plan.DOM)
//  6. Wait request idle             – best effort (plan.Idle)
//  7. Wait banner selectors, scroll – best effort (plan.Wait)
//  8. Harvest HTML, context cookies, request URLs in the reserved tail
//
// Only a failed navigation is an error. Phases that run out of time are
// skipped and the render is harvested as it stands.
func (e *RodEngine) Fetch(ctx context.Context, url string, timeout time.Duration) (*FetchResult, error) {
	// ── 1. Acquire browser ───────────────────────────────────────────
	browser, ok := e.pool.Acquire()
	if !ok {
		return nil, ErrBrowserUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	start := time.Now()
	plan := planRender(timeout, e.cfg)

	// ── 2. Isolated browsing context ─────────────────────────────────
	incognito, err := browser.Incognito()
	if err != nil {
		return nil, models.NewDetectError(models.ErrCodeBrowserUnavailable, "failed to create browsing context", err)
	}
	// The incognito browser is not bound to ctx, so disposal still works
	// after the request deadline has passed.
	defer func() {
		if closeErr := incognito.Close(); closeErr != nil {
			slog.Warn("cleanup: failed to dispose browsing context", "error", closeErr)
		}
	}()

	page, err := incognito.Page(proto.TargetCreateTarget{BrowserContextID: incognito.BrowserContextID})
	if err != nil {
		return nil, models.NewDetectError(models.ErrCodeBrowserUnavailable, "failed to open page", err)
	}
	defer func() { _ = page.Close() }()

	// ── 3. Emulation ─────────────────────────────────────────────────
	e.preparePage(page)

	// ── 4. Listeners before navigation ───────────────────────────────
	rec, stopRecording := recordRequests(ctx, page)
	defer stopRecording()

	idleCtx, idleCancel := context.WithDeadline(ctx, start.Add(plan.Idle))
	defer idleCancel()
	waitIdle := page.Context(idleCtx).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)

	domCtx, domCancel := context.WithDeadline(ctx, start.Add(plan.DOM))
	defer domCancel()
	nav := page.Context(domCtx)
	waitDOM := nav.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)

	// ── 5. Navigate ──────────────────────────────────────────────────
	if err := nav.Navigate(url); err != nil {
		return nil, categorizeError(err, "navigation to target URL failed")
	}
	waitDOM()
	if domCtx.Err() != nil && ctx.Err() == nil {
		slog.Debug("DOMContentLoaded not observed within budget, continuing", "url", url)
	}

	// ── 6. Network idle (best effort) ────────────────────────────────
	waitIdle()

	// ── 7. Consent banner mount and lazy-load scroll (best effort) ───
	waitCtx, waitCancel := context.WithDeadline(ctx, start.Add(plan.Wait))
	defer waitCancel()

	bannerCtx, bannerCancel := context.WithTimeout(waitCtx, e.cfg.BannerWait)
	if _, err := page.Context(bannerCtx).Element(strings.Join(bannerWaitSelectors, ", ")); err != nil {
		slog.Debug("no consent banner selector appeared", "url", url)
	}
	bannerCancel()

	if waitCtx.Err() == nil {
		e.scrollForLazyContent(waitCtx, page.Context(waitCtx))
	}

	// ── 8. Harvest ───────────────────────────────────────────────────
	p := page.Context(ctx)
	rawHTML, err := p.HTML()
	if err != nil {
		if ctx.Err() != nil {
			return nil, categorizeError(ctx.Err(), "render canceled before harvest")
		}
		slog.Warn("failed to read rendered HTML, keeping cookies and requests", "url", url, "error", err)
		rawHTML = ""
	}

	cookies := collectCookies(ctx, incognito, p)
	stopRecording()

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = url
	}

	slog.Debug("dynamic render complete",
		"url", url,
		"htmlBytes", len(rawHTML),
		"cookies", len(cookies),
		"requests", len(rec.URLs()),
		"elapsed", time.Since(start),
	)

	return &FetchResult{
		HTML:            rawHTML,
		Cookies:         cookies,
		NetworkRequests: rec.URLs(),
		FinalURL:        finalURL,
	}, nil
}

// preparePage applies per-context emulation. Every step is best effort.
func (e *RodEngine) preparePage(page *rod.Page) {
	_ = proto.NetworkEnable{}.Call(page)

	acceptLanguage := e.cfg.Locale + "," + strings.SplitN(e.cfg.Locale, "-", 2)[0] + ";q=0.9,en;q=0.5"
	if err := (proto.NetworkSetUserAgentOverride{
		UserAgent:      e.cfg.UserAgent,
		AcceptLanguage: acceptLanguage,
	}).Call(page); err != nil {
		slog.Debug("user agent override failed", "error", err)
	}
	_ = proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(map[string]string{"Accept-Language": acceptLanguage}),
	}.Call(page)

	if e.cfg.Locale != "" {
		_ = proto.EmulationSetLocaleOverride{Locale: e.cfg.Locale}.Call(page)
	}
	if e.cfg.Timezone != "" {
		_ = proto.EmulationSetTimezoneOverride{TimezoneID: e.cfg.Timezone}.Call(page)
	}
	_ = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             e.cfg.ViewportWidth,
		Height:            e.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
		Mobile:            false,
	})

	if e.cfg.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}
}

// scrollForLazyContent scrolls to the middle, the bottom and back to the top
// with short pauses in between.
func (e *RodEngine) scrollForLazyContent(ctx context.Context, p *rod.Page) {
	steps := []string{
		`() => window.scrollTo(0, (document.body || document.documentElement).scrollHeight / 2)`,
		`() => window.scrollTo(0, (document.body || document.documentElement).scrollHeight)`,
		`() => window.scrollTo(0, 0)`,
	}
	for _, js := range steps {
		if _, err := p.Eval(js); err != nil {
			slog.Debug("scroll step failed", "error", err)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(e.cfg.ScrollPause):
		}
	}
}

// collectCookies reads every cookie of the browsing context, falling back
// to the cookies visible to the current page.
func collectCookies(ctx context.Context, incognito *rod.Browser, p *rod.Page) []Cookie {
	var raw []*proto.NetworkCookie
	res, err := proto.StorageGetCookies{BrowserContextID: incognito.BrowserContextID}.Call(incognito.Context(ctx))
	if err == nil {
		raw = res.Cookies
	} else {
		slog.Debug("context cookie read failed, using page cookies", "error", err)
		raw, _ = p.Cookies(nil)
	}

	cookies := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, Cookie{Name: c.Name, Value: c.Value, Domain: c.Domain})
	}
	return cookies
}

// share returns fraction f of d.
func share(d time.Duration, f float64) time.Duration {
	return time.Duration(float64(d) * f)
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw errors into typed DetectErrors.
func categorizeError(err error, msg string) *models.DetectError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewDetectError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewDetectError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewDetectError(models.ErrCodeNavigation, msg, err)
	}
}
