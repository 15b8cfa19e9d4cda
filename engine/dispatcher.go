package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/complyscan/models"
)

// EmptyDocument stands in for a page that could not be fetched at all.
const EmptyDocument = "<html><head></head><body></body></html>"

// Rendering is the outcome of the strategy decision: the HTML that every
// extractor will analyse plus whatever cookies and requests were observed.
type Rendering struct {
	HTML            string
	Cookies         []Cookie
	NetworkRequests []string
	FinalURL        string

	// Method is models.RenderingStatic or models.RenderingDynamic and names
	// the fetch whose HTML ended up in HTML.
	Method string

	SPAShell         bool
	DynamicAttempted bool
	DynamicElapsed   time.Duration
}

// DispatcherConfig controls the rendering strategy.
type DispatcherConfig struct {
	// DynamicTimeout is the budget of a primary browser render. The
	// opportunistic harvest render gets half of it.
	DynamicTimeout time.Duration

	SPA SPAThresholds

	// DynamicGrowth is the relative size increase of the rendered HTML over
	// the static HTML above which the rendered HTML is preferred.
	DynamicGrowth float64
}

// Dispatcher decides per request between the cheap static HTML and an
// expensive browser render.
type Dispatcher struct {
	dynamic DynamicFetcher
	cfg     DispatcherConfig
}

// NewDispatcher creates a Dispatcher. dynamic may be nil, in which case
// every request is served from static HTML.
func NewDispatcher(dynamic DynamicFetcher, cfg DispatcherConfig) *Dispatcher {
	if cfg.DynamicTimeout <= 0 {
		cfg.DynamicTimeout = 30 * time.Second
	}
	if cfg.SPA == (SPAThresholds{}) {
		cfg.SPA = DefaultSPAThresholds()
	}
	if cfg.DynamicGrowth <= 0 {
		cfg.DynamicGrowth = 0.2
	}
	return &Dispatcher{dynamic: dynamic, cfg: cfg}
}

// Render applies the strategy to an already fetched static document:
//
//  1. SPA shell or near-empty static HTML with a browser available: the
//     browser render is primary (HTML, cookies and requests).
//  2. Adequate static HTML with a browser available: a half-budget render
//     harvests cookies and requests; its HTML wins only if it is more than
//     DynamicGrowth larger.
//  3. Nothing usable: EmptyDocument, method static.
//
// Render never fails; browser errors degrade to the static path.
func (d *Dispatcher) Render(ctx context.Context, url, staticHTML string) *Rendering {
	out := &Rendering{
		HTML:     staticHTML,
		FinalURL: url,
		Method:   models.RenderingStatic,
		SPAShell: IsSPAShell(staticHTML, d.cfg.SPA),
	}
	nearEmpty := IsNearEmpty(staticHTML, d.cfg.SPA)
	canDynamic := d.dynamic != nil && d.dynamic.Available()

	switch {
	case canDynamic && (out.SPAShell || nearEmpty):
		slog.Debug("static HTML insufficient, rendering in browser",
			"url", url, "spaShell", out.SPAShell, "nearEmpty", nearEmpty)
		if res := d.fetchDynamic(ctx, url, d.cfg.DynamicTimeout, out); res != nil && strings.TrimSpace(res.HTML) != "" {
			out.HTML = res.HTML
			out.Cookies = res.Cookies
			out.NetworkRequests = res.NetworkRequests
			out.FinalURL = res.FinalURL
			out.Method = models.RenderingDynamic
		}

	case canDynamic:
		if res := d.fetchDynamic(ctx, url, d.cfg.DynamicTimeout/2, out); res != nil {
			out.Cookies = res.Cookies
			out.NetworkRequests = res.NetworkRequests
			if float64(len(res.HTML)) > float64(len(staticHTML))*(1+d.cfg.DynamicGrowth) {
				slog.Debug("rendered HTML substantially larger, using it as content source",
					"url", url, "static", len(staticHTML), "dynamic", len(res.HTML))
				out.HTML = res.HTML
				out.FinalURL = res.FinalURL
				out.Method = models.RenderingDynamic
			}
		}
	}

	if strings.TrimSpace(out.HTML) == "" {
		out.HTML = EmptyDocument
		out.Method = models.RenderingStatic
	}
	return out
}

// fetchDynamic runs one browser render and swallows its failure.
func (d *Dispatcher) fetchDynamic(ctx context.Context, url string, timeout time.Duration, out *Rendering) *FetchResult {
	out.DynamicAttempted = true
	start := time.Now()
	res, err := d.dynamic.Fetch(ctx, url, timeout)
	out.DynamicElapsed = time.Since(start)
	if err != nil {
		if errors.Is(err, ErrBrowserUnavailable) {
			slog.Debug("browser unavailable, staying on static HTML", "url", url)
		} else {
			slog.Warn("dynamic render failed, staying on static HTML", "url", url, "error", err)
		}
		return nil
	}
	return res
}
