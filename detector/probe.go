package detector

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/use-agent/complyscan/models"
	"golang.org/x/sync/errgroup"
)

// DefaultLegalPaths are probed relative to the site origin.
var DefaultLegalPaths = []string{
	"/privacy",
	"/privacy-policy",
	"/policy",
	"/politika-konfidencialnosti",
	"/politika-konfidentsialnosti",
	"/personal-data",
	"/soglasie",
	"/agreement",
	"/terms",
	"/legal",
	"/cookie-policy",
}

// maxConcurrentProbes bounds parallel probes against one origin.
const maxConcurrentProbes = 4

// Prober checks which legal documents exist on a site without downloading
// them.
type Prober struct {
	client    *http.Client
	timeout   time.Duration
	paths     []string
	userAgent string
}

// NewProber creates a Prober. A nil client uses http.DefaultClient, empty
// paths use DefaultLegalPaths.
func NewProber(client *http.Client, timeout time.Duration, paths []string, userAgent string) *Prober {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if len(paths) == 0 {
		paths = DefaultLegalPaths
	}
	return &Prober{client: client, timeout: timeout, paths: paths, userAgent: userAgent}
}

// Probe issues one HEAD per legal path against the origin of target and
// partitions the paths by outcome, in configured order. A path is found
// when the response after redirects is 2xx or 3xx. Failures of any kind
// count as not found.
func (p *Prober) Probe(ctx context.Context, target *url.URL) models.LegalPagesFinding {
	found := make([]bool, len(p.paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentProbes)
	for i, path := range p.paths {
		g.Go(func() error {
			found[i] = p.exists(gctx, originURL(target, path))
			return nil
		})
	}
	_ = g.Wait()

	out := models.LegalPagesFinding{Found: []string{}, NotFound: []string{}}
	for i, path := range p.paths {
		if found[i] {
			out.Found = append(out.Found, path)
		} else {
			out.NotFound = append(out.NotFound, path)
		}
	}
	return out
}

// exists probes one URL. Servers that refuse HEAD get a single ranged GET.
func (p *Prober) exists(ctx context.Context, u string) bool {
	status, err := p.request(ctx, http.MethodHead, u)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = p.request(ctx, http.MethodGet, u)
	}
	if err != nil {
		slog.Debug("legal page probe failed", "url", u, "error", err)
		return false
	}
	return status >= 200 && status < 400
}

func (p *Prober) request(ctx context.Context, method, u string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return 0, fmt.Errorf("probe: build request: %w", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en;q=0.5")
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probe: %s: %w", method, err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	resp.Body.Close()
	return resp.StatusCode, nil
}

// originURL joins path onto the scheme and host of target.
func originURL(target *url.URL, path string) string {
	return (&url.URL{Scheme: target.Scheme, Host: target.Host, Path: path}).String()
}
