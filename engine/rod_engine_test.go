package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/complyscan/config"
	"github.com/use-agent/complyscan/models"
)

func TestRodEngine_DisabledPool(t *testing.T) {
	e := NewRodEngine(NewDisabledBrowserPool[*RodBrowser](), RodEngineConfig{})

	assert.False(t, e.Available())
	_, err := e.Fetch(context.Background(), "https://example.ru", time.Second)
	assert.ErrorIs(t, err, ErrBrowserUnavailable)
}

func TestNewRodBrowserPool_DisabledByConfig(t *testing.T) {
	pool := NewRodBrowserPool(config.BrowserConfig{Enabled: false}, nil)

	assert.False(t, pool.Available())
	assert.Equal(t, CapabilityUnavailable, pool.Stats().Capability)
}

func TestNewRodBrowserPool_MissingBinaryFailsFast(t *testing.T) {
	pool := NewRodBrowserPool(config.BrowserConfig{
		Enabled:       true,
		Headless:      true,
		NoSandbox:     true,
		BrowserBin:    t.TempDir() + "/no-such-chromium",
		LaunchTimeout: 5 * time.Second,
	}, nil)
	t.Cleanup(pool.Shutdown)

	acquired := make(chan bool, 1)
	go func() {
		_, ok := pool.Acquire()
		acquired <- ok
	}()

	select {
	case ok := <-acquired:
		assert.False(t, ok)
	case <-time.After(15 * time.Second):
		t.Fatal("Acquire did not return after a failed launch")
	}
	assert.Equal(t, CapabilityUnavailable, pool.Stats().Capability)
	assert.False(t, pool.Available())

	_, ok := pool.Acquire()
	assert.False(t, ok, "the failure is remembered")
}

func TestCategorizeError(t *testing.T) {
	assert.Equal(t, models.ErrCodeTimeout, categorizeError(context.DeadlineExceeded, "x").Code)
	assert.Equal(t, models.ErrCodeTimeout, categorizeError(context.Canceled, "x").Code)
	nav := categorizeError(errors.New("net::ERR_NAME_NOT_RESOLVED"), "navigation failed")
	assert.Equal(t, models.ErrCodeNavigation, nav.Code)
	assert.Equal(t, "navigation failed", nav.Message)
}

func TestShare(t *testing.T) {
	assert.Equal(t, 18*time.Second, share(30*time.Second, 0.6))
	assert.Equal(t, 9*time.Second, share(30*time.Second, 0.3))
}

func TestPlanRender(t *testing.T) {
	cfg := NewRodEngine(nil, RodEngineConfig{}).cfg
	ms := float64(time.Millisecond)

	tests := []struct {
		name            string
		timeout         time.Duration
		dom, idle, wait time.Duration
	}{
		{"harvest budget", 15 * time.Second, 9 * time.Second, 10800 * time.Millisecond, 13500 * time.Millisecond},
		{"primary budget", 30 * time.Second, 18 * time.Second, 24 * time.Second, 27 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := planRender(tt.timeout, cfg)
			assert.InDelta(t, float64(tt.dom), float64(plan.DOM), ms)
			assert.InDelta(t, float64(tt.idle), float64(plan.Idle), ms)
			assert.InDelta(t, float64(tt.wait), float64(plan.Wait), ms)
		})
	}
}

func TestPlanRender_LeavesRoomToHarvest(t *testing.T) {
	cfg := NewRodEngine(nil, RodEngineConfig{}).cfg
	for timeout := time.Second; timeout <= time.Minute; timeout += 500 * time.Millisecond {
		plan := planRender(timeout, cfg)
		assert.Positive(t, plan.DOM, timeout)
		assert.LessOrEqual(t, plan.DOM, plan.Idle, timeout)
		assert.Less(t, plan.Idle, plan.Wait, "banner wait always gets time: %s", timeout)
		assert.GreaterOrEqual(t, timeout-plan.Wait, min(time.Second, timeout/2), timeout)
	}
}

// TestRodEngine_Fetch drives a real Chromium. It runs only when
// COMPLYSCAN_BROWSER_TEST=1 because CI images do not ship a browser.
func TestRodEngine_Fetch(t *testing.T) {
	if os.Getenv("COMPLYSCAN_BROWSER_TEST") != "1" {
		t.Skip("set COMPLYSCAN_BROWSER_TEST=1 to run against a local Chromium")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><div id="app"></div>
			<script>
				document.cookie = "_ga=GA1.1.1; path=/";
				document.getElementById("app").innerHTML =
					'<div class="cookie-banner">Мы используем cookie <button>Принять</button></div>';
				fetch("/collect");
			</script></body></html>`))
	})
	mux.HandleFunc("/collect", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := config.Load().Browser
	pool := NewRodBrowserPool(cfg, nil)
	defer pool.Shutdown()
	e := NewRodEngine(pool, RodEngineConfigFrom(cfg, config.DefaultDetector()))

	res, err := e.Fetch(context.Background(), srv.URL+"/", 20*time.Second)
	require.NoError(t, err)

	assert.Contains(t, res.HTML, "cookie-banner")
	assert.True(t, strings.HasPrefix(res.FinalURL, srv.URL))
	assert.Contains(t, res.NetworkRequests, srv.URL+"/collect")
	names := make([]string, 0, len(res.Cookies))
	for _, c := range res.Cookies {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "_ga")
}

func TestRodEngine_FetchBeaconingPageWithoutBanner(t *testing.T) {
	if os.Getenv("COMPLYSCAN_BROWSER_TEST") != "1" {
		t.Skip("set COMPLYSCAN_BROWSER_TEST=1 to run against a local Chromium")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><main>Каталог</main>
			<script>
				document.cookie = "_ym_uid=1; path=/";
				setInterval(() => fetch("/beacon"), 100);
			</script></body></html>`))
	})
	mux.HandleFunc("/beacon", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := config.Load().Browser
	pool := NewRodBrowserPool(cfg, nil)
	defer pool.Shutdown()
	e := NewRodEngine(pool, RodEngineConfigFrom(cfg, config.DefaultDetector()))

	res, err := e.Fetch(context.Background(), srv.URL+"/", 4*time.Second)
	require.NoError(t, err, "the page never goes idle and mounts no banner")

	assert.Contains(t, res.HTML, "Каталог")
	assert.Contains(t, res.NetworkRequests, srv.URL+"/beacon")
	names := make([]string, 0, len(res.Cookies))
	for _, c := range res.Cookies {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "_ym_uid")
}
