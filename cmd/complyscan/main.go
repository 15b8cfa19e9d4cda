package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/complyscan/api"
	"github.com/use-agent/complyscan/cache"
	"github.com/use-agent/complyscan/cleaner"
	"github.com/use-agent/complyscan/config"
	"github.com/use-agent/complyscan/detector"
	"github.com/use-agent/complyscan/engine"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("complyscan starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"browser", cfg.Browser.Enabled,
	)

	// ── 3. Shared browser (launched lazily on first dynamic render) ─
	pool := engine.NewRodBrowserPool(cfg.Browser, nil)
	defer pool.Shutdown()

	// ── 4. Fetch strategy ───────────────────────────────────────────
	static := engine.NewHTTPEngine(cfg.Detector.StaticTimeout, cfg.Browser.UserAgent)
	rod := engine.NewRodEngine(pool, engine.RodEngineConfigFrom(cfg.Browser, cfg.Detector))
	dispatcher := engine.NewDispatcher(rod, engine.DispatcherConfig{
		DynamicTimeout: cfg.Detector.DynamicTimeout,
		SPA: engine.SPAThresholds{
			MaxBodyText:   cfg.Detector.SPAMaxBodyText,
			MinScripts:    cfg.Detector.SPAMinScripts,
			NearEmptyHTML: cfg.Detector.NearEmptyHTMLLen,
		},
		DynamicGrowth: cfg.Detector.DynamicGrowth,
	})

	// ── 5. Detector ─────────────────────────────────────────────────
	prober := detector.NewProber(engine.NewChromeClient(), cfg.Detector.ProbeTimeout, cfg.Detector.LegalPaths, cfg.Browser.UserAgent)
	det := detector.New(static, dispatcher, prober, cleaner.NewCleaner())

	// ── 6. Cache ────────────────────────────────────────────────────
	cc := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	defer cc.Close()

	// ── 7. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(det, pool, cfg, cc, startTime)

	// ── 8. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	// ── 9. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig.String())
	case err := <-serveErr:
		slog.Error("HTTP server error", "error", err)
		pool.Shutdown()
		os.Exit(1)
	}

	// A dynamic render can take the full dynamic budget.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Detector.DynamicTimeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// pool.Shutdown() runs via defer and kills Chromium.
	slog.Info("complyscan stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
