package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Detector  DetectorConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the shared headless browser.
type BrowserConfig struct {
	// Enabled toggles dynamic rendering entirely.
	Enabled bool // default: true

	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// IdleTimeout closes the browser after this long without acquisitions.
	IdleTimeout time.Duration // default: 5m

	// LaunchTimeout bounds starting Chromium and reading its DevTools URL.
	LaunchTimeout time.Duration // default: 30s

	// UserAgent is sent by every browsing context.
	UserAgent string

	// Locale and Timezone mirror the audience of the audited sites.
	Locale   string // default: "ru-RU"
	Timezone string // default: "Europe/Moscow"

	ViewportWidth  int // default: 1920
	ViewportHeight int // default: 1080

	// Stealth injects go-rod/stealth evasions into every page.
	Stealth bool // default: false
}

// DetectorConfig controls the detection pipeline.
type DetectorConfig struct {
	// StaticTimeout is the deadline for the plain HTTP GET.
	StaticTimeout time.Duration // default: 10s

	// DynamicTimeout is the total budget for one browser render.
	DynamicTimeout time.Duration // default: 30s

	// ProbeTimeout is the per-request deadline for legal-page HEAD probes.
	ProbeTimeout time.Duration // default: 5s

	// BannerWait caps the extra wait for consent banner selectors.
	BannerWait time.Duration // default: 3s

	// DOMLoadShare and NetworkIdleShare split DynamicTimeout between phases.
	DOMLoadShare     float64 // default: 0.6
	NetworkIdleShare float64 // default: 0.3

	// SPA shell classifier thresholds.
	SPAMaxBodyText   int // default: 500
	SPAMinScripts    int // default: 3
	NearEmptyHTMLLen int // default: 100

	// DynamicGrowth is the relative HTML size increase above which the
	// dynamic render replaces the static HTML as the content source.
	DynamicGrowth float64 // default: 0.2

	// LegalPaths overrides the probed legal-document paths.
	LegalPaths []string
}

// RateLimitConfig controls per-client rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per client.
	Burst int // default: 3
}

// CacheConfig controls the detection response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int // default: 500

	// TTL is the hard expiry of a cached response.
	TTL time.Duration // default: 1h
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: env("COMPLYSCAN_HOST", "0.0.0.0", str),
			Port: env("COMPLYSCAN_PORT", 8080, strconv.Atoi),
			Mode: env("COMPLYSCAN_MODE", "release", str),
		},
		Browser: BrowserConfig{
			Enabled:        env("COMPLYSCAN_BROWSER_ENABLED", true, strconv.ParseBool),
			Headless:       env("COMPLYSCAN_HEADLESS", true, strconv.ParseBool),
			NoSandbox:      env("COMPLYSCAN_NO_SANDBOX", true, strconv.ParseBool),
			BrowserBin:     os.Getenv("COMPLYSCAN_BROWSER_BIN"),
			IdleTimeout:    env("COMPLYSCAN_BROWSER_IDLE", 5*time.Minute, time.ParseDuration),
			LaunchTimeout:  env("COMPLYSCAN_BROWSER_LAUNCH_TIMEOUT", 30*time.Second, time.ParseDuration),
			UserAgent:      env("COMPLYSCAN_USER_AGENT", DefaultUserAgent, str),
			Locale:         env("COMPLYSCAN_LOCALE", "ru-RU", str),
			Timezone:       env("COMPLYSCAN_TIMEZONE", "Europe/Moscow", str),
			ViewportWidth:  env("COMPLYSCAN_VIEWPORT_WIDTH", 1920, strconv.Atoi),
			ViewportHeight: env("COMPLYSCAN_VIEWPORT_HEIGHT", 1080, strconv.Atoi),
			Stealth:        env("COMPLYSCAN_STEALTH", false, strconv.ParseBool),
		},
		Detector: DefaultDetector(),
		RateLimit: RateLimitConfig{
			RequestsPerSecond: env("COMPLYSCAN_RATE_RPS", 1.0, float),
			Burst:             env("COMPLYSCAN_RATE_BURST", 3, strconv.Atoi),
		},
		Cache: CacheConfig{
			MaxEntries: env("COMPLYSCAN_CACHE_MAX_ENTRIES", 500, strconv.Atoi),
			TTL:        env("COMPLYSCAN_CACHE_TTL", time.Hour, time.ParseDuration),
		},
		Log: LogConfig{
			Level:  env("COMPLYSCAN_LOG_LEVEL", "info", str),
			Format: env("COMPLYSCAN_LOG_FORMAT", "json", str),
		},
	}
}

// DefaultUserAgent identifies the auditor while still looking like desktop Chrome.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 ComplyScan/1.0 (+compliance audit)"

// DefaultDetector returns the detector section read from the environment.
// Tests call it with an empty environment to get the stock thresholds.
func DefaultDetector() DetectorConfig {
	return DetectorConfig{
		StaticTimeout:    env("COMPLYSCAN_STATIC_TIMEOUT", 10*time.Second, time.ParseDuration),
		DynamicTimeout:   env("COMPLYSCAN_DYNAMIC_TIMEOUT", 30*time.Second, time.ParseDuration),
		ProbeTimeout:     env("COMPLYSCAN_PROBE_TIMEOUT", 5*time.Second, time.ParseDuration),
		BannerWait:       env("COMPLYSCAN_BANNER_WAIT", 3*time.Second, time.ParseDuration),
		DOMLoadShare:     env("COMPLYSCAN_DOM_SHARE", 0.6, float),
		NetworkIdleShare: env("COMPLYSCAN_IDLE_SHARE", 0.3, float),
		SPAMaxBodyText:   env("COMPLYSCAN_SPA_MAX_TEXT", 500, strconv.Atoi),
		SPAMinScripts:    env("COMPLYSCAN_SPA_MIN_SCRIPTS", 3, strconv.Atoi),
		NearEmptyHTMLLen: env("COMPLYSCAN_NEAR_EMPTY_HTML", 100, strconv.Atoi),
		DynamicGrowth:    env("COMPLYSCAN_DYNAMIC_GROWTH", 0.2, float),
		LegalPaths:       env("COMPLYSCAN_LEGAL_PATHS", nil, list),
	}
}

// env parses key with parse and falls back when the variable is unset or
// malformed.
func env[T any](key string, fallback T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := parse(raw)
	if err != nil {
		return fallback
	}
	return v
}

func str(s string) (string, error) { return s, nil }

func float(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

func list(s string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}
