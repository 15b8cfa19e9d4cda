package engine

import (
	"context"
	"errors"
	"time"
)

// ErrBrowserUnavailable is returned by dynamic fetchers when no headless
// browser can be provided in this process.
var ErrBrowserUnavailable = errors.New("engine: headless browser unavailable")

// Cookie is a cookie observed in a browsing context.
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
}

// FetchResult is everything a render can observe. The static path fills
// only HTML and FinalURL.
type FetchResult struct {
	HTML            string
	Cookies         []Cookie
	NetworkRequests []string
	FinalURL        string
}

// StaticFetcher performs a plain HTTP GET. It returns "" on any failure.
type StaticFetcher interface {
	FetchHTML(ctx context.Context, url string) string
}

// DynamicFetcher renders a page in a headless browser.
type DynamicFetcher interface {
	// Available reports whether dynamic rendering can be attempted.
	Available() bool

	// Fetch renders url within timeout. It returns ErrBrowserUnavailable
	// when no browser could be acquired.
	Fetch(ctx context.Context, url string, timeout time.Duration) (*FetchResult, error)
}
