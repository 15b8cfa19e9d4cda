package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/use-agent/complyscan/config"
)

// RodBrowser is a launched Chromium process and the rod connection to it.
type RodBrowser struct {
	*rod.Browser
	launcher *launcher.Launcher
}

// Shutdown closes the browser and kills the process group, then removes
// the temporary user data dir.
func (b *RodBrowser) Shutdown() {
	if b == nil {
		return
	}
	if b.Browser != nil {
		if err := b.Browser.Close(); err != nil {
			slog.Debug("browser close returned error", "error", err)
		}
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
}

// NewRodBrowserPool wires a BrowserPool to the rod launcher.
func NewRodBrowserPool(cfg config.BrowserConfig, clock Clock) *BrowserPool[*RodBrowser] {
	if !cfg.Enabled {
		return NewDisabledBrowserPool[*RodBrowser]()
	}
	return NewBrowserPool[*RodBrowser](
		BrowserPoolConfig{IdleTimeout: cfg.IdleTimeout, Clock: clock},
		func() (*RodBrowser, error) { return LaunchRod(cfg) },
		func(b *RodBrowser) { b.Shutdown() },
	)
}

// chromiumFlags hide automation markers and keep background pages from
// being throttled while a render waits for trackers to fire.
var chromiumFlags = map[flags.Flag][]string{
	"disable-blink-features":                 {"AutomationControlled"},
	"disable-features":                       {"AudioServiceOutOfProcess,TranslateUI"},
	"disable-dev-shm-usage":                  nil,
	"disable-gpu":                            nil,
	"disable-setuid-sandbox":                 nil,
	"disable-background-timer-throttling":    nil,
	"disable-backgrounding-occluded-windows": nil,
	"disable-renderer-backgrounding":         nil,
	"disable-component-update":               nil,
	"disable-default-apps":                   nil,
	"disable-extensions":                     nil,
	"no-first-run":                           nil,
}

// LaunchRod starts a headless Chromium suitable for a containerised host.
// Leakless mode is on so the child dies with this process even on SIGKILL.
func LaunchRod(cfg config.BrowserConfig) (*RodBrowser, error) {
	// Cancelling ctx aborts a launch that is still downloading or waiting
	// for the DevTools URL.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox).
		Leakless(true)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}

	l.Delete("enable-automation")
	for name, values := range chromiumFlags {
		l.Set(name, values...)
	}
	l.Set("lang", cfg.Locale)

	timeout := cfg.LaunchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	controlURL, err := launchWithin(l, cancel, timeout)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	slog.Debug("browser process started", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		go discardLaunch(l)
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	return &RodBrowser{Browser: browser, launcher: l}, nil
}

// launchWithin runs l.Launch, giving up after timeout. Failed and late
// launches are torn down in the background.
func launchWithin(l *launcher.Launcher, cancel context.CancelFunc, timeout time.Duration) (string, error) {
	type launched struct {
		url string
		err error
	}
	done := make(chan launched, 1)
	go func() {
		u, err := l.Launch()
		done <- launched{u, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r := <-done:
		if r.err != nil {
			go discardLaunch(l)
		}
		return r.url, r.err
	case <-timer.C:
		cancel()
		go func() {
			<-done
			discardLaunch(l)
		}()
		return "", fmt.Errorf("browser did not start within %s", timeout)
	}
}

// discardLaunch kills whatever a failed launch started and removes its
// profile dir. It never calls Cleanup: after a failed Launch the exit
// channel Cleanup waits on may never be closed. Must be called after
// l.Launch has returned.
func discardLaunch(l *launcher.Launcher) {
	l.Kill()
	if dir := l.Get(flags.UserDataDir); dir != "" {
		_ = os.RemoveAll(dir)
	}
}
