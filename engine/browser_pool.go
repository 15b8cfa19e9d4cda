package engine

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// MaxBrowserIdleTime is the default idle period after which the shared
// browser is torn down.
const MaxBrowserIdleTime = 5 * time.Minute

// Capability is the tri-state result of probing for a usable browser.
type Capability int32

const (
	CapabilityUnknown Capability = iota
	CapabilityAvailable
	CapabilityUnavailable
)

func (c Capability) String() string {
	switch c {
	case CapabilityAvailable:
		return "available"
	case CapabilityUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Clock abstracts time so idle expiry can be driven by tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the subset of *time.Timer the pool needs.
type Timer interface {
	Stop() bool
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// BrowserPoolConfig holds configuration for the browser pool.
type BrowserPoolConfig struct {
	IdleTimeout time.Duration // default: MaxBrowserIdleTime
	Clock       Clock         // default: system clock
}

// LaunchFunc starts a new browser. Launches are serialized, but the pool
// state stays readable while one runs, so LaunchFunc must return on its own
// within a bounded time.
type LaunchFunc[B any] func() (B, error)

// DestroyFunc tears a browser down.
type DestroyFunc[B any] func(B)

// BrowserPool lazily owns at most one live browser shared by every caller.
// Callers never release the browser; it is reclaimed after IdleTimeout
// without acquisitions and relaunched on the next Acquire. A failed launch
// disables the pool for the rest of the process lifetime.
type BrowserPool[B any] struct {
	cfg     BrowserPoolConfig
	launch  LaunchFunc[B]
	destroy DestroyFunc[B]

	// launchMu serializes Acquire; mu guards the fields below it and is
	// never held across a launch.
	launchMu sync.Mutex

	mu         sync.Mutex
	browser    B
	alive      bool
	capability Capability
	lastUsed   time.Time
	idleTimer  Timer
	closed     bool

	launches atomic.Int64
}

// NewBrowserPool creates a pool. Nothing is launched until the first Acquire.
func NewBrowserPool[B any](cfg BrowserPoolConfig, launch LaunchFunc[B], destroy DestroyFunc[B]) *BrowserPool[B] {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = MaxBrowserIdleTime
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	return &BrowserPool[B]{cfg: cfg, launch: launch, destroy: destroy}
}

// NewDisabledBrowserPool returns a pool whose capability is already
// unavailable. Used when dynamic rendering is switched off by config.
func NewDisabledBrowserPool[B any]() *BrowserPool[B] {
	p := NewBrowserPool[B](BrowserPoolConfig{}, nil, nil)
	p.capability = CapabilityUnavailable
	return p
}

// Acquire returns the shared browser, launching it if needed. The second
// result is false when no browser can be provided. Concurrent callers wait
// for an in-flight launch and share its outcome.
func (p *BrowserPool[B]) Acquire() (B, bool) {
	p.launchMu.Lock()
	defer p.launchMu.Unlock()

	var zero B
	p.mu.Lock()
	if p.closed || p.capability == CapabilityUnavailable {
		p.mu.Unlock()
		return zero, false
	}
	if p.alive && p.cfg.Clock.Now().Sub(p.lastUsed) >= p.cfg.IdleTimeout {
		p.teardownLocked("idle timeout")
	}
	if p.alive {
		b := p.touchLocked()
		p.mu.Unlock()
		return b, true
	}
	p.mu.Unlock()

	b, err := p.launch()

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.capability = CapabilityUnavailable
		slog.Error("browser launch failed, dynamic rendering disabled for this process", "error", err)
		return zero, false
	}
	if p.closed {
		slog.Info("pool shut down during launch, closing new browser")
		if p.destroy != nil {
			p.destroy(b)
		}
		return zero, false
	}
	p.browser = b
	p.alive = true
	p.capability = CapabilityAvailable
	p.launches.Add(1)
	slog.Info("browser launched", "launches", p.launches.Load())
	return p.touchLocked(), true
}

// touchLocked marks the browser used now and rearms the idle timer.
func (p *BrowserPool[B]) touchLocked() B {
	p.lastUsed = p.cfg.Clock.Now()
	p.scheduleIdleLocked()
	return p.browser
}

// Available reports whether Acquire may succeed.
func (p *BrowserPool[B]) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed && p.capability != CapabilityUnavailable
}

// Shutdown stops the idle timer and destroys the browser. It is idempotent;
// Acquire returns false afterwards.
func (p *BrowserPool[B]) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if p.idleTimer != nil {
		p.idleTimer.Stop()
		p.idleTimer = nil
	}
	p.teardownLocked("shutdown")
}

// PoolStats is a snapshot of the pool state.
type PoolStats struct {
	Capability Capability
	Alive      bool
	Launches   int64
	LastUsed   time.Time
}

// Stats returns a snapshot of the pool's current state.
func (p *BrowserPool[B]) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		Capability: p.capability,
		Alive:      p.alive,
		Launches:   p.launches.Load(),
		LastUsed:   p.lastUsed,
	}
}

// scheduleIdleLocked (re)arms the idle timer. Caller must hold p.mu.
func (p *BrowserPool[B]) scheduleIdleLocked() {
	if p.idleTimer != nil {
		p.idleTimer.Stop()
	}
	p.idleTimer = p.cfg.Clock.AfterFunc(p.cfg.IdleTimeout, p.onIdle)
}

func (p *BrowserPool[B]) onIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.alive || p.closed {
		return
	}
	// An Acquire may have raced the timer.
	if p.cfg.Clock.Now().Sub(p.lastUsed) < p.cfg.IdleTimeout {
		return
	}
	p.idleTimer = nil
	p.teardownLocked("idle timeout")
}

// teardownLocked destroys the live browser. Caller must hold p.mu.
func (p *BrowserPool[B]) teardownLocked(reason string) {
	if !p.alive {
		return
	}
	slog.Info("closing browser", "reason", reason)
	if p.destroy != nil {
		p.destroy(p.browser)
	}
	var zero B
	p.browser = zero
	p.alive = false
}
