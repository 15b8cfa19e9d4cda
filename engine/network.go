package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// requestRecorder collects the URL of every request a page sends, in
// first-seen order, without duplicates.
type requestRecorder struct {
	mu   sync.Mutex
	seen map[string]struct{}
	urls []string
}

func newRequestRecorder() *requestRecorder {
	return &requestRecorder{seen: make(map[string]struct{})}
}

func (r *requestRecorder) add(u string) {
	if u == "" || strings.HasPrefix(u, "data:") || strings.HasPrefix(u, "blob:") {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[u]; ok {
		return
	}
	r.seen[u] = struct{}{}
	r.urls = append(r.urls, u)
}

// URLs returns a copy of the recorded URLs.
func (r *requestRecorder) URLs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.urls))
	copy(out, r.urls)
	return out
}

// recordRequests subscribes to Network.requestWillBeSent on page. It must
// be called before navigation. The returned stop function ends the
// subscription and waits for the listener goroutine; it is safe to call
// more than once.
func recordRequests(ctx context.Context, page *rod.Page) (*requestRecorder, func()) {
	rec := newRequestRecorder()
	listenCtx, cancel := context.WithCancel(ctx)

	// The subscription is established here, events are buffered until wait runs.
	wait := page.Context(listenCtx).EachEvent(func(e *proto.NetworkRequestWillBeSent) {
		if e.Request != nil {
			rec.add(e.Request.URL)
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		wait()
	}()

	var once sync.Once
	return rec, func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
