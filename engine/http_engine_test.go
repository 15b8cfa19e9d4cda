package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHTTPEngine_FetchHTML(t *testing.T) {
	var gotUA, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>Привет</body></html>"))
	}))
	defer srv.Close()

	e := NewHTTPEngine(5*time.Second, "complyscan-test")
	html := e.FetchHTML(context.Background(), srv.URL)

	assert.Equal(t, "<html><body>Привет</body></html>", html)
	assert.Equal(t, "complyscan-test", gotUA)
	assert.Contains(t, gotLang, "ru-RU")
}

func TestHTTPEngine_FailuresReturnEmpty(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte("<html>404</html>"))
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
		},
		{
			name: "not html",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"ok":true}`))
			},
		},
		{
			name: "too slow",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				time.Sleep(300 * time.Millisecond)
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write([]byte("<html></html>"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			e := NewHTTPEngine(100*time.Millisecond, "complyscan-test")
			assert.Empty(t, e.FetchHTML(context.Background(), srv.URL))
		})
	}
}

func TestHTTPEngine_UnreachableHost(t *testing.T) {
	e := NewHTTPEngine(time.Second, "complyscan-test")
	assert.Empty(t, e.FetchHTML(context.Background(), "http://127.0.0.1:1/"))
}

func TestIsHTMLContentType(t *testing.T) {
	assert.True(t, isHTMLContentType("text/html; charset=windows-1251"))
	assert.True(t, isHTMLContentType("application/xhtml+xml"))
	assert.False(t, isHTMLContentType("image/png"))
}
