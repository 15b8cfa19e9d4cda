package detector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/complyscan/cleaner"
	"github.com/use-agent/complyscan/engine"
	"github.com/use-agent/complyscan/models"
)

type stubStatic struct{ html string }

func (s stubStatic) FetchHTML(context.Context, string) string { return s.html }

type stubDynamic struct {
	available bool
	result    *engine.FetchResult
}

func (s stubDynamic) Available() bool { return s.available }

func (s stubDynamic) Fetch(context.Context, string, time.Duration) (*engine.FetchResult, error) {
	if s.result == nil {
		return nil, engine.ErrBrowserUnavailable
	}
	return s.result, nil
}

// legalServer answers the prober; only the given paths exist.
func legalServer(t *testing.T, paths ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, p := range paths {
			if r.URL.Path == p {
				w.WriteHeader(http.StatusOK)
				return
			}
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestDetector(srv *httptest.Server, static string, dyn engine.DynamicFetcher) *Detector {
	dispatcher := engine.NewDispatcher(dyn, engine.DispatcherConfig{DynamicTimeout: time.Second})
	prober := NewProber(srv.Client(), time.Second, []string{"/privacy", "/terms"}, "")
	return New(stubStatic{html: static}, dispatcher, prober, cleaner.NewCleaner())
}

const shopPage = `<!doctype html>
<html lang="ru"><head><title>Цветочный магазин</title></head>
<body>
	<header><h1>Свежие цветы с доставкой по Москве</h1></header>
	<main><p>Мы собираем букеты из свежих цветов каждый день и доставляем их в течение двух часов.</p></main>
	<form action="/callback">
		<input name="name"><input type="tel" name="phone">
		<label><input type="checkbox" name="agree"> Согласен на обработку
		<a href="/docs/pd">персональных данных</a></label>
	</form>
	<footer><a href="/politika-konfidencialnosti">Политика конфиденциальности</a></footer>
	<div id="cookie-notice">
		<p>Мы используем файлы cookie для улучшения работы сайта.</p>
		<button>Принять</button>
	</div>
</body></html>`

func TestValidateURL(t *testing.T) {
	for _, raw := range []string{"", "   ", "ftp://example.ru", "example.ru", "https://", "http://%zz"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ValidateURL(raw)
			require.Error(t, err)
			var de *models.DetectError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, models.ErrCodeInvalidInput, de.Code)
		})
	}

	u, err := ValidateURL("  https://example.ru/catalog  ")
	require.NoError(t, err)
	assert.Equal(t, "example.ru", u.Host)
}

func TestRun_InvalidURLDoesNoIO(t *testing.T) {
	d := New(nil, nil, nil, nil)

	res, err := d.Run(context.Background(), "mailto:dpo@example.ru")

	assert.Nil(t, res)
	assert.Error(t, err)
}

func TestRun_UnreachableSiteWithoutBrowser(t *testing.T) {
	srv := legalServer(t)
	d := newTestDetector(srv, "", stubDynamic{available: false})

	res, err := d.Run(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, models.RenderingStatic, res.RenderingMethod)
	assert.False(t, res.CookieBanner.Found)
	assert.False(t, res.PrivacyPolicy.Found)
	assert.Zero(t, res.ConsentForms.Total)
	assert.False(t, res.CookiesBeforeConsent.Violation)
	assert.Empty(t, res.LegalPages.Found)
	assert.LessOrEqual(t, res.Confidence, 0.5)
	assert.NotEmpty(t, res.ID)
}

func TestRun_UnreachablePageKeepsLegalHitsOutOfPolicy(t *testing.T) {
	srv := legalServer(t, "/privacy")
	d := newTestDetector(srv, "", stubDynamic{available: false})

	res, err := d.Run(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, models.RenderingStatic, res.RenderingMethod)
	assert.Equal(t, []string{"/privacy"}, res.LegalPages.Found)
	assert.False(t, res.PrivacyPolicy.Found)
	assert.Empty(t, res.PrivacyPolicy.Source)
	assert.False(t, res.CookieBanner.Found)
	assert.LessOrEqual(t, res.Confidence, 0.5)
}

func TestRun_StaticPageWithHarvestedSignals(t *testing.T) {
	srv := legalServer(t, "/privacy")
	dyn := stubDynamic{
		available: true,
		result: &engine.FetchResult{
			HTML:            "<html><body></body></html>",
			Cookies:         []engine.Cookie{{Name: "_ym_uid", Value: "1"}, {Name: "PHPSESSID", Value: "x"}},
			NetworkRequests: []string{srv.URL + "/app.js", "https://mc.yandex.ru/metrika/tag.js"},
		},
	}
	d := newTestDetector(srv, shopPage, dyn)

	res, err := d.Run(context.Background(), srv.URL+"/")
	require.NoError(t, err)

	assert.Equal(t, models.RenderingStatic, res.RenderingMethod, "small render does not replace static HTML")

	assert.True(t, res.CookieBanner.Found)
	assert.True(t, res.CookieBanner.HasAcceptButton)
	assert.False(t, res.CookieBanner.HasRejectButton)
	assert.Contains(t, res.CookieBanner.Text, "cookie")

	assert.True(t, res.PrivacyPolicy.Found)
	assert.Equal(t, models.PolicySourceHref, res.PrivacyPolicy.Source)
	assert.True(t, strings.HasSuffix(res.PrivacyPolicy.URL, "/politika-konfidencialnosti"))

	require.Equal(t, 1, res.ConsentForms.Total)
	assert.True(t, res.ConsentForms.Forms[0].HasCheckbox)

	assert.True(t, res.CookiesBeforeConsent.Violation)
	assert.Equal(t, []string{"_ym_uid"}, res.CookiesBeforeConsent.TrackingCookies)
	assert.Equal(t, 2, res.CookiesBeforeConsent.TotalCookies)

	assert.Equal(t, []string{"Yandex.Metrica"}, res.Network.Analytics)
	assert.Empty(t, res.Network.ForeignServices)

	assert.Equal(t, []string{"/privacy"}, res.LegalPages.Found)
	assert.Equal(t, "Цветочный магазин", res.Meta.Title)
	assert.Equal(t, "ru", res.Meta.Language)
	assert.InDelta(t, 0.8, res.Confidence, 1e-9)

	checks := BuildChecks(res)
	assert.Equal(t, models.StatusPassed, checkByID(t, checks, "cookie_banner").Status)
	assert.Equal(t, models.StatusFailed, checkByID(t, checks, "cookie_reject_option").Status)
	assert.Equal(t, models.StatusFailed, checkByID(t, checks, "cookies_before_consent").Status)
	assert.Equal(t, models.StatusPassed, checkByID(t, checks, "consent_form_1").Status)
}

func TestRun_SPAShellRenderedInBrowser(t *testing.T) {
	srv := legalServer(t)
	shell := `<html><head><script src="/a.js"></script><script src="/b.js"></script>` +
		`<script src="/c.js"></script><script src="/d.js"></script></head><body><div id="root"></div></body></html>`
	rendered := `<html><body><div id="root"><h1>Личный кабинет</h1>` +
		`<a href="/privacy">Политика</a></div></body></html>`
	dyn := stubDynamic{available: true, result: &engine.FetchResult{HTML: rendered, FinalURL: srv.URL + "/app"}}
	d := newTestDetector(srv, shell, dyn)

	res, err := d.Run(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, models.RenderingDynamic, res.RenderingMethod)
	assert.Equal(t, srv.URL+"/app", res.FinalURL)
	assert.True(t, res.PrivacyPolicy.Found)
	assert.Equal(t, srv.URL+"/privacy", res.PrivacyPolicy.URL)
	assert.InDelta(t, 0.8, res.Confidence, 1e-9)
}

func TestRun_PolicyFromLegalPageProbe(t *testing.T) {
	srv := legalServer(t, "/privacy")
	page := `<html><head><title>Блог</title></head><body><article>` + strings.Repeat("<p>Текст статьи.</p>", 20) + `</article></body></html>`
	d := newTestDetector(srv, page, nil)

	res, err := d.Run(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.True(t, res.PrivacyPolicy.Found)
	assert.Equal(t, models.PolicySourceLegalPage, res.PrivacyPolicy.Source)
	assert.Equal(t, srv.URL+"/privacy", res.PrivacyPolicy.URL)
}

func TestIsPolicyPath(t *testing.T) {
	assert.True(t, isPolicyPath("/privacy-policy"))
	assert.True(t, isPolicyPath("/politika-konfidencialnosti"))
	assert.True(t, isPolicyPath("/personal-data"))
	assert.False(t, isPolicyPath("/cookie-policy"))
	assert.False(t, isPolicyPath("/terms"))
}
