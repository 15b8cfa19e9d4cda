package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestRecorder_DedupesAndKeepsOrder(t *testing.T) {
	rec := newRequestRecorder()
	rec.add("https://example.ru/")
	rec.add("https://mc.yandex.ru/metrika/tag.js")
	rec.add("https://example.ru/")
	rec.add("data:image/png;base64,AAAA")
	rec.add("blob:https://example.ru/123")
	rec.add("")
	rec.add("https://www.googletagmanager.com/gtm.js?id=GTM-1")

	assert.Equal(t, []string{
		"https://example.ru/",
		"https://mc.yandex.ru/metrika/tag.js",
		"https://www.googletagmanager.com/gtm.js?id=GTM-1",
	}, rec.URLs())
}

func TestRequestRecorder_URLsReturnsCopy(t *testing.T) {
	rec := newRequestRecorder()
	rec.add("https://example.ru/")

	urls := rec.URLs()
	urls[0] = "mutated"
	assert.Equal(t, "https://example.ru/", rec.URLs()[0])
}
