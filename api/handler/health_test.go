package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/complyscan/engine"
	"github.com/use-agent/complyscan/models"
)

type fakeStats engine.PoolStats

func (f fakeStats) Stats() engine.PoolStats { return engine.PoolStats(f) }

func serveHealth(t *testing.T, stats BrowserStats) models.HealthResponse {
	t.Helper()
	r := gin.New()
	r.GET("/health", Health(stats, time.Now().Add(-time.Minute)))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth_Healthy(t *testing.T) {
	resp := serveHealth(t, fakeStats{
		Capability: engine.CapabilityAvailable,
		Alive:      true,
		Launches:   2,
		LastUsed:   time.Now().Add(-30 * time.Second),
	})

	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, Version, resp.Version)
	assert.Equal(t, "available", resp.Browser.Capability)
	assert.True(t, resp.Browser.Alive)
	assert.EqualValues(t, 2, resp.Browser.Launches)
	assert.NotEmpty(t, resp.Browser.IdleFor)
}

func TestHealth_DegradedWithoutBrowser(t *testing.T) {
	resp := serveHealth(t, fakeStats{Capability: engine.CapabilityUnavailable})

	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "unavailable", resp.Browser.Capability)
	assert.Empty(t, resp.Browser.IdleFor)
}

func TestHealth_DisabledPool(t *testing.T) {
	resp := serveHealth(t, engine.NewDisabledBrowserPool[struct{}]())

	assert.Equal(t, "degraded", resp.Status)
}
