package observability

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/folio-labs/auth-service/internal/config"
)

func TestMetrics_CountsAndSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/login", "POST", 200, 10*time.Millisecond)
	m.RecordRequest("/login", "POST", 200, 30*time.Millisecond)
	m.RecordRequest("/login", "POST", 401, 20*time.Millisecond)
	m.RecordError("/login", "POST", "AUTHENTICATION_ERROR")
	m.RecordAuthOutcome("login_failed")

	snap := m.Snapshot()
	assert.EqualValues(t, 2, snap.Requests["/login|POST|200"])
	assert.EqualValues(t, 1, snap.Requests["/login|POST|401"])
	assert.EqualValues(t, 1, snap.Errors["/login|POST|AUTHENTICATION_ERROR"])
	assert.EqualValues(t, 1, snap.Auth["login_failed"])
	assert.InDelta(t, 20.0, snap.AvgLatencyMillis, 0.001)

	snap.Requests["/login|POST|200"] = 99
	assert.EqualValues(t, 2, m.Snapshot().Requests["/login|POST|200"])
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	m.RecordAuthOutcome("x")
	assert.Empty(t, m.Snapshot().Requests)
}

func TestMetrics_Concurrent(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				m.RecordAuthOutcome("login_succeeded")
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1000, m.Snapshot().Auth["login_succeeded"])
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	metrics := NewMetrics()

	app := fiber.New()
	app.Use(RequestLogger(zap.New(core), metrics))
	app.Get("/items/:id", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusAccepted) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items/7", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/items/7", fields["path"])
	assert.EqualValues(t, http.StatusAccepted, fields["status"])
	assert.EqualValues(t, 1, metrics.Snapshot().Requests["/items/:id|GET|202"])
}

func TestNewLogger_FallsBackToInfo(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "nonsense"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}
