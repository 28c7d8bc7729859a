package observability

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/voice-scheduler/internal/config"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordTurn("booked")
	m.RecordTurn("booked")
	m.RecordTurn("unhandled")
	m.RecordBooking()
	m.RecordRequest("/api/query", "POST", 200, 15*time.Millisecond)
	m.RecordError("/api/meetings", "GET", "UNAUTHORIZED")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.turnCount.WithLabelValues("booked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.turnCount.WithLabelValues("unhandled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookings))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestCount.WithLabelValues("/api/query", "POST", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorCount.WithLabelValues("/api/meetings", "GET", "UNAUTHORIZED")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordTurn("booked")
	m.RecordBooking()
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	assert.Nil(t, m.Registry())
	assert.NotNil(t, m.Handler())
}

func TestRequestLoggerRecordsRoute(t *testing.T) {
	m := NewMetrics()
	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop(), m))
	app.Get("/api/meetings/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/meetings/abc", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestCount.WithLabelValues("/api/meetings/:id", "GET", "204")))
}

func TestMetricsHandlerExposesCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordBooking()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "voicesched_meetings_booked_total 1")
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "not-a-level"}, config.AppConfig{Name: "voice-scheduler", Env: "test"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}
