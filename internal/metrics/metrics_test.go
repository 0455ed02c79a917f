package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRendered(0.4)
	c.RecordRendered(1.2)
	c.RecordRenderFailed()
	c.Delivery("sent")
	c.Delivery("sent")
	c.Delivery("degraded")
	c.ImageFallback("fetch")
	c.RecordRun("schedule")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.postersRendered))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.postersFailed))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.deliveries.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.deliveries.WithLabelValues("degraded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.imageFallbacks.WithLabelValues("fetch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runs.WithLabelValues("schedule")))
}

func TestCollector_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	assert.Panics(t, func() { NewCollector(reg) })
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordRun("command")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `dealposter_runs_total{trigger="command"} 1`)
}
