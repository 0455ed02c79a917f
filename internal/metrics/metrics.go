// Package metrics exposes Prometheus counters for report runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	postersRendered prometheus.Counter
	postersFailed   prometheus.Counter
	renderLatency   prometheus.Histogram
	deliveries      *prometheus.CounterVec
	imageFallbacks  *prometheus.CounterVec
	runs            *prometheus.CounterVec
}

// NewCollector creates the collector and registers it on reg. A nil reg
// uses prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		postersRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dealposter_posters_rendered_total",
			Help: "Total number of posters rendered",
		}),
		postersFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dealposter_posters_failed_total",
			Help: "Total number of posters that failed to render",
		}),
		renderLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dealposter_render_seconds",
			Help:    "Poster render latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dealposter_deliveries_total",
			Help: "Deliveries by outcome (sent, degraded, failed)",
		}, []string{"status"}),
		imageFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dealposter_image_fallbacks_total",
			Help: "Deal cards drawn without their product image",
		}, []string{"reason"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dealposter_runs_total",
			Help: "Report runs by trigger",
		}, []string{"trigger"}),
	}

	reg.MustRegister(
		c.postersRendered,
		c.postersFailed,
		c.renderLatency,
		c.deliveries,
		c.imageFallbacks,
		c.runs,
	)
	return c
}

func (c *Collector) RecordRendered(seconds float64) {
	c.postersRendered.Inc()
	c.renderLatency.Observe(seconds)
}

func (c *Collector) RecordRenderFailed() {
	c.postersFailed.Inc()
}

func (c *Collector) RecordRun(trigger string) {
	c.runs.WithLabelValues(trigger).Inc()
}

// Delivery implements delivery.Observer.
func (c *Collector) Delivery(status string) {
	c.deliveries.WithLabelValues(status).Inc()
}

// ImageFallback implements poster.Observer.
func (c *Collector) ImageFallback(reason string) {
	c.imageFallbacks.WithLabelValues(reason).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
