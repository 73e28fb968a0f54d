// Package telemetry exposes the daemon's prometheus metrics.
//
// Grounded on rclone's fs/accounting stats counters (files transferred,
// errors, bytes — a small fixed set of named counters/gauges updated from
// the transfer hot path) generalized here from accounting's own in-memory
// stats struct to prometheus/client_golang collectors registered against a
// dedicated registry, the way the rest of the pack's services (see
// marmos91-dittofs's health handlers) expose a /metrics-style endpoint
// alongside their API router rather than through the default global
// registry.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every counter/gauge/histogram the specification names.
type Metrics struct {
	registry *prometheus.Registry

	filesScanned prometheus.Counter
	filesErrored prometheus.Counter
	scanDuration prometheus.Histogram
	catalogRows  prometheus.Gauge
}

// New registers a fresh set of collectors against their own registry, so
// tests can construct multiple Metrics instances without colliding on the
// global default registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		filesScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "files_scanned_total",
			Help: "Total number of files observed by Phase 1 across all scans.",
		}),
		filesErrored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "files_errored_total",
			Help: "Total number of per-file errors recorded during scanning or enrichment.",
		}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scan_duration_seconds",
			Help:    "Wall-clock duration of a complete scan cycle (Phase 1 + Phase 2).",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s .. ~34min
		}),
		catalogRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_rows",
			Help: "Current number of rows in the files table.",
		}),
	}

	reg.MustRegister(m.filesScanned, m.filesErrored, m.scanDuration, m.catalogRows)
	return m
}

// Handler returns the /metrics HTTP handler serving this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// AddFilesScanned increments the scanned-files counter by n.
func (m *Metrics) AddFilesScanned(n int) {
	if n > 0 {
		m.filesScanned.Add(float64(n))
	}
}

// AddFilesErrored increments the errored-files counter by n.
func (m *Metrics) AddFilesErrored(n int) {
	if n > 0 {
		m.filesErrored.Add(float64(n))
	}
}

// ObserveScanDuration records the duration of one completed scan cycle.
func (m *Metrics) ObserveScanDuration(seconds float64) {
	m.scanDuration.Observe(seconds)
}

// SetCatalogRows sets the catalog_rows gauge to the current row count.
func (m *Metrics) SetCatalogRows(n int) {
	m.catalogRows.Set(float64(n))
}
