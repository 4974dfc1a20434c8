package server

import (
	"time"

	"github.com/MeKo-Tech/roiscan/internal/scan"
	"github.com/MeKo-Tech/roiscan/internal/scanerr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roiscan_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roiscan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Scan metrics
	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roiscan_scans_total",
			Help: "Total number of scans by outcome",
		},
		[]string{"source", "outcome"}, // outcome: text, no_text or an error code
	)

	scanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roiscan_scan_duration_seconds",
			Help:    "Scan duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)

	scanTextLength = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roiscan_scan_text_length",
			Help:    "Length of extracted text",
			Buckets: []float64{0, 5, 10, 25, 50, 100, 250},
		},
		[]string{"source"},
	)

	engineState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "roiscan_engine_state",
			Help: "Recognition engine state (0 uninitialized, 1 provisioning, 2 ready, 3 busy, 4 failed, 5 cleaned)",
		},
	)

	regionResizesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roiscan_region_resizes_total",
			Help: "Total number of committed region resizes",
		},
		[]string{"axis"},
	)

	// File upload metrics
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "roiscan_upload_size_bytes",
			Help:    "Size of uploaded images in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 5 * 1024 * 1024, 20 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "roiscan_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roiscan_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)

// scanMetrics records finished scans for one source label.
type scanMetrics string

func (m scanMetrics) ScanFinished(res *scan.Result, err error, elapsed time.Duration) {
	source := string(m)
	scanDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	scansTotal.WithLabelValues(source, outcomeLabel(res, err)).Inc()
	if res != nil {
		scanTextLength.WithLabelValues(source).Observe(float64(len(res.Text)))
	}
}

func outcomeLabel(res *scan.Result, err error) string {
	switch {
	case err != nil:
		if code := scanerr.CodeOf(err); code != "" {
			return string(code)
		}
		return "error"
	case res == nil || !res.Found:
		return "no_text"
	}
	return "text"
}
