// Package metrics provides Prometheus-based metrics recording for HTTP
// traffic, spreadsheet calls, bot updates, and outbound notifications.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns the application's collectors. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	sheetCalls    *prometheus.CounterVec
	sheetDuration *prometheus.HistogramVec
	botUpdates    *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// NewRecorder creates a Recorder registered on a fresh registry that also
// carries the Go runtime and process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sheetdesk_http_requests_total",
				Help: "Total number of HTTP requests by route, method, and status code",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sheetdesk_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		sheetCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sheetdesk_sheet_calls_total",
				Help: "Total number of spreadsheet API calls by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		sheetDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sheetdesk_sheet_call_duration_seconds",
				Help:    "Duration of spreadsheet API calls in seconds, retries included",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"operation"},
		),
		botUpdates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sheetdesk_bot_updates_total",
				Help: "Total number of bot updates handled by command",
			},
			[]string{"command"},
		),
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sheetdesk_notifications_total",
				Help: "Total number of outbound chat notifications by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// ObserveHTTPRequest records a completed HTTP request. route is the
// router pattern, not the raw path, to keep label cardinality bounded.
func (r *Recorder) ObserveHTTPRequest(route, method string, status int, duration time.Duration) {
	if r == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// ObserveSheetCall records one logical spreadsheet operation.
func (r *Recorder) ObserveSheetCall(operation, outcome string, duration time.Duration) {
	if r == nil {
		return
	}
	r.sheetCalls.WithLabelValues(operation, outcome).Inc()
	r.sheetDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncBotUpdate counts a handled bot update.
func (r *Recorder) IncBotUpdate(command string) {
	if r == nil {
		return
	}
	r.botUpdates.WithLabelValues(command).Inc()
}

// IncNotification counts an outbound notification outcome
// (sent, failed, dropped).
func (r *Recorder) IncNotification(outcome string) {
	if r == nil {
		return
	}
	r.notifications.WithLabelValues(outcome).Inc()
}

// Registry exposes the underlying registry for tests and custom exporters.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
