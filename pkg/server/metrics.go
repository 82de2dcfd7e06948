package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Requests       *prometheus.CounterVec
	BytesSent      *prometheus.CounterVec
	Duration       *prometheus.HistogramVec
	Packages       prometheus.Gauge
	FlagWrites     prometheus.Counter
	PackageChanges *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arcadesync_requests_total",
			Help: "HTTP requests handled, by route, method and status code",
		}, []string{"route", "method", "code"}),
		BytesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arcadesync_response_bytes_total",
			Help: "Response body bytes written, by route",
		}, []string{"route"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arcadesync_request_duration_seconds",
			Help:    "Request handling time, by route",
			Buckets: prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"route"}),
		Packages: factory.NewGauge(prometheus.GaugeOpts{
			Name: "arcadesync_manifest_packages",
			Help: "Number of packages in the most recently served manifest",
		}),
		FlagWrites: factory.NewCounter(prometheus.CounterOpts{
			Name: "arcadesync_freeplay_writes_total",
			Help: "Accepted POST /freeplay updates",
		}),
		PackageChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arcadesync_package_changes_total",
			Help: "Filesystem changes seen in the updates folder, by operation",
		}, []string{"op"}),
		gatherer: reg,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) observe(route, method string, code int, bytes int64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.BytesSent.WithLabelValues(route).Add(float64(bytes))
	m.Duration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) manifestServed(n int) {
	if m == nil {
		return
	}
	m.Packages.Set(float64(n))
}

func (m *Metrics) flagWritten() {
	if m == nil {
		return
	}
	m.FlagWrites.Inc()
}

func (m *Metrics) packageChanged(op string) {
	if m == nil {
		return
	}
	m.PackageChanges.WithLabelValues(op).Inc()
}
