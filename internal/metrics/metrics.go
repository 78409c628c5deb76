package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/etabench/etabench/internal/eta"
)

// Set holds the service's collectors on a private registry, so tests and
// repeated construction never trip duplicate-registration panics.
type Set struct {
	registry *prometheus.Registry

	rowsIngested      *prometheus.CounterVec
	rowsDropped       *prometheus.CounterVec
	classifications   *prometheus.CounterVec
	httpRequestsTotal *prometheus.CounterVec
	importDuration    prometheus.Histogram
}

// New creates a Set with all collectors registered.
func New() *Set {
	m := &Set{
		registry: prometheus.NewRegistry(),
		rowsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etabench_rows_ingested_total",
			Help: "Raw benchmark rows accepted into the pipeline, by source kind.",
		}, []string{"kind"}),
		rowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etabench_rows_dropped_total",
			Help: "Rows removed by the CSV completeness filter, by source kind.",
		}, []string{"kind"}),
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etabench_classifications_total",
			Help: "Per-provider comparison outcomes, by provider and flag.",
		}, []string{"provider", "flag"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etabench_http_requests_total",
			Help: "HTTP requests processed, by route and status.",
		}, []string{"route", "status"}),
		importDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "etabench_import_duration_seconds",
			Help:    "Wall time of one import (fetch + normalize + classify).",
			Buckets: prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		m.rowsIngested,
		m.rowsDropped,
		m.classifications,
		m.httpRequestsTotal,
		m.importDuration,
	)
	return m
}

// Handler serves the registry in Prometheus text exposition format.
func (m *Set) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RowsIngested records n accepted rows for a source kind ("csv" | "mongo").
func (m *Set) RowsIngested(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rowsIngested.WithLabelValues(kind).Add(float64(n))
}

// RowsDropped records n rows removed by the completeness filter.
func (m *Set) RowsDropped(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rowsDropped.WithLabelValues(kind).Add(float64(n))
}

// Classified records the comparison outcomes of one classified batch.
func (m *Set) Classified(recs []eta.ClassifiedRecord) {
	if m == nil {
		return
	}
	for _, rec := range recs {
		for provider, cls := range rec.Comparisons {
			m.classifications.WithLabelValues(string(provider), string(cls.Flag)).Inc()
		}
	}
}

// ImportObserved records the wall time of one import.
func (m *Set) ImportObserved(d time.Duration) {
	if m == nil {
		return
	}
	m.importDuration.Observe(d.Seconds())
}

// statusRecorder captures the response code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler counts requests through next under the given route label.
func (m *Set) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		}
	})
}
