package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campusmetrics/clo-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer
// and the import pipeline.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	importsTotal    *prometheus.CounterVec
	recordsTotal    *prometheus.CounterVec
	conflictsTotal  *prometheus.CounterVec
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	importsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "imports_total",
		Help: "Import batches by terminal state",
	}, []string{"state"})

	recordsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "import_records_total",
		Help: "Imported records by entity kind and effect",
	}, []string{"kind", "effect"})

	conflictsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "import_conflicts_total",
		Help: "Detected conflicts by entity kind",
	}, []string{"kind"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, importsTotal, recordsTotal, conflictsTotal, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		importsTotal:    importsTotal,
		recordsTotal:    recordsTotal,
		conflictsTotal:  conflictsTotal,
	}
}

// Handler serves the /metrics endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one served request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	code := fmt.Sprintf("%d", status)
	s.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(method, path, code).Inc()
}

// ObserveImport counts one finished batch.
func (s *MetricsService) ObserveImport(state models.BatchState) {
	s.importsTotal.WithLabelValues(string(state)).Inc()
}

// ObserveRecords counts persisted record effects for one kind.
func (s *MetricsService) ObserveRecords(kind models.EntityKind, created, updated, skipped int) {
	if created > 0 {
		s.recordsTotal.WithLabelValues(string(kind), "created").Add(float64(created))
	}
	if updated > 0 {
		s.recordsTotal.WithLabelValues(string(kind), "updated").Add(float64(updated))
	}
	if skipped > 0 {
		s.recordsTotal.WithLabelValues(string(kind), "skipped").Add(float64(skipped))
	}
}

// ObserveConflicts counts detected conflicts for one kind.
func (s *MetricsService) ObserveConflicts(kind models.EntityKind, count int) {
	if count > 0 {
		s.conflictsTotal.WithLabelValues(string(kind)).Add(float64(count))
	}
}
