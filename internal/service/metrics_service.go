package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the attendance engine.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	codesIssued         prometheus.Counter
	submissionsAccepted prometheus.Counter
	submissionsRejected *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
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

	codesIssued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_codes_issued_total",
		Help: "Total number of session codes issued",
	})

	submissionsAccepted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_submissions_accepted_total",
		Help: "Total number of accepted attendance submissions",
	})

	submissionsRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_submissions_rejected_total",
		Help: "Total number of rejected attendance submissions by reason",
	}, []string{"reason"})

	registry.MustRegister(requestDuration, requestTotal, codesIssued, submissionsAccepted, submissionsRejected)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		codesIssued:         codesIssued,
		submissionsAccepted: submissionsAccepted,
		submissionsRejected: submissionsRejected,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records duration and count for a handled request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// CodeIssued counts one issued session code.
func (s *MetricsService) CodeIssued() {
	s.codesIssued.Inc()
}

// SubmissionAccepted counts one accepted submission.
func (s *MetricsService) SubmissionAccepted() {
	s.submissionsAccepted.Inc()
}

// SubmissionRejected counts one rejected submission by reason.
func (s *MetricsService) SubmissionRejected(reason string) {
	s.submissionsRejected.WithLabelValues(reason).Inc()
}
