package api

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	// RequestTotal counts API requests by method, path and status code.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "API requests by method, path and status",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration tracks request latency by method, path and status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// SignupTotal counts administrator signup requests by outcome.
	SignupTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_admin_signups_total",
			Help: "Administrator signup requests by outcome",
		},
		[]string{"outcome"},
	)

	// PaperSubmissionTotal counts exam paper submissions by outcome.
	PaperSubmissionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_paper_submissions_total",
			Help: "Exam paper submissions by outcome",
		},
		[]string{"outcome"},
	)
)

// InitMetrics registers the API metrics once, labelled with the service
// identity.
func InitMetrics(serviceName, instanceID string) {
	metricsOnce.Do(func() {
		reg := prometheus.WrapRegistererWith(
			prometheus.Labels{"service": serviceName, "instance": instanceID},
			prometheus.DefaultRegisterer,
		)
		reg.MustRegister(RequestTotal, RequestDuration, SignupTotal, PaperSubmissionTotal)
	})
}
