// Package observability exposes the service's Prometheus metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	punchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ponto",
		Name:      "punches_total",
		Help:      "Committed attendance punches by direction.",
	}, []string{"direction"})

	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ponto",
		Name:      "rejections_total",
		Help:      "Verification attempts rejected, by reason.",
	}, []string{"reason"})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ponto",
		Name:      "stage_duration_seconds",
		Help:      "Duration of each verification pipeline stage.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ponto",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// RecordPunch counts one committed punch.
func RecordPunch(direction string) {
	punchesTotal.WithLabelValues(direction).Inc()
}

// RecordRejection counts one rejected verification attempt.
func RecordRejection(reason string) {
	rejectionsTotal.WithLabelValues(reason).Inc()
}

// ObserveStage records how long one pipeline stage took.
func ObserveStage(stage string, d time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, route, status string, d time.Duration) {
	httpRequestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}
