package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the Prometheus collectors for discovery and reply handling.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	SearchRequestsTotal  *prometheus.CounterVec
	ResultsStoredTotal   *prometheus.CounterVec
	ScoringFailuresTotal prometheus.Counter
	ReplyActionsTotal    *prometheus.CounterVec
	EmailsSentTotal      *prometheus.CounterVec
	JobDuration          *prometheus.HistogramVec
}

// NewMetrics registers the collectors with the default registry once per process.
//
// Metrics:
//   - grantscout_search_requests_total{provider,outcome}
//   - grantscout_results_stored_total{project}
//   - grantscout_scoring_failures_total
//   - grantscout_reply_actions_total{action}
//   - grantscout_emails_sent_total{kind,outcome}
//   - grantscout_job_duration_seconds{job}
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			SearchRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "grantscout_search_requests_total",
					Help: "Search backend calls by provider and outcome",
				},
				[]string{"provider", "outcome"}, // "ok", "error", "empty"
			),

			ResultsStoredTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "grantscout_results_stored_total",
					Help: "Results inserted or refreshed in the store",
				},
				[]string{"project"},
			),

			ScoringFailuresTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "grantscout_scoring_failures_total",
					Help: "Scoring calls that produced no usable analysis",
				},
			),

			ReplyActionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "grantscout_reply_actions_total",
					Help: "Reply commands dispatched by kind",
				},
				[]string{"action"},
			),

			EmailsSentTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "grantscout_emails_sent_total",
					Help: "Outbound emails by kind and outcome",
				},
				[]string{"kind", "outcome"},
			),

			JobDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "grantscout_job_duration_seconds",
					Help:    "Duration of scheduled jobs",
					Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
				},
				[]string{"job"},
			),
		}
	})

	return globalMetrics
}

// SearchRequest counts one backend call
func (m *Metrics) SearchRequest(provider, outcome string) {
	if m == nil {
		return
	}
	m.SearchRequestsTotal.WithLabelValues(provider, outcome).Inc()
}

// ResultsStored adds n stored rows for a project
func (m *Metrics) ResultsStored(project string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.ResultsStoredTotal.WithLabelValues(project).Add(float64(n))
}

// ScoringFailure counts one unusable analysis
func (m *Metrics) ScoringFailure() {
	if m == nil {
		return
	}
	m.ScoringFailuresTotal.Inc()
}

// ReplyAction counts one dispatched reply command
func (m *Metrics) ReplyAction(action string) {
	if m == nil {
		return
	}
	m.ReplyActionsTotal.WithLabelValues(action).Inc()
}

// EmailSent counts one send attempt
func (m *Metrics) EmailSent(kind string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.EmailsSentTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveJob records how long a job took since start
func (m *Metrics) ObserveJob(job string, start time.Time) {
	if m == nil {
		return
	}
	m.JobDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
}
