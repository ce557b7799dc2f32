// Package metrics registers the Prometheus instruments the backend exposes
// on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	UsersCreated     prometheus.Counter
	LoginAttempts    *prometheus.CounterVec
	MessagesSent     prometheus.Counter
	TokensStreamed   prometheus.Counter
	StreamFallbacks  prometheus.Counter
	CompletionErrors prometheus.Counter
	AILatency        prometheus.Histogram
	RequestDuration  *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		UsersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scubaai_users_created_total",
			Help: "Total number of users registered.",
		}),
		LoginAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scubaai_login_attempts_total",
			Help: "Login attempts partitioned by outcome.",
		}, []string{"outcome"}),
		MessagesSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scubaai_messages_sent_total",
			Help: "User messages accepted for completion.",
		}),
		TokensStreamed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scubaai_stream_chunks_total",
			Help: "Chunks relayed to clients over SSE.",
		}),
		StreamFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scubaai_stream_fallbacks_total",
			Help: "Streams that fell back to a blocking completion.",
		}),
		CompletionErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scubaai_completion_errors_total",
			Help: "Upstream completion calls that failed.",
		}),
		AILatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "scubaai_completion_duration_seconds",
			Help:    "Wall time of upstream completion calls.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scubaai_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// ObserveAILatency records one upstream completion call.
func (m *Metrics) ObserveAILatency(d time.Duration) {
	m.AILatency.Observe(d.Seconds())
}
