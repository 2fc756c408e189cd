package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. Components
// receive a *Metrics and must tolerate nil (tests pass nil to avoid
// duplicate registration on the default registry).
type Metrics struct {
	MessagesProcessed *prometheus.CounterVec
	FallbackReplies   prometheus.Counter
	RemoteRequests    *prometheus.CounterVec
	RemoteRetries     prometheus.Counter
	PagesFetched      prometheus.Counter
	UserCacheHits     prometheus.Counter
	UserCacheMisses   prometheus.Counter
	ProcessDuration   prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		MessagesProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "auditchat_messages_processed_total",
			Help: "Messages processed, labeled by recognized intent.",
		}, []string{"intent"}),
		FallbackReplies: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auditchat_fallback_replies_total",
			Help: "Replies answered with the canned low-confidence fallback.",
		}),
		RemoteRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "auditchat_remote_requests_total",
			Help: "Remote audit API requests, labeled by outcome.",
		}, []string{"outcome"}),
		RemoteRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auditchat_remote_retries_total",
			Help: "Remote audit API attempts retried after a transient failure.",
		}),
		PagesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auditchat_pages_fetched_total",
			Help: "Audit event pages walked by the pagination engine.",
		}),
		UserCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auditchat_user_cache_hits_total",
			Help: "User identity lookups served from the in-memory cache.",
		}),
		UserCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "auditchat_user_cache_misses_total",
			Help: "User identity lookups that required a directory call.",
		}),
		ProcessDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "auditchat_process_duration_seconds",
			Help:    "End-to-end message processing duration.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveMessage records one processed message. Nil-safe.
func (m *Metrics) ObserveMessage(intent string, seconds float64, fallback bool) {
	if m == nil {
		return
	}
	m.MessagesProcessed.WithLabelValues(intent).Inc()
	m.ProcessDuration.Observe(seconds)
	if fallback {
		m.FallbackReplies.Inc()
	}
}

// ObserveRemoteRequest records one remote API request outcome. Nil-safe.
func (m *Metrics) ObserveRemoteRequest(outcome string) {
	if m == nil {
		return
	}
	m.RemoteRequests.WithLabelValues(outcome).Inc()
}

// ObserveRetry records one retried remote attempt. Nil-safe.
func (m *Metrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.RemoteRetries.Inc()
}

// ObservePage records one fetched pagination page. Nil-safe.
func (m *Metrics) ObservePage() {
	if m == nil {
		return
	}
	m.PagesFetched.Inc()
}

// ObserveUserCache records a cache hit or miss. Nil-safe.
func (m *Metrics) ObserveUserCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.UserCacheHits.Inc()
	} else {
		m.UserCacheMisses.Inc()
	}
}
