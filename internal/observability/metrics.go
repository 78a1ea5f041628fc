package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	apiRequestsTotal    *prometheus.CounterVec
	apiLatencySeconds   *prometheus.HistogramVec
	apiErrorsTotal      *prometheus.CounterVec
	votesToggledTotal   *prometheus.CounterVec
	fanoutTotal         *prometheus.CounterVec
	moderationTotal     *prometheus.CounterVec
	notificationsTotal  *prometheus.CounterVec
	streamClientsActive prometheus.Gauge
	blobDestroyFailures prometheus.Counter
	countCacheRequests  *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forum_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forum_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forum_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		votesToggledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forum_votes_toggled_total",
			Help: "Vote toggles by subject type, direction and outcome.",
		}, []string{"subject", "direction", "outcome"})

		fanoutTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forum_fanout_notifications_total",
			Help: "Notifications materialised by fan-out, labelled by type and result.",
		}, []string{"type", "result"})

		moderationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forum_moderation_actions_total",
			Help: "Moderation actions applied while resolving reports.",
		}, []string{"action"})

		notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forum_notifications_published_total",
			Help: "Notifications pushed to live subscribers.",
		}, []string{"type"})

		streamClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "forum_notification_stream_clients",
			Help: "Live notification stream subscribers connected to this node.",
		})

		blobDestroyFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forum_blob_destroy_failures_total",
			Help: "Blob deletions that failed after moderation removed the owning content.",
		})

		countCacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forum_count_cache_requests_total",
			Help: "Relationship count lookups by cache result.",
		}, []string{"result"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			votesToggledTotal,
			fanoutTotal,
			moderationTotal,
			notificationsTotal,
			streamClientsActive,
			blobDestroyFailures,
			countCacheRequests,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// VotesToggled counts vote toggles.
func VotesToggled() *prometheus.CounterVec {
	RegisterMetrics()
	return votesToggledTotal
}

// FanoutNotifications counts per-recipient fan-out results.
func FanoutNotifications() *prometheus.CounterVec {
	RegisterMetrics()
	return fanoutTotal
}

// ModerationActions counts moderation side effects.
func ModerationActions() *prometheus.CounterVec {
	RegisterMetrics()
	return moderationTotal
}

// NotificationsPublishedTotal counts notifications pushed to live subscribers.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsTotal
}

// SSEClientsActive tracks connected stream subscribers.
func SSEClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return streamClientsActive
}

// BlobDestroyFailures counts failed blob deletions.
func BlobDestroyFailures() prometheus.Counter {
	RegisterMetrics()
	return blobDestroyFailures
}

// CountCacheRequests counts cached relationship count lookups.
func CountCacheRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return countCacheRequests
}
