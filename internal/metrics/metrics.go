package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rosenban_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rosenban_http_request_duration_seconds",
			Help:    "Histogram of response durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	// StatusChanges counts detected line status changes per category.
	StatusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rosenban_status_changes_total",
			Help: "Number of detected line status changes",
		},
		[]string{"category"},
	)

	// NotificationsSent counts per-recipient send attempts by channel and outcome.
	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rosenban_notifications_sent_total",
			Help: "Number of notification send attempts",
		},
		[]string{"channel", "outcome"},
	)

	// DigestQueued counts deferred digest entries written at fan-out time.
	DigestQueued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rosenban_digest_entries_queued_total",
			Help: "Number of pending digest entries queued",
		},
	)

	// DigestRuns counts aggregator runs per frequency bucket.
	DigestRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rosenban_digest_runs_total",
			Help: "Number of digest aggregator runs",
		},
		[]string{"frequency"},
	)

	// SendDuration observes per-recipient send latency by channel.
	SendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rosenban_send_duration_seconds",
			Help:    "Duration of per-recipient notification sends",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel"},
	)
)

func Init() {
	prometheus.MustRegister(
		HTTPRequests,
		RequestDuration,
		StatusChanges,
		NotificationsSent,
		DigestQueued,
		DigestRuns,
		SendDuration,
	)
}
