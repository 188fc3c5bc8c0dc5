package session

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	sessionFetchSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "console_session_fetch_seconds",
			Help:    "Histogram of message history fetch durations.",
			Buckets: prometheus.DefBuckets,
		},
	)
	sessionStaleResponses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "console_session_stale_responses_total",
			Help: "Total fetch responses discarded because the operator had already moved to another conversation.",
		},
	)
)

func init() {
	prometheus.MustRegister(sessionFetchSeconds, sessionStaleResponses)
}

func observeFetch(d time.Duration) {
	sessionFetchSeconds.Observe(d.Seconds())
}

func incStale() {
	sessionStaleResponses.Inc()
}
