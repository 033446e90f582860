package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(githubCallsTotal, githubCallDuration) }

var (
	githubCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "github_api_calls_total",
			Help: "GitHub API calls, by operation and result.",
		},
		[]string{"op", "result"}, // result: 'ok', 'not_found', 'bad_credentials', 'error'
	)

	githubCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "github_api_call_duration_seconds",
			Help:    "Latency of GitHub API calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

func ObserveGitHubCall(op, result string, d time.Duration) {
	githubCallsTotal.WithLabelValues(norm(op), norm(result)).Inc()
	githubCallDuration.WithLabelValues(norm(op)).Observe(d.Seconds())
}
