package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(flowsStartedTotal, flowsFinishedTotal, flowValidationFailuresTotal, flowSessionsExpiredTotal)
}

var (
	flowsStartedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flows_started_total",
			Help: "Creation flows started, by kind.",
		},
		[]string{"kind"}, // 'issue', 'pull_request'
	)

	flowsFinishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flows_finished_total",
			Help: "Creation flows that ended, by kind and outcome.",
		},
		[]string{"kind", "outcome"}, // 'submitted', 'failed', 'cancelled'
	)

	flowValidationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flow_validation_failures_total",
			Help: "Rejected flow answers, by step.",
		},
		[]string{"kind", "step"},
	)

	flowSessionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flow_sessions_expired_total",
			Help: "Idle flow sessions removed by the sweeper.",
		},
	)
)

func IncFlowStarted(kind string) {
	flowsStartedTotal.WithLabelValues(norm(kind)).Inc()
}

func IncFlowFinished(kind, outcome string) {
	flowsFinishedTotal.WithLabelValues(norm(kind), norm(outcome)).Inc()
}

func IncFlowValidationFailure(kind, step string) {
	flowValidationFailuresTotal.WithLabelValues(norm(kind), norm(step)).Inc()
}

func AddFlowSessionsExpired(n int) {
	flowSessionsExpiredTotal.Add(float64(n))
}
