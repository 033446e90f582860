package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(credentialOpsTotal) }

var credentialOpsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "credential_operations_total",
		Help: "Credential vault operations, by operation and result.",
	},
	[]string{"op", "result"}, // op: 'store', 'load', 'forget'
)

func IncCredentialOp(op, result string) {
	credentialOpsTotal.WithLabelValues(norm(op), norm(result)).Inc()
}
