package metrics

import (
	"epos-backend/internal/application/gate"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	backendProbes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "epos_backend_probes_total",
		Help: "Reachability probe outcomes by status",
	}, []string{"status"})

	backendAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "epos_backend_available",
		Help: "1 when the last probe reached the data backend, 0 otherwise",
	})

	gatedOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "epos_gated_operations_total",
		Help: "Gated profile operations by operation and outcome",
	}, []string{"operation", "outcome"})

	planRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "epos_plan_api_requests_total",
		Help: "Calls to the plan-generation API by endpoint and outcome",
	}, []string{"endpoint", "outcome"})
)

// ObserveBackendStatus is a gate.Observer.
func ObserveBackendStatus(s gate.Status) {
	backendProbes.WithLabelValues(string(s)).Inc()
	if s == gate.StatusAvailable {
		backendAvailable.Set(1)
	} else {
		backendAvailable.Set(0)
	}
}

// GatedOperation counts one profile operation outcome ("ok", "unavailable",
// "unauthenticated", "error").
func GatedOperation(op, outcome string) {
	gatedOperations.WithLabelValues(op, outcome).Inc()
}

// PlanRequest counts one call to the plan-generation API.
func PlanRequest(endpoint string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	planRequests.WithLabelValues(endpoint, outcome).Inc()
}
