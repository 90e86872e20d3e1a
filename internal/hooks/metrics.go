package hooks

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// hooksRegistered counts hook registrations.
	// Labels: stage
	hooksRegistered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "programhooks",
			Subsystem: "hooks",
			Name:      "registered_total",
			Help:      "Total number of hooks registered",
		},
		[]string{"stage"},
	)

	// stageExecutions counts Execute calls by outcome.
	// Labels: outcome (executed, invalid_stage, empty_stage)
	stageExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "programhooks",
			Subsystem: "hooks",
			Name:      "stage_executions_total",
			Help:      "Total number of stage executions by outcome",
		},
		[]string{"outcome"},
	)

	// hookInvocations counts individual hook calls.
	// Labels: stage, result (success, error)
	hookInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "programhooks",
			Subsystem: "hooks",
			Name:      "invocations_total",
			Help:      "Total number of hook invocations",
		},
		[]string{"stage", "result"},
	)

	// pluginLoads counts plugin file imports.
	// Labels: result (success, error)
	pluginLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "programhooks",
			Subsystem: "plugins",
			Name:      "loads_total",
			Help:      "Total number of plugin file imports",
		},
		[]string{"result"},
	)
)

// recordPluginLoad records the outcome of one plugin import.
func recordPluginLoad(success bool) {
	if success {
		pluginLoads.WithLabelValues("success").Inc()
	} else {
		pluginLoads.WithLabelValues("error").Inc()
	}
}
