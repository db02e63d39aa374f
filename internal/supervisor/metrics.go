package supervisor

import (
	"github.com/prometheus/client_golang/prometheus"

	"comfyd/pkg/types"
)

var (
	stateGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "comfyd",
			Subsystem: "supervisor",
			Name:      "state",
			Help:      "Current lifecycle state (1 for the active state, 0 otherwise)",
		},
		[]string{"state"},
	)

	readinessWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "comfyd",
			Subsystem: "supervisor",
			Name:      "readiness_wait_seconds",
			Help:      "Time spent waiting for the inference server to become ready",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
	)
)

func init() {
	prometheus.MustRegister(stateGauge, readinessWait)
}

var allStates = []types.SupervisorState{
	types.StateNotStarted,
	types.StateInferenceStarting,
	types.StateInferenceReady,
	types.StateHandlerStarting,
	types.StateRunning,
	types.StateExited,
	types.StateCrashed,
}

func recordState(active types.SupervisorState) {
	for _, st := range allStates {
		v := 0.0
		if st == active {
			v = 1.0
		}
		stateGauge.WithLabelValues(string(st)).Set(v)
	}
}
