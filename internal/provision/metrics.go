package provision

import "github.com/prometheus/client_golang/prometheus"

var (
	artifactsFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "comfyd",
			Subsystem: "provision",
			Name:      "artifacts_fetched_total",
			Help:      "Artifacts successfully fetched",
		},
		[]string{"family"},
	)

	fetchBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "comfyd",
			Subsystem: "provision",
			Name:      "fetch_bytes_total",
			Help:      "Bytes downloaded per family",
		},
		[]string{"family"},
	)

	fetchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "comfyd",
			Subsystem: "provision",
			Name:      "fetch_failures_total",
			Help:      "Artifact fetch failures per family",
		},
		[]string{"family"},
	)
)

func init() {
	prometheus.MustRegister(artifactsFetched, fetchBytes, fetchFailures)
}
