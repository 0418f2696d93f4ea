// Package metrics exposes prometheus instrumentation for the pieces of
// the pipeline spec §8's Testable Properties care about observing:
// scheduler queue depth, endpoint health transitions, optimizer
// confidence, and fetch throughput.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	SchedulerQueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "bugchainindexer",
		Subsystem: "scheduler",
		Name:      "queue_depth",
		Help:      "Number of jobs waiting or in flight on a scheduler queue.",
	}, []string{"queue"})

	EndpointStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "bugchainindexer",
		Subsystem: "rpc",
		Name:      "endpoint_status",
		Help:      "Current rpcstate.Status for an endpoint (0=healthy,1=slow,2=temp_failed,3=perm_failed).",
	}, []string{"network", "endpoint"})

	OptimizerConfidence = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "bugchainindexer",
		Subsystem: "optimizer",
		Name:      "confidence",
		Help:      "Recommend().Confidence for a (network, operation) chunk-size session.",
	}, []string{"network", "operation"})

	LogsFetched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bugchainindexer",
		Subsystem: "logfetch",
		Name:      "transfers_total",
		Help:      "Total decoded Transfer logs fetched per network.",
	}, []string{"network"})

	AddressesUpserted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bugchainindexer",
		Subsystem: "store",
		Name:      "addresses_upserted_total",
		Help:      "Total address upserts per network.",
	}, []string{"network"})
)

// Register attaches all collectors to the given registerer. Called once
// from cmd/*'s startup, mirroring the teacher's pattern of a single
// explicit wiring point rather than package-level init side effects.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{SchedulerQueueDepth, EndpointStatus, OptimizerConfidence, LogsFetched, AddressesUpserted} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
