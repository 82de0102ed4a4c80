// Package navignmetrics exposes Prometheus instrumentation for the Navign
// beacon and server daemons.
package navignmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const (
	namespace = "navign"
)

// Label names.
const (
	labelBeaconID  = "beacon_id"
	labelReason    = "reason"
	labelOutcome   = "outcome"
	labelFromState = "from_state"
	labelToState   = "to_state"
	labelBackend   = "backend"
)

// -------------------------------------------------------------------------
// Collector — Prometheus Navign Metrics
// -------------------------------------------------------------------------

// Collector holds all Navign Prometheus metrics.
//
//   - Proof validation counters track accept/reject outcomes per beacon and
//     per rejection reason (spec §4.4).
//   - Instance gauges and counters track the unlock-instance lifecycle
//     (spec §4.5/§4.6).
//   - Actuator state transition counters record beacon FSM changes.
//   - Route/path query histograms track inter-area and in-area query
//     latency (spec §4.8/§4.9).
type Collector struct {
	// ProofValidations counts proof validation attempts, labeled by beacon
	// and outcome ("accepted" or "rejected").
	ProofValidations *prometheus.CounterVec

	// ProofRejections counts rejected proofs by reason code.
	ProofRejections *prometheus.CounterVec

	// ActiveInstances tracks the number of currently live unlock instances.
	ActiveInstances prometheus.Gauge

	// InstancesCreated counts unlock instances created via Initiate.
	InstancesCreated prometheus.Counter

	// InstancesExpired counts unlock instances found past their lifetime
	// window without resolution.
	InstancesExpired prometheus.Counter

	// InstancesCompleted counts unlock instances that reached a terminal
	// Outcome call, labeled by success/failure.
	InstancesCompleted *prometheus.CounterVec

	// ActuatorTransitions counts beacon actuator FSM state transitions.
	ActuatorTransitions *prometheus.CounterVec

	// RouteQueryDuration observes internal/router.Graph.Route latency.
	RouteQueryDuration prometheus.Histogram

	// PathQueryDuration observes internal/pathfind backend Route latency,
	// labeled by backend ("grid" or "mesh").
	PathQueryDuration *prometheus.HistogramVec
}

// NewCollector creates a Collector with all Navign metrics registered
// against reg. If reg is nil, prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.ProofValidations,
		c.ProofRejections,
		c.ActiveInstances,
		c.InstancesCreated,
		c.InstancesExpired,
		c.InstancesCompleted,
		c.ActuatorTransitions,
		c.RouteQueryDuration,
		c.PathQueryDuration,
	)

	return c
}

// newMetrics creates all Prometheus metric vectors without registering them.
func newMetrics() *Collector {
	return &Collector{
		ProofValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "proof",
			Name:      "validations_total",
			Help:      "Total proof validation attempts, labeled by beacon and outcome.",
		}, []string{labelBeaconID, labelOutcome}),

		ProofRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "proof",
			Name:      "rejections_total",
			Help:      "Total rejected proof validations, labeled by beacon and reason.",
		}, []string{labelBeaconID, labelReason}),

		ActiveInstances: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "unlock",
			Name:      "active_instances",
			Help:      "Number of currently live unlock instances.",
		}),

		InstancesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "unlock",
			Name:      "instances_created_total",
			Help:      "Total unlock instances created.",
		}),

		InstancesExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "unlock",
			Name:      "instances_expired_total",
			Help:      "Total unlock instances reaped without resolution.",
		}),

		InstancesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "unlock",
			Name:      "instances_completed_total",
			Help:      "Total unlock instances resolved via Outcome, labeled by success/failure.",
		}, []string{labelOutcome}),

		ActuatorTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "actuator",
			Name:      "state_transitions_total",
			Help:      "Total beacon actuator FSM state transitions.",
		}, []string{labelBeaconID, labelFromState, labelToState}),

		RouteQueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "route_query_duration_seconds",
			Help:      "Latency of inter-area route queries.",
			Buckets:   prometheus.DefBuckets,
		}),

		PathQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pathfind",
			Name:      "path_query_duration_seconds",
			Help:      "Latency of in-area path queries, labeled by backend.",
			Buckets:   prometheus.DefBuckets,
		}, []string{labelBackend}),
	}
}

// -------------------------------------------------------------------------
// Proof Validation
// -------------------------------------------------------------------------

// RecordProofAccepted increments the accepted-outcome counter for beaconID.
func (c *Collector) RecordProofAccepted(beaconID string) {
	c.ProofValidations.WithLabelValues(beaconID, "accepted").Inc()
}

// RecordProofRejected increments the rejected-outcome counter for beaconID
// and the per-reason rejection counter.
func (c *Collector) RecordProofRejected(beaconID, reason string) {
	c.ProofValidations.WithLabelValues(beaconID, "rejected").Inc()
	c.ProofRejections.WithLabelValues(beaconID, reason).Inc()
}

// -------------------------------------------------------------------------
// Unlock Instance Lifecycle
// -------------------------------------------------------------------------

// RecordInstanceCreated increments the created counter and the active gauge.
// Called when Initiate admits a new unlock instance.
func (c *Collector) RecordInstanceCreated() {
	c.InstancesCreated.Inc()
	c.ActiveInstances.Inc()
}

// RecordInstanceExpired decrements the active gauge and increments the
// expired counter. Called by unlocker.Service.Status when it finds the
// instance past its lifetime window.
func (c *Collector) RecordInstanceExpired() {
	c.InstancesExpired.Inc()
	c.ActiveInstances.Dec()
}

// RecordInstanceCompleted decrements the active gauge and increments the
// completed counter, labeled by whether the unlock succeeded.
func (c *Collector) RecordInstanceCompleted(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	c.InstancesCompleted.WithLabelValues(outcome).Inc()
	c.ActiveInstances.Dec()
}

// -------------------------------------------------------------------------
// Actuator
// -------------------------------------------------------------------------

// RecordActuatorTransition increments the state transition counter for a
// beacon's actuator FSM.
func (c *Collector) RecordActuatorTransition(beaconID, from, to string) {
	c.ActuatorTransitions.WithLabelValues(beaconID, from, to).Inc()
}

// -------------------------------------------------------------------------
// Routing and Pathfinding
// -------------------------------------------------------------------------

// ObserveRouteQuery records the duration of an inter-area route query.
func (c *Collector) ObserveRouteQuery(seconds float64) {
	c.RouteQueryDuration.Observe(seconds)
}

// ObservePathQuery records the duration of an in-area path query for the
// given backend ("grid" or "mesh").
func (c *Collector) ObservePathQuery(backend string, seconds float64) {
	c.PathQueryDuration.WithLabelValues(backend).Observe(seconds)
}
