package navignmetrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	navignmetrics "github.com/indoor-mall-nav/navign-sub000/internal/metrics"
)

func TestNewCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := navignmetrics.NewCollector(reg)

	if c.ProofValidations == nil {
		t.Error("ProofValidations is nil")
	}
	if c.ProofRejections == nil {
		t.Error("ProofRejections is nil")
	}
	if c.ActiveInstances == nil {
		t.Error("ActiveInstances is nil")
	}
	if c.InstancesCreated == nil {
		t.Error("InstancesCreated is nil")
	}
	if c.InstancesExpired == nil {
		t.Error("InstancesExpired is nil")
	}
	if c.InstancesCompleted == nil {
		t.Error("InstancesCompleted is nil")
	}
	if c.ActuatorTransitions == nil {
		t.Error("ActuatorTransitions is nil")
	}
	if c.RouteQueryDuration == nil {
		t.Error("RouteQueryDuration is nil")
	}
	if c.PathQueryDuration == nil {
		t.Error("PathQueryDuration is nil")
	}

	// Verify all metrics are registered by gathering them.
	if _, err := reg.Gather(); err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
}

func TestRecordProofOutcomes(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := navignmetrics.NewCollector(reg)

	c.RecordProofAccepted("beacon-1")
	c.RecordProofAccepted("beacon-1")
	c.RecordProofRejected("beacon-1", "replay_detected")

	accepted := counterValue(t, c.ProofValidations, "beacon-1", "accepted")
	if accepted != 2 {
		t.Errorf("accepted validations = %v, want 2", accepted)
	}

	rejected := counterValue(t, c.ProofValidations, "beacon-1", "rejected")
	if rejected != 1 {
		t.Errorf("rejected validations = %v, want 1", rejected)
	}

	reasonCount := counterValue(t, c.ProofRejections, "beacon-1", "replay_detected")
	if reasonCount != 1 {
		t.Errorf("replay_detected rejections = %v, want 1", reasonCount)
	}
}

func TestInstanceLifecycle(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := navignmetrics.NewCollector(reg)

	c.RecordInstanceCreated()
	c.RecordInstanceCreated()

	if got := gaugeValue(t, c.ActiveInstances); got != 2 {
		t.Errorf("ActiveInstances = %v, want 2", got)
	}

	if got := counterScalar(t, c.InstancesCreated); got != 2 {
		t.Errorf("InstancesCreated = %v, want 2", got)
	}

	c.RecordInstanceCompleted(true)

	if got := gaugeValue(t, c.ActiveInstances); got != 1 {
		t.Errorf("ActiveInstances after completion = %v, want 1", got)
	}

	if got := counterValue(t, c.InstancesCompleted, "success"); got != 1 {
		t.Errorf("InstancesCompleted(success) = %v, want 1", got)
	}

	c.RecordInstanceExpired()

	if got := gaugeValue(t, c.ActiveInstances); got != 0 {
		t.Errorf("ActiveInstances after expiry = %v, want 0", got)
	}

	if got := counterScalar(t, c.InstancesExpired); got != 1 {
		t.Errorf("InstancesExpired = %v, want 1", got)
	}
}

func TestActuatorTransitions(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := navignmetrics.NewCollector(reg)

	c.RecordActuatorTransition("beacon-1", "Locked", "Unlocking")
	c.RecordActuatorTransition("beacon-1", "Locked", "Unlocking")
	c.RecordActuatorTransition("beacon-1", "Unlocking", "Unlocked")

	if got := counterValue(t, c.ActuatorTransitions, "beacon-1", "Locked", "Unlocking"); got != 2 {
		t.Errorf("Locked->Unlocking transitions = %v, want 2", got)
	}

	if got := counterValue(t, c.ActuatorTransitions, "beacon-1", "Unlocking", "Unlocked"); got != 1 {
		t.Errorf("Unlocking->Unlocked transitions = %v, want 1", got)
	}
}

func TestRouteAndPathQueryObservations(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := navignmetrics.NewCollector(reg)

	c.ObserveRouteQuery(0.05)
	c.ObservePathQuery("grid", 0.01)
	c.ObservePathQuery("mesh", 0.02)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}

	found := map[string]bool{}
	for _, fam := range families {
		found[fam.GetName()] = true
	}

	if !found["navign_router_route_query_duration_seconds"] {
		t.Error("route query duration histogram not found in gathered families")
	}
	if !found["navign_pathfind_path_query_duration_seconds"] {
		t.Error("path query duration histogram not found in gathered families")
	}
}

// -------------------------------------------------------------------------
// Helpers
// -------------------------------------------------------------------------

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()

	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetGauge().GetValue()
}

func counterScalar(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetCounter().GetValue()
}

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()

	counter, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := counter.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetCounter().GetValue()
}
