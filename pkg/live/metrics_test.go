package live

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/reflow-dev/reflow/pkg/reflow"
)

func TestMetricsRecordFrames(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg))

	m.RecordFrameReceived("set", 3*time.Millisecond)
	m.RecordFrameReceived("set", 4*time.Millisecond)
	m.RecordFrameError("set")
	m.RecordFrameSent("update")

	if got := testutil.ToFloat64(m.framesReceived.WithLabelValues("set")); got != 2 {
		t.Errorf("expected 2 received frames, got %v", got)
	}
	if got := testutil.ToFloat64(m.frameErrors.WithLabelValues("set")); got != 1 {
		t.Errorf("expected 1 frame error, got %v", got)
	}
	if got := testutil.ToFloat64(m.framesSent.WithLabelValues("update")); got != 1 {
		t.Errorf("expected 1 sent frame, got %v", got)
	}
}

func TestMetricsPeerGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg))

	m.RecordPeerConnect()
	m.RecordPeerConnect()
	m.RecordPeerDisconnect()

	if got := testutil.ToFloat64(m.connectedPeers); got != 1 {
		t.Errorf("expected 1 connected peer, got %v", got)
	}
}

func TestMetricsNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg), WithNamespace("myapp"), WithSubsystem("ws"))
	m.RecordSlowPeerDrop()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "myapp_ws_slow_peer_drops_total" {
			found = true
		}
	}
	if !found {
		t.Error("expected metric under the configured namespace and subsystem")
	}
}

func TestRuntimeCollector(t *testing.T) {
	rt := reflow.New()
	sig := reflow.NewSignal(rt, 0)
	reflow.NewEffect(rt, func() reflow.Cleanup {
		_ = sig.Get()
		return nil
	})
	sig.Set(1)
	sig.Set(2)

	reg := prometheus.NewRegistry()
	reg.MustRegister(NewRuntimeCollector(rt, "reflow"))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	values := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			values[mf.GetName()] = metric.GetCounter().GetValue()
		}
	}
	if values["reflow_runtime_signal_writes_total"] != 2 {
		t.Errorf("expected 2 signal writes, got %v", values["reflow_runtime_signal_writes_total"])
	}
	// Creation run plus one per write.
	if values["reflow_runtime_effect_runs_total"] != 3 {
		t.Errorf("expected 3 effect runs, got %v", values["reflow_runtime_effect_runs_total"])
	}
}
