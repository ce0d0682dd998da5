package hermes

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetricsWith(reg)

	m.IncCounter("queue_send_total", 1, Label{Key: "queue", Value: "q1"})
	m.IncCounter("queue_send_total", 2, Label{Key: "queue", Value: "q1"})

	vec := m.counters["queue_send_total"]
	if vec == nil {
		t.Fatal("Expected counter vec to be registered")
	}
	got := testutil.ToFloat64(vec.WithLabelValues("q1"))
	if got != 3 {
		t.Errorf("Expected counter value 3, got %f", got)
	}
}

func TestPrometheusGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetricsWith(reg)

	m.SetGauge("queue_depth", 7, Label{Key: "queue", Value: "q1"})
	m.SetGauge("queue_depth", 4, Label{Key: "queue", Value: "q1"})

	got := testutil.ToFloat64(m.gauges["queue_depth"].WithLabelValues("q1"))
	if got != 4 {
		t.Errorf("Expected gauge value 4, got %f", got)
	}
}

func TestPrometheusReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetricsWith(reg)

	// A second observation with the same name must reuse the collector
	// rather than re-register and panic.
	m.IncCounter("queue_ack_total", 1, Label{Key: "queue", Value: "a"})
	m.IncCounter("queue_ack_total", 1, Label{Key: "queue", Value: "b"})

	if len(m.counters) != 1 {
		t.Errorf("Expected a single collector, got %d", len(m.counters))
	}
}
