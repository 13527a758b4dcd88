package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsCountersIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	m.SaveSucceeded("file")
	m.SaveSucceeded("file")
	m.LoadFellBack("invalid_json")
	m.DecodeWarned(3)

	families, err := m.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	values := map[string]float64{}
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			values[f.GetName()] += counterValue(metric)
		}
	}

	if values["blackmass_scenario_saves_total"] != 2 {
		t.Fatalf("saves = %v", values["blackmass_scenario_saves_total"])
	}
	if values["blackmass_scenario_load_fallbacks_total"] != 1 {
		t.Fatalf("fallbacks = %v", values["blackmass_scenario_load_fallbacks_total"])
	}
	if values["blackmass_decode_warnings_total"] != 3 {
		t.Fatalf("warnings = %v", values["blackmass_decode_warnings_total"])
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.SaveSucceeded("file")
	m.Recomputed()
	m.Rejected("add_entry")
	if m.Gatherer() == nil {
		t.Fatalf("nil metrics returned nil gatherer")
	}
}

func TestNewMetricsToleratesDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewMetrics(reg); err != nil {
		t.Fatalf("first NewMetrics: %v", err)
	}
	if _, err := NewMetrics(reg); err != nil {
		t.Fatalf("second NewMetrics: %v", err)
	}
}

func counterValue(m *dto.Metric) float64 {
	if c := m.GetCounter(); c != nil {
		return c.GetValue()
	}
	return 0
}
