package observability

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes calculator and persistence counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	ScenarioSaves     *prometheus.CounterVec
	SaveFailures      *prometheus.CounterVec
	LoadFallbacks     *prometheus.CounterVec
	DecodeWarnings    prometheus.Counter
	Recomputations    prometheus.Counter
	RejectedMutations *prometheus.CounterVec
}

// NewMetrics registers the collectors against reg, or the default registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Metrics{
		gatherer: gatherer,
		ScenarioSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blackmass_scenario_saves_total",
			Help: "Full scenario document writes, by store kind.",
		}, []string{"store"}),
		SaveFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blackmass_scenario_save_failures_total",
			Help: "Scenario document writes that returned an error, by store kind.",
		}, []string{"store"}),
		LoadFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blackmass_scenario_load_fallbacks_total",
			Help: "Loads that replaced an unreadable document with the default scenario, by reason.",
		}, []string{"reason"}),
		DecodeWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blackmass_decode_warnings_total",
			Help: "Values coerced or backfilled while decoding stored scenarios.",
		}),
		Recomputations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blackmass_recomputations_total",
			Help: "Economic and technical recomputations after a scenario mutation.",
		}),
		RejectedMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blackmass_rejected_mutations_total",
			Help: "User edits rejected by validation, by operation.",
		}, []string{"operation"}),
	}

	var err error
	for _, vec := range []**prometheus.CounterVec{&m.ScenarioSaves, &m.SaveFailures, &m.LoadFallbacks, &m.RejectedMutations} {
		if *vec, err = registerCounterVec(reg, *vec); err != nil {
			return nil, err
		}
	}
	for _, c := range []*prometheus.Counter{&m.DecodeWarnings, &m.Recomputations} {
		if *c, err = registerCounter(reg, *c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Gatherer returns the gatherer backing the registerer used at construction.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.DefaultGatherer
	}
	return m.gatherer
}

func (m *Metrics) SaveSucceeded(store string) {
	if m == nil {
		return
	}
	m.ScenarioSaves.WithLabelValues(store).Inc()
}

func (m *Metrics) SaveFailed(store string) {
	if m == nil {
		return
	}
	m.SaveFailures.WithLabelValues(store).Inc()
}

func (m *Metrics) LoadFellBack(reason string) {
	if m == nil {
		return
	}
	m.LoadFallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) DecodeWarned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DecodeWarnings.Add(float64(n))
}

func (m *Metrics) Recomputed() {
	if m == nil {
		return
	}
	m.Recomputations.Inc()
}

func (m *Metrics) Rejected(operation string) {
	if m == nil {
		return
	}
	m.RejectedMutations.WithLabelValues(operation).Inc()
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("register counter vec: %w", err)
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("register counter: %w", err)
	}
	return c, nil
}
