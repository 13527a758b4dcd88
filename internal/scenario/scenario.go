package scenario

import (
	"fmt"
	"sort"
	"strconv"
)

const (
	// EnergyItem is the opex line derived from energy consumption and cost.
	EnergyItem = "Energy"

	// DefaultName is used when a document has to be rebuilt from scratch.
	DefaultName = "Default Scenario"

	// DefaultBlackMass is the batch size in kg for a new scenario.
	DefaultBlackMass = 10.0

	// LegacyMassType names the single mass of a phase stored in the old shape.
	LegacyMassType = "Mass"
)

// Phase is one process step with its solid masses and liquid volumes.
type Phase struct {
	Masses  map[string]float64 `json:"masses"`
	Liquids map[string]float64 `json:"liquids"`
}

// TechnicalKPIs groups the material balance of a scenario.
type TechnicalKPIs struct {
	Composition     map[string]float64 `json:"composition"`
	RecoveredMasses map[string]float64 `json:"recovered_masses"`
	Efficiency      float64            `json:"efficiency"`
	Phases          map[string]Phase   `json:"phases"`
	TotalBlackMass  float64            `json:"total_black_mass"`
}

// Scenario is one named, independently editable pilot configuration.
type Scenario struct {
	Capex             map[string]float64 `json:"capex"`
	Opex              map[string]float64 `json:"opex"`
	EnergyConsumption map[string]float64 `json:"energy_consumption"`
	EnergyCost        float64            `json:"energy_cost"`
	Assumptions       []string           `json:"assumptions"`
	TechnicalKPIs     TechnicalKPIs      `json:"technical_kpis"`
}

// Set maps scenario names to scenarios.
type Set map[string]*Scenario

// Default returns a fully populated scenario.
func Default() *Scenario {
	s := &Scenario{
		Capex: map[string]float64{
			"Shredder":         40000,
			"Leaching Reactor": 35000,
			"Filter Press":     25000,
			"Dryer":            18000,
			"Precipitation":    20000,
		},
		Opex: map[string]float64{
			"Labor":       250,
			"Reagents":    120,
			"Water":       15,
			"Maintenance": 60,
		},
		EnergyConsumption: map[string]float64{
			"Shredder":         4,
			"Leaching Reactor": 12,
			"Filter Press":     3,
			"Dryer":            9,
		},
		EnergyCost: 0.25,
		Assumptions: []string{
			"Single shift of 8 hours per batch",
			"Reagents priced at laboratory grade",
		},
		TechnicalKPIs: DefaultTechnicalKPIs(),
	}
	s.Opex[EnergyItem] = s.EnergyTotalKWh() * s.EnergyCost
	return s
}

// DefaultTechnicalKPIs returns the KPI block of a new scenario.
func DefaultTechnicalKPIs() TechnicalKPIs {
	return TechnicalKPIs{
		Composition:     map[string]float64{"Li": 7, "Co": 15, "Ni": 10, "Mn": 8},
		RecoveredMasses: map[string]float64{"Li": 0.5, "Co": 1.2, "Ni": 0.8, "Mn": 0.3},
		Phases: map[string]Phase{
			"Leaching in Water": {
				Masses:  map[string]float64{"Black Mass": 5},
				Liquids: map[string]float64{"Water": 20},
			},
			"Leaching in Malic Acid": {
				Masses:  map[string]float64{"Black Mass": 5},
				Liquids: map[string]float64{"Malic Acid": 5, "Water": 2},
			},
		},
		TotalBlackMass: DefaultBlackMass,
	}
}

// DefaultSet returns a document holding only the default scenario.
func DefaultSet() Set {
	return Set{DefaultName: Default()}
}

// EnergyTotalKWh sums the consumption of every machine.
func (s *Scenario) EnergyTotalKWh() float64 {
	total := 0.0
	for _, kwh := range s.EnergyConsumption {
		total += kwh
	}
	return total
}

// BatchSizeLabel renders the black mass the way it appears in the assumption list.
func BatchSizeLabel(blackMass float64) string {
	return fmt.Sprintf("Batch Size (%s kg)", strconv.FormatFloat(blackMass, 'f', -1, 64))
}

// DisplayAssumptions returns the assumption list with the batch size line first.
// The batch size is derived from TotalBlackMass and is never stored.
func (s *Scenario) DisplayAssumptions() []string {
	out := make([]string, 0, len(s.Assumptions)+1)
	out = append(out, BatchSizeLabel(s.TechnicalKPIs.TotalBlackMass))
	out = append(out, s.Assumptions...)
	return out
}

// Clone returns a deep copy.
func (s *Scenario) Clone() *Scenario {
	c := &Scenario{
		Capex:             cloneMap(s.Capex),
		Opex:              cloneMap(s.Opex),
		EnergyConsumption: cloneMap(s.EnergyConsumption),
		EnergyCost:        s.EnergyCost,
		Assumptions:       append([]string(nil), s.Assumptions...),
		TechnicalKPIs: TechnicalKPIs{
			Composition:     cloneMap(s.TechnicalKPIs.Composition),
			RecoveredMasses: cloneMap(s.TechnicalKPIs.RecoveredMasses),
			Efficiency:      s.TechnicalKPIs.Efficiency,
			Phases:          make(map[string]Phase, len(s.TechnicalKPIs.Phases)),
			TotalBlackMass:  s.TechnicalKPIs.TotalBlackMass,
		},
	}
	if c.Assumptions == nil {
		c.Assumptions = []string{}
	}
	for name, p := range s.TechnicalKPIs.Phases {
		c.TechnicalKPIs.Phases[name] = p.Clone()
	}
	return c
}

// Clone returns a deep copy of the phase.
func (p Phase) Clone() Phase {
	return Phase{Masses: cloneMap(p.Masses), Liquids: cloneMap(p.Liquids)}
}

// TotalMass sums every mass type of the phase.
func (p Phase) TotalMass() float64 {
	total := 0.0
	for _, m := range p.Masses {
		total += m
	}
	return total
}

// TotalVolume sums every liquid of the phase.
func (p Phase) TotalVolume() float64 {
	total := 0.0
	for _, v := range p.Liquids {
		total += v
	}
	return total
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Names returns the scenario names in lexical order.
func (set Set) Names() []string {
	return SortedKeys(set)
}

func cloneMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
