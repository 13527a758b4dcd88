package economics

import (
	"github.com/Simplici0/blackmass/internal/scenario"
)

// Line is one named cost of a breakdown.
type Line struct {
	Name string  `json:"name"`
	Cost float64 `json:"cost"`
}

// Breakdown contains the itemised inputs of the economic calculation.
type Breakdown struct {
	Capex       []Line  `json:"capex"`
	Opex        []Line  `json:"opex"`
	EnergyKWh   float64 `json:"energy_kwh"`
	EnergyPrice float64 `json:"energy_price"`
}

// Totals contains roll-up values of the economic calculation.
type Totals struct {
	Capex      float64 `json:"capex_total"`
	EnergyCost float64 `json:"energy_total_cost"`
	Opex       float64 `json:"opex_total"`
	// CostPerKg is the opex of one batch divided by its black mass, or 0 when the mass is not positive.
	CostPerKg float64 `json:"opex_per_kg"`
}

// Result groups the detailed breakdown and totals.
type Result struct {
	Breakdown Breakdown `json:"breakdown"`
	Totals    Totals    `json:"totals"`
}

// EnergyCost returns the consumption of every machine priced at the scenario's energy cost.
func EnergyCost(s *scenario.Scenario) float64 {
	return s.EnergyTotalKWh() * s.EnergyCost
}

// Refresh overwrites the derived Energy opex line with the current energy cost.
func Refresh(s *scenario.Scenario) {
	if s.Opex == nil {
		s.Opex = map[string]float64{}
	}
	s.Opex[scenario.EnergyItem] = EnergyCost(s)
}

// Calculate computes capex and opex totals. A stored Energy opex line is
// ignored and replaced by the value derived from the energy inputs.
func Calculate(s *scenario.Scenario) Result {
	energyCost := EnergyCost(s)

	capexTotal := 0.0
	capexLines := make([]Line, 0, len(s.Capex))
	for _, name := range scenario.SortedKeys(s.Capex) {
		cost := s.Capex[name]
		capexTotal += cost
		capexLines = append(capexLines, Line{Name: name, Cost: cost})
	}

	opexTotal := 0.0
	opexLines := make([]Line, 0, len(s.Opex)+1)
	for _, name := range scenario.SortedKeys(s.Opex) {
		if name == scenario.EnergyItem {
			continue
		}
		cost := s.Opex[name]
		opexTotal += cost
		opexLines = append(opexLines, Line{Name: name, Cost: cost})
	}
	opexTotal += energyCost
	opexLines = append(opexLines, Line{Name: scenario.EnergyItem, Cost: energyCost})

	costPerKg := 0.0
	if bm := s.TechnicalKPIs.TotalBlackMass; bm > 0 {
		costPerKg = opexTotal / bm
	}

	return Result{
		Breakdown: Breakdown{
			Capex:       capexLines,
			Opex:        opexLines,
			EnergyKWh:   s.EnergyTotalKWh(),
			EnergyPrice: s.EnergyCost,
		},
		Totals: Totals{
			Capex:      capexTotal,
			EnergyCost: energyCost,
			Opex:       opexTotal,
			CostPerKg:  costPerKg,
		},
	}
}

// CaseStudyTotals returns the stored totals of a literature baseline. Nothing
// is recomputed, so a stored Energy opex line is summed as-is.
func CaseStudyTotals(cs *scenario.CaseStudy) Totals {
	capex := 0.0
	for _, v := range cs.Capex {
		capex += v
	}
	opex := 0.0
	for _, v := range cs.Opex {
		opex += v
	}
	return Totals{
		Capex:      capex,
		EnergyCost: cs.Opex[scenario.EnergyItem],
		Opex:       opex,
	}
}
