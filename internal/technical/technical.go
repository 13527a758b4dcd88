package technical

import (
	"errors"
	"fmt"

	"github.com/Simplici0/blackmass/internal/scenario"
)

// OverallLabel names the summary row emitted for every phase.
const OverallLabel = "Overall"

// ErrNonPositiveBlackMass is returned when the overall efficiency would divide by a zero or negative black mass.
var ErrNonPositiveBlackMass = errors.New("total black mass must be greater than 0")

// CompositionStatus classifies the sum of composition percentages.
type CompositionStatus string

const (
	CompositionBalanced CompositionStatus = "balanced"
	CompositionExceeds  CompositionStatus = "exceeds"
	CompositionBelow    CompositionStatus = "below"
)

// MaterialResult is the recovery balance of one material.
type MaterialResult struct {
	Material      string  `json:"material"`
	Percentage    float64 `json:"percentage"`
	InitialMass   float64 `json:"initial_mass"`
	RecoveredMass float64 `json:"recovered_mass"`
	Efficiency    float64 `json:"efficiency"`
}

// CompositionCheck reports how composition percentages relate to 100%.
type CompositionCheck struct {
	Total    float64           `json:"total"`
	Status   CompositionStatus `json:"status"`
	Advisory string            `json:"advisory,omitempty"`
}

// RatioRow is the solid/liquid ratio of one mass type against one liquid.
type RatioRow struct {
	Phase    string  `json:"phase"`
	MassType string  `json:"mass_type"`
	Liquid   string  `json:"liquid"`
	Mass     float64 `json:"mass"`
	Volume   float64 `json:"volume"`
	Ratio    float64 `json:"ratio"`
}

// IsOverall reports whether the row is the per-phase summary.
func (r RatioRow) IsOverall() bool {
	return r.MassType == OverallLabel && r.Liquid == OverallLabel
}

// Result groups every technical metric of a scenario.
type Result struct {
	Materials         []MaterialResult `json:"materials"`
	OverallEfficiency float64          `json:"overall_efficiency"`
	TotalRecovered    float64          `json:"total_recovered"`
	Composition       CompositionCheck `json:"composition"`
	Ratios            []RatioRow       `json:"ratios"`
	Advisories        []string         `json:"advisories,omitempty"`
}

// InitialMass is the share of the black mass attributed to a material.
func InitialMass(blackMass, percentage float64) float64 {
	return blackMass * percentage / 100
}

// Efficiency returns recovered/initial as a percentage, or 0 when nothing was present initially.
func Efficiency(recovered, initial float64) float64 {
	if initial <= 0 {
		return 0
	}
	return recovered / initial * 100
}

// Ratio divides mass by volume, returning 0 for an empty volume.
func Ratio(mass, volume float64) float64 {
	if volume <= 0 {
		return 0
	}
	return mass / volume
}

// Materials computes the recovery of every material in the composition. A
// recovered mass without a composition entry is reported with 0% share.
func Materials(kpis scenario.TechnicalKPIs) []MaterialResult {
	names := make(map[string]struct{}, len(kpis.Composition)+len(kpis.RecoveredMasses))
	for m := range kpis.Composition {
		names[m] = struct{}{}
	}
	for m := range kpis.RecoveredMasses {
		names[m] = struct{}{}
	}

	out := make([]MaterialResult, 0, len(names))
	for _, m := range scenario.SortedKeys(names) {
		p := kpis.Composition[m]
		initial := InitialMass(kpis.TotalBlackMass, p)
		recovered := kpis.RecoveredMasses[m]
		out = append(out, MaterialResult{
			Material:      m,
			Percentage:    p,
			InitialMass:   initial,
			RecoveredMass: recovered,
			Efficiency:    Efficiency(recovered, initial),
		})
	}
	return out
}

// OverallEfficiency is the total recovered mass over the black mass, as a percentage.
func OverallEfficiency(kpis scenario.TechnicalKPIs) (float64, error) {
	if kpis.TotalBlackMass <= 0 {
		return 0, ErrNonPositiveBlackMass
	}
	return totalRecovered(kpis.RecoveredMasses) / kpis.TotalBlackMass * 100, nil
}

// CheckComposition flags totals away from 100%. Percentages are never adjusted.
func CheckComposition(composition map[string]float64) CompositionCheck {
	total := 0.0
	for _, p := range composition {
		total += p
	}

	switch {
	case total > 100:
		return CompositionCheck{
			Total:    total,
			Status:   CompositionExceeds,
			Advisory: fmt.Sprintf("composition total %.2f%% exceeds 100%%", total),
		}
	case total < 100:
		return CompositionCheck{
			Total:    total,
			Status:   CompositionBelow,
			Advisory: fmt.Sprintf("composition total %.2f%% is below 100%%", total),
		}
	default:
		return CompositionCheck{Total: total, Status: CompositionBalanced}
	}
}

// PhaseRatios emits one row per (mass type, liquid) pair followed by the
// Overall row built from the summed mass and summed volume.
func PhaseRatios(name string, p scenario.Phase) []RatioRow {
	rows := make([]RatioRow, 0, len(p.Masses)*len(p.Liquids)+1)
	for _, massType := range scenario.SortedKeys(p.Masses) {
		mass := p.Masses[massType]
		for _, liquid := range scenario.SortedKeys(p.Liquids) {
			volume := p.Liquids[liquid]
			rows = append(rows, RatioRow{
				Phase:    name,
				MassType: massType,
				Liquid:   liquid,
				Mass:     mass,
				Volume:   volume,
				Ratio:    Ratio(mass, volume),
			})
		}
	}

	mass, volume := p.TotalMass(), p.TotalVolume()
	rows = append(rows, RatioRow{
		Phase:    name,
		MassType: OverallLabel,
		Liquid:   OverallLabel,
		Mass:     mass,
		Volume:   volume,
		Ratio:    Ratio(mass, volume),
	})
	return rows
}

// Ratios computes PhaseRatios for every phase, phases in name order.
func Ratios(phases map[string]scenario.Phase) []RatioRow {
	var rows []RatioRow
	for _, name := range scenario.SortedKeys(phases) {
		rows = append(rows, PhaseRatios(name, phases[name])...)
	}
	return rows
}

// Calculate derives every technical metric. A non-positive black mass yields
// an overall efficiency of 0 and an advisory rather than an error.
func Calculate(kpis scenario.TechnicalKPIs) Result {
	result := Result{
		Materials:      Materials(kpis),
		TotalRecovered: totalRecovered(kpis.RecoveredMasses),
		Composition:    CheckComposition(kpis.Composition),
		Ratios:         Ratios(kpis.Phases),
	}
	if result.Composition.Advisory != "" {
		result.Advisories = append(result.Advisories, result.Composition.Advisory)
	}

	overall, err := OverallEfficiency(kpis)
	if err != nil {
		result.Advisories = append(result.Advisories, err.Error())
	}
	result.OverallEfficiency = overall
	return result
}

// Apply recomputes the cached efficiency of the scenario and returns the full result.
func Apply(s *scenario.Scenario) Result {
	result := Calculate(s.TechnicalKPIs)
	s.TechnicalKPIs.Efficiency = result.OverallEfficiency
	return result
}

func totalRecovered(recovered map[string]float64) float64 {
	total := 0.0
	for _, m := range recovered {
		total += m
	}
	return total
}
