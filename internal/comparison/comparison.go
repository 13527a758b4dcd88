package comparison

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/Simplici0/blackmass/internal/scenario"
	"github.com/Simplici0/blackmass/internal/technical"
)

var (
	ErrNoSources     = errors.New("at least one source is required")
	ErrUnknownBase   = errors.New("base source not found")
	ErrDuplicateName = errors.New("duplicate source name")
)

// UndefinedMarker is reported in place of a percentage difference whose base is 0.
const UndefinedMarker = "n/a"

// Diff is a percentage difference that may be undefined.
type Diff struct {
	Value   float64
	Defined bool
}

// PercentDiff returns (other/base - 1) * 100, undefined when base is 0.
func PercentDiff(base, other float64) Diff {
	if base == 0 {
		return Diff{}
	}
	return Diff{Value: (other/base - 1) * 100, Defined: true}
}

func (d Diff) String() string {
	if !d.Defined {
		return UndefinedMarker
	}
	return strconv.FormatFloat(d.Value, 'f', 2, 64) + "%"
}

// MarshalJSON encodes a defined diff as a number and an undefined one as the marker.
func (d Diff) MarshalJSON() ([]byte, error) {
	if !d.Defined {
		return json.Marshal(UndefinedMarker)
	}
	return json.Marshal(d.Value)
}

// EconomicRow is one source of the economic comparison.
type EconomicRow struct {
	Source            string  `json:"source"`
	Kind              Kind    `json:"kind"`
	CapexTotal        float64 `json:"capex_total"`
	OpexTotal         float64 `json:"opex_total"`
	OverallEfficiency float64 `json:"overall_efficiency"`
}

// EfficiencyRow is one (source, material) cell of the material comparison.
type EfficiencyRow struct {
	Source        string  `json:"source"`
	Kind          Kind    `json:"kind"`
	Material      string  `json:"material"`
	InitialMass   float64 `json:"initial_mass"`
	RecoveredMass float64 `json:"recovered_mass"`
	Efficiency    float64 `json:"efficiency"`
}

// MassVolumeRow is one (source, phase, mass type, liquid) ratio.
type MassVolumeRow struct {
	Source   string  `json:"source"`
	Kind     Kind    `json:"kind"`
	Phase    string  `json:"phase"`
	MassType string  `json:"mass_type"`
	Liquid   string  `json:"liquid"`
	Mass     float64 `json:"mass"`
	Volume   float64 `json:"volume"`
	Ratio    float64 `json:"ratio"`
}

// DiffRow compares one source against the base source.
type DiffRow struct {
	Source       string `json:"source"`
	Capex        Diff   `json:"capex"`
	Opex         Diff   `json:"opex"`
	TotalMass    Diff   `json:"total_mass"`
	TotalVolume  Diff   `json:"total_volume"`
	AverageRatio Diff   `json:"average_ratio"`
}

// PhaseMetrics summarises the phases of one source.
type PhaseMetrics struct {
	Source       string  `json:"source"`
	TotalMass    float64 `json:"total_mass"`
	TotalVolume  float64 `json:"total_volume"`
	AverageRatio float64 `json:"average_ratio"`
}

// Result holds every comparison table.
type Result struct {
	Base       string          `json:"base"`
	Economic   []EconomicRow   `json:"economic"`
	Efficiency []EfficiencyRow `json:"efficiency"`
	MassVolume []MassVolumeRow `json:"mass_volume"`
	Pivot      Pivot           `json:"pivot"`
	Metrics    []PhaseMetrics  `json:"metrics"`
	Diffs      []DiffRow       `json:"diffs"`
	Warnings   []string        `json:"warnings,omitempty"`
}

// Compare builds the aligned tables for sources in the given order. base names
// the source every other one is measured against; empty means the first
// source. Malformed values inside a source are treated as 0 and reported in
// Result.Warnings.
func Compare(sources []Source, base string) (Result, error) {
	if len(sources) == 0 {
		return Result{}, ErrNoSources
	}
	if base == "" {
		base = sources[0].Name
	}

	seen := make(map[string]struct{}, len(sources))
	baseIndex := -1
	for i, src := range sources {
		if _, ok := seen[src.Name]; ok {
			return Result{}, fmt.Errorf("%q: %w", src.Name, ErrDuplicateName)
		}
		seen[src.Name] = struct{}{}
		if src.Name == base {
			baseIndex = i
		}
	}
	if baseIndex < 0 {
		return Result{}, fmt.Errorf("%q: %w", base, ErrUnknownBase)
	}

	result := Result{Base: base}
	for _, src := range sources {
		result.Warnings = append(result.Warnings, src.Warnings...)
	}

	phases := make([]map[string]scenario.Phase, len(sources))
	for i, src := range sources {
		phases[i] = sanitizePhases(src.Name, src.Phases, &result.Warnings)
	}

	result.Economic = economicTable(sources)
	result.Efficiency = efficiencyTable(sources)
	result.MassVolume = massVolumeTable(sources, phases)
	result.Pivot = PivotRows(sourceNames(sources), result.MassVolume)

	result.Metrics = make([]PhaseMetrics, len(sources))
	for i, src := range sources {
		result.Metrics[i] = phaseMetrics(src.Name, phases[i])
	}

	for i, src := range sources {
		if i == baseIndex {
			continue
		}
		result.Diffs = append(result.Diffs, DiffRow{
			Source:       src.Name,
			Capex:        PercentDiff(sources[baseIndex].Totals.Capex, src.Totals.Capex),
			Opex:         PercentDiff(sources[baseIndex].Totals.Opex, src.Totals.Opex),
			TotalMass:    PercentDiff(result.Metrics[baseIndex].TotalMass, result.Metrics[i].TotalMass),
			TotalVolume:  PercentDiff(result.Metrics[baseIndex].TotalVolume, result.Metrics[i].TotalVolume),
			AverageRatio: PercentDiff(result.Metrics[baseIndex].AverageRatio, result.Metrics[i].AverageRatio),
		})
	}

	return result, nil
}

func economicTable(sources []Source) []EconomicRow {
	rows := make([]EconomicRow, 0, len(sources))
	for _, src := range sources {
		rows = append(rows, EconomicRow{
			Source:            src.Name,
			Kind:              src.Kind,
			CapexTotal:        src.Totals.Capex,
			OpexTotal:         src.Totals.Opex,
			OverallEfficiency: src.OverallEfficiency,
		})
	}
	return rows
}

// efficiencyTable emits every material seen in any source for every source.
func efficiencyTable(sources []Source) []EfficiencyRow {
	union := make(map[string]struct{})
	for _, src := range sources {
		for m := range src.Materials {
			union[m] = struct{}{}
		}
	}
	materials := scenario.SortedKeys(union)

	rows := make([]EfficiencyRow, 0, len(sources)*len(materials))
	for _, src := range sources {
		for _, m := range materials {
			v := src.Materials[m]
			rows = append(rows, EfficiencyRow{
				Source:        src.Name,
				Kind:          src.Kind,
				Material:      m,
				InitialMass:   v.InitialMass,
				RecoveredMass: v.RecoveredMass,
				Efficiency:    v.Efficiency,
			})
		}
	}
	return rows
}

func massVolumeTable(sources []Source, phases []map[string]scenario.Phase) []MassVolumeRow {
	var rows []MassVolumeRow
	for i, src := range sources {
		for _, r := range technical.Ratios(phases[i]) {
			rows = append(rows, MassVolumeRow{
				Source:   src.Name,
				Kind:     src.Kind,
				Phase:    r.Phase,
				MassType: r.MassType,
				Liquid:   r.Liquid,
				Mass:     r.Mass,
				Volume:   r.Volume,
				Ratio:    r.Ratio,
			})
		}
	}
	return rows
}

func phaseMetrics(name string, phases map[string]scenario.Phase) PhaseMetrics {
	m := PhaseMetrics{Source: name}
	for _, p := range phases {
		m.TotalMass += p.TotalMass()
		m.TotalVolume += p.TotalVolume()
	}

	count := 0
	sum := 0.0
	for _, r := range technical.Ratios(phases) {
		if r.IsOverall() {
			continue
		}
		sum += r.Ratio
		count++
	}
	if count > 0 {
		m.AverageRatio = sum / float64(count)
	}
	return m
}

// sanitizePhases returns a copy of phases with negative or non-finite values replaced by 0.
func sanitizePhases(source string, phases map[string]scenario.Phase, warnings *[]string) map[string]scenario.Phase {
	out := make(map[string]scenario.Phase, len(phases))
	for name, p := range phases {
		clean := scenario.Phase{
			Masses:  make(map[string]float64, len(p.Masses)),
			Liquids: make(map[string]float64, len(p.Liquids)),
		}
		for k, v := range p.Masses {
			clean.Masses[k] = sanitize(v, fmt.Sprintf("source %q phase %q mass %q", source, name, k), warnings)
		}
		for k, v := range p.Liquids {
			clean.Liquids[k] = sanitize(v, fmt.Sprintf("source %q phase %q liquid %q", source, name, k), warnings)
		}
		out[name] = clean
	}
	return out
}

func sanitize(v float64, where string, warnings *[]string) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		*warnings = append(*warnings, fmt.Sprintf("%s: invalid value %v treated as 0", where, v))
		return 0
	}
	return v
}

func sourceNames(sources []Source) []string {
	names := make([]string, len(sources))
	for i, src := range sources {
		names[i] = src.Name
	}
	return names
}
