package comparison

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/Simplici0/blackmass/internal/scenario"
	"github.com/Simplici0/blackmass/internal/technical"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-6 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func twoScenarios() (*scenario.Scenario, *scenario.Scenario) {
	a := scenario.Default()
	a.Capex = map[string]float64{"Shredder": 50000, "Reactor": 60000, "Dryer": 28000}
	a.TechnicalKPIs.Phases = map[string]scenario.Phase{
		"Leaching in Water": {
			Masses:  map[string]float64{"Black Mass": 5},
			Liquids: map[string]float64{"Water": 20},
		},
	}

	b := scenario.Default()
	b.Capex = map[string]float64{"Shredder": 50000, "Reactor": 70000, "Dryer": 30000}
	b.TechnicalKPIs.Composition["Al"] = 2
	b.TechnicalKPIs.Phases = map[string]scenario.Phase{
		"Leaching in Malic Acid": {
			Masses:  map[string]float64{"Black Mass": 5},
			Liquids: map[string]float64{"Malic Acid": 5, "Water": 2},
		},
	}
	return a, b
}

func TestPercentDiff(t *testing.T) {
	d := PercentDiff(138000, 150000)
	if !d.Defined {
		t.Fatalf("expected defined diff")
	}
	nearlyEqual(t, "diff", d.Value, 8.6956521)
	if d.String() != "8.70%" {
		t.Fatalf("String() = %q", d.String())
	}

	undefined := PercentDiff(0, 10)
	if undefined.Defined || undefined.String() != UndefinedMarker {
		t.Fatalf("expected undefined diff, got %+v", undefined)
	}
	data, err := json.Marshal(undefined)
	if err != nil || string(data) != `"n/a"` {
		t.Fatalf("marshal undefined diff = %s, %v", data, err)
	}
}

func TestCompare_EconomicTableAndCapexDiff(t *testing.T) {
	a, b := twoScenarios()

	result, err := Compare([]Source{FromScenario("A", a, nil), FromScenario("B", b, nil)}, "A")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	if len(result.Economic) != 2 {
		t.Fatalf("expected 2 economic rows, got %d", len(result.Economic))
	}
	nearlyEqual(t, "capex A", result.Economic[0].CapexTotal, 138000)
	nearlyEqual(t, "capex B", result.Economic[1].CapexTotal, 150000)

	if len(result.Diffs) != 1 || result.Diffs[0].Source != "B" {
		t.Fatalf("unexpected diffs: %+v", result.Diffs)
	}
	nearlyEqual(t, "capex diff", result.Diffs[0].Capex.Value, 8.6956521)
}

func TestCompare_EfficiencyTableIsRectangular(t *testing.T) {
	a, b := twoScenarios()

	result, err := Compare([]Source{FromScenario("A", a, nil), FromScenario("B", b, nil)}, "")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	// A lacks Al, B has it: both sources still get 5 material rows.
	if len(result.Efficiency) != 10 {
		t.Fatalf("expected 10 efficiency rows, got %d", len(result.Efficiency))
	}
	for _, row := range result.Efficiency {
		if row.Source == "A" && row.Material == "Al" {
			if row.InitialMass != 0 || row.Efficiency != 0 {
				t.Fatalf("missing material not zero-filled: %+v", row)
			}
			return
		}
	}
	t.Fatalf("zero-filled Al row missing for A")
}

func TestCompare_MassVolumeAndPivot(t *testing.T) {
	a, b := twoScenarios()

	result, err := Compare([]Source{FromScenario("A", a, nil), FromScenario("B", b, nil)}, "A")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	// A: water + overall, B: malic + water + overall.
	if len(result.MassVolume) != 5 {
		t.Fatalf("expected 5 mass/volume rows, got %d", len(result.MassVolume))
	}
	if len(result.Pivot.Columns) != 5 || len(result.Pivot.Rows) != 2 {
		t.Fatalf("unexpected pivot shape: %d columns, %d rows", len(result.Pivot.Columns), len(result.Pivot.Rows))
	}

	overall := PivotKey{Phase: "Leaching in Malic Acid", MassType: technical.OverallLabel, Liquid: technical.OverallLabel}
	cell, ok := result.Pivot.Cell("B", overall)
	if !ok {
		t.Fatalf("overall cell missing")
	}
	nearlyEqual(t, "B overall ratio", cell.Ratio, 5.0/7.0)

	missing, ok := result.Pivot.Cell("A", overall)
	if !ok || missing != (PivotCell{}) {
		t.Fatalf("absent combination not zero-filled: %+v", missing)
	}

	last := result.Pivot.Columns[2]
	if last.Phase != "Leaching in Malic Acid" || last.MassType != technical.OverallLabel {
		t.Fatalf("overall column not last within phase: %+v", result.Pivot.Columns)
	}
}

func TestCompare_PhaseMetricDiffs(t *testing.T) {
	a, b := twoScenarios()

	result, err := Compare([]Source{FromScenario("A", a, nil), FromScenario("B", b, nil)}, "A")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	nearlyEqual(t, "A volume", result.Metrics[0].TotalVolume, 20)
	nearlyEqual(t, "B volume", result.Metrics[1].TotalVolume, 7)
	nearlyEqual(t, "A avg ratio", result.Metrics[0].AverageRatio, 0.25)
	nearlyEqual(t, "B avg ratio", result.Metrics[1].AverageRatio, 1.75)

	d := result.Diffs[0]
	nearlyEqual(t, "mass diff", d.TotalMass.Value, 0)
	nearlyEqual(t, "volume diff", d.TotalVolume.Value, -65)
	nearlyEqual(t, "ratio diff", d.AverageRatio.Value, 600)
}

func TestCompare_UndefinedDiffWhenBaseHasNoPhases(t *testing.T) {
	a, b := twoScenarios()
	a.TechnicalKPIs.Phases = map[string]scenario.Phase{}

	result, err := Compare([]Source{FromScenario("A", a, nil), FromScenario("B", b, nil)}, "A")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	d := result.Diffs[0]
	if d.TotalMass.Defined || d.TotalVolume.Defined || d.AverageRatio.Defined {
		t.Fatalf("expected undefined phase diffs, got %+v", d)
	}
}

func TestCompare_CoercesInvalidValuesWithWarning(t *testing.T) {
	a, _ := twoScenarios()
	a.TechnicalKPIs.Phases["Broken"] = scenario.Phase{
		Masses:  map[string]float64{"Black Mass": 2},
		Liquids: map[string]float64{"Water": math.NaN(), "Acid": -3},
	}

	result, err := Compare([]Source{FromScenario("A", a, []string{"decode warning"})}, "A")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	for _, row := range result.MassVolume {
		if row.Phase == "Broken" && (row.Volume != 0 || row.Ratio != 0) {
			t.Fatalf("invalid value not coerced: %+v", row)
		}
	}
	if len(result.Warnings) != 3 || result.Warnings[0] != "decode warning" {
		t.Fatalf("unexpected warnings: %v", result.Warnings)
	}
	if !strings.Contains(result.Warnings[1], "Broken") {
		t.Fatalf("warning does not name the phase: %v", result.Warnings)
	}
}

func TestCompare_CaseStudySource(t *testing.T) {
	a, _ := twoScenarios()
	cs := &scenario.CaseStudy{
		Capex: map[string]float64{"Reactor": 150000},
		Opex:  map[string]float64{"Labor": 300, scenario.EnergyItem: 50},
		TechnicalKPIs: scenario.CaseStudyKPIs{
			InitialMasses:   map[string]float64{"Li": 1},
			RecoveredMasses: map[string]float64{"Li": 0.9, "Co": 0.2},
			Efficiency:      55,
		},
	}

	result, err := Compare([]Source{FromScenario("A", a, nil), FromCaseStudy("Lit", cs, nil)}, "A")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	lit := result.Economic[1]
	if lit.Kind != KindCaseStudy {
		t.Fatalf("kind = %q", lit.Kind)
	}
	nearlyEqual(t, "lit opex", lit.OpexTotal, 350)
	nearlyEqual(t, "lit efficiency", lit.OverallEfficiency, 55)

	for _, row := range result.Efficiency {
		if row.Source == "Lit" && row.Material == "Li" {
			nearlyEqual(t, "lit Li efficiency", row.Efficiency, 90)
		}
	}
}

func TestCompare_Errors(t *testing.T) {
	a, b := twoScenarios()

	if _, err := Compare(nil, ""); !errors.Is(err, ErrNoSources) {
		t.Fatalf("expected ErrNoSources, got %v", err)
	}
	if _, err := Compare([]Source{FromScenario("A", a, nil)}, "Z"); !errors.Is(err, ErrUnknownBase) {
		t.Fatalf("expected ErrUnknownBase, got %v", err)
	}
	if _, err := Compare([]Source{FromScenario("A", a, nil), FromScenario("A", b, nil)}, ""); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}
