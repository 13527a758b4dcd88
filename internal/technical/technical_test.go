package technical

import (
	"errors"
	"math"
	"testing"

	"github.com/Simplici0/blackmass/internal/scenario"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-6 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func exampleKPIs() scenario.TechnicalKPIs {
	return scenario.TechnicalKPIs{
		Composition:     map[string]float64{"Li": 7, "Co": 15, "Ni": 10, "Mn": 8},
		RecoveredMasses: map[string]float64{"Li": 0.5, "Co": 1.2, "Ni": 0.8, "Mn": 0.3},
		Phases:          map[string]scenario.Phase{},
		TotalBlackMass:  10,
	}
}

func TestMaterials_LithiumExample(t *testing.T) {
	materials := Materials(exampleKPIs())

	var li MaterialResult
	for _, m := range materials {
		if m.Material == "Li" {
			li = m
		}
	}
	nearlyEqual(t, "initial Li", li.InitialMass, 0.7)
	nearlyEqual(t, "efficiency Li", li.Efficiency, 71.4285714)
}

func TestOverallEfficiency_Example(t *testing.T) {
	overall, err := OverallEfficiency(exampleKPIs())
	if err != nil {
		t.Fatalf("OverallEfficiency: %v", err)
	}
	nearlyEqual(t, "overall", overall, 28)
}

func TestOverallEfficiency_RejectsZeroBlackMass(t *testing.T) {
	kpis := exampleKPIs()
	kpis.TotalBlackMass = 0

	if _, err := OverallEfficiency(kpis); !errors.Is(err, ErrNonPositiveBlackMass) {
		t.Fatalf("expected ErrNonPositiveBlackMass, got %v", err)
	}

	result := Calculate(kpis)
	nearlyEqual(t, "overall", result.OverallEfficiency, 0)
	if len(result.Advisories) == 0 {
		t.Fatalf("expected advisory for zero black mass")
	}
}

func TestMaterials_ZeroInitialMassGivesZeroEfficiency(t *testing.T) {
	kpis := exampleKPIs()
	kpis.Composition["Fe"] = 0
	kpis.RecoveredMasses["Al"] = 0.4

	for _, m := range Materials(kpis) {
		if m.Material == "Fe" || m.Material == "Al" {
			nearlyEqual(t, m.Material+" efficiency", m.Efficiency, 0)
		}
	}
}

func TestCheckComposition_FlagsWithoutClamping(t *testing.T) {
	below := CheckComposition(map[string]float64{"Li": 7, "Co": 15, "Ni": 10, "Mn": 8})
	if below.Status != CompositionBelow || below.Total != 40 {
		t.Fatalf("unexpected check: %+v", below)
	}

	exceeds := CheckComposition(map[string]float64{"Li": 70, "Co": 50})
	if exceeds.Status != CompositionExceeds || exceeds.Total != 120 {
		t.Fatalf("unexpected check: %+v", exceeds)
	}

	balanced := CheckComposition(map[string]float64{"Li": 60, "Co": 40})
	if balanced.Status != CompositionBalanced || balanced.Advisory != "" {
		t.Fatalf("unexpected check: %+v", balanced)
	}
}

func TestPhaseRatios_SingleLiquid(t *testing.T) {
	rows := PhaseRatios("Leaching in Water", scenario.Phase{
		Masses:  map[string]float64{"Black Mass": 5},
		Liquids: map[string]float64{"Water": 20},
	})

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %+v", rows)
	}
	nearlyEqual(t, "water ratio", rows[0].Ratio, 0.25)
	if !rows[1].IsOverall() {
		t.Fatalf("last row is not the overall row: %+v", rows[1])
	}
	nearlyEqual(t, "overall ratio", rows[1].Ratio, 0.25)
}

func TestPhaseRatios_TwoLiquids(t *testing.T) {
	rows := PhaseRatios("Leaching in Malic Acid", scenario.Phase{
		Masses:  map[string]float64{"Black Mass": 5},
		Liquids: map[string]float64{"Malic Acid": 5, "Water": 2},
	})

	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %+v", rows)
	}
	nearlyEqual(t, "malic ratio", rows[0].Ratio, 1.0)
	nearlyEqual(t, "water ratio", rows[1].Ratio, 2.5)
	nearlyEqual(t, "overall ratio", rows[2].Ratio, 5.0/7.0)
}

func TestPhaseRatios_ZeroVolume(t *testing.T) {
	rows := PhaseRatios("Dry", scenario.Phase{
		Masses:  map[string]float64{"Black Mass": 5},
		Liquids: map[string]float64{"Water": 0},
	})

	for _, r := range rows {
		nearlyEqual(t, r.Liquid+" ratio", r.Ratio, 0)
	}

	empty := PhaseRatios("Empty", scenario.Phase{})
	if len(empty) != 1 || empty[0].Ratio != 0 {
		t.Fatalf("unexpected rows for empty phase: %+v", empty)
	}
}

func TestPhaseRatios_MultipleMassTypes(t *testing.T) {
	rows := PhaseRatios("Wash", scenario.Phase{
		Masses:  map[string]float64{"Black Mass": 4, "Additive": 2},
		Liquids: map[string]float64{"Water": 8, "Acid": 4},
	})

	if len(rows) != 5 {
		t.Fatalf("expected 4 pair rows plus overall, got %d", len(rows))
	}
	overall := rows[len(rows)-1]
	nearlyEqual(t, "overall mass", overall.Mass, 6)
	nearlyEqual(t, "overall volume", overall.Volume, 12)
	nearlyEqual(t, "overall ratio", overall.Ratio, 0.5)
}

func TestApply_CachesEfficiency(t *testing.T) {
	s := scenario.Default()
	s.TechnicalKPIs = exampleKPIs()

	Apply(s)

	nearlyEqual(t, "cached efficiency", s.TechnicalKPIs.Efficiency, 28)
}
