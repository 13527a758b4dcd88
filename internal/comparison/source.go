package comparison

import (
	"github.com/Simplici0/blackmass/internal/economics"
	"github.com/Simplici0/blackmass/internal/scenario"
	"github.com/Simplici0/blackmass/internal/technical"
)

// Kind tells where a compared source comes from.
type Kind string

const (
	KindScenario  Kind = "scenario"
	KindCaseStudy Kind = "case_study"
)

// Material is the recovery balance of one material within a source.
type Material struct {
	InitialMass   float64
	RecoveredMass float64
	Efficiency    float64
}

// Source is one column of a comparison: its totals, material balance and phases.
type Source struct {
	Name              string
	Kind              Kind
	Totals            economics.Totals
	Materials         map[string]Material
	OverallEfficiency float64
	Phases            map[string]scenario.Phase
	// Warnings carries decode problems found while loading the source.
	Warnings []string
}

// FromScenario computes a source from a scenario's current inputs.
func FromScenario(name string, s *scenario.Scenario, warnings []string) Source {
	tech := technical.Calculate(s.TechnicalKPIs)

	materials := make(map[string]Material, len(tech.Materials))
	for _, m := range tech.Materials {
		materials[m.Material] = Material{
			InitialMass:   m.InitialMass,
			RecoveredMass: m.RecoveredMass,
			Efficiency:    m.Efficiency,
		}
	}

	return Source{
		Name:              name,
		Kind:              KindScenario,
		Totals:            economics.Calculate(s).Totals,
		Materials:         materials,
		OverallEfficiency: tech.OverallEfficiency,
		Phases:            s.TechnicalKPIs.Phases,
		Warnings:          warnings,
	}
}

// FromCaseStudy wraps a literature baseline. Its stored values are used as-is.
func FromCaseStudy(name string, cs *scenario.CaseStudy, warnings []string) Source {
	kpis := cs.TechnicalKPIs

	materials := make(map[string]Material)
	for m, initial := range kpis.InitialMasses {
		recovered := kpis.RecoveredMasses[m]
		materials[m] = Material{
			InitialMass:   initial,
			RecoveredMass: recovered,
			Efficiency:    technical.Efficiency(recovered, initial),
		}
	}
	for m, recovered := range kpis.RecoveredMasses {
		if _, ok := materials[m]; ok {
			continue
		}
		materials[m] = Material{RecoveredMass: recovered}
	}

	return Source{
		Name:              name,
		Kind:              KindCaseStudy,
		Totals:            economics.CaseStudyTotals(cs),
		Materials:         materials,
		OverallEfficiency: kpis.Efficiency,
		Phases:            kpis.Phases,
		Warnings:          warnings,
	}
}
