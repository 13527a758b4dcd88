package scenario

import (
	"encoding/json"
	"fmt"
)

// CaseStudyKPIs is the technical block of a literature baseline. Initial
// masses are reported by the source rather than derived from a black mass.
type CaseStudyKPIs struct {
	Composition     map[string]float64 `json:"composition"`
	InitialMasses   map[string]float64 `json:"initial_masses"`
	RecoveredMasses map[string]float64 `json:"recovered_masses"`
	Efficiency      float64            `json:"efficiency"`
	Phases          map[string]Phase   `json:"phases"`
}

// CaseStudy is a literature-sourced comparison baseline. It is never recomputed.
type CaseStudy struct {
	Reference         string             `json:"reference,omitempty"`
	Capex             map[string]float64 `json:"capex"`
	Opex              map[string]float64 `json:"opex"`
	EnergyConsumption map[string]float64 `json:"energy_consumption"`
	EnergyCost        float64            `json:"energy_cost"`
	Assumptions       []string           `json:"assumptions"`
	TechnicalKPIs     CaseStudyKPIs      `json:"technical_kpis"`
}

// DecodeCaseStudies parses a case-study library. Absent keys become empty
// values; case studies have no defaults to backfill from.
func DecodeCaseStudies(data []byte) (map[string]*CaseStudy, Warnings, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("decode case studies: %w", err)
	}

	var w Warnings
	out := make(map[string]*CaseStudy, len(raw))
	for name, body := range raw {
		out[name] = decodeCaseStudy(name, body, &w)
	}
	return out, w, nil
}

func decodeCaseStudy(name string, body json.RawMessage, w *Warnings) *CaseStudy {
	cs := &CaseStudy{
		Capex:             map[string]float64{},
		Opex:              map[string]float64{},
		EnergyConsumption: map[string]float64{},
		Assumptions:       []string{},
		TechnicalKPIs: CaseStudyKPIs{
			Composition:     map[string]float64{},
			InitialMasses:   map[string]float64{},
			RecoveredMasses: map[string]float64{},
			Phases:          map[string]Phase{},
		},
	}

	fields, ok := decodeObject(body)
	if !ok {
		w.add("case study %q: record is not an object, left empty", name)
		return cs
	}
	where := fmt.Sprintf("case study %q", name)

	if raw, ok := fields["reference"]; ok {
		_ = json.Unmarshal(raw, &cs.Reference)
	}
	if raw, ok := fields["capex"]; ok {
		cs.Capex = numberMap(raw, where+" capex", w)
	}
	if raw, ok := fields["opex"]; ok {
		cs.Opex = numberMap(raw, where+" opex", w)
	}
	if raw, ok := fields["energy_consumption"]; ok {
		cs.EnergyConsumption = numberMap(raw, where+" energy_consumption", w)
	}
	if raw, ok := fields["energy_cost"]; ok {
		cs.EnergyCost = coerceNumber(raw, where+" energy_cost", w)
	}
	if raw, ok := fields["assumptions"]; ok {
		if err := json.Unmarshal(raw, &cs.Assumptions); err != nil || cs.Assumptions == nil {
			w.add("%s: assumptions is not a list of text, dropped", where)
			cs.Assumptions = []string{}
		}
	}

	if raw, ok := fields["technical_kpis"]; ok {
		kpis, ok := decodeObject(raw)
		if !ok {
			w.add("%s: technical_kpis is not an object, left empty", where)
			return cs
		}
		if v, ok := kpis["composition"]; ok {
			cs.TechnicalKPIs.Composition = numberMap(v, where+" composition", w)
		}
		if v, ok := kpis["initial_masses"]; ok {
			cs.TechnicalKPIs.InitialMasses = numberMap(v, where+" initial_masses", w)
		}
		if v, ok := kpis["recovered_masses"]; ok {
			cs.TechnicalKPIs.RecoveredMasses = numberMap(v, where+" recovered_masses", w)
		}
		if v, ok := kpis["efficiency"]; ok {
			cs.TechnicalKPIs.Efficiency = coerceNumber(v, where+" efficiency", w)
		}
		if v, ok := kpis["phases"]; ok {
			cs.TechnicalKPIs.Phases = decodePhases(v, where, w)
		}
	}
	return cs
}
