package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/Simplici0/blackmass/internal/scenario"
)

// Section names an editable name → number map of a scenario.
type Section string

const (
	SectionCapex       Section = "capex"
	SectionOpex        Section = "opex"
	SectionEnergy      Section = "energy"
	SectionComposition Section = "composition"
	SectionRecovered   Section = "recovered"
)

// Sections lists every editable section.
var Sections = []Section{SectionCapex, SectionOpex, SectionEnergy, SectionComposition, SectionRecovered}

// ParseSection accepts a section name case-insensitively.
func ParseSection(raw string) (Section, error) {
	sec := Section(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Sections {
		if sec == known {
			return sec, nil
		}
	}
	return "", fmt.Errorf("%q: %w", raw, ErrUnknownSection)
}

// entries returns a pointer to the section's map so renames can swap it.
func entries(s *scenario.Scenario, sec Section) (*map[string]float64, error) {
	switch sec {
	case SectionCapex:
		return &s.Capex, nil
	case SectionOpex:
		return &s.Opex, nil
	case SectionEnergy:
		return &s.EnergyConsumption, nil
	case SectionComposition:
		return &s.TechnicalKPIs.Composition, nil
	case SectionRecovered:
		return &s.TechnicalKPIs.RecoveredMasses, nil
	}
	return nil, fmt.Errorf("%q: %w", sec, ErrUnknownSection)
}

// checkReserved keeps the derived Energy opex line out of user edits.
func checkReserved(sec Section, names ...string) error {
	if sec != SectionOpex {
		return nil
	}
	for _, name := range names {
		if name == scenario.EnergyItem {
			return fmt.Errorf("opex %q: %w", name, scenario.ErrReservedName)
		}
	}
	return nil
}

// checkPercent keeps each composition share within 0 to 100. The total is only reported.
func checkPercent(sec Section, value float64) error {
	if sec == SectionComposition && value > 100 {
		return fmt.Errorf("%v: %w", value, ErrPercentRange)
	}
	return nil
}

// AddEntry adds a new line to a section.
func (st *State) AddEntry(ctx context.Context, name string, sec Section, item string, value float64) error {
	return st.mutate(ctx, "add_entry", name, func(s *scenario.Scenario) error {
		m, err := entries(s, sec)
		if err != nil {
			return err
		}
		if err := checkReserved(sec, item); err != nil {
			return err
		}
		if err := checkPercent(sec, value); err != nil {
			return err
		}
		if err := scenario.AddEntry(*m, strings.TrimSpace(item), value); err != nil {
			return fmt.Errorf("%s: %w", sec, err)
		}
		return nil
	})
}

// SetEntry changes the value of an existing line.
func (st *State) SetEntry(ctx context.Context, name string, sec Section, item string, value float64) error {
	return st.mutate(ctx, "set_entry", name, func(s *scenario.Scenario) error {
		return setEntry(s, sec, item, value)
	})
}

// RenameEntry renames a line, keeping its value.
func (st *State) RenameEntry(ctx context.Context, name string, sec Section, oldItem, newItem string) error {
	return st.mutate(ctx, "rename_entry", name, func(s *scenario.Scenario) error {
		return renameEntry(s, sec, oldItem, newItem)
	})
}

// UpdateEntry renames a line when newItem is set and then sets its value when
// value is set. Both changes are applied and saved together or not at all.
func (st *State) UpdateEntry(ctx context.Context, name string, sec Section, item string, newItem *string, value *float64) error {
	return st.mutate(ctx, "update_entry", name, func(s *scenario.Scenario) error {
		if newItem != nil && strings.TrimSpace(*newItem) != item {
			if err := renameEntry(s, sec, item, *newItem); err != nil {
				return err
			}
			item = strings.TrimSpace(*newItem)
		}
		if value == nil {
			return nil
		}
		return setEntry(s, sec, item, *value)
	})
}

func setEntry(s *scenario.Scenario, sec Section, item string, value float64) error {
	m, err := entries(s, sec)
	if err != nil {
		return err
	}
	if err := checkReserved(sec, item); err != nil {
		return err
	}
	if err := checkPercent(sec, value); err != nil {
		return err
	}
	if err := scenario.SetEntry(*m, item, value); err != nil {
		return fmt.Errorf("%s: %w", sec, err)
	}
	return nil
}

func renameEntry(s *scenario.Scenario, sec Section, oldItem, newItem string) error {
	m, err := entries(s, sec)
	if err != nil {
		return err
	}
	newItem = strings.TrimSpace(newItem)
	if err := checkReserved(sec, oldItem, newItem); err != nil {
		return err
	}
	renamed, err := scenario.RenameEntry(*m, oldItem, newItem)
	if err != nil {
		return fmt.Errorf("%s: %w", sec, err)
	}
	*m = renamed
	return nil
}

// DeleteEntry removes a line.
func (st *State) DeleteEntry(ctx context.Context, name string, sec Section, item string) error {
	return st.mutate(ctx, "delete_entry", name, func(s *scenario.Scenario) error {
		m, err := entries(s, sec)
		if err != nil {
			return err
		}
		if err := checkReserved(sec, item); err != nil {
			return err
		}
		if err := scenario.DeleteEntry(*m, item); err != nil {
			return fmt.Errorf("%s: %w", sec, err)
		}
		return nil
	})
}

// SetEnergyCost sets the price per kWh.
func (st *State) SetEnergyCost(ctx context.Context, name string, cost float64) error {
	return st.mutate(ctx, "set_energy_cost", name, func(s *scenario.Scenario) error {
		if err := scenario.CheckValue(cost); err != nil {
			return fmt.Errorf("energy cost: %w", err)
		}
		s.EnergyCost = cost
		return nil
	})
}

// SetBlackMass sets the batch size in kg.
func (st *State) SetBlackMass(ctx context.Context, name string, kg float64) error {
	return st.mutate(ctx, "set_black_mass", name, func(s *scenario.Scenario) error {
		if err := scenario.CheckValue(kg); err != nil {
			return fmt.Errorf("total black mass: %w", err)
		}
		if kg < MinBlackMass {
			return ErrBlackMassTooSmall
		}
		s.TechnicalKPIs.TotalBlackMass = kg
		return nil
	})
}

// AddAssumption appends a free-text assumption.
func (st *State) AddAssumption(ctx context.Context, name, text string) error {
	return st.mutate(ctx, "add_assumption", name, func(s *scenario.Scenario) error {
		text, err := checkAssumption(text)
		if err != nil {
			return err
		}
		s.Assumptions = append(s.Assumptions, text)
		return nil
	})
}

// SetAssumption replaces the stored assumption at index.
func (st *State) SetAssumption(ctx context.Context, name string, index int, text string) error {
	return st.mutate(ctx, "set_assumption", name, func(s *scenario.Scenario) error {
		if index < 0 || index >= len(s.Assumptions) {
			return fmt.Errorf("%d: %w", index, ErrIndexOutOfRange)
		}
		text, err := checkAssumption(text)
		if err != nil {
			return err
		}
		s.Assumptions[index] = text
		return nil
	})
}

// checkAssumption rejects empty text and text shaped like the batch size
// line, which is derived from the black mass and dropped on load.
func checkAssumption(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("assumption: %w", scenario.ErrEmptyName)
	}
	if scenario.IsBatchSizeText(text) {
		return "", fmt.Errorf("assumption %q: %w, set the total black mass instead", text, scenario.ErrReservedName)
	}
	return text, nil
}

// DeleteAssumption removes the stored assumption at index.
func (st *State) DeleteAssumption(ctx context.Context, name string, index int) error {
	return st.mutate(ctx, "delete_assumption", name, func(s *scenario.Scenario) error {
		if index < 0 || index >= len(s.Assumptions) {
			return fmt.Errorf("%d: %w", index, ErrIndexOutOfRange)
		}
		s.Assumptions = append(s.Assumptions[:index], s.Assumptions[index+1:]...)
		return nil
	})
}

// AddPhase adds an empty process phase.
func (st *State) AddPhase(ctx context.Context, name, phase string) error {
	return st.mutate(ctx, "add_phase", name, func(s *scenario.Scenario) error {
		phase = strings.TrimSpace(phase)
		if phase == "" {
			return fmt.Errorf("phase: %w", scenario.ErrEmptyName)
		}
		phases := s.TechnicalKPIs.Phases
		if _, ok := phases[phase]; ok {
			return fmt.Errorf("phase %q: %w", phase, scenario.ErrDuplicateName)
		}
		phases[phase] = scenario.Phase{Masses: map[string]float64{}, Liquids: map[string]float64{}}
		return nil
	})
}

// RenamePhase renames a phase, keeping its masses and liquids.
func (st *State) RenamePhase(ctx context.Context, name, oldPhase, newPhase string) error {
	return st.mutate(ctx, "rename_phase", name, func(s *scenario.Scenario) error {
		renamed, err := scenario.RenameEntry(s.TechnicalKPIs.Phases, oldPhase, strings.TrimSpace(newPhase))
		if err != nil {
			return fmt.Errorf("phase: %w", err)
		}
		s.TechnicalKPIs.Phases = renamed
		return nil
	})
}

// DeletePhase removes a phase.
func (st *State) DeletePhase(ctx context.Context, name, phase string) error {
	return st.mutate(ctx, "delete_phase", name, func(s *scenario.Scenario) error {
		if _, ok := s.TechnicalKPIs.Phases[phase]; !ok {
			return fmt.Errorf("phase %q: %w", phase, scenario.ErrNotFound)
		}
		delete(s.TechnicalKPIs.Phases, phase)
		return nil
	})
}

// SetPhaseMass adds or updates a solid mass of a phase, in kg.
func (st *State) SetPhaseMass(ctx context.Context, name, phase, massType string, kg float64) error {
	return st.mutate(ctx, "set_phase_mass", name, func(s *scenario.Scenario) error {
		return upsertPhaseValue(s, phase, massType, kg, func(p scenario.Phase) map[string]float64 { return p.Masses })
	})
}

// DeletePhaseMass removes a solid mass from a phase.
func (st *State) DeletePhaseMass(ctx context.Context, name, phase, massType string) error {
	return st.mutate(ctx, "delete_phase_mass", name, func(s *scenario.Scenario) error {
		return deletePhaseValue(s, phase, massType, func(p scenario.Phase) map[string]float64 { return p.Masses })
	})
}

// SetPhaseLiquid adds or updates a liquid volume of a phase, in L.
func (st *State) SetPhaseLiquid(ctx context.Context, name, phase, liquid string, litres float64) error {
	return st.mutate(ctx, "set_phase_liquid", name, func(s *scenario.Scenario) error {
		return upsertPhaseValue(s, phase, liquid, litres, func(p scenario.Phase) map[string]float64 { return p.Liquids })
	})
}

// DeletePhaseLiquid removes a liquid from a phase.
func (st *State) DeletePhaseLiquid(ctx context.Context, name, phase, liquid string) error {
	return st.mutate(ctx, "delete_phase_liquid", name, func(s *scenario.Scenario) error {
		return deletePhaseValue(s, phase, liquid, func(p scenario.Phase) map[string]float64 { return p.Liquids })
	})
}

func upsertPhaseValue(s *scenario.Scenario, phase, key string, value float64, pick func(scenario.Phase) map[string]float64) error {
	p, ok := s.TechnicalKPIs.Phases[phase]
	if !ok {
		return fmt.Errorf("phase %q: %w", phase, scenario.ErrNotFound)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("phase %q: %w", phase, scenario.ErrEmptyName)
	}
	if err := scenario.CheckValue(value); err != nil {
		return fmt.Errorf("phase %q %q: %w", phase, key, err)
	}
	pick(p)[key] = value
	return nil
}

func deletePhaseValue(s *scenario.Scenario, phase, key string, pick func(scenario.Phase) map[string]float64) error {
	p, ok := s.TechnicalKPIs.Phases[phase]
	if !ok {
		return fmt.Errorf("phase %q: %w", phase, scenario.ErrNotFound)
	}
	if err := scenario.DeleteEntry(pick(p), key); err != nil {
		return fmt.Errorf("phase %q: %w", phase, err)
	}
	return nil
}
