package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var batchSizePattern = regexp.MustCompile(`^\s*Batch Size \(\s*([0-9]+(?:\.[0-9]+)?)\s*kg\s*\)\s*$`)

// Warnings collects non-fatal decode problems. Every coercion adds one entry.
type Warnings []string

func (w *Warnings) add(format string, args ...any) {
	*w = append(*w, fmt.Sprintf(format, args...))
}

// IsBatchSizeText reports whether text has the shape of the batch size line
// derived from total_black_mass. Such lines are never stored.
func IsBatchSizeText(text string) bool {
	return batchSizePattern.MatchString(text)
}

// ForScenario returns the entries reported for the named scenario.
func (w Warnings) ForScenario(name string) Warnings {
	return w.withPrefix(fmt.Sprintf("scenario %q", name))
}

// ForCaseStudy returns the entries reported for the named case study.
func (w Warnings) ForCaseStudy(name string) Warnings {
	return w.withPrefix(fmt.Sprintf("case study %q", name))
}

func (w Warnings) withPrefix(prefix string) Warnings {
	var out Warnings
	for _, entry := range w {
		if strings.HasPrefix(entry, prefix) {
			out = append(out, entry)
		}
	}
	return out
}

// Encode writes the document as indented JSON.
func Encode(set Set) ([]byte, error) {
	for _, s := range set {
		s.Normalize()
	}
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode scenarios: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses a scenario document. Missing keys are backfilled with their
// defaults and legacy or malformed nested shapes are upgraded; each such repair
// is reported in the returned warnings. An error is returned only when the
// top level is not a JSON object.
func Decode(data []byte) (Set, Warnings, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("decode scenarios: %w", err)
	}
	if raw == nil {
		return nil, nil, fmt.Errorf("decode scenarios: document is null")
	}

	var warnings Warnings
	set := make(Set, len(raw))
	for name, body := range raw {
		set[name] = decodeScenario(name, body, &warnings)
	}
	return set, warnings, nil
}

// DecodeScenario parses a single scenario record with the same repair rules as Decode.
func DecodeScenario(name string, data []byte) (*Scenario, Warnings) {
	var warnings Warnings
	s := decodeScenario(name, data, &warnings)
	return s, warnings
}

func decodeScenario(name string, body json.RawMessage, w *Warnings) *Scenario {
	fields, ok := decodeObject(body)
	if !ok {
		w.add("scenario %q: record is not an object, replaced with defaults", name)
		return Default()
	}

	def := Default()
	s := &Scenario{}

	s.Capex = numberMapField(fields, "capex", def.Capex, name, w)
	s.Opex = numberMapField(fields, "opex", def.Opex, name, w)
	s.EnergyConsumption = numberMapField(fields, "energy_consumption", def.EnergyConsumption, name, w)
	s.EnergyCost = numberField(fields, "energy_cost", def.EnergyCost, name, w)

	blackMassFromText := 0.0
	if raw, ok := fields["assumptions"]; ok {
		s.Assumptions, blackMassFromText = decodeAssumptions(raw, name, w)
	} else {
		w.add("scenario %q: missing %q, default inserted", name, "assumptions")
		s.Assumptions = def.Assumptions
	}

	if raw, ok := fields["technical_kpis"]; ok {
		s.TechnicalKPIs = decodeKPIs(raw, name, blackMassFromText, w)
	} else {
		w.add("scenario %q: missing %q, default inserted", name, "technical_kpis")
		s.TechnicalKPIs = def.TechnicalKPIs
	}

	s.Normalize()
	return s
}

func decodeKPIs(body json.RawMessage, name string, blackMassFromText float64, w *Warnings) TechnicalKPIs {
	def := DefaultTechnicalKPIs()
	fields, ok := decodeObject(body)
	if !ok {
		w.add("scenario %q: technical_kpis is not an object, replaced with defaults", name)
		return def
	}

	kpis := TechnicalKPIs{
		Composition:     numberMapField(fields, "composition", def.Composition, name, w),
		RecoveredMasses: numberMapField(fields, "recovered_masses", def.RecoveredMasses, name, w),
		Efficiency:      numberField(fields, "efficiency", def.Efficiency, name, w),
	}

	if raw, ok := fields["phases"]; ok {
		kpis.Phases = decodePhases(raw, fmt.Sprintf("scenario %q", name), w)
	} else {
		w.add("scenario %q: missing %q, default inserted", name, "phases")
		kpis.Phases = def.Phases
	}

	if _, ok := fields["total_black_mass"]; !ok && blackMassFromText > 0 {
		w.add("scenario %q: total_black_mass taken from batch size assumption", name)
		kpis.TotalBlackMass = blackMassFromText
	} else {
		kpis.TotalBlackMass = numberField(fields, "total_black_mass", def.TotalBlackMass, name, w)
	}
	return kpis
}

// decodeAssumptions strips stored batch size lines, which are derived from
// total_black_mass, and reports the first parsed batch size.
func decodeAssumptions(body json.RawMessage, name string, w *Warnings) ([]string, float64) {
	var items []any
	if err := json.Unmarshal(body, &items); err != nil || items == nil {
		w.add("scenario %q: assumptions is not a list, replaced with an empty list", name)
		return []string{}, 0
	}

	out := make([]string, 0, len(items))
	blackMass := 0.0
	for i, item := range items {
		text, ok := item.(string)
		if !ok {
			w.add("scenario %q: assumption %d is not text, converted", name, i)
			text = fmt.Sprint(item)
		}
		if m := batchSizePattern.FindStringSubmatch(text); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil && blackMass == 0 {
				blackMass = v
			}
			continue
		}
		out = append(out, text)
	}
	return out, blackMass
}

func decodePhases(body json.RawMessage, where string, w *Warnings) map[string]Phase {
	fields, ok := decodeObject(body)
	if !ok {
		w.add("%s: phases is not an object, replaced with an empty mapping", where)
		return map[string]Phase{}
	}

	phases := make(map[string]Phase, len(fields))
	for phaseName, raw := range fields {
		phases[phaseName] = decodePhase(raw, fmt.Sprintf("%s phase %q", where, phaseName), w)
	}
	return phases
}

// DecodePhase upgrades a single phase record. Supported shapes:
//
//	{"masses": {"Black Mass": 5}, "liquids": {"Water": 20}}
//	{"mass": 5, "liquids": [{"type": "Water", "volume": 20}]}
//	{"mass": 5, "liquids": [20, 5]}
func DecodePhase(data []byte, where string) (Phase, Warnings) {
	var warnings Warnings
	p := decodePhase(data, where, &warnings)
	return p, warnings
}

func decodePhase(body json.RawMessage, where string, w *Warnings) Phase {
	p := Phase{Masses: map[string]float64{}, Liquids: map[string]float64{}}

	fields, ok := decodeObject(body)
	if !ok {
		w.add("%s: record is not an object, replaced with an empty phase", where)
		return p
	}

	switch {
	case fields["masses"] != nil:
		p.Masses = numberMap(fields["masses"], where+" masses", w)
	case fields["mass"] != nil:
		v := coerceNumber(fields["mass"], where+" mass", w)
		w.add("%s: single mass upgraded to mass type %q", where, LegacyMassType)
		p.Masses[LegacyMassType] = v
	}

	if raw := fields["liquids"]; raw != nil {
		p.Liquids = decodeLiquids(raw, where, w)
	}
	return p
}

func decodeLiquids(body json.RawMessage, where string, w *Warnings) map[string]float64 {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return numberMap(body, where+" liquids", w)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		w.add("%s: liquids could not be read, replaced with an empty mapping", where)
		return map[string]float64{}
	}
	w.add("%s: liquids stored as a list, converted to a mapping", where)

	out := make(map[string]float64, len(items))
	for i, item := range items {
		label := fmt.Sprintf("Liquid %d", i+1)
		var volumeRaw json.RawMessage = item

		if fields, ok := decodeObject(item); ok {
			volumeRaw = fields["volume"]
			var typ string
			if err := json.Unmarshal(fields["type"], &typ); err == nil && strings.TrimSpace(typ) != "" {
				label = strings.TrimSpace(typ)
			}
		}

		volume := coerceNumber(volumeRaw, fmt.Sprintf("%s liquid %q", where, label), w)
		out[uniqueKey(out, label)] = volume
	}
	return out
}

func uniqueKey(m map[string]float64, key string) string {
	if _, ok := m[key]; !ok {
		return key
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s (%d)", key, i)
		if _, ok := m[candidate]; !ok {
			return candidate
		}
	}
}

func numberMapField(fields map[string]json.RawMessage, key string, def map[string]float64, name string, w *Warnings) map[string]float64 {
	raw, ok := fields[key]
	if !ok {
		w.add("scenario %q: missing %q, default inserted", name, key)
		return cloneMap(def)
	}
	return numberMap(raw, fmt.Sprintf("scenario %q %s", name, key), w)
}

func numberField(fields map[string]json.RawMessage, key string, def float64, name string, w *Warnings) float64 {
	raw, ok := fields[key]
	if !ok {
		w.add("scenario %q: missing %q, default inserted", name, key)
		return def
	}
	return coerceNumber(raw, fmt.Sprintf("scenario %q %s", name, key), w)
}

func numberMap(body json.RawMessage, where string, w *Warnings) map[string]float64 {
	fields, ok := decodeObject(body)
	if !ok {
		w.add("%s: not a mapping, replaced with an empty mapping", where)
		return map[string]float64{}
	}
	out := make(map[string]float64, len(fields))
	for k, raw := range fields {
		out[k] = coerceNumber(raw, fmt.Sprintf("%s %q", where, k), w)
	}
	return out
}

// coerceNumber reads a JSON number or numeric string. Anything else, and
// negative or non-finite values, become 0 with a warning.
func coerceNumber(raw json.RawMessage, where string, w *Warnings) float64 {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		w.add("%s: unreadable value treated as 0", where)
		return 0
	}

	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			w.add("%s: non-numeric value %q treated as 0", where, t)
			return 0
		}
		f = parsed
	default:
		w.add("%s: non-numeric value treated as 0", where)
		return 0
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		w.add("%s: invalid value %v treated as 0", where, f)
		return 0
	}
	return f
}

func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

// Normalize replaces nil collections with empty ones so the encoded document
// never contains null in place of a mapping or list.
func (s *Scenario) Normalize() {
	s.Capex = nonNil(s.Capex)
	s.Opex = nonNil(s.Opex)
	s.EnergyConsumption = nonNil(s.EnergyConsumption)
	if s.Assumptions == nil {
		s.Assumptions = []string{}
	}
	s.TechnicalKPIs.Composition = nonNil(s.TechnicalKPIs.Composition)
	s.TechnicalKPIs.RecoveredMasses = nonNil(s.TechnicalKPIs.RecoveredMasses)
	if s.TechnicalKPIs.Phases == nil {
		s.TechnicalKPIs.Phases = map[string]Phase{}
	}
	for name, p := range s.TechnicalKPIs.Phases {
		s.TechnicalKPIs.Phases[name] = Phase{Masses: nonNil(p.Masses), Liquids: nonNil(p.Liquids)}
	}
}

func nonNil(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}
