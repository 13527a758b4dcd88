package scenario

import (
	"reflect"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	set := Set{"Pilot A": Default(), "Pilot B": Default()}
	set["Pilot B"].Capex["Extra Tank"] = 1234.5
	set["Pilot B"].TechnicalKPIs.TotalBlackMass = 12.5

	data, err := Encode(set)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, warnings, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if !reflect.DeepEqual(set, decoded) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", set, decoded)
	}
}

func TestDecodeBackfillsMissingKeysAndRoundTrips(t *testing.T) {
	data := []byte(`{"Partial": {"capex": {"Mill": 100}, "technical_kpis": {"composition": {"Li": 5}}}}`)

	set, warnings, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	s := set["Partial"]
	if s.Capex["Mill"] != 100 || len(s.Capex) != 1 {
		t.Fatalf("capex not preserved: %+v", s.Capex)
	}
	def := Default()
	if !reflect.DeepEqual(s.Opex, def.Opex) {
		t.Fatalf("opex not backfilled: %+v", s.Opex)
	}
	if s.TechnicalKPIs.TotalBlackMass != DefaultBlackMass {
		t.Fatalf("total_black_mass = %v, want %v", s.TechnicalKPIs.TotalBlackMass, DefaultBlackMass)
	}
	if len(s.TechnicalKPIs.Phases) == 0 {
		t.Fatalf("phases not backfilled")
	}
	if len(warnings) == 0 {
		t.Fatalf("expected missing-key warnings")
	}

	again, err := Encode(set)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	reloaded, warnings, err := Decode(again)
	if err != nil {
		t.Fatalf("Decode after repair: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("repaired document still warns: %v", warnings)
	}
	if !reflect.DeepEqual(set, reloaded) {
		t.Fatalf("repaired document does not round trip")
	}
}

func TestDecodeRejectsNonObjectDocument(t *testing.T) {
	for _, input := range []string{`not json`, `[1,2]`, `null`} {
		if _, _, err := Decode([]byte(input)); err == nil {
			t.Fatalf("Decode(%q): expected error", input)
		}
	}
}

func TestDecodeUpgradesLegacyPhaseShape(t *testing.T) {
	data := []byte(`{"mass": 5, "liquids": [{"type": "Malic Acid", "volume": 5}, {"type": "Water", "volume": "2"}, {"type": "Water", "volume": "lots"}]}`)

	p, warnings := DecodePhase(data, "test")

	if p.Masses[LegacyMassType] != 5 || len(p.Masses) != 1 {
		t.Fatalf("masses = %+v", p.Masses)
	}
	want := map[string]float64{"Malic Acid": 5, "Water": 2, "Water (2)": 0}
	if !reflect.DeepEqual(p.Liquids, want) {
		t.Fatalf("liquids = %+v, want %+v", p.Liquids, want)
	}

	var sawList, sawNonNumeric bool
	for _, w := range warnings {
		if strings.Contains(w, "converted to a mapping") {
			sawList = true
		}
		if strings.Contains(w, "non-numeric") {
			sawNonNumeric = true
		}
	}
	if !sawList || !sawNonNumeric {
		t.Fatalf("missing expected warnings: %v", warnings)
	}
}

func TestDecodeIndexesBareLiquidList(t *testing.T) {
	p, _ := DecodePhase([]byte(`{"masses": {"Black Mass": 3}, "liquids": [10, 4]}`), "test")

	want := map[string]float64{"Liquid 1": 10, "Liquid 2": 4}
	if !reflect.DeepEqual(p.Liquids, want) {
		t.Fatalf("liquids = %+v, want %+v", p.Liquids, want)
	}
}

func TestDecodeStripsBatchSizeAssumption(t *testing.T) {
	data := []byte(`{"Old": {"assumptions": ["Batch Size (25 kg)", "Two shifts"], "technical_kpis": {"composition": {}}}}`)

	set, _, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	s := set["Old"]
	if !reflect.DeepEqual(s.Assumptions, []string{"Two shifts"}) {
		t.Fatalf("assumptions = %v", s.Assumptions)
	}
	if s.TechnicalKPIs.TotalBlackMass != 25 {
		t.Fatalf("total_black_mass = %v, want 25", s.TechnicalKPIs.TotalBlackMass)
	}
	if got := s.DisplayAssumptions()[0]; got != "Batch Size (25 kg)" {
		t.Fatalf("display line = %q", got)
	}
}

func TestDecodeKeepsStoredBlackMassOverText(t *testing.T) {
	data := []byte(`{"Old": {"assumptions": ["Batch Size (25 kg)"], "technical_kpis": {"total_black_mass": 8}}}`)

	set, _, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := set["Old"].TechnicalKPIs.TotalBlackMass; got != 8 {
		t.Fatalf("total_black_mass = %v, want 8", got)
	}
}

func TestDecodeCaseStudies(t *testing.T) {
	data := []byte(`{"Smith 2021": {"reference": "Smith et al.", "capex": {"Reactor": 90000}, "technical_kpis": {"initial_masses": {"Li": 1}, "recovered_masses": {"Li": 0.9}, "phases": {"Leach": {"mass": 2, "liquids": [{"type": "Water", "volume": 8}]}}}}}`)

	studies, warnings, err := DecodeCaseStudies(data)
	if err != nil {
		t.Fatalf("DecodeCaseStudies: %v", err)
	}
	cs := studies["Smith 2021"]
	if cs.Reference != "Smith et al." || cs.Capex["Reactor"] != 90000 {
		t.Fatalf("unexpected case study: %+v", cs)
	}
	if cs.TechnicalKPIs.Phases["Leach"].Liquids["Water"] != 8 {
		t.Fatalf("phase not upgraded: %+v", cs.TechnicalKPIs.Phases)
	}
	if len(warnings) == 0 {
		t.Fatalf("expected legacy shape warnings")
	}
}
