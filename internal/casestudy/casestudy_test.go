package casestudy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "case_studies.yaml")
	content := []byte(`
Hydromet 2022:
  reference: Journal of Cleaner Production
  capex:
    Reactor: 150000
  opex:
    Labor: 300
    Energy: 45
  technical_kpis:
    initial_masses:
      Li: 0.7
    recovered_masses:
      Li: 0.6
    efficiency: 62
    phases:
      Leaching:
        masses:
          Black Mass: 5
        liquids:
          Citric Acid: 25
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	lib, warnings, err := Load(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	cs, ok := lib["Hydromet 2022"]
	if !ok {
		t.Fatalf("case study missing: %v", lib.Names())
	}
	if cs.Capex["Reactor"] != 150000 || cs.Opex["Energy"] != 45 {
		t.Fatalf("unexpected economics: %+v", cs)
	}
	if cs.TechnicalKPIs.Phases["Leaching"].Liquids["Citric Acid"] != 25 {
		t.Fatalf("unexpected phases: %+v", cs.TechnicalKPIs.Phases)
	}
}

func TestLoad_JSONWithLegacyLiquids(t *testing.T) {
	path := filepath.Join(t.TempDir(), "case_studies.json")
	content := []byte(`{"Pyro 2019": {"technical_kpis": {"phases": {"Smelt": {"mass": 10, "liquids": [{"type": "Water", "volume": "n/a"}]}}}}}`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	lib, warnings, err := Load(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	phase := lib["Pyro 2019"].TechnicalKPIs.Phases["Smelt"]
	if phase.Liquids["Water"] != 0 || phase.Masses["Mass"] != 10 {
		t.Fatalf("phase not coerced: %+v", phase)
	}
	if len(warnings) < 2 {
		t.Fatalf("expected upgrade and coercion warnings, got %v", warnings)
	}
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	lib, _, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.json"), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(lib) != 0 {
		t.Fatalf("expected empty library, got %v", lib.Names())
	}
}
