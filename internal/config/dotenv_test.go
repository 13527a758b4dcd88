package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDotEnv(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	return path
}

func TestLoadDotEnv_LoadsValuesAndIgnoresNoise(t *testing.T) {
	t.Setenv("STORAGE", "")
	t.Setenv("SCENARIOS_PATH", "")
	t.Setenv("SESSION_SECRET", "")

	path := writeDotEnv(t, `
# local pilot settings

STORAGE=sqlite
export SCENARIOS_PATH=./data/scenarios.json
SESSION_SECRET="s3cret value"
`)

	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}

	want := map[string]string{
		"STORAGE":        "sqlite",
		"SCENARIOS_PATH": "./data/scenarios.json",
		"SESSION_SECRET": "s3cret value",
	}
	for k, v := range want {
		if got := os.Getenv(k); got != v {
			t.Fatalf("%s=%q, want %q", k, got, v)
		}
	}
}

func TestLoadDotEnv_DoesNotOverwriteExistingEnv(t *testing.T) {
	t.Setenv("DB_PATH", "/var/lib/blackmass.db")

	path := writeDotEnv(t, "DB_PATH=./dev.db\n")
	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}

	if got := os.Getenv("DB_PATH"); got != "/var/lib/blackmass.db" {
		t.Fatalf("DB_PATH=%q, want the existing value", got)
	}
}

func TestLoadDotEnv_FillsEmptyExistingEnv(t *testing.T) {
	t.Setenv("ADMIN_USERNAME", "")

	path := writeDotEnv(t, "ADMIN_USERNAME='pilot admin'\n")
	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}

	if got := os.Getenv("ADMIN_USERNAME"); got != "pilot admin" {
		t.Fatalf("ADMIN_USERNAME=%q, want %q", got, "pilot admin")
	}
}

func TestLoadDotEnv_MissingFileIsIgnored(t *testing.T) {
	if err := loadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("missing dotenv should not fail: %v", err)
	}
}
