package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

const (
	defaultDBPath          = "./dev.db"
	defaultPort            = "8080"
	defaultScenariosPath   = "./scenarios.json"
	defaultCaseStudiesPath = "./case_studies.json"

	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// ErrSessionSecretRequired is returned by Validate when login is enabled
// without a key to sign session cookies.
var ErrSessionSecretRequired = errors.New("SESSION_SECRET must be set when STORAGE=sqlite")

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env             string
	Port            string
	Storage         string
	ScenariosPath   string
	CaseStudiesPath string
	DBPath          string
	RepairJSON      bool
	SessionSecret   string
	AdminUsername   string
	AdminPassword   string
	LogLevel        string
	LogFormat       string

	// Warnings lists configuration problems that do not prevent startup.
	Warnings []string
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: load local dev environment variables.
	_ = loadDotEnv(".env")

	cfg := Config{
		Env:             os.Getenv("APP_ENV"),
		Port:            os.Getenv("PORT"),
		Storage:         strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE"))),
		ScenariosPath:   os.Getenv("SCENARIOS_PATH"),
		CaseStudiesPath: os.Getenv("CASE_STUDIES_PATH"),
		DBPath:          os.Getenv("DB_PATH"),
		SessionSecret:   os.Getenv("SESSION_SECRET"),
		AdminUsername:   os.Getenv("ADMIN_USERNAME"),
		AdminPassword:   os.Getenv("ADMIN_PASSWORD"),
		LogLevel:        os.Getenv("LOG_LEVEL"),
		LogFormat:       os.Getenv("LOG_FORMAT"),
	}

	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.ScenariosPath == "" {
		cfg.ScenariosPath = defaultScenariosPath
	}
	if cfg.CaseStudiesPath == "" {
		cfg.CaseStudiesPath = defaultCaseStudiesPath
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}

	switch cfg.Storage {
	case "":
		cfg.Storage = StorageFile
	case StorageFile, StorageSQLite:
	default:
		cfg.Warnings = append(cfg.Warnings, "STORAGE="+cfg.Storage+" is not supported, using file")
		cfg.Storage = StorageFile
	}

	if raw := os.Getenv("SCENARIO_REPAIR_JSON"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			cfg.Warnings = append(cfg.Warnings, "SCENARIO_REPAIR_JSON is not a boolean, ignored")
		}
		cfg.RepairJSON = v
	}

	if cfg.SessionSecret == "" {
		cfg.Warnings = append(cfg.Warnings, "SESSION_SECRET is not set")
	}
	if cfg.AdminUsername == "" {
		cfg.Warnings = append(cfg.Warnings, "ADMIN_USERNAME is not set")
	}
	if cfg.AdminPassword == "" {
		cfg.Warnings = append(cfg.Warnings, "ADMIN_PASSWORD is not set")
	}

	return cfg
}

// IsDev reports whether migrations and seeding run at startup.
func (c Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "development"
}

// Validate reports configuration that must prevent startup.
func (c Config) Validate() error {
	if c.Storage == StorageSQLite && c.SessionSecret == "" {
		return ErrSessionSecretRequired
	}
	return nil
}
