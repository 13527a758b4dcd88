package seed

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/Simplici0/blackmass/internal/scenario"
)

// Config contains the values required by startup seed.
type Config struct {
	AdminUsername string
	AdminPassword string
	// BcryptCost defaults to bcrypt.DefaultCost when zero.
	BcryptCost int
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

// Run executes the startup seed in an idempotent way: the admin user and
// its default scenario are created once and never overwritten.
func Run(ctx context.Context, db *sql.DB, cfg Config) (Stats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	created, err := seedAdmin(ctx, tx, cfg, &stats)
	if err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if created {
		if err := ensureDefaultScenario(ctx, tx, cfg.AdminUsername, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func seedAdmin(ctx context.Context, tx *sql.Tx, cfg Config, stats *Stats) (bool, error) {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return false, nil
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = ? LIMIT 1)`, cfg.AdminUsername).Scan(&exists); err != nil {
		return false, fmt.Errorf("check admin user existence: %w", err)
	}
	if exists {
		return false, nil
	}

	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), cost)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO users (username, password_hash) VALUES (?, ?)`, cfg.AdminUsername, string(hash)); err != nil {
		return false, fmt.Errorf("insert admin user: %w", err)
	}
	stats.Inserts++
	return true, nil
}

func ensureDefaultScenario(ctx context.Context, tx *sql.Tx, username string, stats *Stats) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM scenarios WHERE username = ? LIMIT 1)`, username).Scan(&exists); err != nil {
		return fmt.Errorf("check admin scenarios: %w", err)
	}
	if exists {
		return nil
	}

	s := scenario.Default()
	s.Normalize()
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode default scenario: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO scenarios (username, scenario_name, data)
		VALUES (?, ?, ?)
	`, username, scenario.DefaultName, string(data)); err != nil {
		return fmt.Errorf("insert default scenario: %w", err)
	}
	stats.Inserts++
	return nil
}
