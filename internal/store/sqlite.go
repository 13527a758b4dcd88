package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Simplici0/blackmass/internal/logging"
	"github.com/Simplici0/blackmass/internal/observability"
	"github.com/Simplici0/blackmass/internal/scenario"
)

const sqliteStoreKind = "sqlite"

// SQLiteStore keeps one user's scenarios as JSON rows of the scenarios table.
type SQLiteStore struct {
	db       *sql.DB
	username string
	log      logging.Logger
	metrics  *observability.Metrics
}

// NewSQLiteStore returns the scenario store of username.
func NewSQLiteStore(db *sql.DB, username string, log logging.Logger, metrics *observability.Metrics) *SQLiteStore {
	if log == nil {
		log = logging.Noop()
	}
	return &SQLiteStore{db: db, username: username, log: log, metrics: metrics}
}

// Load reads every scenario row of the user. A user without rows gets the default document.
func (s *SQLiteStore) Load(ctx context.Context) (scenario.Set, scenario.Warnings, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT scenario_name, data
		FROM scenarios
		WHERE username = ?
		ORDER BY scenario_name
	`, s.username)
	if err != nil {
		return nil, nil, fmt.Errorf("query scenarios: %w", err)
	}
	defer rows.Close()

	set := scenario.Set{}
	var warnings scenario.Warnings
	for rows.Next() {
		var name, data string
		if err := rows.Scan(&name, &data); err != nil {
			return nil, nil, fmt.Errorf("scan scenario: %w", err)
		}
		sc, w := scenario.DecodeScenario(name, []byte(data))
		set[name] = sc
		warnings = append(warnings, w...)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate scenarios: %w", err)
	}

	if len(set) == 0 {
		s.log.Info(ctx, "no stored scenarios, starting from default", logging.String("username", s.username))
		return scenario.DefaultSet(), nil, nil
	}

	for _, w := range warnings {
		s.log.Warn(ctx, "scenario repaired on load", logging.String("username", s.username), logging.String("detail", w))
	}
	s.metrics.DecodeWarned(len(warnings))
	return set, warnings, nil
}

// Save replaces all rows of the user with the given document in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, set scenario.Set) error {
	if err := s.save(ctx, set); err != nil {
		s.metrics.SaveFailed(sqliteStoreKind)
		s.log.Error(ctx, "scenario save failed", logging.String("username", s.username), logging.Err(err))
		return err
	}
	s.metrics.SaveSucceeded(sqliteStoreKind)
	return nil
}

func (s *SQLiteStore) save(ctx context.Context, set scenario.Set) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin scenario transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM scenarios WHERE username = ?`, s.username); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear scenarios: %w", err)
	}

	for _, name := range set.Names() {
		sc := set[name]
		sc.Normalize()
		data, err := json.Marshal(sc)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode scenario %q: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO scenarios (username, scenario_name, data, updated_at)
			VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		`, s.username, name, string(data)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert scenario %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit scenario transaction: %w", err)
	}
	return nil
}
