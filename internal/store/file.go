package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	jsonrepair "github.com/RealAlexandreAI/json-repair"

	"github.com/Simplici0/blackmass/internal/logging"
	"github.com/Simplici0/blackmass/internal/observability"
	"github.com/Simplici0/blackmass/internal/scenario"
)

const fileStoreKind = "file"

// FileStore keeps the scenario document in a single JSON file.
type FileStore struct {
	path    string
	repair  bool
	log     logging.Logger
	metrics *observability.Metrics
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithRepair makes Load try to repair malformed JSON before falling back to the default document.
func WithRepair(enabled bool) FileOption {
	return func(s *FileStore) { s.repair = enabled }
}

// WithLogger sets the logger used for load warnings.
func WithLogger(log logging.Logger) FileOption {
	return func(s *FileStore) { s.log = log }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) FileOption {
	return func(s *FileStore) { s.metrics = m }
}

// NewFileStore returns a store backed by the JSON file at path.
func NewFileStore(path string, opts ...FileOption) *FileStore {
	s := &FileStore{path: path, log: logging.Noop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the file location.
func (s *FileStore) Path() string { return s.path }

// Load reads the document. A missing file yields the default document. An
// undecodable file is logged and replaced by the default document in memory;
// the file itself is left untouched until the next save.
func (s *FileStore) Load(ctx context.Context) (scenario.Set, scenario.Warnings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Info(ctx, "scenario file not found, starting from default", logging.String("path", s.path))
			return scenario.DefaultSet(), nil, nil
		}
		return nil, nil, fmt.Errorf("read scenario file: %w", err)
	}

	set, warnings, err := scenario.Decode(data)
	if err != nil && s.repair {
		set, warnings, err = s.decodeRepaired(ctx, data, err)
	}
	if err != nil {
		s.log.Warn(ctx, "scenario file is not valid JSON, using default scenario",
			logging.String("path", s.path), logging.Err(err))
		s.metrics.LoadFellBack("invalid_json")
		return scenario.DefaultSet(), scenario.Warnings{fmt.Sprintf("scenario file %s unreadable: %v", s.path, err)}, nil
	}

	if len(set) == 0 {
		s.metrics.LoadFellBack("empty_document")
		warnings = append(warnings, "scenario file holds no scenarios, default scenario inserted")
		set = scenario.DefaultSet()
	}

	for _, w := range warnings {
		s.log.Warn(ctx, "scenario repaired on load", logging.String("path", s.path), logging.String("detail", w))
	}
	s.metrics.DecodeWarned(len(warnings))
	return set, warnings, nil
}

func (s *FileStore) decodeRepaired(ctx context.Context, data []byte, cause error) (scenario.Set, scenario.Warnings, error) {
	repaired, err := jsonrepair.RepairJSON(string(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%w (repair failed: %v)", cause, err)
	}
	set, warnings, err := scenario.Decode([]byte(repaired))
	if err != nil {
		return nil, nil, fmt.Errorf("%w (repaired document: %v)", cause, err)
	}
	s.log.Warn(ctx, "scenario file repaired", logging.String("path", s.path), logging.Err(cause))
	s.metrics.LoadFellBack("repaired")
	return set, append(scenario.Warnings{"scenario file was malformed and has been repaired"}, warnings...), nil
}

// Save writes the whole document through a temporary file and a rename.
func (s *FileStore) Save(ctx context.Context, set scenario.Set) error {
	if err := s.save(set); err != nil {
		s.metrics.SaveFailed(fileStoreKind)
		s.log.Error(ctx, "scenario save failed", logging.String("path", s.path), logging.Err(err))
		return err
	}
	s.metrics.SaveSucceeded(fileStoreKind)
	return nil
}

func (s *FileStore) save(set scenario.Set) error {
	data, err := scenario.Encode(set)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create scenario directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".scenarios-*.json")
	if err != nil {
		return fmt.Errorf("create temp scenario file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp scenario file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp scenario file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace scenario file: %w", err)
	}
	return nil
}
