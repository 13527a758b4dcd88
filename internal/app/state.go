package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Simplici0/blackmass/internal/casestudy"
	"github.com/Simplici0/blackmass/internal/comparison"
	"github.com/Simplici0/blackmass/internal/economics"
	"github.com/Simplici0/blackmass/internal/logging"
	"github.com/Simplici0/blackmass/internal/observability"
	"github.com/Simplici0/blackmass/internal/scenario"
	"github.com/Simplici0/blackmass/internal/store"
	"github.com/Simplici0/blackmass/internal/technical"
)

// MinBlackMass is the smallest batch size accepted from the user, in kg.
const MinBlackMass = 0.1

var (
	ErrBlackMassTooSmall = fmt.Errorf("total black mass must be at least %v kg", MinBlackMass)
	ErrLastScenario      = errors.New("the last scenario cannot be deleted")
	ErrUnknownSection    = errors.New("unknown section")
	ErrIndexOutOfRange   = errors.New("assumption index out of range")
	ErrUnknownCaseStudy  = errors.New("case study not found")
	ErrPercentRange      = errors.New("composition percentage must be between 0 and 100")
)

// Results is everything derived from one scenario.
type Results struct {
	Name        string           `json:"name"`
	Assumptions []string         `json:"assumptions"`
	Economics   economics.Result `json:"economics"`
	Technical   technical.Result `json:"technical"`
}

// State owns the scenario document of one workspace and every edit applied to it.
// Each successful edit recomputes the scenario and saves the whole document.
type State struct {
	mu             sync.Mutex
	repo           store.Repository
	log            logging.Logger
	metrics        *observability.Metrics
	cases          casestudy.Library
	caseWarnings   scenario.Warnings
	scenarios      scenario.Set
	current        string
	warnings       scenario.Warnings
	sourceWarnings map[string]scenario.Warnings
}

// Option configures a State.
type Option func(*State)

func WithLogger(log logging.Logger) Option {
	return func(s *State) { s.log = log }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(s *State) { s.metrics = m }
}

// WithCaseStudies sets the literature baselines available to Compare together
// with the repairs reported while loading them.
func WithCaseStudies(lib casestudy.Library, warnings scenario.Warnings) Option {
	return func(s *State) {
		s.cases = lib
		s.caseWarnings = warnings
	}
}

// Open loads the document from repo. A failing load is logged and replaced by
// the default document so a broken store never prevents startup.
func Open(ctx context.Context, repo store.Repository, opts ...Option) *State {
	st := &State{repo: repo, log: logging.Noop(), cases: casestudy.Library{}}
	for _, opt := range opts {
		opt(st)
	}

	set, warnings, err := repo.Load(ctx)
	if err != nil {
		st.log.Warn(ctx, "loading scenarios failed, using default scenario", logging.Err(err))
		st.metrics.LoadFellBack("load_error")
		set = scenario.DefaultSet()
		warnings = append(warnings, "stored scenarios could not be loaded: "+err.Error())
	}
	if len(set) == 0 {
		set = scenario.DefaultSet()
	}

	for _, s := range set {
		recompute(s)
	}
	st.scenarios = set
	st.warnings = warnings
	st.sourceWarnings = make(map[string]scenario.Warnings, len(set))
	for name := range set {
		if w := warnings.ForScenario(name); len(w) > 0 {
			st.sourceWarnings[name] = w
		}
	}
	st.current = set.Names()[0]
	if _, ok := set[scenario.DefaultName]; ok {
		st.current = scenario.DefaultName
	}
	return st
}

// LoadWarnings returns the repairs applied while loading the document.
func (st *State) LoadWarnings() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]string(nil), st.warnings...)
}

// Names lists the scenarios in lexical order.
func (st *State) Names() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.scenarios.Names()
}

// Current returns the name of the selected scenario.
func (st *State) Current() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.current
}

// Select makes name the current scenario.
func (st *State) Select(name string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.scenarios[name]; !ok {
		return fmt.Errorf("scenario %q: %w", name, scenario.ErrNotFound)
	}
	st.current = name
	return nil
}

// Scenario returns a copy of the named scenario.
func (st *State) Scenario(name string) (*scenario.Scenario, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.scenarios[name]
	if !ok {
		return nil, fmt.Errorf("scenario %q: %w", name, scenario.ErrNotFound)
	}
	return s.Clone(), nil
}

// Results computes the economic and technical metrics of a scenario.
func (st *State) Results(name string) (Results, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.scenarios[name]
	if !ok {
		return Results{}, fmt.Errorf("scenario %q: %w", name, scenario.ErrNotFound)
	}
	return Results{
		Name:        name,
		Assumptions: s.DisplayAssumptions(),
		Economics:   economics.Calculate(s),
		Technical:   technical.Calculate(s.TechnicalKPIs),
	}, nil
}

// Create adds a scenario, copied from copyFrom when it is not empty and
// otherwise built from the defaults. The new scenario becomes current.
func (st *State) Create(ctx context.Context, name, copyFrom string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if name == "" {
		return st.reject("create_scenario", scenario.ErrEmptyName)
	}
	if _, ok := st.scenarios[name]; ok {
		return st.reject("create_scenario", fmt.Errorf("scenario %q: %w", name, scenario.ErrDuplicateName))
	}

	s := scenario.Default()
	if copyFrom != "" {
		src, ok := st.scenarios[copyFrom]
		if !ok {
			return st.reject("create_scenario", fmt.Errorf("scenario %q: %w", copyFrom, scenario.ErrNotFound))
		}
		s = src.Clone()
	}
	recompute(s)

	st.scenarios[name] = s
	st.current = name
	return st.save(ctx)
}

// Delete removes a scenario. The last remaining scenario is kept.
func (st *State) Delete(ctx context.Context, name string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.scenarios[name]; !ok {
		return st.reject("delete_scenario", fmt.Errorf("scenario %q: %w", name, scenario.ErrNotFound))
	}
	if len(st.scenarios) == 1 {
		return st.reject("delete_scenario", ErrLastScenario)
	}

	delete(st.scenarios, name)
	delete(st.sourceWarnings, name)
	if st.current == name {
		st.current = st.scenarios.Names()[0]
	}
	return st.save(ctx)
}

// Rename changes a scenario's name, keeping the current selection on it.
func (st *State) Rename(ctx context.Context, oldName, newName string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	renamed, err := scenario.RenameEntry(st.scenarios, oldName, newName)
	if err != nil {
		return st.reject("rename_scenario", fmt.Errorf("scenario: %w", err))
	}
	st.scenarios = renamed
	if w, ok := st.sourceWarnings[oldName]; ok {
		delete(st.sourceWarnings, oldName)
		st.sourceWarnings[newName] = w
	}
	if st.current == oldName {
		st.current = newName
	}
	return st.save(ctx)
}

// Compare builds the comparison of the named scenarios and case studies.
// Scenarios come first in the given order, then case studies. Repairs made
// while loading a source are reported in the result's warnings.
func (st *State) Compare(scenarios, caseStudies []string, base string) (comparison.Result, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sources := make([]comparison.Source, 0, len(scenarios)+len(caseStudies))
	for _, name := range scenarios {
		s, ok := st.scenarios[name]
		if !ok {
			return comparison.Result{}, fmt.Errorf("scenario %q: %w", name, scenario.ErrNotFound)
		}
		sources = append(sources, comparison.FromScenario(name, s, st.sourceWarnings[name]))
	}
	for _, name := range caseStudies {
		cs, ok := st.cases[name]
		if !ok {
			return comparison.Result{}, fmt.Errorf("%q: %w", name, ErrUnknownCaseStudy)
		}
		sources = append(sources, comparison.FromCaseStudy(name, cs, st.caseWarnings.ForCaseStudy(name)))
	}

	result, err := comparison.Compare(sources, base)
	if err != nil {
		return comparison.Result{}, err
	}
	return result, nil
}

// CaseStudies lists the available literature baselines.
func (st *State) CaseStudies() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.cases.Names()
}

// mutate applies fn to a copy of the named scenario. The copy replaces the
// stored scenario only when fn succeeds, so a rejected edit changes nothing.
func (st *State) mutate(ctx context.Context, op, name string, fn func(s *scenario.Scenario) error) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.scenarios[name]
	if !ok {
		return st.reject(op, fmt.Errorf("scenario %q: %w", name, scenario.ErrNotFound))
	}

	work := s.Clone()
	if err := fn(work); err != nil {
		return st.reject(op, err)
	}
	recompute(work)
	st.metrics.Recomputed()

	st.scenarios[name] = work
	return st.save(ctx)
}

func (st *State) reject(op string, err error) error {
	st.metrics.Rejected(op)
	return err
}

func (st *State) save(ctx context.Context) error {
	if err := st.repo.Save(ctx, st.scenarios); err != nil {
		return fmt.Errorf("save scenarios: %w", err)
	}
	return nil
}

// recompute refreshes the derived Energy opex line and the cached efficiency.
func recompute(s *scenario.Scenario) {
	economics.Refresh(s)
	technical.Apply(s)
}
