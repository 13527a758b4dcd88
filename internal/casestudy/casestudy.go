// Package casestudy loads the read-only library of literature baselines.
package casestudy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Simplici0/blackmass/internal/logging"
	"github.com/Simplici0/blackmass/internal/scenario"
)

// Library maps case-study names to their records.
type Library map[string]*scenario.CaseStudy

// Names returns the case-study names in lexical order.
func (l Library) Names() []string {
	return scenario.SortedKeys(l)
}

// Load reads a JSON or YAML (.yaml, .yml) case-study file. A missing file is
// an empty library.
func Load(ctx context.Context, path string, log logging.Logger) (Library, scenario.Warnings, error) {
	if log == nil {
		log = logging.Noop()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Info(ctx, "case study file not found", logging.String("path", path))
			return Library{}, nil, nil
		}
		return nil, nil, fmt.Errorf("read case study file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, nil, err
		}
	}

	studies, warnings, err := scenario.DecodeCaseStudies(data)
	if err != nil {
		return nil, nil, err
	}
	for _, w := range warnings {
		log.Warn(ctx, "case study repaired on load", logging.String("path", path), logging.String("detail", w))
	}
	return Library(studies), warnings, nil
}

// yamlToJSON converts a YAML document so the same decode and migration rules apply to both formats.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode case study yaml: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert case study yaml: %w", err)
	}
	return out, nil
}
