// Package store persists the scenario document. Every save rewrites the whole
// document; concurrent writers to the same file or user race and the last write wins.
package store

import (
	"context"

	"github.com/Simplici0/blackmass/internal/scenario"
)

// Repository loads and saves a full scenario document.
type Repository interface {
	// Load returns the stored document. Unreadable content is replaced by the
	// default document and reported through the warnings, not the error.
	Load(ctx context.Context) (scenario.Set, scenario.Warnings, error)
	Save(ctx context.Context, set scenario.Set) error
}
