package app

import (
	"context"
	"sync"

	"github.com/Simplici0/blackmass/internal/store"
)

// RepoFunc returns the repository that holds a user's scenarios.
type RepoFunc func(username string) store.Repository

// Workspaces opens one State per user on first use and keeps it for the
// lifetime of the process. With a nil RepoFunc every user shares Shared.
type Workspaces struct {
	mu     sync.Mutex
	repoOf RepoFunc
	opts   []Option
	states map[string]*State
	shared *State
}

// NewShared serves the same State to every caller.
func NewShared(st *State) *Workspaces {
	return &Workspaces{shared: st}
}

// NewPerUser opens a State per username backed by repoOf.
func NewPerUser(repoOf RepoFunc, opts ...Option) *Workspaces {
	return &Workspaces{repoOf: repoOf, opts: opts, states: map[string]*State{}}
}

// Get returns the State of username, opening it when needed.
func (w *Workspaces) Get(ctx context.Context, username string) *State {
	if w.shared != nil {
		return w.shared
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if st, ok := w.states[username]; ok {
		return st
	}
	st := Open(ctx, w.repoOf(username), w.opts...)
	w.states[username] = st
	return st
}
