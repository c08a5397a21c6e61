// Package backend selects and wires the configured data store.
package backend

import (
	"context"

	"casaspese/internal/store"
)

// Store is the unified persistence surface the service layer needs.
type Store interface {
	store.HouseholdStore
	store.ExpenseStore
	store.ExpenseWatcher
}

// CleanupFunc releases backend resources on shutdown.
type CleanupFunc func(ctx context.Context) error

// RunFunc is a long-running companion loop (e.g. a change-stream
// tailer). It returns when ctx is done.
type RunFunc func(ctx context.Context) error

// Result bundles the store with its lifecycle hooks. Cleanup and Run
// may be nil.
type Result struct {
	Store   Store
	Cleanup CleanupFunc
	Run     RunFunc
}

// Type identifies a backend implementation.
type Type string

const (
	MemoryBackend Type = "memory"
	SQLiteBackend Type = "sqlite"
	MongoBackend  Type = "mongo"
)

func (t Type) String() string { return string(t) }

// IsValid returns true for a known backend type.
func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, SQLiteBackend, MongoBackend:
		return true
	default:
		return false
	}
}
