// Package store defines the storage contract of tally. Backends live in the
// memory, postgres, sqlite and mongo sub-packages.
package store

import (
	"context"

	"github.com/xraph/tally/entry"
)

// Store is the unified storage interface for ledger entries plus the
// lifecycle methods every backend provides.
type Store interface {
	entry.Store

	// Migrate creates or upgrades the backend schema.
	Migrate(ctx context.Context) error
	// Ping checks connectivity.
	Ping(ctx context.Context) error
	// Close releases the backend.
	Close() error
}
