// Package plugin provides the hook system of tally. Plugins observe entry
// writes and reconcile runs; they cannot change the outcome of either.
package plugin

import (
	"context"

	"github.com/xraph/tally/entry"
	"github.com/xraph/tally/stream"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts. engine is the *tally.Engine.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Entry hooks
// ──────────────────────────────────────────────────

// OnEntryAppended is called after an entry is inserted with its running
// balance.
type OnEntryAppended interface {
	Plugin
	OnEntryAppended(ctx context.Context, e *entry.Entry) error
}

// OnBackdatedEntry is called when a recorded entry sorts before the
// previous tail of its stream. tail is the entry that was last before it.
type OnBackdatedEntry interface {
	Plugin
	OnBackdatedEntry(ctx context.Context, e, tail *entry.Entry) error
}

// OnEntryUpdated is called after an entry is edited.
type OnEntryUpdated interface {
	Plugin
	OnEntryUpdated(ctx context.Context, before, after *entry.Entry) error
}

// OnEntryDeleted is called after an entry is removed.
type OnEntryDeleted interface {
	Plugin
	OnEntryDeleted(ctx context.Context, e *entry.Entry) error
}

// ──────────────────────────────────────────────────
// Reconcile hooks
// ──────────────────────────────────────────────────

// OnDriftDetected is called when replay finds drifted entries in a stream,
// before any of them is rewritten.
type OnDriftDetected interface {
	Plugin
	OnDriftDetected(ctx context.Context, key stream.Key, drifts []stream.Drift) error
}

// OnRowUpdateFailed is called for each drifted entry whose corrected
// balance could not be written.
type OnRowUpdateFailed interface {
	Plugin
	OnRowUpdateFailed(ctx context.Context, key stream.Key, failure stream.RowFailure) error
}

// OnStreamReconciled is called when a reconcile run of one stream ends.
type OnStreamReconciled interface {
	Plugin
	OnStreamReconciled(ctx context.Context, report *stream.Report) error
}
