// Package audithook bridges tally write and reconcile events to an audit
// trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/tally/entry"
	"github.com/xraph/tally/plugin"
	"github.com/xraph/tally/stream"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin             = (*Extension)(nil)
	_ plugin.OnEntryAppended    = (*Extension)(nil)
	_ plugin.OnBackdatedEntry   = (*Extension)(nil)
	_ plugin.OnEntryUpdated     = (*Extension)(nil)
	_ plugin.OnEntryDeleted     = (*Extension)(nil)
	_ plugin.OnDriftDetected    = (*Extension)(nil)
	_ plugin.OnRowUpdateFailed  = (*Extension)(nil)
	_ plugin.OnStreamReconciled = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// It matches chronicle.Emitter but is defined locally so this package does
// not import Chronicle.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges tally events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		enabled:  defaultActions(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Entry hooks
// ──────────────────────────────────────────────────

// OnEntryAppended implements plugin.OnEntryAppended.
func (e *Extension) OnEntryAppended(ctx context.Context, en *entry.Entry) error {
	return e.record(ctx, ActionEntryAppended, SeverityInfo, OutcomeSuccess,
		ResourceEntry, en.ID.String(), CategoryEntry, nil,
		"stream", en.StreamKey.String(),
		"quantity", en.Quantity.String(),
		"balance", en.RunningBalance.String(),
	)
}

// OnBackdatedEntry implements plugin.OnBackdatedEntry.
func (e *Extension) OnBackdatedEntry(ctx context.Context, en, tail *entry.Entry) error {
	return e.record(ctx, ActionEntryBackdated, SeverityWarning, OutcomeSuccess,
		ResourceEntry, en.ID.String(), CategoryEntry, nil,
		"stream", en.StreamKey.String(),
		"occurred_at", en.OccurredAt,
		"tail_id", tail.ID.String(),
		"tail_occurred_at", tail.OccurredAt,
	)
}

// OnEntryUpdated implements plugin.OnEntryUpdated.
func (e *Extension) OnEntryUpdated(ctx context.Context, before, after *entry.Entry) error {
	return e.record(ctx, ActionEntryUpdated, SeverityInfo, OutcomeSuccess,
		ResourceEntry, after.ID.String(), CategoryEntry, nil,
		"stream_before", before.StreamKey.String(),
		"stream_after", after.StreamKey.String(),
		"quantity_before", before.Quantity.String(),
		"quantity_after", after.Quantity.String(),
	)
}

// OnEntryDeleted implements plugin.OnEntryDeleted.
func (e *Extension) OnEntryDeleted(ctx context.Context, en *entry.Entry) error {
	return e.record(ctx, ActionEntryDeleted, SeverityWarning, OutcomeSuccess,
		ResourceEntry, en.ID.String(), CategoryEntry, nil,
		"stream", en.StreamKey.String(),
		"quantity", en.Quantity.String(),
	)
}

// ──────────────────────────────────────────────────
// Reconcile hooks
// ──────────────────────────────────────────────────

// OnDriftDetected implements plugin.OnDriftDetected.
func (e *Extension) OnDriftDetected(ctx context.Context, key stream.Key, drifts []stream.Drift) error {
	return e.record(ctx, ActionDriftDetected, SeverityWarning, OutcomeSuccess,
		ResourceStream, key.String(), CategoryReconcile, nil,
		"drifted", len(drifts),
	)
}

// OnRowUpdateFailed implements plugin.OnRowUpdateFailed.
func (e *Extension) OnRowUpdateFailed(ctx context.Context, key stream.Key, failure stream.RowFailure) error {
	return e.record(ctx, ActionRowUpdateFailed, SeverityError, OutcomeFailure,
		ResourceStream, key.String(), CategoryReconcile, failure.Err,
		"entry_id", failure.EntryID.String(),
		"new_balance", failure.NewBalance.String(),
	)
}

// OnStreamReconciled implements plugin.OnStreamReconciled.
func (e *Extension) OnStreamReconciled(ctx context.Context, report *stream.Report) error {
	outcome := OutcomeSuccess
	severity := SeverityInfo
	if report.Status() == stream.StatusPartial {
		outcome = OutcomePartial
		severity = SeverityWarning
	}

	return e.record(ctx, ActionStreamReconciled, severity, outcome,
		ResourceStream, report.Key.String(), CategoryReconcile, nil,
		"run_id", report.RunID.String(),
		"status", string(report.Status()),
		"examined", report.Examined,
		"updated", report.Updated,
		"failed", report.Failed(),
		"final_balance", report.FinalBalance.String(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
