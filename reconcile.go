package tally

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/stream"
)

// Reconcile replays the stream and rewrites the running balance of every
// drifted entry. Row update failures are recorded in the report and do not
// stop the run; a second call after a clean run changes nothing.
func (e *Engine) Reconcile(ctx context.Context, key stream.Key) (*stream.Report, error) {
	unlock := e.lock(key)
	defer unlock()

	return e.reconcile(ctx, key)
}

// reconcile expects the stream lock to be held.
func (e *Engine) reconcile(ctx context.Context, key stream.Key) (*stream.Report, error) {
	started := time.Now()

	result, err := e.Replay(ctx, key)
	if err != nil {
		return nil, err
	}

	report := &stream.Report{
		RunID:        id.NewRunID(),
		Key:          key,
		Examined:     result.Examined,
		Failures:     []stream.RowFailure{},
		FinalBalance: result.FinalBalance,
		Log:          []string{},
		StartedAt:    started.UTC(),
	}

	if len(result.Drifts) > 0 {
		e.plugins.EmitDriftDetected(ctx, key, result.Drifts)
	}

	for _, d := range result.Drifts {
		err := ctx.Err()
		if err == nil {
			err = e.store.UpdateBalance(ctx, d.EntryID, d.NewBalance)
		}
		if err != nil {
			failure := stream.RowFailure{
				EntryID:    d.EntryID,
				NewBalance: d.NewBalance,
				Reason:     err.Error(),
				Err:        fmt.Errorf("%w: %s: %w", ErrRowUpdateFailed, d.EntryID, err),
			}
			report.Failures = append(report.Failures, failure)
			e.logger.Warn("running balance update failed",
				"stream", key,
				"entry", d.EntryID.String(),
				"error", err,
			)
			e.plugins.EmitRowUpdateFailed(ctx, key, failure)
			continue
		}
		report.Updated++
		report.Log = append(report.Log, d.LogLine())
	}

	report.Elapsed = time.Since(started)

	if report.Updated > 0 || report.Failed() > 0 {
		e.logger.Info("stream reconciled",
			"stream", key,
			"run", report.RunID.String(),
			"examined", report.Examined,
			"updated", report.Updated,
			"failed", report.Failed(),
			"balance", report.FinalBalance.String(),
		)
	} else {
		e.logger.Debug("stream consistent",
			"stream", key,
			"examined", report.Examined,
		)
	}

	e.plugins.EmitStreamReconciled(ctx, report)

	return report, nil
}

// ReconcileKeys reconciles each stream independently. A stream that cannot
// be read is recorded in the combined report and the others still run.
func (e *Engine) ReconcileKeys(ctx context.Context, keys ...stream.Key) *stream.CombinedReport {
	combined := stream.NewCombinedReport()
	seen := make(map[stream.Key]bool, len(keys))

	for _, key := range keys {
		if seen[key] {
			continue
		}
		seen[key] = true

		report, err := e.Reconcile(ctx, key)
		if err != nil {
			e.logger.Warn("stream reconcile failed", "stream", key, "error", err)
			combined.Fail(key, err)
			continue
		}
		combined.Add(report)
	}

	return combined
}

// ReconcileKind reconciles every stored stream of one entry kind.
func (e *Engine) ReconcileKind(ctx context.Context, kind string) (*stream.CombinedReport, error) {
	if _, ok := e.rules.Rule(kind); !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoPartitionRule, kind)
	}

	keys, err := e.store.ListStreams(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s streams: %w", ErrFetchFailed, kind, err)
	}

	return e.ReconcileKeys(ctx, keys...), nil
}

// ReconcileAll reconciles every stored stream of every registered kind.
// A kind whose streams cannot be listed is recorded under its bare kind.
func (e *Engine) ReconcileAll(ctx context.Context) *stream.CombinedReport {
	combined := stream.NewCombinedReport()

	for _, kind := range e.rules.Kinds() {
		report, err := e.ReconcileKind(ctx, kind)
		if err != nil {
			e.logger.Warn("stream listing failed", "kind", kind, "error", err)
			combined.Fail(stream.Key(kind), err)
			continue
		}
		combined.Merge(report)
	}

	e.logger.Info("reconcile finished",
		"streams", len(combined.Reports),
		"examined", combined.Examined(),
		"updated", combined.Updated(),
		"failed", combined.Failed(),
		"status", combined.Status(),
	)

	return combined
}
