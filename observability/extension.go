// Package observability provides a metrics extension for tally that records
// write and reconcile counts through a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/tally/entry"
	"github.com/xraph/tally/plugin"
	"github.com/xraph/tally/stream"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin             = (*MetricsExtension)(nil)
	_ plugin.OnInit             = (*MetricsExtension)(nil)
	_ plugin.OnEntryAppended    = (*MetricsExtension)(nil)
	_ plugin.OnBackdatedEntry   = (*MetricsExtension)(nil)
	_ plugin.OnEntryUpdated     = (*MetricsExtension)(nil)
	_ plugin.OnEntryDeleted     = (*MetricsExtension)(nil)
	_ plugin.OnDriftDetected    = (*MetricsExtension)(nil)
	_ plugin.OnRowUpdateFailed  = (*MetricsExtension)(nil)
	_ plugin.OnStreamReconciled = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records engine-wide write and reconcile metrics.
// Register it as a tally plugin to track them automatically.
type MetricsExtension struct {
	factory MetricFactory

	// Entry metrics
	EntryAppended  Counter
	EntryBackdated Counter
	EntryUpdated   Counter
	EntryDeleted   Counter

	// Reconcile metrics
	ReconcileRuns     Counter
	ReconcilePartial  Counter
	RowsExamined      Counter
	RowsUpdated       Counter
	RowsFailed        Counter
	DriftDetected     Counter
	DriftBatchSize    Histogram
	ReconcileDuration Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Entry metrics
		EntryAppended:  factory.Counter("tally.entry.appended"),
		EntryBackdated: factory.Counter("tally.entry.backdated"),
		EntryUpdated:   factory.Counter("tally.entry.updated"),
		EntryDeleted:   factory.Counter("tally.entry.deleted"),

		// Reconcile metrics
		ReconcileRuns:     factory.Counter("tally.reconcile.runs"),
		ReconcilePartial:  factory.Counter("tally.reconcile.partial"),
		RowsExamined:      factory.Counter("tally.reconcile.examined"),
		RowsUpdated:       factory.Counter("tally.reconcile.rows.updated"),
		RowsFailed:        factory.Counter("tally.reconcile.rows.failed"),
		DriftDetected:     factory.Counter("tally.reconcile.drift"),
		DriftBatchSize:    factory.Histogram("tally.reconcile.drift.batch_size"),
		ReconcileDuration: factory.Histogram("tally.reconcile.duration_ms"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Entry hooks
// ──────────────────────────────────────────────────

// OnEntryAppended implements plugin.OnEntryAppended.
func (m *MetricsExtension) OnEntryAppended(_ context.Context, _ *entry.Entry) error {
	m.EntryAppended.Inc()
	return nil
}

// OnBackdatedEntry implements plugin.OnBackdatedEntry.
func (m *MetricsExtension) OnBackdatedEntry(_ context.Context, _, _ *entry.Entry) error {
	m.EntryBackdated.Inc()
	return nil
}

// OnEntryUpdated implements plugin.OnEntryUpdated.
func (m *MetricsExtension) OnEntryUpdated(_ context.Context, _, _ *entry.Entry) error {
	m.EntryUpdated.Inc()
	return nil
}

// OnEntryDeleted implements plugin.OnEntryDeleted.
func (m *MetricsExtension) OnEntryDeleted(_ context.Context, _ *entry.Entry) error {
	m.EntryDeleted.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Reconcile hooks
// ──────────────────────────────────────────────────

// OnDriftDetected implements plugin.OnDriftDetected.
func (m *MetricsExtension) OnDriftDetected(_ context.Context, _ stream.Key, drifts []stream.Drift) error {
	count := float64(len(drifts))
	m.DriftDetected.Add(count)
	m.DriftBatchSize.Observe(count)
	return nil
}

// OnRowUpdateFailed implements plugin.OnRowUpdateFailed.
func (m *MetricsExtension) OnRowUpdateFailed(_ context.Context, _ stream.Key, _ stream.RowFailure) error {
	m.RowsFailed.Inc()
	return nil
}

// OnStreamReconciled implements plugin.OnStreamReconciled.
func (m *MetricsExtension) OnStreamReconciled(_ context.Context, report *stream.Report) error {
	m.ReconcileRuns.Inc()
	m.RowsExamined.Add(float64(report.Examined))
	m.RowsUpdated.Add(float64(report.Updated))
	m.ReconcileDuration.Observe(float64(report.Elapsed.Milliseconds()))
	if report.Status() == stream.StatusPartial {
		m.ReconcilePartial.Inc()
	}
	return nil
}
