// Package tally maintains running balances over append-mostly ledgers.
//
// Every ledger entry belongs to exactly one balance stream, chosen by a
// partition rule from the entry kind and its discriminating attributes
// (category, bucket type and warehouse, account). Within a stream, entries
// sorted by occurrence date and then by recording time must satisfy
//
//	balance[i] = balance[i-1] + quantity[i], balance[-1] = 0
//
// Appending at the end of a stream is cheap: the new balance is the tail
// balance plus the signed quantity. Backdated inserts, edits and deletes
// break the invariant for every later entry; the engine repairs them by
// replaying the stream from zero and rewriting only the drifted rows.
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/tally"
//	    "github.com/xraph/tally/store/memory"
//	)
//
//	eng := tally.New(memory.New())
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
//	en, report, err := eng.Record(ctx, &tally.Entry{
//	    Kind:       "stock",
//	    Attributes: map[string]string{"category": "electronics"},
//	    Quantity:   decimal.NewFromInt(10),
//	    OccurredAt: time.Now(),
//	})
//
// # Maintenance
//
// Replay is a dry run that lists drifted rows. Reconcile writes the
// corrections and returns a report with counts, a chronological log of
// every rewrite and a status of consistent, updated or partial. Row failures
// never abort a run, and running Reconcile again after a clean run changes
// nothing. ReconcileKeys, ReconcileKind and ReconcileAll reconcile many
// streams, each independently.
//
// # Integration
//
//   - store/postgres, store/sqlite, store/mongo: Grove-backed stores
//   - store/memory: in-process store for tests and development
//   - extension: Forge extension wiring the engine into a DI container
//   - api: Fiber routes for the write path and maintenance triggers
//   - events/kafka, observability, audit_hook: plugins
package tally
