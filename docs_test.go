package tally_test

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/tally"
	"github.com/xraph/tally/partition"
	"github.com/xraph/tally/store/memory"
	"github.com/xraph/tally/types"
)

// TestDocumentationExamples verifies that the examples in the package
// documentation compile and behave as described.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		eng := tally.New(store, tally.WithLogger(quietLogger()))

		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop()

		en, report, err := eng.Record(ctx, &tally.Entry{
			Kind:       "stock",
			Attributes: map[string]string{"category": "electronics"},
			Quantity:   decimal.NewFromInt(10),
			OccurredAt: time.Now(),
		})
		if err != nil {
			t.Fatal(err)
		}
		if report != nil {
			t.Fatalf("first entry of a stream is never backdated, got %s", report.Summary())
		}

		log.Printf("Entry %s recorded, balance %s\n", en.ID, en.RunningBalance)
	})

	t.Run("MaintenanceExample", func(t *testing.T) {
		eng := tally.New(memory.New(), tally.WithLogger(quietLogger()))
		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop()

		key := tally.NewKey(partition.KindStock, "electronics")

		// Dry run
		result, err := eng.Replay(ctx, key)
		if err != nil {
			t.Fatal(err)
		}
		if !result.Consistent() {
			t.Fatalf("empty stream reported %d drifts", len(result.Drifts))
		}

		// Repair one stream, one kind, everything
		if _, err := eng.Reconcile(ctx, key); err != nil {
			t.Fatal(err)
		}
		if _, err := eng.ReconcileKind(ctx, partition.KindStock); err != nil {
			t.Fatal(err)
		}
		all := eng.ReconcileAll(ctx)
		log.Println(all.Summary())
	})

	t.Run("QuantityExamples", func(t *testing.T) {
		q, err := tally.ParseQuantity("-3.50")
		if err != nil {
			t.Fatal(err)
		}
		_ = types.Signed(q) // "-3.5"

		stored, computed := decimal.NewFromInt(25), decimal.NewFromInt(22)
		if !types.Drifted(stored, computed, types.DefaultTolerance) {
			t.Fatal("25 against 22 must drift")
		}
	})
}
