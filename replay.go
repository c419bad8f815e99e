package tally

import (
	"context"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/xraph/tally/entry"
	"github.com/xraph/tally/partition"
	"github.com/xraph/tally/stream"
	"github.com/xraph/tally/types"
)

// Replay recomputes the running balance of every entry in the stream and
// reports the entries whose stored balance has drifted. It never writes.
func (e *Engine) Replay(ctx context.Context, key stream.Key) (*stream.ReplayResult, error) {
	rule, err := e.rules.Resolve(key)
	if err != nil {
		return nil, err
	}

	entries, err := e.fetch(ctx, key)
	if err != nil {
		return nil, err
	}

	return replay(key, rule, entries, e.tolerance), nil
}

// fetch loads every entry of the stream, one page at a time.
func (e *Engine) fetch(ctx context.Context, key stream.Key) ([]*entry.Entry, error) {
	var all []*entry.Entry
	for offset := 0; ; offset += e.pageSize {
		page, err := e.store.ListStream(ctx, key, entry.ListOpts{Limit: e.pageSize, Offset: offset})
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrFetchFailed, key, err)
		}
		all = append(all, page...)
		if len(page) < e.pageSize {
			return all, nil
		}
	}
}

// replay walks entries in canonical order, accumulating from zero.
func replay(key stream.Key, rule partition.Rule, entries []*entry.Entry, tolerance decimal.Decimal) *stream.ReplayResult {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, entry.Compare)

	result := &stream.ReplayResult{
		Key:      key,
		Examined: len(sorted),
		Drifts:   []stream.Drift{},
	}

	acc := decimal.Zero
	for _, en := range sorted {
		qty := rule.Signed(en)
		acc = acc.Add(qty)
		if types.Drifted(en.RunningBalance, acc, tolerance) {
			result.Drifts = append(result.Drifts, stream.Drift{
				EntryID:    en.ID,
				OccurredAt: en.OccurredAt,
				Quantity:   qty,
				OldBalance: en.RunningBalance,
				NewBalance: acc,
			})
		}
	}
	result.FinalBalance = acc

	return result
}
