package tally

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xraph/tally/entry"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/stream"
)

// Get retrieves an entry by ID.
func (e *Engine) Get(ctx context.Context, entryID id.EntryID) (*entry.Entry, error) {
	return e.store.GetEntry(ctx, entryID)
}

// Entries returns one page of a stream in canonical order.
func (e *Engine) Entries(ctx context.Context, key stream.Key, opts entry.ListOpts) ([]*entry.Entry, error) {
	if _, err := e.rules.Resolve(key); err != nil {
		return nil, err
	}
	if opts.Limit <= 0 {
		opts.Limit = e.pageSize
	}
	return e.store.ListStream(ctx, key, opts)
}

// Balance returns the stored running balance of the stream tail, or zero
// for an empty stream. It reflects drift until the stream is reconciled.
func (e *Engine) Balance(ctx context.Context, key stream.Key) (decimal.Decimal, error) {
	if _, err := e.rules.Resolve(key); err != nil {
		return decimal.Zero, err
	}

	tail, err := e.tail(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	if tail == nil {
		return decimal.Zero, nil
	}
	return tail.RunningBalance, nil
}

// Streams lists the stored streams of kind, or of every kind when kind is
// empty.
func (e *Engine) Streams(ctx context.Context, kind string) ([]stream.Key, error) {
	return e.store.ListStreams(ctx, kind)
}
