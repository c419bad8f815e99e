package entry

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/stream"
)

// Store persists ledger entries.
//
// ListStream and StreamTail order entries by occurred_at, recorded_at and
// finally id, so paging is deterministic even for exact timestamp ties.
type Store interface {
	InsertEntry(ctx context.Context, e *Entry) error
	GetEntry(ctx context.Context, entryID id.EntryID) (*Entry, error)
	UpdateEntry(ctx context.Context, e *Entry) error
	DeleteEntry(ctx context.Context, entryID id.EntryID) error
	ListStream(ctx context.Context, key stream.Key, opts ListOpts) ([]*Entry, error)
	StreamTail(ctx context.Context, key stream.Key) (*Entry, error)
	UpdateBalance(ctx context.Context, entryID id.EntryID, balance decimal.Decimal) error
	ListStreams(ctx context.Context, kind string) ([]stream.Key, error)
}
