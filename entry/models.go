// Package entry defines the ledger entry: one quantity movement belonging
// to exactly one balance stream, with the running balance of that stream
// as of the entry.
package entry

import (
	"maps"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/stream"
	"github.com/xraph/tally/types"
)

// Entry is a single ledger row.
//
// Quantity is signed: positive movements add to the stream balance, negative
// movements subtract. RunningBalance is derived data owned by the engine and
// is overwritten whenever replay finds it has drifted.
type Entry struct {
	types.Entity

	ID             id.EntryID        `json:"id"`
	Kind           string            `json:"kind"`
	StreamKey      stream.Key        `json:"stream_key"`
	Attributes     map[string]string `json:"attributes"`
	Quantity       decimal.Decimal   `json:"quantity"`
	RunningBalance decimal.Decimal   `json:"running_balance"`
	OccurredAt     time.Time         `json:"occurred_at"`
	RecordedAt     time.Time         `json:"recorded_at"`
	Note           string            `json:"note,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Attr returns the named attribute, or "" when unset.
func (e *Entry) Attr(name string) string {
	if e.Attributes == nil {
		return ""
	}
	return e.Attributes[name]
}

// Clone returns a deep copy of e.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.Attributes = maps.Clone(e.Attributes)
	c.Metadata = maps.Clone(e.Metadata)
	return &c
}

// Compare orders entries canonically: by OccurredAt, then by RecordedAt.
// Entries equal on both keep their input order under a stable sort.
func Compare(a, b *Entry) int {
	if c := a.OccurredAt.Compare(b.OccurredAt); c != 0 {
		return c
	}
	return a.RecordedAt.Compare(b.RecordedAt)
}

// Before reports whether a sorts strictly before b.
func Before(a, b *Entry) bool { return Compare(a, b) < 0 }

// ListOpts pages through a stream in canonical order.
type ListOpts struct {
	Limit  int
	Offset int
}
