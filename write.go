package tally

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xraph/tally/entry"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/partition"
	"github.com/xraph/tally/stream"
	"github.com/xraph/tally/types"
)

// Append inserts en at the end of its stream. The running balance is the
// balance of the current tail plus the signed quantity, or the quantity
// alone for an empty stream.
//
// Append does not look for backdating: an entry dated before the tail gets
// a balance built on the tail and leaves the stream drifted until the next
// reconcile. Use Record to repair the stream immediately.
func (e *Engine) Append(ctx context.Context, en *entry.Entry) (*entry.Entry, error) {
	if err := e.prepare(en); err != nil {
		return nil, err
	}

	unlock := e.lock(en.StreamKey)
	defer unlock()

	tail, err := e.tail(ctx, en.StreamKey)
	if err != nil {
		return nil, err
	}

	base := decimal.Zero
	if tail != nil {
		base = tail.RunningBalance
	}
	if err := e.insert(ctx, en, base); err != nil {
		return nil, err
	}

	return en, nil
}

// Record inserts en and keeps its stream consistent. When en sorts before
// the previous tail it is inserted with the balance of its canonical
// predecessor and the stream is reconciled at once; the returned report is
// nil otherwise.
//
// If the reconcile run cannot read the stream, en is still stored and
// returned together with the error.
func (e *Engine) Record(ctx context.Context, en *entry.Entry) (*entry.Entry, *stream.Report, error) {
	if err := e.prepare(en); err != nil {
		return nil, nil, err
	}

	unlock := e.lock(en.StreamKey)
	defer unlock()

	tail, err := e.tail(ctx, en.StreamKey)
	if err != nil {
		return nil, nil, err
	}

	if tail == nil || !en.OccurredAt.Before(tail.OccurredAt) {
		base := decimal.Zero
		if tail != nil {
			base = tail.RunningBalance
		}
		if err := e.insert(ctx, en, base); err != nil {
			return nil, nil, err
		}
		return en, nil, nil
	}

	rule, err := e.rules.Resolve(en.StreamKey)
	if err != nil {
		return nil, nil, err
	}
	entries, err := e.fetch(ctx, en.StreamKey)
	if err != nil {
		return nil, nil, err
	}
	if err := e.insert(ctx, en, balanceThrough(entries, rule, en)); err != nil {
		return nil, nil, err
	}

	e.logger.Info("backdated entry recorded",
		"stream", en.StreamKey,
		"entry", en.ID.String(),
		"occurred_at", en.OccurredAt,
		"tail_occurred_at", tail.OccurredAt,
	)
	e.plugins.EmitBackdatedEntry(ctx, en, tail)

	report, err := e.reconcile(ctx, en.StreamKey)
	if err != nil {
		return en, nil, err
	}
	return en, report, nil
}

// Update edits a stored entry and reconciles the affected streams: the
// stream it belonged to and, when its partition key changed, the stream it
// moved to. ID, RecordedAt and RunningBalance cannot be changed.
func (e *Engine) Update(ctx context.Context, en *entry.Entry) (*stream.CombinedReport, error) {
	if en == nil || en.ID.IsNil() {
		return nil, ValidationError{Field: "id", Message: "is required"}
	}

	before, err := e.store.GetEntry(ctx, en.ID)
	if err != nil {
		return nil, err
	}
	if err := e.prepare(en); err != nil {
		return nil, err
	}

	unlock := e.lock(before.StreamKey, en.StreamKey)
	defer unlock()

	after := before.Clone()
	after.Kind = en.Kind
	after.StreamKey = en.StreamKey
	after.Attributes = en.Attributes
	after.Quantity = en.Quantity
	after.OccurredAt = en.OccurredAt
	after.Note = en.Note
	after.Metadata = en.Metadata
	after.Touch(e.clock.Now())

	if err := e.store.UpdateEntry(ctx, after); err != nil {
		return nil, err
	}
	*en = *after.Clone()

	e.plugins.EmitEntryUpdated(ctx, before, after)

	combined := stream.NewCombinedReport()
	for _, key := range []stream.Key{before.StreamKey, after.StreamKey} {
		if _, done := combined.Report(key); done {
			continue
		}
		report, err := e.reconcile(ctx, key)
		if err != nil {
			combined.Fail(key, err)
			continue
		}
		combined.Add(report)
	}

	return combined, nil
}

// Delete removes an entry and reconciles its stream.
func (e *Engine) Delete(ctx context.Context, entryID id.EntryID) (*stream.Report, error) {
	existing, err := e.store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	unlock := e.lock(existing.StreamKey)
	defer unlock()

	if err := e.store.DeleteEntry(ctx, entryID); err != nil {
		return nil, err
	}

	e.plugins.EmitEntryDeleted(ctx, existing)

	return e.reconcile(ctx, existing.StreamKey)
}

// prepare validates en against the rule for its kind and rewrites it into
// stored form.
func (e *Engine) prepare(en *entry.Entry) error {
	if en == nil {
		return ValidationError{Field: "entry", Message: "is required"}
	}
	if !en.ID.IsNil() && en.ID.Prefix() != id.PrefixEntry {
		return ValidationError{Field: "id", Message: fmt.Sprintf("expected prefix %q", id.PrefixEntry)}
	}

	rule, ok := e.rules.Rule(en.Kind)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoPartitionRule, en.Kind)
	}
	if err := rule.Validate(en); err != nil {
		return err
	}
	rule.Normalize(en)

	return nil
}

// tail returns the last entry of the stream, or nil for an empty stream.
func (e *Engine) tail(ctx context.Context, key stream.Key) (*entry.Entry, error) {
	tail, err := e.store.StreamTail(ctx, key)
	switch {
	case errors.Is(err, ErrEntryNotFound):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("%w: %s: %w", ErrFetchFailed, key, err)
	}
	return tail, nil
}

// insert stamps en and stores it with balance base plus its quantity.
func (e *Engine) insert(ctx context.Context, en *entry.Entry, base decimal.Decimal) error {
	if en.ID.IsNil() {
		en.ID = id.NewEntryID()
	}
	en.RecordedAt = e.clock.Now()
	en.Entity = types.NewEntity(en.RecordedAt)
	en.RunningBalance = base.Add(en.Quantity)

	if err := e.store.InsertEntry(ctx, en); err != nil {
		return err
	}

	e.logger.Debug("entry appended",
		"stream", en.StreamKey,
		"entry", en.ID.String(),
		"quantity", en.Quantity.String(),
		"balance", en.RunningBalance.String(),
	)
	e.plugins.EmitEntryAppended(ctx, en)

	return nil
}

// balanceThrough sums the signed quantities of the entries that sort
// before a newly recorded en. Stored entries were recorded earlier, so
// every entry on or before en's date precedes it.
func balanceThrough(entries []*entry.Entry, rule partition.Rule, en *entry.Entry) decimal.Decimal {
	acc := decimal.Zero
	for _, x := range entries {
		if !x.OccurredAt.After(en.OccurredAt) {
			acc = acc.Add(rule.Signed(x))
		}
	}
	return acc
}
