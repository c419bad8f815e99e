package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/tally"
	"github.com/xraph/tally/entry"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/store/memory"
	"github.com/xraph/tally/stream"
)

var day = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newEntry(key stream.Key, dayOffset int, qty int64, recorded time.Duration) *entry.Entry {
	return &entry.Entry{
		ID:         id.NewEntryID(),
		Kind:       key.Kind(),
		StreamKey:  key,
		Quantity:   decimal.NewFromInt(qty),
		OccurredAt: day.AddDate(0, 0, dayOffset),
		RecordedAt: day.Add(recorded),
	}
}

func TestInsertGetCopies(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	e := newEntry("stock:electronics", 0, 10, 0)
	e.Attributes = map[string]string{"category": "electronics"}
	if err := s.InsertEntry(ctx, e); err != nil {
		t.Fatalf("InsertEntry failed: %v", err)
	}
	if err := s.InsertEntry(ctx, e); !errors.Is(err, tally.ErrAlreadyExists) {
		t.Errorf("duplicate insert: expected ErrAlreadyExists, got %v", err)
	}

	e.Attributes["category"] = "mutated"
	got, err := s.GetEntry(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if got.Attr("category") != "electronics" {
		t.Error("store should not share attribute maps with the caller")
	}

	if _, err := s.GetEntry(ctx, id.NewEntryID()); !errors.Is(err, tally.ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestListStreamOrderAndPaging(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	key := stream.Key("stock:electronics")

	third := newEntry(key, 2, 1, 0)
	first := newEntry(key, 0, 1, time.Hour)
	second := newEntry(key, 0, 1, 2*time.Hour)
	other := newEntry("stock:toys", 0, 1, 0)
	for _, e := range []*entry.Entry{third, first, second, other} {
		if err := s.InsertEntry(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.ListStream(ctx, key, entry.ListOpts{})
	if err != nil {
		t.Fatalf("ListStream failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}
	if all[0].ID != first.ID || all[1].ID != second.ID || all[2].ID != third.ID {
		t.Error("entries not in canonical order")
	}

	page, _ := s.ListStream(ctx, key, entry.ListOpts{Limit: 2, Offset: 2})
	if len(page) != 1 || page[0].ID != third.ID {
		t.Errorf("unexpected page: %d entries", len(page))
	}
	past, _ := s.ListStream(ctx, key, entry.ListOpts{Limit: 2, Offset: 10})
	if len(past) != 0 {
		t.Errorf("offset past the end should be empty, got %d", len(past))
	}

	tail, err := s.StreamTail(ctx, key)
	if err != nil {
		t.Fatalf("StreamTail failed: %v", err)
	}
	if tail.ID != third.ID {
		t.Error("tail should be the last entry in canonical order")
	}
	if _, err := s.StreamTail(ctx, "stock:empty"); !errors.Is(err, tally.ErrEntryNotFound) {
		t.Errorf("empty stream tail: expected ErrEntryNotFound, got %v", err)
	}
}

func TestUpdateBalanceOnlyTouchesBalance(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	e := newEntry("stock:electronics", 0, 10, 0)
	if err := s.InsertEntry(ctx, e); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateBalance(ctx, e.ID, decimal.NewFromInt(7)); err != nil {
		t.Fatalf("UpdateBalance failed: %v", err)
	}

	got, _ := s.GetEntry(ctx, e.ID)
	if !got.RunningBalance.Equal(decimal.NewFromInt(7)) {
		t.Errorf("RunningBalance: got %s", got.RunningBalance)
	}
	if !got.Quantity.Equal(e.Quantity) || !got.OccurredAt.Equal(e.OccurredAt) {
		t.Error("UpdateBalance changed more than the running balance")
	}

	if err := s.UpdateBalance(ctx, id.NewEntryID(), decimal.Zero); !errors.Is(err, tally.ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestUpdateDelete(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	e := newEntry("stock:electronics", 0, 10, 0)
	if err := s.UpdateEntry(ctx, e); !errors.Is(err, tally.ErrEntryNotFound) {
		t.Errorf("update of missing entry: got %v", err)
	}
	_ = s.InsertEntry(ctx, e)

	e.Note = "recount"
	if err := s.UpdateEntry(ctx, e); err != nil {
		t.Fatalf("UpdateEntry failed: %v", err)
	}
	got, _ := s.GetEntry(ctx, e.ID)
	if got.Note != "recount" {
		t.Errorf("Note: got %q", got.Note)
	}

	if err := s.DeleteEntry(ctx, e.ID); err != nil {
		t.Fatalf("DeleteEntry failed: %v", err)
	}
	if err := s.DeleteEntry(ctx, e.ID); !errors.Is(err, tally.ErrEntryNotFound) {
		t.Errorf("second delete: expected ErrEntryNotFound, got %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len: got %d", s.Len())
	}
}

func TestListStreams(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	for _, k := range []stream.Key{"stock:toys", "stock:electronics", "stock:toys", "inventory:raw:north"} {
		_ = s.InsertEntry(ctx, newEntry(k, 0, 1, 0))
	}

	stock, _ := s.ListStreams(ctx, "stock")
	if len(stock) != 2 || stock[0] != "stock:electronics" || stock[1] != "stock:toys" {
		t.Errorf("stock streams: got %v", stock)
	}
	all, _ := s.ListStreams(ctx, "")
	if len(all) != 3 {
		t.Errorf("all streams: got %v", all)
	}
}

func TestClosed(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	_ = s.Close()

	if err := s.Ping(ctx); !errors.Is(err, tally.ErrStoreClosed) {
		t.Errorf("Ping: expected ErrStoreClosed, got %v", err)
	}
	if _, err := s.ListStream(ctx, "stock:a", entry.ListOpts{}); !errors.Is(err, tally.ErrStoreClosed) {
		t.Errorf("ListStream: expected ErrStoreClosed, got %v", err)
	}
}
