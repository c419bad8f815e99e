package tally_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/tally"
	"github.com/xraph/tally/entry"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/store/memory"
	"github.com/xraph/tally/stream"
)

var (
	day0        = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	errInjected = errors.New("injected failure")
)

// faultStore wraps the memory store and fails selected calls.
type faultStore struct {
	*memory.Store

	mu            sync.Mutex
	failBalance   map[id.EntryID]bool
	failList      map[stream.Key]bool
	balanceWrites int
	listCalls     int
}

func newFaultStore() *faultStore {
	return &faultStore{
		Store:       memory.New(),
		failBalance: make(map[id.EntryID]bool),
		failList:    make(map[stream.Key]bool),
	}
}

func (f *faultStore) UpdateBalance(ctx context.Context, entryID id.EntryID, balance decimal.Decimal) error {
	f.mu.Lock()
	f.balanceWrites++
	fail := f.failBalance[entryID]
	f.mu.Unlock()

	if fail {
		return errInjected
	}
	return f.Store.UpdateBalance(ctx, entryID, balance)
}

func (f *faultStore) ListStream(ctx context.Context, key stream.Key, opts entry.ListOpts) ([]*entry.Entry, error) {
	f.mu.Lock()
	f.listCalls++
	fail := f.failList[key]
	f.mu.Unlock()

	if fail {
		return nil, errInjected
	}
	return f.Store.ListStream(ctx, key, opts)
}

func (f *faultStore) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balanceWrites
}

func (f *faultStore) lists() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEngine(t *testing.T, opts ...tally.Option) (*tally.Engine, *faultStore) {
	t.Helper()

	s := newFaultStore()
	eng := tally.New(s, append([]tally.Option{tally.WithLogger(quietLogger())}, opts...)...)
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })

	return eng, s
}

func stockEntry(category string, dayOffset int, qty string) *entry.Entry {
	return &entry.Entry{
		Kind:       "stock",
		Attributes: map[string]string{"category": category},
		Quantity:   decimal.RequireFromString(qty),
		OccurredAt: day0.AddDate(0, 0, dayOffset),
	}
}

// seed stores an entry as-is, with whatever running balance it carries.
func seed(t *testing.T, s *faultStore, key stream.Key, occurred, recorded time.Time, qty, balance string) *entry.Entry {
	t.Helper()

	e := &entry.Entry{
		ID:             id.NewEntryID(),
		Kind:           key.Kind(),
		StreamKey:      key,
		Attributes:     map[string]string{"category": key.Values()[0]},
		Quantity:       decimal.RequireFromString(qty),
		RunningBalance: decimal.RequireFromString(balance),
		OccurredAt:     occurred,
		RecordedAt:     recorded,
	}
	if err := s.InsertEntry(context.Background(), e); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return e
}

func mustAppend(t *testing.T, eng *tally.Engine, e *entry.Entry) *entry.Entry {
	t.Helper()

	got, err := eng.Append(context.Background(), e)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	return got
}

// balances returns the stored running balances of a stream in canonical order.
func balances(t *testing.T, eng *tally.Engine, key stream.Key) []string {
	t.Helper()

	entries, err := eng.Entries(context.Background(), key, entry.ListOpts{})
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.RunningBalance.String()
	}
	return out
}
