package mongo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/tally/entry"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/stream"
)

func TestEntryModelRoundTrip(t *testing.T) {
	occurred := time.Date(2024, 1, 5, 14, 30, 0, 123456000, time.UTC)
	recorded := time.Date(2024, 1, 6, 9, 0, 0, 654321000, time.UTC)

	e := &entry.Entry{
		ID:             id.NewEntryID(),
		Kind:           "stock",
		StreamKey:      stream.NewKey("stock", "widgets"),
		Attributes:     map[string]string{"category": "widgets"},
		Quantity:       decimal.RequireFromString("-3.25"),
		RunningBalance: decimal.RequireFromString("1234567.0125"),
		OccurredAt:     occurred,
		RecordedAt:     recorded,
		Note:           "recount",
	}

	m, err := toEntryModel(e)
	if err != nil {
		t.Fatalf("toEntryModel: %v", err)
	}
	got, err := fromEntryModel(m)
	if err != nil {
		t.Fatalf("fromEntryModel: %v", err)
	}

	if got.ID.String() != e.ID.String() {
		t.Errorf("ID = %s, want %s", got.ID, e.ID)
	}
	if !got.Quantity.Equal(e.Quantity) {
		t.Errorf("Quantity = %s, want %s", got.Quantity, e.Quantity)
	}
	if !got.RunningBalance.Equal(e.RunningBalance) {
		t.Errorf("RunningBalance = %s, want %s", got.RunningBalance, e.RunningBalance)
	}
	if !got.OccurredAt.Equal(occurred) {
		t.Errorf("OccurredAt = %v, want %v", got.OccurredAt, occurred)
	}
	if !got.RecordedAt.Equal(recorded) {
		t.Errorf("RecordedAt = %v, want %v", got.RecordedAt, recorded)
	}
	if got.StreamKey != e.StreamKey {
		t.Errorf("StreamKey = %q, want %q", got.StreamKey, e.StreamKey)
	}
}

func TestFromEntryModelRejectsBadID(t *testing.T) {
	m := &entryModel{ID: "not-an-id"}
	if _, err := fromEntryModel(m); err == nil {
		t.Fatal("expected error for malformed id")
	}
}
