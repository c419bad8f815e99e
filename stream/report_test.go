package stream_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/stream"
)

func TestReportStatus(t *testing.T) {
	tests := []struct {
		name   string
		report stream.Report
		want   stream.Status
	}{
		{"consistent", stream.Report{Examined: 4}, stream.StatusConsistent},
		{"updated", stream.Report{Examined: 4, Updated: 3}, stream.StatusUpdated},
		{"partial", stream.Report{Examined: 4, Updated: 2, Failures: []stream.RowFailure{{Reason: "timeout"}}}, stream.StatusPartial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.report.Status(); got != tt.want {
				t.Errorf("Status: got %q, want %q", got, tt.want)
			}
			if tt.report.Summary() == "" {
				t.Error("Summary should not be empty")
			}
		})
	}
}

func TestReportSummaryMentionsRetry(t *testing.T) {
	r := stream.Report{Examined: 4, Updated: 2, Failures: []stream.RowFailure{{Reason: "timeout"}}}
	if !strings.Contains(r.Summary(), "retry") {
		t.Errorf("partial summary should mention a retry, got %q", r.Summary())
	}
}

func TestDriftLogLine(t *testing.T) {
	entryID := id.NewEntryID()
	d := stream.Drift{
		EntryID:    entryID,
		OccurredAt: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		Quantity:   decimal.NewFromInt(10),
		OldBalance: decimal.NewFromInt(25),
		NewBalance: decimal.NewFromInt(22),
	}

	want := "2024-01-05 " + entryID.String() + ": 25 -> 22 (-3)"
	if got := d.LogLine(); got != want {
		t.Errorf("LogLine: got %q, want %q", got, want)
	}

	d.OccurredAt = time.Date(2024, 1, 5, 14, 30, 0, 0, time.UTC)
	if !strings.HasPrefix(d.LogLine(), "2024-01-05T14:30:00Z ") {
		t.Errorf("instant entries should log the full timestamp, got %q", d.LogLine())
	}
}

func TestReportJSONIncludesStatus(t *testing.T) {
	r := &stream.Report{Key: "stock:electronics", Examined: 2, Updated: 1, FinalBalance: decimal.NewFromInt(7)}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded["status"] != "updated" {
		t.Errorf("status: got %v", decoded["status"])
	}
	if decoded["stream"] != "stock:electronics" {
		t.Errorf("stream: got %v", decoded["stream"])
	}
}

func TestCombinedReport(t *testing.T) {
	c := stream.NewCombinedReport()
	c.Add(&stream.Report{Key: "stock:b", Examined: 3, Updated: 1, FinalBalance: decimal.NewFromInt(5), Log: []string{"b-line"}})
	c.Add(&stream.Report{Key: "stock:a", Examined: 2, FinalBalance: decimal.NewFromInt(9), Log: []string{"a-line"}})

	if c.Status() != stream.StatusUpdated {
		t.Errorf("Status: got %q, want updated", c.Status())
	}
	if c.Examined() != 5 || c.Updated() != 1 || c.Failed() != 0 {
		t.Errorf("totals: examined=%d updated=%d failed=%d", c.Examined(), c.Updated(), c.Failed())
	}
	if got := c.Log(); len(got) != 2 || got[0] != "a-line" || got[1] != "b-line" {
		t.Errorf("Log should be ordered by stream key, got %v", got)
	}
	if !c.Balances["stock:a"].Equal(decimal.NewFromInt(9)) {
		t.Errorf("balance for stock:a: got %s", c.Balances["stock:a"])
	}
	if _, ok := c.Report("stock:b"); !ok {
		t.Error("expected to find the report for stock:b")
	}

	c.Fail("stock:c", errors.New("connection reset"))
	if c.Status() != stream.StatusPartial {
		t.Errorf("a failed stream should make the run partial, got %q", c.Status())
	}
	if !strings.Contains(c.Summary(), "3 streams") {
		t.Errorf("Summary should count every stream, got %q", c.Summary())
	}
}

func TestCombinedReportMerge(t *testing.T) {
	a := stream.NewCombinedReport()
	a.Add(&stream.Report{Key: "stock:a"})
	b := stream.NewCombinedReport()
	b.Add(&stream.Report{Key: "stock:b"})
	b.Fail("stock:c", errors.New("boom"))

	a.Merge(b)
	a.Merge(nil)
	if len(a.Reports) != 2 || len(a.Errors) != 1 {
		t.Errorf("merge: got %d reports, %d errors", len(a.Reports), len(a.Errors))
	}
}
