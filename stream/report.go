package stream

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/types"
)

// Drift describes one entry whose stored running balance disagrees with
// the balance recomputed by replay.
type Drift struct {
	EntryID    id.EntryID      `json:"entry_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Quantity   decimal.Decimal `json:"quantity"`
	OldBalance decimal.Decimal `json:"old_balance"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

// Delta is NewBalance minus OldBalance.
func (d Drift) Delta() decimal.Decimal { return d.NewBalance.Sub(d.OldBalance) }

// LogLine renders the drift as "<date> <id>: <old> -> <new> (<delta>)".
func (d Drift) LogLine() string {
	return fmt.Sprintf("%s %s: %s -> %s (%s)",
		formatOccurred(d.OccurredAt), d.EntryID, d.OldBalance, d.NewBalance, types.Signed(d.Delta()))
}

func formatOccurred(t time.Time) string {
	if t.Equal(t.Truncate(24 * time.Hour)) {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339)
}

// ReplayResult is the outcome of a read-only replay of one stream.
type ReplayResult struct {
	Key          Key             `json:"stream"`
	Examined     int             `json:"examined"`
	Drifts       []Drift         `json:"drifts"`
	FinalBalance decimal.Decimal `json:"final_balance"`
}

// Consistent reports whether replay found no drift.
func (r *ReplayResult) Consistent() bool { return len(r.Drifts) == 0 }

// Status summarizes a reconcile run.
type Status string

const (
	// StatusConsistent means no entry drifted.
	StatusConsistent Status = "consistent"
	// StatusUpdated means every drifted entry was rewritten.
	StatusUpdated Status = "updated"
	// StatusPartial means some rewrites failed and a retry is needed.
	StatusPartial Status = "partial"
)

// RowFailure records an entry whose corrected balance could not be written.
type RowFailure struct {
	EntryID    id.EntryID      `json:"entry_id"`
	NewBalance decimal.Decimal `json:"new_balance"`
	Reason     string          `json:"reason"`
	Err        error           `json:"-"`
}

// Report is the outcome of reconciling one stream.
type Report struct {
	RunID        id.RunID        `json:"run_id"`
	Key          Key             `json:"stream"`
	Examined     int             `json:"examined"`
	Updated      int             `json:"updated"`
	Failures     []RowFailure    `json:"failures"`
	FinalBalance decimal.Decimal `json:"final_balance"`
	Log          []string        `json:"log"`
	StartedAt    time.Time       `json:"started_at"`
	Elapsed      time.Duration   `json:"elapsed"`
}

// Failed is the number of drifted entries left unrepaired.
func (r *Report) Failed() int { return len(r.Failures) }

// Status returns the run status derived from the counts.
func (r *Report) Status() Status {
	switch {
	case len(r.Failures) > 0:
		return StatusPartial
	case r.Updated > 0:
		return StatusUpdated
	default:
		return StatusConsistent
	}
}

// Summary is a one-line human-readable description of the run.
func (r *Report) Summary() string {
	return summarize(r.Status(), r.Examined, r.Updated, len(r.Failures))
}

// MarshalJSON adds the derived status and summary to the encoded report.
func (r *Report) MarshalJSON() ([]byte, error) {
	type plain Report
	return json.Marshal(struct {
		*plain
		Failed  int    `json:"failed"`
		Status  Status `json:"status"`
		Summary string `json:"summary"`
	}{(*plain)(r), r.Failed(), r.Status(), r.Summary()})
}

func summarize(status Status, examined, updated, failed int) string {
	switch status {
	case StatusPartial:
		return fmt.Sprintf("%d of %d drifted rows failed to update, retry needed", failed, failed+updated)
	case StatusUpdated:
		return fmt.Sprintf("%d rows updated out of %d examined", updated, examined)
	default:
		return fmt.Sprintf("no drift found across %d rows", examined)
	}
}

// StreamError records a stream that could not be reconciled at all.
type StreamError struct {
	Key    Key    `json:"stream"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// CombinedReport aggregates the reports of several independent streams.
// A failure in one stream never affects the others.
type CombinedReport struct {
	Reports  []*Report               `json:"streams"`
	Errors   []StreamError           `json:"errors,omitempty"`
	Balances map[Key]decimal.Decimal `json:"balances"`
}

// NewCombinedReport returns an empty combined report.
func NewCombinedReport() *CombinedReport {
	return &CombinedReport{Balances: make(map[Key]decimal.Decimal)}
}

// Add merges a single-stream report.
func (c *CombinedReport) Add(r *Report) {
	if r == nil {
		return
	}
	c.Reports = append(c.Reports, r)
	c.Balances[r.Key] = r.FinalBalance
}

// Fail records a stream that could not be reconciled.
func (c *CombinedReport) Fail(key Key, err error) {
	c.Errors = append(c.Errors, StreamError{Key: key, Reason: err.Error(), Err: err})
}

// Merge folds other into c.
func (c *CombinedReport) Merge(other *CombinedReport) {
	if other == nil {
		return
	}
	for _, r := range other.Reports {
		c.Add(r)
	}
	c.Errors = append(c.Errors, other.Errors...)
}

// Examined is the total number of entries examined.
func (c *CombinedReport) Examined() int {
	var n int
	for _, r := range c.Reports {
		n += r.Examined
	}
	return n
}

// Updated is the total number of entries rewritten.
func (c *CombinedReport) Updated() int {
	var n int
	for _, r := range c.Reports {
		n += r.Updated
	}
	return n
}

// Failed is the total number of entries that could not be rewritten.
func (c *CombinedReport) Failed() int {
	var n int
	for _, r := range c.Reports {
		n += len(r.Failures)
	}
	return n
}

// Log concatenates the drift log of every stream in stream-key order.
func (c *CombinedReport) Log() []string {
	reports := make([]*Report, len(c.Reports))
	copy(reports, c.Reports)
	sort.SliceStable(reports, func(i, j int) bool { return reports[i].Key < reports[j].Key })

	var out []string
	for _, r := range reports {
		out = append(out, r.Log...)
	}
	return out
}

// Report returns the report for key, if one was added.
func (c *CombinedReport) Report(key Key) (*Report, bool) {
	for _, r := range c.Reports {
		if r.Key == key {
			return r, true
		}
	}
	return nil, false
}

// Status is partial if any stream failed or any row failed, updated if any
// row was rewritten, and consistent otherwise.
func (c *CombinedReport) Status() Status {
	switch {
	case len(c.Errors) > 0 || c.Failed() > 0:
		return StatusPartial
	case c.Updated() > 0:
		return StatusUpdated
	default:
		return StatusConsistent
	}
}

// Summary describes the combined run in one line.
func (c *CombinedReport) Summary() string {
	rows := StatusConsistent
	switch {
	case c.Failed() > 0:
		rows = StatusPartial
	case c.Updated() > 0:
		rows = StatusUpdated
	}
	s := summarize(rows, c.Examined(), c.Updated(), c.Failed())
	if len(c.Errors) > 0 {
		s += fmt.Sprintf("; %d streams could not be read", len(c.Errors))
	}
	return fmt.Sprintf("%d streams: %s", len(c.Reports)+len(c.Errors), s)
}

// MarshalJSON adds totals, status and summary to the encoded report.
func (c *CombinedReport) MarshalJSON() ([]byte, error) {
	type plain CombinedReport
	return json.Marshal(struct {
		*plain
		Examined int    `json:"examined"`
		Updated  int    `json:"updated"`
		Failed   int    `json:"failed"`
		Status   Status `json:"status"`
		Summary  string `json:"summary"`
	}{(*plain)(c), c.Examined(), c.Updated(), c.Failed(), c.Status(), c.Summary()})
}
