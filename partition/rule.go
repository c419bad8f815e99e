// Package partition maps ledger entries to the balance stream they belong
// to, and validates them against the rule for their kind.
//
// A Rule is plain configuration: the kind it applies to, the attribute
// fields forming the stream key, optional allow-lists, the date granularity
// and a signed-quantity extractor. The replay engine is parameterized by a
// Rule and holds no per-kind logic of its own.
package partition

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/tally/entry"
	"github.com/xraph/tally/stream"
)

// Sentinel errors returned by rules and the registry.
var (
	ErrInvalidEntry  = errors.New("tally: invalid entry")
	ErrUnknownStream = errors.New("tally: unknown stream key")
	ErrInvalidRule   = errors.New("tally: invalid partition rule")
)

// ValidationError names the entry field that failed validation.
// It matches ErrInvalidEntry under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("tally: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap returns ErrInvalidEntry.
func (e ValidationError) Unwrap() error { return ErrInvalidEntry }

// Granularity is the resolution OccurredAt is stored with.
type Granularity int

const (
	// Instant keeps OccurredAt as given.
	Instant Granularity = iota
	// Day truncates OccurredAt to midnight UTC.
	Day
)

// Truncate applies the granularity to t.
func (g Granularity) Truncate(t time.Time) time.Time {
	t = t.UTC()
	if g == Day {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return t
}

// SignFunc returns the signed quantity of an entry. It must be idempotent:
// applying it to an entry whose Quantity it already produced must return
// the same value.
type SignFunc func(e *entry.Entry) decimal.Decimal

// Rule describes how entries of one kind are partitioned into streams.
type Rule struct {
	// Kind is the entry kind the rule applies to.
	Kind string
	// Fields are the attribute names forming the stream key, in key order.
	Fields []string
	// Allowed optionally restricts the values accepted for a field.
	Allowed map[string][]string
	// Granularity of OccurredAt.
	Granularity Granularity
	// Sign extracts the signed quantity; nil means Quantity as stored.
	Sign SignFunc
}

// KeyOf returns the stream key of e. It never fails; missing attributes
// produce empty key components, which Validate rejects.
func (r Rule) KeyOf(e *entry.Entry) stream.Key {
	values := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		values[i] = e.Attr(f)
	}
	return stream.NewKey(r.Kind, values...)
}

// Signed returns the signed quantity of e under this rule.
func (r Rule) Signed(e *entry.Entry) decimal.Decimal {
	if r.Sign == nil {
		return e.Quantity
	}
	return r.Sign(e)
}

// Validate checks that e carries every discriminator of the rule with an
// accepted value.
func (r Rule) Validate(e *entry.Entry) error {
	if e.Kind != r.Kind {
		return ValidationError{Field: "kind", Message: fmt.Sprintf("expected %q, got %q", r.Kind, e.Kind)}
	}
	if e.OccurredAt.IsZero() {
		return ValidationError{Field: "occurred_at", Message: "is required"}
	}
	for _, f := range r.Fields {
		v := e.Attr(f)
		if v == "" {
			return ValidationError{Field: f, Message: "is required"}
		}
		if allowed, ok := r.Allowed[f]; ok && !slices.Contains(allowed, v) {
			return ValidationError{Field: f, Message: fmt.Sprintf("%q is not one of %v", v, allowed)}
		}
	}
	return nil
}

// Normalize rewrites e into its stored form: OccurredAt at the rule's
// granularity, Quantity signed and StreamKey derived from the attributes.
func (r Rule) Normalize(e *entry.Entry) {
	e.OccurredAt = r.Granularity.Truncate(e.OccurredAt)
	e.Quantity = r.Signed(e)
	e.StreamKey = r.KeyOf(e)
}

// Accepts reports whether key is shaped like a key this rule produces.
func (r Rule) Accepts(key stream.Key) bool {
	return key.Kind() == r.Kind && len(key.Values()) == len(r.Fields)
}

func (r Rule) check() error {
	if r.Kind == "" {
		return fmt.Errorf("%w: empty kind", ErrInvalidRule)
	}
	if len(r.Fields) == 0 {
		return fmt.Errorf("%w: %s has no key fields", ErrInvalidRule, r.Kind)
	}
	for f := range r.Allowed {
		if !slices.Contains(r.Fields, f) {
			return fmt.Errorf("%w: %s restricts unknown field %q", ErrInvalidRule, r.Kind, f)
		}
	}
	return nil
}

// NegateWhen returns a SignFunc that makes the quantity negative when the
// attribute field holds one of values, and leaves it unchanged otherwise.
func NegateWhen(field string, values ...string) SignFunc {
	return func(e *entry.Entry) decimal.Decimal {
		if slices.Contains(values, e.Attr(field)) {
			return e.Quantity.Abs().Neg()
		}
		return e.Quantity
	}
}
