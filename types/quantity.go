package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultTolerance is the largest difference between a stored and a
// recomputed running balance that is still treated as consistent.
var DefaultTolerance = decimal.New(1, -2)

// Drifted reports whether stored differs from computed by more than tolerance.
func Drifted(stored, computed, tolerance decimal.Decimal) bool {
	return stored.Sub(computed).Abs().GreaterThan(tolerance)
}

// Signed renders d with an explicit sign, as used in drift log lines.
func Signed(d decimal.Decimal) string {
	if d.IsNegative() {
		return d.String()
	}
	return "+" + d.String()
}

// ParseQuantity parses a decimal quantity such as "12.5" or "-3".
func ParseQuantity(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("types: invalid quantity %q: %w", s, err)
	}
	return d, nil
}

// MustQuantity is like ParseQuantity but panics on error.
func MustQuantity(s string) decimal.Decimal {
	d, err := ParseQuantity(s)
	if err != nil {
		panic(err)
	}
	return d
}
