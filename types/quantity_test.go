package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDrifted(t *testing.T) {
	tests := []struct {
		name     string
		stored   string
		computed string
		want     bool
	}{
		{"equal", "25", "25", false},
		{"within tolerance", "25.00", "25.01", false},
		{"exactly tolerance", "10.01", "10", false},
		{"just over tolerance", "10.011", "10", true},
		{"negative drift", "22", "25", true},
		{"negative balances", "-3", "-3.005", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Drifted(MustQuantity(tt.stored), MustQuantity(tt.computed), DefaultTolerance)
			if got != tt.want {
				t.Errorf("Drifted(%s, %s): got %v, want %v", tt.stored, tt.computed, got, tt.want)
			}
		})
	}
}

func TestSigned(t *testing.T) {
	tests := []struct {
		in   decimal.Decimal
		want string
	}{
		{decimal.NewFromInt(3), "+3"},
		{decimal.NewFromInt(-3), "-3"},
		{decimal.Zero, "+0"},
		{MustQuantity("2.5"), "+2.5"},
	}

	for _, tt := range tests {
		if got := Signed(tt.in); got != tt.want {
			t.Errorf("Signed(%s): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseQuantity(t *testing.T) {
	if _, err := ParseQuantity("abc"); err == nil {
		t.Error("expected error for non-numeric quantity")
	}

	d, err := ParseQuantity("-12.50")
	if err != nil {
		t.Fatalf("ParseQuantity failed: %v", err)
	}
	if !d.Equal(decimal.NewFromFloat(-12.5)) {
		t.Errorf("got %s, want -12.5", d)
	}
}
