package stream_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/xraph/tally/stream"
)

func TestNewKey(t *testing.T) {
	tests := []struct {
		name   string
		kind   string
		values []string
		want   stream.Key
	}{
		{"single field", "stock", []string{"electronics"}, "stock:electronics"},
		{"two fields", "inventory", []string{"raw", "north"}, "inventory:raw:north"},
		{"escaped colon", "statement", []string{"acct:42"}, "statement:acct%3A42"},
		{"escaped slash and percent", "stock", []string{"a/b%"}, "stock:a%2Fb%25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stream.NewKey(tt.kind, tt.values...)
			if got != tt.want {
				t.Fatalf("NewKey: got %q, want %q", got, tt.want)
			}
			if got.Kind() != tt.kind {
				t.Errorf("Kind: got %q, want %q", got.Kind(), tt.kind)
			}
			if !reflect.DeepEqual(got.Values(), tt.values) {
				t.Errorf("Values: got %v, want %v", got.Values(), tt.values)
			}
		})
	}
}

func TestKeysDifferByAnyField(t *testing.T) {
	a := stream.NewKey("inventory", "raw", "north")
	b := stream.NewKey("inventory", "raw", "south")
	c := stream.NewKey("inventory", "finished", "north")
	if a == b || a == c || b == c {
		t.Fatalf("expected distinct keys, got %q %q %q", a, b, c)
	}
}

func TestParseKey(t *testing.T) {
	valid := []string{"stock:electronics", "inventory:raw:north", "statement:acct%3A42"}
	for _, s := range valid {
		k, err := stream.ParseKey(s)
		if err != nil {
			t.Errorf("ParseKey(%q) failed: %v", s, err)
			continue
		}
		if k.String() != s {
			t.Errorf("ParseKey(%q) round-trip: got %q", s, k)
		}
	}

	invalid := []string{"", "stock", ":electronics", "inventory:raw:", "stock::x"}
	for _, s := range invalid {
		if _, err := stream.ParseKey(s); !errors.Is(err, stream.ErrInvalidKey) {
			t.Errorf("ParseKey(%q): expected ErrInvalidKey, got %v", s, err)
		}
	}
}

func TestZeroKey(t *testing.T) {
	var k stream.Key
	if !k.IsZero() {
		t.Error("zero key should report IsZero")
	}
	if k.Values() != nil {
		t.Errorf("zero key values: got %v", k.Values())
	}
}
