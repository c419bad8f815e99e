// Package stream defines balance stream identity and the results produced
// when a stream is replayed or reconciled.
//
// A stream is the set of ledger entries sharing a partition key. Each stream
// carries an independent running balance; entries never affect the balance
// of a stream other than their own.
package stream

import (
	"errors"
	"fmt"
	"strings"
)

// Key identifies one balance stream. Its canonical form is the entry kind
// followed by the partition field values, separated by colons, for example
// "inventory:raw:north" or "statement:acct-42". Colons, slashes and percent
// signs inside values are percent-escaped so the form is reversible.
type Key string

// ErrInvalidKey is returned by ParseKey for malformed keys.
var ErrInvalidKey = errors.New("stream: invalid key")

var (
	escaper   = strings.NewReplacer("%", "%25", ":", "%3A", "/", "%2F")
	unescaper = strings.NewReplacer("%25", "%", "%3A", ":", "%2F", "/")
)

// NewKey builds the key for kind and the given partition values.
func NewKey(kind string, values ...string) Key {
	var b strings.Builder
	b.WriteString(escaper.Replace(kind))
	for _, v := range values {
		b.WriteByte(':')
		b.WriteString(escaper.Replace(v))
	}
	return Key(b.String())
}

// ParseKey parses the canonical form of a key.
func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || parts[0] == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	for _, p := range parts[1:] {
		if p == "" {
			return "", fmt.Errorf("%w: %q has an empty component", ErrInvalidKey, s)
		}
	}
	return Key(s), nil
}

// Kind returns the entry kind the stream belongs to.
func (k Key) Kind() string {
	kind, _, _ := strings.Cut(string(k), ":")
	return unescaper.Replace(kind)
}

// Values returns the partition field values in rule order.
func (k Key) Values() []string {
	parts := strings.Split(string(k), ":")
	if len(parts) < 2 {
		return nil
	}
	values := make([]string, len(parts)-1)
	for i, p := range parts[1:] {
		values[i] = unescaper.Replace(p)
	}
	return values
}

// IsZero reports whether k is the empty key.
func (k Key) IsZero() bool { return k == "" }

func (k Key) String() string { return string(k) }
