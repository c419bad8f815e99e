// Package memory provides an in-process store for tests and development.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/tally"
	"github.com/xraph/tally/entry"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/store"
	"github.com/xraph/tally/stream"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store keeps entries in a map. Entries are copied on the way in and out,
// so callers never share memory with the store.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry.Entry
	closed  bool
}

// New returns an empty store.
func New() *Store {
	return &Store{
		entries: make(map[string]*entry.Entry),
	}
}

func (s *Store) InsertEntry(_ context.Context, e *entry.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return tally.ErrStoreClosed
	}
	if _, exists := s.entries[e.ID.String()]; exists {
		return tally.ErrAlreadyExists
	}
	s.entries[e.ID.String()] = e.Clone()
	return nil
}

func (s *Store) GetEntry(_ context.Context, entryID id.EntryID) (*entry.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, tally.ErrStoreClosed
	}
	if e, ok := s.entries[entryID.String()]; ok {
		return e.Clone(), nil
	}
	return nil, tally.ErrEntryNotFound
}

func (s *Store) UpdateEntry(_ context.Context, e *entry.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return tally.ErrStoreClosed
	}
	if _, exists := s.entries[e.ID.String()]; !exists {
		return tally.ErrEntryNotFound
	}
	s.entries[e.ID.String()] = e.Clone()
	return nil
}

func (s *Store) DeleteEntry(_ context.Context, entryID id.EntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return tally.ErrStoreClosed
	}
	if _, exists := s.entries[entryID.String()]; !exists {
		return tally.ErrEntryNotFound
	}
	delete(s.entries, entryID.String())
	return nil
}

func (s *Store) ListStream(_ context.Context, key stream.Key, opts entry.ListOpts) ([]*entry.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, tally.ErrStoreClosed
	}

	result := s.streamLocked(key)

	// Apply limit/offset
	start := min(opts.Offset, len(result))
	end := len(result)
	if opts.Limit > 0 {
		end = min(start+opts.Limit, len(result))
	}

	page := make([]*entry.Entry, 0, end-start)
	for _, e := range result[start:end] {
		page = append(page, e.Clone())
	}
	return page, nil
}

func (s *Store) StreamTail(_ context.Context, key stream.Key) (*entry.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, tally.ErrStoreClosed
	}

	result := s.streamLocked(key)
	if len(result) == 0 {
		return nil, tally.ErrEntryNotFound
	}
	return result[len(result)-1].Clone(), nil
}

func (s *Store) UpdateBalance(_ context.Context, entryID id.EntryID, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return tally.ErrStoreClosed
	}
	e, ok := s.entries[entryID.String()]
	if !ok {
		return tally.ErrEntryNotFound
	}
	e.RunningBalance = balance
	e.Touch(time.Now())
	return nil
}

func (s *Store) ListStreams(_ context.Context, kind string) ([]stream.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, tally.ErrStoreClosed
	}

	seen := make(map[stream.Key]struct{})
	for _, e := range s.entries {
		if kind == "" || e.StreamKey.Kind() == kind {
			seen[e.StreamKey] = struct{}{}
		}
	}

	keys := make([]stream.Key, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

// streamLocked returns the stream in storage order: occurred_at,
// recorded_at, then id.
func (s *Store) streamLocked(key stream.Key) []*entry.Entry {
	var result []*entry.Entry
	for _, e := range s.entries {
		if e.StreamKey == key {
			result = append(result, e)
		}
	}
	slices.SortFunc(result, func(a, b *entry.Entry) int {
		if c := entry.Compare(a, b); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return result
}

// Core methods
func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return tally.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
