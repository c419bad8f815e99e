// Package types provides the small value types shared across tally:
// entity timestamps, the recording clock and decimal quantity helpers.
package types

import "time"

// Entity carries the bookkeeping timestamps of a stored row.
// Embed this in domain types that are persisted.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntity returns an Entity stamped with t.
func NewEntity(t time.Time) Entity {
	t = t.UTC()
	return Entity{CreatedAt: t, UpdatedAt: t}
}

// Touch moves UpdatedAt to t.
func (e *Entity) Touch(t time.Time) {
	e.UpdatedAt = t.UTC()
}

// Modified reports whether the row was changed after it was created.
func (e Entity) Modified() bool {
	return e.UpdatedAt.After(e.CreatedAt)
}
