package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/tally/entry"
	"github.com/xraph/tally/stream"
)

// EntryRequest is the body of POST /entries and PUT /entries/:id.
type EntryRequest struct {
	Kind       string            `json:"kind"        validate:"required"`
	Attributes map[string]string `json:"attributes"`
	Quantity   string            `json:"quantity"    validate:"required,numeric"`
	OccurredAt time.Time         `json:"occurred_at" validate:"required"`
	Note       string            `json:"note"        validate:"max=1024"`
	Metadata   map[string]string `json:"metadata"`
}

// toEntry converts the request into an entry. Quantity has passed the
// numeric validator, so parsing only fails on values decimal rejects.
func (r *EntryRequest) toEntry() (*entry.Entry, error) {
	qty, err := decimal.NewFromString(r.Quantity)
	if err != nil {
		return nil, err
	}
	return &entry.Entry{
		Kind:       r.Kind,
		Attributes: r.Attributes,
		Quantity:   qty,
		OccurredAt: r.OccurredAt,
		Note:       r.Note,
		Metadata:   r.Metadata,
	}, nil
}

// ReconcileRequest is the body of POST /streams/reconcile. Keys and Kind
// are exclusive; an empty body reconciles every stream.
type ReconcileRequest struct {
	Keys []string `json:"keys" validate:"omitempty,dive,required"`
	Kind string   `json:"kind" validate:"excluded_with=Keys"`
}

// RecordResponse is returned by POST /entries.
type RecordResponse struct {
	Entry  *entry.Entry   `json:"entry"`
	Report *stream.Report `json:"report,omitempty"`
}

// UpdateResponse is returned by PUT /entries/:id.
type UpdateResponse struct {
	Entry  *entry.Entry           `json:"entry"`
	Report *stream.CombinedReport `json:"report"`
}

// BalanceResponse is returned by GET /streams/:key/balance.
type BalanceResponse struct {
	Stream  stream.Key      `json:"stream"`
	Balance decimal.Decimal `json:"balance"`
}
