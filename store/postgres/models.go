package postgres

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/xraph/grove"

	"github.com/xraph/tally/entry"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/stream"
	"github.com/xraph/tally/types"
)

type entryModel struct {
	grove.BaseModel `grove:"table:tally_entries"`

	ID             string            `grove:"id,pk"`
	Kind           string            `grove:"kind"`
	StreamKey      string            `grove:"stream_key"`
	Attributes     map[string]string `grove:"attributes,type:jsonb"`
	Quantity       decimal.Decimal   `grove:"quantity"`
	RunningBalance decimal.Decimal   `grove:"running_balance"`
	OccurredAt     time.Time         `grove:"occurred_at"`
	RecordedAt     time.Time         `grove:"recorded_at"`
	Note           string            `grove:"note"`
	Metadata       map[string]string `grove:"metadata,type:jsonb"`
	CreatedAt      time.Time         `grove:"created_at"`
	UpdatedAt      time.Time         `grove:"updated_at"`
}

func toEntryModel(e *entry.Entry) *entryModel {
	return &entryModel{
		ID:             e.ID.String(),
		Kind:           e.Kind,
		StreamKey:      e.StreamKey.String(),
		Attributes:     e.Attributes,
		Quantity:       e.Quantity,
		RunningBalance: e.RunningBalance,
		OccurredAt:     e.OccurredAt.UTC(),
		RecordedAt:     e.RecordedAt.UTC(),
		Note:           e.Note,
		Metadata:       e.Metadata,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func fromEntryModel(m *entryModel) (*entry.Entry, error) {
	entryID, err := id.ParseEntryID(m.ID)
	if err != nil {
		return nil, err
	}

	return &entry.Entry{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             entryID,
		Kind:           m.Kind,
		StreamKey:      stream.Key(m.StreamKey),
		Attributes:     m.Attributes,
		Quantity:       m.Quantity,
		RunningBalance: m.RunningBalance,
		OccurredAt:     m.OccurredAt.UTC(),
		RecordedAt:     m.RecordedAt.UTC(),
		Note:           m.Note,
		Metadata:       m.Metadata,
	}, nil
}

func fromEntryModels(models []entryModel) ([]*entry.Entry, error) {
	result := make([]*entry.Entry, len(models))
	for i := range models {
		e, err := fromEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}
