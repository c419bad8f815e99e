package sqlite

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xraph/grove"

	"github.com/xraph/tally/entry"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/stream"
	"github.com/xraph/tally/types"
)

// entryModel keeps attribute and metadata maps as JSON text and decimals as
// their exact string form.
type entryModel struct {
	grove.BaseModel `grove:"table:tally_entries"`

	ID             string          `grove:"id,pk"`
	Kind           string          `grove:"kind"`
	StreamKey      string          `grove:"stream_key"`
	Attributes     string          `grove:"attributes"`
	Quantity       decimal.Decimal `grove:"quantity"`
	RunningBalance decimal.Decimal `grove:"running_balance"`
	OccurredAt     time.Time       `grove:"occurred_at"`
	RecordedAt     time.Time       `grove:"recorded_at"`
	Note           string          `grove:"note"`
	Metadata       string          `grove:"metadata"`
	CreatedAt      time.Time       `grove:"created_at"`
	UpdatedAt      time.Time       `grove:"updated_at"`
}

func toEntryModel(e *entry.Entry) (*entryModel, error) {
	attrs, err := marshalMap(e.Attributes)
	if err != nil {
		return nil, err
	}
	meta, err := marshalMap(e.Metadata)
	if err != nil {
		return nil, err
	}

	return &entryModel{
		ID:             e.ID.String(),
		Kind:           e.Kind,
		StreamKey:      e.StreamKey.String(),
		Attributes:     attrs,
		Quantity:       e.Quantity,
		RunningBalance: e.RunningBalance,
		OccurredAt:     e.OccurredAt.UTC(),
		RecordedAt:     e.RecordedAt.UTC(),
		Note:           e.Note,
		Metadata:       meta,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}, nil
}

func fromEntryModel(m *entryModel) (*entry.Entry, error) {
	entryID, err := id.ParseEntryID(m.ID)
	if err != nil {
		return nil, err
	}
	attrs, err := unmarshalMap(m.Attributes)
	if err != nil {
		return nil, err
	}
	meta, err := unmarshalMap(m.Metadata)
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
		Attributes:     attrs,
		Quantity:       m.Quantity,
		RunningBalance: m.RunningBalance,
		OccurredAt:     m.OccurredAt.UTC(),
		RecordedAt:     m.RecordedAt.UTC(),
		Note:           m.Note,
		Metadata:       meta,
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

func marshalMap(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalMap(s string) (map[string]string, error) {
	if s == "" || s == "{}" {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return m, nil
}
