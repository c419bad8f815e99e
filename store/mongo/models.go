package mongo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/grove"

	"github.com/xraph/tally/entry"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/stream"
	"github.com/xraph/tally/types"
)

// entryModel is the document form of an entry. Event and recording times
// are kept as Unix microseconds since BSON dates stop at milliseconds.
type entryModel struct {
	grove.BaseModel `grove:"table:tally_entries"`

	ID             string            `grove:"id,pk"           bson:"_id"`
	Kind           string            `grove:"kind"            bson:"kind"`
	StreamKey      string            `grove:"stream_key"      bson:"stream_key"`
	Attributes     map[string]string `grove:"attributes"      bson:"attributes,omitempty"`
	Quantity       bson.Decimal128   `grove:"quantity"        bson:"quantity"`
	RunningBalance bson.Decimal128   `grove:"running_balance" bson:"running_balance"`
	OccurredAt     int64             `grove:"occurred_at"     bson:"occurred_at"`
	RecordedAt     int64             `grove:"recorded_at"     bson:"recorded_at"`
	Note           string            `grove:"note"            bson:"note,omitempty"`
	Metadata       map[string]string `grove:"metadata"        bson:"metadata,omitempty"`
	CreatedAt      time.Time         `grove:"created_at"      bson:"created_at"`
	UpdatedAt      time.Time         `grove:"updated_at"      bson:"updated_at"`
}

func toEntryModel(e *entry.Entry) (*entryModel, error) {
	qty, err := toDecimal128(e.Quantity)
	if err != nil {
		return nil, err
	}
	bal, err := toDecimal128(e.RunningBalance)
	if err != nil {
		return nil, err
	}

	return &entryModel{
		ID:             e.ID.String(),
		Kind:           e.Kind,
		StreamKey:      e.StreamKey.String(),
		Attributes:     e.Attributes,
		Quantity:       qty,
		RunningBalance: bal,
		OccurredAt:     e.OccurredAt.UnixMicro(),
		RecordedAt:     e.RecordedAt.UnixMicro(),
		Note:           e.Note,
		Metadata:       e.Metadata,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}, nil
}

func fromEntryModel(m *entryModel) (*entry.Entry, error) {
	entryID, err := id.ParseEntryID(m.ID)
	if err != nil {
		return nil, err
	}
	qty, err := fromDecimal128(m.Quantity)
	if err != nil {
		return nil, err
	}
	bal, err := fromDecimal128(m.RunningBalance)
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
		Quantity:       qty,
		RunningBalance: bal,
		OccurredAt:     time.UnixMicro(m.OccurredAt).UTC(),
		RecordedAt:     time.UnixMicro(m.RecordedAt).UTC(),
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

func toDecimal128(d decimal.Decimal) (bson.Decimal128, error) {
	v, err := bson.ParseDecimal128(d.String())
	if err != nil {
		return bson.Decimal128{}, fmt.Errorf("encode decimal %s: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v bson.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode decimal %s: %w", v, err)
	}
	return d, nil
}
