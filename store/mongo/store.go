// Package mongo implements the tally store on MongoDB via Grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/tally"
	"github.com/xraph/tally/entry"
	"github.com/xraph/tally/id"
	tallystore "github.com/xraph/tally/store"
	"github.com/xraph/tally/stream"
)

// Collection name constants.
const (
	colEntries = "tally_entries"
)

// canonical is the storage order of a stream.
var canonical = bson.D{
	{Key: "occurred_at", Value: 1},
	{Key: "recorded_at", Value: 1},
	{Key: "_id", Value: 1},
}

// compile-time interface check
var _ tallystore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for the tally collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("tally/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Entry Store ====================

func (s *Store) InsertEntry(ctx context.Context, e *entry.Entry) error {
	m, err := toEntryModel(e)
	if err != nil {
		return fmt.Errorf("tally/mongo: insert entry: %w", err)
	}
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tally.ErrAlreadyExists
		}
		return fmt.Errorf("tally/mongo: insert entry: %w", err)
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, entryID id.EntryID) (*entry.Entry, error) {
	var m entryModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": entryID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tally.ErrEntryNotFound
		}
		return nil, fmt.Errorf("tally/mongo: get entry: %w", err)
	}
	return fromEntryModel(&m)
}

func (s *Store) UpdateEntry(ctx context.Context, e *entry.Entry) error {
	m, err := toEntryModel(e)
	if err != nil {
		return fmt.Errorf("tally/mongo: update entry: %w", err)
	}
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: update entry: %w", err)
	}
	if res.MatchedCount() == 0 {
		return tally.ErrEntryNotFound
	}
	return nil
}

func (s *Store) DeleteEntry(ctx context.Context, entryID id.EntryID) error {
	res, err := s.mdb.NewDelete((*entryModel)(nil)).
		Filter(bson.M{"_id": entryID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: delete entry: %w", err)
	}
	if res.DeletedCount() == 0 {
		return tally.ErrEntryNotFound
	}
	return nil
}

func (s *Store) ListStream(ctx context.Context, key stream.Key, opts entry.ListOpts) ([]*entry.Entry, error) {
	var models []entryModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{"stream_key": key.String()}).
		Sort(canonical)

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tally/mongo: list stream: %w", err)
	}
	return fromEntryModels(models)
}

func (s *Store) StreamTail(ctx context.Context, key stream.Key) (*entry.Entry, error) {
	var m entryModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"stream_key": key.String()}).
		Sort(bson.D{
			{Key: "occurred_at", Value: -1},
			{Key: "recorded_at", Value: -1},
			{Key: "_id", Value: -1},
		}).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tally.ErrEntryNotFound
		}
		return nil, fmt.Errorf("tally/mongo: stream tail: %w", err)
	}
	return fromEntryModel(&m)
}

func (s *Store) UpdateBalance(ctx context.Context, entryID id.EntryID, balance decimal.Decimal) error {
	bal, err := toDecimal128(balance)
	if err != nil {
		return fmt.Errorf("tally/mongo: update balance: %w", err)
	}

	res, err := s.mdb.NewUpdate((*entryModel)(nil)).
		Filter(bson.M{"_id": entryID.String()}).
		Set("running_balance", bal).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: update balance: %w", err)
	}
	if res.MatchedCount() == 0 {
		return tally.ErrEntryNotFound
	}
	return nil
}

func (s *Store) ListStreams(ctx context.Context, kind string) ([]stream.Key, error) {
	match := bson.M{}
	if kind != "" {
		match["kind"] = kind
	}

	pipeline := bson.A{
		bson.M{"$match": match},
		bson.M{"$group": bson.M{"_id": "$stream_key"}},
		bson.M{"$sort": bson.M{"_id": 1}},
	}

	cursor, err := s.mdb.Collection(colEntries).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("tally/mongo: list streams: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Key string `bson:"_id"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("tally/mongo: list streams decode: %w", err)
	}

	keys := make([]stream.Key, len(results))
	for i, r := range results {
		keys[i] = stream.Key(r.Key)
	}
	return keys, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for the tally collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colEntries: {
			{
				Keys: bson.D{
					{Key: "stream_key", Value: 1},
					{Key: "occurred_at", Value: 1},
					{Key: "recorded_at", Value: 1},
					{Key: "_id", Value: 1},
				},
				Options: options.Index().SetName("stream_order"),
			},
			{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "stream_key", Value: 1}}},
		},
	}
}
