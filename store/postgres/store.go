// Package postgres implements the tally store on PostgreSQL via Grove ORM.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/tally"
	"github.com/xraph/tally/entry"
	"github.com/xraph/tally/id"
	tallystore "github.com/xraph/tally/store"
	"github.com/xraph/tally/stream"
)

// compile-time interface check
var _ tallystore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("tally/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("tally/postgres: migration failed: %w", err)
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
	m := toEntryModel(e)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetEntry(ctx context.Context, entryID id.EntryID) (*entry.Entry, error) {
	m := new(entryModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", entryID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tally.ErrEntryNotFound
		}
		return nil, err
	}
	return fromEntryModel(m)
}

func (s *Store) UpdateEntry(ctx context.Context, e *entry.Entry) error {
	m := toEntryModel(e)
	m.UpdatedAt = now()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (s *Store) DeleteEntry(ctx context.Context, entryID id.EntryID) error {
	res, err := s.pg.NewDelete((*entryModel)(nil)).
		Where("id = $1", entryID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (s *Store) ListStream(ctx context.Context, key stream.Key, opts entry.ListOpts) ([]*entry.Entry, error) {
	var models []entryModel
	q := s.pg.NewSelect(&models).
		Where("stream_key = $1", key.String()).
		OrderExpr("occurred_at ASC, recorded_at ASC, id ASC")

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromEntryModels(models)
}

func (s *Store) StreamTail(ctx context.Context, key stream.Key) (*entry.Entry, error) {
	m := new(entryModel)
	err := s.pg.NewSelect(m).
		Where("stream_key = $1", key.String()).
		OrderExpr("occurred_at DESC, recorded_at DESC, id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tally.ErrEntryNotFound
		}
		return nil, err
	}
	return fromEntryModel(m)
}

func (s *Store) UpdateBalance(ctx context.Context, entryID id.EntryID, balance decimal.Decimal) error {
	res, err := s.pg.NewUpdate((*entryModel)(nil)).
		Set("running_balance = $1", balance).
		Set("updated_at = $2", now()).
		Where("id = $3", entryID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (s *Store) ListStreams(ctx context.Context, kind string) ([]stream.Key, error) {
	var keys []string
	var err error
	if kind == "" {
		err = s.pg.NewRaw(`
		SELECT DISTINCT stream_key FROM tally_entries ORDER BY stream_key
	`).Scan(ctx, &keys)
	} else {
		err = s.pg.NewRaw(`
		SELECT DISTINCT stream_key FROM tally_entries WHERE kind = $1 ORDER BY stream_key
	`, kind).Scan(ctx, &keys)
	}
	if err != nil {
		if isNoRows(err) {
			return []stream.Key{}, nil
		}
		return nil, err
	}

	result := make([]stream.Key, len(keys))
	for i, k := range keys {
		result[i] = stream.Key(k)
	}
	return result, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// rowsAffected is the part of a write result expectRow needs.
type rowsAffected interface {
	RowsAffected() (int64, error)
}

// expectRow maps a zero-row write to ErrEntryNotFound.
func expectRow(res rowsAffected) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tally.ErrEntryNotFound
	}
	return nil
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
