package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the tally store (SQLite).
var Migrations = migrate.NewGroup("tally")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_tally_entries",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tally_entries (
    id              TEXT PRIMARY KEY,
    kind            TEXT NOT NULL,
    stream_key      TEXT NOT NULL,
    attributes      TEXT NOT NULL DEFAULT '{}',
    quantity        TEXT NOT NULL DEFAULT '0',
    running_balance TEXT NOT NULL DEFAULT '0',
    occurred_at     DATETIME NOT NULL,
    recorded_at     DATETIME NOT NULL,
    note            TEXT NOT NULL DEFAULT '',
    metadata        TEXT NOT NULL DEFAULT '{}',
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tally_entries_stream_order ON tally_entries (stream_key, occurred_at, recorded_at, id);
CREATE INDEX IF NOT EXISTS idx_tally_entries_kind_stream ON tally_entries (kind, stream_key);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tally_entries`)
				return err
			},
		},
	)
}
