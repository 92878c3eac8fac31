// Package store is the Persistence Store from SPEC_FULL.md §4.2: durable
// tables for tiles, users, and hosts with transactional batch writes.
//
// Grounded on github.com/teranos/QNTX ats/storage/sql_store.go's pattern of
// package-level query constants plus small typed helpers around
// database/sql — adapted here from an attestation store to a tile/user/host
// store.
package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/time/rate"

	"github.com/brinehollow/placewall/internal/logging"
	"github.com/brinehollow/placewall/internal/plerrors"
)

const schema = `
CREATE TABLE IF NOT EXISTS tiles (
	x INTEGER NOT NULL,
	y INTEGER NOT NULL,
	color_id INTEGER NOT NULL,
	last_modifier TEXT NOT NULL DEFAULT '',
	place_time INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (x, y)
);

CREATE TABLE IF NOT EXISTS users (
	uuid TEXT PRIMARY KEY,
	user_name TEXT NOT NULL DEFAULT '',
	has_set_username INTEGER NOT NULL DEFAULT 0,
	is_shadow_banned INTEGER NOT NULL DEFAULT 0,
	remaining_tiles INTEGER NOT NULL DEFAULT 0,
	max_tiles INTEGER NOT NULL DEFAULT 0,
	tile_regen_seconds INTEGER NOT NULL DEFAULT 10,
	total_placed INTEGER NOT NULL DEFAULT 0,
	level INTEGER NOT NULL DEFAULT 1,
	level_progress INTEGER NOT NULL DEFAULT 0,
	tiles_to_next_level INTEGER NOT NULL DEFAULT 0,
	last_connected INTEGER NOT NULL DEFAULT 0,
	canvas_limiter_last INTEGER NOT NULL DEFAULT 0,
	canvas_limiter_allowance REAL NOT NULL DEFAULT 0,
	canvas_limiter_max_rate REAL NOT NULL DEFAULT 0,
	canvas_limiter_per_seconds REAL NOT NULL DEFAULT 0,
	tile_limiter_last INTEGER NOT NULL DEFAULT 0,
	tile_limiter_allowance REAL NOT NULL DEFAULT 0,
	tile_limiter_max_rate REAL NOT NULL DEFAULT 0,
	tile_limiter_per_seconds REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS hosts (
	ip_address TEXT PRIMARY KEY,
	total_accounts INTEGER NOT NULL DEFAULT 0
);
`

// Store is the sqlite-backed Persistence Store. Calls arrive from the
// connection goroutines and the background worker loop; the pool is capped
// at one connection, so statements run one at a time. The busy timeout
// exists only to ride out contention from external ad-hoc readers, not
// internal concurrency.
type Store struct {
	db       *sql.DB
	warnOnce rate.Sometimes
}

// Open creates or attaches to the sqlite file at path, applies the schema,
// and configures a bounded busy timeout. Any error here is fatal at
// startup per SPEC_FULL.md §7.
func Open(path string) (*Store, error) {
	dsn := path + "?_busy_timeout=5000"
	if path != ":memory:" {
		dsn += "&_journal_mode=WAL"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, plerrors.Wrap(err, "opening sqlite database")
	}
	db.SetMaxOpenConns(1) // single-writer, matches the single-threaded core

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, plerrors.Wrap(err, "applying schema")
	}

	return &Store{
		db:       db,
		warnOnce: rate.Sometimes{Interval: 30 * time.Second},
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// logWriteFailure throttles the warning line for steady-state write
// failures via rate.Sometimes so a wedged disk doesn't spam the log once
// per flush tick forever (SPEC_FULL.md §4.2).
func (s *Store) logWriteFailure(op string, err error) {
	s.warnOnce.Do(func() {
		logging.Logger.Warnw("persistence write failed, will retry next tick",
			logging.FieldAction, op,
			logging.FieldError, err,
		)
	})
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return plerrors.Wrap(err, "beginning transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
