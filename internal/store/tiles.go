package store

import (
	"context"
	"database/sql"

	"github.com/brinehollow/placewall/internal/model"
	"github.com/brinehollow/placewall/internal/plerrors"
)

const (
	queryCountTiles = `SELECT COUNT(*) FROM tiles`

	queryInsertTile = `
		INSERT INTO tiles (x, y, color_id, last_modifier, place_time)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(x, y) DO UPDATE SET
			color_id = excluded.color_id,
			last_modifier = excluded.last_modifier,
			place_time = excluded.place_time`

	queryLoadAllTiles = `SELECT x, y, color_id, last_modifier, place_time FROM tiles`
)

// CountTiles returns the row count, used to derive edge_length = sqrt(count)
// when the canvas loads from a non-empty store (SPEC_FULL.md §4.3).
func (s *Store) CountTiles(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, queryCountTiles).Scan(&n); err != nil {
		return 0, plerrors.Wrap(err, "counting tiles")
	}
	return n, nil
}

// FillDefault bulk-inserts edgeLength² tiles at defaultColorID inside one
// transaction. Only called when the store has zero tiles at boot.
func (s *Store) FillDefault(ctx context.Context, edgeLength int, defaultColorID uint8) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, queryInsertTile)
		if err != nil {
			return plerrors.Wrap(err, "preparing tile fill")
		}
		defer stmt.Close()

		for y := 0; y < edgeLength; y++ {
			for x := 0; x < edgeLength; x++ {
				if _, err := stmt.ExecContext(ctx, x, y, defaultColorID, "", 0); err != nil {
					return plerrors.Wrapf(err, "filling tile (%d,%d)", x, y)
				}
			}
		}
		return nil
	})
}

// LoadAllTiles reads every tile row, keyed by (x, y), for initial canvas
// hydration.
func (s *Store) LoadAllTiles(ctx context.Context) (map[[2]int]model.Tile, error) {
	rows, err := s.db.QueryContext(ctx, queryLoadAllTiles)
	if err != nil {
		return nil, plerrors.Wrap(err, "loading tiles")
	}
	defer rows.Close()

	out := make(map[[2]int]model.Tile)
	for rows.Next() {
		var x, y int
		var t model.Tile
		if err := rows.Scan(&x, &y, &t.ColorID, &t.LastModifier, &t.PlaceTime); err != nil {
			return nil, plerrors.Wrap(err, "scanning tile row")
		}
		out[[2]int{x, y}] = t
	}
	return out, rows.Err()
}

// UpdateTilesBatch applies a delta list in one transaction, matching the
// canvas-flush worker's all-or-nothing commit (SPEC_FULL.md §4.8). On
// failure the caller keeps the dirty flag set and retries next tick; the
// failure is logged at a throttled rate.
func (s *Store) UpdateTilesBatch(ctx context.Context, deltas []model.Delta) error {
	if len(deltas) == 0 {
		return nil
	}
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, queryInsertTile)
		if err != nil {
			return plerrors.Wrap(err, "preparing tile batch update")
		}
		defer stmt.Close()

		for _, d := range deltas {
			if _, err := stmt.ExecContext(ctx, d.X, d.Y, d.Tile.ColorID, d.Tile.LastModifier, d.Tile.PlaceTime); err != nil {
				return plerrors.Wrapf(err, "writing tile (%d,%d)", d.X, d.Y)
			}
		}
		return nil
	})
	if err != nil {
		s.logWriteFailure("canvas_flush", err)
		return err
	}
	return nil
}
