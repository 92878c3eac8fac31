package store

import (
	"context"
	"database/sql"

	"github.com/brinehollow/placewall/internal/model"
	"github.com/brinehollow/placewall/internal/plerrors"
)

const (
	queryLoadUser = `
		SELECT uuid, user_name, has_set_username, is_shadow_banned,
			remaining_tiles, max_tiles, tile_regen_seconds, total_placed,
			level, level_progress, tiles_to_next_level, last_connected,
			canvas_limiter_last, canvas_limiter_allowance, canvas_limiter_max_rate, canvas_limiter_per_seconds,
			tile_limiter_last, tile_limiter_allowance, tile_limiter_max_rate, tile_limiter_per_seconds
		FROM users WHERE uuid = ?`

	queryUpsertUser = `
		INSERT INTO users (
			uuid, user_name, has_set_username, is_shadow_banned,
			remaining_tiles, max_tiles, tile_regen_seconds, total_placed,
			level, level_progress, tiles_to_next_level, last_connected,
			canvas_limiter_last, canvas_limiter_allowance, canvas_limiter_max_rate, canvas_limiter_per_seconds,
			tile_limiter_last, tile_limiter_allowance, tile_limiter_max_rate, tile_limiter_per_seconds
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uuid) DO UPDATE SET
			user_name = excluded.user_name,
			has_set_username = excluded.has_set_username,
			is_shadow_banned = excluded.is_shadow_banned,
			remaining_tiles = excluded.remaining_tiles,
			max_tiles = excluded.max_tiles,
			tile_regen_seconds = excluded.tile_regen_seconds,
			total_placed = excluded.total_placed,
			level = excluded.level,
			level_progress = excluded.level_progress,
			tiles_to_next_level = excluded.tiles_to_next_level,
			last_connected = excluded.last_connected,
			canvas_limiter_last = excluded.canvas_limiter_last,
			canvas_limiter_allowance = excluded.canvas_limiter_allowance,
			canvas_limiter_max_rate = excluded.canvas_limiter_max_rate,
			canvas_limiter_per_seconds = excluded.canvas_limiter_per_seconds,
			tile_limiter_last = excluded.tile_limiter_last,
			tile_limiter_allowance = excluded.tile_limiter_allowance,
			tile_limiter_max_rate = excluded.tile_limiter_max_rate,
			tile_limiter_per_seconds = excluded.tile_limiter_per_seconds`
)

func scanUser(row *sql.Row) (*model.User, error) {
	u := &model.User{}
	var lastConnected int64
	if err := row.Scan(
		&u.UUID, &u.Name, &u.HasSetUsername, &u.IsShadowBanned,
		&u.RemainingTiles, &u.MaxTiles, &u.TileRegenSeconds, &u.TotalPlaced,
		&u.Level, &u.ProgressInLevel, &u.TilesToNextLevel, &lastConnected,
		&u.CanvasLimiter.LastEventMicros, &u.CanvasLimiter.Allowance, &u.CanvasLimiter.MaxRate, &u.CanvasLimiter.PerSeconds,
		&u.TileLimiter.LastEventMicros, &u.TileLimiter.Allowance, &u.TileLimiter.MaxRate, &u.TileLimiter.PerSeconds,
	); err != nil {
		return nil, err
	}
	u.LastConnected = unixToTime(lastConnected)
	return u, nil
}

// LoadUser returns the stored row for uuid, or (nil, nil) if absent.
func (s *Store) LoadUser(ctx context.Context, uuid string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, queryLoadUser, uuid)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, plerrors.Wrapf(err, "loading user %s", uuid)
	}
	return u, nil
}

func userUpsertArgs(u *model.User) []interface{} {
	return []interface{}{
		u.UUID, u.Name, u.HasSetUsername, u.IsShadowBanned,
		u.RemainingTiles, u.MaxTiles, u.TileRegenSeconds, u.TotalPlaced,
		u.Level, u.ProgressInLevel, u.TilesToNextLevel, timeToUnix(u.LastConnected),
		u.CanvasLimiter.LastEventMicros, u.CanvasLimiter.Allowance, u.CanvasLimiter.MaxRate, u.CanvasLimiter.PerSeconds,
		u.TileLimiter.LastEventMicros, u.TileLimiter.Allowance, u.TileLimiter.MaxRate, u.TileLimiter.PerSeconds,
	}
}

// InsertUser persists a brand-new account immediately on first connection.
func (s *Store) InsertUser(ctx context.Context, u *model.User) error {
	if _, err := s.db.ExecContext(ctx, queryUpsertUser, userUpsertArgs(u)...); err != nil {
		return plerrors.Wrapf(err, "inserting user %s", u.UUID)
	}
	return nil
}

// UpdateUser persists one user's current fields, e.g. on disconnect.
func (s *Store) UpdateUser(ctx context.Context, u *model.User) error {
	if _, err := s.db.ExecContext(ctx, queryUpsertUser, userUpsertArgs(u)...); err != nil {
		return plerrors.Wrapf(err, "updating user %s", u.UUID)
	}
	return nil
}

// UpdateUsersBatch persists every live user in one transaction, matching
// the periodic checkpoint worker (SPEC_FULL.md §4.8).
func (s *Store) UpdateUsersBatch(ctx context.Context, users []*model.User) error {
	if len(users) == 0 {
		return nil
	}
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, queryUpsertUser)
		if err != nil {
			return plerrors.Wrap(err, "preparing user checkpoint")
		}
		defer stmt.Close()

		for _, u := range users {
			if _, execErr := stmt.ExecContext(ctx, userUpsertArgs(u)...); execErr != nil {
				return plerrors.Wrapf(execErr, "checkpointing user %s", u.UUID)
			}
		}
		return nil
	})
	if err != nil {
		s.logWriteFailure("user_checkpoint", err)
		return err
	}
	return nil
}
