package store

import (
	"context"

	"github.com/brinehollow/placewall/internal/plerrors"
)

// BackupTo writes an online, consistent snapshot of the database to path
// using SQLite's VACUUM INTO, which doesn't block concurrent readers for
// longer than the statement itself (SPEC_FULL.md §4.2).
func (s *Store) BackupTo(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, path)
	if err != nil {
		return plerrors.Wrapf(err, "backing up database to %s", path)
	}
	return nil
}
