package store

import (
	"context"
	"database/sql"

	"github.com/brinehollow/placewall/internal/model"
	"github.com/brinehollow/placewall/internal/plerrors"
)

const (
	queryLoadHost = `SELECT ip_address, total_accounts FROM hosts WHERE ip_address = ?`

	queryUpsertHost = `
		INSERT INTO hosts (ip_address, total_accounts) VALUES (?, ?)
		ON CONFLICT(ip_address) DO UPDATE SET total_accounts = excluded.total_accounts`
)

// LoadHost returns the stored row for address, or (nil, nil) if never seen.
func (s *Store) LoadHost(ctx context.Context, address string) (*model.Host, error) {
	h := &model.Host{}
	err := s.db.QueryRowContext(ctx, queryLoadHost, address).Scan(&h.Address, &h.TotalAccounts)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, plerrors.Wrapf(err, "loading host %s", address)
	}
	return h, nil
}

// InsertHost persists a newly observed host.
func (s *Store) InsertHost(ctx context.Context, h *model.Host) error {
	if _, err := s.db.ExecContext(ctx, queryUpsertHost, h.Address, h.TotalAccounts); err != nil {
		return plerrors.Wrapf(err, "inserting host %s", h.Address)
	}
	return nil
}

// UpdateHost persists the current total_accounts for a host. Called on
// every increment, per SPEC_FULL.md §3's monotonic invariant.
func (s *Store) UpdateHost(ctx context.Context, h *model.Host) error {
	if _, err := s.db.ExecContext(ctx, queryUpsertHost, h.Address, h.TotalAccounts); err != nil {
		return plerrors.Wrapf(err, "updating host %s", h.Address)
	}
	return nil
}
