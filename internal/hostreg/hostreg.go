// Package hostreg is the Host Registry from SPEC_FULL.md §4.4: tracks how
// many accounts each remote address has created, to enforce
// max_users_per_ip at registration time.
package hostreg

import (
	"context"
	"net"
	"strings"
	"sync"

	"github.com/brinehollow/placewall/internal/model"
	"github.com/brinehollow/placewall/internal/plerrors"
	"github.com/brinehollow/placewall/internal/store"
)

// Registry caches model.Host rows in memory, lazily loading from the store
// and writing each account increment through to the store immediately.
type Registry struct {
	mu    sync.Mutex
	s     *store.Store
	hosts map[string]*model.Host
	known map[string]bool // true once a host has been persisted, to pick insert vs update
}

func New(s *store.Store) *Registry {
	return &Registry{s: s, hosts: make(map[string]*model.Host), known: make(map[string]bool)}
}

// CanonicalAddress strips the port from a RemoteAddr and prefers the first
// X-Forwarded-For hop when present, per SPEC_FULL.md §3's proxy note.
func CanonicalAddress(remoteAddr, forwardedFor string) string {
	if forwardedFor != "" {
		first := strings.TrimSpace(strings.Split(forwardedFor, ",")[0])
		if first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// get returns the cached host, loading it from the store on first sight.
func (r *Registry) get(ctx context.Context, address string) (*model.Host, error) {
	if h, ok := r.hosts[address]; ok {
		return h, nil
	}
	h, err := r.s.LoadHost(ctx, address)
	if err != nil {
		return nil, plerrors.Wrap(err, "loading host")
	}
	if h == nil {
		h = &model.Host{Address: address, TotalAccounts: 0}
	} else {
		r.known[address] = true
	}
	r.hosts[address] = h
	return h, nil
}

// AccountCount returns how many accounts address has registered so far.
func (r *Registry) AccountCount(ctx context.Context, address string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, err := r.get(ctx, address)
	if err != nil {
		return 0, err
	}
	return h.TotalAccounts, nil
}

// RecordNewAccount increments address's account count and persists it
// immediately — registration is rare enough that a synchronous write isn't
// the hot path the tile/user checkpoints need to batch.
func (r *Registry) RecordNewAccount(ctx context.Context, address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, err := r.get(ctx, address)
	if err != nil {
		return err
	}
	h.TotalAccounts++

	if r.known[address] {
		return plerrors.Wrap(r.s.UpdateHost(ctx, h), "updating host")
	}
	r.known[address] = true
	return plerrors.Wrap(r.s.InsertHost(ctx, h), "inserting host")
}
