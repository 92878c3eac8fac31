// Package admin is the Admin Plane from SPEC_FULL.md §4.6: privileged
// actions gated per-capability on the caller's administrator record.
package admin

import (
	"context"
	"sync"

	"github.com/brinehollow/placewall/internal/canvas"
	"github.com/brinehollow/placewall/internal/model"
	"github.com/brinehollow/placewall/internal/plerrors"
	"github.com/brinehollow/placewall/internal/session"
)

// Notifier delivers the broadcast/unicast effects of admin actions.
type Notifier interface {
	Announcement(text string)
	TileUpdate(x, y int, tile model.Tile)
	Shutdown()
}

// Plane holds the live administrator table, reloadable on SIGHUP along with
// the rest of the config-driven state.
type Plane struct {
	mu       sync.RWMutex
	byUUID   map[string]model.AdminCapabilities
	canvas   *canvas.Canvas
	sessions *session.Manager
	notifier Notifier
}

func New(c *canvas.Canvas, sessions *session.Manager, n Notifier, admins []model.AdminCapabilities) *Plane {
	p := &Plane{canvas: c, sessions: sessions, notifier: n}
	p.SetAdministrators(admins)
	return p
}

// SetAdministrators atomically replaces the administrator table, used both
// at startup and by the config-reload worker.
func (p *Plane) SetAdministrators(admins []model.AdminCapabilities) {
	byUUID := make(map[string]model.AdminCapabilities, len(admins))
	for _, a := range admins {
		byUUID[a.UUID] = a
	}
	p.mu.Lock()
	p.byUUID = byUUID
	p.mu.Unlock()
}

// CapabilitiesOf returns the caller's admin record and whether they are an
// administrator at all.
func (p *Plane) CapabilitiesOf(uuid string) (model.AdminCapabilities, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.byUUID[uuid]
	return c, ok
}

func (p *Plane) requireCapability(callerUUID string, has func(model.AdminCapabilities) bool) error {
	caps, ok := p.CapabilitiesOf(callerUUID)
	if !ok || !has(caps) {
		return plerrors.ClientError(plerrors.KindAuthorization, "not authorized for this action", nil)
	}
	return nil
}

// Announce broadcasts a message to every connected client.
func (p *Plane) Announce(callerUUID, message string) error {
	if err := p.requireCapability(callerUUID, func(c model.AdminCapabilities) bool { return c.Announce }); err != nil {
		return err
	}
	p.notifier.Announcement(message)
	return nil
}

// ToggleShadowban flips the shadow-ban flag on a live or stored user and
// persists it.
func (p *Plane) ToggleShadowban(ctx context.Context, callerUUID, targetUUID string, users userStore) error {
	if err := p.requireCapability(callerUUID, func(c model.AdminCapabilities) bool { return c.ShadowBan }); err != nil {
		return err
	}
	return toggleShadowban(ctx, users, targetUUID)
}

// BanClick looks up the last modifier of (x, y) and shadow-bans them,
// refusing if that modifier is itself an administrator.
func (p *Plane) BanClick(ctx context.Context, callerUUID string, x, y int, users userStore) error {
	if err := p.requireCapability(callerUUID, func(c model.AdminCapabilities) bool { return c.BanClick }); err != nil {
		return err
	}
	modifier, _, err := p.canvas.LastModifierAt(x, y)
	if err != nil {
		return err
	}
	if modifier == "" {
		return plerrors.ClientError(plerrors.KindValidation, "tile has no modifier", nil)
	}
	if _, isAdmin := p.CapabilitiesOf(modifier); isAdmin {
		return plerrors.ClientError(plerrors.KindAuthorization, "cannot ban an administrator", nil)
	}
	u, err := users.Load(ctx, modifier)
	if err != nil {
		return err
	}
	if u == nil {
		return plerrors.ClientError(plerrors.KindValidation, "unknown user", nil)
	}
	u.IsShadowBanned = true
	return users.Update(ctx, u)
}

// Brush writes a 7x7 square centered at (x, y), clipped to the canvas, as
// if placed by the caller, emitting one tile-update broadcast per cell.
func (p *Plane) Brush(callerUUID string, x, y int, colorID uint8, placeTime int64) error {
	if err := p.requireCapability(callerUUID, func(c model.AdminCapabilities) bool { return c.Cleanup }); err != nil {
		return err
	}
	const radius = 3
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			cx, cy := x+dx, y+dy
			if !p.canvas.InBounds(cx, cy) {
				continue
			}
			tile, err := p.canvas.Place(cx, cy, colorID, callerUUID, placeTime)
			if err != nil {
				continue
			}
			p.notifier.TileUpdate(cx, cy, tile)
		}
	}
	return nil
}

// Shutdown flips the run flag via the notifier so the main loop exits
// cleanly after a final flush.
func (p *Plane) Shutdown(callerUUID string) error {
	if err := p.requireCapability(callerUUID, func(c model.AdminCapabilities) bool { return c.Shutdown }); err != nil {
		return err
	}
	p.notifier.Shutdown()
	return nil
}
