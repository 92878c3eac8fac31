package protocol

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/brinehollow/placewall/internal/plerrors"
	"github.com/brinehollow/placewall/internal/session"
)

const maxUsernameBytes = 64

func (d *Dispatcher) handleInitialAuth(ctx context.Context, conn session.Conn) (Result, error) {
	s, err := d.Sessions.AttachNew(ctx, conn, conn.RemoteAddr())
	if err != nil {
		return none(), err
	}
	return reply(AuthSuccessful(s.User)), nil
}

func (d *Dispatcher) handleAuth(ctx context.Context, conn session.Conn, userID string) (Result, error) {
	s, err := d.Sessions.AttachExisting(ctx, conn, userID)
	if err != nil {
		return none(), err
	}
	_, isAdmin := d.Admin.CapabilitiesOf(s.User.UUID)
	return reply(ReAuthSuccessful(s.User, isAdmin)), nil
}

func (d *Dispatcher) handleGetCanvas(conn session.Conn) (Result, error) {
	s, err := d.requireSession(conn)
	if err != nil {
		return none(), err
	}
	if !s.CanvasLimiter.Allow() {
		return none(), nil // rate-limit rejection is silent
	}
	d.Sessions.Touch(s)

	plane := d.Canvas.ColorPlane()
	_, generation := d.Canvas.Snapshot()
	return reply(FullCanvas(d.Canvas.EdgeLength, plane, generation)), nil
}

func (d *Dispatcher) handleGetTileInfo(conn session.Conn, x, y int) (Result, error) {
	s, err := d.requireSession(conn)
	if err != nil {
		return none(), err
	}
	if !s.TileLimiter.Allow() {
		return none(), nil
	}
	d.Sessions.Touch(s)

	modifier, placeTime, err := d.Canvas.LastModifierAt(x, y)
	if err != nil {
		return none(), err
	}
	return reply(TileInfo(modifier, placeTime)), nil
}

func (d *Dispatcher) handleGetTileHistory(conn session.Conn, x, y int) (Result, error) {
	s, err := d.requireSession(conn)
	if err != nil {
		return none(), err
	}
	d.Sessions.Touch(s)

	deltas := d.Canvas.DeltaHistoryAt(x, y)
	entries := make([]TileHistoryEntry, len(deltas))
	for i, dl := range deltas {
		entries[i] = TileHistoryEntry{
			X: dl.X, Y: dl.Y, ColorID: dl.Tile.ColorID,
			PlaceTime: dl.Tile.PlaceTime, Modifier: dl.Tile.LastModifier,
		}
	}
	return reply(TileHistory(entries)), nil
}

func (d *Dispatcher) handlePostTile(ctx context.Context, conn session.Conn, x, y int, colorIDStr string) (Result, error) {
	s, err := d.requireSession(conn)
	if err != nil {
		return none(), err
	}
	if !s.TileLimiter.Allow() {
		return none(), nil
	}
	if s.User.RemainingTiles < 1 {
		return none(), plerrors.ClientError(plerrors.KindQuotaExhausted, "no tiles remaining", nil)
	}

	colorID, err := parseColorID(colorIDStr)
	if err != nil {
		return none(), plerrors.ClientError(plerrors.KindValidation, "invalid colorID", err)
	}

	now := d.Now().Unix()

	// Shadow-banned placements validate exactly like a real placement but
	// never touch the canvas: the caller gets an indistinguishable private
	// echo while the global state and every other client are unaffected.
	if s.User.IsShadowBanned {
		if err := d.Canvas.ValidatePlacement(x, y, colorID); err != nil {
			return none(), err
		}
		d.Sessions.Touch(s)
		s.User.RemainingTiles--
		s.User.TotalPlaced++
		s.User.ProgressInLevel++

		d.Broadcaster.Unicast(conn, TileUpdate(x, y, colorID))
		if s.User.ProgressInLevel >= s.User.TilesToNextLevel {
			s.User.LevelUp()
			d.Broadcaster.Unicast(conn, LevelUp(s.User))
		}
		return none(), nil
	}

	tile, err := d.Canvas.Place(x, y, colorID, s.User.UUID, now)
	if err != nil {
		return none(), err
	}
	d.Sessions.Touch(s)

	s.User.RemainingTiles--
	s.User.TotalPlaced++
	s.User.ProgressInLevel++
	if s.User.ProgressInLevel >= s.User.TilesToNextLevel {
		s.User.LevelUp()
		d.Broadcaster.Unicast(conn, LevelUp(s.User))
	}

	return broadcast(TileUpdate(x, y, tile.ColorID)), nil
}

func parseColorID(s string) (uint8, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > 255 {
		return 0, plerrors.New("colorID out of range")
	}
	return uint8(n), nil
}

func (d *Dispatcher) handleGetColors(conn session.Conn) (Result, error) {
	if _, err := d.requireSession(conn); err != nil {
		return none(), err
	}
	return reply(ColorList(d.Canvas.Palette())), nil
}

func (d *Dispatcher) handleSetUsername(conn session.Conn, name string) (Result, error) {
	s, err := d.requireSession(conn)
	if err != nil {
		return none(), err
	}
	if len(name) > maxUsernameBytes {
		return none(), plerrors.ClientError(plerrors.KindValidation, "name too long", nil)
	}
	s.User.Name = name
	s.User.HasSetUsername = true
	return reply(NameSetSuccess(name)), nil
}

func (d *Dispatcher) handleAdminCmd(ctx context.Context, conn session.Conn, raw json.RawMessage) (Result, error) {
	s, err := d.requireSession(conn)
	if err != nil {
		return none(), err
	}
	if _, isAdmin := d.Admin.CapabilitiesOf(s.User.UUID); !isAdmin {
		return none(), plerrors.ClientError(plerrors.KindAuthorization, "not an administrator", nil)
	}

	var cmd AdminCmd
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return none(), plerrors.ClientError(plerrors.KindValidation, "malformed admin command", err)
	}

	switch cmd.Action {
	case "announce":
		if err := d.Admin.Announce(s.User.UUID, cmd.Message); err != nil {
			return none(), err
		}
		return none(), nil
	case "shadowban":
		if err := d.Admin.ToggleShadowban(ctx, s.User.UUID, cmd.UUID, d.adminUsers()); err != nil {
			return none(), err
		}
		return reply(BanClickSuccess()), nil
	case "banclick":
		if err := d.Admin.BanClick(ctx, s.User.UUID, cmd.Coords[0], cmd.Coords[1], d.adminUsers()); err != nil {
			return none(), err
		}
		return reply(BanClickSuccess()), nil
	case "brush":
		if err := d.Admin.Brush(s.User.UUID, cmd.Coords[0], cmd.Coords[1], uint8(cmd.ColorID), d.Now().Unix()); err != nil {
			return none(), err
		}
		return none(), nil
	case "shutdown":
		if err := d.Admin.Shutdown(s.User.UUID); err != nil {
			return none(), err
		}
		return reply(Disconnecting()), nil
	default:
		return none(), plerrors.ClientError(plerrors.KindValidation, "unknown admin action", nil)
	}
}
