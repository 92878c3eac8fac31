package protocol

import (
	"github.com/brinehollow/placewall/internal/plerrors"
	"github.com/brinehollow/placewall/internal/session"
)

// BinaryResult is the outcome of a binary-framed request: an already
// wire-encoded frame to send (unicast or broadcast), or nothing.
type BinaryResult struct {
	Outcome Outcome
	Frame   []byte
}

// DispatchBinary routes one binary frame. Only the handlers with a natural
// fixed-size encoding are reachable this way (SPEC_FULL.md §6); everything
// else — auth, setUsername, admin_cmd — is JSON-only.
func (d *Dispatcher) DispatchBinary(conn session.Conn, req BinaryRequest) (BinaryResult, error) {
	s, err := d.requireSession(conn)
	if err != nil {
		return BinaryResult{Outcome: OutcomeNone}, err
	}

	switch req.Type {
	case ReqGetCanvas:
		return d.binaryGetCanvas(s)
	case ReqPostTile:
		return d.binaryPostTile(s, conn, req)
	case ReqGetTileInfo:
		return BinaryResult{Outcome: OutcomeNone}, plerrors.ClientError(plerrors.KindValidation, "getTileInfo has no binary reply; use JSON", nil)
	case ReqGetColors:
		return d.binaryGetColors(s)
	default:
		return BinaryResult{Outcome: OutcomeNone}, plerrors.ClientError(plerrors.KindValidation, "unknown binary request type", nil)
	}
}

func (d *Dispatcher) binaryGetCanvas(s *session.Session) (BinaryResult, error) {
	if !s.CanvasLimiter.Allow() {
		return BinaryResult{Outcome: OutcomeNone}, nil
	}
	d.Sessions.Touch(s)
	compressed, _ := d.Canvas.Snapshot()
	return BinaryResult{Outcome: OutcomeReply, Frame: EncodeCanvas(compressed)}, nil
}

func (d *Dispatcher) binaryPostTile(s *session.Session, conn session.Conn, req BinaryRequest) (BinaryResult, error) {
	if !s.TileLimiter.Allow() {
		return BinaryResult{Outcome: OutcomeNone}, nil
	}
	if s.User.RemainingTiles < 1 {
		// Quota exhaustion is a silent drop for binary clients (SPEC_FULL.md §7).
		return BinaryResult{Outcome: OutcomeNone}, nil
	}
	if req.ColorIDOrLen > 255 {
		return BinaryResult{Outcome: OutcomeNone}, plerrors.ClientError(plerrors.KindValidation, "invalid colorID", nil)
	}
	x, y, colorID := int(req.X), int(req.Y), uint8(req.ColorIDOrLen)

	if s.User.IsShadowBanned {
		if err := d.Canvas.ValidatePlacement(x, y, colorID); err != nil {
			return BinaryResult{Outcome: OutcomeNone}, err
		}
		d.Sessions.Touch(s)
		s.User.RemainingTiles--
		s.User.TotalPlaced++
		s.User.ProgressInLevel++
		if s.User.ProgressInLevel >= s.User.TilesToNextLevel {
			s.User.LevelUp()
		}
		frame := EncodeTileUpdate(colorID, x, y, d.Canvas.EdgeLength)
		d.Broadcaster.Unicast(conn, frame)
		return BinaryResult{Outcome: OutcomeNone}, nil
	}

	tile, err := d.Canvas.Place(x, y, colorID, s.User.UUID, d.Now().Unix())
	if err != nil {
		return BinaryResult{Outcome: OutcomeNone}, err
	}
	d.Sessions.Touch(s)

	s.User.RemainingTiles--
	s.User.TotalPlaced++
	s.User.ProgressInLevel++
	if s.User.ProgressInLevel >= s.User.TilesToNextLevel {
		s.User.LevelUp()
	}

	frame := EncodeTileUpdate(tile.ColorID, x, y, d.Canvas.EdgeLength)
	return BinaryResult{Outcome: OutcomeBroadcast, Frame: frame}, nil
}

func (d *Dispatcher) binaryGetColors(s *session.Session) (BinaryResult, error) {
	d.Sessions.Touch(s)
	return BinaryResult{Outcome: OutcomeReply, Frame: EncodeColorList(d.Canvas.Palette())}, nil
}
