package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/brinehollow/placewall/internal/model"
)

// Request type bytes for the binary framing (SPEC_FULL.md §6). Only the
// handlers that have a natural fixed-size binary encoding get one;
// initialAuth/auth/setUsername/admin_cmd are JSON-only, per the original
// protocol's text-command surface.
const (
	ReqGetCanvas   byte = 1
	ReqPostTile    byte = 2
	ReqGetTileInfo byte = 3
	ReqGetColors   byte = 4
)

// Response type bytes, matching the RES_* kinds in SPEC_FULL.md §6.
const (
	ResCanvas        byte = 1
	ResTileUpdate    byte = 2
	ResUserCount     byte = 3
	ResTileIncrement byte = 4
	ResColorList     byte = 5
)

const binaryHeaderLen = 1 + 36 + 2 + 2 + 2 // type + uuid + x + y + color/len

// BinaryRequest is the decoded fixed-header binary frame.
type BinaryRequest struct {
	Type         byte
	UserID       string
	X, Y         uint16
	ColorIDOrLen uint16
}

// DecodeBinaryRequest parses `[u8 type][36 bytes uuid][u16 x][u16 y][u16 color_id_or_len]`.
func DecodeBinaryRequest(frame []byte) (BinaryRequest, error) {
	if len(frame) < binaryHeaderLen {
		return BinaryRequest{}, fmt.Errorf("binary frame too short: %d bytes", len(frame))
	}
	return BinaryRequest{
		Type:         frame[0],
		UserID:       string(frame[1:37]),
		X:            binary.BigEndian.Uint16(frame[37:39]),
		Y:            binary.BigEndian.Uint16(frame[39:41]),
		ColorIDOrLen: binary.BigEndian.Uint16(frame[41:43]),
	}, nil
}

// EncodeCanvas builds a RES_CANVAS frame from an already zlib-compressed
// color plane.
func EncodeCanvas(compressed []byte) []byte {
	out := make([]byte, 1+len(compressed))
	out[0] = ResCanvas
	copy(out[1:], compressed)
	return out
}

// EncodeTileUpdate builds a RES_TILE_UPDATE frame: u8 color_id, u16 pad,
// u32 index = x + y*edgeLength.
func EncodeTileUpdate(colorID uint8, x, y, edgeLength int) []byte {
	out := make([]byte, 1+1+2+4)
	out[0] = ResTileUpdate
	out[1] = colorID
	binary.BigEndian.PutUint16(out[2:4], 0)
	binary.BigEndian.PutUint32(out[4:8], uint32(x+y*edgeLength))
	return out
}

// EncodeUserCount builds a RES_USER_COUNT frame: u16 count.
func EncodeUserCount(count int) []byte {
	out := make([]byte, 1+2)
	out[0] = ResUserCount
	binary.BigEndian.PutUint16(out[1:3], uint16(count))
	return out
}

// EncodeTileIncrement builds a RES_TILE_INCREMENT frame: u8 amount.
func EncodeTileIncrement(amount uint8) []byte {
	return []byte{ResTileIncrement, amount}
}

// EncodeColorList builds a RES_COLOR_LIST frame: an array of
// {u8 R, u8 G, u8 B, u16 ID}.
func EncodeColorList(palette []model.PaletteEntry) []byte {
	out := make([]byte, 1+len(palette)*5)
	out[0] = ResColorList
	for i, c := range palette {
		off := 1 + i*5
		out[off] = c.R
		out[off+1] = c.G
		out[off+2] = c.B
		binary.BigEndian.PutUint16(out[off+3:off+5], c.ID)
	}
	return out
}
