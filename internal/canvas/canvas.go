// Package canvas is the shared grid from SPEC_FULL.md §4.3: the tile array,
// palette, dirty delta log, and compressed snapshot cache.
package canvas

import (
	"context"
	"math"
	"sync"

	"github.com/brinehollow/placewall/internal/model"
	"github.com/brinehollow/placewall/internal/plerrors"
	"github.com/brinehollow/placewall/internal/store"
)

// Palette is the ordered list of permitted colors, indexed by position.
type Palette []model.PaletteEntry

func (p Palette) Valid(colorID uint8) bool {
	return int(colorID) < len(p)
}

// Canvas owns the edge_length × edge_length tile array. Its methods are
// called concurrently from every connection's read loop, the admin plane,
// and the background workers, so mu guards the tiles, palette, delta log,
// and dirty flag; the snapshot cache has its own mutex (see snapshot.go).
type Canvas struct {
	mu         sync.Mutex // protects palette/tiles/delta/dirty
	EdgeLength int
	palette    Palette
	tiles      []model.Tile // row-major, index = x + y*EdgeLength
	delta      []model.Delta
	dirty      bool

	snapshot snapshotCache
}

// Load hydrates a Canvas from the store: if empty, fills
// newDBCanvasSize² tiles with the default palette index in one transaction;
// otherwise derives EdgeLength from the row count and loads every tile.
func Load(ctx context.Context, s *store.Store, newDBCanvasSize int, palette Palette, defaultColorID uint8) (*Canvas, error) {
	count, err := s.CountTiles(ctx)
	if err != nil {
		return nil, plerrors.Wrap(err, "counting existing tiles")
	}

	c := &Canvas{palette: palette}

	if count == 0 {
		if err := s.FillDefault(ctx, newDBCanvasSize, defaultColorID); err != nil {
			return nil, plerrors.Wrap(err, "filling new canvas")
		}
		c.EdgeLength = newDBCanvasSize
		c.tiles = make([]model.Tile, newDBCanvasSize*newDBCanvasSize)
		for i := range c.tiles {
			c.tiles[i].ColorID = defaultColorID
		}
		return c, nil
	}

	edge := int(math.Sqrt(float64(count)))
	if edge*edge != count {
		return nil, plerrors.Newf("tile count %d is not a perfect square", count)
	}
	c.EdgeLength = edge
	c.tiles = make([]model.Tile, edge*edge)

	rows, err := s.LoadAllTiles(ctx)
	if err != nil {
		return nil, plerrors.Wrap(err, "loading tiles")
	}
	for coord, tile := range rows {
		x, y := coord[0], coord[1]
		c.tiles[x+y*edge] = tile
	}
	return c, nil
}

// SetPalette swaps the active palette, e.g. on a config reload.
func (c *Canvas) SetPalette(p Palette) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.palette = p
}

// Palette returns the currently active palette.
func (c *Canvas) Palette() Palette {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.palette
}

// InBounds reports whether (x, y) addresses a real cell.
func (c *Canvas) InBounds(x, y int) bool {
	return x >= 0 && x < c.EdgeLength && y >= 0 && y < c.EdgeLength
}

func (c *Canvas) index(x, y int) int { return x + y*c.EdgeLength }

// TileAt returns a copy of the tile at (x, y). Caller must have already
// range-checked via InBounds.
func (c *Canvas) TileAt(x, y int) model.Tile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tiles[c.index(x, y)]
}

// ValidatePlacement checks coordinates and color without mutating
// anything — used for shadow-banned placements, which must validate
// exactly like a real placement but never touch the canvas (SPEC_FULL.md §7).
func (c *Canvas) ValidatePlacement(x, y int, colorID uint8) error {
	if !c.InBounds(x, y) {
		return plerrors.ClientError(plerrors.KindValidation, "invalid coordinates", nil)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.palette.Valid(colorID) {
		return plerrors.ClientError(plerrors.KindValidation, "invalid colorID", nil)
	}
	return nil
}

// Place validates and applies one tile placement, appends the delta, marks
// the canvas dirty, and returns the new tile so the caller can broadcast.
// It does not itself check quota or rate limits — SPEC_FULL.md §4.3 assumes
// the caller (the postTile handler) has already admitted the actor.
func (c *Canvas) Place(x, y int, colorID uint8, actor string, placeTime int64) (model.Tile, error) {
	if !c.InBounds(x, y) {
		return model.Tile{}, plerrors.ClientError(plerrors.KindValidation, "invalid coordinates", nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.palette.Valid(colorID) {
		return model.Tile{}, plerrors.ClientError(plerrors.KindValidation, "invalid colorID", nil)
	}

	tile := model.Tile{ColorID: colorID, PlaceTime: placeTime, LastModifier: actor}
	c.tiles[c.index(x, y)] = tile
	c.delta = append(c.delta, model.Delta{X: x, Y: y, Tile: tile})
	c.dirty = true
	return tile, nil
}

// Dirty reports whether any placement is unpersisted.
func (c *Canvas) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// DrainDelta atomically swaps the delta log aside and clears the dirty flag,
// returning what was pending so the canvas-flush worker can write it in one
// transaction (SPEC_FULL.md §4.8). On a caller-reported failure the dropped
// deltas are pushed back to the front so the next tick retries them.
func (c *Canvas) DrainDelta() []model.Delta {
	c.mu.Lock()
	defer c.mu.Unlock()
	drained := c.delta
	c.delta = nil
	c.dirty = false
	return drained
}

// Restore pushes deltas back onto the pending log after a failed flush, so
// the canvas stays dirty and the next tick retries — the Invariant in
// SPEC_FULL.md §3 that delta is a superset of every unpersisted change.
func (c *Canvas) Restore(deltas []model.Delta) {
	if len(deltas) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delta = append(deltas, c.delta...)
	c.dirty = true
}

// ColorPlane copies the current color-id plane, row-major, one byte per
// cell — the input to the snapshot compressor (SPEC_FULL.md §4.3/§6).
func (c *Canvas) ColorPlane() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	plane := make([]byte, len(c.tiles))
	for i, t := range c.tiles {
		plane[i] = t.ColorID
	}
	return plane
}

// LastModifierAt returns the uuid that last placed the tile at (x, y), used
// by getTileInfo and ban_click.
func (c *Canvas) LastModifierAt(x, y int) (string, int64, error) {
	if !c.InBounds(x, y) {
		return "", 0, plerrors.ClientError(plerrors.KindValidation, "invalid coordinates", nil)
	}
	t := c.TileAt(x, y)
	return t.LastModifier, t.PlaceTime, nil
}

// maxTileHistory bounds getTileHistory's reply — the delta log is
// best-effort and only surfaces what hasn't been flushed yet.
const maxTileHistory = 32

// DeltaHistoryAt returns the still-pending delta log entries touching
// (x, y), newest first, capped at maxTileHistory. Supplemental
// getTileHistory handler support (SPEC_FULL.md §4.5).
func (c *Canvas) DeltaHistoryAt(x, y int) []model.Delta {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []model.Delta
	for i := len(c.delta) - 1; i >= 0 && len(out) < maxTileHistory; i-- {
		d := c.delta[i]
		if d.X == x && d.Y == y {
			out = append(out, d)
		}
	}
	return out
}
