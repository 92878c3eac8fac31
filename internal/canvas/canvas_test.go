package canvas

import (
	"bytes"
	"compress/zlib"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brinehollow/placewall/internal/model"
	"github.com/brinehollow/placewall/internal/store"
)

func testPalette() Palette {
	return Palette{
		{ID: 0, R: 255, G: 255, B: 255},
		{ID: 1, R: 0, G: 0, B: 0},
		{ID: 2, R: 255, G: 0, B: 0},
	}
}

func TestLoad_FillsFreshCanvas(t *testing.T) {
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	c, err := Load(context.Background(), s, 8, testPalette(), 0)
	require.NoError(t, err)
	require.Equal(t, 8, c.EdgeLength)
	require.Equal(t, uint8(0), c.TileAt(3, 3).ColorID)
}

func TestLoad_RehydratesExistingCanvas(t *testing.T) {
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.FillDefault(context.Background(), 4, 1))
	require.NoError(t, s.UpdateTilesBatch(context.Background(), []model.Delta{
		{X: 2, Y: 1, Tile: model.Tile{ColorID: 2, LastModifier: "u1", PlaceTime: 42}},
	}))

	c, err := Load(context.Background(), s, 99, testPalette(), 0)
	require.NoError(t, err)
	require.Equal(t, 4, c.EdgeLength)
	require.Equal(t, uint8(2), c.TileAt(2, 1).ColorID)
}

func TestPlace_RejectsOutOfBounds(t *testing.T) {
	c := &Canvas{EdgeLength: 4, tiles: make([]model.Tile, 16), palette: testPalette()}
	_, err := c.Place(10, 10, 1, "u1", 1)
	require.Error(t, err)
}

func TestPlace_RejectsInvalidColor(t *testing.T) {
	c := &Canvas{EdgeLength: 4, tiles: make([]model.Tile, 16), palette: testPalette()}
	_, err := c.Place(1, 1, 200, "u1", 1)
	require.Error(t, err)
}

func TestPlace_AppendsDeltaAndMarksDirty(t *testing.T) {
	c := &Canvas{EdgeLength: 4, tiles: make([]model.Tile, 16), palette: testPalette()}
	require.False(t, c.Dirty())

	tile, err := c.Place(1, 1, 2, "u1", 55)
	require.NoError(t, err)
	require.Equal(t, uint8(2), tile.ColorID)
	require.True(t, c.Dirty())

	drained := c.DrainDelta()
	require.Len(t, drained, 1)
	require.Equal(t, 1, drained[0].X)
	require.False(t, c.Dirty())
}

func TestRestore_RequeuesDroppedDeltas(t *testing.T) {
	c := &Canvas{EdgeLength: 4, tiles: make([]model.Tile, 16), palette: testPalette()}
	_, err := c.Place(0, 0, 1, "u1", 1)
	require.NoError(t, err)

	drained := c.DrainDelta()
	require.False(t, c.Dirty())

	c.Restore(drained)
	require.True(t, c.Dirty())
	require.Len(t, c.DrainDelta(), 1)
}

func TestDeltaHistoryAt_NewestFirstAndFiltered(t *testing.T) {
	c := &Canvas{EdgeLength: 4, tiles: make([]model.Tile, 16), palette: testPalette()}
	_, err := c.Place(1, 1, 1, "u1", 10)
	require.NoError(t, err)
	_, err = c.Place(2, 2, 1, "u1", 11)
	require.NoError(t, err)
	_, err = c.Place(1, 1, 2, "u2", 12)
	require.NoError(t, err)

	hist := c.DeltaHistoryAt(1, 1)
	require.Len(t, hist, 2)
	require.Equal(t, int64(12), hist[0].Tile.PlaceTime)
	require.Equal(t, int64(10), hist[1].Tile.PlaceTime)
}

func TestRefreshSnapshot_RoundTripsColorPlane(t *testing.T) {
	c := &Canvas{EdgeLength: 2, tiles: make([]model.Tile, 4), palette: testPalette()}
	_, err := c.Place(0, 0, 2, "u1", 1)
	require.NoError(t, err)

	require.NoError(t, c.RefreshSnapshot())
	blob, gen := c.Snapshot()
	require.Equal(t, uint64(1), gen)

	r, err := zlib.NewReader(bytes.NewReader(blob))
	require.NoError(t, err)
	decoded, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, c.ColorPlane(), decoded)
}
