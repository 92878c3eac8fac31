package canvas

import (
	"bytes"
	"compress/zlib"
	"sync"

	"github.com/brinehollow/placewall/internal/plerrors"
)

// snapshotCache holds the compressed full-canvas blob handed to newly
// connected clients, plus a diagnostic generation counter incremented each
// time it's rebuilt (SPEC_FULL.md §4.3). Separate mutex from Canvas.mu
// because the compressor worker runs on its own tick independent of the
// event loop that mutates tiles.
type snapshotCache struct {
	mu         sync.RWMutex
	compressed []byte
	generation uint64
}

// RefreshSnapshot recompresses the current color plane and swaps it into
// the cache. Called periodically by the snapshot-compressor worker, never
// from the hot placement path.
func (c *Canvas) RefreshSnapshot() error {
	plane := c.ColorPlane()

	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(plane); err != nil {
		w.Close()
		return plerrors.Wrap(err, "compressing canvas snapshot")
	}
	if err := w.Close(); err != nil {
		return plerrors.Wrap(err, "closing snapshot compressor")
	}

	c.snapshot.mu.Lock()
	c.snapshot.compressed = buf.Bytes()
	c.snapshot.generation++
	c.snapshot.mu.Unlock()
	return nil
}

// Snapshot returns the most recently compressed full-canvas blob and the
// generation it was built at. Safe to call concurrently with
// RefreshSnapshot.
func (c *Canvas) Snapshot() ([]byte, uint64) {
	c.snapshot.mu.RLock()
	defer c.snapshot.mu.RUnlock()
	return c.snapshot.compressed, c.snapshot.generation
}
