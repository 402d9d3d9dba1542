package search

import (
	"github.com/cespare/xxhash"

	"github.com/wricardo/fibtiles/game/engine"
)

// maxCacheEntries bounds a single branch's table; it is cleared when full.
const maxCacheEntries = 1 << 20

// transpositionCache memoises max-node values keyed by board contents and
// remaining depth. Each root branch owns one, so it needs no locking.
type transpositionCache struct {
	entries map[uint64]float64
	buf     []byte
}

func newTranspositionCache() *transpositionCache {
	return &transpositionCache{entries: make(map[uint64]float64)}
}

// key hashes the sequence position of every cell plus the depth
func (c *transpositionCache) key(b engine.Board, depth int) uint64 {
	c.buf = c.buf[:0]
	for _, row := range b {
		for _, v := range row {
			c.buf = append(c.buf, byte(engine.TileIndex(v)+1))
		}
	}
	c.buf = append(c.buf, byte(b.Size()), byte(depth))
	return xxhash.Sum64(c.buf)
}

func (c *transpositionCache) get(key uint64) (float64, bool) {
	v, ok := c.entries[key]
	return v, ok
}

func (c *transpositionCache) put(key uint64, v float64) {
	if len(c.entries) >= maxCacheEntries {
		clear(c.entries)
	}
	c.entries[key] = v
}
