package engine

import (
	"encoding/binary"

	"lukechampine.com/frand"
)

// RNG is the randomness used to place spawned tiles. *frand.RNG satisfies it.
type RNG interface {
	Intn(n int) int
	Float64() float64
}

// NewRNG returns a cryptographically seeded generator
func NewRNG() RNG {
	return frand.New()
}

// NewSeededRNG returns a reproducible generator for the given seed
func NewSeededRNG(seed int64) RNG {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:8], uint64(seed))
	copy(key[8:], "fibtiles-spawn-stream-v1")
	return frand.NewCustom(key[:], 1024, 12)
}
