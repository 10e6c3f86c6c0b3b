package synthetic

import (
	crand "crypto/rand"
	"encoding/binary"

	"golang.org/x/exp/rand"
)

// NewRand returns a generator over a PCG source seeded with seed. Each
// generation call should own its generator; *rand.Rand is not safe for
// concurrent use.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// RandomSeed draws a seed from the operating system entropy pool
func RandomSeed() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		panic("synthetic: reading entropy: " + err.Error())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// DeriveSeed mixes a base seed with a job index (splitmix64) so parallel
// jobs of one batch get decorrelated, reproducible streams.
func DeriveSeed(base uint64, index int) uint64 {
	z := base + uint64(index+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
