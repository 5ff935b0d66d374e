package services

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
)

// RandomSource yields uniformly distributed integers in [0, n).
// *rand.Rand from math/rand/v2 satisfies it.
type RandomSource interface {
	IntN(n int) int
}

// pcgStream fixes the PCG increment so a draw is fully described by its seed.
const pcgStream = 0x9e3779b97f4a7c15

// NewSeededSource returns a deterministic source for seed.
func NewSeededSource(seed uint64) RandomSource {
	return rand.New(rand.NewPCG(seed, pcgStream))
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
