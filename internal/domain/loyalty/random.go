package loyalty

import (
	"encoding/binary"
	"math/rand/v2"

	"github.com/google/uuid"
)

// RandomSource supplies the randomness used for synthetic ledger activity.
// *rand.Rand from math/rand/v2 satisfies it.
type RandomSource interface {
	// IntN returns a value in [0, n). n is always > 0.
	IntN(n int) int
}

// NewSeededSource returns an independent source for one customer. The same
// (seed, customerID) pair always yields the same sequence.
func NewSeededSource(seed uint64, customerID uuid.UUID) RandomSource {
	return rand.New(rand.NewPCG(seed, binary.BigEndian.Uint64(customerID[8:])^binary.BigEndian.Uint64(customerID[:8])))
}

// between draws uniformly from the inclusive range [min, max]
func between(r RandomSource, min, max int) int {
	if max <= min {
		return min
	}
	return min + r.IntN(max-min+1)
}
