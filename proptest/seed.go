package proptest

import (
	"encoding/binary"
	"time"

	"golang.org/x/crypto/blake2b"
)

// DerivedSeed returns a stable seed for a property name, so derandomized
// runs draw the same examples on every machine.
func DerivedSeed(name string) uint64 {
	sum := blake2b.Sum256([]byte(name))
	if seed := binary.BigEndian.Uint64(sum[:8]); seed != 0 {
		return seed
	}
	return 1
}

// resolveSeed picks the seed for a run: an explicit seed first, then the
// name-derived seed when derandomized, otherwise the clock.
func resolveSeed(name string, s Settings) uint64 {
	if s.Seed != 0 {
		return s.Seed
	}
	if s.Derandomize {
		return DerivedSeed(name)
	}
	if seed := uint64(time.Now().UnixNano()); seed != 0 {
		return seed
	}
	return 1
}
