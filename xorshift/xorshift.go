// Package xorshift provides the 32-bit xorshift generator used for shuffles,
// random playback and probability gating. A Source plugs into math/rand/v2 so
// callers get IntN, Float64 and Shuffle on top of a reproducible stream.
package xorshift

import "math/rand/v2"

// DefaultSeed is used when a zero seed is given (xorshift never leaves 0).
const DefaultSeed uint32 = 12345

// Source is a xorshift32 generator. It is not safe for concurrent use.
type Source struct {
	state uint32
}

// New returns a source seeded with seed.
func New(seed uint32) *Source {
	s := &Source{}
	s.Seed(seed)
	return s
}

// NewRand wraps a fresh source in a *rand.Rand.
func NewRand(seed uint32) *rand.Rand {
	return rand.New(New(seed))
}

// Seed resets the generator state.
func (s *Source) Seed(seed uint32) {
	if seed == 0 {
		seed = DefaultSeed
	}
	s.state = seed
}

// Uint32 advances the generator and returns the next value.
func (s *Source) Uint32() uint32 {
	x := s.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	s.state = x
	return x
}

// Uint64 implements rand.Source by joining two 32-bit draws.
func (s *Source) Uint64() uint64 {
	hi := uint64(s.Uint32())
	lo := uint64(s.Uint32())
	return hi<<32 | lo
}
