// Package mixer implements the fast non-cryptographic generators that feed
// the buffer pool: a wyhash-style 64-bit generator and xoshiro256**.
//
// None of the generators are safe for concurrent use. Callers serialize access
// with the lock that guards the state's role (see pool.Pool).
package mixer

import "math/bits"

const (
	wyIncrement = 0x60bee2bee120fc15
	wyMul1      = 0xa3b195354a39b70d
	wyMul2      = 0x1b03738712fad5c9
)

// Wyhash is a 64-bit additive-mix generator.
// https://lemire.me/blog/2019/03/19/the-fastest-conventional-random-number-generator-that-can-pass-big-crush/
type Wyhash struct {
	x uint64
}

// NewWyhash returns a generator starting at the given state.
func NewWyhash(seed uint64) Wyhash {
	return Wyhash{x: seed}
}

// Next advances the state and returns the next word.
func (w *Wyhash) Next() uint64 {
	w.x += wyIncrement
	hi, lo := bits.Mul64(w.x, wyMul1)
	m1 := hi ^ lo
	hi, lo = bits.Mul64(m1, wyMul2)
	return hi ^ lo
}

// Xoshiro256 is the four-word xoshiro256** generator.
// https://prng.di.unimi.it/
type Xoshiro256 struct {
	s [4]uint64
}

// nonZeroFill replaces an all-zero xoshiro state, which would only ever
// produce zeros.
const nonZeroFill = 0x9e3779b97f4a7c15

// NewXoshiro256 returns a generator with the given state. An all-zero state
// is replaced with a fixed non-zero one.
func NewXoshiro256(s [4]uint64) Xoshiro256 {
	if s[0]|s[1]|s[2]|s[3] == 0 {
		s[0] = nonZeroFill
	}
	return Xoshiro256{s: s}
}

// Next advances the state and returns the next word.
func (x *Xoshiro256) Next() uint64 {
	result := bits.RotateLeft64(x.s[1]*5, 7) * 9
	t := x.s[1] << 17

	x.s[2] ^= x.s[0]
	x.s[3] ^= x.s[1]
	x.s[1] ^= x.s[2]
	x.s[0] ^= x.s[3]

	x.s[2] ^= t
	x.s[3] = bits.RotateLeft64(x.s[3], 45)

	return result
}

// State groups every generator the pool needs.
//
// Data feeds buffer contents. Internal decides placement inside a refresh
// (salt coins, per-position keying, shuffle selectors) so that delivered bytes
// are never drawn from the stream that picks internal positions. Selector
// picks acquisition start indices; it is separate from Internal because
// acquisition and refresh run under different locks.
type State struct {
	Data     Wyhash
	Internal Wyhash
	Selector Wyhash
	Wide     Xoshiro256
}

// Salt draws one word from either Data or Wide depending on coin.
func (s *State) Salt(coin bool) uint64 {
	if coin {
		return s.Data.Next()
	}
	return s.Wide.Next()
}
