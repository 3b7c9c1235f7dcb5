package mixer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWyhash_KnownSequence(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		seed uint64
		want []uint64
	}{
		{"zero seed", 0, []uint64{0x5c71580fe1214a64, 0xb8e2b01fc24294c8, 0x94a4a556cbbc9f73}},
		{"seed 42", 42, []uint64{0xa1fa6edfffe1eb52, 0x6e7f90729a73709c, 0xd91080a10cf11cfb}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := NewWyhash(tt.seed)
			for i, want := range tt.want {
				assert.Equal(t, want, w.Next(), "word %d", i)
			}
		})
	}
}

func TestWyhash_IndependentStates(t *testing.T) {
	t.Parallel()
	a := NewWyhash(7)
	b := NewWyhash(7)

	// Advancing one state must not affect the other.
	first := a.Next()
	a.Next()
	assert.Equal(t, first, b.Next())
}

func TestXoshiro256_KnownSequence(t *testing.T) {
	t.Parallel()
	x := NewXoshiro256([4]uint64{1, 2, 3, 4})
	want := []uint64{11520, 0, 1509978240, 1215971899390074240}
	for i, w := range want {
		assert.Equal(t, w, x.Next(), "word %d", i)
	}
}

func TestXoshiro256_ZeroStateReplaced(t *testing.T) {
	t.Parallel()
	x := NewXoshiro256([4]uint64{})
	var nonZero bool
	for i := 0; i < 8; i++ {
		if x.Next() != 0 {
			nonZero = true
		}
	}
	assert.True(t, nonZero, "all-zero state must not be used as-is")
}

func TestState_Salt(t *testing.T) {
	t.Parallel()
	s := State{Data: NewWyhash(1), Wide: NewXoshiro256([4]uint64{1, 2, 3, 4})}
	ref := State{Data: NewWyhash(1), Wide: NewXoshiro256([4]uint64{1, 2, 3, 4})}

	assert.Equal(t, ref.Data.Next(), s.Salt(true))
	assert.Equal(t, ref.Wide.Next(), s.Salt(false))
}

func TestBitHelpers(t *testing.T) {
	t.Parallel()
	const v = uint64(0x0102030405060708)

	assert.Equal(t, uint64(0x0807060504030201), ByteSwap64(v))
	assert.Equal(t, uint64(0x0506070801020304), SwapHalves32(v))
	assert.Equal(t, uint64(0x0304010207080506), SwapQuarters16(v))
	assert.Equal(t, uint64(0x0201040306050807), SwapOctets8(v))
	assert.Equal(t, uint64(0x8000000000000000), BitReverse64(1))
}

func TestBitHelpers_Involutions(t *testing.T) {
	t.Parallel()
	w := NewWyhash(99)
	for i := 0; i < 64; i++ {
		v := w.Next()
		assert.Equal(t, v, ByteSwap64(ByteSwap64(v)))
		assert.Equal(t, v, BitReverse64(BitReverse64(v)))
		assert.Equal(t, v, SwapHalves32(SwapHalves32(v)))
		assert.Equal(t, v, SwapQuarters16(SwapQuarters16(v)))
		assert.Equal(t, v, SwapOctets8(SwapOctets8(v)))
	}
}

func BenchmarkWyhash(b *testing.B) {
	w := NewWyhash(1)
	var sink uint64
	for i := 0; i < b.N; i++ {
		sink ^= w.Next()
	}
	_ = sink
}

func BenchmarkXoshiro256(b *testing.B) {
	x := NewXoshiro256([4]uint64{1, 2, 3, 4})
	var sink uint64
	for i := 0; i < b.N; i++ {
		sink ^= x.Next()
	}
	_ = sink
}
