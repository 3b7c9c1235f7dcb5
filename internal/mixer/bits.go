package mixer

import "math/bits"

// ByteSwap64 reverses the byte order of v.
func ByteSwap64(v uint64) uint64 {
	return bits.ReverseBytes64(v)
}

// BitReverse64 reverses the bit order of v.
func BitReverse64(v uint64) uint64 {
	return bits.Reverse64(v)
}

// SwapHalves32 exchanges the high and low 32-bit halves of v.
func SwapHalves32(v uint64) uint64 {
	return v>>32 | v<<32
}

// SwapQuarters16 exchanges adjacent 16-bit quarters of v.
func SwapQuarters16(v uint64) uint64 {
	return (v&0xFFFF0000FFFF0000)>>16 | (v&0x0000FFFF0000FFFF)<<16
}

// SwapOctets8 exchanges adjacent bytes of v.
func SwapOctets8(v uint64) uint64 {
	return (v&0xFF00FF00FF00FF00)>>8 | (v&0x00FF00FF00FF00FF)<<8
}
