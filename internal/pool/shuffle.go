package pool

import "github.com/mrz1836/entropool/internal/mixer"

// Shuffle variants.
const (
	VariantSwap     = 0
	VariantHalves   = 1
	VariantQuarters = 2
	VariantOctets   = 3
)

// ShuffleParams selects one shuffle pass over the mirrored word pairs of a
// row.
type ShuffleParams struct {
	Variant  int
	Start    int
	Step     int
	SwapHigh bool
	KeepLow  bool
}

// ParamsFrom decodes a 16-bit selector.
//
//	bits 7..8  variant
//	bits 4..5  start offset
//	bits 0..1  step - 1
//	bit  6     byte-swap the value moved to the low index (variant 0)
//	bit  9     copy rather than bit-reverse the value moved to the high index (variant 0)
func ParamsFrom(sel uint16) ShuffleParams {
	return ShuffleParams{
		Variant:  int(sel&0x1C0) >> 7,
		Start:    int(sel&0x38) >> 4,
		Step:     int(sel&3) + 1,
		SwapHigh: sel&0x40 != 0,
		KeepLow:  sel&0x200 != 0,
	}
}

// Shuffle applies one pass to the pairs (i, len(row)-1-i) for
// i = Start, Start+Step, ... below len(row)/2. Variants 1..3 are involutions.
// Variant 0 is an involution only when SwapHigh is false and KeepLow is true.
func Shuffle(row []uint64, sp ShuffleParams) {
	last := len(row) - 1
	half := len(row) / 2
	if sp.Step < 1 {
		sp.Step = 1
	}

	for i := sp.Start; i < half; i += sp.Step {
		j := last - i
		lo, hi := row[i], row[j]

		switch sp.Variant {
		case VariantSwap:
			if sp.SwapHigh {
				hi = mixer.ByteSwap64(hi)
			}
			if !sp.KeepLow {
				lo = mixer.BitReverse64(lo)
			}
			row[i], row[j] = hi, lo
		case VariantHalves:
			row[i], row[j] = mixer.SwapHalves32(lo), mixer.SwapHalves32(hi)
		case VariantQuarters:
			row[i], row[j] = mixer.SwapQuarters16(lo), mixer.SwapQuarters16(hi)
		case VariantOctets:
			row[i], row[j] = mixer.SwapOctets8(lo), mixer.SwapOctets8(hi)
		}
	}
}
