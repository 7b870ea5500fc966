package molecule

import "math/bits"

// Tanimoto returns |A∩B| / |A∪B| over the set bits of two fingerprints. It is
// 0 when either side is nil, when the widths differ and when both are empty.
func Tanimoto(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.NumBits != b.NumBits || len(a.Bits) != len(b.Bits) {
		return 0
	}
	inter, union := 0, 0
	for i := range a.Bits {
		inter += bits.OnesCount8(a.Bits[i] & b.Bits[i])
		union += bits.OnesCount8(a.Bits[i] | b.Bits[i])
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
