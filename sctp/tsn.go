package sctp

// tsnGT reports whether a is strictly ahead of b in TSN sequence space,
// using the half-space rule from spec.md §3: a and b are compared modulo
// 2^32, and a is considered "greater" when the forward distance from b to
// a is less than 2^31. Never compare raw uint32s directly; TSNs wrap.
func tsnGT(a, b uint32) bool {
	return a != b && a-b < 1<<31
}

// tsnGTE is the non-strict counterpart of tsnGT.
func tsnGTE(a, b uint32) bool {
	return a == b || tsnGT(a, b)
}

// ssnGT is the 16-bit analogue of tsnGT for stream_seq values (spec.md
// §3). The reassembler does not call it: it matches stream_seq against
// its expected value by equality.
func ssnGT(a, b uint16) bool {
	return a != b && a-b < 1<<15
}
