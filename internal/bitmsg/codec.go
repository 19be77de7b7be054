// Package bitmsg implements the bit-interval message codec (spec
// component C5): packing an arbitrary [p,q] sub-range of a bit vector into
// a 64-bit-aligned wire message carrying (glob_first, glob_last, bits...),
// and the inverse on receive. Grounded on
// original_source/distwt/include/distwt/mpi/bit_vector.hpp's
// encode_bv_interval_msg/decode_bv_interval_msg.
package bitmsg

import "github.com/pdinklag/distwt-sub000/internal/bitvec"

// EncodeInterval packs bv's bits [p,q] (inclusive) into a flat []uint64
// wire payload: word 0 is glob_first, word 1 is glob_last, and the
// remaining ceil((q-p+1)/64) words hold the bits themselves, word k
// holding bit positions [64k, 64k+63] of the interval — the same
// bit-within-word convention bitvec.Vector already uses internally, so no
// repacking is needed beyond re-basing the bit offset to 0.
func EncodeInterval(bv *bitvec.Vector, p, q int, globFirst, globLast uint64) []uint64 {
	n := q - p + 1
	nw := (n + 63) / 64
	out := make([]uint64, 2+nw)
	out[0] = globFirst
	out[1] = globLast
	for i := 0; i < n; i++ {
		if bv.Get(p + i) {
			out[2+i/64] |= uint64(1) << uint(i%64)
		}
	}
	return out
}

// DecodeInterval is the inverse of EncodeInterval: it writes the payload's
// bits into target, computing the local write offset as
// glob_first - workerBase (the receiving worker's own global bit-index
// base), per spec.md §4.5.
func DecodeInterval(msg []uint64, target *bitvec.Vector, workerBase int) (globFirst, globLast uint64) {
	globFirst, globLast = msg[0], msg[1]
	n := int(globLast-globFirst) + 1
	localOffs := int(globFirst) - workerBase
	words := msg[2:]
	for i := 0; i < n; i++ {
		bit := (words[i/64]>>uint(i%64))&1 != 0
		target.Set(localOffs+i, bit)
	}
	return
}

// Len returns the number of bits a wire payload of this shape describes.
func Len(msg []uint64) int {
	return int(msg[1]-msg[0]) + 1
}
