// Package bitvec implements a word-packed bit vector, the value type shared
// by every wavelet-tree layer (node-keyed and level-keyed alike).
//
// Bits are stored 64 to a word with bit i living at position i%64 of word
// i/64 (least-significant-bit first within a word). This is the same layout
// the bit-interval wire codec (package bitmsg) expects for its payload
// words, so a Vector's backing slice can be handed to the codec without
// repacking; only the on-disk layout (package persist) uses a different,
// big-endian-within-word convention.
package bitvec

import "math/bits"

// Vector is a fixed-length, mutable sequence of bits.
type Vector struct {
	words []uint64
	n     int
}

// New allocates a Vector of length n, all bits cleared.
func New(n int) *Vector {
	return &Vector{words: make([]uint64, numWords(n)), n: n}
}

// FromWords wraps an existing packed word slice as a Vector of length n.
// The caller retains no other reference to words.
func FromWords(words []uint64, n int) *Vector {
	return &Vector{words: words, n: n}
}

func numWords(n int) int {
	return (n + 63) / 64
}

// Len returns the number of bits in the vector.
func (v *Vector) Len() int { return v.n }

// Words exposes the backing storage, one uint64 per 64 bits, bit i at
// position i%64 of word i/64. The final word may have unused high bits.
func (v *Vector) Words() []uint64 { return v.words }

// Get returns the bit at position i.
func (v *Vector) Get(i int) bool {
	return (v.words[i>>6]>>(uint(i)&63))&1 != 0
}

// Set assigns the bit at position i.
func (v *Vector) Set(i int, b bool) {
	w := i >> 6
	mask := uint64(1) << (uint(i) & 63)
	if b {
		v.words[w] |= mask
	} else {
		v.words[w] &^= mask
	}
}

// PopCount returns the number of set bits.
func (v *Vector) PopCount() int {
	total := 0
	full := v.n / 64
	for _, w := range v.words[:full] {
		total += bits.OnesCount64(w)
	}
	if rem := v.n % 64; rem > 0 {
		mask := uint64(1)<<uint(rem) - 1
		total += bits.OnesCount64(v.words[full] & mask)
	}
	return total
}

// Builder appends bits one at a time, growing its backing storage as
// needed. It mirrors the teacher's preference for explicit, allocation-
// aware accumulation over hidden resizing magic.
type Builder struct {
	v *Vector
	i int
}

// NewBuilder prepares a Builder expected to receive exactly n bits.
func NewBuilder(n int) *Builder {
	return &Builder{v: New(n)}
}

// Append pushes one more bit onto the builder.
func (b *Builder) Append(bit bool) {
	b.v.Set(b.i, bit)
	b.i++
}

// Vector finalizes the builder, returning the accumulated bits. The
// builder must not be used again.
func (b *Builder) Vector() *Vector {
	if b.i != b.v.n {
		// Truncate to what was actually written; callers that know the
		// final length up front should prefer New+Set.
		b.v.n = b.i
		b.v.words = b.v.words[:numWords(b.i)]
	}
	return b.v
}

// Slice returns a fresh Vector holding bits [lo, hi) of v.
func (v *Vector) Slice(lo, hi int) *Vector {
	out := New(hi - lo)
	for i := lo; i < hi; i++ {
		out.Set(i-lo, v.Get(i))
	}
	return out
}

// Concat returns a new Vector formed by concatenating parts in order.
func Concat(parts ...*Vector) *Vector {
	total := 0
	for _, p := range parts {
		total += p.Len()
	}
	out := New(total)
	i := 0
	for _, p := range parts {
		for j := 0; j < p.Len(); j++ {
			out.Set(i, p.Get(j))
			i++
		}
	}
	return out
}
