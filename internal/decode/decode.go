// Package decode rebuilds the original symbol sequence from a persisted
// wavelet tree or wavelet matrix, the external "verification tool
// collaborator" spec.md §1 names as deliberately out of scope for the core
// engine's concern but which SPEC_FULL.md still gives a concrete home
// (cmd/distwt-verify) since the spec's round-trip property (§8) needs
// something to check it against. It trades asymptotic efficiency (no rank
// structure, just linear scans) for the short, obviously-correct
// implementation appropriate to a thin checking tool, not a production
// query path — compressed rank/select is an explicit Non-goal (spec.md §1).
package decode

import (
	"fmt"

	"github.com/pdinklag/distwt-sub000/internal/bitvec"
	"github.com/pdinklag/distwt-sub000/internal/histogram"
	"github.com/pdinklag/distwt-sub000/internal/persist"
	"github.com/pdinklag/distwt-sub000/internal/wavelet"
)

// WorkerSizes returns the per-worker bit counts persist.WriteLevel used:
// sizePerWorker = ceil(n/p) for every worker but the last, which holds
// whatever remains.
func WorkerSizes(n, p int) []int {
	w := (n + p - 1) / p
	out := make([]int, p)
	for r := 0; r < p; r++ {
		lo := r * w
		if lo > n {
			lo = n
		}
		hi := lo + w
		if hi > n {
			hi = n
		}
		out[r] = hi - lo
	}
	return out
}

// LoadLevels reads every worker's slice of every level file and
// concatenates them in rank order, reconstructing each level's full
// N-bit global bit vector.
func LoadLevels(base string, height, n, p int) ([]*bitvec.Vector, error) {
	sizes := WorkerSizes(n, p)
	levels := make([]*bitvec.Vector, height)
	for level := 0; level < height; level++ {
		parts := make([]*bitvec.Vector, p)
		for r := 0; r < p; r++ {
			bv, err := persist.ReadLevel(base, level, r, sizes[r])
			if err != nil {
				return nil, fmt.Errorf("decode: read level %d rank %d: %w", level, r, err)
			}
			parts[r] = bv
		}
		levels[level] = bitvec.Concat(parts...)
	}
	return levels, nil
}

func rank1(v *bitvec.Vector, lo, hi int) int {
	n := 0
	for i := lo; i < hi; i++ {
		if v.Get(i) {
			n++
		}
	}
	return n
}

// Tree decodes the effective-symbol sequence of a (non-matrix) wavelet
// tree: descending from the root, a 0 bit routes to the left child's
// segment (preceded zeros within the node), a 1 bit to the right child's
// (preceded ones), bottoming out at a singleton alphabet interval whose
// index is the symbol's effective rank.
func Tree(levels []*bitvec.Vector, shape wavelet.Shape) []uint32 {
	n := shape.N
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		idx := 0 // node index within its level, canonical order
		pos := i // position within the node's own segment
		for level := 0; level < shape.Height; level++ {
			a, _ := shape.NodeInterval(level, wavelet.NodeID((1<<level)+idx))
			nodeStart := int(shape.C[a])
			p := nodeStart + pos
			bv := levels[level]
			bit := bv.Get(p)
			ones := rank1(bv, nodeStart, p)
			zeros := pos - ones
			if bit {
				idx = 2*idx + 1
				pos = ones
			} else {
				idx = 2 * idx
				pos = zeros
			}
		}
		out[i] = uint32(idx)
	}
	return out
}

// Matrix decodes the effective-symbol sequence of a wavelet matrix: at
// each level the whole (already stably rearranged) level array is
// addressed directly via the per-level splitter z, with no node-boundary
// bookkeeping — the defining difference from Tree.
func Matrix(levels []*bitvec.Vector, z []uint64) []uint32 {
	if len(levels) == 0 {
		return nil
	}
	n := levels[0].Len()
	h := len(levels)
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		pos := i
		var sym uint32
		for level := 0; level < h; level++ {
			bv := levels[level]
			bit := bv.Get(pos)
			sym <<= 1
			if bit {
				sym |= 1
				pos = int(z[level]) + rank1(bv, 0, pos)
			} else {
				pos = pos - rank1(bv, 0, pos)
			}
		}
		out[i] = sym
	}
	return out
}

// ToOriginal maps a sequence of effective ranks back to original symbol
// values via the sorted histogram entries Compute/ByteFast produced.
func ToOriginal(eff []uint32, entries []histogram.Entry) []uint32 {
	out := make([]uint32, len(eff))
	for i, e := range eff {
		out[i] = entries[e].Symbol
	}
	return out
}
