// Package nodewise implements node-based construction (spec component
// C7): a local, sequential, prefix-counting build of every bit vector in a
// subtree, keyed by node id. It needs no communication and is used both as
// a standalone construction strategy and as the sequential fallback a
// parallel-split recursion (package parsplit) switches to once its active
// communicator shrinks to a single worker.
//
// Ported from original_source/distwt/include/distwt/effective_alphabet.hpp's
// wt_pc, generalized (as the original already is) to build an arbitrary
// subtree rooted at any node id rather than only the whole tree.
package nodewise

import (
	"math/bits"

	"github.com/pdinklag/distwt-sub000/internal/bitvec"
	"github.com/pdinklag/distwt-sub000/internal/wavelet"
)

// Build computes the node-keyed bit vectors for the subtree rooted at
// rootNode (1-indexed, as throughout this module) with subtree height h,
// over the local symbols in text. Symbols are effective symbols in the
// whole tree's code space (rootLevel+h bits); every symbol in text must
// fall inside rootNode's code range. Every node of the subtree gets an
// entry, with an empty bit vector where no symbol reaches it.
func Build[S wavelet.Symbol](rootNode wavelet.NodeID, h int, text []S) map[wavelet.NodeID]*bitvec.Vector {
	out := make(map[wavelet.NodeID]*bitvec.Vector)
	if h == 0 {
		return out
	}

	rootLevel := bits.Len(uint(rootNode)) - 1
	rootRank := int(rootNode) - (1 << rootLevel)
	globH := rootLevel + h
	n := len(text)
	sigma := 1 << h

	hist := make([]int, sigma)
	root := bitvec.New(n)
	test := uint64(1) << uint(globH-1-rootLevel)
	for i, c := range text {
		v := int(c) - rootRank*sigma
		b := (uint64(c) & test) != 0
		hist[v]++
		root.Set(i, b)
	}
	out[rootNode] = root

	count := make([]int, sigma/2)
	for level := h - 1; level > 0; level-- {
		numLevelNodes := 1 << level
		globLevel := rootLevel + level
		globOffs := ((1 << level) * int(rootNode))

		newHist := make([]int, numLevelNodes)
		bvs := make([]*bitvec.Vector, numLevelNodes)
		for v := 0; v < numLevelNodes; v++ {
			size := hist[2*v] + hist[2*v+1]
			newHist[v] = size
			bvs[v] = bitvec.New(size)
			count[v] = 0
		}

		rsh := uint(globH - 1 - (globLevel - 1))
		levelTest := uint64(1) << uint(globH-1-globLevel)

		for _, c := range text {
			globV := int(uint64(c) >> rsh)
			v := globV - rootRank*(1<<level)
			pos := count[v]
			count[v]++
			b := (uint64(c) & levelTest) != 0
			bvs[v].Set(pos, b)
		}
		for v := 0; v < numLevelNodes; v++ {
			out[wavelet.NodeID(globOffs+v)] = bvs[v]
		}
		hist = newHist
	}
	return out
}
