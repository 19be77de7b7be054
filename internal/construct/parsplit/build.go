// Package parsplit implements parallel-split construction (spec component
// C8): BUILD(v) tests the current level's bit, splits the active
// communicator's data and membership in proportion to the 0/1 counts via
// dsplit_str, and recurses independently into the two child nodes over
// their own (now strictly smaller) sub-communicators. Once a
// sub-communicator shrinks to a single worker, the recursion bottoms out
// into the sequential node-based builder (package nodewise).
//
// Ported from original_source/distwt/mpi/dsplit.hpp and spec.md §4.12.
package parsplit

import (
	"github.com/pdinklag/distwt-sub000/internal/bitvec"
	"github.com/pdinklag/distwt-sub000/internal/cluster"
	"github.com/pdinklag/distwt-sub000/internal/construct/nodewise"
	"github.com/pdinklag/distwt-sub000/internal/wavelet"
)

// Build computes the node-keyed bit vectors for the whole tree of height h
// by recursive communicator splitting, starting from the world
// communicator c is already set to. On return, c's active communicator is
// restored to whatever it was on entry.
func Build[S wavelet.Symbol](c *cluster.Cluster, h int, text []S) map[wavelet.NodeID]*bitvec.Vector {
	out := make(map[wavelet.NodeID]*bitvec.Vector)
	if h > 0 {
		build(c, wavelet.NodeID(1), 0, h, text, out)
	}
	return out
}

func build[S wavelet.Symbol](c *cluster.Cluster, v wavelet.NodeID, level, h int, text []S, out map[wavelet.NodeID]*bitvec.Vector) {
	if c.Size() == 1 {
		for node, bv := range nodewise.Build(v, h-level, text) {
			out[node] = bv
		}
		return
	}

	test := uint64(1) << uint(h-1-level)
	local := bitvec.New(len(text))
	for i, sym := range text {
		local.Set(i, uint64(sym)&test != 0)
	}
	out[v] = local

	if level+1 >= h {
		// v's children are leaves; nothing further to build on this branch.
		return
	}

	predicate := func(sym S) bool { return uint64(sym)&test != 0 }
	newData, targets0 := dsplitStr(c, text, predicate, int(v))

	left := targets0
	right := c.Size() - targets0
	switch {
	case left == 0:
		// every item routed right: stay on the full communicator and
		// descend straight into the right child.
		build(c, 2*v+1, level+1, h, newData, out)
	case right == 0:
		build(c, 2*v, level+1, h, newData, out)
	case c.Rank() < targets0:
		sub := c.SubRange(0, targets0)
		c.SetComm(sub)
		build(c, 2*v, level+1, h, newData, out)
		c.Restore()
	default:
		sub := c.SubRange(targets0, c.Size())
		c.SetComm(sub)
		build(c, 2*v+1, level+1, h, newData, out)
		c.Restore()
	}
}
