// Package merge implements node-to-level merging (spec component C10):
// the node-keyed bit vectors produced by node-based or parallel-split
// construction are redistributed, level by level, into fixed-size
// per-worker level bit vectors ready for persistence — the same shape
// bucket-sort construction produces directly. Ported from
// original_source/distwt/mpi/wt_nodebased.hpp's merge_impl, using the
// bit-interval wire codec (package bitmsg) for the level messages.
package merge

import (
	"github.com/pdinklag/distwt-sub000/internal/bitmsg"
	"github.com/pdinklag/distwt-sub000/internal/bitvec"
	"github.com/pdinklag/distwt-sub000/internal/cluster"
	"github.com/pdinklag/distwt-sub000/internal/wavelet"
)

// Merge converts nodes (as produced by package nodewise or package
// parsplit) into one level bit vector per tree level, each exactly
// localNum bits long, covering this worker's [rank*sizePerWorker,
// rank*sizePerWorker+localNum) range of the level's global bit index
// space. bitReversal selects wavelet-matrix node ordering (spec.md
// §4.10); the companion Z values are computed separately by Z.
func Merge(c *cluster.Cluster, shape wavelet.Shape, nodes map[wavelet.NodeID]*bitvec.Vector, sizePerWorker, localNum int, bitReversal bool) []*bitvec.Vector {
	h := shape.Height
	levels := make([]*bitvec.Vector, h)
	levels[0] = nodes[1]

	numNodes := shape.NumNodes()
	localNodeOffs := make([]int, numNodes+1) // 1-indexed node ids; index 0 unused
	for v := 1; v <= numNodes; v++ {
		if bv := nodes[wavelet.NodeID(v)]; bv != nil {
			localNodeOffs[v] = bv.Len()
		}
	}
	localNodeOffs = cluster.ExScan(c, localNodeOffs, cluster.Sum)

	globalOffset := c.Rank() * sizePerWorker

	for level := 1; level < h; level++ {
		numLevelNodes := 1 << uint(level)
		firstLevelNode := numLevelNodes
		nodeSizes := shape.NodeSizes(level)

		levelNodeOffs := 0
		for i := 0; i < numLevelNodes; i++ {
			idx := i
			if bitReversal {
				idx = wavelet.BitReverse(level, i)
			}
			nodeID := wavelet.NodeID(firstLevelNode + idx)
			bv := nodes[nodeID]
			if bv != nil && bv.Len() > 0 {
				globNodeOffs := levelNodeOffs + localNodeOffs[int(nodeID)]
				p, q := globNodeOffs, globNodeOffs+bv.Len()
				for p < q {
					target := p / sizePerWorker
					x := (target + 1) * sizePerWorker
					if x > q {
						x = q
					}
					localOffs := p - globNodeOffs
					num := x - p
					sub := bv.Slice(localOffs, localOffs+num)
					msg := bitmsg.EncodeInterval(sub, 0, num-1, uint64(p), uint64(x-1))
					cluster.ISend(c, msg, target, level)
					p = x
				}
			}
			levelNodeOffs += nodeSizes[idx]
		}

		lvl := bitvec.New(localNum)
		received := 0
		for received < localNum {
			res := cluster.Probe[uint64](c, cluster.AnySource, level)
			msg := cluster.Recv[uint64](c, res.Size, res.Sender, level)
			bitmsg.DecodeInterval(msg, lvl, globalOffset)
			received += bitmsg.Len(msg)
		}
		c.Barrier()
		levels[level] = lvl
	}
	return levels
}

// Z computes the wavelet-matrix per-level splitter: the number of
// symbols whose bit at this level is 0, i.e. how many entries of the
// level's bit vector (after stable sorting by the preceding levels) come
// before the 1-bits. This sums per-symbol occurrence counts (C[i+1]-C[i])
// over every symbol with a 0 bit at this level, not the cumulative C[i]
// values themselves. spec.md §9's Open Questions section flags the
// original's bottom-up merge_to_matrix recurrence (sz[i] = sz[2i]+sz[2i+1])
// as off-by-one prone; this direct histogram reduction is the canonical
// formulation the spec settles on instead.
func Z(shape wavelet.Shape) []uint64 {
	h := shape.Height
	sigma := shape.Sigma
	z := make([]uint64, h)
	mask := uint64(1) << uint(h-1)
	for level := 0; level < h; level++ {
		var num0 uint64
		for i := 0; i < sigma; i++ {
			if uint64(i)&mask == 0 {
				num0 += shape.C[i+1] - shape.C[i]
			}
		}
		z[level] = num0
		mask >>= 1
	}
	return z
}
