// Package bucketsort implements bucket-sort / level-concatenate
// construction (spec component C9): level by level, the local bit vector
// is built in place while simultaneously bucketing symbols by their
// level+1 node id; buckets are then redistributed directly into the
// fixed-size partition slot of whichever worker's local array they fall
// into, which folds the merge step into the redistribution itself. Ported
// from original_source/distwt/apps/mpi_bsort.cpp.
package bucketsort

import (
	"github.com/pdinklag/distwt-sub000/internal/bitvec"
	"github.com/pdinklag/distwt-sub000/internal/cluster"
	"github.com/pdinklag/distwt-sub000/internal/wavelet"
)

// Build returns one bit vector per level, each exactly len(text) bits
// long (the partition's fixed per-worker size), ready to be persisted
// directly as a level file. bitReversal lays buckets out in wavelet-matrix
// node order instead of canonical wavelet-tree order (spec.md §4.10),
// matching the node ordering package merge uses for the other two
// construction strategies.
func Build[S wavelet.Symbol](c *cluster.Cluster, shape wavelet.Shape, sizePerWorker int, text []S, bitReversal bool) []*bitvec.Vector {
	h := shape.Height
	localNum := len(text)
	levels := make([]*bitvec.Vector, h)
	work := append([]S(nil), text...)

	for level := 0; level < h; level++ {
		tag := level
		lvl := bitvec.New(localNum)
		rsh := uint(h - 1 - level)

		if level+1 == h {
			for i, x := range work {
				lvl.Set(i, (uint64(x)>>rsh)&1 != 0)
			}
			levels[level] = lvl
			continue
		}

		numNLevelNodes := 1 << uint(level+1)
		buckets := make([][]S, numNLevelNodes)
		for i, x := range work {
			k := int(uint64(x) >> rsh)
			lvl.Set(i, k&1 != 0)
			buckets[k] = append(buckets[k], x)
		}
		levels[level] = lvl

		bucketOffs := make([]int, numNLevelNodes)
		for v := range buckets {
			bucketOffs[v] = len(buckets[v])
		}
		bucketOffs = cluster.ExScan(c, bucketOffs, cluster.Sum)

		nodeSizes := shape.NodeSizes(level + 1)
		globNodeOffs := 0
		for v := 0; v < numNLevelNodes; v++ {
			idx := v
			if bitReversal {
				idx = wavelet.BitReverse(level+1, v)
			}
			b := buckets[idx]
			if len(b) > 0 {
				globBucketOffs := globNodeOffs + bucketOffs[idx]
				target1 := globBucketOffs / sizePerWorker
				globLast := globBucketOffs + len(b) - 1
				target2 := globLast / sizePerWorker

				if target1 == target2 {
					sendChunk(c, globBucketOffs, b, target1, tag)
				} else {
					globFirst2 := target2 * sizePerWorker
					size1 := globFirst2 - globBucketOffs
					sendChunk(c, globBucketOffs, b[:size1], target1, tag)
					sendChunk(c, globFirst2, b[size1:], target2, tag)
				}
			}
			globNodeOffs += nodeSizes[idx]
		}

		received := 0
		newWork := make([]S, localNum)
		for received < localNum {
			header, sender := cluster.RecvAny[int](c, tag)
			globOffs, size := header[0], header[1]
			localOffs := globOffs % sizePerWorker
			items := cluster.RecvItems[S](c, size, sender, tag)
			copy(newWork[localOffs:localOffs+size], items)
			received += size
		}
		c.Barrier()
		work = newWork
	}
	return levels
}

func sendChunk[S any](c *cluster.Cluster, globOffs int, items []S, target, tag int) {
	cluster.ISend(c, []int{globOffs, len(items)}, target, tag)
	cluster.SendItems(c, items, target, tag)
}
