package parsplit

import (
	"math"

	"github.com/pdinklag/distwt-sub000/internal/cluster"
)

// dsplitStr performs a balanced redistribution of data across every
// worker in the active communicator according to predicate, returning the
// worker rank that separates the "false" group (local ranks [0, targets0))
// from the "true" group ([targets0, P)). After the call, each worker's
// data is replaced by a contiguous slice of whichever side it ended up
// responsible for. Ported from
// original_source/distwt/mpi/dsplit.hpp's dsplit_str.
func dsplitStr[S any](c *cluster.Cluster, data []S, predicate func(S) bool, tag int) (out []S, targets0 int) {
	p := c.Size()

	localNum := [2]int{}
	for _, x := range data {
		if predicate(x) {
			localNum[1]++
		} else {
			localNum[0]++
		}
	}

	num := cluster.AllReduce(c, []int{localNum[0], localNum[1]}, cluster.Sum)

	p0 := float64(num[0]) / float64(num[0]+num[1])
	ceil0 := int(math.Ceil(p0 * float64(p)))
	t0 := ceil0
	if num[1] > 0 && t0 >= p {
		t0 = p - 1
	}
	if num[0] == 0 {
		t0 = 0
	}
	t1 := p - t0

	numPerTarget := [2]int{}
	if t0 > 0 {
		numPerTarget[0] = ceilDiv(num[0], t0)
	}
	if t1 > 0 {
		numPerTarget[1] = ceilDiv(num[1], t1)
	}

	offs := cluster.ExScan(c, []int{localNum[0], localNum[1]}, cluster.Sum)

	// send phase: copy the local slice into separate 0/1 buffers, keeping
	// original order within each side; the child nodes' bit vectors are
	// built from this order, so the redistribution must preserve it.
	buf := [2][]S{make([]S, 0, localNum[0]), make([]S, 0, localNum[1])}
	for _, x := range data {
		b := 0
		if predicate(x) {
			b = 1
		}
		buf[b] = append(buf[b], x)
	}

	glob := [2]int{offs[0], offs[1]}
	target := [2]int{}
	if numPerTarget[0] == 0 {
		target[0] = math.MaxInt32
	} else {
		target[0] = glob[0] / numPerTarget[0]
	}
	if numPerTarget[1] == 0 {
		target[1] = math.MaxInt32
	} else {
		target[1] = t0 + glob[1]/numPerTarget[1]
	}

	for b := 0; b < 2; b++ {
		items := buf[b]
		g := glob[b]
		npt := numPerTarget[b]
		tg := target[b]
		i := 0
		for i < len(items) {
			if npt == 0 {
				break
			}
			end := npt - (g % npt)
			if end > len(items)-i {
				end = len(items) - i
			}
			chunk := items[i : i+end]
			sendChunk(c, g, chunk, tg, tag)
			g += len(chunk)
			i += end
			tg++
		}
	}

	// receive phase
	b := 0
	if c.Rank() >= t0 {
		b = 1
	}
	var globalOffset int
	if b == 1 {
		globalOffset = (c.Rank() - t0) * numPerTarget[1]
	} else {
		globalOffset = c.Rank() * numPerTarget[0]
	}

	lastRank := [2]int{t0 - 1, p - 1}
	var expect int
	if c.Rank() < lastRank[b] {
		expect = numPerTarget[b]
	} else if numPerTarget[b] > 0 {
		mod := num[b] % numPerTarget[b]
		if mod == 0 {
			expect = numPerTarget[b]
		} else {
			expect = mod
		}
	}

	out = make([]S, expect)
	received := 0
	for received < expect {
		header, sender := cluster.RecvAny[int](c, tag)
		moffs, mnum := header[0], header[1]
		localOffs := moffs - globalOffset
		items := cluster.RecvItems[S](c, mnum, sender, tag)
		copy(out[localOffs:localOffs+mnum], items)
		received += mnum
	}

	c.Barrier()
	return out, t0
}

func ceilDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

func sendChunk[S any](c *cluster.Cluster, globOffs int, items []S, target, tag int) {
	cluster.ISend(c, []int{globOffs, len(items)}, target, tag)
	cluster.SendItems(c, items, target, tag)
}
