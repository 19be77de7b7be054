// Package dsort implements the stable distributed sort (spec component
// C6): SSS-style sample sort with a small-key-set detour and a stable
// local finalizer. Ported in control flow from
// original_source/distwt/mpi/stable_sort.hpp, including the fix to its
// "workers[m] = ..." indexing bug noted as an Open Question in spec.md
// §9 — the rule implemented here is workers[k] = round(count[k]*P / S),
// where S is the total number of gathered samples.
package dsort

import (
	"math/rand"
	"sort"

	"github.com/pdinklag/distwt-sub000/internal/cluster"
)

const sortMaster = 0

// tags reserved for the sort's internal phases, distinct from whatever
// tag the caller's own protocol uses.
const (
	tagSample = 9000 + iota
	tagNumKeys
	tagSmallKeys
	tagSmallCounts
	tagSplitters
	tagBucket
)

// Sort stably sorts v across every worker in the active communicator by
// key(v[i]), using oversampling factor a (spec.md recommends a = P). rng
// drives sampling only; a fixed seed makes repeated runs bit-identical,
// satisfying the determinism property in spec.md §8.
func Sort[T any](c *cluster.Cluster, v []T, key func(T) uint64, a int, rng *rand.Rand) []T {
	p := c.Size()

	elemLess := func(x, y T) bool { return key(x) < key(y) }

	// --- 1: sampling ---
	samples := sampleLocal(v, a, rng)
	if c.Rank() != sortMaster {
		cluster.SendItems(c, samples, sortMaster, tagSample)
	}

	// --- 2: splitters ---
	var smallKeys []uint64
	var smallCounts []uint64
	var splitters []uint64
	var numDistinct int

	if c.Rank() == sortMaster {
		all := append([]T(nil), samples...)
		for i := 0; i < p; i++ {
			if i == sortMaster {
				continue
			}
			r := cluster.ProbeItems(c, i, tagSample)
			all = append(all, cluster.RecvItems[T](c, r.Size, i, tagSample)...)
		}
		sort.Slice(all, func(i, j int) bool { return key(all[i]) < key(all[j]) })

		keys := make([]uint64, len(all))
		for i, x := range all {
			keys[i] = key(x)
		}
		numDistinct = countDistinct(keys)

		for i := 0; i < p; i++ {
			if i != sortMaster {
				cluster.Send(c, []int{numDistinct}, i, tagNumKeys)
			}
		}

		if numDistinct <= p {
			smallKeys, smallCounts = histogramOf(keys)
			for i := 0; i < p; i++ {
				if i != sortMaster {
					cluster.Send(c, smallKeys, i, tagSmallKeys)
					cluster.Send(c, smallCounts, i, tagSmallCounts)
				}
			}
		} else {
			splitters = classicSplitters(keys, p, a)
			for i := 0; i < p; i++ {
				if i != sortMaster {
					cluster.Send(c, splitters, i, tagSplitters)
				}
			}
		}
	} else {
		numDistinct = cluster.Recv[int](c, 1, sortMaster, tagNumKeys)[0]
		if numDistinct <= p {
			smallKeys = cluster.Recv[uint64](c, numDistinct, sortMaster, tagSmallKeys)
			smallCounts = cluster.Recv[uint64](c, numDistinct, sortMaster, tagSmallCounts)
		} else {
			splitters = cluster.Recv[uint64](c, p-1, sortMaster, tagSplitters)
		}
	}

	// --- 3: distribution ---
	outbox := make([][]T, p)
	if numDistinct <= p {
		workers := assignWorkers(smallCounts, p)
		ranges := assignmentRanges(smallKeys, workers)
		relRank := float64(c.Rank()) / float64(p)
		for _, x := range v {
			lo, hi := rangeFor(ranges, key(x))
			j := lo + int(roundHalfAwayFromZero(relRank*float64(hi-lo)))
			if j > p-1 {
				j = p - 1
			}
			outbox[j] = append(outbox[j], x)
		}
	} else {
		for _, x := range v {
			b := lowerBoundRank(splitters, key(x))
			outbox[b] = append(outbox[b], x)
		}
	}

	sendToSelf := outbox[c.Rank()]
	for i := 0; i < p; i++ {
		if i != c.Rank() {
			cluster.SendItems(c, outbox[i], i, tagBucket)
		}
	}

	// --- 4: receive and sort locally ---
	out := make([]T, 0, len(v))
	for i := 0; i < p; i++ {
		if i == c.Rank() {
			out = append(out, sendToSelf...)
		} else {
			r := cluster.ProbeItems(c, i, tagBucket)
			out = append(out, cluster.RecvItems[T](c, r.Size, i, tagBucket)...)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return elemLess(out[i], out[j]) })
	return out
}

func sampleLocal[T any](v []T, a int, rng *rand.Rand) []T {
	if len(v) == 0 {
		return nil
	}
	out := make([]T, a)
	for i := 0; i < a; i++ {
		out[i] = v[rng.Intn(len(v))]
	}
	return out
}

func countDistinct(sortedKeys []uint64) int {
	n := 0
	var prev uint64
	for i, k := range sortedKeys {
		if i == 0 || k != prev {
			n++
		}
		prev = k
	}
	return n
}

// histogramOf returns the distinct sorted keys alongside how many of the
// (already sorted) sample keys equal each one.
func histogramOf(sortedKeys []uint64) (keys, counts []uint64) {
	for _, k := range sortedKeys {
		if len(keys) == 0 || keys[len(keys)-1] != k {
			keys = append(keys, k)
			counts = append(counts, 1)
		} else {
			counts[len(counts)-1]++
		}
	}
	return
}

// classicSplitters picks p-1 splitter keys at stride a+1 from the sorted
// sample set, the path taken when there are more than p distinct keys.
func classicSplitters(sortedKeys []uint64, p, a int) []uint64 {
	out := make([]uint64, p-1)
	for k := 0; k < p-1; k++ {
		idx := k*(a+1) + 1
		if idx >= len(sortedKeys) {
			idx = len(sortedKeys) - 1
		}
		out[k] = sortedKeys[idx]
	}
	return out
}

// assignWorkers distributes p workers across m distinct keys proportional
// to their sample counts, rounding until the total is exactly p by
// repeatedly bumping the smallest (if short) or shrinking the largest (if
// over) assignment — spec.md §4.6's round-off rule.
func assignWorkers(counts []uint64, p int) []int {
	m := len(counts)
	total := uint64(0)
	for _, c := range counts {
		total += c
	}
	workers := make([]int, m)
	assigned := 0
	for k, cnt := range counts {
		w := int(roundHalfAwayFromZero(float64(cnt) * float64(p) / float64(total)))
		workers[k] = w
		assigned += w
	}
	for assigned < p {
		i := argmin(workers)
		workers[i]++
		assigned++
	}
	for assigned > p {
		i := argmax(workers)
		if workers[i] > 1 {
			workers[i]--
			assigned--
		} else {
			break
		}
	}
	return workers
}

func argmin(v []int) int {
	i := 0
	for j := range v {
		if v[j] < v[i] {
			i = j
		}
	}
	return i
}

func argmax(v []int) int {
	i := 0
	for j := range v {
		if v[j] > v[i] {
			i = j
		}
	}
	return i
}

func roundHalfAwayFromZero(x float64) float64 {
	if x >= 0 {
		return float64(int64(x + 0.5))
	}
	return float64(int64(x - 0.5))
}

type keyRange struct {
	key    uint64
	lo, hi int // inclusive worker range
}

func assignmentRanges(keys []uint64, workers []int) []keyRange {
	out := make([]keyRange, len(keys))
	next := 0
	for k, key := range keys {
		w := workers[k]
		out[k] = keyRange{key: key, lo: next, hi: next + w - 1}
		next += w
	}
	return out
}

// rangeFor finds the worker range assigned to the smallest known key >=
// target (matching std::map::lower_bound on the C++ side), falling back to
// the last range if target exceeds every sampled key.
func rangeFor(ranges []keyRange, target uint64) (lo, hi int) {
	i := sort.Search(len(ranges), func(i int) bool { return ranges[i].key >= target })
	if i == len(ranges) {
		i = len(ranges) - 1
	}
	return ranges[i].lo, ranges[i].hi
}

// lowerBoundRank returns the index of the smallest splitter >= it (or p-1
// when it exceeds every splitter), i.e. which of the p buckets formed by
// p-1 splitters `it` belongs in.
func lowerBoundRank(splitters []uint64, it uint64) int {
	return sort.Search(len(splitters), func(i int) bool { return it <= splitters[i] })
}
