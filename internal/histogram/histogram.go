// Package histogram builds the distributed symbol-frequency table (spec
// component C3): a fast 256-slot path for byte alphabets, and a general
// hash-map butterfly reduction otherwise. Ported in control flow from
// original_source/distwt/mpi/histogram.hpp.
package histogram

import (
	"math/bits"
	"sort"

	"github.com/pdinklag/distwt-sub000/internal/cluster"
)

// Entry is one (symbol, count) pair; a Histogram's Entries are always
// sorted by Symbol once Compute returns.
type Entry struct {
	Symbol uint32
	Count  uint64
}

// ByteFast computes the histogram of an 8-bit alphabet using a 256-cell
// local counter and a single all-reduce, the fast path spec.md §4.3 calls
// out explicitly.
func ByteFast(c *cluster.Cluster, localCounts [256]uint64) []Entry {
	reduced := cluster.AllReduce(c, localCounts[:], cluster.Sum)
	var out []Entry
	for sym, cnt := range reduced {
		if cnt > 0 {
			out = append(out, Entry{Symbol: uint32(sym), Count: cnt})
		}
	}
	return out
}

// Compute runs the general-alphabet butterfly reduction: every worker
// starts with its own sym->count map (built by the caller via ProcessLocal
// on its FilePartitionReader), and after logP bottom-up merge rounds
// followed by logP top-down broadcast rounds, every worker holds the
// identical, symbol-sorted entry list.
func Compute(c *cluster.Cluster, local map[uint32]uint64) []Entry {
	rank, p := c.Rank(), c.Size()
	last := rank == p-1
	logp := 0
	for (1 << logp) < p {
		logp++
	}

	// bottom-up: fold leftward neighbors into their right-hand partner.
	for lv := 0; lv < logp; lv++ {
		d := 1 << lv
		mask := d - 1
		active := lv == 0 || last || (rank&mask) == mask
		if !active {
			continue
		}
		lvRank := rank >> uint(lv)
		if lvRank&1 == 1 {
			ln := (lvRank-1)*d + mask
			syms, counts := recvMap(c, ln)
			for i, s := range syms {
				local[s] += counts[i]
			}
		} else {
			rn := min(rank+d, p-1)
			if rn != rank {
				syms, counts := flattenMap(local)
				cluster.Send(c, syms, rn, 0)
				cluster.Send(c, counts, rn, 0)
			}
		}
	}

	// top-down: the fully-merged map at the root of each subtree is
	// copied back down so every worker ends up with the same result.
	for lv := logp; lv > 0; lv-- {
		l := lv - 1
		d := 1 << l
		mask := d - 1
		active := l == 0 || last || (rank&mask) == mask
		if !active {
			continue
		}
		lvRank := rank >> uint(l)
		if lvRank&1 == 1 {
			ln := (lvRank-1)*d + mask
			syms, counts := flattenMap(local)
			cluster.Send(c, syms, ln, 1)
			cluster.Send(c, counts, ln, 1)
		} else {
			rn := min(rank+d, p-1)
			if rn != rank {
				syms, counts := recvMap(c, rn)
				local = make(map[uint32]uint64, len(syms))
				for i, s := range syms {
					local[s] = counts[i]
				}
			}
		}
	}

	return sortedEntries(local)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func flattenMap(m map[uint32]uint64) ([]uint32, []uint64) {
	syms := make([]uint32, 0, len(m))
	for s := range m {
		syms = append(syms, s)
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i] < syms[j] })
	counts := make([]uint64, len(syms))
	for i, s := range syms {
		counts[i] = m[s]
	}
	return syms, counts
}

func recvMap(c *cluster.Cluster, peer int) ([]uint32, []uint64) {
	r := c.Probe(peer, 0)
	syms := cluster.Recv[uint32](c, r.Size, peer, 0)
	counts := cluster.Recv[uint64](c, r.Size, peer, 0)
	return syms, counts
}

func sortedEntries(m map[uint32]uint64) []Entry {
	out := make([]Entry, 0, len(m))
	for s, cnt := range m {
		out = append(out, Entry{Symbol: s, Count: cnt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Sigma returns the effective alphabet size and the tree height
// ceil(log2(sigma)) for a computed histogram.
func Sigma(entries []Entry) (sigma, height int) {
	sigma = len(entries)
	height = bits.Len(uint(sigma - 1))
	if sigma <= 1 {
		height = 0
	}
	return
}
