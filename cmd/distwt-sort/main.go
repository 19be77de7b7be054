// Command distwt-sort is the standalone demo for the stable distributed
// sort (spec component C6): it is not part of any construction strategy,
// mirroring how original_source/distwt/apps/mpi_sort.cpp exercises
// stable_sort.hpp on its own fixed eight-worker dataset rather than from
// mpi_bsort.cpp/dsplit.hpp/wt_pc, none of which call it either. This is
// spec.md §8 scenario 6: eight workers, fourteen values each drawn from
// {0..9}, sorted by key(x) = x & 3.
package main

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"

	"github.com/pdinklag/distwt-sub000/internal/cluster"
	"github.com/pdinklag/distwt-sub000/internal/dsort"
)

const numWorkers = 8

// input is the fixed per-rank dataset from mpi_sort.cpp, kept byte-for-byte
// so this demo's output can be checked against the original.
var input = [numWorkers][]uint32{
	{7, 5, 2, 1, 4, 1, 8, 9, 4, 9, 4, 2, 1, 3},
	{4, 1, 3, 8, 4, 2, 1, 3, 6, 7, 7, 3, 4, 5},
	{0, 6, 7, 9, 9, 1, 0, 5, 4, 1, 0, 2, 5, 4},
	{3, 5, 2, 6, 0, 8, 3, 2, 7, 6, 8, 7, 5, 3},
	{2, 2, 2, 1, 7, 8, 9, 3, 0, 4, 4, 6, 1, 3},
	{6, 7, 4, 9, 0, 1, 4, 3, 2, 6, 8, 9, 3, 1},
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 0, 1, 2, 3},
	{1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 8},
}

func main() {
	log.SetFlags(0)
	err := cluster.Launch(numWorkers, numWorkers, func(c *cluster.Cluster) error {
		v := append([]uint32(nil), input[c.Rank()]...)
		fmt.Printf("rank %d input:  %s\n", c.Rank(), formatVector(v))

		c.Barrier()

		rng := rand.New(rand.NewSource(int64(c.Rank()) + 1))
		out := dsort.Sort(c, v, func(x uint32) uint64 { return uint64(x) & 0x3 }, c.Size(), rng)

		c.Barrier()
		fmt.Printf("rank %d output: %s\n", c.Rank(), formatVector(out))
		return nil
	})
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func formatVector(v []uint32) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%d", x)
	}
	return "[ " + strings.Join(parts, " ") + " ]"
}
