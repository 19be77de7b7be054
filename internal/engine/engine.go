// Package engine drives one end-to-end construction run: partition the
// input, compute the histogram and effective alphabet, build the tree
// with whichever strategy was selected, and persist the result. It is
// the shared backbone behind every cmd/distwt-* entry point, mirroring
// how the original apps (mpi_dd.cpp, mpi_parsplit.cpp, mpi_bsort.cpp)
// differ only in their construction stage while sharing everything else.
package engine

import (
	"fmt"
	"log"

	"github.com/pdinklag/distwt-sub000/internal/alphabet"
	"github.com/pdinklag/distwt-sub000/internal/bitvec"
	"github.com/pdinklag/distwt-sub000/internal/cluster"
	"github.com/pdinklag/distwt-sub000/internal/construct/bucketsort"
	"github.com/pdinklag/distwt-sub000/internal/construct/nodewise"
	"github.com/pdinklag/distwt-sub000/internal/construct/parsplit"
	"github.com/pdinklag/distwt-sub000/internal/histogram"
	"github.com/pdinklag/distwt-sub000/internal/merge"
	"github.com/pdinklag/distwt-sub000/internal/partition"
	"github.com/pdinklag/distwt-sub000/internal/persist"
	"github.com/pdinklag/distwt-sub000/internal/wavelet"
)

// Strategy selects which of the three construction algorithms builds the
// tree (spec.md §4.7-§4.9).
type Strategy int

const (
	DomainDecomp Strategy = iota
	ParallelSplit
	BucketSort
)

func (s Strategy) String() string {
	switch s {
	case DomainDecomp:
		return "domain-decomposition"
	case ParallelSplit:
		return "parallel-split"
	case BucketSort:
		return "bucket-sort"
	default:
		return "unknown"
	}
}

// Config collects one run's parameters, mirroring the -r/-l/-o/-p flag
// surface spec.md §6 assigns every cmd/distwt-* binary.
type Config struct {
	Input    string
	Local    string // if non-empty, extract the local partition here first
	Output   string // output file base name
	Prefix   int64  // 0 means "whole file"
	RBuf     int    // read buffer size; 0 means "local size"
	Strategy Strategy
	Matrix   bool // build a wavelet matrix instead of a wavelet tree
}

// Run executes one construction over the active communicator c, and
// persists its levels, histogram, and (for matrices) z-values.
func Run(c *cluster.Cluster, cfg Config) error {
	r, err := partition.Open(cfg.Input, c.Rank(), c.Size(), 1, cfg.Prefix)
	if err != nil {
		return fmt.Errorf("engine: partition: %w", err)
	}

	if cfg.Local != "" {
		if c.Rank() == 0 {
			log.Printf("extracting local partitions to %s.part.*", cfg.Local)
		}
		if err := r.ExtractLocal(cfg.Local, cfg.RBuf); err != nil {
			return fmt.Errorf("engine: extract local: %w", err)
		}
		c.Barrier()
	}

	if c.Rank() == 0 {
		log.Printf("computing histogram (%s)", cfg.Strategy)
	}
	var counts [256]uint64
	if err := r.ProcessLocal(cfg.RBuf, func(sym uint32) { counts[sym]++ }); err != nil {
		return fmt.Errorf("engine: histogram pass: %w", err)
	}
	entries := histogram.ByteFast(c, counts)
	sigma, height := histogram.Sigma(entries)
	if c.Rank() == 0 {
		log.Printf("sigma=%d height=%d", sigma, height)
	}

	if c.Rank() == 0 {
		log.Println("computing effective transformation")
	}
	am := alphabet.New(entries)
	localNum := int(r.LocalNum())
	etext := make([]uint32, 0, localNum)
	process := func(visit func(sym uint32)) error {
		return r.ProcessLocal(cfg.RBuf, visit)
	}
	if err := alphabet.Transform(am, process, func(esym uint32) { etext = append(etext, esym) }); err != nil {
		return fmt.Errorf("engine: transform: %w", err)
	}

	symbolCounts := make([]uint64, sigma)
	for i, e := range entries {
		symbolCounts[i] = e.Count
	}
	shape := wavelet.NewShape(symbolCounts)
	sizePerWorker := int(r.SizePerWorker())

	if c.Rank() == 0 {
		log.Printf("building tree with %s", cfg.Strategy)
	}
	levels, err := build(c, cfg, shape, sizePerWorker, localNum, etext)
	if err != nil {
		return err
	}

	if c.Rank() == 0 {
		log.Printf("persisting to %s", cfg.Output)
	}
	for level, bv := range levels {
		if err := persist.WriteLevel(cfg.Output, level, c.Rank(), bv); err != nil {
			return fmt.Errorf("engine: write level %d: %w", level, err)
		}
	}
	if c.Rank() == 0 {
		if err := persist.WriteHistogram(cfg.Output+".hist", entries); err != nil {
			return fmt.Errorf("engine: write histogram: %w", err)
		}
		if cfg.Matrix {
			if err := persist.WriteZ(cfg.Output+".z", merge.Z(shape)); err != nil {
				return fmt.Errorf("engine: write z: %w", err)
			}
		}
	}

	t := c.Traffic()
	if c.Rank() == 0 {
		log.Printf("done: tx=%d rx=%d tx_shm=%d rx_shm=%d alloc_max=%d",
			t.Tx, t.Rx, t.TxShm, t.RxShm, c.AllocMax())
	}
	return nil
}

func build(c *cluster.Cluster, cfg Config, shape wavelet.Shape, sizePerWorker, localNum int, etext []uint32) ([]*bitvec.Vector, error) {
	if shape.Height == 0 {
		// single-symbol text: no tree at all.
		return nil, nil
	}

	switch cfg.Strategy {
	case DomainDecomp:
		nodes := nodewise.Build(wavelet.NodeID(1), shape.Height, etext)
		return merge.Merge(c, shape, nodes, sizePerWorker, localNum, cfg.Matrix), nil
	case ParallelSplit:
		nodes := parsplit.Build(c, shape.Height, etext)
		return merge.Merge(c, shape, nodes, sizePerWorker, localNum, cfg.Matrix), nil
	case BucketSort:
		return bucketsort.Build(c, shape, sizePerWorker, etext, cfg.Matrix), nil
	default:
		return nil, fmt.Errorf("engine: unknown strategy %v", cfg.Strategy)
	}
}
