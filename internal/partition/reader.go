// Package partition computes each worker's byte range over a shared input
// file and streams symbols out of it in bounded buffers (spec component
// C2), grounded on original_source/distwt/mpi/file_partition_reader.{hpp,cpp}.
package partition

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Reader describes one worker's view of a partitioned input file.
type Reader struct {
	path       string
	rank, size int
	symSize    int // bytes per symbol; 1 for the common byte-alphabet case

	total int64 // S: min(file size, prefix*symSize)
	perWk int64 // W = ceil(S / P), the global block size

	lo, hi int64 // this worker's [lo, hi) byte range within [0, total)

	localPath string // set once ExtractLocal has run
}

// Open computes the partition for rank/size workers over path, optionally
// capped to the first `prefix` symbols (prefix <= 0 means "whole file").
func Open(path string, rank, size, symSize int, prefix int64) (*Reader, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("partition: stat %s: %w", path, err)
	}
	total := fi.Size()
	if prefix > 0 && prefix*int64(symSize) < total {
		total = prefix * int64(symSize)
	}
	perWk := ceilDiv(total, int64(size))
	lo := min64(int64(rank)*perWk, total)
	hi := min64(lo+perWk, total)
	return &Reader{
		path: path, rank: rank, size: size, symSize: symSize,
		total: total, perWk: perWk, lo: lo, hi: hi,
	}, nil
}

func ceilDiv(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// LocalNum returns the number of symbols this worker owns.
func (r *Reader) LocalNum() int64 { return (r.hi - r.lo) / int64(r.symSize) }

// SizePerWorker returns W, the global per-worker symbol-count block size
// used everywhere to map a global symbol offset to its owning rank.
func (r *Reader) SizePerWorker() int64 { return r.perWk / int64(r.symSize) }

// TargetOf returns the rank that owns global symbol offset.
func (r *Reader) TargetOf(globalOffset int64) int {
	w := r.SizePerWorker()
	if w == 0 {
		return 0
	}
	t := int(globalOffset / w)
	if t >= r.size {
		t = r.size - 1
	}
	return t
}

// ExtractLocal streams this worker's slice of the shared file into its own
// local file once, so later passes read from local storage instead of
// re-seeking into the shared file (the "-l/--local" CLI mode).
func (r *Reader) ExtractLocal(localBase string, bufSize int) error {
	path := fmt.Sprintf("%s.part.%d", localBase, r.rank)
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("partition: create %s: %w", path, err)
	}
	defer out.Close()

	in, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("partition: open %s: %w", r.path, err)
	}
	defer in.Close()
	if _, err := in.Seek(r.lo, io.SeekStart); err != nil {
		return err
	}

	if bufSize <= 0 {
		bufSize = int(r.hi - r.lo)
	}
	if bufSize <= 0 {
		bufSize = 1
	}
	if _, err := io.CopyN(out, in, r.hi-r.lo); err != nil && err != io.EOF {
		return fmt.Errorf("partition: extract: %w", err)
	}
	r.localPath = path
	return nil
}

// ProcessLocal streams this worker's symbols through fn, reading bufSize
// bytes at a time either directly from the shared file at its byte range
// (the default "direct" mode) or from the previously-extracted local file.
func (r *Reader) ProcessLocal(bufSize int, fn func(sym uint32)) error {
	path := r.path
	lo, hi := r.lo, r.hi
	if r.localPath != "" {
		path = r.localPath
		lo, hi = 0, r.hi-r.lo
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("partition: open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Seek(lo, io.SeekStart); err != nil {
		return err
	}

	if bufSize <= 0 {
		bufSize = int(hi - lo)
	}
	if bufSize <= 0 {
		return nil
	}
	br := bufio.NewReaderSize(f, bufSize)

	remaining := hi - lo
	symSize := int64(r.symSize)
	word := make([]byte, r.symSize)
	for remaining >= symSize {
		if _, err := io.ReadFull(br, word); err != nil {
			return fmt.Errorf("partition: read: %w", err)
		}
		fn(decodeLE(word))
		remaining -= symSize
	}
	return nil
}

func decodeLE(b []byte) uint32 {
	var v uint32
	for i, by := range b {
		v |= uint32(by) << uint(8*i)
	}
	return v
}
