// Package persist writes and reads the on-disk artifacts of a
// construction run (spec component C11): one bit-packed level file per
// worker per level, a histogram file, and (for wavelet matrices) a .z
// file of per-level splitters. Grounded on spec.md §4.11/§6 for the file
// layout, and on the teacher's use of github.com/bford/cofo/cbe for
// self-describing framing — used here for the records of the histogram
// file. The level files and the .z file are written without cbe framing.
//
// The on-disk bit packing is big-endian within a word (bit i at position
// 63-(i%64) of word i/64), deliberately distinct from bitvec.Vector's
// little-endian-within-word in-memory/wire convention: this package is
// the only place the two conventions meet, and it does the translation
// explicitly rather than letting either side assume the other's layout.
package persist

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/bford/cofo/cbe"

	"github.com/pdinklag/distwt-sub000/internal/bitvec"
	"github.com/pdinklag/distwt-sub000/internal/histogram"
)

// LevelPath returns the conventional filename for one worker's slice of
// one level, per spec.md §6/§4.11: "<base><rank:4>.lv_<L+1>".
func LevelPath(base string, level, rank int) string {
	return fmt.Sprintf("%s%04d.lv_%d", base, rank, level+1)
}

// WriteLevel writes bv to LevelPath(base, level, rank) in the on-disk
// big-endian-within-word bit packing.
func WriteLevel(base string, level, rank int, bv *bitvec.Vector) error {
	f, err := os.Create(LevelPath(base, level, rank))
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	n := bv.Len()
	var word uint64
	var filled int
	var buf [8]byte
	for i := 0; i < n; i++ {
		word <<= 1
		if bv.Get(i) {
			word |= 1
		}
		filled++
		if filled == 64 {
			binary.BigEndian.PutUint64(buf[:], word)
			if _, err := w.Write(buf[:]); err != nil {
				return err
			}
			word, filled = 0, 0
		}
	}
	if filled > 0 {
		word <<= uint(64 - filled)
		binary.BigEndian.PutUint64(buf[:], word)
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	return w.Flush()
}

// ReadLevel reads back n bits written by WriteLevel.
func ReadLevel(base string, level, rank, n int) (*bitvec.Vector, error) {
	f, err := os.Open(LevelPath(base, level, rank))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := bitvec.New(n)
	r := bufio.NewReader(f)
	var buf [8]byte
	i := 0
	for i < n {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		word := binary.BigEndian.Uint64(buf[:])
		for b := uint(0); b < 64 && i < n; b++ {
			bit := (word>>(63-b))&1 != 0
			out.Set(i, bit)
			i++
		}
	}
	return out, nil
}

// WriteHistogram writes the histogram file: a raw little-endian u64 entry
// count followed by one cbe-framed record per entry, each record holding
// a little-endian u32 symbol and u64 count. No file with unframed
// records is written.
func WriteHistogram(path string, entries []histogram.Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	var countBuf [8]byte
	binary.LittleEndian.PutUint64(countBuf[:], uint64(len(entries)))
	if _, err := w.Write(countBuf[:]); err != nil {
		return err
	}

	var rec [12]byte
	for _, e := range entries {
		binary.LittleEndian.PutUint32(rec[0:4], e.Symbol)
		binary.LittleEndian.PutUint64(rec[4:12], e.Count)
		framed := cbe.Encode(nil, rec[:])
		if _, err := w.Write(framed); err != nil {
			return err
		}
	}
	return w.Flush()
}

// ReadHistogram is the inverse of WriteHistogram.
func ReadHistogram(path string) ([]histogram.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("persist: truncated histogram file %s", path)
	}
	count := binary.LittleEndian.Uint64(data[:8])
	rest := data[8:]

	entries := make([]histogram.Entry, 0, count)
	for i := uint64(0); i < count; i++ {
		var val []byte
		val, rest, err = cbe.Decode(rest)
		if err != nil {
			return nil, fmt.Errorf("persist: decoding histogram entry %d: %w", i, err)
		}
		if len(val) != 12 {
			return nil, fmt.Errorf("persist: malformed histogram entry %d (got %d bytes)", i, len(val))
		}
		entries = append(entries, histogram.Entry{
			Symbol: binary.LittleEndian.Uint32(val[0:4]),
			Count:  binary.LittleEndian.Uint64(val[4:12]),
		})
	}
	return entries, nil
}

// WriteZ writes a wavelet matrix's per-level splitter values, called by
// rank 0 only.
func WriteZ(path string, z []uint64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	var buf [8]byte
	for _, v := range z {
		binary.LittleEndian.PutUint64(buf[:], v)
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	return w.Flush()
}

// ReadZ is the inverse of WriteZ.
func ReadZ(path string, h int) ([]uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) != h*8 {
		return nil, fmt.Errorf("persist: expected %d bytes in %s, got %d", h*8, path, len(data))
	}
	z := make([]uint64, h)
	for i := range z {
		z[i] = binary.LittleEndian.Uint64(data[i*8 : i*8+8])
	}
	return z, nil
}
