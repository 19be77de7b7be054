package persist

import (
	"path/filepath"
	"testing"

	"github.com/pdinklag/distwt-sub000/internal/bitvec"
	"github.com/pdinklag/distwt-sub000/internal/histogram"
)

func TestLevelPath(t *testing.T) {
	got := LevelPath("/tmp/out", 2, 7)
	want := "/tmp/out0007.lv_3"
	if got != want {
		t.Errorf("LevelPath = %q, want %q", got, want)
	}
}

func TestWriteReadLevelRoundTrip(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "wt")

	bits := []bool{
		true, false, true, true, false, false, true, false, true, true,
		false, true, false, false, false, true, true, true, false, true,
		true, false, false, true, false,
	}
	bv := bitvec.New(len(bits))
	for i, b := range bits {
		bv.Set(i, b)
	}

	if err := WriteLevel(base, 0, 3, bv); err != nil {
		t.Fatalf("WriteLevel: %v", err)
	}
	got, err := ReadLevel(base, 0, 3, len(bits))
	if err != nil {
		t.Fatalf("ReadLevel: %v", err)
	}
	for i, want := range bits {
		if got.Get(i) != want {
			t.Errorf("bit %d = %v, want %v", i, got.Get(i), want)
		}
	}
}

func TestWriteReadHistogramRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wt.hist")

	entries := []histogram.Entry{
		{Symbol: '$', Count: 1},
		{Symbol: 'i', Count: 4},
		{Symbol: 'm', Count: 1},
		{Symbol: 'p', Count: 2},
		{Symbol: 's', Count: 4},
	}
	if err := WriteHistogram(path, entries); err != nil {
		t.Fatalf("WriteHistogram: %v", err)
	}
	got, err := ReadHistogram(path)
	if err != nil {
		t.Fatalf("ReadHistogram: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(entries))
	}
	for i, e := range entries {
		if got[i] != e {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], e)
		}
	}
}

func TestWriteReadZRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wt.z")

	z := []uint64{8, 5, 3}
	if err := WriteZ(path, z); err != nil {
		t.Fatalf("WriteZ: %v", err)
	}
	got, err := ReadZ(path, len(z))
	if err != nil {
		t.Fatalf("ReadZ: %v", err)
	}
	for i, want := range z {
		if got[i] != want {
			t.Errorf("z[%d] = %d, want %d", i, got[i], want)
		}
	}
}
