package bucketsort

import (
	"testing"

	"github.com/pdinklag/distwt-sub000/internal/cluster"
	"github.com/pdinklag/distwt-sub000/internal/wavelet"
)

// TestBuildTwoWorkers exercises the same sigma=4, two-rank scenario as
// the nodewise+merge integration test (internal/merge): both ranks hold
// an identical local text [0,1,2,3], and the result should land on the
// same final per-level bit vectors ([0,0,1,1] / [0,1,0,1] on each rank),
// reached this time by folding redistribution into construction directly
// rather than through a separate node->level merge step.
func TestBuildTwoWorkers(t *testing.T) {
	const p = 2
	shape := wavelet.NewShape([]uint64{2, 2, 2, 2})
	localText := []uint8{0, 1, 2, 3}
	sizePerWorker := 4

	gotLevels := make([][][]bool, p)
	err := cluster.Launch(p, p, func(c *cluster.Cluster) error {
		levels := Build(c, shape, sizePerWorker, localText, false)
		bits := make([][]bool, len(levels))
		for i, lvl := range levels {
			b := make([]bool, lvl.Len())
			for j := range b {
				b[j] = lvl.Get(j)
			}
			bits[i] = b
		}
		gotLevels[c.Rank()] = bits
		return nil
	})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}

	want := [][][]bool{
		{{false, false, true, true}, {false, true, false, true}},
		{{false, false, true, true}, {false, true, false, true}},
	}
	for r := 0; r < p; r++ {
		for lvl := 0; lvl < shape.Height; lvl++ {
			got := gotLevels[r][lvl]
			w := want[r][lvl]
			if len(got) != len(w) {
				t.Fatalf("rank %d level %d: len = %d, want %d", r, lvl, len(got), len(w))
			}
			for i, wb := range w {
				if got[i] != wb {
					t.Errorf("rank %d level %d bit %d = %v, want %v", r, lvl, i, got[i], wb)
				}
			}
		}
	}
}

func TestBuildLevelLengthsMatchLocalText(t *testing.T) {
	const p = 3
	shape := wavelet.NewShape([]uint64{1, 4, 1, 2, 4})
	// "mississippi$" in effective ranks, split four symbols per rank so the
	// global text matches shape's counts.
	texts := [][]uint8{{2, 1, 4, 4}, {1, 4, 4, 1}, {3, 3, 1, 0}}

	err := cluster.Launch(p, p, func(c *cluster.Cluster) error {
		text := texts[c.Rank()]
		levels := Build(c, shape, 4, text, false)
		if len(levels) != shape.Height {
			t.Errorf("rank %d: got %d levels, want %d", c.Rank(), len(levels), shape.Height)
		}
		for i, lvl := range levels {
			if lvl.Len() != len(text) {
				t.Errorf("rank %d level %d: len = %d, want %d", c.Rank(), i, lvl.Len(), len(text))
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
}
