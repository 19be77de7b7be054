package merge

import (
	"testing"

	"github.com/pdinklag/distwt-sub000/internal/cluster"
	"github.com/pdinklag/distwt-sub000/internal/construct/nodewise"
	"github.com/pdinklag/distwt-sub000/internal/wavelet"
)

// TestZ checks the wavelet-matrix splitter against the "mississippi$"
// histogram ($=0 count1, i=1 count4, m=2 count1, p=3 count2, s=4 count4),
// hand-derived per spec.md's worked example.
func TestZ(t *testing.T) {
	shape := wavelet.NewShape([]uint64{1, 4, 1, 2, 4})
	z := Z(shape)
	want := []uint64{8, 9, 6}
	if len(z) != len(want) {
		t.Fatalf("len(z) = %d, want %d", len(z), len(want))
	}
	for i, w := range want {
		if z[i] != w {
			t.Errorf("z[%d] = %d, want %d", i, z[i], w)
		}
	}
}

// TestMergeTwoWorkers drives nodewise.Build and Merge together across a
// live two-rank cluster for a small sigma=4 alphabet, where every rank
// holds an identical local text [0,1,2,3]. This exercises both a
// same-rank and a cross-rank leg of the node->level redistribution: the
// combined node2 segment (size 4) lands entirely on rank 0, and the
// combined node3 segment entirely on rank 1, so each rank both
// self-sends part of its own contribution and receives part from the
// other.
func TestMergeTwoWorkers(t *testing.T) {
	const p = 2
	shape := wavelet.NewShape([]uint64{2, 2, 2, 2})
	if shape.Height != 2 {
		t.Fatalf("Height = %d, want 2", shape.Height)
	}

	localText := []uint8{0, 1, 2, 3}
	sizePerWorker := 4
	localNum := 4

	gotLevels := make([][][]bool, p)
	err := cluster.Launch(p, p, func(c *cluster.Cluster) error {
		nodes := nodewise.Build[uint8](1, shape.Height, localText)
		levels := Merge(c, shape, nodes, sizePerWorker, localNum, false)
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
