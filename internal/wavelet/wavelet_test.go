package wavelet

import "testing"

// counts for "mississippi$" under the effective alphabet ordered by
// original byte value: $=0 (1), i=1 (4), m=2 (1), p=3 (2), s=4 (4).
func mississippiCounts() []uint64 {
	return []uint64{1, 4, 1, 2, 4}
}

func TestNewShape(t *testing.T) {
	s := NewShape(mississippiCounts())
	if s.N != 12 {
		t.Errorf("N = %d, want 12", s.N)
	}
	if s.Sigma != 5 {
		t.Errorf("Sigma = %d, want 5", s.Sigma)
	}
	if s.Height != 3 {
		t.Errorf("Height = %d, want 3", s.Height)
	}
	wantC := []uint64{0, 1, 5, 6, 8, 12}
	if len(s.C) != len(wantC) {
		t.Fatalf("len(C) = %d, want %d", len(s.C), len(wantC))
	}
	for i, w := range wantC {
		if s.C[i] != w {
			t.Errorf("C[%d] = %d, want %d", i, s.C[i], w)
		}
	}
}

func TestHeightForDegenerate(t *testing.T) {
	s := NewShape([]uint64{7})
	if s.Height != 0 {
		t.Errorf("Height = %d, want 0 for single-symbol alphabet", s.Height)
	}
	if s.NumNodes() != 0 {
		t.Errorf("NumNodes = %d, want 0", s.NumNodes())
	}
}

func TestNumNodes(t *testing.T) {
	s := NewShape(mississippiCounts())
	if got := s.NumNodes(); got != 7 {
		t.Errorf("NumNodes = %d, want 7", got)
	}
}

func TestNodeIntervalRoot(t *testing.T) {
	s := NewShape(mississippiCounts())
	a, b := s.NodeInterval(0, 1)
	if a != 0 || b != 4 {
		t.Errorf("root interval = [%d,%d], want [0,4]", a, b)
	}
}

// Level 1 of the "mississippi$" tree splits the padded 3-bit code space
// at its halfway point (code 4 of 0..7): ranks 0-3 ($,i,m,p) route left,
// rank 4 (s) alone routes right. This only holds with code-bit-boundary
// splitting, not a median-of-alphabet-count split.
func TestNodeIntervalLevel1(t *testing.T) {
	s := NewShape(mississippiCounts())
	a, b := s.NodeInterval(1, 2)
	if a != 0 || b != 3 {
		t.Errorf("level1 left interval = [%d,%d], want [0,3]", a, b)
	}
	if sz := s.NodeSize(a, b); sz != 8 {
		t.Errorf("level1 left size = %d, want 8", sz)
	}
	a, b = s.NodeInterval(1, 3)
	if a != 4 || b != 4 {
		t.Errorf("level1 right interval = [%d,%d], want [4,4]", a, b)
	}
	if sz := s.NodeSize(a, b); sz != 4 {
		t.Errorf("level1 right size = %d, want 4", sz)
	}
}

func TestNodeIntervalEmptyNode(t *testing.T) {
	s := NewShape(mississippiCounts())
	// v=7 at level 2 covers padded codes [6,7], entirely beyond sigma-1=4.
	a, b := s.NodeInterval(2, 7)
	if s.NodeSize(a, b) != 0 {
		t.Errorf("empty node size = %d, want 0", s.NodeSize(a, b))
	}
}

func TestNodeSizesSumToN(t *testing.T) {
	s := NewShape(mississippiCounts())
	for level := 0; level < s.Height; level++ {
		sizes := s.NodeSizes(level)
		sum := 0
		for _, sz := range sizes {
			sum += sz
		}
		if sum != s.N {
			t.Errorf("level %d: sizes sum to %d, want %d", level, sum, s.N)
		}
	}
}

func TestBitReverse(t *testing.T) {
	cases := []struct{ level, index, want int }{
		{0, 0, 0},
		{1, 0, 0},
		{1, 1, 1},
		{2, 1, 2}, // 01 -> 10
		{2, 2, 1}, // 10 -> 01
		{3, 1, 4}, // 001 -> 100
		{3, 3, 6}, // 011 -> 110
	}
	for _, c := range cases {
		if got := BitReverse(c.level, c.index); got != c.want {
			t.Errorf("BitReverse(%d,%d) = %d, want %d", c.level, c.index, got, c.want)
		}
	}
}

// Code must agree with NodeInterval: a symbol's routing bit at each level
// has to match which half of NodeInterval's split it falls into.
func TestCodeAgreesWithNodeInterval(t *testing.T) {
	s := NewShape(mississippiCounts())
	for sym := 0; sym < s.Sigma; sym++ {
		idx := 0
		for level := 0; level < s.Height; level++ {
			v := NodeID((1 << level) + idx)
			a, b := s.NodeInterval(level, v)
			if sym < a || sym > b {
				t.Fatalf("symbol %d not within its own node interval [%d,%d] at level %d", sym, a, b, level)
			}
			bit := Code(uint8(sym), s.Height, level)
			mid := a + (1<<uint(s.Height-level-1))
			wantBit := sym >= mid
			if bit != wantBit {
				t.Errorf("symbol %d level %d: Code=%v, want %v", sym, level, bit, wantBit)
			}
			if bit {
				idx = 2*idx + 1
			} else {
				idx = 2 * idx
			}
		}
	}
}
