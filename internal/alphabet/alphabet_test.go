package alphabet

import (
	"testing"

	"github.com/pdinklag/distwt-sub000/internal/histogram"
)

func mississippiEntries() []histogram.Entry {
	return []histogram.Entry{
		{Symbol: '$', Count: 1},
		{Symbol: 'i', Count: 4},
		{Symbol: 'm', Count: 1},
		{Symbol: 'p', Count: 2},
		{Symbol: 's', Count: 4},
	}
}

func TestRank(t *testing.T) {
	m := New(mississippiEntries())
	cases := map[uint32]uint32{
		'$': 0,
		'i': 1,
		'm': 2,
		'p': 3,
		's': 4,
	}
	for sym, want := range cases {
		if got := m.Rank(sym); got != want {
			t.Errorf("Rank(%q) = %d, want %d", sym, got, want)
		}
	}
}

func TestTransform(t *testing.T) {
	m := New(mississippiEntries())
	text := []byte("mississippi$")
	var got []uint32
	err := Transform(m, func(visit func(sym uint32)) error {
		for _, b := range text {
			visit(uint32(b))
		}
		return nil
	}, func(esym uint32) { got = append(got, esym) })
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	want := []uint32{2, 1, 4, 4, 1, 4, 4, 1, 3, 3, 1, 0}
	if len(got) != len(want) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("effective symbol %d = %d, want %d", i, got[i], w)
		}
	}
}
