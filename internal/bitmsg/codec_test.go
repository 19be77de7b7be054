package bitmsg

import (
	"testing"

	"github.com/pdinklag/distwt-sub000/internal/bitvec"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	bv := bitvec.New(20)
	bits := []bool{
		false, true, true, false, true, false, false, true, true, true,
		false, false, true, false, true, true, false, false, true, false,
	}
	for i, b := range bits {
		bv.Set(i, b)
	}

	p, q := 3, 17
	msg := EncodeInterval(bv, p, q, 100, 100+uint64(q-p))

	if got := Len(msg); got != q-p+1 {
		t.Fatalf("Len = %d, want %d", got, q-p+1)
	}

	target := bitvec.New(30)
	globFirst, globLast := DecodeInterval(msg, target, 100-5)
	if globFirst != 100 {
		t.Errorf("globFirst = %d, want 100", globFirst)
	}
	if globLast != 100+uint64(q-p) {
		t.Errorf("globLast = %d, want %d", globLast, 100+uint64(q-p))
	}

	for i := p; i <= q; i++ {
		// workerBase passed to Decode was 95; globFirst was 100, so
		// localOffs = 100-95 = 5, matching bit i-p placed at 5+(i-p).
		localIdx := (100 - 95) + (i - p)
		want := bits[i]
		if got := target.Get(localIdx); got != want {
			t.Errorf("bit %d (local %d) = %v, want %v", i, localIdx, got, want)
		}
	}
}

func TestEncodeIntervalSingleWord(t *testing.T) {
	bv := bitvec.New(8)
	bv.Set(2, true)
	bv.Set(5, true)
	msg := EncodeInterval(bv, 0, 7, 0, 7)
	if len(msg) != 3 {
		t.Fatalf("len(msg) = %d, want 3 (glob_first, glob_last, 1 word)", len(msg))
	}
	want := uint64(1<<2 | 1<<5)
	if msg[2] != want {
		t.Errorf("payload word = %b, want %b", msg[2], want)
	}
}
