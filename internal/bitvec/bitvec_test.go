package bitvec

import "testing"

func TestSetGet(t *testing.T) {
	v := New(130)
	v.Set(0, true)
	v.Set(63, true)
	v.Set(64, true)
	v.Set(129, true)
	for i := 0; i < 130; i++ {
		want := i == 0 || i == 63 || i == 64 || i == 129
		if got := v.Get(i); got != want {
			t.Errorf("bit %d: got %v, want %v", i, got, want)
		}
	}
}

func TestPopCount(t *testing.T) {
	v := New(70)
	for _, i := range []int{0, 5, 63, 64, 69} {
		v.Set(i, true)
	}
	if got := v.PopCount(); got != 5 {
		t.Errorf("PopCount = %d, want 5", got)
	}
}

func TestSlice(t *testing.T) {
	v := New(12)
	for i, b := range []bool{false, true, true, false, true, false, false, true, true, true, true, true} {
		v.Set(i, b)
	}
	s := v.Slice(3, 9)
	want := []bool{false, true, false, false, true, true}
	if s.Len() != len(want) {
		t.Fatalf("Slice length = %d, want %d", s.Len(), len(want))
	}
	for i, b := range want {
		if s.Get(i) != b {
			t.Errorf("slice bit %d = %v, want %v", i, s.Get(i), b)
		}
	}
}

func TestConcat(t *testing.T) {
	a := New(3)
	a.Set(1, true)
	b := New(2)
	b.Set(0, true)
	c := Concat(a, b)
	want := []bool{false, true, false, true, false}
	if c.Len() != len(want) {
		t.Fatalf("Concat length = %d, want %d", c.Len(), len(want))
	}
	for i, w := range want {
		if c.Get(i) != w {
			t.Errorf("concat bit %d = %v, want %v", i, c.Get(i), w)
		}
	}
}

func TestBuilder(t *testing.T) {
	b := NewBuilder(4)
	for _, bit := range []bool{true, false, true, true} {
		b.Append(bit)
	}
	v := b.Vector()
	want := []bool{true, false, true, true}
	for i, w := range want {
		if v.Get(i) != w {
			t.Errorf("builder bit %d = %v, want %v", i, v.Get(i), w)
		}
	}
}
