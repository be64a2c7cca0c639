package coopchan

import "testing"

func TestRing_FIFOWrapAround(t *testing.T) {
	r := NewRing[int](3)
	for i := 0; i < 2; i++ {
		if !r.Push(i) {
			t.Fatalf("push %d failed", i)
		}
	}
	if v, ok := r.Shift(); !ok || v != 0 {
		t.Fatalf("shift: got %v %v", v, ok)
	}
	// Wrap: head is now 1, pushing two more crosses the boundary.
	if !r.Push(2) || !r.Push(3) {
		t.Fatal("push after shift failed")
	}
	if !r.Full() {
		t.Fatal("expected full")
	}
	if r.Push(4) {
		t.Fatal("push on full succeeded")
	}
	for want := 1; want <= 3; want++ {
		v, ok := r.Shift()
		if !ok || v != want {
			t.Fatalf("shift: got %v %v, want %d", v, ok, want)
		}
	}
	if _, ok := r.Shift(); ok {
		t.Fatal("shift on empty succeeded")
	}
}

func TestRing_PeekAndReset(t *testing.T) {
	r := NewRing[string](2)
	if _, ok := r.Peek(); ok {
		t.Fatal("peek on empty succeeded")
	}
	r.Push("a")
	r.Push("b")
	if v, ok := r.Peek(); !ok || v != "a" {
		t.Fatalf("peek: got %v %v", v, ok)
	}
	if r.Len() != 2 {
		t.Fatalf("len = %d", r.Len())
	}
	r.Reset()
	if !r.Empty() {
		t.Fatal("expected empty after reset")
	}
	// Reset does not touch slots; Clear does.
	r2 := NewRing[*int](1)
	n := 7
	r2.Push(&n)
	r2.Clear()
	if !r2.Empty() {
		t.Fatal("expected empty after clear")
	}
	if r2.items[0] != nil {
		t.Fatal("clear left a live reference")
	}
}

func TestRing_PanicsOnBadCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewRing[int](0)
}
