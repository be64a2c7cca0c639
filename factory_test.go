package coopchan

import (
	"context"
	"errors"
	"testing"
)

func TestFactory_RebindReceive(t *testing.T) {
	f := NewSelectFactory(KindRecv)
	sel := f.Select()

	// Unbound slot behaves like a nil channel: never ready.
	if _, ok, err := sel.Poll(); ok || err != nil {
		t.Fatalf("poll unbound: %v %v", ok, err)
	}

	a := NewChannel[int](1)
	a.TrySend(1)
	if err := BindRecv(f, 0, a); err != nil {
		t.Fatalf("bind: %v", err)
	}
	idx, err := sel.Wait(context.Background())
	if err != nil || idx != 0 {
		t.Fatalf("wait: %v %v", idx, err)
	}
	if v, done, err := RecvAs[int](sel, sel.Cases()[0]); err != nil || done || v != 1 {
		t.Fatalf("recv: %v %v %v", v, done, err)
	}

	// Swap the target; the select (and its fairness state) is reused.
	b := NewChannel[int](1)
	b.TrySend(2)
	if err := BindRecv(f, 0, b); err != nil {
		t.Fatalf("rebind: %v", err)
	}
	idx, err = sel.Wait(context.Background())
	if err != nil || idx != 0 {
		t.Fatalf("wait: %v %v", idx, err)
	}
	if v, _, err := RecvAs[int](sel, sel.Cases()[0]); err != nil || v != 2 {
		t.Fatalf("recv: %v %v", v, err)
	}
}

func TestFactory_KindMismatch(t *testing.T) {
	f := NewSelectFactory(KindRecv, KindSend)
	ch := NewChannel[int](0)
	if err := BindSend(f, 0, ch, func() int { return 1 }); !errors.Is(err, ErrInvalidCase) {
		t.Fatalf("bind send on recv slot: %v", err)
	}
	if err := BindRecv(f, 1, ch); !errors.Is(err, ErrInvalidCase) {
		t.Fatalf("bind recv on send slot: %v", err)
	}
	if err := BindRecv(f, 5, ch); !errors.Is(err, ErrInvalidCase) {
		t.Fatalf("bind out of range: %v", err)
	}
}

func TestFactory_WaitSlotRejoinsPending(t *testing.T) {
	f := NewSelectFactory(KindWait)
	sel := f.Select()

	fut := ResolvedFuture("x")
	if err := BindWait(f, 0, fut); err != nil {
		t.Fatalf("bind: %v", err)
	}
	idx, ok, err := sel.Poll()
	if err != nil || !ok || idx != 0 {
		t.Fatalf("poll: %v %v %v", idx, ok, err)
	}
	if v, done, err := sel.Recv(sel.Cases()[0]); err != nil || !done || v != "x" {
		t.Fatalf("recv: %v %v %v", v, done, err)
	}
	if sel.Len() != 0 {
		t.Fatalf("pending = %d after consume", sel.Len())
	}

	// Rebinding a consumed external slot puts it back in play.
	if err := BindWait(f, 0, ResolvedFuture("y")); err != nil {
		t.Fatalf("rebind: %v", err)
	}
	if sel.Len() != 1 {
		t.Fatalf("pending = %d after rebind", sel.Len())
	}
	if idx, ok, err := sel.Poll(); err != nil || !ok || idx != 0 {
		t.Fatalf("poll: %v %v %v", idx, ok, err)
	}
	if v, _, err := sel.Recv(sel.Cases()[0]); err != nil || v != "y" {
		t.Fatalf("recv: %v %v", v, err)
	}
}

func TestFactory_SendSlots(t *testing.T) {
	f := NewSelectFactory(KindSend, KindSend)
	sel := f.Select()
	a := NewChannel[int](1)
	b := NewChannel[int](1)
	if err := BindSend(f, 0, a, func() int { return 1 }); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := BindSend(f, 1, b, func() int { return 2 }); err != nil {
		t.Fatalf("bind: %v", err)
	}
	seen := map[int]bool{}
	for i := 0; i < 2; i++ {
		idx, err := sel.Wait(context.Background())
		if err != nil {
			t.Fatalf("wait: %v", err)
		}
		seen[idx] = true
		// Unbind whichever slot delivered so the other case must win next;
		// both values stay buffered for the final count.
		if idx == 0 {
			f.Unbind(0)
		} else {
			f.Unbind(1)
		}
	}
	if !seen[0] || !seen[1] {
		t.Fatalf("cases seen: %v", seen)
	}
	if a.Len()+b.Len() != 2 {
		t.Fatalf("deliveries = %d", a.Len()+b.Len())
	}
}
