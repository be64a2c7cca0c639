package coopchan

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFuture_ResolveOnce(t *testing.T) {
	f := NewFuture[int]()
	if _, _, ok := f.Try(); ok {
		t.Fatal("settled before resolve")
	}
	if !f.Resolve(1) {
		t.Fatal("first resolve lost")
	}
	if f.Resolve(2) || f.Reject(errors.New("late")) {
		t.Fatal("second settle won")
	}
	v, err, ok := f.Try()
	if !ok || err != nil || v != 1 {
		t.Fatalf("try: %v %v %v", v, err, ok)
	}
	select {
	case <-f.Done():
	default:
		t.Fatal("done not closed")
	}
}

func TestFuture_Await(t *testing.T) {
	f := NewFuture[string]()
	go func() {
		time.Sleep(5 * time.Millisecond)
		f.Resolve("ok")
	}()
	v, err := f.Await(context.Background())
	if err != nil || v != "ok" {
		t.Fatalf("await: %v %v", v, err)
	}
}

func TestFuture_AwaitCancellation(t *testing.T) {
	f := NewFuture[string]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Await(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("await: %v", err)
	}
}

func TestFuture_SubscribeBeforeAndAfterSettle(t *testing.T) {
	f := NewFuture[int]()
	fired := 0
	sub := f.subscribe(func(v any, err error) {
		if v != 3 || err != nil {
			t.Errorf("handler: %v %v", v, err)
		}
		fired++
	})
	if sub == nil {
		t.Fatal("pending subscribe returned nil")
	}
	f.Resolve(3)
	if fired != 1 {
		t.Fatalf("fired = %d", fired)
	}
	// Settled futures run handlers inline.
	if s := f.subscribe(func(v any, err error) { fired++ }); s != nil {
		t.Fatal("settled subscribe returned a subscription")
	}
	if fired != 2 {
		t.Fatalf("fired = %d", fired)
	}
}

func TestFuture_Unsubscribe(t *testing.T) {
	f := NewFuture[int]()
	fired := false
	sub := f.subscribe(func(any, error) { fired = true })
	f.unsubscribe(sub)
	f.unsubscribe(sub) // double remove tolerated
	f.unsubscribe(nil)
	f.Resolve(1)
	if fired {
		t.Fatal("withdrawn handler fired")
	}
}

func TestFuture_RejectedState(t *testing.T) {
	boom := errors.New("boom")
	f := RejectedFuture[int](boom)
	_, err, ok := f.Try()
	if !ok || !errors.Is(err, boom) {
		t.Fatalf("try: %v %v", err, ok)
	}
	if _, err := f.Await(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("await: %v", err)
	}
}
