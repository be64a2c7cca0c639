package coopchan

import (
	"testing"
	"time"
)

func TestYield_GenerationAdvances(t *testing.T) {
	before := YieldGeneration()
	select {
	case <-YieldToMacrotask():
	case <-time.After(time.Second):
		t.Fatal("yield never resolved")
	}
	if YieldGeneration() == before {
		t.Fatal("generation did not advance")
	}
}

func TestYield_SelfConflating(t *testing.T) {
	gen := YieldGeneration()
	h1 := YieldToMacrotask()
	h2 := YieldToMacrotask()
	// Unless the tick already fired between the two calls, both callers
	// share one handle and one tick releases them both.
	if YieldGeneration() == gen && h1 != h2 {
		t.Fatal("handles not conflated")
	}
	<-h1
	select {
	case <-h2:
	case <-time.After(time.Second):
		t.Fatal("second handle never resolved")
	}
}

func TestYield_UnsafeSkips(t *testing.T) {
	gen := YieldGeneration()
	done := make(chan struct{})
	go func() {
		awaitYield(true, gen)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unsafe yield blocked")
	}
}
