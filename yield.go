package coopchan

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// The yield service breaks the cycle where two tasks that only ever hand
// values to each other never give the scheduler a chance to run anything
// else. Send, Receive and Select.Wait each await one yield per call unless
// the generation already advanced during the call, so a busy pipeline pays
// for at most one yield per hop.

var yieldGen atomic.Int64

var yieldState struct {
	mu      sync.Mutex
	pending chan struct{}
}

// YieldGeneration returns the current yield generation. The counter
// increments once per completed yield and wraps around on overflow.
func YieldGeneration() int64 {
	return yieldGen.Load()
}

// YieldToMacrotask returns a handle that is closed after control has been
// handed back to the scheduler once. The handle is self-conflating: every
// caller between two yields receives the same handle, and a single yield
// unblocks them all. The generation is incremented before the handle closes.
func YieldToMacrotask() <-chan struct{} {
	yieldState.mu.Lock()
	defer yieldState.mu.Unlock()
	if yieldState.pending == nil {
		ch := make(chan struct{})
		yieldState.pending = ch
		go func() {
			runtime.Gosched()
			yieldState.mu.Lock()
			yieldGen.Add(1)
			yieldState.pending = nil
			yieldState.mu.Unlock()
			close(ch)
		}()
	}
	return yieldState.pending
}

// awaitYield blocks on one macrotask yield unless the generation already
// moved past gen during the current operation, or the caller opted out.
func awaitYield(unsafeMode bool, gen int64) {
	if unsafeMode || YieldGeneration() != gen {
		return
	}
	<-YieldToMacrotask()
}
