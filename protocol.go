package coopchan

import (
	"sync"
	"unsafe"
)

// SenderFunc is the sender-side callback contract. It is invoked at most
// once per registration; a callback withdrawn before delivery is never
// invoked. With ok true it must return the value to deliver; a non-nil error
// aborts that single send. With ok false it must return a non-nil error,
// conventionally the err it was handed; returning the identity-same error
// value is treated as a sentinel and swallowed by the channel, so the
// callback keeps its return-type discipline without inventing new errors.
type SenderFunc[T any] func(err error, ok bool) (T, error)

// ReceiverFunc is the receiver-side callback contract. It is invoked at most
// once per registration; a callback withdrawn before delivery is never
// invoked. With ok true, v is the delivered value. With ok false the channel is
// closed and drained, and v is the channel's default value (or the zero
// value when no default factory is configured).
//
// Receiver callbacks must not block and must not call back into the channel.
type ReceiverFunc[T any] func(v T, ok bool)

// SenderCallback is a registration record wrapping a SenderFunc. Records are
// compared by identity, which is what RemoveSender matches on; register the
// same record you intend to withdraw.
type SenderCallback[T any] struct {
	fn   SenderFunc[T]
	gate *commitGate // nil means unconditional
}

// NewSenderCallback wraps fn in a fresh registration record.
func NewSenderCallback[T any](fn SenderFunc[T]) *SenderCallback[T] {
	return &SenderCallback[T]{fn: fn}
}

// ReceiverCallback is a registration record wrapping a ReceiverFunc. Records
// are compared by identity; see SenderCallback.
type ReceiverCallback[T any] struct {
	fn   ReceiverFunc[T]
	gate *commitGate // nil means unconditional
}

// NewReceiverCallback wraps fn in a fresh registration record.
func NewReceiverCallback[T any](fn ReceiverFunc[T]) *ReceiverCallback[T] {
	return &ReceiverCallback[T]{fn: fn}
}

// stopToken authorizes exactly one case of a select to complete one wait.
// The stop flag distinguishes a true suspension (pending registrations must
// be withdrawn on wakeup) from a synchronous probe (nothing to clean up).
type stopToken struct {
	stop bool
}

// commitGate binds a queued callback to its select's token slot. Before a
// channel invokes a queued callback it claims the gate: the claim succeeds
// only while the slot still holds the token captured at registration time,
// and consumes the token so sibling callbacks of the same wait are refused.
//
// This is the lock-based rendering of the runtime's sudog.selectDone CAS: a
// channel that finds a waiter whose select already committed elsewhere skips
// the waiter instead of delivering into it.
type commitGate struct {
	mu   *sync.Mutex
	slot **stopToken
	tok  *stopToken
}

// claimPair atomically consumes the tokens behind both gates, or neither.
// A nil gate is unconditional and always claimable. okA/okB report per-gate
// liveness; consumption happens only when both are live. paired is false
// when both gates are backed by the same token: a select cannot rendezvous
// with itself, mirroring the runtime's sg.g == gp skip, and neither token is
// consumed in that case.
func claimPair(a, b *commitGate) (okA, okB, paired bool) {
	if a != nil && b != nil && a.tok == b.tok {
		return true, true, false
	}
	m1, m2 := gateMu(a), gateMu(b)
	if m1 == m2 {
		m2 = nil
	}
	// Total order on select mutexes by address keeps concurrent pair claims
	// deadlock free.
	if m1 != nil && m2 != nil && uintptr(unsafe.Pointer(m2)) < uintptr(unsafe.Pointer(m1)) {
		m1, m2 = m2, m1
	}
	if m1 != nil {
		m1.Lock()
	}
	if m2 != nil {
		m2.Lock()
	}
	okA = a == nil || *a.slot == a.tok
	okB = b == nil || *b.slot == b.tok
	if okA && okB {
		if a != nil {
			*a.slot = nil
		}
		if b != nil {
			*b.slot = nil
		}
	}
	if m2 != nil {
		m2.Unlock()
	}
	if m1 != nil {
		m1.Unlock()
	}
	return okA, okB, true
}

// claim consumes a single gate's token. A nil gate always succeeds.
func claim(g *commitGate) bool {
	ok, _, _ := claimPair(g, nil)
	return ok
}

func gateMu(g *commitGate) *sync.Mutex {
	if g == nil {
		return nil
	}
	return g.mu
}
