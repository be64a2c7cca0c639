package coopchan

import (
	"context"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
)

// waitSignal is what the winning case's callback hands back to Wait. err is
// set when a registered send case was rejected by a concurrent close.
type waitSignal struct {
	c   *SelectCase
	err error
}

// Select multiplexes a fixed ordered set of cases and returns one ready case
// chosen with uniform random fairness. Poll probes without suspending; Wait
// suspends until a case is ready or the context is cancelled; Recv consumes
// the terminal state of a ready receive or external case.
//
// A Select is single-owner: Poll, Wait and Recv must not overlap. Reentrant
// use is reported with ErrCasesInUse. Channel-side wakeups from other
// goroutines are arbitrated by the stop token, so at most one case completes
// per wait and the rest are withdrawn.
type Select struct {
	cases      []*SelectCase
	pending    []*SelectCase
	fresh      bool // current permutation not yet consumed by a pick
	inUse      atomic.Bool
	unsafeMode atomic.Bool
	rnd        func() float64

	tokmu sync.Mutex
	token *stopToken
	wake  chan waitSignal

	ready *SelectCase // claimed receive/external case awaiting Recv
}

// NewSelect builds a select over the given inputs in order. Each input is a
// *SelectCase, a *Future (wrapped as an external-value case), or any other
// value (wrapped as an already-settled external case). NewSelect panics with
// ErrCaseRegistered when a case is already owned by another select.
func NewSelect(inputs ...any) *Select {
	s := &Select{rnd: rand.Float64}
	for i, in := range inputs {
		var c *SelectCase
		switch v := in.(type) {
		case *SelectCase:
			c = v
		case awaitable:
			c = newCase(KindWait)
			bindWait(c, v, v)
		default:
			c = newCase(KindWait)
			bindWait(c, ResolvedFuture[any](v), v)
		}
		if c.sel != nil {
			panic(ErrCaseRegistered)
		}
		c.sel = s
		c.caseIndex = i
		s.cases = append(s.cases, c)
		s.pending = append(s.pending, c)
	}
	s.reshuffle()
	s.fresh = true
	return s
}

// Cases returns the cases in input order.
func (s *Select) Cases() []*SelectCase { return slices.Clone(s.cases) }

// Len returns the number of still-pending cases. Channel cases stay pending
// forever; external cases leave the pending set once consumed.
func (s *Select) Len() int { return len(s.pending) }

// Pending returns the original external inputs of the still-pending
// external-value cases.
func (s *Select) Pending() []any {
	var out []any
	for _, c := range s.pending {
		if c.kind == KindWait && c.ext != nil {
			out = append(out, c.extOrig)
		}
	}
	return out
}

// SetUnsafe toggles the macrotask yield for this select.
func (s *Select) SetUnsafe(on bool) { s.unsafeMode.Store(on) }

// reshuffle is a Fisher-Yates pass over the pending set, restamping each
// case's pendingIndex.
func (s *Select) reshuffle() {
	for i := len(s.pending) - 1; i > 0; i-- {
		j := int(s.rnd() * float64(i+1))
		s.pending[i], s.pending[j] = s.pending[j], s.pending[i]
	}
	for i, c := range s.pending {
		c.pendingIndex = i
	}
}

// installToken makes tok the select's live token.
func (s *Select) installToken(stop bool) *stopToken {
	tok := &stopToken{stop: stop}
	s.tokmu.Lock()
	s.token = tok
	s.tokmu.Unlock()
	return tok
}

// gateFor binds tok to this select's token slot for a callback registration.
func (s *Select) gateFor(tok *stopToken) *commitGate {
	return &commitGate{mu: &s.tokmu, slot: &s.token, tok: tok}
}

// clearToken uninstalls tok and reports whether it had already been consumed
// by a claim.
func (s *Select) clearToken(tok *stopToken) bool {
	s.tokmu.Lock()
	defer s.tokmu.Unlock()
	if s.token == tok {
		s.token = nil
		return false
	}
	return true
}

func (s *Select) tokenConsumed(tok *stopToken) bool {
	s.tokmu.Lock()
	defer s.tokmu.Unlock()
	return s.token != tok
}

// Poll probes the cases without suspending. It returns the caseIndex of one
// ready case, or ok=false when none is ready. A ready send case has already
// delivered its value by the time Poll returns. Errors surface a closed send
// target or a failed sender callback.
func (s *Select) Poll() (idx int, ok bool, err error) {
	if s.inUse.Load() {
		return 0, false, ErrCasesInUse
	}
	return s.poll()
}

func (s *Select) poll() (int, bool, error) {
	if s.ready != nil {
		return s.ready.caseIndex, true, nil
	}
	if !s.fresh {
		s.reshuffle()
		s.fresh = true
	}
	for _, c := range s.pending {
		ready, err := c.probe(s)
		if err != nil {
			return 0, false, err
		}
		if ready {
			s.fresh = false
			if c.kind != KindSend {
				s.ready = c
			}
			return c.caseIndex, true, nil
		}
	}
	return 0, false, nil
}

// Wait suspends until one case is ready and returns its caseIndex. Exactly
// one case completes; every other registered callback is withdrawn before
// Wait returns. Cancellation of ctx rejects the wait with the context cause,
// unless a case completed first, in which case the completion wins. Unless
// the select is in unsafe mode, Wait yields to the scheduler once per call.
func (s *Select) Wait(ctx context.Context) (int, error) {
	if s.inUse.Load() {
		return 0, ErrCasesInUse
	}
	if ctx == nil {
		ctx = context.Background()
	}
	gen := YieldGeneration()
	if ctx.Err() != nil {
		return 0, context.Cause(ctx)
	}

	if idx, ok, err := s.poll(); err != nil {
		return 0, err
	} else if ok {
		awaitYield(s.unsafeMode.Load(), gen)
		return idx, nil
	}

	s.inUse.Store(true)
	defer s.inUse.Store(false)

	tok := s.installToken(true)
	s.wake = make(chan waitSignal, 1)

	// Registration pass: attach one token-bound callback per pending case.
	// The first completion wins; once the token is consumed there is no
	// point registering the rest.
	var regErr error
	registered := make([]*SelectCase, 0, len(s.pending))
	for _, c := range s.pending {
		live, err := c.register(s, tok)
		if err != nil {
			regErr = err
			break
		}
		if live {
			registered = append(registered, c)
		}
		if s.tokenConsumed(tok) {
			break
		}
	}

	var (
		sig         waitSignal
		won         bool
		cancelCause error
	)
	switch {
	case regErr != nil:
		// A completion that raced the failing registration must not be
		// lost; it wins and the registration error resurfaces on the next
		// wait.
		if s.clearToken(tok) {
			sig = <-s.wake
			won = true
			regErr = nil
		}
	case s.tokenConsumed(tok):
		sig = <-s.wake
		won = true
	default:
		select {
		case sig = <-s.wake:
			won = true
		case <-ctx.Done():
			if s.clearToken(tok) {
				sig = <-s.wake
				won = true
			} else {
				cancelCause = context.Cause(ctx)
			}
		}
	}

	// Stop sweep: withdraw every live registration except the winner's,
	// which the delivering side already dequeued. Must complete before any
	// user-visible resolution of the wait.
	for _, c := range registered {
		if won && c == sig.c {
			c.withdraw = nil
			continue
		}
		if c.withdraw != nil {
			c.withdraw()
			c.withdraw = nil
		}
	}
	if !won {
		s.clearToken(tok)
	}
	s.wake = nil

	switch {
	case regErr != nil:
		return 0, regErr
	case cancelCause != nil:
		return 0, cancelCause
	case sig.err != nil:
		return 0, sig.err
	}
	s.fresh = false
	if sig.c.kind != KindSend {
		s.ready = sig.c
	}
	awaitYield(s.unsafeMode.Load(), gen)
	return sig.c.caseIndex, nil
}

// Recv consumes the terminal state of a ready case.
//
// For a receive case it returns the delivered value with done=false, or the
// channel default with done=true when the channel closed. The terminal
// markers are cleared so the case is reusable by the next Poll/Wait.
//
// For an external-value case it returns the settled value (done=true) or the
// stored error, and removes the case from the pending set.
//
// Send cases have no consumable state; Recv reports ErrInvalidCase for them,
// for cases of other selects, and for cases with no pending result.
func (s *Select) Recv(c *SelectCase) (value any, done bool, err error) {
	if s.inUse.Load() {
		return nil, false, ErrCasesInUse
	}
	if c == nil || c.sel != s {
		return nil, false, ErrInvalidCase
	}
	switch c.kind {
	case KindRecv:
		if !c.hasNext {
			return nil, false, ErrInvalidCase
		}
		value = c.next
		done = !c.ok
		c.next, c.ok, c.hasNext = nil, false, false
		if s.ready == c {
			s.ready = nil
		}
		return value, done, nil
	case KindWait:
		if c.ext == nil {
			return nil, false, ErrInvalidCase
		}
		v, ferr, settled := c.ext.peek()
		if !settled {
			return nil, false, ErrInvalidCase
		}
		s.splice(c)
		if s.ready == c {
			s.ready = nil
		}
		if ferr != nil {
			return nil, true, ferr
		}
		return v, true, nil
	default:
		return nil, false, ErrInvalidCase
	}
}

// RecvAs is Recv with the value asserted to T.
func RecvAs[T any](s *Select, c *SelectCase) (v T, done bool, err error) {
	av, done, err := s.Recv(c)
	if err != nil || av == nil {
		return v, done, err
	}
	return av.(T), done, nil
}

// splice removes an external case from the pending set, decrementing the
// pendingIndex of every successor.
func (s *Select) splice(c *SelectCase) {
	i := c.pendingIndex
	if i < 0 || i >= len(s.pending) || s.pending[i] != c {
		return
	}
	s.pending = slices.Delete(s.pending, i, i+1)
	for j := i; j < len(s.pending); j++ {
		s.pending[j].pendingIndex = j
	}
	c.pendingIndex = -1
}
