package coopchan

// CaseKind discriminates the three case variants of a Select.
type CaseKind uint8

const (
	// KindSend is a channel send case.
	KindSend CaseKind = iota
	// KindRecv is a channel receive case.
	KindRecv
	// KindWait is an external-value (Future) case.
	KindWait
)

// SelectCase is one participant of a Select: a channel send, a channel
// receive, or an external Future. Cases are built with CaseSend, CaseRecv
// and CaseWait and registered with exactly one Select for their lifetime.
//
// The generic constructors erase the element type into a fixed set of
// closures, the same move reflect.SelectCase makes; the owning Select only
// ever sees this record.
type SelectCase struct {
	kind         CaseKind
	sel          *Select
	caseIndex    int // stable position in the select's input list
	pendingIndex int // volatile position in the shuffled pending set

	// Bound by the constructors (and rebound by SelectFactory).
	probe    func(s *Select) (ready bool, err error)
	register func(s *Select, tok *stopToken) (live bool, err error)
	withdraw func()

	// Receive-case terminal state: value and ok of a claimed delivery that
	// has not been consumed by Recv yet.
	next    any
	ok      bool
	hasNext bool

	// Send-case terminal marker (true = delivered) and close rejection.
	sent    bool
	sendErr error

	// External case.
	ext     awaitable
	extOrig any // original input value, reported by Pending
}

// Kind returns the case variant.
func (c *SelectCase) Kind() CaseKind { return c.kind }

// Index returns the case's stable position in the select's input list, or -1
// before registration.
func (c *SelectCase) Index() int { return c.caseIndex }

func newCase(kind CaseKind) *SelectCase {
	return &SelectCase{kind: kind, caseIndex: -1, pendingIndex: -1}
}

// CaseSend builds a send case: when chosen, expr is evaluated and its result
// delivered to ch. A closed target makes the case fail Poll/Wait with
// ErrSendOnClosedChannel, the analogue of a send on a closed Go channel.
func CaseSend[T any](ch *Channel[T], expr func() T) *SelectCase {
	c := newCase(KindSend)
	bindSend(c, ch, expr)
	return c
}

// CaseRecv builds a receive case over ch.
func CaseRecv[T any](ch *Channel[T]) *SelectCase {
	c := newCase(KindRecv)
	bindRecv(c, ch)
	return c
}

// CaseWait builds an external-value case over f. The case becomes ready when
// f settles, stays ready until consumed by Recv, and is then removed from
// the select's pending set. A never-settling future is the idiom for Go's
// nil-channel case.
func CaseWait[T any](f *Future[T]) *SelectCase {
	c := newCase(KindWait)
	bindWait(c, f, f)
	return c
}

func bindSend[T any](c *SelectCase, ch *Channel[T], expr func() T) {
	c.probe = func(s *Select) (bool, error) {
		c.sent, c.sendErr = false, nil
		tok := s.installToken(false)
		fired := make(chan struct{}, 1)
		cb := &SenderCallback[T]{
			gate: s.gateFor(tok),
			fn: func(err error, ok bool) (T, error) {
				if !ok {
					c.sendErr = err
					fired <- struct{}{}
					var zero T
					return zero, err
				}
				v := expr()
				c.sent = true
				fired <- struct{}{}
				return v, nil
			},
		}
		queued, err := ch.AddSender(cb)
		if err != nil {
			s.clearToken(tok)
			return false, err
		}
		if queued {
			ch.RemoveSender(cb)
		}
		if s.clearToken(tok) {
			<-fired // delivery won the race; wait for the markers
			if c.sendErr != nil {
				return false, c.sendErr
			}
			return true, nil
		}
		return false, nil
	}
	c.register = func(s *Select, tok *stopToken) (bool, error) {
		c.sent, c.sendErr = false, nil
		cb := &SenderCallback[T]{
			gate: s.gateFor(tok),
			fn: func(err error, ok bool) (T, error) {
				if !ok {
					s.wake <- waitSignal{c: c, err: err}
					var zero T
					return zero, err
				}
				v := expr()
				c.sent = true
				s.wake <- waitSignal{c: c}
				return v, nil
			},
		}
		queued, err := ch.AddSender(cb)
		if err != nil {
			return false, err
		}
		if !queued {
			return false, nil
		}
		c.withdraw = func() { ch.RemoveSender(cb) }
		return true, nil
	}
}

func bindRecv[T any](c *SelectCase, ch *Channel[T]) {
	c.probe = func(s *Select) (bool, error) {
		if c.hasNext {
			// Terminal state from a prior partial operation.
			return true, nil
		}
		tok := s.installToken(false)
		fired := make(chan struct{}, 1)
		cb := &ReceiverCallback[T]{
			gate: s.gateFor(tok),
			fn: func(v T, ok bool) {
				c.next, c.ok, c.hasNext = v, ok, true
				fired <- struct{}{}
			},
		}
		if ch.AddReceiver(cb) {
			ch.RemoveReceiver(cb)
		}
		if s.clearToken(tok) {
			<-fired
			return true, nil
		}
		return false, nil
	}
	c.register = func(s *Select, tok *stopToken) (bool, error) {
		cb := &ReceiverCallback[T]{
			gate: s.gateFor(tok),
			fn: func(v T, ok bool) {
				c.next, c.ok, c.hasNext = v, ok, true
				s.wake <- waitSignal{c: c}
			},
		}
		if !ch.AddReceiver(cb) {
			return false, nil
		}
		c.withdraw = func() { ch.RemoveReceiver(cb) }
		return true, nil
	}
}

func bindWait(c *SelectCase, a awaitable, orig any) {
	c.ext, c.extOrig = a, orig
	c.probe = func(s *Select) (bool, error) {
		_, _, settled := a.peek()
		return settled, nil
	}
	c.register = func(s *Select, tok *stopToken) (bool, error) {
		gate := s.gateFor(tok)
		sub := a.subscribe(func(v any, err error) {
			if !claim(gate) {
				return // stale wakeup; the settled state stays observable
			}
			s.wake <- waitSignal{c: c}
		})
		if sub == nil {
			return false, nil // already settled, handler ran inline
		}
		c.withdraw = func() { a.unsubscribe(sub) }
		return true, nil
	}
}

// bindNothing leaves a factory slot unbound: never ready, never wakes. The
// behavioural analogue of a nil channel in a Go select.
func bindNothing(c *SelectCase) {
	c.ext, c.extOrig = nil, nil
	c.probe = func(*Select) (bool, error) { return false, nil }
	c.register = func(*Select, *stopToken) (bool, error) { return false, nil }
}
