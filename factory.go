package coopchan

// SelectFactory is a reusable select: the underlying Select — and with it
// the fairness state and the case records — is preserved across iterations,
// while the targets and send values of its slots are swapped between waits.
// Slot kinds are fixed at construction; Bind* rebinds a slot to a new
// channel, expression or future.
//
// A slot left unbound (or explicitly Unbind-ed) behaves like a nil channel
// in a Go select: never ready.
type SelectFactory struct {
	sel *Select
}

// NewSelectFactory creates a factory with one unbound slot per kind, in
// order.
func NewSelectFactory(kinds ...CaseKind) *SelectFactory {
	inputs := make([]any, len(kinds))
	for i, k := range kinds {
		c := newCase(k)
		bindNothing(c)
		inputs[i] = c
	}
	return &SelectFactory{sel: NewSelect(inputs...)}
}

// Select returns the underlying select. Poll, Wait and Recv happen there.
func (f *SelectFactory) Select() *Select { return f.sel }

func (f *SelectFactory) slot(i int, kind CaseKind) (*SelectCase, error) {
	if f.sel.inUse.Load() {
		return nil, ErrCasesInUse
	}
	if i < 0 || i >= len(f.sel.cases) {
		return nil, ErrInvalidCase
	}
	c := f.sel.cases[i]
	if c.kind != kind {
		return nil, ErrInvalidCase
	}
	// Rebinding invalidates any unconsumed terminal state.
	c.next, c.ok, c.hasNext = nil, false, false
	c.sent, c.sendErr = false, nil
	if f.sel.ready == c {
		f.sel.ready = nil
	}
	if c.pendingIndex < 0 {
		// A consumed external slot rejoins the pending set at the tail; the
		// next reshuffle gives it a fair position.
		c.pendingIndex = len(f.sel.pending)
		f.sel.pending = append(f.sel.pending, c)
	}
	return c, nil
}

// BindSend points send slot i at ch, with expr producing the value at
// delivery time.
func BindSend[T any](f *SelectFactory, i int, ch *Channel[T], expr func() T) error {
	c, err := f.slot(i, KindSend)
	if err != nil {
		return err
	}
	bindSend(c, ch, expr)
	return nil
}

// BindRecv points receive slot i at ch.
func BindRecv[T any](f *SelectFactory, i int, ch *Channel[T]) error {
	c, err := f.slot(i, KindRecv)
	if err != nil {
		return err
	}
	bindRecv(c, ch)
	return nil
}

// BindWait points external slot i at fut.
func BindWait[T any](f *SelectFactory, i int, fut *Future[T]) error {
	c, err := f.slot(i, KindWait)
	if err != nil {
		return err
	}
	bindWait(c, fut, fut)
	return nil
}

// Unbind detaches slot i, leaving it never-ready until rebound.
func (f *SelectFactory) Unbind(i int) error {
	if f.sel.inUse.Load() {
		return ErrCasesInUse
	}
	if i < 0 || i >= len(f.sel.cases) {
		return ErrInvalidCase
	}
	c := f.sel.cases[i]
	c.next, c.ok, c.hasNext = nil, false, false
	c.sent, c.sendErr = false, nil
	if f.sel.ready == c {
		f.sel.ready = nil
	}
	bindNothing(c)
	return nil
}
