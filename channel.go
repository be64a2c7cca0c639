package coopchan

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
)

// Channel is a typed FIFO rendezvous between senders and receivers. A
// capacity of zero makes the channel unbuffered (strict rendezvous); a
// positive capacity buffers up to that many values between a send and its
// matching receive.
//
// The low-level AddSender/AddReceiver/Remove* surface exposes the callback
// protocol that Send, Receive and Select are built on. Callbacks registered
// there run under the channel lock: they must not block and must not call
// back into the channel.
type Channel[T any] struct {
	mu     sync.Mutex
	buf    *Ring[T]               // nil when capacity is 0
	sendq  []*SenderCallback[T]   // waiting senders, FIFO
	recvq  []*ReceiverCallback[T] // waiting receivers, FIFO
	open   bool
	def    func() T // closed-channel default factory, may be nil
	unsafe atomic.Bool

	sent     atomic.Uint64
	received atomic.Uint64
}

// ChannelOption configures a Channel at construction.
type ChannelOption[T any] func(*Channel[T])

// WithDefault installs a factory producing the value handed to receivers of
// a closed, drained channel. Without it, such receivers get the zero value.
func WithDefault[T any](fn func() T) ChannelOption[T] {
	return func(c *Channel[T]) { c.def = fn }
}

// WithUnsafe disables the macrotask yield for this channel. Only for callers
// that know the channel cannot form a scheduler-starving cycle.
func WithUnsafe[T any]() ChannelOption[T] {
	return func(c *Channel[T]) { c.unsafe.Store(true) }
}

// NewChannel creates a channel with the given capacity (0 for unbuffered).
func NewChannel[T any](capacity int, opts ...ChannelOption[T]) *Channel[T] {
	c := &Channel[T]{open: true}
	if capacity > 0 {
		c.buf = NewRing[T](capacity)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cap returns the buffer capacity.
func (c *Channel[T]) Cap() int {
	if c.buf == nil {
		return 0
	}
	return c.buf.Cap()
}

// Len returns the number of buffered values.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.buf == nil {
		return 0
	}
	return c.buf.Len()
}

// Concurrency returns pending senders minus pending receivers: positive when
// senders are blocked on the channel, negative when receivers are.
func (c *Channel[T]) Concurrency() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sendq) - len(c.recvq)
}

// SetUnsafe toggles the macrotask yield for this channel.
func (c *Channel[T]) SetUnsafe(on bool) { c.unsafe.Store(on) }

// ChannelStats is a snapshot of a channel's delivery counters. A value
// counts as sent once it reaches a receiver or a buffer slot, and as
// received once a receiver observes it.
type ChannelStats struct {
	Sent     uint64
	Received uint64
}

// Stats returns the current delivery counters.
func (c *Channel[T]) Stats() ChannelStats {
	return ChannelStats{Sent: c.sent.Load(), Received: c.received.Load()}
}

func (c *Channel[T]) defaultValue() T {
	if c.def != nil {
		return c.def()
	}
	var zero T
	return zero
}

// AddSender registers a sender callback. If a receiver is waiting or buffer
// room is available the callback is satisfied inline and AddSender returns
// queued=false; otherwise it is enqueued and queued=true. On a closed
// channel AddSender fails immediately without invoking the callback.
//
// A non-nil error with queued=false is the sender callback's own failure:
// the send was aborted and nothing was delivered.
func (c *Channel[T]) AddSender(cb *SenderCallback[T]) (queued bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return false, ErrSendOnClosedChannel
	}

	// Rendezvous with a waiting receiver. Waiters whose select committed
	// elsewhere are dropped; a waiter sharing this sender's token is skipped,
	// a select cannot rendezvous with itself.
	for i := 0; i < len(c.recvq); {
		r := c.recvq[i]
		okS, okR, paired := claimPair(cb.gate, r.gate)
		if !paired {
			i++
			continue
		}
		if !okR {
			c.recvq = slices.Delete(c.recvq, i, i+1)
			continue
		}
		if !okS {
			return false, nil
		}
		c.recvq = slices.Delete(c.recvq, i, i+1)
		v, serr := cb.fn(nil, true)
		if serr != nil {
			// Aborted send with a receiver already claimed. An unconditional
			// receiver goes back to the queue head; a select-bound receiver
			// cannot (its token is consumed) and is completed with the zero
			// value instead. Unreachable from this package's own callbacks.
			if r.gate == nil {
				c.recvq = slices.Insert(c.recvq, 0, r)
			} else {
				var zero T
				r.fn(zero, true)
			}
			return false, serr
		}
		r.fn(v, true)
		c.sent.Add(1)
		c.received.Add(1)
		return false, nil
	}

	if c.buf != nil && !c.buf.Full() {
		if !claim(cb.gate) {
			return false, nil
		}
		v, serr := cb.fn(nil, true)
		if serr != nil {
			return false, serr
		}
		c.buf.Push(v)
		c.sent.Add(1)
		return false, nil
	}

	c.sendq = append(c.sendq, cb)
	return true, nil
}

// AddReceiver registers a receiver callback. Buffered values, waiting
// senders and the closed state are consulted in that order; when none apply
// the callback is enqueued and AddReceiver returns true.
func (c *Channel[T]) AddReceiver(cb *ReceiverCallback[T]) (queued bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Buffered values short-circuit, also after close (drain-on-close).
	if c.buf != nil && !c.buf.Empty() {
		if !claim(cb.gate) {
			return false
		}
		v, _ := c.buf.Shift()
		cb.fn(v, true)
		c.received.Add(1)
		c.refillLocked()
		return false
	}

	// Rendezvous with a waiting sender.
	claimed := false
	for i := 0; i < len(c.sendq); {
		s := c.sendq[i]
		var rg *commitGate
		if !claimed {
			rg = cb.gate
		}
		okR, okS, paired := claimPair(rg, s.gate)
		if !paired {
			i++
			continue
		}
		if !okS {
			c.sendq = slices.Delete(c.sendq, i, i+1)
			continue
		}
		if !okR {
			return false
		}
		claimed = true
		c.sendq = slices.Delete(c.sendq, i, i+1)
		v, serr := s.fn(nil, true)
		if serr != nil {
			// The sender aborted; it observed its own failure. Keep matching
			// against the rest of the queue.
			continue
		}
		cb.fn(v, true)
		c.sent.Add(1)
		c.received.Add(1)
		return false
	}
	if claimed {
		// Every remaining sender aborted after this select-bound receiver
		// was claimed. Complete it rather than leave its wait hanging.
		// Unreachable from this package's own callbacks.
		var zero T
		cb.fn(zero, true)
		return false
	}

	if !c.open {
		if !claim(cb.gate) {
			return false
		}
		cb.fn(c.defaultValue(), false)
		return false
	}

	c.recvq = append(c.recvq, cb)
	return true
}

// refillLocked pulls queued senders into available buffer room. Caller holds
// the lock. Aborted senders are skipped; the last abort error is returned
// for close, which must report it.
func (c *Channel[T]) refillLocked() error {
	var lastErr error
	for c.buf != nil && !c.buf.Full() && len(c.sendq) > 0 {
		s := c.sendq[0]
		c.sendq = c.sendq[1:]
		if !claim(s.gate) {
			continue
		}
		v, err := s.fn(nil, true)
		if err != nil {
			lastErr = err
			continue
		}
		c.buf.Push(v)
		c.sent.Add(1)
	}
	return lastErr
}

// RemoveSender removes the last-registered occurrence of cb from the sender
// queue. It is a no-op when cb is absent.
func (c *Channel[T]) RemoveSender(cb *SenderCallback[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.sendq) - 1; i >= 0; i-- {
		if c.sendq[i] == cb {
			c.sendq = slices.Delete(c.sendq, i, i+1)
			return
		}
	}
}

// RemoveReceiver removes the last-registered occurrence of cb from the
// receiver queue. It is a no-op when cb is absent.
func (c *Channel[T]) RemoveReceiver(cb *ReceiverCallback[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.recvq) - 1; i >= 0; i-- {
		if c.recvq[i] == cb {
			c.recvq = slices.Delete(c.recvq, i, i+1)
			return
		}
	}
}

// TrySend attempts to deliver v without blocking: directly to a waiting
// receiver, else into buffer room. It returns false when neither is
// available, and ErrSendOnClosedChannel when the channel is closed.
func (c *Channel[T]) TrySend(v T) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return false, ErrSendOnClosedChannel
	}
	for len(c.recvq) > 0 {
		r := c.recvq[0]
		c.recvq = c.recvq[1:]
		if !claim(r.gate) {
			continue
		}
		r.fn(v, true)
		c.sent.Add(1)
		c.received.Add(1)
		return true, nil
	}
	if c.buf != nil && c.buf.Push(v) {
		c.sent.Add(1)
		return true, nil
	}
	return false, nil
}

// TryReceive attempts to take a value without blocking. ready=false means
// the channel is open with nothing available. ready=true with ok=true
// delivers a value; ready=true with ok=false means closed and drained, with
// v the channel default.
func (c *Channel[T]) TryReceive() (v T, ok bool, ready bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.buf != nil && !c.buf.Empty() {
		v, _ = c.buf.Shift()
		c.received.Add(1)
		c.refillLocked()
		return v, true, true
	}

	for len(c.sendq) > 0 {
		s := c.sendq[0]
		c.sendq = c.sendq[1:]
		if !claim(s.gate) {
			continue
		}
		sv, err := s.fn(nil, true)
		if err != nil {
			continue
		}
		c.sent.Add(1)
		c.received.Add(1)
		return sv, true, true
	}

	if !c.open {
		return c.defaultValue(), false, true
	}
	var zero T
	return zero, false, false
}

// Send delivers v, suspending until a receiver or buffer room takes it. It
// returns ErrSendOnClosedChannel if the channel is or becomes closed, and
// the context cause if ctx is cancelled first. A pre-cancelled context fails
// without touching the queues.
func (c *Channel[T]) Send(ctx context.Context, v T) error {
	if ctx == nil {
		ctx = context.Background()
	}
	gen := YieldGeneration()
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}

	done := make(chan error, 1)
	cb := NewSenderCallback[T](func(err error, ok bool) (T, error) {
		if !ok {
			done <- err
			var zero T
			return zero, err // identity rethrow, swallowed by the channel
		}
		done <- nil
		return v, nil
	})

	queued, err := c.AddSender(cb)
	if err != nil {
		return err
	}
	if queued {
		select {
		case err = <-done:
		case <-ctx.Done():
			c.RemoveSender(cb)
			// The callback may have fired between cancellation and removal;
			// a completed delivery wins over the cancellation.
			select {
			case err = <-done:
			default:
				return context.Cause(ctx)
			}
		}
	} else {
		err = <-done
	}
	awaitYield(c.unsafe.Load(), gen)
	return err
}

// Receive takes the next value, suspending until one is available. ok=false
// means the channel is closed and drained, with v the channel default. err
// is non-nil only when ctx is cancelled first; a pre-cancelled context fails
// without touching the queues.
func (c *Channel[T]) Receive(ctx context.Context) (v T, ok bool, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	gen := YieldGeneration()
	if ctx.Err() != nil {
		var zero T
		return zero, false, context.Cause(ctx)
	}

	type recvResult struct {
		v  T
		ok bool
	}
	done := make(chan recvResult, 1)
	cb := NewReceiverCallback[T](func(v T, ok bool) {
		done <- recvResult{v: v, ok: ok}
	})

	if c.AddReceiver(cb) {
		select {
		case r := <-done:
			v, ok = r.v, r.ok
		case <-ctx.Done():
			c.RemoveReceiver(cb)
			select {
			case r := <-done:
				v, ok = r.v, r.ok
			default:
				var zero T
				return zero, false, context.Cause(ctx)
			}
		}
	} else {
		r := <-done
		v, ok = r.v, r.ok
	}
	awaitYield(c.unsafe.Load(), gen)
	return v, ok, nil
}

// Close transitions the channel to closed. Waiting receivers are notified
// with ok=false; queued senders are first flushed into remaining buffer
// room, then rejected with ErrSendOnClosedChannel. Buffered values stay
// drainable. When sender callbacks fail during the sweep the last error is
// returned after all notifications complete, except errors that identity-
// match the rejection error, which the callbacks are expected to rethrow.
func (c *Channel[T]) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrCloseOfClosedChannel
	}
	c.open = false

	var lastErr error
	if len(c.recvq) > 0 {
		def := c.defaultValue()
		for _, r := range c.recvq {
			if claim(r.gate) {
				r.fn(def, false)
			}
		}
		c.recvq = nil
	} else if err := c.refillLocked(); err != nil {
		lastErr = err
	}

	for len(c.sendq) > 0 {
		s := c.sendq[0]
		c.sendq = c.sendq[1:]
		if !claim(s.gate) {
			continue
		}
		if _, err := s.fn(ErrSendOnClosedChannel, false); err != nil && err != ErrSendOnClosedChannel {
			lastErr = err
		}
	}
	return lastErr
}
