package coopchan

import (
	"context"
	"iter"
)

// Drain returns an iterator over the values available without suspending:
// buffered values and inline-satisfiable waiting senders. Iteration stops at
// the first moment nothing is immediately available. Values taken from the
// channel before the loop body runs are consumed even if the loop breaks
// early — this is a drain, not a peek.
func (c *Channel[T]) Drain() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, ok, ready := c.TryReceive()
			if !ready || !ok {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Values returns an iterator that receives until the channel is closed and
// drained, or ctx is cancelled. The closed marker itself is not yielded.
func (c *Channel[T]) Values(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, ok, err := c.Receive(ctx)
			if err != nil || !ok {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}
