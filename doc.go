// Package coopchan provides Go-style channels and a select construct for
// cooperative schedulers: callback-queue based rendezvous primitives whose
// suspension points are explicit and whose wakeups are delivered at most
// once.
//
// A Channel is a typed, optionally buffered, FIFO point of rendezvous
// between any number of senders and receivers, with close semantics matching
// Go's built-in channels: sends on a closed channel fail, buffered values
// remain drainable after close, and a drained closed channel yields a
// configurable default value.
//
// A Select multiplexes a fixed ordered set of cases (channel send, channel
// receive, or an external Future) and returns one ready case chosen with
// uniform random fairness. Poll probes without suspending; Wait suspends
// until a case is ready or the context is cancelled.
//
// Both Channel and Select cooperate with the host scheduler through the
// macrotask yield service (YieldToMacrotask): every Send, Receive and Wait
// defers to the scheduler at least once per call unless the yield generation
// already advanced during the call, preventing two tasks that only ever talk
// to each other from starving unrelated work. Channels and selects can opt
// out with their unsafe mode when the caller knows starvation is impossible.
package coopchan
