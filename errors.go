package coopchan

import "errors"

var (
	// ErrSendOnClosedChannel is returned when a sender is added to a closed
	// channel, or when close flushes a queued sender that cannot be placed
	// in remaining buffer room.
	ErrSendOnClosedChannel = errors.New("coopchan: send on closed channel")

	// ErrCloseOfClosedChannel is returned by Close when the channel is
	// already closed.
	ErrCloseOfClosedChannel = errors.New("coopchan: close of closed channel")

	// ErrCasesInUse is returned when Wait, Poll or Recv is entered while
	// another Wait on the same Select is still in progress.
	ErrCasesInUse = errors.New("coopchan: select cases already in use")

	// ErrCaseRegistered reports an attempt to register one SelectCase with
	// more than one Select. NewSelect panics with this error.
	ErrCaseRegistered = errors.New("coopchan: case already registered with a select")

	// ErrInvalidCase is returned by Recv for a case that does not belong to
	// the select, has no consumable result, or is a send case.
	ErrInvalidCase = errors.New("coopchan: invalid case for this operation")
)
