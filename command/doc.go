// Package command marshals requests from any goroutine onto the single
// goroutine that owns the window and graphics context.
//
// # Tags and Payloads
//
// Each queue has a closed Enum of tags. Tag 0 (None) is reserved and can
// never be queued; Max is one past the last tag. Tags at or above the
// enum's quiet threshold are not logged, which keeps frequent commands out
// of debug output. Every command kind is a struct implementing Command:
//
//	type Resize struct{ Width, Height int }
//	func (Resize) Tag() command.Tag { return TagResize }
//
// # Producers
//
//	q.Add(Resize{800, 600})             // fire and forget
//	q.AddAndForceWake(Resize{800, 600}) // also interrupts a native wait
//
// AddAndForceWake exists because the consumer may be parked inside a native
// wait (a windowing library's event wait) that does not watch the queue.
//
// Synchronous commands carry a Reply and the producer waits on it:
//
//	r := command.NewReply[string]()
//	text, err := command.Call(ctx, q, GetClipboard{Reply: r}, r)
//
// # Consumer
//
// Loop drains the whole queue under the lock, then dispatches the batch in
// FIFO order outside it. A reserved or unknown tag reaching dispatch is a
// programming defect: RunOnce and Run stop and return the command error.
//
// The queue is unbounded and never drops commands. There is no cancellation:
// a dispatched command runs to completion.
package command
