package command

import (
	"context"
	"sync"
)

// Reply carries the result of a synchronous command back to the producer
// that queued it. It sits on top of the queue: the command payload holds
// the Reply, the handler resolves it.
type Reply[T any] struct {
	val  T
	err  error
	done chan struct{}
	once sync.Once
}

// NewReply creates an unresolved reply.
func NewReply[T any]() *Reply[T] {
	return &Reply[T]{done: make(chan struct{})}
}

// Resolve completes the reply. Only the first call has an effect.
func (r *Reply[T]) Resolve(v T, err error) {
	r.once.Do(func() {
		r.val = v
		r.err = err
		close(r.done)
	})
}

// Abandon fails the reply if nobody resolved it.
func (r *Reply[T]) Abandon(err error) {
	var zero T
	r.Resolve(zero, err)
}

// Done is closed once the reply is resolved.
func (r *Reply[T]) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the reply is resolved or ctx ends. The command itself
// is not cancelled by ctx; it still runs to completion on the consumer.
func (r *Reply[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-r.done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Abandoner is implemented by commands that hold a Reply, so a consumer
// shutting down can fail waiters instead of leaving them blocked.
type Abandoner interface {
	Abandon(err error)
}

// Call queues c with a forced wake and waits for r.
func Call[C Command, T any](ctx context.Context, q *Queue[C], c C, r *Reply[T]) (T, error) {
	if err := q.AddAndForceWake(c); err != nil {
		var zero T
		return zero, err
	}
	return r.Wait(ctx)
}
