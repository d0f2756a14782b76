package command

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-stage/errors"
)

// Waker interrupts a native blocking wait on the consumer goroutine, such
// as a windowing library's event wait. The queue's own notification does
// not reach that wait.
type Waker interface {
	Wake()
}

// WakerFunc adapts a function to Waker.
type WakerFunc func()

func (f WakerFunc) Wake() { f() }

// Option configures a Queue.
type Option func(*queueOptions)

type queueOptions struct {
	logger *zap.Logger
	waker  Waker
}

// WithLogger sets the logger for diagnostic queue logs.
func WithLogger(l *zap.Logger) Option {
	return func(o *queueOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithWaker sets the out-of-band waker used by AddAndForceWake.
func WithWaker(w Waker) Option {
	return func(o *queueOptions) {
		o.waker = w
	}
}

// Queue is an unbounded FIFO of commands. Producers on any goroutine add;
// exactly one consumer drains. Each Add is one critical section, so each
// producer's commands keep their submission order. No ordering is promised
// across producers.
type Queue[C Command] struct {
	enum   *Enum
	logger *zap.Logger
	waker  Waker
	ready  chan struct{}
	items  []C
	mu     sync.Mutex
	closed bool
}

// NewQueue creates an empty queue for the tags of enum.
func NewQueue[C Command](enum *Enum, opts ...Option) *Queue[C] {
	o := queueOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Queue[C]{
		enum:   enum,
		logger: o.logger,
		waker:  o.waker,
		ready:  make(chan struct{}, 1),
	}
}

// Enum returns the queue's tag set.
func (q *Queue[C]) Enum() *Enum {
	return q.enum
}

// SetWaker replaces the out-of-band waker. The consumer installs it once
// its native wait exists.
func (q *Queue[C]) SetWaker(w Waker) {
	q.mu.Lock()
	q.waker = w
	q.mu.Unlock()
}

// Add appends c and signals the consumer. It never blocks on the consumer.
func (q *Queue[C]) Add(c C) error {
	tag := c.Tag()
	if !q.enum.Valid(tag) {
		return errors.Command(errors.PhaseQueue, q.enum.Name(tag), "tag cannot be queued")
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errors.Closed(errors.PhaseQueue, "command queue")
	}
	q.items = append(q.items, c)
	depth := len(q.items)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}

	if !q.enum.Quiet(tag) {
		q.logger.Debug("command queued",
			zap.String("tag", q.enum.Name(tag)),
			zap.Int("depth", depth))
	}
	return nil
}

// AddAndForceWake appends c and additionally wakes the consumer out of
// band, for when it may be parked in a native wait that does not watch the
// queue. Without a waker it behaves like Add.
func (q *Queue[C]) AddAndForceWake(c C) error {
	if err := q.Add(c); err != nil {
		return err
	}
	q.mu.Lock()
	w := q.waker
	q.mu.Unlock()
	if w != nil {
		w.Wake()
	}
	return nil
}

// Drain removes and returns everything queued so far, in FIFO order. The
// caller processes the batch outside the lock.
func (q *Queue[C]) Drain() []C {
	q.mu.Lock()
	batch := q.items
	q.items = nil
	q.mu.Unlock()
	return batch
}

// Abandon drains the queue without dispatching and fails every waiting
// synchronous command with err. It returns the number of dropped commands.
func (q *Queue[C]) Abandon(err error) int {
	batch := q.Drain()
	abandon(batch, err)
	return len(batch)
}

// Ready is signalled after each Add. A single pending signal may cover
// several commands, so the consumer must Drain rather than count.
func (q *Queue[C]) Ready() <-chan struct{} {
	return q.ready
}

// Wait blocks until something was queued since the last wake, or ctx ends.
func (q *Queue[C]) Wait(ctx context.Context) error {
	if q.Len() > 0 {
		return nil
	}
	select {
	case <-q.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of queued commands.
func (q *Queue[C]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close rejects further Adds. Already queued commands can still be drained.
func (q *Queue[C]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Closed reports whether Close was called.
func (q *Queue[C]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
