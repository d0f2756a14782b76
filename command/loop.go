package command

import (
	"context"
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-stage/errors"
)

// Poller is the consumer's native blocking wait. Poll returns when native
// events were handled, when the Waker fired, or when ctx ends.
type Poller interface {
	Poll(ctx context.Context) error
}

// PollerFunc adapts a function to Poller.
type PollerFunc func(ctx context.Context) error

func (f PollerFunc) Poll(ctx context.Context) error { return f(ctx) }

// ErrShutdown is given to abandoned synchronous commands when the consumer
// stops with commands still queued.
var ErrShutdown = errors.Closed(errors.PhaseDispatch, "consumer loop")

// LoopOption configures a Loop.
type LoopOption func(*loopOptions)

type loopOptions struct {
	logger *zap.Logger
	poller Poller
}

// WithLoopLogger sets the loop logger.
func WithLoopLogger(l *zap.Logger) LoopOption {
	return func(o *loopOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPoller makes the loop block in p instead of on the queue signal.
// Producers must then use AddAndForceWake, or p must also watch the queue.
func WithPoller(p Poller) LoopOption {
	return func(o *loopOptions) {
		o.poller = p
	}
}

// Loop is the consumer side: it drains the queue and dispatches batches.
type Loop[C Command] struct {
	queue  *Queue[C]
	disp   *Dispatcher[C]
	logger *zap.Logger
	poller Poller
}

// NewLoop binds a queue to a dispatcher.
func NewLoop[C Command](q *Queue[C], d *Dispatcher[C], opts ...LoopOption) *Loop[C] {
	o := loopOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Loop[C]{
		queue:  q,
		disp:   d,
		logger: o.logger,
		poller: o.poller,
	}
}

// RunOnce drains the queue and dispatches the batch in FIFO order outside
// the queue lock. Handler failures are logged and the batch continues. A
// command error (reserved or unknown tag) stops processing and is
// returned; the rest of the batch is abandoned.
func (l *Loop[C]) RunOnce(ctx context.Context) (int, error) {
	batch := l.queue.Drain()
	for i, c := range batch {
		err := l.disp.Dispatch(ctx, c)
		if err == nil {
			continue
		}
		if stderrors.Is(err, errors.ErrCommand) {
			l.logger.Error("fatal command dispatch", zap.Error(err))
			abandon(batch[i+1:], err)
			return i, err
		}
		l.logger.Warn("command failed",
			zap.String("tag", l.queue.enum.Name(c.Tag())),
			zap.Error(err))
	}
	return len(batch), nil
}

// Run processes commands until ctx ends, a fatal command error occurs, or
// the queue is closed and empty. Commands still queued when Run returns
// are abandoned.
func (l *Loop[C]) Run(ctx context.Context) error {
	err := l.run(ctx)
	if n := l.queue.Abandon(ErrShutdown); n > 0 {
		l.logger.Warn("commands abandoned on shutdown", zap.Int("count", n))
	}
	return err
}

func (l *Loop[C]) run(ctx context.Context) error {
	for {
		if _, err := l.RunOnce(ctx); err != nil {
			return err
		}
		if l.queue.Closed() && l.queue.Len() == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if l.poller != nil {
			if err := l.poller.Poll(ctx); err != nil {
				return err
			}
			continue
		}
		if err := l.queue.Wait(ctx); err != nil {
			return err
		}
	}
}

func abandon[C Command](cmds []C, err error) {
	for _, c := range cmds {
		if a, ok := any(c).(Abandoner); ok {
			a.Abandon(err)
		}
	}
}
