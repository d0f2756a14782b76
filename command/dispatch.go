package command

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-stage/errors"
)

// Handler executes one command on the consumer goroutine.
type Handler[C Command] func(ctx context.Context, c C) error

// Dispatcher maps tags to handlers.
type Dispatcher[C Command] struct {
	enum     *Enum
	logger   *zap.Logger
	handlers []Handler[C]
}

// NewDispatcher creates a dispatcher with no handlers. A nil logger
// disables logging.
func NewDispatcher[C Command](enum *Enum, logger *zap.Logger) *Dispatcher[C] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher[C]{
		enum:     enum,
		logger:   logger,
		handlers: make([]Handler[C], enum.Max()),
	}
}

// Handle installs h for tag, replacing any previous handler.
func (d *Dispatcher[C]) Handle(tag Tag, h Handler[C]) error {
	if !d.enum.Valid(tag) {
		return errors.Command(errors.PhaseDispatch, d.enum.Name(tag), "cannot install handler")
	}
	d.handlers[tag] = h
	return nil
}

// Dispatch runs the handler for c. None, out-of-range and unhandled tags
// are programming defects and return a command error the consumer must
// treat as fatal. Handler errors are returned as is.
func (d *Dispatcher[C]) Dispatch(ctx context.Context, c C) error {
	tag := c.Tag()
	if !d.enum.Valid(tag) {
		return errors.Command(errors.PhaseDispatch, d.enum.Name(tag), "reserved or unknown tag reached dispatch")
	}
	h := d.handlers[tag]
	if h == nil {
		return errors.Command(errors.PhaseDispatch, d.enum.Name(tag), "no handler installed")
	}
	if !d.enum.Quiet(tag) {
		d.logger.Debug("dispatch command", zap.String("tag", d.enum.Name(tag)))
	}
	return h(ctx, c)
}
