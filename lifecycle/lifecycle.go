package lifecycle

import (
	"go.uber.org/zap"

	"github.com/wippyai/wasm-stage/errors"
)

// State is the lifecycle state of a context-bound object.
type State int32

const (
	StateUninitialized State = iota
	StateInitialized
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Object is the part of the contract a registry drives during context loss.
type Object interface {
	// DeInit releases the native resource and keeps the parameters.
	// Returns false if nothing was held.
	DeInit() bool

	// ReInit replays the last successful Init. No-op if there was none.
	ReInit() error
}

// Allocator creates and frees the native side of an object.
type Allocator[P any] interface {
	Allocate(params P) error
	Release() error
}

// Option configures a Base.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger used for creation failures and swallowed
// release errors.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Base implements the Init/DeInit/ReInit/Destroy state machine over an
// Allocator. It is not safe for concurrent use; the goroutine owning the
// graphics context drives it.
type Base[P any] struct {
	alloc     Allocator[P]
	logger    *zap.Logger
	params    P
	name      string
	hooks     []func()
	state     State
	hasParams bool
}

// New returns an uninitialized Base named for logs and errors.
func New[P any](name string, alloc Allocator[P], opts ...Option) *Base[P] {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Base[P]{
		alloc:  alloc,
		logger: o.logger,
		name:   name,
	}
}

// Init allocates with params. An object that is already initialized is
// released first. On failure the previous parameters are kept so that a
// later ReInit still restores the last good state.
func (b *Base[P]) Init(params P) error {
	if b.state == StateDestroyed {
		return errors.Closed(errors.PhaseInit, b.name)
	}
	if b.state == StateInitialized {
		b.release()
		b.state = StateUninitialized
	}

	if err := b.alloc.Allocate(params); err != nil {
		cerr := errors.Creation(b.name, params, err)
		b.logger.Error("resource creation failed",
			zap.String("object", b.name),
			zap.Any("params", params),
			zap.Error(err))
		return cerr
	}

	b.params = params
	b.hasParams = true
	b.state = StateInitialized
	return nil
}

// DeInit releases the native resource. Idempotent: returns false when the
// object holds nothing. Release failures are logged and swallowed.
func (b *Base[P]) DeInit() bool {
	if b.state != StateInitialized {
		return false
	}
	b.release()
	b.state = StateUninitialized
	return true
}

// ReInit calls Init with the retained parameters. No-op before the first
// successful Init and while still initialized.
func (b *Base[P]) ReInit() error {
	if !b.hasParams || b.state != StateUninitialized {
		return nil
	}
	return b.Init(b.params)
}

// Destroy releases the object for good and runs destroy hooks. Safe to
// call more than once and never panics.
func (b *Base[P]) Destroy() {
	if b.state == StateDestroyed {
		return
	}
	b.DeInit()
	b.state = StateDestroyed

	hooks := b.hooks
	b.hooks = nil
	for i := len(hooks) - 1; i >= 0; i-- {
		b.runHook(hooks[i])
	}
}

// OnDestroy registers fn to run once during Destroy. Hooks run in reverse
// registration order.
func (b *Base[P]) OnDestroy(fn func()) {
	if b.state == StateDestroyed {
		b.runHook(fn)
		return
	}
	b.hooks = append(b.hooks, fn)
}

// State returns the current state.
func (b *Base[P]) State() State {
	return b.state
}

// Initialized reports whether the native resource is held.
func (b *Base[P]) Initialized() bool {
	return b.state == StateInitialized
}

// Params returns the last successfully applied parameters.
func (b *Base[P]) Params() (P, bool) {
	return b.params, b.hasParams
}

// Name returns the object's name.
func (b *Base[P]) Name() string {
	return b.name
}

func (b *Base[P]) release() {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("resource release panicked",
				zap.String("object", b.name),
				zap.Any("panic", r))
		}
	}()
	if err := b.alloc.Release(); err != nil {
		b.logger.Warn("resource release failed",
			zap.String("object", b.name),
			zap.Error(err))
	}
}

func (b *Base[P]) runHook(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("destroy hook panicked",
				zap.String("object", b.name),
				zap.Any("panic", r))
		}
	}()
	fn()
}
