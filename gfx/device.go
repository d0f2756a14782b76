package gfx

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-stage/errors"
	"github.com/wippyai/wasm-stage/registry"
)

// ErrContextLost is returned by a Context that has been lost and must be
// recreated before any further use.
var ErrContextLost = errors.New(errors.PhaseWindow, errors.KindContextLost).
	Subject("graphics context").
	Detail("context lost, re-initialization required").
	Build()

// Device owns the current Context and the registries of every object
// bound to it. Textures are attached before buffers, so buffers are
// released first and rebuilt last.
type Device struct {
	ctx      Context
	logger   *zap.Logger
	textures *registry.Registry[Texture, *Texture]
	buffers  *registry.Registry[Buffer, *Buffer]
	group    *registry.Group
	notify   func()
	trash    []garbage
	trashMu  sync.Mutex
}

// garbage is the native handle of an object collected without Destroy.
type garbage struct {
	gen     uint64
	id      uint32
	texture bool
}

// Option configures a Device.
type Option func(*Device)

// WithLogger sets the device logger. Objects created by the device log
// through it too.
func WithLogger(l *zap.Logger) Option {
	return func(d *Device) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDevice wraps ctx. ctx may be nil until the window opens.
func NewDevice(ctx Context, opts ...Option) *Device {
	d := &Device{
		ctx:      ctx,
		logger:   zap.NewNop(),
		textures: registry.New[Texture]("textures"),
		buffers:  registry.New[Buffer]("buffers"),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.group = registry.NewGroup(d.logger)
	d.group.Attach(d.textures, d.buffers)
	return d
}

// Context returns the current context, or nil.
func (d *Device) Context() Context {
	return d.ctx
}

// SetContext installs the first context. Use ContextLost to replace one
// that objects were created against.
func (d *Device) SetContext(ctx Context) {
	d.ctx = ctx
}

// Textures returns the texture registry.
func (d *Device) Textures() *registry.Registry[Texture, *Texture] {
	return d.textures
}

// Buffers returns the buffer registry.
func (d *Device) Buffers() *registry.Registry[Buffer, *Buffer] {
	return d.buffers
}

// Group returns the ordered registries, for callers that need to attach
// registries of their own after the built-in ones.
func (d *Device) Group() *registry.Group {
	return d.group
}

// OnGarbage sets fn to be called, from the runtime's cleanup goroutine,
// whenever a collected object leaves a native handle to release. The
// window uses it to wake its thread.
func (d *Device) OnGarbage(fn func()) {
	d.trashMu.Lock()
	d.notify = fn
	d.trashMu.Unlock()
}

func (d *Device) discard(g garbage) {
	d.trashMu.Lock()
	d.trash = append(d.trash, g)
	notify := d.notify
	d.trashMu.Unlock()
	if notify != nil {
		notify()
	}
}

// Collect releases the native side of objects that were garbage collected
// while still initialized, and returns how many were released. Call it
// from the thread that owns the context. Handles from an earlier context
// are dropped; losing that context already freed them.
func (d *Device) Collect() int {
	d.trashMu.Lock()
	trash := d.trash
	d.trash = nil
	d.trashMu.Unlock()

	released := 0
	for _, g := range trash {
		if d.ctx == nil || d.ctx.Generation() != g.gen {
			continue
		}
		var err error
		if g.texture {
			err = d.ctx.DeleteTexture(TextureID(g.id))
		} else {
			err = d.ctx.DeleteBuffer(BufferID(g.id))
		}
		if err != nil {
			d.logger.Warn("release of collected object failed", zap.Uint32("id", g.id), zap.Error(err))
			continue
		}
		released++
	}
	if released > 0 {
		d.logger.Debug("released collected objects", zap.Int("count", released))
	}
	return released
}

// ContextLost runs the context-loss protocol: every object releases its
// native side in reverse order, recreate builds the new context, and every
// object is rebuilt in registration order. Objects that fail to rebuild
// stay uninitialized; their errors are combined into the result.
func (d *Device) ContextLost(recreate func() (Context, error)) error {
	d.Collect()
	released := d.group.DeInitAll()
	old := d.ctx

	ctx, err := recreate()
	if err != nil {
		d.ctx = nil
		d.logger.Error("context recreation failed", zap.Error(err))
		return errors.Wrap(errors.PhaseWindow, errors.KindContextLost, err, "recreate graphics context")
	}
	d.ctx = ctx

	err = d.group.ReInitAll()
	fields := []zap.Field{zap.Int("released", released), zap.Int("live", d.group.Count())}
	if old != nil {
		fields = append(fields, zap.Uint64("from", old.Generation()))
	}
	fields = append(fields, zap.Uint64("to", ctx.Generation()))
	if err != nil {
		d.logger.Warn("context restored with failures", append(fields, zap.Error(err))...)
		return err
	}
	d.logger.Info("context restored", fields...)
	return nil
}

// Close releases collected objects, then destroys every live object,
// buffers first.
func (d *Device) Close() {
	d.Collect()
	d.buffers.ForEachReverse(func(b *Buffer) { b.Destroy() })
	d.textures.ForEachReverse(func(t *Texture) { t.Destroy() })
}

func (d *Device) current() (Context, error) {
	if d.ctx == nil {
		return nil, errors.NotInitialized(errors.PhaseInit, "graphics context")
	}
	return d.ctx, nil
}
