package host

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-stage/errors"
	"github.com/wippyai/wasm-stage/resource"
	"github.com/wippyai/wasm-stage/script"
	"github.com/wippyai/wasm-stage/window"
)

// ModuleName is the import module guests use for host functions.
const ModuleName = "stage"

// Callback slots. The user value is passed as the first argument of every
// callback.
const (
	SlotResize = iota
	SlotFocus
	SlotQuit
	SlotUser
	slotCount
)

var slotExports = [...]string{
	SlotResize: "on_resize",
	SlotFocus:  "on_focus",
	SlotQuit:   "on_quit",
}

// Record types stored in the resource table.
const (
	TypeTexture resource.TypeID = iota + 1
	TypeBuffer
)

// Host connects one script VM to one window. Everything except the window
// commands runs on the script goroutine: the goroutine that loads the
// guest and calls Run.
type Host struct {
	win       *window.Window
	vm        *script.VM
	records   *resource.Table
	callbacks *script.Table
	logger    *zap.Logger
	module    api.Module
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the host logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

// New creates a host for vm and win.
func New(win *window.Window, vm *script.VM, opts ...Option) *Host {
	h := &Host{
		win:    win,
		vm:     vm,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.records = resource.NewTable(resource.WithLogger(h.logger))
	h.callbacks = script.NewTable(slotCount, h.logger)
	return h
}

// Records returns the table of native records owned by the script.
func (h *Host) Records() *resource.Table {
	return h.records
}

// Callbacks returns the callback reference table.
func (h *Host) Callbacks() *script.Table {
	return h.callbacks
}

// Instantiate registers the host module on the VM. Call it before loading
// the guest.
func (h *Host) Instantiate(ctx context.Context) error {
	if h.module != nil {
		return errors.InvalidInput(errors.PhaseScript, "host module already instantiated")
	}
	builder := h.vm.Runtime().NewHostModuleBuilder(ModuleName)
	for _, f := range h.functions() {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(f.fn, f.params, f.results).
			Export(f.name)
	}
	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return errors.Wrap(errors.PhaseScript, errors.KindCreation, err, "instantiate host module")
	}
	h.module = mod
	return nil
}

// Bind captures the guest's default callbacks (on_resize, on_focus,
// on_quit) and a nil user value. Slots the guest already set through
// set_callback during initialization are kept.
func (h *Host) Bind() error {
	if h.callbacks.BoundTo(h.vm) {
		return nil
	}
	return h.bindDefaults(h.vm.Guest())
}

func (h *Host) bindDefaults(guest api.Module) error {
	for _, name := range slotExports {
		var fn api.Function
		if guest != nil {
			fn = guest.ExportedFunction(name)
		}
		h.vm.Push(script.Function(fn))
	}
	h.vm.Push(script.Nil)
	defer h.vm.Pop(slotCount)
	return h.callbacks.Init(h.vm, -4, -3, -2, -1)
}

// SetCallback points slot at the guest export name.
func (h *Host) SetCallback(slot int, name string) error {
	return h.setCallback(h.vm.Guest(), slot, name)
}

func (h *Host) setCallback(guest api.Module, slot int, name string) error {
	if slot < 0 || slot >= SlotUser {
		return errors.OutOfBounds(errors.PhaseScript, "callback slot", slot, SlotUser)
	}
	if guest == nil {
		return errors.NotInitialized(errors.PhaseScript, "guest")
	}
	fn := guest.ExportedFunction(name)
	if fn == nil {
		return errors.NotFound(errors.PhaseScript, "export", name)
	}
	return h.setSlot(guest, slot, script.Function(fn))
}

// SetUser sets the opaque value passed to every callback.
func (h *Host) SetUser(v uint64) error {
	return h.setSlot(h.vm.Guest(), SlotUser, script.Opaque(v))
}

func (h *Host) setSlot(guest api.Module, slot int, v script.Value) error {
	if !h.callbacks.BoundTo(h.vm) {
		if err := h.bindDefaults(guest); err != nil {
			return err
		}
	}
	h.vm.Push(v)
	defer h.vm.Pop(1)
	return h.callbacks.InitSlot(slot, -1)
}

// Run delivers window events to the guest callbacks until the window
// stops or ctx ends.
func (h *Host) Run(ctx context.Context) error {
	if err := h.Bind(); err != nil {
		return err
	}
	events := h.win.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				h.logger.Debug("window closed, script loop done")
				return nil
			}
			h.dispatch(ctx, ev)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *Host) dispatch(ctx context.Context, ev window.Event) {
	switch ev.Kind {
	case window.EventResize:
		h.invoke(ctx, SlotResize, uint64(ev.Width), uint64(ev.Height))
	case window.EventFocus:
		var focused uint64
		if ev.Focused {
			focused = 1
		}
		h.invoke(ctx, SlotFocus, focused)
	case window.EventClose:
		res, called := h.invoke(ctx, SlotQuit)
		if called && len(res) > 0 && api.DecodeI32(res[0]) == 0 {
			h.logger.Info("close vetoed by script")
			return
		}
		if err := h.win.Quit(); err != nil {
			h.logger.Debug("quit after close", zap.Error(err))
		}
	}
}

// invoke calls the callback in slot with the user value and args. It
// reports false when the slot is empty.
func (h *Host) invoke(ctx context.Context, slot int, args ...uint64) ([]uint64, bool) {
	if !h.callbacks.BoundTo(h.vm) || !h.callbacks.Has(slot) {
		return nil, false
	}
	if err := h.callbacks.PushFunction(h.vm, slot); err != nil {
		h.logger.Error("callback unavailable", zap.String("callback", slotExports[slot]), zap.Error(err))
		return nil, false
	}
	if h.callbacks.Has(SlotUser) {
		if err := h.callbacks.PushValue(h.vm, SlotUser); err != nil {
			h.vm.Pop(1)
			h.logger.Error("user value unavailable", zap.Error(err))
			return nil, false
		}
	} else {
		h.vm.Push(script.Opaque(0))
	}
	for _, a := range args {
		h.vm.Push(script.Opaque(a))
	}

	res, err := h.vm.Call(ctx, len(args)+1)
	if err != nil {
		h.logger.Error("callback failed", zap.String("callback", slotExports[slot]), zap.Error(err))
		return nil, true
	}
	return res, true
}

// Close releases the callbacks and finalizes every record the script
// still holds.
func (h *Host) Close() error {
	h.callbacks.DeInit()
	return h.records.Close()
}
