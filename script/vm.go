package script

import (
	"context"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-stage/errors"
)

// Config holds configuration for VM creation
type Config struct {
	// Name is the module name the guest is instantiated under.
	// Empty means "guest".
	Name string

	// MemoryLimitPages caps guest memory in 64KB pages. 0 means wazero's default.
	MemoryLimitPages uint32

	// WASI instantiates wasi_snapshot_preview1 for guests built against it.
	WASI bool
}

// VM is one scripting runtime instance: a wazero runtime, the guest module,
// an evaluation stack and a registry of anchored references.
//
// A VM is not safe for concurrent use. The goroutine that runs the script
// owns it; host functions invoked by the guest run on that goroutine too.
type VM struct {
	id      uuid.UUID
	runtime wazero.Runtime
	guest   api.Module
	logger  *zap.Logger
	refs    map[Ref]Value
	name    string
	stack   []Value
	free    []Ref
	nextRef Ref
	closed  bool
}

// Option configures a VM.
type Option func(*VM)

// WithLogger sets the VM logger.
func WithLogger(l *zap.Logger) Option {
	return func(vm *VM) {
		if l != nil {
			vm.logger = l
		}
	}
}

// New creates a VM with no guest loaded.
func New(ctx context.Context, cfg *Config, opts ...Option) (*VM, error) {
	runtimeCfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	name := "guest"
	withWASI := false
	if cfg != nil {
		withWASI = cfg.WASI
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.Name != "" {
			name = cfg.Name
		}
	}

	vm := &VM{
		id:      uuid.New(),
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		logger:  zap.NewNop(),
		refs:    make(map[Ref]Value),
		name:    name,
		nextRef: 1,
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.logger = vm.logger.With(zap.String("vm", vm.id.String()))

	if withWASI {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, vm.runtime); err != nil {
			_ = vm.runtime.Close(ctx)
			return nil, errors.Wrap(errors.PhaseScript, errors.KindInvalidInput, err, "instantiate WASI")
		}
	}
	return vm, nil
}

// ID identifies this instance.
func (vm *VM) ID() uuid.UUID {
	return vm.id
}

// Closed reports whether Close was called.
func (vm *VM) Closed() bool {
	return vm.closed
}

// Runtime exposes the wazero runtime so host modules can be registered
// before the guest is loaded.
func (vm *VM) Runtime() wazero.Runtime {
	return vm.runtime
}

// Load compiles and instantiates the guest module. Host modules it imports
// must already be instantiated on Runtime().
func (vm *VM) Load(ctx context.Context, wasm []byte) error {
	if vm.closed {
		return errors.Closed(errors.PhaseScript, "vm")
	}
	if vm.guest != nil {
		return errors.InvalidInput(errors.PhaseScript, "guest already loaded")
	}

	mod, err := vm.runtime.InstantiateWithConfig(ctx, wasm,
		wazero.NewModuleConfig().WithName(vm.name).WithStartFunctions("_initialize"))
	if err != nil {
		return errors.Wrap(errors.PhaseScript, errors.KindInvalidInput, err, "instantiate guest")
	}
	vm.guest = mod
	vm.logger.Debug("guest loaded", zap.String("module", vm.name))
	return nil
}

// Guest returns the guest module, or nil before Load.
func (vm *VM) Guest() api.Module {
	return vm.guest
}

// PushExport pushes the guest export name as a function value. A missing
// export pushes Nil and reports false.
func (vm *VM) PushExport(name string) bool {
	var fn api.Function
	if vm.guest != nil {
		fn = vm.guest.ExportedFunction(name)
	}
	vm.Push(Function(fn))
	return fn != nil
}

// Push appends v to the stack.
func (vm *VM) Push(v Value) {
	vm.stack = append(vm.stack, v)
}

// Pop removes the top n values.
func (vm *VM) Pop(n int) {
	if n > len(vm.stack) {
		n = len(vm.stack)
	}
	if n <= 0 {
		return
	}
	clear(vm.stack[len(vm.stack)-n:])
	vm.stack = vm.stack[:len(vm.stack)-n]
}

// Top returns the stack height.
func (vm *VM) Top() int {
	return len(vm.stack)
}

// At returns the value at pos. Positive positions count from the bottom
// (1 is the first pushed value), negative ones from the top (-1 is the
// last pushed value).
func (vm *VM) At(pos int) (Value, error) {
	idx, err := vm.index(pos)
	if err != nil {
		return Nil, err
	}
	return vm.stack[idx], nil
}

// Call invokes the function sitting below the top nargs values, passing
// the opaque values as arguments. The function and arguments are popped.
func (vm *VM) Call(ctx context.Context, nargs int) ([]uint64, error) {
	if vm.closed {
		return nil, errors.Closed(errors.PhaseScript, "vm")
	}
	if nargs < 0 || nargs+1 > len(vm.stack) {
		return nil, errors.OutOfBounds(errors.PhaseScript, "call", nargs+1, len(vm.stack))
	}

	base := len(vm.stack) - nargs - 1
	fnv := vm.stack[base]
	args := make([]uint64, nargs)
	for i := range args {
		arg := vm.stack[base+1+i]
		if arg.Kind == KindFunction {
			vm.Pop(nargs + 1)
			return nil, errors.TypeMismatch(errors.PhaseScript, "call argument", KindOpaque.String(), arg.Kind.String())
		}
		args[i] = arg.opaque
	}
	vm.Pop(nargs + 1)

	if fnv.Kind != KindFunction {
		return nil, errors.TypeMismatch(errors.PhaseScript, "call target", KindFunction.String(), fnv.Kind.String())
	}

	results, err := fnv.fn.Call(ctx, args...)
	if err != nil {
		return nil, errors.New(errors.PhaseScript, errors.KindTrap).
			Subject(fnv.fn.Definition().Name()).
			Cause(err).
			Build()
	}
	return results, nil
}

// Ref anchors the value at pos in the reference registry.
func (vm *VM) Ref(pos int) (Ref, error) {
	if vm.closed {
		return NoRef, errors.Closed(errors.PhaseScript, "vm")
	}
	v, err := vm.At(pos)
	if err != nil {
		return NoRef, err
	}
	if v.Kind == KindNil {
		return NoRef, nil
	}

	var r Ref
	if n := len(vm.free); n > 0 {
		r = vm.free[n-1]
		vm.free = vm.free[:n-1]
	} else {
		r = vm.nextRef
		vm.nextRef++
	}
	vm.refs[r] = v
	return r, nil
}

// Unref releases r so its value can be collected.
func (vm *VM) Unref(r Ref) {
	if _, ok := vm.refs[r]; !ok {
		return
	}
	delete(vm.refs, r)
	vm.free = append(vm.free, r)
}

// PushRef pushes the value anchored by r. NoRef pushes Nil.
func (vm *VM) PushRef(r Ref) error {
	if vm.closed {
		return errors.Closed(errors.PhaseScript, "vm")
	}
	if r == NoRef {
		vm.Push(Nil)
		return nil
	}
	v, ok := vm.refs[r]
	if !ok {
		return errors.NotFound(errors.PhaseScript, "reference", r.String())
	}
	vm.Push(v)
	return nil
}

// RefKind returns the kind of the value anchored by r.
func (vm *VM) RefKind(r Ref) ValueKind {
	return vm.refs[r].Kind
}

// RefCount returns the number of live references.
func (vm *VM) RefCount() int {
	return len(vm.refs)
}

// Close destroys the runtime. References become invalid.
func (vm *VM) Close(ctx context.Context) error {
	if vm.closed {
		return nil
	}
	vm.closed = true
	clear(vm.refs)
	vm.free = nil
	vm.stack = nil
	vm.guest = nil
	return vm.runtime.Close(ctx)
}

func (vm *VM) index(pos int) (int, error) {
	n := len(vm.stack)
	idx := pos - 1
	if pos < 0 {
		idx = n + pos
	}
	if pos == 0 || idx < 0 || idx >= n {
		return 0, errors.OutOfBounds(errors.PhaseScript, "stack position", pos, n)
	}
	return idx, nil
}
