package script

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-stage/errors"
)

// Table is a fixed-size set of reference slots bound to exactly one
// runtime at a time. It anchors script values (callbacks, user data) so
// they survive the host call that handed them over.
//
// A Table is mutated only by the goroutine owning the bound runtime.
type Table struct {
	rt     Runtime
	logger *zap.Logger
	slots  []Ref
}

// NewTable creates an unbound table with n slots. A nil logger disables
// logging.
func NewTable(n int, logger *zap.Logger) *Table {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Table{
		logger: logger,
		slots:  make([]Ref, n),
	}
}

// Len returns the number of slots.
func (t *Table) Len() int {
	return len(t.slots)
}

// Bound returns the runtime the table is bound to, or nil.
func (t *Table) Bound() Runtime {
	return t.rt
}

// BoundTo reports whether the table holds references of rt. Callers check
// this before re-materializing a reference.
func (t *Table) BoundTo(rt Runtime) bool {
	return rt != nil && t.rt != nil && t.rt.ID() == rt.ID()
}

// Has reports whether slot i holds a reference.
func (t *Table) Has(i int) bool {
	return i >= 0 && i < len(t.slots) && t.slots[i] != NoRef
}

// Init releases the current slots, binds rt and captures one reference per
// slot from the given stack positions. Either every slot is captured or
// the table is left unbound.
func (t *Table) Init(rt Runtime, positions ...int) error {
	if rt == nil || rt.Closed() {
		return errors.Reference("cannot bind to a closed runtime")
	}
	if len(positions) != len(t.slots) {
		return errors.InvalidInput(errors.PhaseReference, "one stack position per slot required")
	}

	t.DeInit()

	captured := make([]Ref, len(t.slots))
	for i, pos := range positions {
		r, err := rt.Ref(pos)
		if err != nil {
			for j := i - 1; j >= 0; j-- {
				rt.Unref(captured[j])
			}
			return errors.New(errors.PhaseReference, errors.KindReference).
				Path("slot", strconv.Itoa(i)).
				Detail("capture failed").
				Cause(err).
				Build()
		}
		captured[i] = r
	}

	copy(t.slots, captured)
	t.rt = rt
	return nil
}

// InitSlot replaces slot i with a reference to the value at pos, leaving
// the other slots untouched.
func (t *Table) InitSlot(i, pos int) error {
	if t.rt == nil {
		return errors.NotInitialized(errors.PhaseReference, "table")
	}
	if t.rt.Closed() {
		return errors.Reference("bound runtime is closed")
	}
	if i < 0 || i >= len(t.slots) {
		return errors.OutOfBounds(errors.PhaseReference, "slot", i, len(t.slots))
	}

	r, err := t.rt.Ref(pos)
	if err != nil {
		return err
	}
	old := t.slots[i]
	t.slots[i] = r
	if old != NoRef {
		t.rt.Unref(old)
	}
	return nil
}

// DeInit releases all slots in reverse index order and unbinds the table. No-op when unbound. The
// references of an already destroyed runtime are dropped without release.
func (t *Table) DeInit() {
	if t.rt == nil {
		return
	}
	live := !t.rt.Closed()
	for i := len(t.slots) - 1; i >= 0; i-- {
		if live && t.slots[i] != NoRef {
			t.rt.Unref(t.slots[i])
		}
		t.slots[i] = NoRef
	}
	if !live {
		t.logger.Debug("reference table dropped with a closed runtime")
	}
	t.rt = nil
}

// PushFunction pushes the function in slot i onto rt's stack.
func (t *Table) PushFunction(rt Runtime, i int) error {
	return t.push(rt, i, KindFunction)
}

// PushValue pushes the opaque user value in slot i onto rt's stack.
func (t *Table) PushValue(rt Runtime, i int) error {
	return t.push(rt, i, KindOpaque)
}

func (t *Table) push(rt Runtime, i int, want ValueKind) error {
	if !t.BoundTo(rt) {
		return errors.Reference("slot used with a runtime it was not captured from")
	}
	if rt.Closed() {
		return errors.Reference("bound runtime is closed")
	}
	if i < 0 || i >= len(t.slots) {
		return errors.OutOfBounds(errors.PhaseReference, "slot", i, len(t.slots))
	}
	r := t.slots[i]
	if r == NoRef {
		return errors.NotInitialized(errors.PhaseReference, "slot "+strconv.Itoa(i))
	}
	if got := rt.RefKind(r); got != want {
		return errors.TypeMismatch(errors.PhaseReference, "slot "+strconv.Itoa(i), want.String(), got.String())
	}
	return rt.PushRef(r)
}
