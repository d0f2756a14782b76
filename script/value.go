package script

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero/api"
)

// ValueKind distinguishes what a stack slot or reference holds.
type ValueKind uint8

const (
	KindNil ValueKind = iota
	KindFunction
	KindOpaque
)

func (k ValueKind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindFunction:
		return "function"
	case KindOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// Value is one entry of the evaluation stack: a guest function, an opaque
// user value (typically a guest pointer or handle), or nil.
type Value struct {
	fn     api.Function
	opaque uint64
	Kind   ValueKind
}

// Nil is the empty value.
var Nil = Value{}

// Function wraps a guest or host function.
func Function(fn api.Function) Value {
	if fn == nil {
		return Nil
	}
	return Value{Kind: KindFunction, fn: fn}
}

// Opaque wraps a user value the host does not interpret.
func Opaque(v uint64) Value {
	return Value{Kind: KindOpaque, opaque: v}
}

// Func returns the function, or nil for other kinds.
func (v Value) Func() api.Function {
	return v.fn
}

// Uint64 returns the opaque payload, or 0 for other kinds.
func (v Value) Uint64() uint64 {
	return v.opaque
}

// Ref anchors a value in a runtime's reference registry so it outlives the
// stack frame it came from. NoRef marks an empty slot.
type Ref int32

const NoRef Ref = 0

func (r Ref) String() string {
	return strconv.Itoa(int(r))
}

// Runtime is the part of a script runtime a reference Table needs. A Ref
// is only meaningful against the runtime that produced it.
type Runtime interface {
	// ID identifies this runtime instance for the lifetime of the process.
	ID() uuid.UUID

	// Closed reports whether the runtime was destroyed.
	Closed() bool

	// Ref anchors the value at stack position pos. A nil value yields NoRef.
	Ref(pos int) (Ref, error)

	// Unref releases r. Unknown refs are ignored.
	Unref(r Ref)

	// PushRef pushes the referenced value onto the stack.
	PushRef(r Ref) error

	// RefKind returns the kind of the referenced value.
	RefKind(r Ref) ValueKind
}
