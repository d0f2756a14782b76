package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseInit      Phase = "init"      // resource allocation
	PhaseDeInit    Phase = "deinit"    // resource release
	PhaseQueue     Phase = "queue"     // command submission
	PhaseDispatch  Phase = "dispatch"  // command execution on the consumer
	PhaseReference Phase = "reference" // script reference slots
	PhaseScript    Phase = "script"    // script runtime operations
	PhaseWindow    Phase = "window"    // native window backend
	PhaseConfig    Phase = "config"    // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindCreation       Kind = "creation"
	KindCommand        Kind = "command"
	KindReference      Kind = "reference"
	KindTypeMismatch   Kind = "type_mismatch"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindNotFound       Kind = "not_found"
	KindNotInitialized Kind = "not_initialized"
	KindClosed         Kind = "closed"
	KindInvalidInput   Kind = "invalid_input"
	KindUnsupported    Kind = "unsupported"
	KindTrap           Kind = "trap"
	KindContextLost    Kind = "context_lost"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value   any
	Cause   error
	Phase   Phase
	Kind    Kind
	Subject string
	Detail  string
	Path    []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Subject != "" {
		b.WriteString(": ")
		b.WriteString(e.Subject)
	}

	if e.Detail != "" {
		if e.Subject != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Subject names the object the error is about
func (b *Builder) Subject(s string) *Builder {
	b.err.Subject = s
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Creation reports a failed allocation inside Init. params are the
// parameters that were being applied.
func Creation(subject string, params any, cause error) *Error {
	return &Error{
		Phase:   PhaseInit,
		Kind:    KindCreation,
		Subject: subject,
		Detail:  fmt.Sprintf("allocation failed with params %+v", params),
		Value:   params,
		Cause:   cause,
	}
}

// Command reports a tag that may not be queued or dispatched.
func Command(phase Phase, tag any, detail string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindCommand,
		Subject: fmt.Sprintf("tag %v", tag),
		Detail:  detail,
		Value:   tag,
	}
}

// Reference reports use of a reference slot against the wrong runtime.
func Reference(detail string) *Error {
	return &Error{
		Phase:  PhaseReference,
		Kind:   KindReference,
		Detail: detail,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, subject, want, got string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindTypeMismatch,
		Subject: subject,
		Detail:  fmt.Sprintf("want %s, got %s", want, got),
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, subject string, index, length int) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindOutOfBounds,
		Subject: subject,
		Detail:  fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:   index,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindNotFound,
		Subject: what,
		Detail:  fmt.Sprintf("%q not found", name),
		Value:   name,
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, what string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindNotInitialized,
		Subject: what,
		Detail:  "not initialized",
	}
}

// Closed reports an operation on a destroyed or closed object
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindClosed,
		Subject: what,
		Detail:  "already closed",
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Sentinels for errors.Is matching by phase and kind.
var (
	ErrCreation  = &Error{Phase: PhaseInit, Kind: KindCreation}
	ErrCommand   = &Error{Phase: PhaseDispatch, Kind: KindCommand}
	ErrQueued    = &Error{Phase: PhaseQueue, Kind: KindCommand}
	ErrReference = &Error{Phase: PhaseReference, Kind: KindReference}
)
