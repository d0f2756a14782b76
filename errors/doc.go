// Package errors provides structured error types for wasm-stage.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the subject, the offending value and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseWindow, errors.KindUnsupported).
//		Subject("termwin").
//		Detail("cannot resize a terminal").
//		Build()
//
// Or use convenience constructors for the three core failure classes:
//
//	err := errors.Creation("texture", params, cause) // allocation inside Init
//	err := errors.Command(errors.PhaseDispatch, tag, "no handler")
//	err := errors.Reference("runtime mismatch")
//
// All errors implement the standard error interface and support errors.Is/As.
// Is matches on Phase and Kind, so the exported sentinels work as targets:
//
//	if errors.Is(err, wserrors.ErrCreation) { ... }
package errors
