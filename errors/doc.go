// Package errors provides the structured error type shared across the VM.
//
// Errors are categorized by Phase (where in the pipeline the fault occurred)
// and Kind (what kind of fault it is). The taxonomy follows a recovery
// policy: script-visible errors carry enough structure for the
// interpreter to materialize a
// catchable JS error object, while internal invariant violations are left
// distinguishable so the VM can abort instead of limping on.
//
// Use the Builder for structured construction:
//
//	err := errors.New(errors.PhaseRuntime, errors.KindTypeError).
//		Detail("value is not a function").
//		Build()
//
// or one of the convenience constructors:
//
//	err := errors.OutOfBounds(errors.PhaseRuntime, 10, 5)
//	err := errors.StackOverflow(5000)
//
// All errors implement the standard error interface and support
// errors.Is/As via Unwrap.
package errors
