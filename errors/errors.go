package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the pipeline the error occurred.
type Phase string

const (
	PhaseDecode   Phase = "decode"   // bytecode module decoding
	PhaseValidate Phase = "validate" // bytecode module validation
	PhaseCompile  Phase = "compile"  // baseline JIT compilation
	PhaseRuntime  Phase = "runtime"  // interpreter / object-model execution
	PhaseGC       Phase = "gc"       // allocation and collection
	PhaseShape    Phase = "shape"    // shape transitions
	PhaseHost     Phase = "host"     // native function registration/invocation
)

// Kind categorizes the error, independent of Phase.
type Kind string

const (
	KindInvalidBytecode   Kind = "invalid_bytecode"
	KindOutOfBounds       Kind = "out_of_bounds"
	KindTypeError         Kind = "type_error"
	KindRangeError        Kind = "range_error"
	KindNotCallable       Kind = "not_callable"
	KindAlreadyExecuting  Kind = "already_executing"
	KindOutOfMemory       Kind = "out_of_memory"
	KindStackOverflow     Kind = "stack_overflow"
	KindInterrupted       Kind = "interrupted"
	KindInternal          Kind = "internal" // invariant violation: abort, don't recover
	KindNotFound          Kind = "not_found"
	KindRegistration      Kind = "registration"
	KindAlreadyRegistered Kind = "already_registered"
	// KindScriptThrow carries an arbitrary JS-level thrown value, as
	// opposed to a VM-raised Range/Type error: the thrown value itself
	// lives in Error.Value.
	KindScriptThrow Kind = "script_throw"
)

// Error is the structured error type used throughout the VM.
type Error struct {
	Value any
	Cause error
	Phase Phase
	Kind  Kind
	// Detail is a human-readable message.
	Detail string
	// Path identifies the offending location (property path, register
	// index stringified, etc.) when applicable.
	Path []string
}

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

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error's (Phase, Kind).
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Recoverable reports whether JS-visible catch machinery may handle this
// error. Internal invariant violations and interruption are not
// recoverable by script.
func (e *Error) Recoverable() bool {
	switch e.Kind {
	case KindInternal, KindInterrupted:
		return false
	default:
		return true
	}
}

// JSErrorName maps a Kind to the constructor name the interpreter should
// instantiate when surfacing this error to script: OOM and stack
// overflow surface as RangeError.
func (e *Error) JSErrorName() string {
	switch e.Kind {
	case KindOutOfMemory, KindStackOverflow, KindRangeError, KindOutOfBounds:
		return "RangeError"
	case KindTypeError, KindNotCallable, KindAlreadyExecuting:
		return "TypeError"
	default:
		return "Error"
	}
}

// Builder provides structured error construction.
type Builder struct {
	err Error
}

// New creates a new error builder.
func New(phase Phase, kind Kind) *Builder {
	return &Builder{err: Error{Phase: phase, Kind: kind}}
}

func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common faults.

func InvalidBytecode(path []string, detail string, args ...any) *Error {
	return New(PhaseDecode, KindInvalidBytecode).Path(path...).Detail(detail, args...).Build()
}

func OutOfBounds(phase Phase, index, length int) *Error {
	return New(phase, KindOutOfBounds).Detail("index %d out of bounds (length %d)", index, length).Build()
}

func TypeError(phase Phase, detail string, args ...any) *Error {
	return New(phase, KindTypeError).Detail(detail, args...).Build()
}

func NotCallable(value any) *Error {
	return New(PhaseRuntime, KindNotCallable).Value(value).Detail("value is not callable").Build()
}

func AlreadyExecuting(what string) *Error {
	return New(PhaseRuntime, KindAlreadyExecuting).Detail("%s is already executing", what).Build()
}

func OutOfMemory(heapSize uint64) *Error {
	return New(PhaseGC, KindOutOfMemory).Detail("heap exhausted after full collection (size %d)", heapSize).Build()
}

func StackOverflow(depth int) *Error {
	return New(PhaseRuntime, KindStackOverflow).Detail("exceeded maximum call depth (%d)", depth).Build()
}

func Interrupted() *Error {
	return New(PhaseRuntime, KindInterrupted).Detail("execution interrupted by host").Build()
}

func Internal(detail string, args ...any) *Error {
	return New(PhaseRuntime, KindInternal).Detail(detail, args...).Build()
}

func NotFound(phase Phase, what, name string) *Error {
	return New(phase, KindNotFound).Detail("%s %q not found", what, name).Build()
}

func Registration(namespace, name string, cause error) *Error {
	return New(PhaseHost, KindRegistration).Detail("register %s#%s", namespace, name).Cause(cause).Build()
}

func AlreadyRegistered(namespace, name string) *Error {
	return New(PhaseHost, KindAlreadyRegistered).Detail("%s#%s already registered", namespace, name).Build()
}

// ScriptThrow wraps an arbitrary JS value thrown by a `throw` statement
// or propagated from a rejected promise reaching the embedding boundary
//, so the interpreter and host surfaces have
// one error type to check regardless of whether the fault originated in
// the VM or in script.
func ScriptThrow(v any) *Error {
	return New(PhaseRuntime, KindScriptThrow).Value(v).Detail("uncaught exception").Build()
}

// Wrap wraps an existing error with additional phase/kind context.
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{Phase: phase, Kind: kind, Detail: detail, Cause: cause}
}
