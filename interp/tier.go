package interp

import (
	"github.com/jsvm/jsvm/errors"
	"github.com/jsvm/jsvm/value"
)

// Tier is implemented by the baseline JIT (package jit) and wired in by
// the embedding host at VM construction time (see package doc): it lets
// the interpreter hand a hot function off for compilation and invoke
// the resulting native code without this package importing jit.
type Tier interface {
	// Compile attempts to compile fnIndex's bytecode within prog to
	// native code, consulting the accumulated feedback vector to decide
	// which guards to bake in. ok is false if the function is not (yet,
	// or ever) a good compilation candidate.
	Compile(prog *Program, fnIndex int) (compiled any, ok bool)

	// Invoke runs previously compiled code for a call. ok is false if a
	// guard failed and the interpreter should retry in bytecode with
	// widened feedback (a bailout); err is only meaningful when ok is
	// true.
	Invoke(compiled any, this value.Value, args []value.Value) (result value.Value, ok bool, err *errors.Error)
}
