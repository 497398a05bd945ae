package interp

import (
	"github.com/jsvm/jsvm/bytecode"
	"github.com/jsvm/jsvm/object"
	"github.com/jsvm/jsvm/value"
)

// Frame is one activation record on the interpreter's call stack: a
// register file, the function template being executed, and the
// bookkeeping needed to resume a suspended generator/async frame.
type Frame struct {
	fn      *bytecode.Function
	fnIndex int
	closure *object.Closure // nil when invoked off a template with no captures
	regs    []value.Value
	this    value.Value
	pc      int
	parent  *Frame

	// gen is non-nil when this frame belongs to a generator or async
	// function body, letting OpYield/OpAwait find the coroutine to park
	// on (see generator.go).
	gen *Generator
}

func newFrame(fn *bytecode.Function, fnIndex int, closure *object.Closure, this value.Value, args []value.Value, parent *Frame) *Frame {
	regs := make([]value.Value, fn.NumRegisters)
	for i := range regs {
		regs[i] = value.Undefined()
	}
	for i := 0; i < fn.NumParams && i < len(args); i++ {
		regs[i] = args[i]
	}
	return &Frame{fn: fn, fnIndex: fnIndex, closure: closure, regs: regs, this: this, parent: parent}
}

func (f *Frame) get(r byte) value.Value    { return f.regs[r] }
func (f *Frame) set(r byte, v value.Value) { f.regs[r] = v }
