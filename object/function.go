package object

import (
	"github.com/jsvm/jsvm/errors"
	"github.com/jsvm/jsvm/gc"
	"github.com/jsvm/jsvm/shape"
	"github.com/jsvm/jsvm/value"
)

// CodeRef identifies a compiled function blob within its owning module's
// function table. Kept as a bare integer
// here rather than importing the bytecode package, to keep the
// dependency edge pointing from bytecode/interp into object, not back.
type CodeRef uint32

// NativeImpl is the Go-side implementation of a built-in function
// registered from the host. this and args are already boxed
// Values; the interpreter supplies an Invoker-bound VM context via a
// closure over the registering call, not as a parameter here, keeping
// this signature stable across host packages.
type NativeImpl func(this value.Value, args []value.Value) (value.Value, *errors.Error)

// Function is the immutable template shared by every Closure created
// from the same function literal: arity, compiled code, and declared
// name.
// A Function is itself a callable heap object (so `fn.length`,
// `fn.name`, and `fn.prototype` are ordinary properties), used directly
// when a function literal captures no free variables.
type Function struct {
	Object
	Code          CodeRef
	Arity         int
	Name          string
	IsConstructor bool
	Native        NativeImpl // non-nil for host-registered built-ins; Code is unused then

	// CallCount, BailoutCount, JITIneligible, and JIT support the
	// interpreter's tiering policy: CallCount drives the
	// baseline-JIT compilation threshold, JIT holds the compiled tier's
	// own representation (an interp.Tier implementation's opaque result,
	// kept as `any` here so this package does not import interp/jit),
	// BailoutCount counts failed speculative guards, and JITIneligible
	// latches once a function is permanently de-optimized.
	CallCount     uint32
	BailoutCount  uint32
	JITIneligible bool
	JIT           any
}

// NewFunction creates a function template.
func NewFunction(s *shape.Shape, name string, arity int, code CodeRef, isConstructor bool) *Function {
	return &Function{Object: NewObject(s), Code: code, Arity: arity, Name: name, IsConstructor: isConstructor}
}

// NewNativeFunction wraps a Go implementation as a callable heap object.
func NewNativeFunction(s *shape.Shape, name string, arity int, impl NativeImpl) *Function {
	return &Function{Object: NewObject(s), Name: name, Arity: arity, Native: impl}
}

func (f *Function) asObject() *Object { return &f.Object }

func (f *Function) Trace(visit func(gc.Ref)) { traceObjectSlots(&f.Object, visit) }

// Upvalue is a mutable cell owned by one Closure. OpNewClosure fills a
// fresh cell for each closure with a copy of the captured register, so a
// write through one closure's cell is not seen by the creating frame or
// by any other closure.
type Upvalue struct {
	Value value.Value
}

// Closure is an instance of a Function template plus its captured
// upvalue cells. Most user-visible
// functions are closures, even those that capture nothing: the
// interpreter is free to special-case the zero-upvalue case by pointing
// directly at the Function template instead, but the object model does
// not require it.
type Closure struct {
	Object
	Template *Function
	Upvalues []*Upvalue
}

// NewClosure creates a closure over tmpl with the given captured cells.
func NewClosure(s *shape.Shape, tmpl *Function, upvalues []*Upvalue) *Closure {
	return &Closure{Object: NewObject(s), Template: tmpl, Upvalues: upvalues}
}

func (c *Closure) asObject() *Object { return &c.Object }

func (c *Closure) Trace(visit func(gc.Ref)) {
	traceObjectSlots(&c.Object, visit)
	for _, uv := range c.Upvalues {
		if uv.Value.IsHeapRef() {
			visit(gc.Ref(uv.Value.HeapIndex()))
		}
	}
	// Template is a plain Go pointer to a Function that OpNewClosure
	// builds without allocating it on the heap; it has no gc.Ref, so
	// there is nothing to visit for it here.
}

// BoundFunction is the result of Function.prototype.bind: a fixed
// `this`, a prefix of bound arguments, and the underlying callable it
// forwards to.
type BoundFunction struct {
	Object
	Target   value.Value // the bound callable (Function, Closure, or another BoundFunction)
	BoundThis value.Value
	BoundArgs []value.Value
}

// NewBoundFunction creates a bound function wrapper.
func NewBoundFunction(s *shape.Shape, target value.Value, this value.Value, args []value.Value) *BoundFunction {
	return &BoundFunction{Object: NewObject(s), Target: target, BoundThis: this, BoundArgs: append([]value.Value(nil), args...)}
}

func (b *BoundFunction) asObject() *Object { return &b.Object }

func (b *BoundFunction) Trace(visit func(gc.Ref)) {
	traceObjectSlots(&b.Object, visit)
	if b.Target.IsHeapRef() {
		visit(gc.Ref(b.Target.HeapIndex()))
	}
	if b.BoundThis.IsHeapRef() {
		visit(gc.Ref(b.BoundThis.HeapIndex()))
	}
	for _, v := range b.BoundArgs {
		if v.IsHeapRef() {
			visit(gc.Ref(v.HeapIndex()))
		}
	}
}
