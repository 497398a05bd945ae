package host

import (
	"github.com/jsvm/jsvm/errors"
	"github.com/jsvm/jsvm/gc"
	"github.com/jsvm/jsvm/job"
	"github.com/jsvm/jsvm/object"
	"github.com/jsvm/jsvm/value"
)

// ArgsView is a call's argument list with JS's "missing argument reads
// as undefined" semantics, the same padding newFrame (package interp)
// applies to a bytecode call's register file.
type ArgsView []value.Value

// Len reports how many arguments were actually passed.
func (a ArgsView) Len() int { return len(a) }

// Get returns the i'th argument, or undefined if i is out of range.
func (a ArgsView) Get(i int) value.Value {
	if i < 0 || i >= len(a) {
		return value.Undefined()
	}
	return a[i]
}

// NativeFunc is the contract a host-registered built-in implements (spec
// §6): this, its arguments, and a NativeContext scoped to this one call.
// Returning a plain error (rather than *errors.Error) keeps the surface
// embedders write against ordinary Go, at the cost of losing Phase/Kind
// on the Go side — RegisterNative wraps whatever comes back as an
// errors.PhaseHost/KindInternal *errors.Error unless it already is one.
type NativeFunc func(this value.Value, args ArgsView, ctx *NativeContext) (value.Value, error)

// NativeContext is the capability set a NativeFunc receives: enough of
// the interpreter to allocate, root, call back into script, enqueue a
// job, and reach the handful of well-known symbols, without handing it
// the whole *interp.Interpreter (which would let a native function reach
// past its call into interpreter-internal state).
type NativeContext struct {
	vm    *VM
	scope *gc.HandleScope
}

// Model exposes the shared object model for callers that need to read
// properties directly (object.Get/object.Set) rather than through Invoke.
func (c *NativeContext) Model() *object.Model { return c.vm.it.Model }

// OpenScope opens a nested HandleScope, for a native function that
// allocates more objects than it returns and wants the intermediates
// collectible before the call itself returns.
func (c *NativeContext) OpenScope() *gc.HandleScope { return c.vm.it.Model.Heap.OpenScope() }

// Invoke calls a JS-visible callable value, letting a native function
// accept and run callbacks (Array.prototype.map-style APIs).
func (c *NativeContext) Invoke(fn, this value.Value, args []value.Value) (value.Value, *errors.Error) {
	return c.vm.it.Invoke(fn, this, args)
}

// EnqueueJob schedules run as a microtask, draining alongside every other
// pending job at the next DrainMicrotasks/Eval boundary.
func (c *NativeContext) EnqueueJob(name string, run func() *errors.Error) {
	c.vm.it.Jobs.Enqueue(job.Job{Name: name, Run: run})
}

// Throw wraps v as a script-level exception, for a native function that
// wants to reject with an arbitrary JS value rather than a host error.
func (c *NativeContext) Throw(v value.Value) error {
	return errors.ScriptThrow(v)
}

// NewPlainObject allocates an empty object inheriting from
// Object.prototype.
func (c *NativeContext) NewPlainObject() (value.Value, *errors.Error) {
	intr := c.vm.it.Intrinsics
	obj := object.NewPlainObject(intr.ObjectShape)
	ref, err := c.vm.it.Model.Heap.Alloc(gc.KindPlainObject, obj, false)
	if err != nil {
		return value.Value{}, errors.Wrap(errors.PhaseGC, errors.KindOutOfMemory, err, "allocation failed")
	}
	c.scope.NewHandle(ref)
	return value.FromHeapObject(uint32(ref)), nil
}

// NewArray allocates an empty array inheriting from Array.prototype.
func (c *NativeContext) NewArray() (value.Value, *errors.Error) {
	intr := c.vm.it.Intrinsics
	arr := object.NewArray(intr.ArrayShape)
	ref, err := c.vm.it.Model.Heap.Alloc(gc.KindArray, arr, false)
	if err != nil {
		return value.Value{}, errors.Wrap(errors.PhaseGC, errors.KindOutOfMemory, err, "allocation failed")
	}
	c.scope.NewHandle(ref)
	return value.FromHeapObject(uint32(ref)), nil
}

// NewString allocates a heap string.
func (c *NativeContext) NewString(s string) (value.Value, *errors.Error) {
	ref, err := c.vm.it.Model.Heap.Alloc(gc.KindString, object.NewString(s), false)
	if err != nil {
		return value.Value{}, errors.Wrap(errors.PhaseGC, errors.KindOutOfMemory, err, "allocation failed")
	}
	c.scope.NewHandle(ref)
	return value.FromHeapString(uint32(ref)), nil
}

// WellKnownSymbol returns the shared identity of the named well-known
// symbol. Only "iterator" is defined so far (interp.Intrinsics.SymbolIterator);
// ok is false for any other name.
func (c *NativeContext) WellKnownSymbol(name string) (value.Value, bool) {
	if name != "iterator" {
		return value.Value{}, false
	}
	return value.FromHeapObject(uint32(c.vm.it.Intrinsics.SymbolIterator)), true
}

// wrapNative adapts fn to the object.NativeImpl signature the object
// model's Function.Native field expects, opening and closing one
// HandleScope per call so objects a NativeFunc allocates and hands back
// to script stay rooted for the call's duration without leaking past it.
func wrapNative(vm *VM, fn NativeFunc) object.NativeImpl {
	return func(this value.Value, args []value.Value) (value.Value, *errors.Error) {
		scope := vm.it.Model.Heap.OpenScope()
		defer scope.Close()
		ctx := &NativeContext{vm: vm, scope: scope}
		result, err := fn(this, ArgsView(args), ctx)
		if err == nil {
			return result, nil
		}
		if je, ok := err.(*errors.Error); ok {
			return value.Undefined(), je
		}
		return value.Undefined(), errors.Wrap(errors.PhaseHost, errors.KindInternal, err, "native function failed")
	}
}
