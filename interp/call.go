package interp

import (
	"github.com/jsvm/jsvm/bytecode"
	"github.com/jsvm/jsvm/errors"
	"github.com/jsvm/jsvm/gc"
	"github.com/jsvm/jsvm/object"
	"github.com/jsvm/jsvm/shape"
	"github.com/jsvm/jsvm/value"
)

// Invoke implements object.Invoker, letting accessor properties and
// Proxy traps call back into script.
func (it *Interpreter) Invoke(fn, this value.Value, args []value.Value) (value.Value, *errors.Error) {
	return it.Call(fn, this, args)
}

// Call invokes a callable Value: a Function template, Closure,
// BoundFunction, or a native host function.
func (it *Interpreter) Call(callee, this value.Value, args []value.Value) (value.Value, *errors.Error) {
	if len(it.stack) >= it.maxDepth {
		return value.Undefined(), errors.StackOverflow(it.maxDepth)
	}
	if !callee.IsHeapObject() {
		return value.Undefined(), errors.NotCallable(callee)
	}
	ref := gc.Ref(callee.HeapIndex())
	obj, ok := it.Model.Heap.Get(ref)
	if !ok {
		return value.Undefined(), errors.NotCallable(callee)
	}
	switch fn := obj.(type) {
	case *object.Function:
		return it.callTemplate(fn, nil, this, args)
	case *object.Closure:
		return it.callTemplate(fn.Template, fn, this, args)
	case *object.BoundFunction:
		boundArgs := append(append([]value.Value(nil), fn.BoundArgs...), args...)
		return it.Call(fn.Target, fn.BoundThis, boundArgs)
	default:
		return value.Undefined(), errors.NotCallable(callee)
	}
}

func (it *Interpreter) callTemplate(fn *object.Function, closure *object.Closure, this value.Value, args []value.Value) (value.Value, *errors.Error) {
	if fn.Native != nil {
		return fn.Native(this, args)
	}

	prog, fnIndex, bcFn, ok := it.resolveCode(fn)
	if !ok {
		return value.Undefined(), errors.Internal("function %q has no resolvable bytecode", fn.Name)
	}

	if bcFn.IsAsync {
		return it.callAsyncFunction(prog, fnIndex, this, args)
	}
	if bcFn.IsGenerator {
		return it.callGeneratorFunction(prog, fnIndex, this, args)
	}

	fn.CallCount++
	if it.Tier != nil && !fn.JITIneligible && fn.JIT == nil && fn.CallCount >= jitCallThreshold {
		if compiled, ok := it.Tier.Compile(prog, fnIndex); ok {
			fn.JIT = compiled
		} else {
			fn.JITIneligible = true
		}
	}
	if fn.JIT != nil {
		result, ok, err := it.Tier.Invoke(fn.JIT, this, args)
		if ok {
			return result, err
		}
		fn.BailoutCount++
		if fn.BailoutCount > maxBailouts {
			fn.JIT = nil
			fn.JITIneligible = true
		}
		// fall through and interpret this call in bytecode
	}

	frame := newFrame(bcFn, fnIndex, closure, this, args, it.currentFrame())
	it.stack = append(it.stack, frame)
	defer func() { it.stack = it.stack[:len(it.stack)-1] }()
	return it.run(prog, frame)
}

// Construct implements the [[Construct]] internal method for a Value
// callee: allocate a fresh object inheriting from callee's own
// `prototype` property (falling back to Object.prototype), invoke the
// callee with that object as `this`, and return the callee's result if
// it is itself an object, else the freshly allocated instance. No
// bytecode opcode drives `new` directly — the
// instruction set has no spare operand to mark a call site as a
// construct, so the compiler that would lower a `new` expression is
// expected to call this Go entry point rather than emit OpCall (see
// DESIGN.md).
func (it *Interpreter) Construct(callee value.Value, args []value.Value) (value.Value, *errors.Error) {
	if !callee.IsHeapObject() {
		return value.Undefined(), errors.NotCallable(callee)
	}
	protoVal, err := object.Get(it.Model, gc.Ref(callee.HeapIndex()), shape.StringKey("prototype"), callee, it)
	if err != nil {
		return value.Undefined(), err
	}
	var instShape *shape.Shape
	if protoVal.IsHeapObject() {
		instShape = it.Model.Shapes.EmptyShape(gc.Ref(protoVal.HeapIndex()), true)
	} else {
		instShape = it.Intrinsics.ObjectShape
	}
	inst := object.NewPlainObject(instShape)
	ref, allocErr := it.Model.Heap.Alloc(gc.KindPlainObject, inst, false)
	if allocErr != nil {
		return value.Undefined(), outOfMemory(allocErr)
	}
	thisVal := value.FromHeapObject(uint32(ref))
	result, callErr := it.Call(callee, thisVal, args)
	if callErr != nil {
		return value.Undefined(), callErr
	}
	if result.IsHeapObject() {
		return result, nil
	}
	return thisVal, nil
}

func (it *Interpreter) execCall(frame *Frame, instr bytecode.Instr) (value.Value, *errors.Error) {
	callee := frame.get(instr.B)
	argc := int(instr.Imm)
	base := instr.C
	args := make([]value.Value, argc)
	for i := 0; i < argc; i++ {
		args[i] = frame.get(base + byte(i))
	}
	return it.Call(callee, value.Undefined(), args)
}

func (it *Interpreter) execCallMethod(prog *Program, frame *Frame, instr bytecode.Instr) (value.Value, *errors.Error) {
	receiver := frame.get(instr.B)
	argc := int(instr.C)
	base := instr.B + 1
	args := make([]value.Value, argc)
	for i := 0; i < argc; i++ {
		args[i] = frame.get(base + byte(i))
	}
	name, err := it.poolString(prog, instr.Imm)
	if err != nil {
		return value.Value{}, err
	}
	if !receiver.IsHeapObject() {
		return value.Value{}, errors.TypeError(errors.PhaseRuntime, "cannot call method %q on a non-object", name)
	}
	method, getErr := object.Get(it.Model, gc.Ref(receiver.HeapIndex()), shape.StringKey(name), receiver, it)
	if getErr != nil {
		return value.Value{}, getErr
	}
	return it.Call(method, receiver, args)
}
