package interp

import (
	"sync"

	"github.com/jsvm/jsvm/errors"
	"github.com/jsvm/jsvm/gc"
	"github.com/jsvm/jsvm/job"
	"github.com/jsvm/jsvm/object"
	"github.com/jsvm/jsvm/shape"
	"github.com/jsvm/jsvm/value"
)

// Generator drives a generator or async function body on its own
// goroutine, parking at each Yield/Await until Next or Throw is called. This
// is the idiomatic-Go analog of an asyncify unwind/rewind
// handshake: rather than serializing interpreter-frame state into a
// byte buffer and restoring it later, the frame's own Go call stack IS
// the saved state, kept alive by blocking on a channel instead of being
// torn down. Async functions
// reuse the same coroutine, desugared as "a generator whose yielded
// values are the operands of `await`", the standard technique for
// layering async/await over a generator primitive.
type Generator struct {
	resumeCh chan resumeMsg
	yieldCh  chan yieldMsg
	done     bool

	mu        sync.Mutex
	executing bool
}

type resumeMsg struct {
	value value.Value
	throw bool
}

type yieldMsg struct {
	value value.Value
	done  bool
	err   *errors.Error
}

func (it *Interpreter) newGenerator(prog *Program, frame *Frame) *Generator {
	g := &Generator{
		resumeCh: make(chan resumeMsg),
		yieldCh:  make(chan yieldMsg),
	}
	frame.gen = g
	go func() {
		<-g.resumeCh // wait for the first Next/Throw before running any bytecode
		result, err := it.run(prog, frame)
		g.yieldCh <- yieldMsg{value: result, done: true, err: err}
	}()
	return g
}

// enterExecution marks g as currently executing, returning an error
// instead if a prior Next/Throw call is already running (the generator
// body is parked somewhere other than a Yield/Await, e.g. re-entered
// from within its own execution) — without this check, a second
// resumeCh send would simply block forever, since nothing is waiting to
// receive it until the first call's run finishes.
func (g *Generator) enterExecution() *errors.Error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.executing {
		return errors.AlreadyExecuting("generator")
	}
	g.executing = true
	return nil
}

func (g *Generator) exitExecution() {
	g.mu.Lock()
	g.executing = false
	g.mu.Unlock()
}

// Next resumes the generator with resumeValue, running until the next
// Yield/Await, a return, or an uncaught throw.
func (g *Generator) Next(resumeValue value.Value) (value.Value, bool, *errors.Error) {
	if g.done {
		return value.Undefined(), true, nil
	}
	if err := g.enterExecution(); err != nil {
		return value.Value{}, false, err
	}
	defer g.exitExecution()
	g.resumeCh <- resumeMsg{value: resumeValue}
	msg := <-g.yieldCh
	if msg.done {
		g.done = true
	}
	return msg.value, msg.done, msg.err
}

// Throw resumes the generator by raising thrown at the suspended
// Yield/Await point, as if that expression itself had thrown.
func (g *Generator) Throw(thrown value.Value) (value.Value, bool, *errors.Error) {
	if g.done {
		return value.Undefined(), true, nil
	}
	if err := g.enterExecution(); err != nil {
		return value.Value{}, false, err
	}
	defer g.exitExecution()
	g.resumeCh <- resumeMsg{value: thrown, throw: true}
	msg := <-g.yieldCh
	if msg.done {
		g.done = true
	}
	return msg.value, msg.done, msg.err
}

// yield is called from within the run loop, on the generator's own
// goroutine, at an OpYield/OpAwait instruction: it hands v to whoever is
// currently blocked in Next/Throw and parks until the next call.
func (g *Generator) yield(v value.Value) (value.Value, *errors.Error) {
	g.yieldCh <- yieldMsg{value: v, done: false}
	msg := <-g.resumeCh
	if msg.throw {
		return value.Value{}, errors.ScriptThrow(msg.value)
	}
	return msg.value, nil
}

func (it *Interpreter) callGeneratorFunction(prog *Program, fnIndex int, this value.Value, args []value.Value) (value.Value, *errors.Error) {
	bcFn := prog.Module.Functions[fnIndex]
	frame := newFrame(bcFn, fnIndex, nil, this, args, nil)
	g := it.newGenerator(prog, frame)
	return it.makeGeneratorObject(g), nil
}

func (it *Interpreter) makeGeneratorObject(g *Generator) value.Value {
	obj := object.NewPlainObject(it.Intrinsics.ObjectShape)
	ref, _ := it.Model.Heap.Alloc(gc.KindPlainObject, obj, false)
	ov := value.FromHeapObject(uint32(ref))

	argOrUndefined := func(args []value.Value) value.Value {
		if len(args) > 0 {
			return args[0]
		}
		return value.Undefined()
	}

	next := func(this value.Value, args []value.Value) (value.Value, *errors.Error) {
		v, done, err := g.Next(argOrUndefined(args))
		if err != nil {
			return value.Undefined(), err
		}
		return it.iteratorResult(v, done), nil
	}
	throwFn := func(this value.Value, args []value.Value) (value.Value, *errors.Error) {
		v, done, err := g.Throw(argOrUndefined(args))
		if err != nil {
			return value.Undefined(), err
		}
		return it.iteratorResult(v, done), nil
	}
	returnFn := func(this value.Value, args []value.Value) (value.Value, *errors.Error) {
		g.done = true
		return it.iteratorResult(argOrUndefined(args), true), nil
	}

	it.defineNativeMethod(ref, ov, "next", 1, next)
	it.defineNativeMethod(ref, ov, "throw", 1, throwFn)
	it.defineNativeMethod(ref, ov, "return", 1, returnFn)
	return ov
}

func (it *Interpreter) defineNativeMethod(ref gc.Ref, receiver value.Value, name string, arity int, impl object.NativeImpl) {
	nf := object.NewNativeFunction(it.Intrinsics.FunctionShape, name, arity, impl)
	nref, _ := it.Model.Heap.Alloc(gc.KindFunction, nf, false)
	object.Set(it.Model, ref, shape.StringKey(name), value.FromHeapObject(uint32(nref)), receiver, it)
}

func (it *Interpreter) iteratorResult(v value.Value, done bool) value.Value {
	obj := object.NewPlainObject(it.Intrinsics.ObjectShape)
	ref, _ := it.Model.Heap.Alloc(gc.KindPlainObject, obj, false)
	ov := value.FromHeapObject(uint32(ref))
	object.Set(it.Model, ref, shape.StringKey("value"), v, ov, it)
	object.Set(it.Model, ref, shape.StringKey("done"), value.FromBool(done), ov, it)
	return ov
}

// callAsyncFunction runs bcFn's body as a coroutine, immediately
// returning a Promise that settles once the body returns or throws
//.
func (it *Interpreter) callAsyncFunction(prog *Program, fnIndex int, this value.Value, args []value.Value) (value.Value, *errors.Error) {
	bcFn := prog.Module.Functions[fnIndex]
	frame := newFrame(bcFn, fnIndex, nil, this, args, nil)
	g := it.newGenerator(prog, frame)

	promise := object.NewPromise(it.Intrinsics.PromiseShape)
	pref, allocErr := it.Model.Heap.Alloc(gc.KindPromise, promise, false)
	if allocErr != nil {
		return value.Undefined(), outOfMemory(allocErr)
	}
	it.stepAsync(g, pref, value.Undefined(), false)
	return value.FromHeapObject(uint32(pref)), nil
}

// stepAsync advances g by one Next/Throw call and either settles the
// driving promise (on return or uncaught throw) or arranges to resume g
// once the awaited operand itself settles.
func (it *Interpreter) stepAsync(g *Generator, pref gc.Ref, resumeValue value.Value, isThrow bool) {
	var v value.Value
	var done bool
	var err *errors.Error
	if isThrow {
		v, done, err = g.Throw(resumeValue)
	} else {
		v, done, err = g.Next(resumeValue)
	}

	obj, ok := it.Model.Heap.Get(pref)
	if !ok {
		return
	}
	p := obj.(*object.Promise)

	if err != nil {
		reactions := p.Settle(false, it.throwableValue(err))
		it.scheduleReactions(reactions, it.throwableValue(err))
		return
	}
	if done {
		reactions := p.Settle(true, v)
		it.scheduleReactions(reactions, v)
		return
	}

	if v.IsHeapObject() {
		if innerObj, ok := it.Model.Heap.Get(gc.Ref(v.HeapIndex())); ok {
			if inner, ok := innerObj.(*object.Promise); ok {
				it.attachAwait(inner, g, pref)
				return
			}
		}
	}
	// Non-promise operand: resume on the next microtask with the value
	// itself.
	it.Jobs.Enqueue(job.Job{Name: "await.immediate", Run: func() *errors.Error {
		it.stepAsync(g, pref, v, false)
		return nil
	}})
}

func (it *Interpreter) attachAwait(inner *object.Promise, g *Generator, pref gc.Ref) {
	onOk := it.nativeContinuation(func(result value.Value) { it.stepAsync(g, pref, result, false) })
	onErr := it.nativeContinuation(func(result value.Value) { it.stepAsync(g, pref, result, true) })
	if inner.State == object.PromisePending {
		inner.AddReaction(object.Reaction{Handler: onOk}, object.Reaction{Handler: onErr})
		return
	}
	settledOk := inner.State == object.PromiseFulfilled
	result := inner.Result
	it.Jobs.Enqueue(job.Job{Name: "await.settled", Run: func() *errors.Error {
		it.stepAsync(g, pref, result, !settledOk)
		return nil
	}})
}

// scheduleReactions queues each reaction's handler as a job, invoked with
// result. Derived-promise resolution (Reaction.DerivedOk/DerivedErr) is
// not wired here: chaining via .then()'s returned promise belongs to a
// hosted standard-library layer built on top of this package (see
// DESIGN.md), so a handler's own return value is discarded.
func (it *Interpreter) scheduleReactions(reactions []object.Reaction, result value.Value) {
	for _, r := range reactions {
		r := r
		if !r.Handler.IsHeapObject() {
			continue
		}
		handler := r.Handler
		it.Jobs.Enqueue(job.Job{Name: "promise.reaction", Run: func() *errors.Error {
			_, err := it.Call(handler, value.Undefined(), []value.Value{result})
			return err
		}})
	}
}

// getIterator duck-types v as an iterator: an Array gets a synthesized
// native-method iterator, and anything already exposing an own `next`
// property is assumed to already be an iterator.
func (it *Interpreter) getIterator(v value.Value) (value.Value, *errors.Error) {
	if v.IsHeapObject() {
		ref := gc.Ref(v.HeapIndex())
		if obj, ok := it.Model.Heap.Get(ref); ok {
			if arr, ok := obj.(*object.Array); ok {
				return it.makeArrayIterator(arr), nil
			}
			if object.Has(it.Model, ref, shape.StringKey("next")) {
				return v, nil
			}
		}
	}
	return value.Value{}, errors.TypeError(errors.PhaseRuntime, "value is not iterable")
}

func (it *Interpreter) makeArrayIterator(arr *object.Array) value.Value {
	obj := object.NewPlainObject(it.Intrinsics.ObjectShape)
	ref, _ := it.Model.Heap.Alloc(gc.KindPlainObject, obj, false)
	ov := value.FromHeapObject(uint32(ref))
	idx := uint32(0)
	next := func(this value.Value, args []value.Value) (value.Value, *errors.Error) {
		if idx >= arr.Length() {
			return it.iteratorResult(value.Undefined(), true), nil
		}
		v, ok := arr.GetElement(idx)
		idx++
		if !ok {
			v = value.Undefined()
		}
		return it.iteratorResult(v, false), nil
	}
	it.defineNativeMethod(ref, ov, "next", 0, next)
	return ov
}

// iteratorNext calls iterator.next() and reports its {value, done} pair.
func (it *Interpreter) iteratorNext(iterator value.Value) (value.Value, bool, *errors.Error) {
	if !iterator.IsHeapObject() {
		return value.Value{}, false, errors.TypeError(errors.PhaseRuntime, "value is not iterable")
	}
	nextFn, err := object.Get(it.Model, gc.Ref(iterator.HeapIndex()), shape.StringKey("next"), iterator, it)
	if err != nil {
		return value.Value{}, false, err
	}
	result, err := it.Call(nextFn, iterator, nil)
	if err != nil {
		return value.Value{}, false, err
	}
	if !result.IsHeapObject() {
		return value.Value{}, false, errors.TypeError(errors.PhaseRuntime, "iterator result is not an object")
	}
	resRef := gc.Ref(result.HeapIndex())
	doneVal, err := object.Get(it.Model, resRef, shape.StringKey("done"), result, it)
	if err != nil {
		return value.Value{}, false, err
	}
	valVal, err := object.Get(it.Model, resRef, shape.StringKey("value"), result, it)
	if err != nil {
		return value.Value{}, false, err
	}
	return valVal, it.toBoolean(doneVal), nil
}

func (it *Interpreter) nativeContinuation(fn func(value.Value)) value.Value {
	impl := func(this value.Value, args []value.Value) (value.Value, *errors.Error) {
		var arg value.Value
		if len(args) > 0 {
			arg = args[0]
		} else {
			arg = value.Undefined()
		}
		fn(arg)
		return value.Undefined(), nil
	}
	nf := object.NewNativeFunction(it.Intrinsics.FunctionShape, "", 1, impl)
	ref, _ := it.Model.Heap.Alloc(gc.KindFunction, nf, false)
	return value.FromHeapObject(uint32(ref))
}
