package interp_test

import (
	"testing"

	"github.com/jsvm/jsvm/errors"
	"github.com/jsvm/jsvm/gc"
	"github.com/jsvm/jsvm/interp"
	"github.com/jsvm/jsvm/object"
	"github.com/jsvm/jsvm/shape"
	"github.com/jsvm/jsvm/value"
	"github.com/jsvm/jsvm/vmtest"
)

// buildEchoGenerator builds a generator function of the shape:
//
//	function* gen(v) {
//	  return yield v
//	}
//
// one yield of the argument, then a return of whatever Next resumes it
// with, enough to drive the handshake from both sides. m must not have
// had any other Func reserved yet, since this installs a "main" entry
// point at index 0 that instantiates the generator.
func buildEchoGenerator(m *vmtest.Module, arg int32) *vmtest.Builder {
	main := m.Func("main", 0, 2) // reserves index 0, the module entry point
	gen := m.Func("gen", 1, 2).Generator()
	gen.Yield(1, 0)
	gen.Return(1)
	gen.Build()

	main.NewFunction(0, gen.Index())
	main.LoadSmallInt(1, arg)
	main.Call(1, 0, 1, 1)
	main.Return(1)
	main.Build()
	return gen
}

// instantiateGenerator loads and evaluates m's entry point (expected to
// return a freshly constructed generator object) and returns the
// interpreter plus that generator object.
func instantiateGenerator(t *testing.T, m *vmtest.Module) (*interp.Interpreter, value.Value) {
	t.Helper()
	prog := interp.Load(m.Build())
	it := interp.New()
	genObj, err := it.Eval(prog)
	if err != nil {
		t.Fatalf("Eval (instantiating generator): %v", err)
	}
	return it, genObj
}

func getMethod(t *testing.T, it *interp.Interpreter, obj value.Value, name string) value.Value {
	t.Helper()
	fn, err := object.Get(it.Model, gc.Ref(obj.HeapIndex()), shape.StringKey(name), obj, it)
	if err != nil {
		t.Fatalf("reading %q method: %v", name, err)
	}
	return fn
}

// iterResult reads {value, done} off an iterator-result object.
func iterResult(t *testing.T, it *interp.Interpreter, res value.Value) (value.Value, bool) {
	t.Helper()
	if !res.IsHeapObject() {
		t.Fatalf("expected an iterator-result object, got %+v", res)
	}
	ref := gc.Ref(res.HeapIndex())
	v, err := object.Get(it.Model, ref, shape.StringKey("value"), res, it)
	if err != nil {
		t.Fatalf("reading .value: %v", err)
	}
	d, err := object.Get(it.Model, ref, shape.StringKey("done"), res, it)
	if err != nil {
		t.Fatalf("reading .done: %v", err)
	}
	return v, d.IsBool() && d.AsBool()
}

// TestGeneratorYieldThenReturn drives a generator through one yield and
// its final return via repeated next() calls, the ordinary
// single-caller path.
func TestGeneratorYieldThenReturn(t *testing.T) {
	m := vmtest.NewModule("gen-basic")
	buildEchoGenerator(m, 7)
	it, genObj := instantiateGenerator(t, m)

	next := getMethod(t, it, genObj, "next")

	first, err := it.Call(next, genObj, nil)
	if err != nil {
		t.Fatalf("first next(): %v", err)
	}
	v, done := iterResult(t, it, first)
	if done {
		t.Fatal("expected the first next() to yield, not finish")
	}
	if !v.IsInt32() || v.AsInt32() != 7 {
		t.Fatalf("expected the yielded value to be the constructor argument 7, got %+v", v)
	}

	second, err := it.Call(next, genObj, []value.Value{value.FromInt32(13)})
	if err != nil {
		t.Fatalf("second next(): %v", err)
	}
	v, done = iterResult(t, it, second)
	if !done {
		t.Fatal("expected the second next() to finish the generator")
	}
	if !v.IsInt32() || v.AsInt32() != 13 {
		t.Fatalf("expected the returned value to echo the resume value 13, got %+v", v)
	}
}

// TestGeneratorThrowAtYieldPropagatesAsScriptThrow confirms Throw
// resumes the parked yield by raising the given value, and that an
// uncaught throw from inside the generator body surfaces as an error
// from Throw rather than silently returning.
func TestGeneratorThrowAtYieldPropagatesAsScriptThrow(t *testing.T) {
	m := vmtest.NewModule("gen-throw")
	buildEchoGenerator(m, 1)
	it, genObj := instantiateGenerator(t, m)

	next := getMethod(t, it, genObj, "next")
	throwFn := getMethod(t, it, genObj, "throw")

	if _, err := it.Call(next, genObj, nil); err != nil {
		t.Fatalf("priming next(): %v", err)
	}

	sentinel := value.FromInt32(99)
	_, err := it.Call(throwFn, genObj, []value.Value{sentinel})
	if err == nil {
		t.Fatal("expected throw() to surface the uncaught exception as an error")
	}
	if err.Kind != errors.KindScriptThrow {
		t.Fatalf("expected a KindScriptThrow error, got %v (%s)", err.Kind, err)
	}
	thrown, ok := err.Value.(value.Value)
	if !ok || !thrown.IsInt32() || thrown.AsInt32() != 99 {
		t.Fatalf("expected the thrown value to be the sentinel 99, got %+v", err.Value)
	}
}

// defineBlockingGlobal installs a native global function "block" that,
// when called, signals startedCh and then blocks until releaseCh is
// closed. This lets a test park a generator's own goroutine mid-body
// (inside a native call, not at a Yield/Await) on demand, the scenario
// the reentrancy guard exists for.
func defineBlockingGlobal(t *testing.T, it *interp.Interpreter, startedCh chan<- struct{}, releaseCh <-chan struct{}) {
	t.Helper()
	impl := func(this value.Value, args []value.Value) (value.Value, *errors.Error) {
		startedCh <- struct{}{}
		<-releaseCh
		return value.Undefined(), nil
	}
	nf := object.NewNativeFunction(it.Intrinsics.FunctionShape, "block", 0, impl)
	ref, err := it.Model.Heap.Alloc(gc.KindFunction, nf, false)
	if err != nil {
		t.Fatalf("allocating native global: %v", err)
	}
	if sErr := object.Set(it.Model, it.Globals, shape.StringKey("block"), value.FromHeapObject(uint32(ref)), value.Undefined(), it); sErr != nil {
		t.Fatalf("installing global: %v", sErr)
	}
}

// buildBlockOnCallThenYield installs a "main" entry point (index 0) that
// instantiates a generator of the shape:
//
//	function* gen() {
//	  block()
//	  return yield 1
//	}
func buildBlockOnCallThenYield(m *vmtest.Module) {
	main := m.Func("main", 0, 1) // reserves index 0
	gen := m.Func("gen", 0, 2).Generator()
	gen.GetGlobal(0, "block")
	gen.Call(0, 0, 0, 0)
	gen.LoadSmallInt(1, 1)
	gen.Yield(1, 1)
	gen.Return(1)
	gen.Build()

	main.NewFunction(0, gen.Index())
	main.Call(0, 0, 0, 0)
	main.Return(0)
	main.Build()
}

// TestGeneratorReentrancyReturnsAlreadyExecuting is the regression test
// for the hang a second concurrent Next/Throw call used to cause: with
// no "currently executing" guard, a call arriving while the generator's
// goroutine is mid-run (not parked at a Yield/Await) would block
// forever sending on the unbuffered resume channel, since nothing is
// there to receive it until the first call returns. This pins the
// generator inside a native call (not at a yield) using
// defineBlockingGlobal, then proves a second Next arriving during that
// window returns errors.AlreadyExecuting immediately rather than
// hanging.
func TestGeneratorReentrancyReturnsAlreadyExecuting(t *testing.T) {
	m := vmtest.NewModule("gen-reentrant")
	buildBlockOnCallThenYield(m)

	prog := interp.Load(m.Build())
	it := interp.New()

	started := make(chan struct{})
	release := make(chan struct{})
	defineBlockingGlobal(t, it, started, release)

	genObj, err := it.Eval(prog)
	if err != nil {
		t.Fatalf("Eval (instantiating generator): %v", err)
	}
	next := getMethod(t, it, genObj, "next")

	firstDone := make(chan *errors.Error, 1)
	go func() {
		_, callErr := it.Call(next, genObj, nil)
		firstDone <- callErr
	}()

	<-started // the generator's goroutine is now parked inside block(), executing == true

	if _, reentrantErr := it.Call(next, genObj, nil); reentrantErr == nil {
		t.Fatal("expected a concurrent next() to be rejected while the generator is mid-execution")
	} else if reentrantErr.Kind != errors.KindAlreadyExecuting {
		t.Fatalf("expected KindAlreadyExecuting, got %v (%s)", reentrantErr.Kind, reentrantErr)
	}

	close(release)
	if callErr := <-firstDone; callErr != nil {
		t.Fatalf("first next() (unblocked) failed: %v", callErr)
	}
}

// TestGeneratorNextAfterDoneIsANoop confirms calling next() again after
// the generator has already run to completion returns an already-done
// result instead of re-entering the (now dead) goroutine.
func TestGeneratorNextAfterDoneIsANoop(t *testing.T) {
	m := vmtest.NewModule("gen-after-done")
	buildEchoGenerator(m, 0)
	it, genObj := instantiateGenerator(t, m)
	next := getMethod(t, it, genObj, "next")

	if _, err := it.Call(next, genObj, nil); err != nil {
		t.Fatalf("first next(): %v", err)
	}
	if _, err := it.Call(next, genObj, nil); err != nil {
		t.Fatalf("second next() (completing): %v", err)
	}
	third, err := it.Call(next, genObj, nil)
	if err != nil {
		t.Fatalf("third next() (after done): %v", err)
	}
	_, done := iterResult(t, it, third)
	if !done {
		t.Fatal("expected next() after completion to report done:true")
	}
}
