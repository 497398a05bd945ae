package interp_test

import (
	"testing"

	"github.com/jsvm/jsvm/interp"
	"github.com/jsvm/jsvm/vmtest"
)

// TestThrowCaughtByExceptionTable builds a function with a protected
// region covering a Throw, and an exception-table entry routing it to a
// handler that reads the thrown value back out of the catch register
// (register 0, interp.catchRegister) and returns it.
func TestThrowCaughtByExceptionTable(t *testing.T) {
	m := vmtest.NewModule("try-catch")
	msg := m.String("boom")
	fn := m.Func("main", 0, 2)

	fn.LoadConst(1, msg)
	tryStart := fn.Pos()
	fn.Throw(1)
	tryEnd := fn.Pos()
	handlerPC := fn.Pos()
	fn.Return(0) // register 0 holds whatever the handler installed: the thrown value
	fn.Try(tryStart, tryEnd, handlerPC)
	fn.Build()

	prog := interp.Load(m.Build())
	it := interp.New()
	result, err := it.Eval(prog)
	if err != nil {
		t.Fatalf("expected the throw to be caught, got uncaught error: %v", err)
	}
	if got := heapStringContents(t, it, result); got != "boom" {
		t.Fatalf(`expected caught value "boom", got %q`, got)
	}
}

// TestThrowOutsideAnyHandlerEscapes confirms a throw with no covering
// exception-table entry surfaces as an error from Eval rather than
// being silently swallowed.
func TestThrowOutsideAnyHandlerEscapes(t *testing.T) {
	m := vmtest.NewModule("uncaught-throw")
	msg := m.String("boom")
	fn := m.Func("main", 0, 2)
	fn.LoadConst(1, msg)
	fn.Throw(1)
	fn.Build()

	prog := interp.Load(m.Build())
	it := interp.New()
	_, err := it.Eval(prog)
	if err == nil {
		t.Fatal("expected an uncaught throw to escape Eval as an error")
	}
}

// TestThrowFromArithmeticTypeErrorIsCatchable confirms a VM-raised fault
// (not just an explicit `throw`) is recoverable through the same
// exception-table mechanism, landing as an Error-like object in the
// catch register.
func TestThrowFromArithmeticTypeErrorIsCatchable(t *testing.T) {
	m := vmtest.NewModule("try-catch-typeerror")
	fn := m.Func("main", 0, 3)

	fn.NewObject(1) // an object operand to % forces execArith's TypeError path
	tryStart := fn.Pos()
	fn.LoadSmallInt(2, 1)
	fn.Mod(0, 1, 2)
	tryEnd := fn.Pos()
	handlerPC := fn.Pos()
	fn.GetProp(0, 0, "name")
	fn.Return(0)
	fn.Try(tryStart, tryEnd, handlerPC)
	fn.Build()

	prog := interp.Load(m.Build())
	it := interp.New()
	result, err := it.Eval(prog)
	if err != nil {
		t.Fatalf("expected the runtime TypeError to be caught, got uncaught error: %v", err)
	}
	if got := heapStringContents(t, it, result); got != "TypeError" {
		t.Fatalf(`expected caught error .name == "TypeError", got %q`, got)
	}
}
