package vmtest

import (
	"testing"

	"github.com/jsvm/jsvm/bytecode"
	"github.com/jsvm/jsvm/interp"
)

func TestBuilderProducesAValidatingModule(t *testing.T) {
	m := NewModule("arith")
	m.Func("main", 0, 3).
		LoadSmallInt(0, 2).
		LoadSmallInt(1, 3).
		Add(2, 0, 1).
		Return(2).
		Build()

	mod := m.Build()
	if err := bytecode.Validate(mod); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestBuilderEvaluatesStraightLineArithmetic(t *testing.T) {
	m := NewModule("arith")
	m.Func("main", 0, 3).
		LoadSmallInt(0, 2).
		LoadSmallInt(1, 3).
		Add(2, 0, 1).
		Return(2).
		Build()

	prog := interp.Load(m.Build())
	it := interp.New()
	result, err := it.Eval(prog)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !result.IsInt32() || result.AsInt32() != 5 {
		t.Fatalf("expected 5, got %+v", result)
	}
}

// TestBuilderLoopWithLabelsSumsZeroToFour exercises both a backward
// jump (the loop's continuation) and a forward jump (its exit), the
// two shapes interp/run.go's jump offset bug silently broke.
func TestBuilderLoopWithLabelsSumsZeroToFour(t *testing.T) {
	m := NewModule("loop")
	fn := m.Func("main", 0, 4)
	top := fn.NewLabel()
	done := fn.NewLabel()

	fn.LoadSmallInt(0, 0) // i
	fn.LoadSmallInt(1, 0) // sum
	fn.LoadSmallInt(2, 5) // limit
	fn.Bind(top)
	fn.Lt(3, 0, 2)
	fn.JumpIfFalse(3, done)
	fn.Add(1, 1, 0)
	fn.Inc(0)
	fn.Jump(top)
	fn.Bind(done)
	fn.Return(1)
	fn.Build()

	mod := m.Build()
	if err := bytecode.Validate(mod); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	prog := interp.Load(mod)
	it := interp.New()
	result, err := it.Eval(prog)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !result.IsInt32() || result.AsInt32() != 10 {
		t.Fatalf("expected 10 (0+1+2+3+4), got %+v", result)
	}
}

func TestBuilderPanicsOnUnboundLabel(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected Build to panic on an unbound jump target")
		}
	}()
	m := NewModule("bad")
	fn := m.Func("main", 0, 1)
	stray := fn.NewLabel()
	fn.Jump(stray)
	fn.Build()
}
