package jit

import (
	"context"
	"testing"

	"github.com/tetratelabs/wazero"

	"github.com/jsvm/jsvm/bytecode"
	"github.com/jsvm/jsvm/ic"
	"github.com/jsvm/jsvm/interp"
	"github.com/jsvm/jsvm/value"
)

// addFn builds `function add(a, b) { return a + b }` as raw bytecode:
// two params in r0/r1, the sum in r2, a trailing return.
func addFn() *bytecode.Function {
	var code []byte
	code = bytecode.EncodeInstr(code, bytecode.Instr{Op: bytecode.OpAdd, A: 2, B: 0, C: 1})
	code = bytecode.EncodeInstr(code, bytecode.Instr{Op: bytecode.OpReturn, A: 2})
	return &bytecode.Function{Name: "add", NumParams: 2, NumRegisters: 3, Code: code}
}

func int32OnlyFeedback(*bytecode.Function) *ic.FeedbackVector {
	fb := ic.NewFeedbackVector()
	fb.Arith(0).Observe(ic.KindInt32)
	return fb
}

func TestAnalyzeAcceptsStraightLineInt32Arithmetic(t *testing.T) {
	fn := addFn()
	p, ok := analyze(fn, int32OnlyFeedback(fn))
	if !ok {
		t.Fatal("expected add(a, b) to be eligible")
	}
	if p.numParams != 2 || p.numRegisters != 3 {
		t.Fatalf("unexpected plan shape: %+v", p)
	}
	if p.returnKind != kindInt32 {
		t.Fatalf("expected int32 return kind, got %v", p.returnKind)
	}
	if len(p.ops) != 2 {
		t.Fatalf("expected 2 ops, got %d", len(p.ops))
	}
	if !p.ops[0].needsOverflowGuard {
		t.Error("expected the Add op to need an overflow guard")
	}
}

func TestAnalyzeRejectsWithoutInt32OnlyFeedback(t *testing.T) {
	fn := addFn()
	fb := ic.NewFeedbackVector()
	fb.Arith(0).Observe(ic.KindDouble)
	if _, ok := analyze(fn, fb); ok {
		t.Fatal("expected non-int32-only feedback to reject compilation")
	}
}

func TestAnalyzeRejectsUnknownOperandKind(t *testing.T) {
	// A register read before any write to it (here, register 1 is never
	// set by a param or a prior instruction) must not be speculated on.
	var code []byte
	code = bytecode.EncodeInstr(code, bytecode.Instr{Op: bytecode.OpAdd, A: 1, B: 0, C: 1})
	code = bytecode.EncodeInstr(code, bytecode.Instr{Op: bytecode.OpReturn, A: 1})
	fn := &bytecode.Function{Name: "bad", NumParams: 1, NumRegisters: 2, Code: code}
	fb := ic.NewFeedbackVector()
	fb.Arith(0).Observe(ic.KindInt32)
	if _, ok := analyze(fn, fb); ok {
		t.Fatal("expected an unresolved operand register to reject compilation")
	}
}

func TestAnalyzeRejectsGenerators(t *testing.T) {
	fn := addFn()
	fn.IsGenerator = true
	if _, ok := analyze(fn, int32OnlyFeedback(fn)); ok {
		t.Fatal("expected a generator function to be ineligible")
	}
}

func TestAnalyzeRejectsMissingTrailingReturn(t *testing.T) {
	var code []byte
	code = bytecode.EncodeInstr(code, bytecode.Instr{Op: bytecode.OpAdd, A: 2, B: 0, C: 1})
	fn := &bytecode.Function{Name: "noret", NumParams: 2, NumRegisters: 3, Code: code}
	if _, ok := analyze(fn, int32OnlyFeedback(fn)); ok {
		t.Fatal("expected a function falling off the end without return to be ineligible")
	}
}

func TestBuildModuleProducesValidWasmHeader(t *testing.T) {
	fn := addFn()
	p, ok := analyze(fn, int32OnlyFeedback(fn))
	if !ok {
		t.Fatal("addFn should be eligible")
	}
	wasmBytes := buildModule(p)
	if len(wasmBytes) < 8 {
		t.Fatalf("module too short: %d bytes", len(wasmBytes))
	}
	want := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
	for i, b := range want {
		if wasmBytes[i] != b {
			t.Fatalf("byte %d: want %#x, got %#x", i, b, wasmBytes[i])
		}
	}
}

// TestBaselineJITAddIsEquivalentToInterpreter exercises Compile/Invoke
// end to end through a real wazero.Runtime, mirroring the spec's own
// "JIT output equal to interpreter output" boundary-behavior scenario
// for a plain int32 add.
func TestBaselineJITAddIsEquivalentToInterpreter(t *testing.T) {
	ctx := context.Background()
	runtime := wazero.NewRuntime(ctx)
	defer runtime.Close(ctx)

	b := New(ctx, runtime)
	defer b.Close()

	fn := addFn()
	module := &bytecode.Module{Name: "m", Functions: []*bytecode.Function{fn}}
	prog := interp.Load(module)
	prog.Feedback[0].Arith(0).Observe(ic.KindInt32)

	compiled, ok := b.Compile(prog, 0)
	if !ok {
		t.Fatal("expected add(a, b) to compile")
	}

	result, ok, err := b.Invoke(compiled, value.Undefined(), []value.Value{value.FromInt32(2), value.FromInt32(3)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected the compiled call to succeed")
	}
	if !result.IsInt32() || result.AsInt32() != 5 {
		t.Fatalf("expected 5, got %+v", result)
	}
}

// TestBaselineJITBailsOutOnOverflow checks the guard spec §8 requires:
// an Add whose true result overflows int32 must not be returned as a
// wrapped int32, it must signal a bailout so the interpreter can retry
// with the double path.
func TestBaselineJITBailsOutOnOverflow(t *testing.T) {
	ctx := context.Background()
	runtime := wazero.NewRuntime(ctx)
	defer runtime.Close(ctx)

	b := New(ctx, runtime)
	defer b.Close()

	fn := addFn()
	module := &bytecode.Module{Name: "m", Functions: []*bytecode.Function{fn}}
	prog := interp.Load(module)
	prog.Feedback[0].Arith(0).Observe(ic.KindInt32)

	compiled, ok := b.Compile(prog, 0)
	if !ok {
		t.Fatal("expected add(a, b) to compile")
	}

	const maxInt32 = 1<<31 - 1
	_, ok, err := b.Invoke(compiled, value.Undefined(), []value.Value{value.FromInt32(maxInt32), value.FromInt32(1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected an overflowing add to bail out, not return a result")
	}
}

func TestBaselineJITInvokeRejectsNonInt32Args(t *testing.T) {
	ctx := context.Background()
	runtime := wazero.NewRuntime(ctx)
	defer runtime.Close(ctx)

	b := New(ctx, runtime)
	defer b.Close()

	fn := addFn()
	module := &bytecode.Module{Name: "m", Functions: []*bytecode.Function{fn}}
	prog := interp.Load(module)
	prog.Feedback[0].Arith(0).Observe(ic.KindInt32)

	compiled, ok := b.Compile(prog, 0)
	if !ok {
		t.Fatal("expected add(a, b) to compile")
	}

	_, ok, err := b.Invoke(compiled, value.Undefined(), []value.Value{value.FromInt32(1), value.Undefined()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected a non-int32 argument to bail out before entering wasm")
	}
}
