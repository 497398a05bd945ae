package jit

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/jsvm/jsvm/errors"
	"github.com/jsvm/jsvm/interp"
	"github.com/jsvm/jsvm/internal/vmlog"
	"github.com/jsvm/jsvm/value"
)

// compiled is what Compile hands back to the interpreter (as interp.Tier's
// opaque `any`) and what Invoke receives to run: a single wazero module
// instance exporting one function, plus the compile-time facts Invoke
// needs to box/unbox values without re-deriving them.
type compiled struct {
	instance   api.Module
	fn         api.Function
	numParams  int
	returnKind regKind
}

// BaselineJIT is the wazero-backed implementation of interp.Tier
// described in spec §4.6 and DESIGN.md: every "compiled" function is
// realized as a tiny, zero-import core WebAssembly module, compiled and
// instantiated through wazero.Runtime exactly as engine.WazeroEngine
// compiles and instantiates guest components — the baseline tier's
// native code is real, sandboxed, re-entrant machine code generated at
// runtime, not unsafe codegen.
type BaselineJIT struct {
	ctx     context.Context
	runtime wazero.Runtime
	log     *zap.Logger
	seq     atomic.Uint64
}

// New creates a baseline JIT backend. The caller owns ctx/runtime
// shutdown (host.VM.Close closes the runtime it created, mirroring
// engine.WazeroEngine.Close).
func New(ctx context.Context, runtime wazero.Runtime) *BaselineJIT {
	return &BaselineJIT{ctx: ctx, runtime: runtime, log: vmlog.L()}
}

var _ interp.Tier = (*BaselineJIT)(nil)

// Compile attempts to translate fnIndex's bytecode body to a wazero
// module. See doc.go for exactly which functions are eligible.
func (b *BaselineJIT) Compile(prog *interp.Program, fnIndex int) (any, bool) {
	fn := prog.Module.Functions[fnIndex]
	p, ok := analyze(fn, prog.Feedback[fnIndex])
	if !ok {
		b.log.Debug("jit: function ineligible for baseline compilation", zap.String("fn", fn.Name))
		return nil, false
	}

	wasmBytes := buildModule(p)
	modName := fmt.Sprintf("jsvm-jit-%d", b.seq.Add(1))
	mod, err := b.runtime.CompileModule(b.ctx, wasmBytes)
	if err != nil {
		b.log.Debug("jit: module failed to compile", zap.String("fn", fn.Name), zap.Error(err))
		return nil, false
	}
	instance, err := b.runtime.InstantiateModule(b.ctx, mod, wazero.NewModuleConfig().WithName(modName))
	if err != nil {
		b.log.Debug("jit: module failed to instantiate", zap.String("fn", fn.Name), zap.Error(err))
		return nil, false
	}
	runFn := instance.ExportedFunction(exportName)
	if runFn == nil {
		b.log.Debug("jit: compiled module exports nothing", zap.String("fn", fn.Name))
		_ = instance.Close(b.ctx)
		return nil, false
	}

	b.log.Debug("jit: compiled function to baseline tier",
		zap.String("fn", fn.Name), zap.Int("numInstrs", len(p.ops)))
	return &compiled{instance: instance, fn: runFn, numParams: p.numParams, returnKind: p.returnKind}, true
}

// Invoke runs compiled code for a call. Guarding the actual argument
// values against the int32 speculation Compile baked in happens here,
// in Go, before the wasm function ever runs: the generated module has
// no way to express "this argument wasn't an int32" short of an import
// round-trip, and checking boxed Values is exactly as cheap in Go as it
// would be through an imported callback.
func (b *BaselineJIT) Invoke(c any, this value.Value, args []value.Value) (value.Value, bool, *errors.Error) {
	cf, ok := c.(*compiled)
	if !ok {
		return value.Value{}, false, nil
	}
	if len(args) < cf.numParams {
		return value.Value{}, false, nil
	}
	wasmArgs := make([]uint64, cf.numParams)
	for i := 0; i < cf.numParams; i++ {
		if !args[i].IsInt32() {
			return value.Value{}, false, nil
		}
		wasmArgs[i] = uint64(uint32(args[i].AsInt32()))
	}

	results, err := cf.fn.Call(b.ctx, wasmArgs...)
	if err != nil {
		return value.Value{}, false, errors.Wrap(errors.PhaseCompile, errors.KindInternal, err, "baseline-compiled call trapped")
	}
	if len(results) != 1 {
		return value.Value{}, false, errors.Internal("baseline-compiled function returned %d results, want 1", len(results))
	}
	return decodeResult(int64(results[0]), cf.returnKind)
}

// decodeResult interprets the i64 a compiled module returned, per the
// encoding module.go's codegen and bailoutSentinel establish.
func decodeResult(raw int64, kind regKind) (value.Value, bool, *errors.Error) {
	if raw == bailoutSentinel {
		return value.Value{}, false, nil
	}
	low := int32(raw)
	if kind == kindBool {
		return value.FromBool(low != 0), true, nil
	}
	return value.FromInt32(low), true, nil
}

// Close closes the wazero runtime this tier was created with, which
// releases every module instantiated in it. Functions that were
// permanently de-optimized (interp's maxBailouts policy) keep their
// instance until Close; there is no per-function teardown.
func (b *BaselineJIT) Close() error {
	return b.runtime.Close(b.ctx)
}
