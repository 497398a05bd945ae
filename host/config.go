package host

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Config configures a VM at construction time, split from New exactly
// as engine.Config is split from engine.NewWazeroEngineWithConfig. A nil
// Config passed to NewWithConfig means every default.
type Config struct {
	// HeapSoftLimit bounds the object heap before gc.Heap.MaybeCollect
	// considers a cycle due. 0 means no soft limit.
	HeapSoftLimit int

	// StackLimit overrides the interpreter's recursive call-depth bound.
	// 0 means the interpreter's own default (2000).
	StackLimit int

	// JITDisabled skips constructing the baseline JIT tier (package
	// jit) and its backing wazero.Runtime. The tier is cheap to stand
	// up and every hot-path scenario benefits from it, so it is wired
	// in by default; set this to opt out (e.g. an embedding that never
	// runs the same function often enough to amortize compilation).
	JITDisabled bool

	// InterruptFlag, when set, is polled alongside ctx.Done() for the
	// duration of Program.Eval and raises the same cooperative
	// interrupt Interpreter.Interrupt does at the next safepoint.
	InterruptFlag *atomic.Bool

	// Logger installs the embedder's logger for every subsystem this VM
	// touches (gc, interp, jit, job all resolve the shared vmlog
	// singleton). Nil keeps the default no-op logger.
	Logger *zap.Logger
}
