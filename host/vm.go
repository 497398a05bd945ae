package host

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/jsvm/jsvm/bytecode"
	"github.com/jsvm/jsvm/errors"
	"github.com/jsvm/jsvm/gc"
	"github.com/jsvm/jsvm/interp"
	"github.com/jsvm/jsvm/internal/vmlog"
	"github.com/jsvm/jsvm/jit"
	"github.com/jsvm/jsvm/object"
	"github.com/jsvm/jsvm/shape"
	"github.com/jsvm/jsvm/value"
)

// VM is one embeddable instance of the engine: an interpreter over its
// own heap, optionally backed by a baseline JIT tier, plus the native
// function registry an embedder builds up with RegisterNative.
//
// Construction mirrors engine.NewWazeroEngine/NewWazeroEngineWithConfig.
type VM struct {
	it            *interp.Interpreter
	jitRT         wazero.Runtime // nil when the JIT tier is disabled
	jit           *jit.BaselineJIT
	log           *zap.Logger
	interruptFlag *atomic.Bool

	mu      sync.Mutex
	nsCache map[string]gc.Ref // namespace name -> its globals sub-object
}

// New creates a VM with every default (no heap limit, default call-depth
// bound, baseline JIT enabled, no-op logging).
func New(ctx context.Context) (*VM, error) {
	return NewWithConfig(ctx, nil)
}

// NewWithConfig creates a VM from cfg; a nil cfg behaves like New.
func NewWithConfig(ctx context.Context, cfg *Config) (*VM, error) {
	if cfg != nil && cfg.Logger != nil {
		vmlog.SetLogger(cfg.Logger)
	}

	heapLimit := 0
	jitDisabled := false
	var stackLimit int
	var interruptFlag *atomic.Bool
	if cfg != nil {
		heapLimit = cfg.HeapSoftLimit
		jitDisabled = cfg.JITDisabled
		stackLimit = cfg.StackLimit
		interruptFlag = cfg.InterruptFlag
	}

	it := interp.NewWithHeapLimit(heapLimit)
	if stackLimit > 0 {
		it.SetMaxCallDepth(stackLimit)
	}

	vm := &VM{it: it, log: vmlog.L(), interruptFlag: interruptFlag, nsCache: make(map[string]gc.Ref)}

	if !jitDisabled {
		runtime := wazero.NewRuntime(ctx)
		vm.jitRT = runtime
		vm.jit = jit.New(ctx, runtime)
		it.SetTier(vm.jit)
	}

	return vm, nil
}

// Close releases the VM's wazero runtime (and every module the baseline
// JIT compiled into it). The interpreter's Go heap needs no explicit
// teardown.
func (vm *VM) Close(ctx context.Context) error {
	if vm.jitRT == nil {
		return nil
	}
	return vm.jitRT.Close(ctx)
}

// LoadModule decodes and validates a bytecode container, returning a
// Program bound to this VM's interpreter and ready to Eval.
func (vm *VM) LoadModule(ctx context.Context, bytecodeBytes []byte) (*Program, error) {
	mod, err := bytecode.Decode(bytecodeBytes)
	if err != nil {
		return nil, err
	}
	if err := bytecode.Validate(mod); err != nil {
		return nil, err
	}
	return &Program{vm: vm, prog: interp.Load(mod)}, nil
}

// RegisterNative installs fn as namespace.name on the global object,
// creating the namespace sub-object on first use. Re-registering the
// same (namespace, name) pair overwrites the previous function, mirroring
// HostRegistry.RegisterFunc's "last write wins" behavior.
func (vm *VM) RegisterNative(namespace, name string, fn NativeFunc) error {
	if namespace == "" {
		return errors.New(errors.PhaseHost, errors.KindRegistration).Detail("namespace cannot be empty").Build()
	}
	if name == "" {
		return errors.New(errors.PhaseHost, errors.KindRegistration).Detail("function name cannot be empty").Build()
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()

	nsRef, err := vm.namespaceRefLocked(namespace)
	if err != nil {
		return err
	}

	model := vm.it.Model
	impl := wrapNative(vm, fn)
	fnObj := object.NewNativeFunction(vm.it.Intrinsics.FunctionShape, name, 0, impl)
	fnRef, allocErr := model.Heap.Alloc(gc.KindFunction, fnObj, false)
	if allocErr != nil {
		return errors.Wrap(errors.PhaseGC, errors.KindOutOfMemory, allocErr, "allocation failed")
	}

	fnVal := value.FromHeapObject(uint32(fnRef))
	nsVal := value.FromHeapObject(uint32(nsRef))
	if setErr := object.Set(model, nsRef, shape.StringKey(name), fnVal, nsVal, vm.it); setErr != nil {
		return setErr
	}
	vm.log.Debug("native function registered", zap.String("namespace", namespace), zap.String("name", name))
	return nil
}

// namespaceRefLocked returns namespace's backing object on the globals
// object, creating and linking it on first use. Caller holds vm.mu.
func (vm *VM) namespaceRefLocked(namespace string) (gc.Ref, error) {
	if ref, ok := vm.nsCache[namespace]; ok {
		return ref, nil
	}

	model := vm.it.Model
	nsObj := object.NewPlainObject(vm.it.Intrinsics.ObjectShape)
	nsRef, allocErr := model.Heap.Alloc(gc.KindPlainObject, nsObj, false)
	if allocErr != nil {
		return gc.NilRef, errors.Wrap(errors.PhaseGC, errors.KindOutOfMemory, allocErr, "allocation failed")
	}

	globalsVal := value.FromHeapObject(uint32(vm.it.Globals))
	nsVal := value.FromHeapObject(uint32(nsRef))
	if setErr := object.Set(model, vm.it.Globals, shape.StringKey(namespace), nsVal, globalsVal, vm.it); setErr != nil {
		return gc.NilRef, setErr
	}
	vm.nsCache[namespace] = nsRef
	return nsRef, nil
}

// DrainMicrotasks runs every pending job to completion: the explicit
// hook an embedder calls between script runs that don't themselves
// invoke Program.Eval (which already drains as part of its
// run-to-completion contract).
func (vm *VM) DrainMicrotasks(ctx context.Context) error {
	stop := vm.watchInterrupt(ctx)
	defer stop()
	if err := vm.it.Jobs.Drain(); err != nil {
		return err
	}
	return nil
}

// interruptPollInterval bounds how promptly a cancelled ctx or a raised
// InterruptFlag reaches the interpreter's safepoint check (run.go polls
// it.interrupt every safepointInterval instructions; this just has to be
// short enough that a human-perceived "stop" feels immediate).
const interruptPollInterval = 5 * time.Millisecond

// watchInterrupt starts a goroutine that raises the interpreter's
// cooperative interrupt flag when ctx is cancelled or vm.interruptFlag is
// set, and returns a function that stops the watcher. Safe to call with
// a context that is never cancelled; the returned stop func always
// terminates the goroutine promptly.
func (vm *VM) watchInterrupt(ctx context.Context) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interruptPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				// Raise the interrupt once, then just wait for the
				// caller to signal done: ctx.Done() stays readable
				// forever once cancelled, so re-selecting it every loop
				// would spin instead of block.
				vm.it.Interrupt()
				<-done
				return
			case <-ticker.C:
				if vm.interruptFlag != nil && vm.interruptFlag.Load() {
					vm.it.Interrupt()
				}
			}
		}
	}()
	return func() { close(done) }
}
