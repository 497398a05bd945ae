package interp

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/jsvm/jsvm/bytecode"
	"github.com/jsvm/jsvm/errors"
	"github.com/jsvm/jsvm/gc"
	"github.com/jsvm/jsvm/internal/vmlog"
	"github.com/jsvm/jsvm/job"
	"github.com/jsvm/jsvm/object"
	"github.com/jsvm/jsvm/value"
)

// maxCallDepth is the default recursive-call bound, overridable per
// Interpreter via SetMaxCallDepth (host.Config.StackLimit).
const maxCallDepth = 2000

// jitCallThreshold is the call count at which a function template
// becomes eligible for baseline compilation.
const jitCallThreshold = 1000

// maxBailouts is how many speculative-guard failures a compiled
// function tolerates before it is permanently marked ineligible.
const maxBailouts = 10

// templateBinding records which Program and function-table index a
// heap-allocated object.Function template was created from, since
// object.Function itself (by design, see its doc comment) carries only
// an opaque CodeRef integer and no pointer back to its owning module.
type templateBinding struct {
	prog    *Program
	fnIndex int
}

// Interpreter executes one or more Programs against a shared object
// model, global object, and job queue.
type Interpreter struct {
	Model      *object.Model
	Intrinsics *Intrinsics
	Jobs       *job.Queue
	Globals    gc.Ref

	Tier Tier // nil until the embedding host wires a baseline JIT in

	log       *zap.Logger
	interrupt atomic.Bool
	stack     []*Frame
	templates map[*object.Function]templateBinding
	maxDepth  int
}

// New creates an interpreter over a fresh heap (no soft memory limit)
// and object model, with its own global object and job queue.
func New() *Interpreter {
	return NewWithHeapLimit(0)
}

// NewWithHeapLimit is like New but bounds the heap's soft limit
// (host.Config.HeapSoftLimit), the trigger gc.Heap.MaybeCollect uses to
// decide a cycle is due.
func NewWithHeapLimit(softLimit int) *Interpreter {
	heap := gc.New(softLimit)
	model := object.NewModel(heap)
	intr := newIntrinsics(model)

	globalsObj := object.NewPlainObject(model.Shapes.EmptyShape(intr.ObjectProto, true))
	globalsRef, _ := model.Heap.Alloc(gc.KindPlainObject, globalsObj, false)

	it := &Interpreter{
		Model:      model,
		Intrinsics: intr,
		Jobs:       job.New(),
		Globals:    globalsRef,
		log:        vmlog.L(),
		templates:  make(map[*object.Function]templateBinding),
		maxDepth:   maxCallDepth,
	}
	heap.SetRootsProvider(it.roots)
	return it
}

// SetTier installs a baseline JIT implementation (host package wiring).
func (it *Interpreter) SetTier(t Tier) { it.Tier = t }

// SetMaxCallDepth overrides the recursive-call bound (host.Config.StackLimit);
// n <= 0 is ignored and leaves the current limit in place.
func (it *Interpreter) SetMaxCallDepth(n int) {
	if n > 0 {
		it.maxDepth = n
	}
}

// Interrupt requests that the currently running (or next) Eval call
// abort at its next safepoint.
func (it *Interpreter) Interrupt() { it.interrupt.Store(true) }

func (it *Interpreter) clearInterrupt() { it.interrupt.Store(false) }

// roots reports every heap reference reachable from the live call stack
// and the intrinsics/globals table (gc.RootsFunc). HandleScope
// contents are the Heap's own responsibility;
// pending-microtask closures keep their own captures alive via whatever
// HandleScope the enqueuer opened, per job.Job's doc comment.
func (it *Interpreter) roots() []gc.Ref {
	out := []gc.Ref{
		it.Globals,
		it.Intrinsics.ObjectProto, it.Intrinsics.FunctionProto,
		it.Intrinsics.ArrayProto, it.Intrinsics.ErrorProto, it.Intrinsics.PromiseProto,
	}
	for _, f := range it.stack {
		if f.this.IsHeapRef() {
			out = append(out, gc.Ref(f.this.HeapIndex()))
		}
		for _, v := range f.regs {
			if v.IsHeapRef() {
				out = append(out, gc.Ref(v.HeapIndex()))
			}
		}
	}
	return out
}

// Eval runs prog's entry function (function-table index 0, the
// module/script top level) to completion, then drains the job queue,
// matching a typical embedder's run-to-completion contract.
func (it *Interpreter) Eval(prog *Program) (value.Value, *errors.Error) {
	if len(prog.Module.Functions) == 0 {
		return value.Undefined(), errors.Internal("module %q has no functions", prog.Module.Name)
	}
	it.clearInterrupt()
	result, err := it.callFunctionIndex(prog, 0, value.Undefined(), nil)
	if err != nil {
		return value.Undefined(), err
	}
	if drainErr := it.Jobs.Drain(); drainErr != nil {
		return value.Undefined(), drainErr
	}
	return result, nil
}

func (it *Interpreter) callFunctionIndex(prog *Program, fnIndex int, this value.Value, args []value.Value) (value.Value, *errors.Error) {
	bcFn := prog.Module.Functions[fnIndex]
	tmpl := object.NewFunction(it.Intrinsics.FunctionShape, bcFn.Name, bcFn.NumParams, object.CodeRef(fnIndex), !bcFn.IsGenerator && !bcFn.IsAsync)
	it.templates[tmpl] = templateBinding{prog: prog, fnIndex: fnIndex}
	return it.callTemplate(tmpl, nil, this, args)
}

func (it *Interpreter) currentFrame() *Frame {
	if len(it.stack) == 0 {
		return nil
	}
	return it.stack[len(it.stack)-1]
}

func (it *Interpreter) resolveCode(fn *object.Function) (*Program, int, *bytecode.Function, bool) {
	b, ok := it.templates[fn]
	if !ok {
		return nil, 0, nil, false
	}
	return b.prog, b.fnIndex, b.prog.Module.Functions[b.fnIndex], true
}

func outOfMemory(err error) *errors.Error {
	if e, ok := err.(*errors.Error); ok {
		return e
	}
	return errors.Wrap(errors.PhaseGC, errors.KindOutOfMemory, err, "allocation failed")
}
