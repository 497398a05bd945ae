package gc

import (
	"sync"

	"go.uber.org/zap"

	"github.com/jsvm/jsvm/errors"
	"github.com/jsvm/jsvm/internal/vmlog"
)

// Ref is a stable index into the heap's object table. The collector
// never moves objects, so a Ref stays valid for the object's entire
// lifetime once allocated, until the slot is swept and recycled.
type Ref uint32

// NilRef is never a valid allocated reference; slot 0 is reserved the
// same way resource.Handle reserves handle 0.
const NilRef Ref = 0

// Kind classifies a heap object for diagnostics and for weak-reference
// bookkeeping (WeakMap/WeakSet keys must not be kept alive by the kind
// tag itself).
type Kind uint8

const (
	KindPlainObject Kind = iota
	KindArray
	KindString
	KindFunction
	KindClosure
	KindBoundFunction
	KindPromise
	KindRegExp
	KindTypedArray
	KindArrayBuffer
	KindMap
	KindSet
	KindWeakMap
	KindWeakSet
	KindProxy
	KindSymbol
	KindBigInt
	KindError
)

// Traceable is implemented by every heap object kind so the collector
// can discover outgoing references without knowing the object's concrete
// layout (shape pointer, inline slots, overflow table, kind-specific
// fields — not a generic reflection walk).
type Traceable interface {
	Trace(visit func(Ref))
}

// Finalizer is optionally implemented by objects holding external
// resources (ArrayBuffer backing storage, native handles) that must be
// released on sweep rule.
type Finalizer interface {
	Finalize()
}

type slot struct {
	obj    Traceable
	kind   Kind
	marked bool
	weak   bool // WeakMap/WeakSet key or WeakRef target: does not keep obj alive
	alive  bool
}

// RootsFunc is supplied by the embedding layer (interp/host) to report
// the roots a Heap cannot see on its own: the VM call stack, the global
// object and intrinsic table, the module/script cache, pending
// microtasks, and JIT code metadata,(c),(d),(e),(f)).
// HandleScope contents (root (b)) are tracked by the Heap itself.
type RootsFunc func() []Ref

// Heap owns every heap object allocated by bytecode or native code.
type Heap struct {
	mu           sync.Mutex
	slots        []slot
	freeList     []Ref
	scopes       []*HandleScope
	rootsFn      RootsFunc
	softLimit    int // object-count water-line; 0 means unbounded
	cycles       int
	log          *zap.Logger
	finalizeJobs []func()
}

// New creates an empty heap. softLimit bounds the number of live objects
// before MaybeCollect triggers a cycle; 0 disables the automatic trigger
// (the embedder must call Collect explicitly).
func New(softLimit int) *Heap {
	return &Heap{
		slots:     make([]slot, 1, 64), // slot 0 reserved, mirrors NilRef
		softLimit: softLimit,
		log:       vmlog.L(),
	}
}

// SetRootsProvider installs the callback used to enumerate roots beyond
// open HandleScopes. Must be called before the first Collect.
func (h *Heap) SetRootsProvider(fn RootsFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rootsFn = fn
}

// Alloc stores obj and returns its Ref. weak marks the slot as a
// weakly-held target (WeakMap/WeakSet key, WeakRef referent): reachable
// only through its own scan roots, never kept alive by table membership.
func (h *Heap) Alloc(kind Kind, obj Traceable, weak bool) (Ref, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.softLimit > 0 && h.liveCountLocked() >= h.softLimit {
		h.mu.Unlock()
		if err := h.Collect(); err != nil {
			h.mu.Lock()
			return NilRef, err
		}
		h.mu.Lock()
		if h.liveCountLocked() >= h.softLimit {
			return NilRef, errors.OutOfMemory(uint64(len(h.slots)))
		}
	}

	s := slot{obj: obj, kind: kind, alive: true, weak: weak}

	if n := len(h.freeList); n > 0 {
		ref := h.freeList[n-1]
		h.freeList = h.freeList[:n-1]
		h.slots[ref] = s
		return ref, nil
	}

	h.slots = append(h.slots, s)
	return Ref(len(h.slots) - 1), nil
}

func (h *Heap) liveCountLocked() int {
	return len(h.slots) - len(h.freeList) - 1
}

// Len returns the number of live objects (for tests and diagnostics).
func (h *Heap) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.liveCountLocked()
}

// Get retrieves the object at ref. ok is false for a freed or
// out-of-range ref, which indicates a dangling Value escaped its
// HandleScope — an internal invariant violation if it happens between
// safepoints.
func (h *Heap) Get(ref Ref) (Traceable, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ref == NilRef || int(ref) >= len(h.slots) {
		return nil, false
	}
	s := h.slots[ref]
	if !s.alive {
		return nil, false
	}
	return s.obj, true
}

// Kind returns the object kind at ref.
func (h *Heap) Kind(ref Ref) (Kind, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ref == NilRef || int(ref) >= len(h.slots) || !h.slots[ref].alive {
		return 0, false
	}
	return h.slots[ref].kind, true
}

// MaybeCollect runs a collection cycle only if the heap is at or beyond
// its soft limit. Safe to call at every safepoint.
func (h *Heap) MaybeCollect() error {
	h.mu.Lock()
	over := h.softLimit > 0 && h.liveCountLocked() >= h.softLimit
	h.mu.Unlock()
	if !over {
		return nil
	}
	return h.Collect()
}
