package gc

import "testing"

// node is a minimal Traceable used to build object graphs in tests.
type node struct {
	refs []Ref
}

func (n *node) Trace(visit func(Ref)) {
	for _, r := range n.refs {
		visit(r)
	}
}

type finalizerNode struct {
	node
	finalized *bool
}

func (f *finalizerNode) Finalize() { *f.finalized = true }

func TestAllocAndGet(t *testing.T) {
	h := New(0)
	ref, err := h.Alloc(KindPlainObject, &node{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := h.Get(ref); !ok {
		t.Fatal("expected object to be retrievable")
	}
	if h.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", h.Len())
	}
}

func TestCollect_FreesUnreachable(t *testing.T) {
	h := New(0)
	ref, _ := h.Alloc(KindPlainObject, &node{}, false)
	_ = ref

	if err := h.Collect(); err != nil {
		t.Fatal(err)
	}
	if h.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after collecting unreachable object", h.Len())
	}
}

func TestCollect_KeepsRootedViaHandleScope(t *testing.T) {
	h := New(0)
	scope := h.OpenScope()
	ref, _ := h.Alloc(KindPlainObject, &node{}, false)
	handle := scope.NewHandle(ref)

	if err := h.Collect(); err != nil {
		t.Fatal(err)
	}
	if _, ok := h.Get(handle.Ref()); !ok {
		t.Fatal("object rooted by an open HandleScope must survive collection")
	}

	scope.Close()
	if err := h.Collect(); err != nil {
		t.Fatal(err)
	}
	if _, ok := h.Get(ref); ok {
		t.Fatal("object must be collected once its HandleScope is closed")
	}
}

func TestCollect_CyclicGraphIsCollected(t *testing.T) {
	h := New(0)
	aRef, _ := h.Alloc(KindPlainObject, &node{}, false)
	bRef, _ := h.Alloc(KindPlainObject, &node{}, false)

	a, _ := h.Get(aRef)
	b, _ := h.Get(bRef)
	a.(*node).refs = []Ref{bRef}
	b.(*node).refs = []Ref{aRef}

	if err := h.Collect(); err != nil {
		t.Fatal(err)
	}
	if h.Len() != 0 {
		t.Fatalf("Len() = %d, want 0: reference-counting would leak this cycle, mark-sweep must not", h.Len())
	}
}

func TestCollect_RootsFuncKeepsReachable(t *testing.T) {
	h := New(0)
	ref, _ := h.Alloc(KindPlainObject, &node{}, false)
	h.SetRootsProvider(func() []Ref { return []Ref{ref} })

	if err := h.Collect(); err != nil {
		t.Fatal(err)
	}
	if _, ok := h.Get(ref); !ok {
		t.Fatal("object reported by RootsFunc must survive collection")
	}
}

func TestWeakRef_ClearedAfterCollect(t *testing.T) {
	h := New(0)
	ref, _ := h.Alloc(KindPlainObject, &node{}, true)
	w := h.NewWeakRef(ref)

	if _, ok := w.Get(); !ok {
		t.Fatal("weak ref should resolve before collection")
	}
	if err := h.Collect(); err != nil {
		t.Fatal(err)
	}
	if _, ok := w.Get(); ok {
		t.Fatal("weak ref must not keep its target alive")
	}
}

func TestCollect_RunsFinalizerAsJob(t *testing.T) {
	h := New(0)
	finalized := false
	ref, _ := h.Alloc(KindArrayBuffer, &finalizerNode{finalized: &finalized}, false)
	_ = ref

	if err := h.Collect(); err != nil {
		t.Fatal(err)
	}
	if finalized {
		t.Fatal("finalizer must not run inline during sweep")
	}
	jobs := h.DrainFinalizers()
	if len(jobs) != 1 {
		t.Fatalf("expected 1 finalizer job, got %d", len(jobs))
	}
	jobs[0]()
	if !finalized {
		t.Fatal("draining and running the finalizer job should invoke Finalize")
	}
}

func TestAlloc_SoftLimitTriggersCollectThenOOM(t *testing.T) {
	h := New(1)
	scope := h.OpenScope()
	ref, err := h.Alloc(KindPlainObject, &node{}, false)
	if err != nil {
		t.Fatal(err)
	}
	scope.NewHandle(ref)

	// Heap is now at its soft limit with a rooted object; the next alloc
	// must collect (freeing nothing, since the object is rooted) and
	// then fail with OutOfMemory rather than silently exceeding the
	// limit.
	if _, err := h.Alloc(KindPlainObject, &node{}, false); err == nil {
		t.Fatal("expected OutOfMemory once the soft limit cannot be relieved by collection")
	}
}
