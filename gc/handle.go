package gc

// Handle is a GC-aware indirection that survives collection, scoped to a
// HandleScope. Raw Refs are only valid between
// safepoints; a Handle stays valid for as long as its scope is open.
type Handle struct {
	scope *HandleScope
	ref   Ref
}

// Ref returns the underlying Ref. Valid only while h's scope is open.
func (hd Handle) Ref() Ref { return hd.ref }

// HandleScope is a stack-discipline rooting region: opening pushes a
// marker, closing pops every handle minted since, exactly as 
// describes. Grounded on resource.Table's lifecycle
// (Insert/Remove), generalized from "resource with refcount" to "root
// that keeps a heap object alive for the scope's lifetime".
type HandleScope struct {
	heap    *Heap
	handles []Ref
	closed  bool
}

// OpenScope begins a new HandleScope on h. Scopes nest: closing an inner
// scope does not affect outer scopes' handles.
func (h *Heap) OpenScope() *HandleScope {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := &HandleScope{heap: h}
	h.scopes = append(h.scopes, s)
	return s
}

// NewHandle roots ref for the lifetime of the scope and returns a Handle
// wrapping it.
func (s *HandleScope) NewHandle(ref Ref) Handle {
	if s.closed {
		panic("gc: NewHandle on a closed HandleScope")
	}
	s.handles = append(s.handles, ref)
	return Handle{scope: s, ref: ref}
}

// Close pops all handles created within the scope. After Close, any Refs
// obtained from the scope's Handles are no longer guaranteed live past
// the next safepoint.
func (s *HandleScope) Close() {
	if s.closed {
		return
	}
	s.closed = true
	h := s.heap
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, sc := range h.scopes {
		if sc == s {
			h.scopes = append(h.scopes[:i], h.scopes[i+1:]...)
			break
		}
	}
}

// handleRoots returns every Ref currently rooted by an open HandleScope.
// Caller must hold h.mu.
func (h *Heap) handleRootsLocked() []Ref {
	var out []Ref
	for _, s := range h.scopes {
		if !s.closed {
			out = append(out, s.handles...)
		}
	}
	return out
}

// WeakRef is a reference that does not keep its target alive. Get
// returns (ref, false) once the target has been collected, matching
// WeakMap/WeakSet/FinalizationRegistry semantics.
type WeakRef struct {
	heap *Heap
	ref  Ref
}

// NewWeakRef wraps ref without rooting it.
func (h *Heap) NewWeakRef(ref Ref) WeakRef {
	return WeakRef{heap: h, ref: ref}
}

// Get returns the referent if it is still alive.
func (w WeakRef) Get() (Ref, bool) {
	if _, ok := w.heap.Get(w.ref); !ok {
		return NilRef, false
	}
	return w.ref, true
}
