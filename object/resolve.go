package object

import "github.com/jsvm/jsvm/gc"

// traceHeapRef is called from a Trace implementation for every field that
// may hold a heap reference; it is a no-op for NilRef so callers don't
// need their own guard.
func traceHeapRef(visit func(gc.Ref), ref gc.Ref) {
	if ref != gc.NilRef {
		visit(ref)
	}
}

// resolveHolder fetches ref from the heap and asserts it implements
// heapHolder, i.e. is one of the property-bearing object kinds defined in
// this package. Symbols, BigInts, and plain Strings are heap objects but
// are not property-bearing and so do not implement heapHolder; Get/Set/
// Has/Delete on them is a bug at the call site (wrapper primitives are
// boxed by the interpreter, not handled here).
func resolveHolder(m *Model, ref gc.Ref) (heapHolder, bool) {
	t, ok := m.Heap.Get(ref)
	if !ok {
		return nil, false
	}
	h, ok := t.(heapHolder)
	return h, ok
}

// ShapeID returns the shape identity of the property-bearing object at
// ref, for inline-cache bookkeeping: callers outside
// this package (the interpreter's property sites) need a shape's
// identity to key feedback-vector sites but must not see the Shape
// pointer itself, since mutating through it would bypass the transition
// table.
func ShapeID(m *Model, ref gc.Ref) (uint64, bool) {
	holder, ok := resolveHolder(m, ref)
	if !ok {
		return 0, false
	}
	return holder.asObject().Sh.ID(), true
}

// ProtoOf returns the prototype reference of the property-bearing
// object at ref, for `instanceof` chain walks performed outside this
// package.
func ProtoOf(m *Model, ref gc.Ref) (gc.Ref, bool) {
	holder, ok := resolveHolder(m, ref)
	if !ok {
		return gc.NilRef, false
	}
	return holder.asObject().Sh.Proto()
}
