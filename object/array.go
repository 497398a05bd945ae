package object

import (
	"github.com/jsvm/jsvm/gc"
	"github.com/jsvm/jsvm/shape"
	"github.com/jsvm/jsvm/value"
)

// sparseThreshold bounds how far past the dense region a single index
// write will grow the dense backing before falling back to the sparse
// map, so `a[10_000_000] = 1` on an otherwise-empty array doesn't
// allocate ten million slots.
const sparseThreshold = 4096

// Array is the dense-or-sparse exotic array object. Indexed
// elements bypass the shape system entirely; named properties (including
// array-like objects' non-index keys) still go through Object.
type Array struct {
	Object
	dense  []value.Value
	sparse map[uint32]value.Value
	length uint32
}

// NewArray creates an empty array with the given prototype-bearing
// shape.
func NewArray(s *shape.Shape) *Array {
	return &Array{Object: NewObject(s)}
}

func (a *Array) asObject() *Object { return &a.Object }

// Trace visits every live reference: dense elements, sparse elements,
// and inherited named-property slots.
func (a *Array) Trace(visit func(gc.Ref)) {
	for _, v := range a.dense {
		if v.IsHeapRef() {
			visit(gc.Ref(v.HeapIndex()))
		}
	}
	for _, v := range a.sparse {
		if v.IsHeapRef() {
			visit(gc.Ref(v.HeapIndex()))
		}
	}
	traceObjectSlots(&a.Object, visit)
}

// Length returns the array's current length property value.
func (a *Array) Length() uint32 { return a.length }

// GetElement implements indexed [[Get]]: a dense hit, else a sparse hit,
// else a hole.
func (a *Array) GetElement(index uint32) (value.Value, bool) {
	if index < uint32(len(a.dense)) {
		v := a.dense[index]
		if v.IsHole() {
			return value.Value{}, false
		}
		return v, true
	}
	if a.sparse != nil {
		if v, ok := a.sparse[index]; ok {
			return v, true
		}
	}
	return value.Value{}, false
}

// SetElement implements indexed [[Set]], growing the dense region when
// the index is within sparseThreshold of the dense region's end and falling
// back to the sparse map otherwise.
func (a *Array) SetElement(index uint32, v value.Value) {
	switch {
	case index < uint32(len(a.dense)):
		a.dense[index] = v
	case index-uint32(len(a.dense)) < sparseThreshold:
		for uint32(len(a.dense)) < index {
			a.dense = append(a.dense, value.Hole())
		}
		a.dense = append(a.dense, v)
	default:
		if a.sparse == nil {
			a.sparse = make(map[uint32]value.Value)
		}
		a.sparse[index] = v
	}
	if index >= a.length {
		a.length = index + 1
	}
}

// DeleteElement removes an indexed property, leaving a hole in the dense
// region.
func (a *Array) DeleteElement(index uint32) {
	if index < uint32(len(a.dense)) {
		a.dense[index] = value.Hole()
		return
	}
	delete(a.sparse, index)
}

// SetLength truncates or extends the array's length property. Truncation
// below the dense region's size drops trailing elements; growth leaves
// holes.
func (a *Array) SetLength(n uint32) {
	if n < uint32(len(a.dense)) {
		a.dense = a.dense[:n]
	}
	if a.sparse != nil {
		for k := range a.sparse {
			if k >= n {
				delete(a.sparse, k)
			}
		}
	}
	a.length = n
}
