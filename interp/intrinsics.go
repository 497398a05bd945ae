package interp

import (
	"github.com/jsvm/jsvm/gc"
	"github.com/jsvm/jsvm/object"
	"github.com/jsvm/jsvm/shape"
)

// Intrinsics holds the handful of built-in prototypes every object the
// interpreter creates chains to. A hosted standard library layered on
// top of this package would extend this table, not replace it.
type Intrinsics struct {
	ObjectProto   gc.Ref
	FunctionProto gc.Ref
	ArrayProto    gc.Ref
	ErrorProto    gc.Ref
	PromiseProto  gc.Ref

	ObjectShape   *shape.Shape
	ArrayShape    *shape.Shape
	FunctionShape *shape.Shape
	ErrorShape    *shape.Shape
	PromiseShape  *shape.Shape

	// SymbolIterator is the well-known `Symbol.iterator`, allocated once
	// per interpreter so every NativeContext.WellKnownSymbol caller
	// observes the same identity. OpGetIterator does not consult it.
	SymbolIterator gc.Ref
}

func newIntrinsics(m *object.Model) *Intrinsics {
	objProto := object.NewPlainObject(m.Shapes.EmptyShape(gc.NilRef, false))
	objProto.MarkAsPrototype()
	objProtoRef, _ := m.Heap.Alloc(gc.KindPlainObject, objProto, false)

	funcProto := object.NewPlainObject(m.Shapes.EmptyShape(objProtoRef, true))
	funcProto.MarkAsPrototype()
	funcProtoRef, _ := m.Heap.Alloc(gc.KindPlainObject, funcProto, false)

	arrProto := object.NewPlainObject(m.Shapes.EmptyShape(objProtoRef, true))
	arrProto.MarkAsPrototype()
	arrProtoRef, _ := m.Heap.Alloc(gc.KindPlainObject, arrProto, false)

	errProto := object.NewPlainObject(m.Shapes.EmptyShape(objProtoRef, true))
	errProto.MarkAsPrototype()
	errProtoRef, _ := m.Heap.Alloc(gc.KindPlainObject, errProto, false)

	promProto := object.NewPlainObject(m.Shapes.EmptyShape(objProtoRef, true))
	promProto.MarkAsPrototype()
	promProtoRef, _ := m.Heap.Alloc(gc.KindPlainObject, promProto, false)

	iterSym := object.NewSymbol("Symbol.iterator", true)
	iterSymRef, _ := m.Heap.Alloc(gc.KindSymbol, iterSym, false)

	return &Intrinsics{
		ObjectProto:   objProtoRef,
		FunctionProto: funcProtoRef,
		ArrayProto:    arrProtoRef,
		ErrorProto:    errProtoRef,
		PromiseProto:  promProtoRef,

		ObjectShape:   m.Shapes.EmptyShape(objProtoRef, true),
		ArrayShape:    m.Shapes.EmptyShape(arrProtoRef, true),
		FunctionShape: m.Shapes.EmptyShape(funcProtoRef, true),
		ErrorShape:    m.Shapes.EmptyShape(errProtoRef, true),
		PromiseShape:  m.Shapes.EmptyShape(promProtoRef, true),

		SymbolIterator: iterSymRef,
	}
}
