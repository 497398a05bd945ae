package object

import (
	"math"
	"math/big"
	"testing"

	"github.com/jsvm/jsvm/errors"
	"github.com/jsvm/jsvm/gc"
	"github.com/jsvm/jsvm/shape"
	"github.com/jsvm/jsvm/value"
)

type fakeInvoker struct {
	calls []string
	ret   value.Value
}

func (f *fakeInvoker) Invoke(fn value.Value, this value.Value, args []value.Value) (value.Value, *errors.Error) {
	f.calls = append(f.calls, "invoked")
	return f.ret, nil
}

func newTestModel() (*Model, gc.Ref) {
	heap := gc.New(0)
	m := NewModel(heap)
	protoShape := m.Shapes.EmptyShape(gc.NilRef, false)
	proto := NewPlainObject(protoShape)
	ref, err := heap.Alloc(gc.KindPlainObject, proto, false)
	if err != nil {
		panic(err)
	}
	return m, ref
}

func allocPlain(t *testing.T, m *Model, proto gc.Ref) gc.Ref {
	t.Helper()
	s := m.Shapes.EmptyShape(proto, true)
	obj := NewPlainObject(s)
	ref, err := m.Heap.Alloc(gc.KindPlainObject, obj, false)
	if err != nil {
		t.Fatal(err)
	}
	return ref
}

func TestGetSet_OwnDataProperty(t *testing.T) {
	m, proto := newTestModel()
	ref := allocPlain(t, m, proto)

	if err := Set(m, ref, shape.StringKey("x"), value.FromInt32(42), value.FromHeapObject(uint32(ref)), nil); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := Get(m, ref, shape.StringKey("x"), value.FromHeapObject(uint32(ref)), nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !v.IsInt32() || v.AsInt32() != 42 {
		t.Fatalf("Get(x) = %+v, want int32 42", v)
	}
}

func TestGet_WalksPrototypeChain(t *testing.T) {
	m, protoParent := newTestModel()
	childProto := allocPlain(t, m, protoParent)
	if err := Set(m, childProto, shape.StringKey("greeting"), value.FromInt32(7), value.Undefined(), nil); err != nil {
		t.Fatal(err)
	}
	child := allocPlain(t, m, childProto)

	v, err := Get(m, child, shape.StringKey("greeting"), value.Undefined(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsInt32() || v.AsInt32() != 7 {
		t.Fatalf("inherited Get = %+v, want 7", v)
	}
}

func TestGet_MissReturnsUndefined(t *testing.T) {
	m, proto := newTestModel()
	ref := allocPlain(t, m, proto)
	v, err := Get(m, ref, shape.StringKey("nope"), value.Undefined(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsUndefined() {
		t.Fatalf("Get on missing key = %+v, want undefined", v)
	}
}

func TestSet_NonWritableIsIgnored(t *testing.T) {
	m, proto := newTestModel()
	ref := allocPlain(t, m, proto)
	holder, _ := resolveHolder(m, ref)
	obj := holder.asObject()
	obj.putOwn(m, shape.StringKey("frozen"), value.FromInt32(1), shape.Enumerable|shape.Configurable)

	if err := Set(m, ref, shape.StringKey("frozen"), value.FromInt32(2), value.Undefined(), nil); err != nil {
		t.Fatal(err)
	}
	v, _ := Get(m, ref, shape.StringKey("frozen"), value.Undefined(), nil)
	if v.AsInt32() != 1 {
		t.Fatalf("non-writable property was overwritten: got %v", v.AsInt32())
	}
}

func TestAccessor_GetInvokesGetter(t *testing.T) {
	m, proto := newTestModel()
	ref := allocPlain(t, m, proto)
	holder, _ := resolveHolder(m, ref)
	obj := holder.asObject()

	inv := &fakeInvoker{ret: value.FromInt32(99)}
	obj.putOwn(m, shape.StringKey("computed"), value.FromInt32(0) /* getter/setter pair placeholder */, shape.Enumerable|shape.Configurable|shape.Accessor)

	v, err := Get(m, ref, shape.StringKey("computed"), value.Undefined(), inv)
	if err != nil {
		t.Fatal(err)
	}
	if v.AsInt32() != 99 {
		t.Fatalf("accessor Get = %v, want invoker's return", v.AsInt32())
	}
	if len(inv.calls) != 1 {
		t.Fatalf("expected exactly one invocation, got %d", len(inv.calls))
	}
}

func TestDelete_ForcesDictionaryMode(t *testing.T) {
	m, proto := newTestModel()
	ref := allocPlain(t, m, proto)
	Set(m, ref, shape.StringKey("a"), value.FromInt32(1), value.Undefined(), nil)
	Set(m, ref, shape.StringKey("b"), value.FromInt32(2), value.Undefined(), nil)

	if !Delete(m, ref, shape.StringKey("a")) {
		t.Fatal("Delete(a) should succeed")
	}
	if Has(m, ref, shape.StringKey("a")) {
		t.Fatal("a should no longer be present")
	}
	v, _ := Get(m, ref, shape.StringKey("b"), value.Undefined(), nil)
	if v.AsInt32() != 2 {
		t.Fatalf("surviving property b corrupted after delete: %v", v.AsInt32())
	}

	holder, _ := resolveHolder(m, ref)
	if !holder.asObject().Sh.IsDictionary() {
		t.Fatal("object should be in dictionary mode after a delete")
	}
}

func TestOwnKeys_PreservesInsertionOrder(t *testing.T) {
	m, proto := newTestModel()
	ref := allocPlain(t, m, proto)
	for _, k := range []string{"z", "a", "m"} {
		Set(m, ref, shape.StringKey(k), value.FromInt32(1), value.Undefined(), nil)
	}
	holder, _ := resolveHolder(m, ref)
	keys := OwnKeys(holder.asObject())
	want := []string{"z", "a", "m"}
	if len(keys) != len(want) {
		t.Fatalf("len(keys) = %d, want %d", len(keys), len(want))
	}
	for i, k := range keys {
		if k.Name != want[i] {
			t.Fatalf("keys[%d] = %q, want %q", i, k.Name, want[i])
		}
	}
}

func TestArray_DenseAndSparseElements(t *testing.T) {
	m, proto := newTestModel()
	s := m.Shapes.EmptyShape(proto, true)
	arr := NewArray(s)

	arr.SetElement(0, value.FromInt32(10))
	arr.SetElement(1, value.FromInt32(20))
	arr.SetElement(1_000_000, value.FromInt32(30))

	if v, ok := arr.GetElement(0); !ok || v.AsInt32() != 10 {
		t.Fatalf("GetElement(0) = %v,%v", v, ok)
	}
	if v, ok := arr.GetElement(1_000_000); !ok || v.AsInt32() != 30 {
		t.Fatalf("GetElement(1_000_000) = %v,%v", v, ok)
	}
	if arr.Length() != 1_000_001 {
		t.Fatalf("Length() = %d, want 1000001", arr.Length())
	}

	arr.DeleteElement(0)
	if _, ok := arr.GetElement(0); ok {
		t.Fatal("deleted dense element should read as a hole")
	}
}

func TestMap_SameValueZeroKeyEquality(t *testing.T) {
	m, proto := newTestModel()
	s := m.Shapes.EmptyShape(proto, true)
	mp := NewMap(s)

	mp.Set(m.Heap, value.FromFloat64(0), value.FromInt32(1))
	mp.Set(m.Heap, value.FromFloat64(math.Copysign(0, -1)), value.FromInt32(2))
	if mp.Size() != 1 {
		t.Fatalf("Size() = %d, want 1 (SameValueZero treats +0/-0 as one key)", mp.Size())
	}
	v, ok := mp.Get(m.Heap, value.FromFloat64(0))
	if !ok || v.AsInt32() != 2 {
		t.Fatalf("Get(0) = %v,%v, want 2,true", v, ok)
	}
}

func TestSet_MembershipAndDelete(t *testing.T) {
	m, proto := newTestModel()
	s := m.Shapes.EmptyShape(proto, true)
	st := NewSet(s)

	st.Add(m.Heap, value.FromInt32(1))
	st.Add(m.Heap, value.FromInt32(1))
	if st.Size() != 1 {
		t.Fatalf("Size() = %d, want 1 (duplicate Add)", st.Size())
	}
	if !st.Has(m.Heap, value.FromInt32(1)) {
		t.Fatal("Has(1) should be true")
	}
	if !st.Delete(m.Heap, value.FromInt32(1)) {
		t.Fatal("Delete(1) should succeed")
	}
	if st.Has(m.Heap, value.FromInt32(1)) {
		t.Fatal("Has(1) should be false after delete")
	}
}

func allocString(t *testing.T, heap *gc.Heap, s string) value.Value {
	t.Helper()
	ref, err := heap.Alloc(gc.KindString, NewString(s), false)
	if err != nil {
		t.Fatal(err)
	}
	return value.FromHeapString(uint32(ref))
}

func allocBigInt(t *testing.T, heap *gc.Heap, s string) value.Value {
	t.Helper()
	bi, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("invalid bigint literal %q", s)
	}
	ref, err := heap.Alloc(gc.KindBigInt, NewBigInt(bi), false)
	if err != nil {
		t.Fatal(err)
	}
	return value.FromHeapObject(uint32(ref))
}

func TestMap_StringKeysCompareByContentNotIdentity(t *testing.T) {
	m, proto := newTestModel()
	s := m.Shapes.EmptyShape(proto, true)
	mp := NewMap(s)

	// Two independently allocated heap strings with the same content
	// (as concatenation or two separate constant-pool loads would
	// produce) must be the same Map key.
	k1 := allocString(t, m.Heap, "ab")
	k2 := allocString(t, m.Heap, "a"+"b")

	mp.Set(m.Heap, k1, value.FromInt32(1))
	v, ok := mp.Get(m.Heap, k2)
	if !ok || v.AsInt32() != 1 {
		t.Fatalf("Get(distinct-but-equal string key) = %v,%v, want 1,true", v, ok)
	}
	if mp.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", mp.Size())
	}

	// A BigInt with the same digits as a string must NOT collide with it.
	bi := allocBigInt(t, m.Heap, "123")
	str := allocString(t, m.Heap, "123")
	mp.Set(m.Heap, bi, value.FromInt32(2))
	mp.Set(m.Heap, str, value.FromInt32(3))
	if mp.Size() != 3 {
		t.Fatalf("Size() = %d, want 3 (bigint 123n and string \"123\" are distinct keys)", mp.Size())
	}
	if v, ok := mp.Get(m.Heap, bi); !ok || v.AsInt32() != 2 {
		t.Fatalf("Get(bigint key) = %v,%v, want 2,true", v, ok)
	}
	if v, ok := mp.Get(m.Heap, str); !ok || v.AsInt32() != 3 {
		t.Fatalf("Get(string key) = %v,%v, want 3,true", v, ok)
	}
}

func TestSet_BigIntKeysCompareByContent(t *testing.T) {
	m, proto := newTestModel()
	s := m.Shapes.EmptyShape(proto, true)
	st := NewSet(s)

	a := allocBigInt(t, m.Heap, "9007199254740993")
	b := allocBigInt(t, m.Heap, "9007199254740993")

	st.Add(m.Heap, a)
	if !st.Has(m.Heap, b) {
		t.Fatal("Has should find an independently allocated BigInt with the same value")
	}
	if st.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", st.Size())
	}
}

func TestWeakMap_ClearDeadAfterCollection(t *testing.T) {
	heap := gc.New(0)
	m := NewModel(heap)
	s := m.Shapes.EmptyShape(gc.NilRef, false)
	wm := NewWeakMap(s)

	keyObj := NewPlainObject(s)
	keyRef, _ := heap.Alloc(gc.KindPlainObject, keyObj, true)
	wm.Set(keyRef, value.FromInt32(1))

	heap.SetRootsProvider(func() []gc.Ref { return nil })
	if err := heap.Collect(); err != nil {
		t.Fatal(err)
	}
	wm.ClearDead(heap)

	if _, ok := wm.Get(heap, keyRef); ok {
		t.Fatal("entry for a collected key should be gone after ClearDead")
	}
}

func TestPromise_SettleIsIdempotent(t *testing.T) {
	m, proto := newTestModel()
	s := m.Shapes.EmptyShape(proto, true)
	p := NewPromise(s)

	r1 := p.Settle(true, value.FromInt32(1))
	_ = r1
	r2 := p.Settle(false, value.FromInt32(2))
	if r2 != nil {
		t.Fatal("Settle after the promise is already settled must be a no-op")
	}
	if p.State != PromiseFulfilled {
		t.Fatalf("State = %v, want Fulfilled (first settle wins)", p.State)
	}
	if p.Result.AsInt32() != 1 {
		t.Fatalf("Result = %v, want 1 (first settle wins)", p.Result.AsInt32())
	}
}
