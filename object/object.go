package object

import (
	"github.com/jsvm/jsvm/errors"
	"github.com/jsvm/jsvm/gc"
	"github.com/jsvm/jsvm/shape"
	"github.com/jsvm/jsvm/value"
)

// InlineSlotCount is the number of property slots stored directly in an
// object, before falling back to the overflow table.
const InlineSlotCount = 6

// Invoker lets the object model call back into user bytecode for
// accessor properties and Proxy traps without importing the interpreter
// package.
type Invoker interface {
	Invoke(fn value.Value, this value.Value, args []value.Value) (value.Value, *errors.Error)
}

// Model bundles the shape table and heap a VM instance shares across all
// of its objects.
type Model struct {
	Shapes *shape.Table
	Heap   *gc.Heap
}

// NewModel creates an object model over a fresh shape table bound to
// heap.
func NewModel(heap *gc.Heap) *Model {
	return &Model{Shapes: shape.NewTable(), Heap: heap}
}

// Object is the common header embedded by every property-bearing heap
// object kind: a shape pointer, inline slots, and an overflow table
//. Dictionary-mode objects additionally carry their own
// per-instance hash table; the shape pointer in that case is the
// sentinel dictionary shape produced by shape.Table.TransitionDelete.
type Object struct {
	Sh          *shape.Shape
	inline      [InlineSlotCount]value.Value
	overflow    []value.Value
	dict        map[shape.Key]value.Value
	dictOrder   []shape.Key
	extensible  bool
	isPrototype bool
}

// NewObject creates a bare property-bearing object on the given shape.
func NewObject(s *shape.Shape) Object {
	return Object{Sh: s, extensible: true}
}

// IsPrototype reports whether this object is currently used as some
// other object's prototype, which gates whether mutating it must bump
// the global prototype epoch.
func (o *Object) IsPrototype() bool { return o.isPrototype }

// MarkAsPrototype flags o as in use as a prototype. The interpreter's
// intrinsics setup calls it on the built-in prototype objects.
func (o *Object) MarkAsPrototype() { o.isPrototype = true }

// Extensible reports whether new own properties may be added.
func (o *Object) Extensible() bool { return o.extensible }

// PreventExtensions disables adding further own properties.
func (o *Object) PreventExtensions() { o.extensible = false }

func (o *Object) slotAt(i int) value.Value {
	if i < InlineSlotCount {
		return o.inline[i]
	}
	return o.overflow[i-InlineSlotCount]
}

func (o *Object) setSlot(i int, v value.Value) {
	if i < InlineSlotCount {
		o.inline[i] = v
		return
	}
	for len(o.overflow) <= i-InlineSlotCount {
		o.overflow = append(o.overflow, value.Undefined())
	}
	o.overflow[i-InlineSlotCount] = v
}

// findOwn looks up key as an own property, consulting the dictionary
// table when the shape has fallen out of the transition chain.
func (o *Object) findOwn(key shape.Key) (shape.Entry, value.Value, bool) {
	if o.Sh.IsDictionary() {
		v, ok := o.dict[key]
		if !ok {
			return shape.Entry{}, value.Value{}, false
		}
		return shape.Entry{Key: key, Attrs: shape.DefaultDataAttrs}, v, true
	}
	e, ok := o.Sh.Find(key)
	if !ok {
		return shape.Entry{}, value.Value{}, false
	}
	return e, o.slotAt(e.Slot), true
}

// putOwn creates or overwrites an own data property, transitioning the
// shape for a new key.
func (o *Object) putOwn(m *Model, key shape.Key, v value.Value, attrs shape.Attrs) {
	if o.Sh.IsDictionary() {
		if o.dict == nil {
			o.dict = make(map[shape.Key]value.Value)
		}
		if _, exists := o.dict[key]; !exists {
			o.dictOrder = append(o.dictOrder, key)
		}
		o.dict[key] = v
		return
	}

	if e, ok := o.Sh.Find(key); ok {
		o.setSlot(e.Slot, v)
		return
	}

	if o.isPrototype {
		m.Shapes.BumpProtoEpoch()
	}
	next := m.Shapes.TransitionAdd(o.Sh, key, attrs)
	if next.IsDictionary() {
		// Crossing shape.DictionaryThreshold: move the existing slots into
		// the per-instance table before switching shapes.
		o.dict = make(map[shape.Key]value.Value, len(o.Sh.Entries())+1)
		o.dictOrder = nil
		for _, e := range o.Sh.Entries() {
			o.dict[e.Key] = o.slotAt(e.Slot)
			o.dictOrder = append(o.dictOrder, e.Key)
		}
		o.Sh = next
		o.dict[key] = v
		o.dictOrder = append(o.dictOrder, key)
		return
	}
	o.Sh = next
	o.setSlot(len(next.Entries())-1, v)
}

// heapHolder is implemented by every property-bearing heap object kind
// (each embeds Object), so Get/Set can walk a prototype chain of
// arbitrary such kinds through the common Object header.
type heapHolder interface {
	asObject() *Object
}

// Get implements [[Get]](receiver, key): locate via shape, walk the
// prototype chain on miss, and invoke getters with receiver as `this`
//.
func Get(m *Model, target gc.Ref, key shape.Key, receiver value.Value, inv Invoker) (value.Value, *errors.Error) {
	current := target
	for i := 0; i < maxProtoChainWalk; i++ {
		holder, ok := resolveHolder(m, current)
		if !ok {
			return value.Undefined(), nil
		}
		obj := holder.asObject()
		if e, v, found := obj.findOwn(key); found {
			if e.Attrs&shape.Accessor != 0 {
				return invokeAccessor(inv, v, receiver, true)
			}
			return v, nil
		}
		proto, has := obj.Sh.Proto()
		if !has {
			return value.Undefined(), nil
		}
		current = proto
	}
	return value.Value{}, errors.Internal("prototype chain exceeds maximum walk depth (cycle?)")
}

// Set implements [[Set]]: own data property is written directly; an
// own or inherited accessor is invoked; otherwise a new own property is
// created on target, transitioning its shape.
func Set(m *Model, target gc.Ref, key shape.Key, v value.Value, receiver value.Value, inv Invoker) *errors.Error {
	holder, ok := resolveHolder(m, target)
	if !ok {
		return errors.Internal("Set on a dangling object reference")
	}
	obj := holder.asObject()

	if e, existing, found := obj.findOwn(key); found {
		if e.Attrs&shape.Accessor != 0 {
			_, err := invokeAccessor(inv, existing, receiver, false, v)
			return err
		}
		if e.Attrs&shape.Writable == 0 {
			return nil // silently ignored in sloppy mode; strict-mode throw is a compiler concern
		}
		obj.setSlot(e.Slot, v)
		return nil
	}

	// Walk the prototype chain looking for an inherited setter.
	current, has := obj.Sh.Proto()
	for has {
		protoHolder, ok := resolveHolder(m, current)
		if !ok {
			break
		}
		protoObj := protoHolder.asObject()
		if e, pv, found := protoObj.findOwn(key); found {
			if e.Attrs&shape.Accessor != 0 {
				_, err := invokeAccessor(inv, pv, receiver, false, v)
				return err
			}
			break // inherited data property: fall through to creating an own property
		}
		current, has = protoObj.Sh.Proto()
	}

	if !obj.extensible {
		return nil
	}
	obj.putOwn(m, key, v, shape.DefaultDataAttrs)
	return nil
}

// Has implements [[HasProperty]], walking the prototype chain.
func Has(m *Model, target gc.Ref, key shape.Key) bool {
	current := target
	for i := 0; i < maxProtoChainWalk; i++ {
		holder, ok := resolveHolder(m, current)
		if !ok {
			return false
		}
		obj := holder.asObject()
		if _, _, found := obj.findOwn(key); found {
			return true
		}
		proto, has := obj.Sh.Proto()
		if !has {
			return false
		}
		current = proto
	}
	return false
}

// Delete removes an own property, forcing the object into dictionary
// mode.
func Delete(m *Model, target gc.Ref, key shape.Key) bool {
	holder, ok := resolveHolder(m, target)
	if !ok {
		return false
	}
	obj := holder.asObject()

	if obj.Sh.IsDictionary() {
		if _, ok := obj.dict[key]; !ok {
			return true
		}
		delete(obj.dict, key)
		for i, k := range obj.dictOrder {
			if k == key {
				obj.dictOrder = append(obj.dictOrder[:i], obj.dictOrder[i+1:]...)
				break
			}
		}
		return true
	}

	e, ok := obj.Sh.Find(key)
	if !ok {
		return true
	}
	if e.Attrs&shape.Configurable == 0 {
		return false
	}

	if obj.isPrototype {
		m.Shapes.BumpProtoEpoch()
	}

	next := m.Shapes.TransitionDelete(obj.Sh, key)
	// Migrate existing slot values into the new dictionary table.
	dict := make(map[shape.Key]value.Value, len(obj.Sh.Entries()))
	var order []shape.Key
	for _, entry := range obj.Sh.Entries() {
		if entry.Key == key {
			continue
		}
		dict[entry.Key] = obj.slotAt(entry.Slot)
		order = append(order, entry.Key)
	}
	obj.Sh = next
	obj.dict = dict
	obj.dictOrder = order
	return true
}

// OwnKeys returns own property keys in insertion order's
// "Property insertion order is preserved".
func OwnKeys(o *Object) []shape.Key {
	if o.Sh.IsDictionary() {
		out := make([]shape.Key, len(o.dictOrder))
		copy(out, o.dictOrder)
		return out
	}
	entries := o.Sh.Entries()
	out := make([]shape.Key, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out
}

// traceObjectSlots visits every heap reference reachable directly from
// o's own storage: the prototype, inline slots, overflow slots, and (in
// dictionary mode) the per-instance table. Shared by every kind that
// embeds Object so each Trace method only has to add its kind-specific
// fields.
func traceObjectSlots(o *Object, visit func(gc.Ref)) {
	if proto, has := o.Sh.Proto(); has {
		visit(proto)
	}
	visitSlot := func(v value.Value) {
		if v.IsHeapRef() {
			visit(gc.Ref(v.HeapIndex()))
		}
	}
	if o.Sh.IsDictionary() {
		for _, v := range o.dict {
			visitSlot(v)
		}
		return
	}
	for i := 0; i < InlineSlotCount; i++ {
		visitSlot(o.inline[i])
	}
	for _, v := range o.overflow {
		visitSlot(v)
	}
}

const maxProtoChainWalk = 100000

func invokeAccessor(inv Invoker, pair value.Value, receiver value.Value, isGet bool, args ...value.Value) (value.Value, *errors.Error) {
	if inv == nil {
		return value.Undefined(), errors.Internal("accessor property encountered with no Invoker bound")
	}
	if isGet {
		return inv.Invoke(pair, receiver, nil)
	}
	return inv.Invoke(pair, receiver, args)
}
