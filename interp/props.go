package interp

import (
	"strconv"

	"github.com/jsvm/jsvm/bytecode"
	"github.com/jsvm/jsvm/errors"
	"github.com/jsvm/jsvm/gc"
	"github.com/jsvm/jsvm/object"
	"github.com/jsvm/jsvm/shape"
	"github.com/jsvm/jsvm/value"
)

// execGetProp implements OpGetProp: dst, obj reg, u32 name-pool index.
// The shape id observed at this site is recorded into the feedback
// vector for the baseline JIT's benefit; the interpreter itself always
// walks through object.Get rather than trying the cached offset
// directly, since the slot-offset fast path requires package-private
// object internals this package does not have access to (see
// DESIGN.md).
func (it *Interpreter) execGetProp(prog *Program, frame *Frame, instr bytecode.Instr, pc int) (value.Value, *errors.Error) {
	objVal := frame.get(instr.B)
	name, err := it.poolString(prog, instr.Imm)
	if err != nil {
		return value.Value{}, err
	}
	if objVal.IsHeapString() {
		return it.getStringProp(objVal, name)
	}
	if !objVal.IsHeapObject() {
		return value.Value{}, errors.TypeError(errors.PhaseRuntime, "cannot read property %q of %s", name, objVal.TypeOf(nil))
	}
	ref := gc.Ref(objVal.HeapIndex())
	if shapeID, ok := object.ShapeID(it.Model, ref); ok {
		prog.Feedback[frame.fnIndex].Prop(pc).Record(shapeID, 0, it.Model.Shapes.ProtoEpoch())
	}
	return object.Get(it.Model, ref, shape.StringKey(name), objVal, it)
}

func (it *Interpreter) getStringProp(s value.Value, name string) (value.Value, *errors.Error) {
	if name == "length" {
		str, _ := it.stringOf(s)
		return value.FromInt32(int32(len([]rune(str)))), nil
	}
	if idx, err := strconv.Atoi(name); err == nil {
		str, _ := it.stringOf(s)
		runes := []rune(str)
		if idx < 0 || idx >= len(runes) {
			return value.Undefined(), nil
		}
		return it.allocString(string(runes[idx]))
	}
	return value.Undefined(), nil
}

// execSetProp implements OpSetProp: obj reg, u32 name-pool index, src.
func (it *Interpreter) execSetProp(prog *Program, frame *Frame, instr bytecode.Instr) *errors.Error {
	objVal := frame.get(instr.A)
	src := frame.get(instr.B)
	name, err := it.poolString(prog, instr.Imm)
	if err != nil {
		return err
	}
	if !objVal.IsHeapObject() {
		return errors.TypeError(errors.PhaseRuntime, "cannot set property %q of %s", name, objVal.TypeOf(nil))
	}
	return object.Set(it.Model, gc.Ref(objVal.HeapIndex()), shape.StringKey(name), src, objVal, it)
}

// indexOf classifies a key Value as an array index when possible, so
// execGetElem/execSetElem can take the dense/sparse Array fast path
// instead of falling through to generic string-keyed property access.
func (it *Interpreter) indexOf(key value.Value) (uint32, bool) {
	if key.IsInt32() {
		n := key.AsInt32()
		if n >= 0 {
			return uint32(n), true
		}
		return 0, false
	}
	if key.IsHeapString() {
		s, _ := it.stringOf(key)
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return 0, false
		}
		return uint32(n), true
	}
	return 0, false
}

// execGetElem implements OpGetElem: dst, obj reg, key reg.
func (it *Interpreter) execGetElem(frame *Frame, instr bytecode.Instr) (value.Value, *errors.Error) {
	objVal := frame.get(instr.B)
	key := frame.get(instr.C)
	if objVal.IsHeapString() {
		name := it.rawToString(key)
		return it.getStringProp(objVal, name)
	}
	if !objVal.IsHeapObject() {
		return value.Value{}, errors.TypeError(errors.PhaseRuntime, "cannot read property of %s", objVal.TypeOf(nil))
	}
	ref := gc.Ref(objVal.HeapIndex())
	if idx, ok := it.indexOf(key); ok {
		if obj, found := it.Model.Heap.Get(ref); found {
			if arr, isArr := obj.(*object.Array); isArr {
				v, has := arr.GetElement(idx)
				if !has {
					return value.Undefined(), nil
				}
				return v, nil
			}
		}
	}
	return object.Get(it.Model, ref, it.toPropertyKey(key), objVal, it)
}

// execSetElem implements OpSetElem: obj reg, key reg, src.
func (it *Interpreter) execSetElem(frame *Frame, instr bytecode.Instr) *errors.Error {
	objVal := frame.get(instr.A)
	key := frame.get(instr.B)
	src := frame.get(instr.C)
	if !objVal.IsHeapObject() {
		return errors.TypeError(errors.PhaseRuntime, "cannot set property of %s", objVal.TypeOf(nil))
	}
	ref := gc.Ref(objVal.HeapIndex())
	if idx, ok := it.indexOf(key); ok {
		if obj, found := it.Model.Heap.Get(ref); found {
			if arr, isArr := obj.(*object.Array); isArr {
				arr.SetElement(idx, src)
				return nil
			}
		}
	}
	return object.Set(it.Model, ref, it.toPropertyKey(key), src, objVal, it)
}

func (it *Interpreter) execDeleteProp(prog *Program, frame *Frame, instr bytecode.Instr) (value.Value, *errors.Error) {
	objVal := frame.get(instr.B)
	name, err := it.poolString(prog, instr.Imm)
	if err != nil {
		return value.Value{}, err
	}
	if !objVal.IsHeapObject() {
		return value.FromBool(true), nil
	}
	ok := object.Delete(it.Model, gc.Ref(objVal.HeapIndex()), shape.StringKey(name))
	return value.FromBool(ok), nil
}

func (it *Interpreter) execIn(frame *Frame, instr bytecode.Instr) (value.Value, *errors.Error) {
	key := frame.get(instr.B)
	objVal := frame.get(instr.C)
	if !objVal.IsHeapObject() {
		return value.Value{}, errors.TypeError(errors.PhaseRuntime, "cannot use 'in' operator on %s", objVal.TypeOf(nil))
	}
	ref := gc.Ref(objVal.HeapIndex())
	if idx, ok := it.indexOf(key); ok {
		if obj, found := it.Model.Heap.Get(ref); found {
			if arr, isArr := obj.(*object.Array); isArr {
				_, has := arr.GetElement(idx)
				return value.FromBool(has), nil
			}
		}
	}
	return value.FromBool(object.Has(it.Model, ref, it.toPropertyKey(key))), nil
}

// getUpvalue/setUpvalue implement OpGetUpvalue/OpSetUpvalue against the
// current frame's closure.
func (it *Interpreter) getUpvalue(frame *Frame, idx uint32) (value.Value, *errors.Error) {
	if frame.closure == nil || int(idx) >= len(frame.closure.Upvalues) {
		return value.Value{}, errors.Internal("upvalue index %d out of range", idx)
	}
	return frame.closure.Upvalues[idx].Value, nil
}

func (it *Interpreter) setUpvalue(frame *Frame, idx uint32, v value.Value) *errors.Error {
	if frame.closure == nil || int(idx) >= len(frame.closure.Upvalues) {
		return errors.Internal("upvalue index %d out of range", idx)
	}
	frame.closure.Upvalues[idx].Value = v
	return nil
}

// execNewFunction implements OpNewFunction: dst, u32 function-table
// index, allocating a zero-upvalue template and registering it in
// it.templates so later calls can resolve back to its bytecode (see
// interp.go's templateBinding doc comment).
func (it *Interpreter) execNewFunction(prog *Program, instr bytecode.Instr) (value.Value, *errors.Error) {
	fnIndex := int(instr.Imm)
	if fnIndex < 0 || fnIndex >= len(prog.Module.Functions) {
		return value.Value{}, errors.OutOfBounds(errors.PhaseRuntime, fnIndex, len(prog.Module.Functions))
	}
	bcFn := prog.Module.Functions[fnIndex]
	tmpl := object.NewFunction(it.Intrinsics.FunctionShape, bcFn.Name, bcFn.NumParams, object.CodeRef(fnIndex), !bcFn.IsGenerator && !bcFn.IsAsync)
	it.templates[tmpl] = templateBinding{prog: prog, fnIndex: fnIndex}
	ref, err := it.Model.Heap.Alloc(gc.KindFunction, tmpl, false)
	if err != nil {
		return value.Value{}, outOfMemory(err)
	}
	return value.FromHeapObject(uint32(ref)), nil
}

// execNewClosure implements OpNewClosure: dst, capture-base reg, upvalue
// count (packed into the C register byte), u32 function-table index.
// Captured upvalues are copied by value from the enclosing frame's
// registers at closure-creation time rather than sharing a cell with an
// outer still-live local (a deliberate simplification from true
// by-reference capture of mutable outer locals; see DESIGN.md).
func (it *Interpreter) execNewClosure(prog *Program, frame *Frame, instr bytecode.Instr) (value.Value, *errors.Error) {
	fnIndex := int(instr.Imm)
	if fnIndex < 0 || fnIndex >= len(prog.Module.Functions) {
		return value.Value{}, errors.OutOfBounds(errors.PhaseRuntime, fnIndex, len(prog.Module.Functions))
	}
	bcFn := prog.Module.Functions[fnIndex]
	tmpl := object.NewFunction(it.Intrinsics.FunctionShape, bcFn.Name, bcFn.NumParams, object.CodeRef(fnIndex), !bcFn.IsGenerator && !bcFn.IsAsync)
	it.templates[tmpl] = templateBinding{prog: prog, fnIndex: fnIndex}

	count := int(instr.C)
	upvalues := make([]*object.Upvalue, count)
	for i := 0; i < count; i++ {
		upvalues[i] = &object.Upvalue{Value: frame.get(instr.B + byte(i))}
	}
	closure := object.NewClosure(it.Intrinsics.FunctionShape, tmpl, upvalues)
	ref, err := it.Model.Heap.Alloc(gc.KindClosure, closure, false)
	if err != nil {
		return value.Value{}, outOfMemory(err)
	}
	return value.FromHeapObject(uint32(ref)), nil
}

// execGetGlobal/execSetGlobal/execDefineGlobal implement the global
// object opcodes against it.Globals.
func (it *Interpreter) execGetGlobal(prog *Program, instr bytecode.Instr) (value.Value, *errors.Error) {
	name, err := it.poolString(prog, instr.Imm)
	if err != nil {
		return value.Value{}, err
	}
	if !object.Has(it.Model, it.Globals, shape.StringKey(name)) {
		return value.Value{}, errors.New(errors.PhaseRuntime, errors.KindScriptThrow).Detail("%s is not defined", name).Build()
	}
	return object.Get(it.Model, it.Globals, shape.StringKey(name), value.Undefined(), it)
}

func (it *Interpreter) execSetGlobal(prog *Program, frame *Frame, instr bytecode.Instr) *errors.Error {
	name, err := it.poolString(prog, instr.Imm)
	if err != nil {
		return err
	}
	return object.Set(it.Model, it.Globals, shape.StringKey(name), frame.get(instr.A), value.Undefined(), it)
}

func (it *Interpreter) execDefineGlobal(prog *Program, frame *Frame, instr bytecode.Instr) *errors.Error {
	name, err := it.poolString(prog, instr.Imm)
	if err != nil {
		return err
	}
	return object.Set(it.Model, it.Globals, shape.StringKey(name), frame.get(instr.A), value.Undefined(), it)
}
