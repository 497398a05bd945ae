package interp

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/jsvm/jsvm/bytecode"
	"github.com/jsvm/jsvm/errors"
	"github.com/jsvm/jsvm/gc"
	"github.com/jsvm/jsvm/ic"
	"github.com/jsvm/jsvm/object"
	"github.com/jsvm/jsvm/shape"
	"github.com/jsvm/jsvm/value"
)

// loadConst materializes constant-pool entry idx as a Value, allocating
// a heap string for ConstString entries and a heap BigInt for ConstBigInt
// entries.
func (it *Interpreter) loadConst(prog *Program, idx uint32) (value.Value, *errors.Error) {
	c, ok := prog.Module.Pool.Get(idx)
	if !ok {
		return value.Value{}, errors.OutOfBounds(errors.PhaseRuntime, int(idx), prog.Module.Pool.Len())
	}
	switch c.Kind {
	case bytecode.ConstNumber:
		return value.FromFloat64(c.Number), nil
	case bytecode.ConstString:
		return it.allocString(c.Str)
	case bytecode.ConstBigInt:
		bi, ok := new(big.Int).SetString(c.Str, 10)
		if !ok {
			return value.Value{}, errors.Internal("malformed BigInt constant %q", c.Str)
		}
		return it.allocBigInt(bi)
	default:
		return value.Value{}, errors.Internal("unknown constant kind %d", c.Kind)
	}
}

func (it *Interpreter) allocString(s string) (value.Value, *errors.Error) {
	ref, err := it.Model.Heap.Alloc(gc.KindString, object.NewString(s), false)
	if err != nil {
		return value.Value{}, outOfMemory(err)
	}
	return value.FromHeapString(uint32(ref)), nil
}

func (it *Interpreter) allocBigInt(bi *big.Int) (value.Value, *errors.Error) {
	ref, err := it.Model.Heap.Alloc(gc.KindBigInt, object.NewBigInt(bi), false)
	if err != nil {
		return value.Value{}, outOfMemory(err)
	}
	return value.FromHeapObject(uint32(ref)), nil
}

// poolString resolves a name/identifier pool entry used by property,
// global, and method-call opcodes (all share the constant pool's string
// index space per bytecode.Const's doc comment).
func (it *Interpreter) poolString(prog *Program, idx uint32) (string, *errors.Error) {
	c, ok := prog.Module.Pool.Get(idx)
	if !ok || c.Kind != bytecode.ConstString {
		return "", errors.InvalidBytecode(nil, "name-pool index %d is not a string constant", idx)
	}
	return c.Str, nil
}

// stringOf returns a heap string Value's Go string contents.
func (it *Interpreter) stringOf(v value.Value) (string, bool) {
	if !v.IsHeapString() {
		return "", false
	}
	obj, ok := it.Model.Heap.Get(gc.Ref(v.HeapIndex()))
	if !ok {
		return "", false
	}
	s, ok := obj.(*object.String)
	if !ok {
		return "", false
	}
	return s.Chars(), true
}

// bigIntOf returns a heap BigInt Value's underlying *big.Int.
func (it *Interpreter) bigIntOf(v value.Value) (*big.Int, bool) {
	if !v.IsHeapObject() {
		return nil, false
	}
	obj, ok := it.Model.Heap.Get(gc.Ref(v.HeapIndex()))
	if !ok {
		return nil, false
	}
	bi, ok := obj.(*object.BigInt)
	if !ok {
		return nil, false
	}
	return bi.Val, true
}

// strictEquals implements `===`. Unlike value.StrictEquals's default
// heap-tag handling (identity), two heap strings or two BigInts compare
// by content: every OpLoadConst/concat allocates a fresh heap string
// with no interning, so identity comparison would make
// `"x"+"" === "x"` false.
func (it *Interpreter) strictEquals(a, b value.Value) bool {
	return value.StrictEquals(a, b, func(a, b value.Value) (equal, handled bool) {
		if a.IsHeapString() {
			as, _ := it.stringOf(a)
			bs, _ := it.stringOf(b)
			return as == bs, true
		}
		if abi, ok := it.bigIntOf(a); ok {
			bbi, ok := it.bigIntOf(b)
			if !ok {
				return false, true
			}
			return abi.Cmp(bbi) == 0, true
		}
		return false, false
	})
}

// toBoolean implements ToBoolean including the empty-heap-string case
// that value.Value.ToBoolean defers to this package (see its doc
// comment): every Yield/jump-if/logical-op truthiness test goes through
// here rather than calling v.ToBoolean() directly.
func (it *Interpreter) toBoolean(v value.Value) bool {
	if v.IsHeapString() {
		s, _ := it.stringOf(v)
		return s != ""
	}
	return v.ToBoolean()
}

// classifyNumeric buckets a Value for arithmetic type-feedback recording
//.
func classifyNumeric(v value.Value) ic.NumericKind {
	switch {
	case v.IsInt32():
		return ic.KindInt32
	case v.IsDouble(), v.IsNaN():
		return ic.KindDouble
	case v.IsHeapString():
		return ic.KindString
	case v.IsHeapObject():
		return ic.KindObject
	default:
		return ic.KindOther
	}
}

func (it *Interpreter) execArith(prog *Program, frame *Frame, instr bytecode.Instr, pc int) (value.Value, *errors.Error) {
	a, b := frame.get(instr.B), frame.get(instr.C)
	site := prog.Feedback[frame.fnIndex].Arith(pc)
	site.Observe(classifyNumeric(a))
	site.Observe(classifyNumeric(b))

	var result value.Value
	var ok bool
	switch instr.Op {
	case bytecode.OpAdd:
		if result, ok = value.AddFast(a, b); !ok {
			return it.addSlow(a, b)
		}
		return result, nil
	case bytecode.OpSub:
		result, ok = value.SubFast(a, b)
	case bytecode.OpMul:
		result, ok = value.MulFast(a, b)
	case bytecode.OpDiv:
		result, ok = value.DivFast(a, b)
	case bytecode.OpMod:
		if !a.IsNumber() || !b.IsNumber() {
			return value.Value{}, errors.TypeError(errors.PhaseRuntime, "unsupported operand types for %%")
		}
		return value.FromFloat64(math.Mod(a.AsFloat64(), b.AsFloat64())), nil
	case bytecode.OpExp:
		if !a.IsNumber() || !b.IsNumber() {
			return value.Value{}, errors.TypeError(errors.PhaseRuntime, "unsupported operand types for **")
		}
		return value.FromFloat64(math.Pow(a.AsFloat64(), b.AsFloat64())), nil
	default:
		return value.Value{}, errors.Internal("execArith called with non-arithmetic opcode %s", instr.Op)
	}
	if !ok {
		return value.Value{}, errors.TypeError(errors.PhaseRuntime, "unsupported operand types for arithmetic operator")
	}
	return result, nil
}

// addSlow handles `+` when at least one operand is not numeric: string
// concatenation wins if either side is a string's `+`
// ToPrimitive-then-dispatch rule, simplified to the common cases this VM
// actually produces (numbers, strings, and objects via toStringValue).
func (it *Interpreter) addSlow(a, b value.Value) (value.Value, *errors.Error) {
	if a.IsHeapString() || b.IsHeapString() || a.IsHeapObject() || b.IsHeapObject() {
		return it.concat(a, b)
	}
	return value.FromFloat64(it.toNumber(a) + it.toNumber(b)), nil
}

func (it *Interpreter) execNeg(instr bytecode.Instr, frame *Frame) (value.Value, *errors.Error) {
	v := frame.get(instr.B)
	if v.IsInt32() {
		x := v.AsInt32()
		if x != math.MinInt32 {
			return value.FromInt32(-x), nil
		}
	}
	return value.FromFloat64(-it.toNumber(v)), nil
}

// numericAdd1 implements ++/-- with int32 fast path and overflow
// fallback, sharing AddFast's widening policy.
func (it *Interpreter) numericAdd1(v value.Value, delta int32) value.Value {
	one := value.FromInt32(delta)
	n := v
	if !n.IsNumber() {
		n = value.FromFloat64(it.toNumber(v))
	}
	result, ok := value.AddFast(n, one)
	if !ok {
		return value.FromFloat64(it.toNumber(n) + float64(delta))
	}
	return result
}

func (it *Interpreter) execBitwise(instr bytecode.Instr, frame *Frame) value.Value {
	a := value.ToInt32(frame.get(instr.B))
	switch instr.Op {
	case bytecode.OpBitNot:
		return value.FromInt32(^a)
	case bytecode.OpShl:
		b := value.ToInt32(frame.get(instr.C))
		return value.FromInt32(a << (uint32(b) & 31))
	case bytecode.OpShr:
		b := value.ToInt32(frame.get(instr.C))
		return value.FromInt32(a >> (uint32(b) & 31))
	case bytecode.OpUShr:
		b := value.ToInt32(frame.get(instr.C))
		return value.FromInt32(int32(uint32(a) >> (uint32(b) & 31)))
	case bytecode.OpBitAnd:
		b := value.ToInt32(frame.get(instr.C))
		return value.FromInt32(a & b)
	case bytecode.OpBitOr:
		b := value.ToInt32(frame.get(instr.C))
		return value.FromInt32(a | b)
	case bytecode.OpBitXor:
		b := value.ToInt32(frame.get(instr.C))
		return value.FromInt32(a ^ b)
	default:
		return value.Undefined()
	}
}

func (it *Interpreter) execCompare(instr bytecode.Instr, frame *Frame) (value.Value, *errors.Error) {
	a, b := frame.get(instr.B), frame.get(instr.C)
	switch instr.Op {
	case bytecode.OpEq:
		return value.FromBool(it.looseEquals(a, b)), nil
	case bytecode.OpNotEq:
		return value.FromBool(!it.looseEquals(a, b)), nil
	case bytecode.OpStrictEq:
		return value.FromBool(it.strictEquals(a, b)), nil
	case bytecode.OpStrictNotEq:
		return value.FromBool(!it.strictEquals(a, b)), nil
	case bytecode.OpLt, bytecode.OpLe, bytecode.OpGt, bytecode.OpGe:
		return it.relational(instr.Op, a, b)
	default:
		return value.Value{}, errors.Internal("execCompare called with non-comparison opcode %s", instr.Op)
	}
}

func (it *Interpreter) relational(op bytecode.Op, a, b value.Value) (value.Value, *errors.Error) {
	if a.IsHeapString() && b.IsHeapString() {
		as, _ := it.stringOf(a)
		bs, _ := it.stringOf(b)
		return value.FromBool(compareStrings(op, as, bs)), nil
	}
	af, bf := it.toNumber(a), it.toNumber(b)
	if math.IsNaN(af) || math.IsNaN(bf) {
		return value.FromBool(false), nil
	}
	switch op {
	case bytecode.OpLt:
		return value.FromBool(af < bf), nil
	case bytecode.OpLe:
		return value.FromBool(af <= bf), nil
	case bytecode.OpGt:
		return value.FromBool(af > bf), nil
	case bytecode.OpGe:
		return value.FromBool(af >= bf), nil
	default:
		return value.Value{}, errors.Internal("relational called with non-relational opcode %s", op)
	}
}

func compareStrings(op bytecode.Op, a, b string) bool {
	switch op {
	case bytecode.OpLt:
		return a < b
	case bytecode.OpLe:
		return a <= b
	case bytecode.OpGt:
		return a > b
	case bytecode.OpGe:
		return a >= b
	default:
		return false
	}
}

// looseEquals implements `==`, including the numeric/string/boolean
// coercion ladder.
func (it *Interpreter) looseEquals(a, b value.Value) bool {
	if a.IsNumber() && b.IsNumber() {
		return value.StrictEquals(a, b, nil)
	}
	if a.IsHeapString() && b.IsHeapString() {
		as, _ := it.stringOf(a)
		bs, _ := it.stringOf(b)
		return as == bs
	}
	if a.IsNullish() && b.IsNullish() {
		return true
	}
	if a.IsNullish() != b.IsNullish() && (a.IsNullish() || b.IsNullish()) {
		return false
	}
	if a.IsBool() {
		return it.looseEquals(value.FromFloat64(numberFromBool(a)), b)
	}
	if b.IsBool() {
		return it.looseEquals(a, value.FromFloat64(numberFromBool(b)))
	}
	if a.IsNumber() && b.IsHeapString() {
		return a.AsFloat64() == it.toNumber(b)
	}
	if a.IsHeapString() && b.IsNumber() {
		return it.toNumber(a) == b.AsFloat64()
	}
	if (a.IsHeapObject()) && (b.IsNumber() || b.IsHeapString()) {
		return it.looseEquals(value.FromFloat64(it.toNumber(a)), b)
	}
	if (b.IsHeapObject()) && (a.IsNumber() || a.IsHeapString()) {
		return it.looseEquals(a, value.FromFloat64(it.toNumber(b)))
	}
	if a.IsHeapObject() && b.IsHeapObject() {
		return a.HeapIndex() == b.HeapIndex()
	}
	return false
}

func numberFromBool(v value.Value) float64 {
	if v.AsBool() {
		return 1
	}
	return 0
}

// toNumber implements ToNumber for the value kinds this VM produces.
func (it *Interpreter) toNumber(v value.Value) float64 {
	switch {
	case v.IsNumber():
		return v.AsFloat64()
	case v.IsUndefined():
		return math.NaN()
	case v.IsNull():
		return 0
	case v.IsBool():
		return numberFromBool(v)
	case v.IsHeapString():
		s, _ := it.stringOf(v)
		return stringToNumber(s)
	default:
		return math.NaN()
	}
}

func stringToNumber(s string) float64 {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// toStringValue implements ToString, boxing the Go string as a heap
// string Value.
func (it *Interpreter) toStringValue(v value.Value) (value.Value, *errors.Error) {
	if v.IsHeapString() {
		return v, nil
	}
	return it.allocString(it.rawToString(v))
}

func (it *Interpreter) rawToString(v value.Value) string {
	switch {
	case v.IsUndefined():
		return "undefined"
	case v.IsNull():
		return "null"
	case v.IsBool():
		if v.AsBool() {
			return "true"
		}
		return "false"
	case v.IsInt32():
		return strconv.Itoa(int(v.AsInt32()))
	case v.IsNaN():
		return "NaN"
	case v.IsDouble():
		return formatFloat(v.AsFloat64())
	case v.IsHeapString():
		s, _ := it.stringOf(v)
		return s
	case v.IsHeapObject():
		return "[object Object]"
	default:
		return ""
	}
}

func formatFloat(f float64) string {
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func (it *Interpreter) concat(a, b value.Value) (value.Value, *errors.Error) {
	as := it.rawToString(a)
	bs := it.rawToString(b)
	return it.allocString(as + bs)
}

// typeOf implements the `typeof` operator, consulting the object model
// to distinguish "function" from "object" for heap objects.
func (it *Interpreter) typeOf(v value.Value) (value.Value, *errors.Error) {
	name := v.TypeOf(func(heapIndex uint32) string {
		obj, ok := it.Model.Heap.Get(gc.Ref(heapIndex))
		if !ok {
			return "object"
		}
		switch obj.(type) {
		case *object.Function, *object.Closure, *object.BoundFunction:
			return "function"
		default:
			return "object"
		}
	})
	return it.allocString(name)
}

// toPropertyKey converts an element-access key operand to a shape.Key:
// heap strings become string keys, numbers are formatted's
// "array index keys are just stringified non-negative integers" view,
// unless the caller already knows the key is an array index (see
// indexOf in props.go, which checks that case first).
func (it *Interpreter) toPropertyKey(v value.Value) shape.Key {
	if v.IsHeapString() {
		s, _ := it.stringOf(v)
		return shape.StringKey(s)
	}
	return shape.StringKey(it.rawToString(v))
}

// execInstanceOf implements `instanceof` by walking the object's
// prototype chain looking for ctor's own `prototype` property.
func (it *Interpreter) execInstanceOf(obj, ctor value.Value) (value.Value, *errors.Error) {
	if !ctor.IsHeapObject() {
		return value.Value{}, errors.TypeError(errors.PhaseRuntime, "right-hand side of instanceof is not callable")
	}
	protoVal, err := object.Get(it.Model, gc.Ref(ctor.HeapIndex()), shape.StringKey("prototype"), ctor, it)
	if err != nil {
		return value.Value{}, err
	}
	if !protoVal.IsHeapObject() || !obj.IsHeapObject() {
		return value.FromBool(false), nil
	}
	target := protoVal.HeapIndex()
	current := gc.Ref(obj.HeapIndex())
	for i := 0; i < 100000; i++ {
		proto, ok := object.ProtoOf(it.Model, current)
		if !ok {
			return value.FromBool(false), nil
		}
		if proto == gc.NilRef {
			return value.FromBool(false), nil
		}
		if uint32(proto) == target {
			return value.FromBool(true), nil
		}
		current = proto
	}
	return value.Value{}, errors.Internal("prototype chain exceeds maximum walk depth (cycle?)")
}
