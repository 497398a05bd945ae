package value

import "math"

// Tag identifies which immediate kind a NaN-boxed Value holds. Tag 0 is
// reserved for the canonical "this is a NaN double" sentinel so that real
// arithmetic NaNs never collide with the other immediate kinds.
type Tag uint8

const (
	TagDoubleNaN   Tag = iota // sentinel: value is NaN (all other NaN bit patterns are normalized to this)
	TagUndefined              // the undefined value
	TagNull                   // the null value
	TagBool                   // payload 0 or 1
	TagInt32                  // payload: sign-extended int32 in low 32 bits
	TagHeapObject             // payload: gc object-table index
	TagHeapString             // payload: gc object-table index (kind String)
	TagHole                   // internal: array hole / uninitialized binding, never JS-visible
)

const (
	qnan       uint64 = 0x7FF8000000000000
	signBit    uint64 = 1 << 63
	tagShift          = 48
	tagMask    uint64 = 0x0007 << tagShift
	payloadBit uint64 = 0x0000FFFFFFFFFFFF
)

// Value is a NaN-boxed 64-bit JS value.
type Value struct {
	bits uint64
}

func fromParts(tag Tag, payload uint64) Value {
	return Value{bits: qnan | (uint64(tag) << tagShift) | (payload & payloadBit)}
}

// isBoxed reports whether bits falls in the reserved NaN-boxing region,
// i.e. whether the value is an immediate rather than a plain double.
func isBoxed(bits uint64) bool {
	return bits&^signBit&qnan == qnan
}

func (v Value) tag() Tag {
	if !isBoxed(v.bits) {
		return TagDoubleNaN // never inspected directly for plain doubles; see IsDouble
	}
	return Tag((v.bits & tagMask) >> tagShift)
}

func (v Value) payload() uint64 {
	return v.bits & payloadBit
}

// Raw returns the underlying 64-bit representation, for round-trip tests
// and for embedding-surface callers that persist values.
func (v Value) Raw() uint64 { return v.bits }

// FromRaw reconstructs a Value from a 64-bit representation previously
// obtained from Raw. Every bit pattern is a valid Value: encode/decode is
// total.
func FromRaw(bits uint64) Value { return Value{bits: bits} }

// Constructors

func Undefined() Value { return fromParts(TagUndefined, 0) }
func Null() Value      { return fromParts(TagNull, 0) }
func Hole() Value      { return fromParts(TagHole, 0) }

func FromBool(b bool) Value {
	if b {
		return fromParts(TagBool, 1)
	}
	return fromParts(TagBool, 0)
}

func FromInt32(i int32) Value {
	return fromParts(TagInt32, uint64(uint32(i)))
}

// FromFloat64 encodes a float64. NaN payloads of any bit pattern are
// normalized to the canonical NaN sentinel so that Value equality never
// has to inspect mantissa bits.
func FromFloat64(f float64) Value {
	if math.IsNaN(f) {
		return fromParts(TagDoubleNaN, 0)
	}
	bits := math.Float64bits(f)
	if isBoxed(bits) {
		// A non-NaN double can never produce a boxed bit pattern (that
		// region is exclusively quiet NaNs), so this branch is dead in
		// practice; kept as a defensive normalization to the sentinel.
		return fromParts(TagDoubleNaN, 0)
	}
	return Value{bits: bits}
}

// FromHeapObject encodes a reference to a heap-allocated, non-string
// object living at the given gc object-table index.
func FromHeapObject(index uint32) Value {
	return fromParts(TagHeapObject, uint64(index))
}

// FromHeapString encodes a reference to a heap-allocated string living at
// the given gc object-table index.
func FromHeapString(index uint32) Value {
	return fromParts(TagHeapString, uint64(index))
}

// Classification

func (v Value) IsDouble() bool { return !isBoxed(v.bits) }
func (v Value) IsNaN() bool    { return isBoxed(v.bits) && v.tag() == TagDoubleNaN }
func (v Value) IsUndefined() bool { return isBoxed(v.bits) && v.tag() == TagUndefined }
func (v Value) IsNull() bool      { return isBoxed(v.bits) && v.tag() == TagNull }
func (v Value) IsBool() bool      { return isBoxed(v.bits) && v.tag() == TagBool }
func (v Value) IsInt32() bool     { return isBoxed(v.bits) && v.tag() == TagInt32 }
func (v Value) IsHeapObject() bool { return isBoxed(v.bits) && v.tag() == TagHeapObject }
func (v Value) IsHeapString() bool { return isBoxed(v.bits) && v.tag() == TagHeapString }
func (v Value) IsHole() bool       { return isBoxed(v.bits) && v.tag() == TagHole }

// IsHeapRef reports whether the value carries a gc object-table index of
// either heap kind (object or string).
func (v Value) IsHeapRef() bool { return v.IsHeapObject() || v.IsHeapString() }

// IsNumber reports whether the value is numeric (int32, a real double, or
// the NaN sentinel).
func (v Value) IsNumber() bool { return v.IsDouble() || v.IsInt32() || v.IsNaN() }

// IsNullish reports the ECMAScript "nullish" predicate used by ?? and ?.
func (v Value) IsNullish() bool { return v.IsNull() || v.IsUndefined() }

// Extraction. Callers must check the classification first; these panic on
// tag mismatch to surface VM bugs loudly rather than silently misreading
// bits (internal invariant violation).

func (v Value) AsBool() bool {
	if !v.IsBool() {
		panic("value: AsBool on non-bool Value")
	}
	return v.payload() != 0
}

func (v Value) AsInt32() int32 {
	if !v.IsInt32() {
		panic("value: AsInt32 on non-int32 Value")
	}
	return int32(uint32(v.payload()))
}

// AsFloat64 returns the numeric value as a float64, covering int32,
// double, and NaN representations uniformly.
func (v Value) AsFloat64() float64 {
	switch {
	case v.IsInt32():
		return float64(v.AsInt32())
	case v.IsNaN():
		return math.NaN()
	case v.IsDouble():
		return math.Float64frombits(v.bits)
	default:
		panic("value: AsFloat64 on non-numeric Value")
	}
}

// HeapIndex returns the gc object-table index for a heap-object or
// heap-string Value.
func (v Value) HeapIndex() uint32 {
	if !v.IsHeapRef() {
		panic("value: HeapIndex on non-heap Value")
	}
	return uint32(v.payload())
}

// TypeOf implements the `typeof` operator's edge cases verbatim:
// typeof null == "object", typeof undefined == "undefined".
// objectTypeOf is supplied by the object package for heap-object kinds
// that need to distinguish "function" from "object"; pass nil when not
// resolving a heap object (the caller is expected to consult the object
// model for IsHeapObject values with callable kinds).
func (v Value) TypeOf(objectTypeOf func(heapIndex uint32) string) string {
	switch {
	case v.IsUndefined():
		return "undefined"
	case v.IsNull():
		return "object"
	case v.IsBool():
		return "boolean"
	case v.IsInt32(), v.IsDouble(), v.IsNaN():
		return "number"
	case v.IsHeapString():
		return "string"
	case v.IsHeapObject():
		if objectTypeOf != nil {
			return objectTypeOf(v.HeapIndex())
		}
		return "object"
	default:
		return "undefined"
	}
}

// StrictEquals implements JS `===`: bitwise-equal representations are
// equal, except NaN is never equal to anything (including itself) and
// +0 equals -0. heapContentEq is consulted, exactly as TypeOf's
// objectTypeOf callback is, whenever both operands are the same heap
// tag: it lets the caller (who alone has heap access) compare heap
// strings and BigInts by content instead of by heap-slot identity,
// while ordinary heap objects still fall through to identity
// comparison when the callback reports no special handling (returns
// false) or is nil. heapContentEq may be nil when the caller statically
// knows neither operand can be a heap reference.
func StrictEquals(a, b Value, heapContentEq func(a, b Value) (equal, handled bool)) bool {
	if a.IsNaN() || b.IsNaN() {
		return false
	}
	if a.IsNumber() && b.IsNumber() {
		return a.AsFloat64() == b.AsFloat64()
	}
	if a.tag() != b.tag() {
		return false
	}
	switch a.tag() {
	case TagUndefined, TagNull, TagHole:
		return true
	case TagHeapString, TagHeapObject:
		if heapContentEq != nil {
			if equal, handled := heapContentEq(a, b); handled {
				return equal
			}
		}
		return a.payload() == b.payload()
	default:
		return a.payload() == b.payload()
	}
}

// SameValue implements Object.is semantics: unlike StrictEquals, NaN is
// SameValue as NaN, and +0 is not SameValue as -0.
func SameValue(a, b Value) bool {
	if a.IsNaN() && b.IsNaN() {
		return true
	}
	if a.IsNumber() && b.IsNumber() {
		af, bf := a.AsFloat64(), b.AsFloat64()
		if af == 0 && bf == 0 {
			return math.Signbit(af) == math.Signbit(bf)
		}
		return af == bf
	}
	return StrictEquals(a, b, nil)
}
