package value

import "math"

// AddFast implements the interpreter's fast path for `+` (the baseline
// JIT emits its own WASM overflow guard instead): both operands tagged
// int32 try an overflowing integer
// add first, falling back to float64 addition only on overflow. ok
// reports whether both operands were numeric; when false the caller
// must fall back to the full ToPrimitive/string-concatenation path.
func AddFast(a, b Value) (result Value, ok bool) {
	if a.IsInt32() && b.IsInt32() {
		x, y := a.AsInt32(), b.AsInt32()
		sum := x + y
		// overflow iff operands share a sign and the result's sign differs
		if (x >= 0) == (y >= 0) && (sum >= 0) != (x >= 0) {
			return FromFloat64(float64(x) + float64(y)), true
		}
		return FromInt32(sum), true
	}
	if a.IsNumber() && b.IsNumber() {
		return FromFloat64(a.AsFloat64() + b.AsFloat64()), true
	}
	return Value{}, false
}

func SubFast(a, b Value) (result Value, ok bool) {
	if a.IsInt32() && b.IsInt32() {
		x, y := a.AsInt32(), b.AsInt32()
		diff := x - y
		if (x >= 0) != (y >= 0) && (diff >= 0) != (x >= 0) {
			return FromFloat64(float64(x) - float64(y)), true
		}
		return FromInt32(diff), true
	}
	if a.IsNumber() && b.IsNumber() {
		return FromFloat64(a.AsFloat64() - b.AsFloat64()), true
	}
	return Value{}, false
}

func MulFast(a, b Value) (result Value, ok bool) {
	if a.IsInt32() && b.IsInt32() {
		x, y := a.AsInt32(), b.AsInt32()
		prod := int64(x) * int64(y)
		if prod > math.MaxInt32 || prod < math.MinInt32 {
			return FromFloat64(float64(x) * float64(y)), true
		}
		return FromInt32(int32(prod)), true
	}
	if a.IsNumber() && b.IsNumber() {
		return FromFloat64(a.AsFloat64() * b.AsFloat64()), true
	}
	return Value{}, false
}

// DivFast always produces a double result (division is never
// int32-preserving in JS) but preserves the sign of zero and infinity
// per IEEE.
func DivFast(a, b Value) (result Value, ok bool) {
	if !a.IsNumber() || !b.IsNumber() {
		return Value{}, false
	}
	return FromFloat64(a.AsFloat64() / b.AsFloat64()), true
}

// ToBoolean implements the ToBoolean abstract operation for primitives.
// Heap references are always truthy at this layer; the interpreter
// special-cases document.all-style exotic falsy objects only if the
// hosted standard library ever introduces one (it does not).
func (v Value) ToBoolean() bool {
	switch {
	case v.IsUndefined(), v.IsNull(), v.IsHole():
		return false
	case v.IsBool():
		return v.AsBool()
	case v.IsInt32():
		return v.AsInt32() != 0
	case v.IsNaN():
		return false
	case v.IsDouble():
		return v.AsFloat64() != 0
	default:
		return true // heap object or heap string (the empty string is handled by the interpreter's toBoolean)
	}
}

// ToInt32 implements the ToInt32 abstract operation for numeric
// primitives: truncate toward zero modulo 2^32.
func ToInt32(v Value) int32 {
	if v.IsInt32() {
		return v.AsInt32()
	}
	f := v.AsFloat64()
	if math.IsNaN(f) || math.IsInf(f, 0) || f == 0 {
		return 0
	}
	f = math.Trunc(f)
	m := math.Mod(f, 4294967296)
	if m < 0 {
		m += 4294967296
	}
	u := uint32(m)
	return int32(u)
}
