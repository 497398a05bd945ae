package value

import (
	"math"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	vals := []Value{
		Undefined(), Null(), Hole(),
		FromBool(true), FromBool(false),
		FromInt32(0), FromInt32(-1), FromInt32(math.MaxInt32), FromInt32(math.MinInt32),
		FromFloat64(3.5), FromFloat64(-0.0), FromFloat64(math.Inf(1)), FromFloat64(math.Inf(-1)),
		FromFloat64(math.NaN()),
		FromHeapObject(7), FromHeapString(9),
	}
	for _, v := range vals {
		rt := FromRaw(v.Raw())
		if rt.Raw() != v.Raw() {
			t.Errorf("round trip mismatch: %x != %x", rt.Raw(), v.Raw())
		}
	}
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Undefined(), "undefined"},
		{Null(), "object"},
		{FromBool(true), "boolean"},
		{FromInt32(1), "number"},
		{FromFloat64(1.5), "number"},
		{FromFloat64(math.NaN()), "number"},
		{FromHeapString(0), "string"},
	}
	for _, tt := range tests {
		if got := tt.v.TypeOf(nil); got != tt.want {
			t.Errorf("TypeOf(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestStrictEquals_NaN(t *testing.T) {
	nan := FromFloat64(math.NaN())
	if StrictEquals(nan, nan, nil) {
		t.Error("NaN must not strictly equal NaN")
	}
}

func TestStrictEquals_SignedZero(t *testing.T) {
	pz := FromFloat64(0)
	nz := FromFloat64(math.Copysign(0, -1))
	if !StrictEquals(pz, nz, nil) {
		t.Error("+0 must strictly equal -0")
	}
}

func TestStrictEquals_IntDoubleCross(t *testing.T) {
	i := FromInt32(5)
	d := FromFloat64(5.0)
	if !StrictEquals(i, d, nil) {
		t.Error("int32(5) must strictly equal double(5.0)")
	}
}

func TestSameValue_NaNAndZero(t *testing.T) {
	nan := FromFloat64(math.NaN())
	if !SameValue(nan, nan) {
		t.Error("Object.is(NaN, NaN) must be true")
	}
	pz := FromFloat64(0)
	nz := FromFloat64(math.Copysign(0, -1))
	if SameValue(pz, nz) {
		t.Error("Object.is(+0, -0) must be false")
	}
}

func TestAddFast_OverflowTransitionsToDouble(t *testing.T) {
	a := FromInt32(math.MaxInt32)
	b := FromInt32(1)
	result, ok := AddFast(a, b)
	if !ok {
		t.Fatal("AddFast should succeed for numeric operands")
	}
	if result.IsInt32() {
		t.Error("overflowing add must not stay int32")
	}
	if result.AsFloat64() != float64(math.MaxInt32)+1 {
		t.Errorf("got %v", result.AsFloat64())
	}
}

func TestAddFast_NoOverflowStaysInt32(t *testing.T) {
	a := FromInt32(1)
	b := FromInt32(2)
	result, ok := AddFast(a, b)
	if !ok || !result.IsInt32() || result.AsInt32() != 3 {
		t.Errorf("AddFast(1,2) = %v, ok=%v", result, ok)
	}
}

func TestToBoolean(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
	}{
		{Undefined(), false},
		{Null(), false},
		{FromBool(false), false},
		{FromInt32(0), false},
		{FromInt32(1), true},
		{FromFloat64(0), false},
		{FromFloat64(math.NaN()), false},
		{FromHeapObject(0), true},
	}
	for _, tt := range tests {
		if got := tt.v.ToBoolean(); got != tt.want {
			t.Errorf("ToBoolean(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestToInt32(t *testing.T) {
	tests := []struct {
		v    Value
		want int32
	}{
		{FromFloat64(math.NaN()), 0},
		{FromFloat64(math.Inf(1)), 0},
		{FromFloat64(4294967296 + 5), 5},
		{FromFloat64(-1), -1},
	}
	for _, tt := range tests {
		if got := ToInt32(tt.v); got != tt.want {
			t.Errorf("ToInt32(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}
