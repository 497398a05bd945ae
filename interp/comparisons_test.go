package interp_test

import (
	"testing"

	"github.com/jsvm/jsvm/interp"
	"github.com/jsvm/jsvm/vmtest"
)

// TestStrictEqualsHeapStringsCompareByContent guards against the
// reference-equality regression: every OpLoadConst/Concat allocates a
// fresh heap string with no interning, so `===` must not fall back to
// comparing the two strings' heap-table slots.
func TestStrictEqualsHeapStringsCompareByContent(t *testing.T) {
	m := vmtest.NewModule("strict-eq-strings")
	sx := m.String("x")
	sEmpty := m.String("")
	fn := m.Func("main", 0, 4)
	fn.LoadConst(0, sx)     // r0 = "x"
	fn.LoadConst(1, sx)     // r1 = "x" (separate allocation, same pool entry)
	fn.LoadConst(2, sEmpty) // r2 = ""
	fn.Concat(3, 0, 2)      // r3 = "x" + "" (freshly allocated)
	fn.StrictEq(0, 1, 3)
	fn.Return(0)
	fn.Build()

	prog := interp.Load(m.Build())
	it := interp.New()
	result, err := it.Eval(prog)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !result.IsBool() || !result.AsBool() {
		t.Fatalf(`expected "x" === ("x"+"") to be true, got %+v`, result)
	}
}

// TestStrictEqualsDistinctStringContentIsFalse makes sure the content
// fix didn't overshoot into "any two heap strings are equal".
func TestStrictEqualsDistinctStringContentIsFalse(t *testing.T) {
	m := vmtest.NewModule("strict-eq-strings-distinct")
	sx := m.String("x")
	sy := m.String("y")
	fn := m.Func("main", 0, 3)
	fn.LoadConst(0, sx)
	fn.LoadConst(1, sy)
	fn.StrictEq(2, 0, 1)
	fn.Return(2)
	fn.Build()

	prog := interp.Load(m.Build())
	it := interp.New()
	result, err := it.Eval(prog)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !result.IsBool() || result.AsBool() {
		t.Fatalf(`expected "x" === "y" to be false, got %+v`, result)
	}
}

// TestStrictEqualsBigIntsCompareByContent mirrors the string case for
// BigInt constants loaded from two separate pool entries with identical
// digits.
func TestStrictEqualsBigIntsCompareByContent(t *testing.T) {
	m := vmtest.NewModule("strict-eq-bigint")
	b1 := m.BigInt("123456789012345678901234567890")
	b2 := m.BigInt("123456789012345678901234567890")
	fn := m.Func("main", 0, 3)
	fn.LoadConst(0, b1)
	fn.LoadConst(1, b2)
	fn.StrictEq(2, 0, 1)
	fn.Return(2)
	fn.Build()

	prog := interp.Load(m.Build())
	it := interp.New()
	result, err := it.Eval(prog)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !result.IsBool() || !result.AsBool() {
		t.Fatalf("expected equal-valued BigInt constants to be ===, got %+v", result)
	}
}

// TestStrictEqualsObjectsStillCompareByIdentity guards against the
// content-comparison fix leaking into plain heap objects, which must
// keep reference semantics: two freshly allocated objects are never
// ===, only an object compared with itself is.
func TestStrictEqualsObjectsStillCompareByIdentity(t *testing.T) {
	m := vmtest.NewModule("strict-eq-objects")
	fn := m.Func("main", 0, 4)
	fn.NewObject(0)
	fn.NewObject(1)
	fn.StrictEq(2, 0, 1)
	fn.Return(2)
	fn.Build()

	prog := interp.Load(m.Build())
	it := interp.New()
	result, err := it.Eval(prog)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !result.IsBool() || result.AsBool() {
		t.Fatalf("expected two distinct objects to not be ===, got %+v", result)
	}
}

// TestLooseEqualsStringNumberCoercion exercises the `==` coercion ladder
// between a heap string and a number.
func TestLooseEqualsStringNumberCoercion(t *testing.T) {
	m := vmtest.NewModule("loose-eq")
	s5 := m.String("5")
	fn := m.Func("main", 0, 3)
	fn.LoadConst(0, s5)
	fn.LoadSmallInt(1, 5)
	fn.Eq(2, 0, 1)
	fn.Return(2)
	fn.Build()

	prog := interp.Load(m.Build())
	it := interp.New()
	result, err := it.Eval(prog)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !result.IsBool() || !result.AsBool() {
		t.Fatalf(`expected "5" == 5 to be true, got %+v`, result)
	}
}

// TestRelationalStringComparisonIsLexicographic exercises the
// heap-string fast path in relational(), which compares by content
// rather than falling through to ToNumber.
func TestRelationalStringComparisonIsLexicographic(t *testing.T) {
	m := vmtest.NewModule("relational-strings")
	sa := m.String("apple")
	sb := m.String("banana")
	fn := m.Func("main", 0, 3)
	fn.LoadConst(0, sa)
	fn.LoadConst(1, sb)
	fn.Lt(2, 0, 1)
	fn.Return(2)
	fn.Build()

	prog := interp.Load(m.Build())
	it := interp.New()
	result, err := it.Eval(prog)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !result.IsBool() || !result.AsBool() {
		t.Fatalf(`expected "apple" < "banana" to be true, got %+v`, result)
	}
}
