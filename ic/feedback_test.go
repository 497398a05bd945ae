package ic

import "testing"

func TestPropertySitePromotion(t *testing.T) {
	s := &PropertySite{}
	if s.State() != StateUninitialized {
		t.Fatalf("new site state = %v, want Uninitialized", s.State())
	}

	s.Record(1, 0, 0)
	if s.State() != StateMonomorphic {
		t.Fatalf("after one record: state = %v, want Monomorphic", s.State())
	}
	if off, ok := s.Lookup(1, 0); !ok || off != 0 {
		t.Fatalf("Lookup(1) = (%d,%v), want (0,true)", off, ok)
	}

	s.Record(2, 1, 0)
	if s.State() != StatePolymorphic {
		t.Fatalf("after second shape: state = %v, want Polymorphic", s.State())
	}

	s.Record(3, 2, 0)
	s.Record(4, 3, 0)
	if s.State() != StatePolymorphic {
		t.Fatalf("with 4 entries: state = %v, want Polymorphic", s.State())
	}

	s.Record(5, 4, 0)
	if s.State() != StateMegamorphic {
		t.Fatalf("with 5th shape: state = %v, want Megamorphic", s.State())
	}
	if _, ok := s.Lookup(1, 0); ok {
		t.Fatalf("Megamorphic site must never hit")
	}
}

func TestPropertySiteEpochInvalidation(t *testing.T) {
	s := &PropertySite{}
	s.Record(1, 0, 5)
	if _, ok := s.Lookup(1, 5); !ok {
		t.Fatalf("expected hit at matching epoch")
	}
	if _, ok := s.Lookup(1, 6); ok {
		t.Fatalf("expected miss after epoch bump")
	}
	if s.State() != StateUninitialized {
		t.Fatalf("epoch mismatch must reset to Uninitialized, got %v", s.State())
	}
}

func TestArithSiteMonotoneFeedback(t *testing.T) {
	a := &ArithSite{}
	a.Observe(KindInt32)
	if !a.IsInt32Only() {
		t.Fatalf("expected int32-only after one int32 observation")
	}
	a.Observe(KindDouble)
	if a.IsInt32Only() {
		t.Fatalf("feedback must widen, not narrow")
	}
	if a.Mask()&KindInt32 == 0 {
		t.Fatalf("widened mask lost a previously observed bit")
	}
}

func TestFeedbackVectorLazyAllocation(t *testing.T) {
	fv := NewFeedbackVector()
	p1 := fv.Prop(10)
	p2 := fv.Prop(10)
	if p1 != p2 {
		t.Fatalf("Prop(10) must return the same site instance across calls")
	}
	p3 := fv.Prop(20)
	if p1 == p3 {
		t.Fatalf("distinct PCs must get distinct sites")
	}
}

func TestFeedbackVectorAllInt32Monomorphic(t *testing.T) {
	fv := NewFeedbackVector()
	if fv.AllInt32Monomorphic() {
		t.Fatalf("empty vector should not report all-int32")
	}
	fv.Arith(1).Observe(KindInt32)
	fv.Arith(2).Observe(KindInt32)
	if !fv.AllInt32Monomorphic() {
		t.Fatalf("expected all-int32 with two int32-only sites")
	}
	fv.Arith(3).Observe(KindDouble)
	if fv.AllInt32Monomorphic() {
		t.Fatalf("a widened site must disqualify all-int32")
	}
}
