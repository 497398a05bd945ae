package shape

import (
	"testing"

	"github.com/jsvm/jsvm/gc"
)

func TestEmptyShape_CanonicalPerPrototype(t *testing.T) {
	tbl := NewTable()
	proto := gc.Ref(1)

	a := tbl.EmptyShape(proto, true)
	b := tbl.EmptyShape(proto, true)
	if a != b {
		t.Fatal("EmptyShape must return the same instance for the same prototype")
	}

	other := tbl.EmptyShape(gc.Ref(2), true)
	if a == other {
		t.Fatal("EmptyShape must differ across prototypes")
	}
}

func TestTransitionAdd_CanonicalizesIdenticalSequences(t *testing.T) {
	tbl := NewTable()
	proto := gc.Ref(1)

	root := tbl.EmptyShape(proto, true)
	s1 := tbl.TransitionAdd(root, StringKey("x"), DefaultDataAttrs)
	s1 = tbl.TransitionAdd(s1, StringKey("y"), DefaultDataAttrs)

	s2 := tbl.TransitionAdd(root, StringKey("x"), DefaultDataAttrs)
	s2 = tbl.TransitionAdd(s2, StringKey("y"), DefaultDataAttrs)

	if s1 != s2 {
		t.Fatal("identical property-addition sequences from the same root must land on the same shape")
	}
}

func TestTransitionAdd_DivergesOnDifferentOrder(t *testing.T) {
	tbl := NewTable()
	proto := gc.Ref(1)
	root := tbl.EmptyShape(proto, true)

	xy := tbl.TransitionAdd(root, StringKey("x"), DefaultDataAttrs)
	xy = tbl.TransitionAdd(xy, StringKey("y"), DefaultDataAttrs)

	yx := tbl.TransitionAdd(root, StringKey("y"), DefaultDataAttrs)
	yx = tbl.TransitionAdd(yx, StringKey("x"), DefaultDataAttrs)

	if xy == yx {
		t.Fatal("different insertion order must produce different shapes (property order is observable)")
	}
}

func TestFind_ReturnsAssignedSlot(t *testing.T) {
	tbl := NewTable()
	root := tbl.EmptyShape(gc.Ref(1), true)
	s := tbl.TransitionAdd(root, StringKey("x"), DefaultDataAttrs)
	s = tbl.TransitionAdd(s, StringKey("y"), DefaultDataAttrs)

	ex, ok := s.Find(StringKey("x"))
	if !ok || ex.Slot != 0 {
		t.Fatalf("Find(x) = %+v, ok=%v, want slot 0", ex, ok)
	}
	ey, ok := s.Find(StringKey("y"))
	if !ok || ey.Slot != 1 {
		t.Fatalf("Find(y) = %+v, ok=%v, want slot 1", ey, ok)
	}
	if _, ok := s.Find(StringKey("z")); ok {
		t.Fatal("Find(z) should miss")
	}
}

func TestTransitionDelete_ProducesDictionaryShape(t *testing.T) {
	tbl := NewTable()
	root := tbl.EmptyShape(gc.Ref(1), true)
	s := tbl.TransitionAdd(root, StringKey("x"), DefaultDataAttrs)
	s = tbl.TransitionAdd(s, StringKey("y"), DefaultDataAttrs)

	d := tbl.TransitionDelete(s, StringKey("x"))
	if !d.IsDictionary() {
		t.Fatal("deletion must transition to a dictionary shape")
	}
	// memoized
	d2 := tbl.TransitionDelete(s, StringKey("y"))
	if d != d2 {
		t.Fatal("repeated deletions from the same shape should share the dictionary shape")
	}
}

func TestTransitionAdd_DictionaryThreshold(t *testing.T) {
	tbl := NewTable()
	s := tbl.EmptyShape(gc.Ref(1), true)
	for i := 0; i <= DictionaryThreshold; i++ {
		s = tbl.TransitionAdd(s, StringKey(string(rune('a'+i%26))+string(rune(i))), DefaultDataAttrs)
	}
	if !s.IsDictionary() {
		t.Fatalf("adding a property to a shape with >= %d properties must give a dictionary shape, len=%d", DictionaryThreshold, s.Len())
	}
}

func TestProtoEpoch_BumpsOnSetProto(t *testing.T) {
	tbl := NewTable()
	before := tbl.ProtoEpoch()
	s := tbl.EmptyShape(gc.Ref(1), true)
	tbl.TransitionSetProto(s, gc.Ref(2), true)
	after := tbl.ProtoEpoch()
	if after == before {
		t.Fatal("changing a shape's prototype must bump the global epoch")
	}
}

func TestBumpProtoEpoch_Explicit(t *testing.T) {
	tbl := NewTable()
	before := tbl.ProtoEpoch()
	tbl.BumpProtoEpoch()
	if tbl.ProtoEpoch() != before+1 {
		t.Fatal("BumpProtoEpoch must increment the epoch by exactly one")
	}
}
