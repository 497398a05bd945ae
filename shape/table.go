package shape

import (
	"sync"

	"github.com/jsvm/jsvm/gc"
)

// DictionaryThreshold is the own-property count past which an object
// moves to dictionary mode: an object that already has this many own
// properties transitions on its next property addition instead of
// growing its shape chain further.
const DictionaryThreshold = 200

// Table owns every Shape ever created for a VM instance and the global
// prototype-epoch counter used to invalidate proto-chain inline caches
//. Shapes are never freed, so the backing slice only grows —
// an append-only arena, a right-sized simplification of the usual
// freelist-backed resource.LocalBackend for data that is permanent for
// the life of the VM.
type Table struct {
	mu         sync.Mutex
	nextID     uint64
	roots      map[gc.Ref]*Shape // one canonical empty shape per prototype
	noProtoRoot *Shape
	protoEpoch uint64
}

// NewTable creates an empty shape table.
func NewTable() *Table {
	return &Table{roots: make(map[gc.Ref]*Shape)}
}

// ProtoEpoch returns the current prototype-invalidation epoch. IC sites
// that captured a shape for proto-chain lookups must guard on this value
// in addition to the receiver's shape id.
func (t *Table) ProtoEpoch() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.protoEpoch
}

// BumpProtoEpoch is called by the object model whenever a property is
// added to or deleted from an object that is in use as a prototype.
// TransitionSetProto bumps the epoch itself; Reattribute and
// Object.PreventExtensions do not bump it.
func (t *Table) BumpProtoEpoch() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.protoEpoch++
}

func (t *Table) newShape(proto gc.Ref, hasProto bool, entries []Entry) *Shape {
	t.nextID++
	byKey := make(map[Key]int, len(entries))
	for i, e := range entries {
		byKey[e.Key] = i
	}
	return &Shape{
		id:       t.nextID,
		proto:    proto,
		hasProto: hasProto,
		entries:  entries,
		byKey:    byKey,
	}
}

// EmptyShape returns the canonical empty shape for the given prototype
// (or the null-prototype root when hasProto is false), creating it on
// first use. Two objects created with the same prototype and no
// properties share this exact Shape instance.
func (t *Table) EmptyShape(proto gc.Ref, hasProto bool) *Shape {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !hasProto {
		if t.noProtoRoot == nil {
			t.noProtoRoot = t.newShape(gc.NilRef, false, nil)
		}
		return t.noProtoRoot
	}

	if s, ok := t.roots[proto]; ok {
		return s
	}
	s := t.newShape(proto, true, nil)
	t.roots[proto] = s
	return s
}

// TransitionAdd returns the shape reached by adding a new own property
// to s. Equivalent parallel transitions canonicalize: two objects that
// add the same (key, attrs) from the same parent shape land on the same
// child shape instance, because the transition map lookup is keyed by
// (parent, key, attrs) via s.addTransitions.
//
// If s already has DictionaryThreshold or more properties, the result is
// a dictionary shape instead of a further chain link.
func (t *Table) TransitionAdd(s *Shape, key Key, attrs Attrs) *Shape {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s.dictionary {
		return s // dictionary-mode objects never grow the shape chain again
	}

	if len(s.entries) >= DictionaryThreshold {
		return t.dictionaryFrom(s)
	}

	tk := addTransitionKey{key: key, attrs: attrs}
	if s.addTransitions == nil {
		s.addTransitions = make(map[addTransitionKey]*Shape)
	}
	if child, ok := s.addTransitions[tk]; ok {
		return child
	}

	entries := make([]Entry, len(s.entries)+1)
	copy(entries, s.entries)
	entries[len(s.entries)] = Entry{Key: key, Attrs: attrs, Slot: len(s.entries)}

	child := t.newShape(s.proto, s.hasProto, entries)
	s.addTransitions[tk] = child
	return child
}

// TransitionSetProto returns the shape reached by changing s's
// prototype, and bumps the global prototype epoch: any IC site that
// walked through the old chain must re-learn.
func (t *Table) TransitionSetProto(s *Shape, newProto gc.Ref, hasProto bool) *Shape {
	t.mu.Lock()
	t.protoEpoch++
	if s.protoTransitions == nil {
		s.protoTransitions = make(map[protoTransitionKey]*Shape)
	}
	key := protoTransitionKey{proto: newProto, hasProto: hasProto}
	if child, ok := s.protoTransitions[key]; ok {
		t.mu.Unlock()
		return child
	}
	child := t.newShape(newProto, hasProto, append([]Entry(nil), s.entries...))
	s.protoTransitions[key] = child
	t.mu.Unlock()
	return child
}

// TransitionDelete returns the dictionary shape reached by deleting a
// property from s. Deletion always moves an object to dictionary mode
//; the per-object hash table that replaces the inline slot
// layout is owned by the object package, not here.
func (t *Table) TransitionDelete(s *Shape, key Key) *Shape {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dictionaryFrom(s)
}

// dictionaryFrom returns the (memoized, per-parent-shape) dictionary
// shape reached from s, preserving insertion order of the entries that
// existed at the point of transition" — preserved here because
// the dictionary shape still carries s's entries list for diagnostics
// and for-in ordering; live storage moves to the object's own table).
func (t *Table) dictionaryFrom(s *Shape) *Shape {
	if s.deleteTransition != nil {
		return s.deleteTransition
	}
	d := t.newShape(s.proto, s.hasProto, append([]Entry(nil), s.entries...))
	d.dictionary = true
	s.deleteTransition = d
	return d
}

// Reattribute returns the shape reached by changing an existing
// property's attributes in place (e.g. Object.defineProperty narrowing
// writable). Modeled as a delete-then-add pair so it shares the
// canonicalization and dictionary-threshold logic above, and because
// attribute changes are comparatively rare next to plain property
// addition.
func (t *Table) Reattribute(s *Shape, key Key, attrs Attrs) *Shape {
	if s.dictionary {
		return s
	}
	entries := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.Key == key {
			continue
		}
		entries = append(entries, e)
	}
	without := t.newShape(s.proto, s.hasProto, entries)
	return t.TransitionAdd(without, key, attrs)
}
