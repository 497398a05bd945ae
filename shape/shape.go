package shape

import "github.com/jsvm/jsvm/gc"

// Attrs encodes a property's writable/enumerable/configurable bits and
// data-vs-accessor discrimination.
type Attrs uint8

const (
	Writable Attrs = 1 << iota
	Enumerable
	Configurable
	Accessor // set: Slot indexes a (getter, setter) pair rather than a value
)

// DefaultDataAttrs is what `obj.x = 1` and object-literal properties get.
const DefaultDataAttrs = Writable | Enumerable | Configurable

// Key identifies a property. Symbol-keyed properties carry a unique
// SymbolID, chosen by whoever calls SymbolKey, instead of a Name.
type Key struct {
	Name     string
	SymbolID uint64
	IsSymbol bool
}

// StringKey builds an ordinary string-keyed Key.
func StringKey(name string) Key { return Key{Name: name} }

// SymbolKey builds a symbol-keyed Key.
func SymbolKey(id uint64) Key { return Key{SymbolID: id, IsSymbol: true} }

// Entry is one property descriptor within a Shape's ordered list.
type Entry struct {
	Key   Key
	Attrs Attrs
	Slot  int // inline-or-overflow storage index, assigned at transition time
}

// Shape is an immutable, canonical descriptor of an object's property
// layout: a prototype identity, an ordered property list, and a
// monotonically increasing id.
type Shape struct {
	id         uint64
	proto      gc.Ref
	hasProto   bool
	entries    []Entry
	byKey      map[Key]int // Key -> index into entries, for O(1) Find
	dictionary bool         // true: object carries its own per-instance hash table instead

	addTransitions   map[addTransitionKey]*Shape
	protoTransitions map[protoTransitionKey]*Shape
	deleteTransition *Shape // dictionary shape reached by deleting from this shape
}

type addTransitionKey struct {
	key   Key
	attrs Attrs
}

type protoTransitionKey struct {
	proto    gc.Ref
	hasProto bool
}

// ID returns the shape's monotonically increasing identity, suitable for
// IC comparison.
func (s *Shape) ID() uint64 { return s.id }

// IsDictionary reports whether this is a dictionary-mode sentinel shape:
// property access on such an object bypasses the IC fast path.
func (s *Shape) IsDictionary() bool { return s.dictionary }

// Proto returns the shape's prototype object, and whether one is set
// (the empty/root shape for `Object.create(null)` has none).
func (s *Shape) Proto() (gc.Ref, bool) { return s.proto, s.hasProto }

// Len returns the number of own properties this shape describes.
func (s *Shape) Len() int { return len(s.entries) }

// Entries returns the shape's ordered property list. The slice must not
// be mutated by callers; shapes are immutable once constructed.
func (s *Shape) Entries() []Entry { return s.entries }

// Find looks up key in the shape's own property list's
// `find(shape, key) -> slot | none`.
func (s *Shape) Find(key Key) (Entry, bool) {
	if s.dictionary {
		return Entry{}, false
	}
	idx, ok := s.byKey[key]
	if !ok {
		return Entry{}, false
	}
	return s.entries[idx], true
}
