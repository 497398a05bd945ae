package object

import "github.com/jsvm/jsvm/gc"

// String is the immutable heap representation of a JS string backing a
// TagHeapString Value. Strings are not property-bearing in their own
// right (property/index access on a string primitive is handled by the
// interpreter boxing it against the String.prototype chain), so String
// does not embed Object.
type String struct {
	chars  string
	hash   uint32
	hashed bool
}

// NewString creates a heap string. Go's string type is already an
// immutable, UTF-8-ish byte sequence; the interpreter is responsible for
// UTF-16 code-unit indexing semantics on top of it.
func NewString(s string) *String {
	return &String{chars: s}
}

// Chars returns the underlying Go string.
func (s *String) Chars() string { return s.chars }

// Len returns the string's length in bytes of its Go backing form. Code
// unit length (what `.length` observes) is computed by the interpreter's
// UTF-16 view, not here.
func (s *String) Len() int { return len(s.chars) }

// Hash returns a cached FNV-1a hash of the string contents, computed
// once and memoized. Property lookup does not use it: shapes and the
// dictionary table key on shape.Key names.
func (s *String) Hash() uint32 {
	if !s.hashed {
		s.hash = fnv1a(s.chars)
		s.hashed = true
	}
	return s.hash
}

func fnv1a(s string) uint32 {
	const offset32 = 2166136261
	const prime32 = 16777619
	h := uint32(offset32)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}

// Trace is a no-op: strings hold no outgoing heap references.
func (s *String) Trace(visit func(gc.Ref)) {}
