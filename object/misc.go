package object

import (
	"math/big"
	"regexp"

	"github.com/jsvm/jsvm/errors"
	"github.com/jsvm/jsvm/gc"
	"github.com/jsvm/jsvm/shape"
)

// RegExp wraps a compiled pattern. JS regex syntax is not a strict
// subset of RE2 (no backreferences, different lookaround support);
// Source/Flags are kept verbatim for Object.prototype.toString and
// .source/.flags. A pattern RE2 cannot compile fails at construction
// time with an errors.Internal error (the errors package has no
// SyntaxError kind) rather than silently behaving differently, so a
// constructed RegExp never has a nil Compiled.
// RegExp is scoped to RE2-representable patterns; see DESIGN.md.
type RegExp struct {
	Object
	Source   string
	Flags    string
	Compiled *regexp.Regexp
	LastIndex int // only meaningful when Flags contains "g" or "y"
}

// NewRegExp compiles re2Pattern, which the caller has already translated
// from the JS source into RE2 syntax, and stores source and flags
// verbatim. NewRegExp does no JS-to-RE2 translation itself.
func NewRegExp(s *shape.Shape, source, flags string, re2Pattern string) (*RegExp, *errors.Error) {
	compiled, err := regexp.Compile(re2Pattern)
	if err != nil {
		return nil, errors.Internal("invalid regular expression: " + err.Error())
	}
	return &RegExp{Object: NewObject(s), Source: source, Flags: flags, Compiled: compiled}, nil
}

func (r *RegExp) asObject() *Object { return &r.Object }

func (r *RegExp) Trace(visit func(gc.Ref)) { traceObjectSlots(&r.Object, visit) }

// ArrayBufferElementKind identifies a TypedArray's element type.
type ArrayBufferElementKind uint8

const (
	ElementInt8 ArrayBufferElementKind = iota
	ElementUint8
	ElementUint8Clamped
	ElementInt16
	ElementUint16
	ElementInt32
	ElementUint32
	ElementFloat32
	ElementFloat64
	ElementBigInt64
	ElementBigUint64
)

// ArrayBuffer is the raw byte storage backing one or more TypedArray
// views. It implements gc.Finalizer: when the collector sweeps it,
// Finalize is queued (not run) and runs when a caller invokes the funcs
// returned by gc.Heap.DrainFinalizers, dropping the backing slice even
// though Go's own allocator ultimately reclaims it.
type ArrayBuffer struct {
	Object
	Data     []byte
	Detached bool
}

func NewArrayBuffer(s *shape.Shape, size int) *ArrayBuffer {
	return &ArrayBuffer{Object: NewObject(s), Data: make([]byte, size)}
}

func (a *ArrayBuffer) asObject() *Object { return &a.Object }

func (a *ArrayBuffer) Trace(visit func(gc.Ref)) { traceObjectSlots(&a.Object, visit) }

// Finalize releases the backing store. The collector's sweep queues it
// once for gc.Heap.DrainFinalizers, never twice.
func (a *ArrayBuffer) Finalize() {
	a.Data = nil
	a.Detached = true
}

// TypedArray is a typed view over an ArrayBuffer.
type TypedArray struct {
	Object
	Buffer     gc.Ref
	ByteOffset int
	Length     int
	Kind       ArrayBufferElementKind
}

func NewTypedArray(s *shape.Shape, buf gc.Ref, byteOffset, length int, kind ArrayBufferElementKind) *TypedArray {
	return &TypedArray{Object: NewObject(s), Buffer: buf, ByteOffset: byteOffset, Length: length, Kind: kind}
}

func (t *TypedArray) asObject() *Object { return &t.Object }

func (t *TypedArray) Trace(visit func(gc.Ref)) {
	traceObjectSlots(&t.Object, visit)
	traceHeapRef(visit, t.Buffer)
}

// Proxy records a Target and a Handler and stores no properties of its
// own, so it does not implement heapHolder: Get/Set/Has/Delete in this
// package are the ordinary-object path and do not apply to it. The
// interpreter has no Proxy-specific path either; no trap on Handler is
// ever looked up or invoked.
type Proxy struct {
	Target  gc.Ref
	Handler gc.Ref
}

func NewProxy(target, handler gc.Ref) *Proxy {
	return &Proxy{Target: target, Handler: handler}
}

func (p *Proxy) Trace(visit func(gc.Ref)) {
	traceHeapRef(visit, p.Target)
	traceHeapRef(visit, p.Handler)
}

// Symbol is a unique, optionally-described primitive. Two
// Symbol heap objects are never equal as property keys even with
// identical descriptions; uniqueness comes from allocation identity
// (the gc.Ref), not from any field here.
type Symbol struct {
	Description string
	HasDesc     bool
}

func NewSymbol(description string, hasDesc bool) *Symbol {
	return &Symbol{Description: description, HasDesc: hasDesc}
}

func (s *Symbol) Trace(visit func(gc.Ref)) {}

// BigInt wraps an arbitrary-precision integer. math/big is
// the standard library's arbitrary-precision integer type; no example
// repo in the retrieval pack carries a third-party bignum library, so
// this is one of the few places this module reaches for the standard
// library proper (see DESIGN.md).
type BigInt struct {
	Val *big.Int
}

func NewBigInt(v *big.Int) *BigInt {
	return &BigInt{Val: new(big.Int).Set(v)}
}

func (b *BigInt) Trace(visit func(gc.Ref)) {}

func (b *BigInt) String() string { return b.Val.String() }
