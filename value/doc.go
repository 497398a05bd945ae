// Package value implements the VM's 64-bit NaN-boxed Value representation.
//
// A Value is a tagged double: any 64-bit pattern that IEEE-754 would not
// interpret as a NaN represents that float64 directly (including +0, -0,
// and +/-Inf). The single reserved quiet-NaN pattern space is partitioned
// by a 3-bit tag occupying bits 48-50 and a 48-bit payload occupying bits
// 0-47, following the scheme used by production JS engines (V8, JSC,
// QuickJS) adapted for Go: rather than stashing a raw pointer in the
// payload (which would require treating Go heap addresses as untyped
// integers, defeating the garbage collector's ability to track them),
// the payload holds an index into the gc package's object table — the
// same handle-indirection idiom used elsewhere in this codebase for
// WASM resource handles (resource.Handle). This keeps NaN-boxing
// entirely free of unsafe.Pointer arithmetic.
package value
