// Package shape implements hidden classes: immutable descriptors of an
// object's exact property layout, shared across every object with the
// same layout, plus the transition tree that makes adding properties in
// a predictable order cheap.
//
// Shapes are created on first transition and never freed — the domain is
// bounded by the program's finite set of distinct property layouts — so
// the Table below is a simple append-only arena rather than the
// freelist-backed slab resource tables elsewhere in this codebase use for
// handles (resource.LocalBackend). That freelist is the right shape for
// objects that come and go (see the gc package, which reuses it
// directly); it is the wrong shape here, since shape.Table entries are
// permanent, and that divergence from the usual pattern is recorded
// in DESIGN.md rather than copied reflexively.
package shape
