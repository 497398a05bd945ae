// Package gc implements the VM's non-moving, single-threaded, stop-the-
// world mark-sweep collector.
//
// Objects live in a slab-with-freelist table (entries []entry plus a
// freeList []Ref), generalized from a resource-handle table with borrow
// counts to a GC-managed heap object with a mark bit. A Ref is a stable
// index into that table; it never changes across a collection because
// the collector never moves objects, only frees and reuses slots.
//
// Native code that must hold a Ref across any operation that can
// allocate opens a HandleScope and mints Handles from it — a
// stack-discipline region layered on top of the raw Ref space. A WeakRef
// receives no invalidation notification: its Get simply reports whether
// the target's slot is still alive.
package gc
