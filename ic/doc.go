// Package ic implements the inline-cache state machine and type-feedback
// vectors attached to property, global, call, arithmetic, and comparison
// bytecode sites.
//
// Each site is identified by its bytecode program counter rather than by
// a separately encoded feedback-slot index: the bytecode format
// (package bytecode) does not widen its fixed 4-byte register header to
// carry a slot operand, since a PC already uniquely names a static site
// within a function, the same role a feedback-vector slot index would
// play. A FeedbackVector lazily allocates one PropertySite/ArithSite/
// CallSite per PC on first visit, grounded on a
// resource.UnifiedTable Observer/Subscribe pattern generalized from
// "subscribe to resource lifecycle events" to "IC site subscribes to
// shape/epoch invalidation" — here realized as each site capturing the
// epoch at learn time and comparing it on every subsequent access,
// rather than a push-based notification, since IC sites are pull-only
// (consulted on access, never proactively).
package ic
