// Package job implements the microtask/job queue driver required by
// Promise semantics: a FIFO of deferred callbacks drained
// exhaustively at script/module completion (interp's Eval) and when the
// host calls host.VM.DrainMicrotasks. Settling a promise only enqueues
// its reactions; the queue is not drained at that point.
//
// The queue is a plain slice-backed FIFO, the same simplicity as the
// resource.LocalBackend.entries rather than container/list —
// nothing in the retrieval pack carries a dedicated queue library for
// this concern, and a slice is the simplest default choice for
// an ordered collection of small records. Enqueue/Drain notifications
// reuse resource.Table's Observer/Subscribe shape,
// generalized from "resource lifecycle event" to "job enqueued/run", so
// an embedder (or the gc package's finalizer hookup) can watch queue
// depth without polling.
package job
