// Package interp implements the register-based bytecode interpreter:
// dispatch loop, execution frames, calling convention, exception
// unwinding, and generator/async-function checkpointing.
//
// The interpreter is the hub that ties every lower layer together
// (value, gc, shape, object, bytecode, ic, job) and implements
// object.Invoker so that accessor properties and Proxy traps can call
// back into user bytecode without object importing interp.
//
// A baseline JIT tier is wired in, not imported: Tier is an interface
// this package defines and the jit package implements, installed by the
// embedding host at VM construction time rather than interp importing
// jit directly. This keeps interp/jit free of an import cycle while
// still letting interp decide tiering policy (call-count threshold,
// bailout counter, permanent de-optimization) as part of the
// interpreter's relationship to its compiled tier, not the codegen
// backend.
package interp
