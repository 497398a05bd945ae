// Package jit implements the baseline tier from spec §4.6: whole-function,
// no-OSR compilation of a hot function's bytecode to native code, guarded
// by type-feedback-derived speculations, with deoptimization back to the
// interpreter on guard failure.
//
// The "native code" backend is wazero (grounded on engine/wazero.go's
// Runtime wiring): a compiled function's body is assembled into a tiny
// in-memory core WebAssembly module and that module is compiled and
// instantiated through wazero exactly as a guest component would be,
// giving the baseline tier a real, re-entrant, sandboxed calling
// convention instead of unsafe native codegen.
//
// Scope (documented simplification, not a later surprise): the baseline
// tier compiles only straight-line register arithmetic over int32
// operands — the case spec §8's "integer overflow on Add/Sub/Mul
// transitions from int32 fast path to double" scenario exercises
// directly (the interpreter itself has no quickened int32 opcodes; it
// runs the generic arithmetic path). A function is
// eligible only if every instruction is drawn from a small whitelist
// (moves, int32/bool literals, arithmetic, bitwise, comparison, return),
// every arithmetic site's accumulated feedback (package ic) is
// int32-only, and every register's static type (int32 or bool, inferred
// by a single linear pass since there is no control-flow join to merge
// across) is unambiguous. Anything else — calls, property access,
// globals, closures, control flow, generators, division/modulo/exponent,
// exceptions — falls outside the baseline tier's translation and the
// function is left interpreter-only, which spec §4.6 explicitly permits
// ("Ineligible functions remain interpreter-only without error").
// Control-flow and call support would need a relooper or a PC-dispatch
// loop inside the generated module; out of scope for the baseline tier
// specified here, same as the spec's own "no OSR" and "whole-function"
// restrictions.
package jit
