// Package bytecode defines the on-disk/in-memory module format this VM
// executes: a LEB128-framed binary container (grounded on the
// wasm/internal/binary reader/writer), a constant pool, and per-function
// blobs consisting of a flat instruction stream over ~70 register-based
// opcodes.
//
// Decoding is two-phase, the same split a component decoder
// uses: Decode produces a Module from raw bytes doing only structural
// parsing, and Validate walks the decoded Module checking register
// indices, jump targets, and constant-pool references before the
// interpreter is allowed to run it. A module that decodes but fails
// validation is never executed.
package bytecode
