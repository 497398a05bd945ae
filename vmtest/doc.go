// Package vmtest is a hand-writable surface for building bytecode
// modules in tests, playing the role the teacher's wat text format
// plays for raw WebAssembly: the interp package's _test.go files
// construct fixtures by chaining Builder calls instead of computing
// instruction offsets and constant-pool indices by hand.
package vmtest
