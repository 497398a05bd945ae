// Package object implements the heap object layout and the [[Get]]/
// [[Set]] property-access contract shared by every object kind: a
// shape pointer, a small inline slot array, an overflow
// table for objects with more properties than fit inline, and
// kind-specific fields for arrays, strings, functions, closures, bound
// functions, promises, regexps, typed arrays, array buffers, maps,
// sets, weak maps/sets, proxies, symbols, bigints, and errors.
//
// Getters, setters, and Proxy traps may call back into user bytecode, so
// property access here never calls the interpreter directly — it is
// parameterized by the Invoker interface, which interp.Interpreter
// implements. This keeps the dependency edge pointing one way (interp
// imports object, not the reverse) while still satisfying 
// "re-entrant into the interpreter" requirement for ToPrimitive-family
// coercions and accessor properties.
package object
