// Package host is the embedding surface described in spec §6: a VM
// owns one interpreter, one wazero runtime backing its baseline JIT, and
// one job queue, and exposes just enough surface for an embedder to load
// bytecode, run it, register native functions, and drive the microtask
// queue.
//
// Construction follows engine.NewWazeroEngine/NewWazeroEngineWithConfig's
// split: New takes no configuration, NewWithConfig takes a *Config (nil
// meaning defaults).
package host
