// Package jsvm is a register-based virtual machine for a compiled
// JavaScript bytecode format.
//
// # Architecture Overview
//
//	value/      NaN-boxed 64-bit value representation
//	gc/         non-moving mark-sweep collector, HandleScope rooting
//	shape/      hidden-class shape and transition-DAG system
//	object/     heap object model built on gc and shape
//	bytecode/   instruction set, constant pool, module container, validator
//	ic/         inline-cache state machine for property access
//	interp/     register-machine interpreter and tiering dispatch
//	jit/        baseline JIT, lowering straight-line functions to wazero-hosted WASM
//	job/        microtask/job queue
//	errors/     structured error taxonomy
//	host/       embedding surface: VM, native function registration, Eval
//	vmtest/     bytecode assembly helpers for tests
//	cmd/jsvm-repl/  a thin CLI demonstrating the host package
//
// # Quick Start
//
//	vm, err := host.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer vm.Close(ctx)
//
//	prog, err := vm.LoadModule(ctx, bytecodeBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := prog.Eval(ctx)
//
// # Host Functions
//
//	vm.RegisterNative("math", "add", func(this value.Value, args host.ArgsView, nc *host.NativeContext) (value.Value, error) {
//	    return value.FromInt32(args.Get(0).AsInt32() + args.Get(1).AsInt32()), nil
//	})
package jsvm
