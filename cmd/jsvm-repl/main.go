// Command jsvm-repl is a minimal demonstration of the host package's
// embedding surface: point it at a compiled bytecode module and it
// loads, validates, and evaluates the module's entry function through
// a host.VM. It is not a JavaScript source-level REPL (this repo has no
// source parser); "module" here always means the compiled bytecode
// container bytecode.Encode produces.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/term"

	"github.com/jsvm/jsvm/bytecode"
	"github.com/jsvm/jsvm/host"
	"github.com/jsvm/jsvm/value"
)

func main() {
	var (
		modulePath  = flag.String("module", "", "path to a compiled bytecode module")
		interactive = flag.Bool("i", false, "interactive mode (falls back to one-shot run if stdout isn't a terminal)")
		heapLimit   = flag.Int("heap-limit", 0, "soft heap limit in objects (0 = unbounded)")
		stackLimit  = flag.Int("stack-limit", 0, "call-depth limit (0 = interpreter default)")
		noJIT       = flag.Bool("no-jit", false, "disable the baseline JIT tier")
		timeout     = flag.Duration("timeout", 0, "abort evaluation after this long (0 = no timeout)")
	)
	flag.Parse()

	if *modulePath == "" && !*interactive {
		fmt.Fprintln(os.Stderr, "Usage: jsvm-repl -module <file> [-timeout 5s]")
		fmt.Fprintln(os.Stderr, "       jsvm-repl -i  (interactive mode, prompts for a module path)")
		os.Exit(1)
	}

	cfg := &host.Config{
		HeapSoftLimit: *heapLimit,
		StackLimit:    *stackLimit,
		JITDisabled:   *noJIT,
	}

	if *interactive && term.IsTerminal(int(os.Stdout.Fd())) {
		if err := runInteractive(cfg, *modulePath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *modulePath == "" {
		fmt.Fprintln(os.Stderr, "Error: -module is required (stdout is not a terminal, falling back to one-shot mode)")
		os.Exit(1)
	}
	if err := runOnce(cfg, *modulePath, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadModuleFile(path string) (*bytecode.Module, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	mod, err := bytecode.Decode(data)
	if err != nil {
		return nil, nil, fmt.Errorf("decode: %w", err)
	}
	if err := bytecode.Validate(mod); err != nil {
		return nil, nil, fmt.Errorf("validate: %w", err)
	}
	return mod, data, nil
}

func runOnce(cfg *host.Config, path string, timeout time.Duration) error {
	mod, data, err := loadModuleFile(path)
	if err != nil {
		return err
	}

	fmt.Printf("Module: %s\n", mod.Name)
	fmt.Printf("Functions: %d\n", len(mod.Functions))
	for i, fn := range mod.Functions {
		fmt.Printf("  [%d] %s(%d params, %d registers)\n", i, fn.Name, fn.NumParams, fn.NumRegisters)
	}

	ctx := context.Background()
	vm, err := host.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create VM: %w", err)
	}
	defer vm.Close(ctx)

	prog, err := vm.LoadModule(ctx, data)
	if err != nil {
		return fmt.Errorf("load module: %w", err)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	fmt.Printf("\nEvaluating entry function...\n")
	result, err := prog.Eval(ctx)
	if err != nil {
		return fmt.Errorf("eval: %w", err)
	}
	fmt.Printf("Result: %s\n", formatValue(result))
	return nil
}

// formatValue renders a result for display. host.VM deliberately
// doesn't expose object internals to the embedding surface, so a heap
// reference prints as its kind rather than its contents.
func formatValue(v value.Value) string {
	switch {
	case v.IsUndefined():
		return "undefined"
	case v.IsNull():
		return "null"
	case v.IsBool():
		return strconv.FormatBool(v.AsBool())
	case v.IsInt32():
		return strconv.FormatInt(int64(v.AsInt32()), 10)
	case v.IsNaN():
		return "NaN"
	case v.IsDouble():
		return strconv.FormatFloat(v.AsFloat64(), 'g', -1, 64)
	case v.IsHole():
		return "<hole>"
	case v.IsHeapString():
		return "[string]"
	case v.IsHeapObject():
		return "[object]"
	default:
		return "<unknown>"
	}
}
