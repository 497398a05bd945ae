package host

import (
	"context"

	"github.com/jsvm/jsvm/interp"
	"github.com/jsvm/jsvm/value"
)

// Program is one decoded bytecode module bound to the VM that loaded
// it, ready to run.
type Program struct {
	vm   *VM
	prog *interp.Program
}

// Eval runs the program's entry function to completion and drains the
// job queue, per spec §6's run-to-completion embedding contract. A
// cancelled ctx (or the VM's configured InterruptFlag) raises the
// interpreter's cooperative interrupt at its next safepoint; the
// returned error is errors.Interrupted() wrapped as a plain error in
// that case, same as any other script-level fault.
func (p *Program) Eval(ctx context.Context) (value.Value, error) {
	stop := p.vm.watchInterrupt(ctx)
	defer stop()

	result, err := p.vm.it.Eval(p.prog)
	if err != nil {
		return value.Undefined(), err
	}
	return result, nil
}
