package interp

import (
	"github.com/jsvm/jsvm/bytecode"
	"github.com/jsvm/jsvm/ic"
)

// Program is one loaded bytecode module paired with the per-function
// feedback vectors the interpreter and baseline JIT share.
// Feedback lives here rather than on Frame because it survives across
// every call to the same function template, the same way a real
// engine's feedback vector hangs off the function's shared metadata
// rather than any one activation.
type Program struct {
	Module   *bytecode.Module
	Feedback []*ic.FeedbackVector
}

// Load wraps an already-decoded module with a fresh feedback vector per
// function.
func Load(m *bytecode.Module) *Program {
	fb := make([]*ic.FeedbackVector, len(m.Functions))
	for i := range fb {
		fb[i] = ic.NewFeedbackVector()
	}
	return &Program{Module: m, Feedback: fb}
}
