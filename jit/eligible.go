package jit

import (
	"github.com/jsvm/jsvm/bytecode"
	"github.com/jsvm/jsvm/ic"
)

// regKind is the statically inferred type of one register's contents at
// baseline-compile time. The baseline tier never merges kinds across a
// branch (there is none, by construction — see doc.go) so a single
// linear pass suffices; a real optimizing tier would need a fixpoint
// over a control-flow graph, which is explicitly out of scope (spec
// §4.6's "no OSR", generalized here to "no control flow" for the first
// cut of this tier).
type regKind uint8

const (
	kindUnknown regKind = iota
	kindInt32
	kindBool
)

// op describes one translated instruction, resolved to concrete
// register/kind/overflow-checked shape so the codegen in module.go never has to
// re-inspect the bytecode or feedback vector.
type op struct {
	instr bytecode.Instr
	// needsOverflowGuard marks Add/Sub/Mul/Neg/Inc/Dec, whose int32
	// result may not fit back in int32 and must bail out to the
	// interpreter rather than silently wrap (spec §8's overflow
	// boundary behavior).
	needsOverflowGuard bool
}

// plan is the result of a successful eligibility analysis: the ordered
// instruction list the codegen walks, plus the register file shape the
// generated module's locals must match.
type plan struct {
	ops          []op
	numRegisters int
	numParams    int
	returnKind   regKind
}

// analyze decides whether fn, given the feedback accumulated in fb, is a
// good baseline-compilation candidate and if so returns the translation
// plan. ok is false for any construct doc.go declares out of scope —
// the caller (Tier.Compile) treats that as "not eligible", never an
// error.
func analyze(fn *bytecode.Function, fb *ic.FeedbackVector) (plan, bool) {
	if fn.IsGenerator || fn.IsAsync || fn.NumParams > fn.NumRegisters || fn.NumRegisters == 0 {
		return plan{}, false
	}
	kinds := make([]regKind, fn.NumRegisters)
	for i := 0; i < fn.NumParams; i++ {
		kinds[i] = kindInt32
	}

	var ops []op
	code := fn.Code
	pc := 0
	for pc < len(code) {
		instr, next, err := bytecode.DecodeInstr(code, pc)
		if err != nil {
			return plan{}, false
		}
		isLast := next >= len(code)

		switch instr.Op {
		case bytecode.OpNop:
			// no register effect

		case bytecode.OpLoadSmallInt:
			kinds[instr.A] = kindInt32
		case bytecode.OpLoadTrue, bytecode.OpLoadFalse:
			kinds[instr.A] = kindBool

		case bytecode.OpMove:
			if kinds[instr.B] == kindUnknown {
				return plan{}, false
			}
			kinds[instr.A] = kinds[instr.B]

		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul:
			if kinds[instr.B] != kindInt32 || kinds[instr.C] != kindInt32 {
				return plan{}, false
			}
			if !fb.Arith(pc).IsInt32Only() {
				return plan{}, false
			}
			kinds[instr.A] = kindInt32
			ops = append(ops, op{instr, true})
			pc = next
			continue

		case bytecode.OpNeg:
			if kinds[instr.B] != kindInt32 {
				return plan{}, false
			}
			kinds[instr.A] = kindInt32
			ops = append(ops, op{instr, true})
			pc = next
			continue

		case bytecode.OpInc, bytecode.OpDec:
			if kinds[instr.A] != kindInt32 {
				return plan{}, false
			}
			ops = append(ops, op{instr, true})
			pc = next
			continue

		case bytecode.OpBitAnd, bytecode.OpBitOr, bytecode.OpBitXor,
			bytecode.OpShl, bytecode.OpShr, bytecode.OpUShr:
			if kinds[instr.B] != kindInt32 || kinds[instr.C] != kindInt32 {
				return plan{}, false
			}
			kinds[instr.A] = kindInt32
		case bytecode.OpBitNot:
			if kinds[instr.B] != kindInt32 {
				return plan{}, false
			}
			kinds[instr.A] = kindInt32

		case bytecode.OpEq, bytecode.OpStrictEq, bytecode.OpNotEq, bytecode.OpStrictNotEq,
			bytecode.OpLt, bytecode.OpLe, bytecode.OpGt, bytecode.OpGe:
			if kinds[instr.B] != kindInt32 || kinds[instr.C] != kindInt32 {
				return plan{}, false
			}
			kinds[instr.A] = kindBool

		case bytecode.OpReturn:
			if kinds[instr.A] == kindUnknown || !isLast {
				// Only a single trailing return is supported: anything
				// else would need control flow to reach it, which this
				// tier does not translate.
				return plan{}, false
			}
			ops = append(ops, op{instr, false})
			return plan{ops: ops, numRegisters: fn.NumRegisters, numParams: fn.NumParams, returnKind: kinds[instr.A]}, true

		default:
			return plan{}, false
		}

		ops = append(ops, op{instr, false})
		pc = next
	}
	// Fell off the end without a trailing OpReturn.
	return plan{}, false
}
