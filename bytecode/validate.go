package bytecode

import "fmt"

// Validate checks that every function in m references only registers,
// jump targets, constant-pool entries, and function indices that
// actually exist, so the interpreter can trust raw operand bytes without
// bounds-checking them on every instruction dispatch.
func Validate(m *Module) error {
	for fi, fn := range m.Functions {
		if err := validateFunction(m, fn); err != nil {
			return fmt.Errorf("bytecode: function %d (%q): %w", fi, fn.Name, err)
		}
	}
	return nil
}

func validateFunction(m *Module, fn *Function) error {
	if fn.NumRegisters <= 0 || fn.NumRegisters > 256 {
		return fmt.Errorf("invalid register count %d", fn.NumRegisters)
	}
	if fn.NumParams > fn.NumRegisters {
		return fmt.Errorf("NumParams %d exceeds NumRegisters %d", fn.NumParams, fn.NumRegisters)
	}

	instrs, err := Disassemble(fn.Code)
	if err != nil {
		return err
	}

	// Re-walk to get each instruction's starting pc (Disassemble drops
	// offsets), so jump targets can be checked against real boundaries.
	offsets := make([]int, len(instrs)+1)
	pc := 0
	for i, instr := range instrs {
		offsets[i] = pc
		w, _ := instrWidth(instr.Op)
		pc += w
	}
	offsets[len(instrs)] = pc
	isBoundary := make(map[int]bool, len(offsets))
	for _, o := range offsets {
		isBoundary[o] = true
	}

	maxReg := byte(fn.NumRegisters - 1)
	checkReg := func(r byte) error {
		if r > maxReg {
			return fmt.Errorf("register %d out of range (NumRegisters=%d)", r, fn.NumRegisters)
		}
		return nil
	}

	for i, instr := range instrs {
		info, ok := Lookup(instr.Op)
		if !ok {
			return fmt.Errorf("unknown opcode %d at instruction %d", instr.Op, i)
		}

		regs := [3]byte{instr.A, instr.B, instr.C}
		for j := 0; j < info.Regs && j < 3; j++ {
			if err := checkReg(regs[j]); err != nil {
				return fmt.Errorf("instruction %d (%s): %w", i, info.Mnemonic, err)
			}
		}

		switch info.Imm {
		case ImmU32:
			if err := validateU32Imm(m, fn, instr); err != nil {
				return fmt.Errorf("instruction %d (%s): %w", i, info.Mnemonic, err)
			}
		case ImmS32:
			// Only OpJump/OpJumpIfTrue/OpJumpIfFalse treat their s32
			// immediate as a branch offset; OpLoadSmallInt reuses ImmS32
			// to carry a literal value, which isn't a jump target.
			switch instr.Op {
			case OpJump, OpJumpIfTrue, OpJumpIfFalse:
				width, _ := instrWidth(instr.Op)
				target := offsets[i] + width + int(instr.ImmS32())
				if target < 0 || target > offsets[len(instrs)] || !isBoundary[target] {
					return fmt.Errorf("instruction %d (%s): jump target %d is not an instruction boundary", i, info.Mnemonic, target)
				}
			}
		}
	}

	for _, e := range fn.Exceptions {
		if !isBoundary[int(e.StartPC)] || !isBoundary[int(e.EndPC)] || !isBoundary[int(e.HandlerPC)] {
			return fmt.Errorf("exception entry [%d,%d)->%d is not on instruction boundaries", e.StartPC, e.EndPC, e.HandlerPC)
		}
		if e.StartPC >= e.EndPC {
			return fmt.Errorf("exception entry has empty or inverted range [%d,%d)", e.StartPC, e.EndPC)
		}
	}

	return nil
}

func validateU32Imm(m *Module, fn *Function, instr Instr) error {
	switch instr.Op {
	case OpLoadConst:
		if _, ok := m.Pool.Get(instr.Imm); !ok {
			return fmt.Errorf("constant pool index %d out of range", instr.Imm)
		}
	case OpGetProp, OpSetProp, OpGetGlobal, OpSetGlobal, OpDefineGlobal, OpDeleteProp:
		if c, ok := m.Pool.Get(instr.Imm); !ok || c.Kind != ConstString {
			return fmt.Errorf("name-pool index %d is not a string constant", instr.Imm)
		}
	case OpNewFunction, OpNewClosure:
		if int(instr.Imm) >= len(m.Functions) {
			return fmt.Errorf("function index %d out of range (%d functions)", instr.Imm, len(m.Functions))
		}
	case OpGetUpvalue, OpSetUpvalue:
		if int(instr.Imm) >= fn.UpvalueCount {
			return fmt.Errorf("upvalue index %d out of range (UpvalueCount=%d)", instr.Imm, fn.UpvalueCount)
		}
	case OpCall, OpCallMethod:
		// Imm here is an argc count, not a pool/function index; any
		// value fits in a u32 and is checked against the actual argv
		// window at call time by the interpreter, not here.
	}
	return nil
}
