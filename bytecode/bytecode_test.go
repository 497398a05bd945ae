package bytecode

import "testing"

func simpleModule() *Module {
	pool := NewPool()
	idx := pool.Add(Const{Kind: ConstNumber, Number: 42})

	var code []byte
	code = EncodeInstr(code, Instr{Op: OpLoadConst, A: 0, Imm: idx})
	code = EncodeInstr(code, Instr{Op: OpReturn, A: 0})

	fn := &Function{Name: "main", NumParams: 0, NumRegisters: 1, Code: code}
	return &Module{Name: "test", Pool: pool, Functions: []*Function{fn}}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	m := simpleModule()
	data := Encode(m)

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Name != m.Name {
		t.Fatalf("Name = %q, want %q", decoded.Name, m.Name)
	}
	if len(decoded.Functions) != 1 || decoded.Functions[0].Name != "main" {
		t.Fatalf("Functions = %+v", decoded.Functions)
	}
	if decoded.Pool.Len() != 1 {
		t.Fatalf("Pool.Len() = %d, want 1", decoded.Pool.Len())
	}
	c, ok := decoded.Pool.Get(0)
	if !ok || c.Number != 42 {
		t.Fatalf("Pool.Get(0) = %+v, %v", c, ok)
	}
}

func TestDecode_RejectsBadMagic(t *testing.T) {
	if _, err := Decode([]byte("notjsvm")); err == nil {
		t.Fatal("expected an error decoding a non-module payload")
	}
}

func TestValidate_AcceptsWellFormedModule(t *testing.T) {
	m := simpleModule()
	if err := Validate(m); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_RejectsOutOfRangeRegister(t *testing.T) {
	var code []byte
	code = EncodeInstr(code, Instr{Op: OpMove, A: 0, B: 5}) // NumRegisters=1, B=5 is out of range
	fn := &Function{Name: "f", NumRegisters: 1, Code: code}
	m := &Module{Name: "m", Pool: NewPool(), Functions: []*Function{fn}}

	if err := Validate(m); err == nil {
		t.Fatal("expected a register-range error")
	}
}

func TestValidate_RejectsBadConstantPoolIndex(t *testing.T) {
	var code []byte
	code = EncodeInstr(code, Instr{Op: OpLoadConst, A: 0, Imm: 99})
	fn := &Function{Name: "f", NumRegisters: 1, Code: code}
	m := &Module{Name: "m", Pool: NewPool(), Functions: []*Function{fn}}

	if err := Validate(m); err == nil {
		t.Fatal("expected a constant-pool-index error")
	}
}

func TestValidate_RejectsMisalignedJumpTarget(t *testing.T) {
	var code []byte
	// Jump offset of 1 lands mid-instruction, not on a boundary.
	code = EncodeInstr(code, Instr{Op: OpJump, Imm: uint32(int32(1))})
	code = EncodeInstr(code, Instr{Op: OpReturn, A: 0})
	fn := &Function{Name: "f", NumRegisters: 1, Code: code}
	m := &Module{Name: "m", Pool: NewPool(), Functions: []*Function{fn}}

	if err := Validate(m); err == nil {
		t.Fatal("expected a misaligned-jump-target error")
	}
}

func TestValidate_AcceptsForwardJump(t *testing.T) {
	var code []byte
	jumpInstr := Instr{Op: OpJump, Imm: uint32(int32(4))} // skip exactly one 4-byte instruction
	code = EncodeInstr(code, jumpInstr)
	code = EncodeInstr(code, Instr{Op: OpLoadUndefined, A: 0})
	code = EncodeInstr(code, Instr{Op: OpReturn, A: 0})
	fn := &Function{Name: "f", NumRegisters: 1, Code: code}
	m := &Module{Name: "m", Pool: NewPool(), Functions: []*Function{fn}}

	if err := Validate(m); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestDisassemble_DecodesInOrder(t *testing.T) {
	m := simpleModule()
	instrs, err := Disassemble(m.Functions[0].Code)
	if err != nil {
		t.Fatal(err)
	}
	if len(instrs) != 2 || instrs[0].Op != OpLoadConst || instrs[1].Op != OpReturn {
		t.Fatalf("Disassemble = %+v", instrs)
	}
}
