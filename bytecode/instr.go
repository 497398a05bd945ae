package bytecode

import "fmt"

// Instr is one decoded instruction: an opcode plus up to three register
// operands and one immediate (a constant-pool index, jump offset, or
// small literal, depending on Info.Imm). A, B, C are always present in
// the encoding (zero-padded when unused) so that every instruction has
// a fixed 4-byte register header; only the optional trailing immediate
// varies the instruction's total width. This trades a few don't-care
// bytes for a decoder with no operand-count branching in the hot loop.
type Instr struct {
	Op    Op
	A, B, C byte
	Imm   uint32 // reinterpret as int32 for ImmS32 opcodes
}

// instrWidth returns the encoded byte length of an instruction with the
// given opcode: 1 (opcode) + 3 (register header) + 0 or 4 (immediate).
func instrWidth(op Op) (int, error) {
	info, ok := Lookup(op)
	if !ok {
		return 0, fmt.Errorf("bytecode: unknown opcode %d", op)
	}
	width := 1 + 3
	if info.Imm != ImmNone {
		width += 4
	}
	return width, nil
}

// DecodeInstr reads one instruction starting at code[pc], returning it
// and the offset of the next instruction.
func DecodeInstr(code []byte, pc int) (Instr, int, error) {
	if pc < 0 || pc >= len(code) {
		return Instr{}, 0, fmt.Errorf("bytecode: pc %d out of range (len %d)", pc, len(code))
	}
	op := Op(code[pc])
	width, err := instrWidth(op)
	if err != nil {
		return Instr{}, 0, err
	}
	if pc+width > len(code) {
		return Instr{}, 0, fmt.Errorf("bytecode: instruction at pc %d (%s) truncated", pc, op)
	}
	instr := Instr{
		Op: op,
		A:  code[pc+1],
		B:  code[pc+2],
		C:  code[pc+3],
	}
	if width > 4 {
		instr.Imm = uint32(code[pc+4]) | uint32(code[pc+5])<<8 | uint32(code[pc+6])<<16 | uint32(code[pc+7])<<24
	}
	return instr, pc + width, nil
}

// ImmS32 reinterprets Imm as a signed 32-bit jump offset.
func (i Instr) ImmS32() int32 { return int32(i.Imm) }

// EncodeInstr appends instr's encoding to code.
func EncodeInstr(code []byte, instr Instr) []byte {
	code = append(code, byte(instr.Op), instr.A, instr.B, instr.C)
	info, _ := Lookup(instr.Op)
	if info.Imm != ImmNone {
		code = append(code,
			byte(instr.Imm), byte(instr.Imm>>8), byte(instr.Imm>>16), byte(instr.Imm>>24))
	}
	return code
}

// Disassemble decodes every instruction in code in order, for
// validation and tooling. An error identifies the first instruction
// that fails to decode.
func Disassemble(code []byte) ([]Instr, error) {
	var out []Instr
	pc := 0
	for pc < len(code) {
		instr, next, err := DecodeInstr(code, pc)
		if err != nil {
			return nil, err
		}
		out = append(out, instr)
		pc = next
	}
	return out, nil
}
