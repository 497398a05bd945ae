package jit

import (
	"github.com/jsvm/jsvm/bytecode"
)

// WASM opcodes and section ids used by the generated module. Named
// constants instead of a full encoder/decoder pair (wat/internal's
// approach) because the baseline tier only ever writes, never reads,
// these modules — wat's AST/parser round-trip exists for the text
// format, which this package has no need of.
const (
	wasmMagic0, wasmMagic1, wasmMagic2, wasmMagic3 = 0x00, 0x61, 0x73, 0x6D

	secType     = 1
	secFunction = 3
	secExport   = 7
	secCode     = 10

	valI32 = 0x7F
	valI64 = 0x7E

	opEnd    = 0x0B
	opIf     = 0x04
	opReturn = 0x0F
	blockVoid = 0x40

	opLocalGet = 0x20
	opLocalSet = 0x21

	opI32Const = 0x41
	opI64Const = 0x42

	opI32Eq  = 0x46
	opI32Ne  = 0x47
	opI32LtS = 0x48
	opI32GtS = 0x4A
	opI32LeS = 0x4C
	opI32GeS = 0x4E

	opI64Ne = 0x52

	opI32Add  = 0x6A
	opI32Sub  = 0x6B
	opI32Mul  = 0x6C
	opI32And  = 0x71
	opI32Or   = 0x72
	opI32Xor  = 0x73
	opI32Shl  = 0x74
	opI32ShrS = 0x75
	opI32ShrU = 0x76

	opI64Add = 0x7C
	opI64Sub = 0x7D
	opI64Mul = 0x7E

	opI64ExtendI32S = 0xAC
)

// bailoutSentinel is an i64 value the generated module returns in place
// of a result when a speculative int32 guard fails (overflow on
// Add/Sub/Mul/Neg/Inc/Dec). Every legitimate result is a sign-extended
// int32 (a bool is a plain 0/1 with no tag bit; tier.go's decodeResult
// picks the kind from plan.returnKind), so it lies in the int32 range
// and can never equal 1<<40; decodeResult detects a bailout by that
// equality, with no import/host round-trip.
const bailoutSentinel int64 = 1 << 40

// ovfLocalIndex is the extra i64 local every compiled module declares
// immediately after its register locals, reused across every
// overflow-checked op in sequence (the checks never overlap since the
// module has no control flow to keep two live at once).
func ovfLocalIndex(numRegisters int) uint32 { return uint32(numRegisters) }

// exportName is the symbol every compiled module exports its function
// under; tier.go looks it up by this fixed name after instantiation.
const exportName = "run"

// buildModule assembles p into a complete core WebAssembly binary
// exporting a single zero-import function "run" with p.numParams i32
// parameters and an i64 result, in the encoding bailoutSentinel and
// decodeResult (tier.go) agree on.
func buildModule(p plan) []byte {
	w := bytecode.NewWriter()
	w.Byte(wasmMagic0)
	w.Byte(wasmMagic1)
	w.Byte(wasmMagic2)
	w.Byte(wasmMagic3)
	w.WriteBytes([]byte{0x01, 0x00, 0x00, 0x00}) // version 1

	writeSection(w, secType, buildTypeSection(p))
	writeSection(w, secFunction, buildFunctionSection())
	writeSection(w, secExport, buildExportSection())
	writeSection(w, secCode, buildCodeSection(p))

	return w.Bytes()
}

func writeSection(w *bytecode.Writer, id byte, body []byte) {
	w.Byte(id)
	w.WriteU32(uint32(len(body)))
	w.WriteBytes(body)
}

func buildTypeSection(p plan) []byte {
	w := bytecode.NewWriter()
	w.WriteU32(1) // one function type
	w.Byte(0x60)  // functype tag
	w.WriteU32(uint32(p.numParams))
	for i := 0; i < p.numParams; i++ {
		w.Byte(valI32)
	}
	w.WriteU32(1)
	w.Byte(valI64)
	return w.Bytes()
}

func buildFunctionSection() []byte {
	w := bytecode.NewWriter()
	w.WriteU32(1)
	w.WriteU32(0) // type index 0
	return w.Bytes()
}

func buildExportSection() []byte {
	w := bytecode.NewWriter()
	w.WriteU32(1)
	w.WriteName(exportName)
	w.Byte(0x00) // func export kind
	w.WriteU32(0)
	return w.Bytes()
}

func buildCodeSection(p plan) []byte {
	body := buildFuncBody(p)
	w := bytecode.NewWriter()
	w.WriteU32(1)
	w.WriteU32(uint32(len(body)))
	w.WriteBytes(body)
	return w.Bytes()
}

func buildFuncBody(p plan) []byte {
	w := bytecode.NewWriter()

	extraI32 := p.numRegisters - p.numParams
	localGroups := 1 // the i64 overflow-check temp, always declared
	if extraI32 > 0 {
		localGroups++
	}
	w.WriteU32(uint32(localGroups))
	if extraI32 > 0 {
		w.WriteU32(uint32(extraI32))
		w.Byte(valI32)
	}
	w.WriteU32(1)
	w.Byte(valI64)

	ovf := ovfLocalIndex(p.numRegisters)
	for _, o := range p.ops {
		emitOp(w, o, ovf)
	}
	w.Byte(opEnd)
	return w.Bytes()
}

func localGet(w *bytecode.Writer, idx uint32) {
	w.Byte(opLocalGet)
	w.WriteU32(idx)
}

func localSet(w *bytecode.Writer, idx uint32) {
	w.Byte(opLocalSet)
	w.WriteU32(idx)
}

// operand is either a register (by local index) or an immediate int32,
// letting Neg/Inc/Dec share the overflow-checked codegen path with the
// genuine binary arithmetic ops by synthesizing a constant operand
// (Neg: 0 - x; Inc: x + 1; Dec: x - 1).
type operand struct {
	isConst bool
	reg     uint32
	cst     int32
}

func regOperand(idx byte) operand   { return operand{reg: uint32(idx)} }
func constOperand(v int32) operand  { return operand{isConst: true, cst: v} }

func pushOperand(w *bytecode.Writer, o operand) {
	if o.isConst {
		w.Byte(opI32Const)
		w.WriteS32(o.cst)
		return
	}
	localGet(w, o.reg)
}

func pushOperandAsI64(w *bytecode.Writer, o operand) {
	pushOperand(w, o)
	w.Byte(opI64ExtendI32S)
}

// emitOp lowers one resolved instruction to WASM.
func emitOp(w *bytecode.Writer, o op, ovf uint32) {
	instr := o.instr
	dst := uint32(instr.A)
	switch instr.Op {
	case bytecode.OpNop:
		return

	case bytecode.OpLoadSmallInt:
		w.Byte(opI32Const)
		w.WriteS32(instr.ImmS32())
		localSet(w, dst)
	case bytecode.OpLoadTrue:
		w.Byte(opI32Const)
		w.WriteS32(1)
		localSet(w, dst)
	case bytecode.OpLoadFalse:
		w.Byte(opI32Const)
		w.WriteS32(0)
		localSet(w, dst)

	case bytecode.OpMove:
		localGet(w, uint32(instr.B))
		localSet(w, dst)

	case bytecode.OpAdd:
		emitOverflowBinary(w, dst, regOperand(instr.B), regOperand(instr.C), opI32Add, opI64Add, ovf)
	case bytecode.OpSub:
		emitOverflowBinary(w, dst, regOperand(instr.B), regOperand(instr.C), opI32Sub, opI64Sub, ovf)
	case bytecode.OpMul:
		emitOverflowBinary(w, dst, regOperand(instr.B), regOperand(instr.C), opI32Mul, opI64Mul, ovf)
	case bytecode.OpNeg:
		emitOverflowBinary(w, dst, constOperand(0), regOperand(instr.B), opI32Sub, opI64Sub, ovf)
	case bytecode.OpInc:
		emitOverflowBinary(w, dst, regOperand(instr.A), constOperand(1), opI32Add, opI64Add, ovf)
	case bytecode.OpDec:
		emitOverflowBinary(w, dst, regOperand(instr.A), constOperand(1), opI32Sub, opI64Sub, ovf)

	case bytecode.OpBitAnd:
		emitPlainBinary(w, dst, regOperand(instr.B), regOperand(instr.C), opI32And)
	case bytecode.OpBitOr:
		emitPlainBinary(w, dst, regOperand(instr.B), regOperand(instr.C), opI32Or)
	case bytecode.OpBitXor:
		emitPlainBinary(w, dst, regOperand(instr.B), regOperand(instr.C), opI32Xor)
	case bytecode.OpShl:
		emitPlainBinary(w, dst, regOperand(instr.B), regOperand(instr.C), opI32Shl)
	case bytecode.OpShr:
		emitPlainBinary(w, dst, regOperand(instr.B), regOperand(instr.C), opI32ShrS)
	case bytecode.OpUShr:
		emitPlainBinary(w, dst, regOperand(instr.B), regOperand(instr.C), opI32ShrU)
	case bytecode.OpBitNot:
		emitPlainBinary(w, dst, constOperand(-1), regOperand(instr.B), opI32Xor)

	case bytecode.OpEq, bytecode.OpStrictEq:
		emitPlainBinary(w, dst, regOperand(instr.B), regOperand(instr.C), opI32Eq)
	case bytecode.OpNotEq, bytecode.OpStrictNotEq:
		emitPlainBinary(w, dst, regOperand(instr.B), regOperand(instr.C), opI32Ne)
	case bytecode.OpLt:
		emitPlainBinary(w, dst, regOperand(instr.B), regOperand(instr.C), opI32LtS)
	case bytecode.OpLe:
		emitPlainBinary(w, dst, regOperand(instr.B), regOperand(instr.C), opI32LeS)
	case bytecode.OpGt:
		emitPlainBinary(w, dst, regOperand(instr.B), regOperand(instr.C), opI32GtS)
	case bytecode.OpGe:
		emitPlainBinary(w, dst, regOperand(instr.B), regOperand(instr.C), opI32GeS)

	case bytecode.OpReturn:
		// The bool/int32 distinction needs no codegen-level tagging: a
		// bool-typed register always holds a clean 0/1 (only
		// OpLoadTrue/OpLoadFalse/comparisons ever write one), so the
		// plain sign-extended i64 is self-describing once tier.go
		// consults plan.returnKind (fixed at compile time) to pick the
		// right value.Value constructor.
		localGet(w, dst)
		w.Byte(opI64ExtendI32S)
		w.Byte(opReturn)
	}
}

// emitPlainBinary emits `push b; push c; <op>; local.set a` for ops with
// no overflow possibility (bitwise ops are always exact in int32,
// comparisons always produce 0/1).
func emitPlainBinary(w *bytecode.Writer, dst uint32, b, c operand, wasmOp byte) {
	pushOperand(w, b)
	pushOperand(w, c)
	w.Byte(wasmOp)
	localSet(w, dst)
}

// emitOverflowBinary computes b <i64Op> c in i64 (sign-extending each
// operand first) and then dst = b <i32Op> c, reading both operands
// before dst is written so that a dst aliasing b or c (always the case
// for Inc/Dec) does not feed the result back into the check. If
// sign-extending the i32 result does not equal the i64 result, the true
// mathematical result did not fit in int32 and the function bails out
// immediately with bailoutSentinel, so the tentative dst is never
// observed. This is the inline guard a baseline JIT emits in place
// of the interpreter's AddFast/SubFast/MulFast software overflow check
// (value/arith.go).
func emitOverflowBinary(w *bytecode.Writer, dst uint32, b, c operand, i32Op, i64Op byte, ovf uint32) {
	pushOperandAsI64(w, b)
	pushOperandAsI64(w, c)
	w.Byte(i64Op)
	localSet(w, ovf)

	pushOperand(w, b)
	pushOperand(w, c)
	w.Byte(i32Op)
	localSet(w, dst) // tentative i32 result

	localGet(w, dst)
	w.Byte(opI64ExtendI32S)
	localGet(w, ovf)
	w.Byte(opI64Ne)
	w.Byte(opIf)
	w.Byte(blockVoid)
	w.Byte(opI64Const)
	writeS64(w, bailoutSentinel)
	w.Byte(opReturn)
	w.Byte(opEnd)
}

// writeS64 encodes a signed LEB128 int64, the one WASM-specific varint
// width bytecode.Writer does not itself need (the bytecode container
// format has no 64-bit signed field).
func writeS64(w *bytecode.Writer, v int64) {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		w.Byte(b)
	}
}
