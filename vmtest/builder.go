package vmtest

import "github.com/jsvm/jsvm/bytecode"

// Module is a module under construction: a shared constant pool plus
// every function built against it so far. The first Func call becomes
// function-table index 0, the module/script entry point
// (interp.Interpreter.Eval's convention).
type Module struct {
	name string
	pool *bytecode.Pool
	fns  []*bytecode.Function
}

// NewModule starts an empty module named name.
func NewModule(name string) *Module {
	return &Module{name: name, pool: bytecode.NewPool()}
}

// Func reserves the next function-table slot and returns a Builder for
// it. The slot is filled in when the returned Builder's Build is called,
// so a function can reference its own or a sibling's Index before
// either is finished (OpNewFunction/OpNewClosure targets).
func (m *Module) Func(name string, numParams, numRegisters int) *Builder {
	idx := len(m.fns)
	m.fns = append(m.fns, nil)
	return &Builder{module: m, index: idx, name: name, numParams: numParams, numRegisters: numRegisters}
}

// Build assembles the module from every Builder whose Build has run.
// A reserved slot nobody finished is a test-author bug, not a runtime
// concern, so it panics rather than returning a partially built module.
func (m *Module) Build() *bytecode.Module {
	fns := make([]*bytecode.Function, len(m.fns))
	for i, fn := range m.fns {
		if fn == nil {
			panic("vmtest: function slot reserved by Func but never Build'd")
		}
		fns[i] = fn
	}
	return &bytecode.Module{Name: m.name, Pool: m.pool, Functions: fns}
}

// String interns s in the module's constant pool, returning the index
// OpLoadConst/OpGetProp/OpGetGlobal and friends address it by.
func (m *Module) String(s string) uint32 {
	return m.pool.Add(bytecode.Const{Kind: bytecode.ConstString, Str: s})
}

// Number interns n in the module's constant pool.
func (m *Module) Number(n float64) uint32 {
	return m.pool.Add(bytecode.Const{Kind: bytecode.ConstNumber, Number: n})
}

// BigInt interns decimal (base-10 digit string) in the module's
// constant pool as a BigInt constant.
func (m *Module) BigInt(decimal string) uint32 {
	return m.pool.Add(bytecode.Const{Kind: bytecode.ConstBigInt, Str: decimal})
}

// label is a forward- or back-reference jump target: either already
// bound to a code offset, or still waiting on a future Bind.
type label struct {
	bound bool
	pos   int
}

// Label is a jump target within one function, created with NewLabel and
// fixed to a code position with Bind. A Label may be passed to
// Jump/JumpIfTrue/JumpIfFalse before it is bound (a forward jump); the
// offset is computed when Build runs.
type Label struct{ l *label }

type patch struct {
	// immAt is the code offset of the 4-byte immediate field to
	// backpatch once target is bound.
	immAt  int
	target *label
}

// Builder assembles one function's instruction stream against its
// module's shared constant pool.
type Builder struct {
	module       *Module
	index        int
	name         string
	numParams    int
	numRegisters int
	isGenerator  bool
	isAsync      bool
	upvalueCount int

	code       []byte
	patches    []patch
	exceptions []bytecode.ExceptionEntry
}

// Index returns this function's function-table index, valid as soon as
// Func returns (before Build), for OpNewFunction/OpNewClosure targets
// including self-reference.
func (b *Builder) Index() uint32 { return uint32(b.index) }

// Generator marks the function as a generator body.
func (b *Builder) Generator() *Builder { b.isGenerator = true; return b }

// Async marks the function as an async function body.
func (b *Builder) Async() *Builder { b.isAsync = true; return b }

// Upvalues sets the function's captured-upvalue count.
func (b *Builder) Upvalues(n int) *Builder { b.upvalueCount = n; return b }

// NewLabel creates an unbound jump target for this function.
func (b *Builder) NewLabel() *Label { return &Label{l: &label{}} }

// Bind fixes l to the current end of the instruction stream (the next
// instruction emitted lands at l).
func (b *Builder) Bind(l *Label) *Builder {
	l.l.bound = true
	l.l.pos = len(b.code)
	return b
}

func (b *Builder) emit(instr bytecode.Instr) *Builder {
	b.code = bytecode.EncodeInstr(b.code, instr)
	return b
}

// emitJump appends a jump-family instruction with a placeholder
// immediate, recording a patch that Build resolves against l's final
// bound position.
func (b *Builder) emitJump(op bytecode.Op, a byte, l *Label) *Builder {
	b.code = bytecode.EncodeInstr(b.code, bytecode.Instr{Op: op, A: a})
	immAt := len(b.code) - 4
	b.patches = append(b.patches, patch{immAt: immAt, target: l.l})
	return b
}

// Jump emits an unconditional jump to l.
func (b *Builder) Jump(l *Label) *Builder { return b.emitJump(bytecode.OpJump, 0, l) }

// JumpIfTrue emits a conditional jump to l, taken when register src is
// truthy.
func (b *Builder) JumpIfTrue(src byte, l *Label) *Builder {
	return b.emitJump(bytecode.OpJumpIfTrue, src, l)
}

// JumpIfFalse emits a conditional jump to l, taken when register src is
// falsy.
func (b *Builder) JumpIfFalse(src byte, l *Label) *Builder {
	return b.emitJump(bytecode.OpJumpIfFalse, src, l)
}

// LoadConst loads the pool entry at idx (see Module.String/Number) into
// dst.
func (b *Builder) LoadConst(dst byte, idx uint32) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpLoadConst, A: dst, Imm: idx})
}

func (b *Builder) LoadUndefined(dst byte) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpLoadUndefined, A: dst})
}

func (b *Builder) LoadNull(dst byte) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpLoadNull, A: dst})
}

func (b *Builder) LoadTrue(dst byte) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpLoadTrue, A: dst})
}

func (b *Builder) LoadFalse(dst byte) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpLoadFalse, A: dst})
}

func (b *Builder) LoadHole(dst byte) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpLoadHole, A: dst})
}

// LoadSmallInt loads the literal int32 v into dst without a pool entry.
func (b *Builder) LoadSmallInt(dst byte, v int32) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpLoadSmallInt, A: dst, Imm: uint32(v)})
}

func (b *Builder) Move(dst, src byte) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpMove, A: dst, B: src})
}

func (b *Builder) binary(op bytecode.Op, dst, left, right byte) *Builder {
	return b.emit(bytecode.Instr{Op: op, A: dst, B: left, C: right})
}

func (b *Builder) Add(dst, left, right byte) *Builder { return b.binary(bytecode.OpAdd, dst, left, right) }
func (b *Builder) Sub(dst, left, right byte) *Builder { return b.binary(bytecode.OpSub, dst, left, right) }
func (b *Builder) Mul(dst, left, right byte) *Builder { return b.binary(bytecode.OpMul, dst, left, right) }
func (b *Builder) Div(dst, left, right byte) *Builder { return b.binary(bytecode.OpDiv, dst, left, right) }
func (b *Builder) Mod(dst, left, right byte) *Builder { return b.binary(bytecode.OpMod, dst, left, right) }
func (b *Builder) Exp(dst, left, right byte) *Builder { return b.binary(bytecode.OpExp, dst, left, right) }

func (b *Builder) BitAnd(dst, left, right byte) *Builder {
	return b.binary(bytecode.OpBitAnd, dst, left, right)
}
func (b *Builder) BitOr(dst, left, right byte) *Builder {
	return b.binary(bytecode.OpBitOr, dst, left, right)
}
func (b *Builder) BitXor(dst, left, right byte) *Builder {
	return b.binary(bytecode.OpBitXor, dst, left, right)
}
func (b *Builder) Shl(dst, left, right byte) *Builder { return b.binary(bytecode.OpShl, dst, left, right) }
func (b *Builder) Shr(dst, left, right byte) *Builder { return b.binary(bytecode.OpShr, dst, left, right) }
func (b *Builder) UShr(dst, left, right byte) *Builder {
	return b.binary(bytecode.OpUShr, dst, left, right)
}

func (b *Builder) Neg(dst, src byte) *Builder    { return b.emit(bytecode.Instr{Op: bytecode.OpNeg, A: dst, B: src}) }
func (b *Builder) BitNot(dst, src byte) *Builder { return b.emit(bytecode.Instr{Op: bytecode.OpBitNot, A: dst, B: src}) }
func (b *Builder) Not(dst, src byte) *Builder    { return b.emit(bytecode.Instr{Op: bytecode.OpNot, A: dst, B: src}) }
func (b *Builder) Inc(dst byte) *Builder         { return b.emit(bytecode.Instr{Op: bytecode.OpInc, A: dst}) }
func (b *Builder) Dec(dst byte) *Builder         { return b.emit(bytecode.Instr{Op: bytecode.OpDec, A: dst}) }

func (b *Builder) Eq(dst, left, right byte) *Builder { return b.binary(bytecode.OpEq, dst, left, right) }
func (b *Builder) StrictEq(dst, left, right byte) *Builder {
	return b.binary(bytecode.OpStrictEq, dst, left, right)
}
func (b *Builder) NotEq(dst, left, right byte) *Builder {
	return b.binary(bytecode.OpNotEq, dst, left, right)
}
func (b *Builder) StrictNotEq(dst, left, right byte) *Builder {
	return b.binary(bytecode.OpStrictNotEq, dst, left, right)
}
func (b *Builder) Lt(dst, left, right byte) *Builder { return b.binary(bytecode.OpLt, dst, left, right) }
func (b *Builder) Le(dst, left, right byte) *Builder { return b.binary(bytecode.OpLe, dst, left, right) }
func (b *Builder) Gt(dst, left, right byte) *Builder { return b.binary(bytecode.OpGt, dst, left, right) }
func (b *Builder) Ge(dst, left, right byte) *Builder { return b.binary(bytecode.OpGe, dst, left, right) }

// Return emits a return of register src.
func (b *Builder) Return(src byte) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpReturn, A: src})
}

// ReturnUndefined emits a bare return (implicit undefined).
func (b *Builder) ReturnUndefined() *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpReturn})
}

func (b *Builder) Throw(src byte) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpThrow, A: src})
}

// GetProp loads target[name] into dst.
func (b *Builder) GetProp(dst, target byte, name string) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpGetProp, A: dst, B: target, Imm: b.module.String(name)})
}

// SetProp assigns target[name] = src.
func (b *Builder) SetProp(target byte, name string, src byte) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpSetProp, A: target, B: src, Imm: b.module.String(name)})
}

func (b *Builder) GetElem(dst, target, key byte) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpGetElem, A: dst, B: target, C: key})
}

func (b *Builder) SetElem(target, key, src byte) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpSetElem, A: target, B: key, C: src})
}

func (b *Builder) DeleteProp(dst, target byte, name string) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpDeleteProp, A: dst, B: target, Imm: b.module.String(name)})
}

// GetGlobal loads the named global into dst.
func (b *Builder) GetGlobal(dst byte, name string) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpGetGlobal, A: dst, Imm: b.module.String(name)})
}

// SetGlobal assigns an existing global from register src.
func (b *Builder) SetGlobal(name string, src byte) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpSetGlobal, A: src, Imm: b.module.String(name)})
}

// DefineGlobal introduces a new global bound to register src.
func (b *Builder) DefineGlobal(name string, src byte) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpDefineGlobal, A: src, Imm: b.module.String(name)})
}

// NewObject allocates a plain object into dst.
func (b *Builder) NewObject(dst byte) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpNewObject, A: dst})
}

// NewArray allocates an array of the given initial length into dst.
func (b *Builder) NewArray(dst byte, length uint32) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpNewArray, A: dst, Imm: length})
}

// NewFunction instantiates the zero-upvalue function template at
// fnIndex (see Builder.Index) into dst.
func (b *Builder) NewFunction(dst byte, fnIndex uint32) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpNewFunction, A: dst, Imm: fnIndex})
}

// Call invokes the callee register with argc arguments starting at
// base, landing the result in dst.
func (b *Builder) Call(dst, callee, base byte, argc uint32) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpCall, A: dst, B: callee, C: base, Imm: argc})
}

// CallMethod invokes receiver[name](...) with argc arguments, landing
// the result in dst. The interpreter always reads arguments starting at
// register receiver+1 (there is no separate base operand), so callers
// must place them there.
func (b *Builder) CallMethod(dst, receiver byte, name string, argc uint32) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpCallMethod, A: dst, B: receiver, C: byte(argc), Imm: b.module.String(name)})
}

func (b *Builder) ToNumber(dst, src byte) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpToNumber, A: dst, B: src})
}
func (b *Builder) ToStringOp(dst, src byte) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpToString, A: dst, B: src})
}
func (b *Builder) ToBoolean(dst, src byte) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpToBoolean, A: dst, B: src})
}
func (b *Builder) TypeOf(dst, src byte) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpTypeOf, A: dst, B: src})
}
func (b *Builder) Concat(dst, left, right byte) *Builder {
	return b.binary(bytecode.OpConcat, dst, left, right)
}

// Yield emits a generator suspend: src is the yielded value, dst
// receives whatever Next/Throw resumes with.
func (b *Builder) Yield(dst, src byte) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpYield, A: dst, B: src})
}

// Await emits an async-function suspend on src, landing the settled
// value (or resuming a throw) in dst.
func (b *Builder) Await(dst, src byte) *Builder {
	return b.emit(bytecode.Instr{Op: bytecode.OpAwait, A: dst, B: src})
}

// Try adds an exception-table entry covering [start,end) with handler
// at handlerPC, all expressed as instruction-boundary byte offsets
// captured via Builder.Pos before/after emitting the protected region
// and handler. A thrown value lands in register 0 (interp.catchRegister)
// when control resumes at handlerPC.
func (b *Builder) Try(start, end, handlerPC uint32) *Builder {
	b.exceptions = append(b.exceptions, bytecode.ExceptionEntry{StartPC: start, EndPC: end, HandlerPC: handlerPC})
	return b
}

// Pos returns the current end-of-stream byte offset, usable as a Try
// boundary or as a HandlerPC once the following instruction is emitted.
func (b *Builder) Pos() uint32 { return uint32(len(b.code)) }

// Build resolves every pending label reference and installs the
// finished function into its module slot, returning the Builder (its
// Index is unaffected) so callers can chain straight into the next
// Func call.
func (b *Builder) Build() *Builder {
	for _, p := range b.patches {
		if !p.target.bound {
			panic("vmtest: jump target never Bind'd")
		}
		// The offset is relative to the instruction after the jump
		// (immAt+4), matching bytecode.Validate and interp/run.go.
		offset := int32(p.target.pos - (p.immAt + 4))
		b.code[p.immAt] = byte(offset)
		b.code[p.immAt+1] = byte(offset >> 8)
		b.code[p.immAt+2] = byte(offset >> 16)
		b.code[p.immAt+3] = byte(offset >> 24)
	}
	b.module.fns[b.index] = &bytecode.Function{
		Name:         b.name,
		NumParams:    b.numParams,
		NumRegisters: b.numRegisters,
		Code:         b.code,
		Exceptions:   b.exceptions,
		IsGenerator:  b.isGenerator,
		IsAsync:      b.isAsync,
		UpvalueCount: b.upvalueCount,
	}
	return b
}
