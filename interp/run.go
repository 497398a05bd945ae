package interp

import (
	"github.com/jsvm/jsvm/bytecode"
	"github.com/jsvm/jsvm/errors"
	"github.com/jsvm/jsvm/gc"
	"github.com/jsvm/jsvm/object"
	"github.com/jsvm/jsvm/value"
)

// catchRegister is the frame register that receives a thrown value when
// control resumes at a catch/finally handler. A compiler emitting
// bytecode must reserve this register across any protected region.
const catchRegister = 0

// safepointInterval bounds how many instructions run between interrupt
// checks, so a hot loop without calls or allocations still polls the
// host's interrupt flag promptly.
const safepointInterval = 4096

// run is the register-machine dispatch loop: it executes frame's
// function body to completion (a Return, an uncaught Throw that escapes
// every handler in this frame, an OpYield/OpAwait suspension handled
// specially below, or a host interruption) and returns the function's
// result. Every failure path returns through here rather than
// panicking, so callTemplate's deferred frame pop always runs.
func (it *Interpreter) run(prog *Program, frame *Frame) (value.Value, *errors.Error) {
	fn := frame.fn
	code := fn.Code
	sinceCheck := 0

	for {
		if frame.pc >= len(code) {
			return value.Undefined(), nil
		}

		sinceCheck++
		if sinceCheck >= safepointInterval {
			sinceCheck = 0
			if it.interrupt.Load() {
				return value.Undefined(), errors.Interrupted()
			}
			if err := it.Model.Heap.MaybeCollect(); err != nil {
				return value.Undefined(), outOfMemory(err)
			}
		}

		pc := frame.pc
		instr, next, decErr := bytecode.DecodeInstr(code, pc)
		if decErr != nil {
			return value.Undefined(), errors.InvalidBytecode(nil, "%s", decErr.Error())
		}

		result, jumped, done, retVal, err := it.step(prog, frame, instr, pc, next)
		if err != nil {
			if handled, resumePC := it.handleThrow(frame, pc, err); handled {
				frame.pc = resumePC
				sinceCheck = 0
				continue
			}
			return value.Undefined(), err
		}
		if done {
			return retVal, nil
		}
		if jumped {
			continue
		}
		if result.dst != noDst {
			frame.set(result.dst, result.value)
		}
		frame.pc = next
	}
}

// handleThrow resolves an in-flight error against frame.fn's exception
// table: ranges are resolved by pc, not a runtime-built catch-entry
// stack, and the narrowest range covering pc wins (findHandler,
// exceptions.go). Internal invariant violations and host interruption
// are never caught by script.
func (it *Interpreter) handleThrow(frame *Frame, pc int, err *errors.Error) (handled bool, resumePC int) {
	if !err.Recoverable() {
		return false, 0
	}
	entry, ok := findHandler(frame.fn, pc)
	if !ok {
		return false, 0
	}
	frame.set(catchRegister, it.throwableValue(err))
	return true, int(entry.HandlerPC)
}

// noDst marks a step result that writes no destination register (control
// flow, stores, voids).
const noDst = 0xFF

type stepResult struct {
	dst   byte
	value value.Value
}

// step executes one instruction. It reports either a destination
// register to write (result), that control already jumped (jumped, via
// frame.pc already updated), that the frame is returning (done, retVal),
// or an error to unwind with.
func (it *Interpreter) step(prog *Program, frame *Frame, instr bytecode.Instr, pc, next int) (result stepResult, jumped bool, done bool, retVal value.Value, err *errors.Error) {
	noResult := stepResult{dst: noDst}

	switch instr.Op {
	case bytecode.OpNop, bytecode.OpPushTry, bytecode.OpPopTry:
		return noResult, false, false, value.Value{}, nil

	case bytecode.OpLoadConst:
		v, cErr := it.loadConst(prog, instr.Imm)
		if cErr != nil {
			return noResult, false, false, value.Value{}, cErr
		}
		return stepResult{instr.A, v}, false, false, value.Value{}, nil
	case bytecode.OpLoadUndefined:
		return stepResult{instr.A, value.Undefined()}, false, false, value.Value{}, nil
	case bytecode.OpLoadNull:
		return stepResult{instr.A, value.Null()}, false, false, value.Value{}, nil
	case bytecode.OpLoadTrue:
		return stepResult{instr.A, value.FromBool(true)}, false, false, value.Value{}, nil
	case bytecode.OpLoadFalse:
		return stepResult{instr.A, value.FromBool(false)}, false, false, value.Value{}, nil
	case bytecode.OpLoadHole:
		return stepResult{instr.A, value.Hole()}, false, false, value.Value{}, nil
	case bytecode.OpLoadSmallInt:
		return stepResult{instr.A, value.FromInt32(instr.ImmS32())}, false, false, value.Value{}, nil

	case bytecode.OpMove:
		return stepResult{instr.A, frame.get(instr.B)}, false, false, value.Value{}, nil

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod, bytecode.OpExp:
		v, aErr := it.execArith(prog, frame, instr, pc)
		if aErr != nil {
			return noResult, false, false, value.Value{}, aErr
		}
		return stepResult{instr.A, v}, false, false, value.Value{}, nil
	case bytecode.OpNeg:
		v, nErr := it.execNeg(instr, frame)
		if nErr != nil {
			return noResult, false, false, value.Value{}, nErr
		}
		return stepResult{instr.A, v}, false, false, value.Value{}, nil
	case bytecode.OpInc:
		return stepResult{instr.A, it.numericAdd1(frame.get(instr.A), 1)}, false, false, value.Value{}, nil
	case bytecode.OpDec:
		return stepResult{instr.A, it.numericAdd1(frame.get(instr.A), -1)}, false, false, value.Value{}, nil

	case bytecode.OpBitAnd, bytecode.OpBitOr, bytecode.OpBitXor, bytecode.OpBitNot,
		bytecode.OpShl, bytecode.OpShr, bytecode.OpUShr:
		return stepResult{instr.A, it.execBitwise(instr, frame)}, false, false, value.Value{}, nil
	case bytecode.OpNot:
		return stepResult{instr.A, value.FromBool(!it.toBoolean(frame.get(instr.B)))}, false, false, value.Value{}, nil

	case bytecode.OpEq, bytecode.OpNotEq, bytecode.OpStrictEq, bytecode.OpStrictNotEq,
		bytecode.OpLt, bytecode.OpLe, bytecode.OpGt, bytecode.OpGe:
		v, cErr := it.execCompare(instr, frame)
		if cErr != nil {
			return noResult, false, false, value.Value{}, cErr
		}
		return stepResult{instr.A, v}, false, false, value.Value{}, nil

	case bytecode.OpJump:
		// Offsets are relative to the instruction after the jump itself
		// (next, not pc), matching Validate's boundary check.
		frame.pc = next + int(instr.ImmS32())
		return noResult, true, false, value.Value{}, nil
	case bytecode.OpJumpIfTrue:
		if it.toBoolean(frame.get(instr.A)) {
			frame.pc = next + int(instr.ImmS32())
		} else {
			frame.pc = next
		}
		return noResult, true, false, value.Value{}, nil
	case bytecode.OpJumpIfFalse:
		if !it.toBoolean(frame.get(instr.A)) {
			frame.pc = next + int(instr.ImmS32())
		} else {
			frame.pc = next
		}
		return noResult, true, false, value.Value{}, nil

	case bytecode.OpCall:
		v, cErr := it.execCall(frame, instr)
		if cErr != nil {
			return noResult, false, false, value.Value{}, cErr
		}
		return stepResult{instr.A, v}, false, false, value.Value{}, nil
	case bytecode.OpCallMethod:
		v, cErr := it.execCallMethod(prog, frame, instr)
		if cErr != nil {
			return noResult, false, false, value.Value{}, cErr
		}
		return stepResult{instr.A, v}, false, false, value.Value{}, nil
	case bytecode.OpReturn:
		return noResult, false, true, frame.get(instr.A), nil
	case bytecode.OpThrow:
		return noResult, false, false, value.Value{}, errors.ScriptThrow(frame.get(instr.A))

	case bytecode.OpGetProp:
		v, gErr := it.execGetProp(prog, frame, instr, pc)
		if gErr != nil {
			return noResult, false, false, value.Value{}, gErr
		}
		return stepResult{instr.A, v}, false, false, value.Value{}, nil
	case bytecode.OpSetProp:
		if sErr := it.execSetProp(prog, frame, instr); sErr != nil {
			return noResult, false, false, value.Value{}, sErr
		}
		return noResult, false, false, value.Value{}, nil
	case bytecode.OpGetElem:
		v, gErr := it.execGetElem(frame, instr)
		if gErr != nil {
			return noResult, false, false, value.Value{}, gErr
		}
		return stepResult{instr.A, v}, false, false, value.Value{}, nil
	case bytecode.OpSetElem:
		if sErr := it.execSetElem(frame, instr); sErr != nil {
			return noResult, false, false, value.Value{}, sErr
		}
		return noResult, false, false, value.Value{}, nil
	case bytecode.OpDeleteProp:
		v, dErr := it.execDeleteProp(prog, frame, instr)
		if dErr != nil {
			return noResult, false, false, value.Value{}, dErr
		}
		return stepResult{instr.A, v}, false, false, value.Value{}, nil
	case bytecode.OpInOp:
		v, iErr := it.execIn(frame, instr)
		if iErr != nil {
			return noResult, false, false, value.Value{}, iErr
		}
		return stepResult{instr.A, v}, false, false, value.Value{}, nil
	case bytecode.OpInstanceOf:
		v, iErr := it.execInstanceOf(frame.get(instr.B), frame.get(instr.C))
		if iErr != nil {
			return noResult, false, false, value.Value{}, iErr
		}
		return stepResult{instr.A, v}, false, false, value.Value{}, nil

	case bytecode.OpNewObject:
		ref, aErr := it.Model.Heap.Alloc(gc.KindPlainObject, object.NewPlainObject(it.Intrinsics.ObjectShape), false)
		if aErr != nil {
			return noResult, false, false, value.Value{}, outOfMemory(aErr)
		}
		return stepResult{instr.A, value.FromHeapObject(uint32(ref))}, false, false, value.Value{}, nil
	case bytecode.OpNewArray:
		arr := object.NewArray(it.Intrinsics.ArrayShape)
		if instr.Imm > 0 {
			arr.SetLength(instr.Imm)
		}
		ref, aErr := it.Model.Heap.Alloc(gc.KindArray, arr, false)
		if aErr != nil {
			return noResult, false, false, value.Value{}, outOfMemory(aErr)
		}
		return stepResult{instr.A, value.FromHeapObject(uint32(ref))}, false, false, value.Value{}, nil
	case bytecode.OpNewFunction:
		v, nErr := it.execNewFunction(prog, instr)
		if nErr != nil {
			return noResult, false, false, value.Value{}, nErr
		}
		return stepResult{instr.A, v}, false, false, value.Value{}, nil
	case bytecode.OpNewClosure:
		v, nErr := it.execNewClosure(prog, frame, instr)
		if nErr != nil {
			return noResult, false, false, value.Value{}, nErr
		}
		return stepResult{instr.A, v}, false, false, value.Value{}, nil
	case bytecode.OpGetUpvalue:
		v, uErr := it.getUpvalue(frame, instr.Imm)
		if uErr != nil {
			return noResult, false, false, value.Value{}, uErr
		}
		return stepResult{instr.A, v}, false, false, value.Value{}, nil
	case bytecode.OpSetUpvalue:
		if uErr := it.setUpvalue(frame, instr.Imm, frame.get(instr.A)); uErr != nil {
			return noResult, false, false, value.Value{}, uErr
		}
		return noResult, false, false, value.Value{}, nil

	case bytecode.OpGetGlobal:
		v, gErr := it.execGetGlobal(prog, instr)
		if gErr != nil {
			return noResult, false, false, value.Value{}, gErr
		}
		return stepResult{instr.A, v}, false, false, value.Value{}, nil
	case bytecode.OpSetGlobal:
		if gErr := it.execSetGlobal(prog, frame, instr); gErr != nil {
			return noResult, false, false, value.Value{}, gErr
		}
		return noResult, false, false, value.Value{}, nil
	case bytecode.OpDefineGlobal:
		if gErr := it.execDefineGlobal(prog, frame, instr); gErr != nil {
			return noResult, false, false, value.Value{}, gErr
		}
		return noResult, false, false, value.Value{}, nil

	case bytecode.OpToNumber:
		return stepResult{instr.A, value.FromFloat64(it.toNumber(frame.get(instr.B)))}, false, false, value.Value{}, nil
	case bytecode.OpToString:
		v, sErr := it.toStringValue(frame.get(instr.B))
		if sErr != nil {
			return noResult, false, false, value.Value{}, sErr
		}
		return stepResult{instr.A, v}, false, false, value.Value{}, nil
	case bytecode.OpToBoolean:
		return stepResult{instr.A, value.FromBool(it.toBoolean(frame.get(instr.B)))}, false, false, value.Value{}, nil
	case bytecode.OpTypeOf:
		v, tErr := it.typeOf(frame.get(instr.B))
		if tErr != nil {
			return noResult, false, false, value.Value{}, tErr
		}
		return stepResult{instr.A, v}, false, false, value.Value{}, nil
	case bytecode.OpConcat:
		v, cErr := it.concat(frame.get(instr.B), frame.get(instr.C))
		if cErr != nil {
			return noResult, false, false, value.Value{}, cErr
		}
		return stepResult{instr.A, v}, false, false, value.Value{}, nil

	case bytecode.OpGetIterator:
		v, iErr := it.getIterator(frame.get(instr.B))
		if iErr != nil {
			return noResult, false, false, value.Value{}, iErr
		}
		return stepResult{instr.A, v}, false, false, value.Value{}, nil
	case bytecode.OpIteratorNext:
		v, iterDone, iErr := it.iteratorNext(frame.get(instr.B))
		if iErr != nil {
			return noResult, false, false, value.Value{}, iErr
		}
		return stepResult{instr.A, it.iteratorResult(v, iterDone)}, false, false, value.Value{}, nil

	case bytecode.OpYield:
		if frame.gen == nil {
			return noResult, false, false, value.Value{}, errors.Internal("Yield executed outside a generator frame")
		}
		v, yErr := frame.gen.yield(frame.get(instr.B))
		if yErr != nil {
			return noResult, false, false, value.Value{}, yErr
		}
		return stepResult{instr.A, v}, false, false, value.Value{}, nil
	case bytecode.OpAwait:
		if frame.gen == nil {
			return noResult, false, false, value.Value{}, errors.Internal("Await executed outside a generator frame")
		}
		v, aErr := frame.gen.yield(frame.get(instr.B))
		if aErr != nil {
			return noResult, false, false, value.Value{}, aErr
		}
		return stepResult{instr.A, v}, false, false, value.Value{}, nil

	case bytecode.OpNewPromise:
		promise := object.NewPromise(it.Intrinsics.PromiseShape)
		ref, aErr := it.Model.Heap.Alloc(gc.KindPromise, promise, false)
		if aErr != nil {
			return noResult, false, false, value.Value{}, outOfMemory(aErr)
		}
		return stepResult{instr.A, value.FromHeapObject(uint32(ref))}, false, false, value.Value{}, nil
	case bytecode.OpResolvePromise:
		if rErr := it.execSettlePromise(frame, instr, true); rErr != nil {
			return noResult, false, false, value.Value{}, rErr
		}
		return noResult, false, false, value.Value{}, nil
	case bytecode.OpRejectPromise:
		if rErr := it.execSettlePromise(frame, instr, false); rErr != nil {
			return noResult, false, false, value.Value{}, rErr
		}
		return noResult, false, false, value.Value{}, nil

	default:
		return noResult, false, false, value.Value{}, errors.InvalidBytecode(nil, "unimplemented opcode %s at pc %d", instr.Op, pc)
	}
}

// execSettlePromise implements OpResolvePromise/OpRejectPromise: A holds
// the Promise, B the settlement value. Reactions already attached via
// .then-style wiring are scheduled as jobs.
func (it *Interpreter) execSettlePromise(frame *Frame, instr bytecode.Instr, fulfilled bool) *errors.Error {
	promiseVal := frame.get(instr.A)
	result := frame.get(instr.B)
	if !promiseVal.IsHeapObject() {
		return errors.Internal("promise settlement target is not an object")
	}
	ref := gc.Ref(promiseVal.HeapIndex())
	obj, ok := it.Model.Heap.Get(ref)
	if !ok {
		return errors.Internal("dangling promise reference")
	}
	p, ok := obj.(*object.Promise)
	if !ok {
		return errors.Internal("promise settlement target is not a Promise")
	}
	reactions := p.Settle(fulfilled, result)
	it.scheduleReactions(reactions, result)
	return nil
}
