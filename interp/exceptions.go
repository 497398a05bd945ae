package interp

import (
	"github.com/jsvm/jsvm/bytecode"
	"github.com/jsvm/jsvm/errors"
	"github.com/jsvm/jsvm/gc"
	"github.com/jsvm/jsvm/object"
	"github.com/jsvm/jsvm/shape"
	"github.com/jsvm/jsvm/value"
)

// findHandler returns the narrowest exception-table entry covering pc.
// PushTry/PopTry delimit protected ranges at compile time, but dispatch
// resolves a throw by scanning the function's table rather than walking
// a runtime handler stack.
func findHandler(fn *bytecode.Function, pc int) (bytecode.ExceptionEntry, bool) {
	best := bytecode.ExceptionEntry{}
	found := false
	bestWidth := ^uint32(0)
	for _, e := range fn.Exceptions {
		if uint32(pc) < e.StartPC || uint32(pc) >= e.EndPC {
			continue
		}
		width := e.EndPC - e.StartPC
		if !found || width < bestWidth {
			best, bestWidth, found = e, width, true
		}
	}
	return best, found
}

// throwableValue extracts (or synthesizes) the JS-visible value a thrown
// *errors.Error should deliver to a catch handler: a ScriptThrow carries
// the original thrown Value verbatim; every other fault is surfaced as a
// shared Error-like object. There is no per-subtype prototype table
// (TypeError.prototype, RangeError.prototype, ...) yet, so every
// VM-raised fault shares Intrinsics.ErrorShape with `name` set to the
// subtype's conventional name; `instanceof Error` works, `instanceof
// TypeError` does not (see DESIGN.md).
func (it *Interpreter) throwableValue(err *errors.Error) value.Value {
	if err.Kind == errors.KindScriptThrow {
		if v, ok := err.Value.(value.Value); ok {
			return v
		}
	}
	return it.makeErrorObject(err.JSErrorName(), err.Detail)
}

func (it *Interpreter) makeErrorObject(name, message string) value.Value {
	errObj := object.NewErrorObject(it.Intrinsics.ErrorShape, nil)
	ref, allocErr := it.Model.Heap.Alloc(gc.KindError, errObj, false)
	if allocErr != nil {
		// Out of memory while building a diagnostic object: fall back to the
		// message alone rather than compounding the failure.
		return value.Undefined()
	}
	ev := value.FromHeapObject(uint32(ref))
	nameVal, nameErr := it.allocString(name)
	if nameErr == nil {
		object.Set(it.Model, ref, shape.StringKey("name"), nameVal, ev, it)
	}
	msgVal, msgErr := it.allocString(message)
	if msgErr == nil {
		object.Set(it.Model, ref, shape.StringKey("message"), msgVal, ev, it)
	}
	return ev
}
