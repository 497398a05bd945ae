package object

import (
	"github.com/jsvm/jsvm/gc"
	"github.com/jsvm/jsvm/shape"
)

// ErrorObject backs a JS Error (and its RangeError/TypeError/SyntaxError
// etc. subclasses): an ordinary object with a conventional name/message
// pair and a captured stack trace string.
type ErrorObject struct {
	Object
	Stack []string // formatted frame descriptions, innermost first
}

// NewErrorObject creates an error object on the given shape. name and
// message are expected to already be installed as own properties by the
// caller (so that user code overriding Error.prototype.toString still
// sees ordinary property semantics), mirroring how V8-family engines
// treat `.name`/`.message` as plain data properties, not special slots.
func NewErrorObject(s *shape.Shape, stack []string) *ErrorObject {
	return &ErrorObject{Object: NewObject(s), Stack: stack}
}

func (e *ErrorObject) asObject() *Object { return &e.Object }

func (e *ErrorObject) Trace(visit func(gc.Ref)) { traceObjectSlots(&e.Object, visit) }
