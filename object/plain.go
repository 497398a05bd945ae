package object

import (
	"github.com/jsvm/jsvm/gc"
	"github.com/jsvm/jsvm/shape"
)

// PlainObject is an ordinary object: `{}`, object literals, and
// Object.create results with no exotic behavior.
type PlainObject struct {
	Object
}

// NewPlainObject creates a plain object on the given shape.
func NewPlainObject(s *shape.Shape) *PlainObject {
	return &PlainObject{Object: NewObject(s)}
}

func (p *PlainObject) asObject() *Object { return &p.Object }

func (p *PlainObject) Trace(visit func(gc.Ref)) { traceObjectSlots(&p.Object, visit) }
