package object

import (
	"github.com/jsvm/jsvm/gc"
	"github.com/jsvm/jsvm/shape"
	"github.com/jsvm/jsvm/value"
)

// PromiseState is one of the three states defined by .
type PromiseState uint8

const (
	PromisePending PromiseState = iota
	PromiseFulfilled
	PromiseRejected
)

// Reaction is one entry of a Promise's fulfill or reject reaction list:
// the handler to invoke (may be the zero Value, meaning "no handler,
// propagate") and the derived promise whose resolve/reject it feeds
//.
type Reaction struct {
	Handler      value.Value
	DerivedOk     value.Value // resolving function of the derived promise
	DerivedErr    value.Value // rejecting function of the derived promise
}

// Promise is the object backing a Promise value: state, settled result,
// and pending reaction lists.
type Promise struct {
	Object
	State             PromiseState
	Result            value.Value
	FulfillReactions  []Reaction
	RejectReactions   []Reaction
	AlreadyResolved   bool // latches at the first resolve/reject call
	Handled           bool // set once a reaction is attached, for unhandled-rejection tracking
}

// NewPromise creates a pending promise.
func NewPromise(s *shape.Shape) *Promise {
	return &Promise{Object: NewObject(s), State: PromisePending}
}

func (p *Promise) asObject() *Object { return &p.Object }

func (p *Promise) Trace(visit func(gc.Ref)) {
	traceObjectSlots(&p.Object, visit)
	if p.Result.IsHeapRef() {
		visit(gc.Ref(p.Result.HeapIndex()))
	}
	traceReactions(p.FulfillReactions, visit)
	traceReactions(p.RejectReactions, visit)
}

func traceReactions(rs []Reaction, visit func(gc.Ref)) {
	for _, r := range rs {
		for _, v := range [...]value.Value{r.Handler, r.DerivedOk, r.DerivedErr} {
			if v.IsHeapRef() {
				visit(gc.Ref(v.HeapIndex()))
			}
		}
	}
}

// Settle transitions a pending promise to fulfilled or rejected,
// returning the reaction list to schedule as jobs, or nil if the promise
// was already settled (resolve/reject after settlement is a silent
// no-op).
func (p *Promise) Settle(fulfilled bool, result value.Value) []Reaction {
	if p.AlreadyResolved {
		return nil
	}
	p.AlreadyResolved = true
	p.Result = result
	if fulfilled {
		p.State = PromiseFulfilled
		r := p.FulfillReactions
		p.FulfillReactions, p.RejectReactions = nil, nil
		return r
	}
	p.State = PromiseRejected
	r := p.RejectReactions
	p.FulfillReactions, p.RejectReactions = nil, nil
	return r
}

// AddReaction attaches a fulfill/reject reaction pair. If the promise is
// already settled, the caller is responsible for immediately scheduling
// the appropriate side as a job instead of calling this.
func (p *Promise) AddReaction(onFulfill, onReject Reaction) {
	p.Handled = true
	p.FulfillReactions = append(p.FulfillReactions, onFulfill)
	p.RejectReactions = append(p.RejectReactions, onReject)
}
