package job

import (
	"sync"

	"go.uber.org/zap"

	"github.com/jsvm/jsvm/errors"
	"github.com/jsvm/jsvm/internal/vmlog"
)

// Job is one deferred callback: a Promise reaction, a queueMicrotask
// callback, or a FinalizationRegistry cleanup. A Job carries no roots of
// its own: the gc package does not know how to trace a Go closure's
// captures, so the enqueuer is responsible for keeping the heap
// references Run needs live between enqueue and run (e.g. via an open
// gc.HandleScope).
type Job struct {
	Run  func() *errors.Error
	Name string // diagnostic label, e.g. "promise.then" or "queueMicrotask"
}

// EventType distinguishes the two notifications an Observer receives.
type EventType int

const (
	EventEnqueued EventType = iota
	EventRan
)

// Event is delivered to subscribed Observers, grounded on the
// resource.Event shape.
type Event struct {
	Type EventType
	Name string
	Err  *errors.Error // non-nil only for EventRan when Run returned an error
}

// Observer receives queue lifecycle notifications, e.g. for diagnostics
// or unhandled-rejection tracking built on top of this package.
type Observer interface {
	OnJobEvent(Event)
}

// Queue is the FIFO job queue. Jobs enqueued by a running
// job's Run append to the same queue and are drained in the same Drain
// call, preserving the required ordering guarantee: jobs enqueued
// during a microtask drain append to the same queue and run during
// that same drain.
type Queue struct {
	mu        sync.Mutex
	pending   []Job
	observers []Observer
	log       *zap.Logger
}

// New creates an empty job queue.
func New() *Queue {
	return &Queue{log: vmlog.L()}
}

// Subscribe registers o for enqueue/run notifications.
func (q *Queue) Subscribe(o Observer) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.observers = append(q.observers, o)
}

func (q *Queue) notify(e Event) {
	for _, o := range q.observers {
		o.OnJobEvent(e)
	}
}

// Enqueue appends j to the end of the queue.
func (q *Queue) Enqueue(j Job) {
	q.mu.Lock()
	q.pending = append(q.pending, j)
	q.mu.Unlock()
	q.log.Debug("job enqueued", zap.String("name", j.Name))
	q.notify(Event{Type: EventEnqueued, Name: j.Name})
}

// Len reports the number of jobs not yet run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Drain runs every pending job in FIFO order, including jobs enqueued by
// jobs that ran earlier in the same Drain call, until the queue is
// empty. The first job to return an
// error stops the drain and the error is returned to the caller; every
// job already run before that point has had its effects applied. A
// realistic embedder reports such an error as an unhandled-rejection-
// style diagnostic rather than treating it as fatal; that policy lives
// in the host package, not here.
func (q *Queue) Drain() *errors.Error {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return nil
		}
		j := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		err := j.Run()
		q.log.Debug("job ran", zap.String("name", j.Name), zap.Bool("errored", err != nil))
		q.notify(Event{Type: EventRan, Name: j.Name, Err: err})
		if err != nil {
			return err
		}
	}
}
