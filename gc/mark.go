package gc

import "go.uber.org/zap"

// Collect runs one full stop-the-world mark-sweep cycle: tri-color
// marking from every root using an explicit worklist (avoiding
// recursion depth problems on deep object graphs, the same reason
// nested WIT types elsewhere in this codebase are walked with an
// explicit stack instead of recursive descent), then a single sweep that
// frees unmarked slots (which is also what clears a WeakRef whose target
// was not strongly reachable) and queues finalizers as jobs for
// DrainFinalizers rather than running them.
func (h *Heap) Collect() error {
	h.mu.Lock()
	roots := h.handleRootsLocked()
	rootsFn := h.rootsFn
	h.mu.Unlock()

	if rootsFn != nil {
		roots = append(roots, rootsFn()...)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.cycles++

	// Tri-color mark: everything starts white (marked=false, reset
	// below); roots go onto the worklist directly and are colored gray
	// by virtue of being on it, then black once their Trace has run.
	for i := range h.slots {
		h.slots[i].marked = false
	}

	worklist := make([]Ref, 0, len(roots))
	for _, r := range roots {
		if r != NilRef && int(r) < len(h.slots) && h.slots[r].alive {
			worklist = append(worklist, r)
		}
	}

	for len(worklist) > 0 {
		ref := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		if int(ref) >= len(h.slots) || !h.slots[ref].alive || h.slots[ref].marked {
			continue
		}
		h.slots[ref].marked = true

		obj := h.slots[ref].obj
		if obj == nil {
			continue
		}
		obj.Trace(func(child Ref) {
			if child != NilRef && int(child) < len(h.slots) && h.slots[child].alive && !h.slots[child].marked {
				worklist = append(worklist, child)
			}
		})
	}

	// Sweep: every unmarked slot is freed, including one that was only
	// reachable through WeakMap/WeakSet/WeakRef edges (which Trace never
	// reports, by construction); its finalizer, if any, is queued as a
	// job rather than run inline.
	var freed int
	for i := 1; i < len(h.slots); i++ {
		s := &h.slots[i]
		if !s.alive || s.marked {
			continue
		}
		if f, ok := s.obj.(Finalizer); ok {
			obj := f
			h.finalizeJobs = append(h.finalizeJobs, obj.Finalize)
		}
		s.alive = false
		s.obj = nil
		h.freeList = append(h.freeList, Ref(i))
		freed++
	}

	h.log.Debug("gc cycle",
		zap.Int("cycle", h.cycles),
		zap.Int("freed", freed),
		zap.Int("live", h.liveCountLocked()),
		zap.Int("roots", len(roots)),
	)

	return nil
}

// DrainFinalizers removes and returns pending FinalizationRegistry/
// ArrayBuffer-destructor callbacks produced by the last Collect, for the
// job queue to run as ordinary jobs").
func (h *Heap) DrainFinalizers() []func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.finalizeJobs
	h.finalizeJobs = nil
	return out
}
