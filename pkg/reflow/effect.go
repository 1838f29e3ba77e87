package reflow

// Effect is an eager side-effecting observer. It runs once at creation and
// re-runs synchronously whenever any signal or memo it read during its most
// recent run changes.
//
// Each run fully re-establishes the dependency set: sources not re-read this
// run stop notifying the effect. This makes conditionally-read dependencies
// correct without any manual subscription management.
type Effect struct {
	rt *Runtime
	h  uint64

	// fn is the effect body. Its optional Cleanup runs before the next
	// run and on disposal.
	fn      func() Cleanup
	cleanup Cleanup

	// deps are the sources read during the most recent run, keyed by
	// source handle.
	deps map[uint64]*node

	disposed bool
}

// NewEffect creates an effect on rt and immediately performs its first
// tracked run, establishing the initial dependency set. A panic in the first
// run propagates to the caller.
//
// If a Scope is active on rt, the effect is owned by it and disposed with it.
//
// Example:
//
//	reflow.NewEffect(rt, func() reflow.Cleanup {
//	    fmt.Println("count is", count.Get())
//	    return nil
//	})
func NewEffect(rt *Runtime, fn func() Cleanup) *Effect {
	rt.lock.acquire()
	defer rt.lock.release()

	e := &Effect{
		rt:   rt,
		h:    rt.newHandle(),
		fn:   fn,
		deps: make(map[uint64]*node),
	}
	if rt.scope != nil {
		rt.scope.adopt(e)
	}
	e.run()
	return e
}

// Dispose permanently stops the effect: its cleanup runs, it is removed from
// every subscriber set, and future notifications skip it. Idempotent.
func (e *Effect) Dispose() {
	e.rt.lock.acquire()
	defer e.rt.lock.release()

	if e.disposed {
		return
	}
	e.disposed = true
	e.runCleanup()
	e.clearDeps()
}

// IsDisposed reports whether Dispose has been called.
func (e *Effect) IsDisposed() bool {
	e.rt.lock.acquire()
	defer e.rt.lock.release()
	return e.disposed
}

// ID returns the effect's stable handle on its runtime.
func (e *Effect) ID() uint64 {
	return e.h
}

// run performs one tracked run with full re-subscription.
// Caller must hold the graph lock.
func (e *Effect) run() {
	if e.disposed {
		return
	}
	e.runCleanup()
	e.clearDeps()

	e.rt.pushObserver(e)
	defer e.rt.popObserver()

	e.rt.effectRuns.Add(1)
	e.cleanup = e.fn()
}

func (e *Effect) runCleanup() {
	if e.cleanup == nil {
		return
	}
	c := e.cleanup
	e.cleanup = nil
	c()
}

// clearDeps removes the effect from every source it is subscribed to.
// Removal is O(1) per edge by handle.
func (e *Effect) clearDeps() {
	for _, n := range e.deps {
		n.unsubscribe(e.h)
	}
	clear(e.deps)
}

func (e *Effect) handle() uint64   { return e.h }
func (e *Effect) isDisposed() bool { return e.disposed }

func (e *Effect) addDep(n *node) {
	e.deps[n.h] = n
}
