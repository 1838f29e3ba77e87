package reflow

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Runtime owns a single reactive graph. It holds the observer stack used for
// dependency tracking, the batch state, the active lifecycle scope, and the
// handle counter that gives every signal and observer a stable identity.
//
// Runtimes are fully independent: signals and observers created on one
// Runtime never interact with another. This allows one graph per request,
// per session, or per test without cross-contamination.
//
// All graph mutation on a Runtime is serialized through a single
// goroutine-reentrant lock. Effects run on the same call stack as the write
// that triggered them, so the lock must tolerate re-acquisition by the
// holding goroutine.
type Runtime struct {
	lock graphLock

	// stack is the stack of currently running observers.
	// The top element is what signal reads subscribe.
	// A nil entry suppresses tracking (see Untracked).
	stack []observer

	// batchDepth tracks nested Batch() calls.
	// When > 0, notifications queue effects instead of running them.
	batchDepth int

	// pending accumulates effects to run when the outermost batch exits,
	// in first-insertion order. pendingSet deduplicates by handle.
	pending    []*Effect
	pendingSet map[uint64]struct{}

	// scope is the active lifecycle scope, nil at top level.
	scope *Scope

	// handleCounter is the source of unique handles for signals and
	// observers on this runtime. Handles are monotonically increasing and
	// never reused, so ascending-handle order is creation order.
	handleCounter uint64

	// Run counters, readable without the graph lock via Stats().
	signalWrites   atomic.Uint64
	effectRuns     atomic.Uint64
	memoRecomputes atomic.Uint64
	batchFlushes   atomic.Uint64
}

// New creates an empty Runtime with no signals, observers, or active scope.
func New() *Runtime {
	return &Runtime{
		pendingSet: make(map[uint64]struct{}),
	}
}

// Stats is a snapshot of a Runtime's cumulative counters.
type Stats struct {
	SignalWrites   uint64
	EffectRuns     uint64
	MemoRecomputes uint64
	BatchFlushes   uint64
}

// Stats returns the runtime's cumulative counters. Safe to call from any
// goroutine without blocking graph mutation; used by the metrics exporter.
func (rt *Runtime) Stats() Stats {
	return Stats{
		SignalWrites:   rt.signalWrites.Load(),
		EffectRuns:     rt.effectRuns.Load(),
		MemoRecomputes: rt.memoRecomputes.Load(),
		BatchFlushes:   rt.batchFlushes.Load(),
	}
}

// newHandle returns the next unique handle. Caller must hold the graph lock.
func (rt *Runtime) newHandle() uint64 {
	rt.handleCounter++
	return rt.handleCounter
}

// currentObserver returns the observer on top of the tracking stack, or nil
// when nothing is tracking (bare reads are legal and subscribe nothing).
func (rt *Runtime) currentObserver() observer {
	if len(rt.stack) == 0 {
		return nil
	}
	return rt.stack[len(rt.stack)-1]
}

// pushObserver and popObserver implement the strict stack discipline around
// an observer's tracked run. Pop must run even when the observer's function
// panics, so runs pair them with defer.
func (rt *Runtime) pushObserver(o observer) {
	rt.stack = append(rt.stack, o)
}

func (rt *Runtime) popObserver() {
	rt.stack = rt.stack[:len(rt.stack)-1]
}

// readSource registers the currently running observer, if any, as a
// subscriber of n and records n in that observer's dependency set.
// No side effect when nothing is tracking.
func (rt *Runtime) readSource(n *node) {
	o := rt.currentObserver()
	if o == nil {
		return
	}
	n.subscribe(o)
	o.addDep(n)
}

// Untracked runs fn with dependency tracking suppressed: signal and memo
// reads inside fn do not subscribe the enclosing observer.
//
// For a single read, Peek on the signal or memo is clearer.
func Untracked(rt *Runtime, fn func()) {
	rt.lock.acquire()
	defer rt.lock.release()

	rt.pushObserver(nil)
	defer rt.popObserver()
	fn()
}

// graphLock is a goroutine-reentrant mutex guarding an entire graph.
// Sub-graph locking is deliberately absent: subscriber relationships are
// dynamic and cross-cutting, so the graph is one unit of mutual exclusion.
type graphLock struct {
	mu    sync.Mutex
	owner atomic.Uint64 // goroutine ID of the holder, 0 when unheld
	depth int
}

func (l *graphLock) acquire() {
	gid := goroutineID()
	if l.owner.Load() == gid {
		l.depth++
		return
	}
	l.mu.Lock()
	l.owner.Store(gid)
	l.depth = 1
}

func (l *graphLock) release() {
	l.depth--
	if l.depth == 0 {
		l.owner.Store(0)
		l.mu.Unlock()
	}
}

// goroutineID returns a unique identifier for the current goroutine, parsed
// from the runtime stack header ("goroutine <id> ...").
// Implementation detail; not exposed.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}
