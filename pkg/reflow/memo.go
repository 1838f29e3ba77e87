package reflow

// Memo is a lazy cached derived value. A dependency write only marks the
// memo dirty; recomputation happens strictly on the next read. Between
// dependency writes, consecutive reads hit the cache.
//
// A memo is simultaneously a source: reading it inside a tracked run
// subscribes the running observer to the memo exactly as a signal read
// would, so chains of derived values compose.
type Memo[T any] struct {
	node node

	// compute derives the memo's value. It runs tracked, with full
	// re-subscription each run.
	compute func() T

	// cached holds the last computed value; meaningless until the first
	// successful compute.
	cached T

	// dirty marks the cache stale. Starts true; cleared only after a
	// compute returns normally, so a panicking compute is retried on the
	// next read rather than caching a poisoned value.
	dirty bool

	// computing guards against a memo reading itself through a cycle.
	computing bool

	// deps are the sources read during the most recent compute.
	deps map[uint64]*node

	disposed bool
}

// NewMemo creates a memo on rt. The computation does not run until the first
// Get or Peek.
//
// If a Scope is active on rt, the memo is owned by it and disposed with it.
//
// Example:
//
//	doubled := reflow.NewMemo(rt, func() int { return count.Get() * 2 })
//	doubled.Get() // computes now
//	doubled.Get() // cache hit
func NewMemo[T any](rt *Runtime, compute func() T) *Memo[T] {
	rt.lock.acquire()
	defer rt.lock.release()

	m := &Memo[T]{
		node:    newNode(rt),
		compute: compute,
		dirty:   true,
		deps:    make(map[uint64]*node),
	}
	if rt.scope != nil {
		rt.scope.adopt(m)
	}
	return m
}

// Get subscribes the currently running observer to this memo, recomputes if
// dirty, and returns the cached value. A panic in the computation propagates
// to this caller and leaves the memo dirty.
func (m *Memo[T]) Get() T {
	rt := m.node.rt
	rt.lock.acquire()
	defer rt.lock.release()

	rt.readSource(&m.node)
	if m.dirty {
		m.recompute()
	}
	return m.cached
}

// Peek returns the memo's value without subscribing.
// Still recomputes if the cache is stale.
func (m *Memo[T]) Peek() T {
	rt := m.node.rt
	rt.lock.acquire()
	defer rt.lock.release()

	if m.dirty {
		m.recompute()
	}
	return m.cached
}

// Dispose permanently detaches the memo from the graph: it stops observing
// its sources and is pruned from its subscribers' walks. Idempotent.
func (m *Memo[T]) Dispose() {
	rt := m.node.rt
	rt.lock.acquire()
	defer rt.lock.release()

	if m.disposed {
		return
	}
	m.disposed = true
	m.clearDeps()
	clear(m.node.subs)
}

// ID returns the memo's stable handle on its runtime.
func (m *Memo[T]) ID() uint64 {
	return m.node.h
}

// recompute performs one tracked run with full re-subscription.
// Caller must hold the graph lock.
func (m *Memo[T]) recompute() {
	if m.computing {
		panic(ErrCyclicDependency)
	}
	m.computing = true
	defer func() { m.computing = false }()

	m.clearDeps()

	rt := m.node.rt
	rt.pushObserver(m)
	defer rt.popObserver()

	rt.memoRecomputes.Add(1)
	v := m.compute()

	m.cached = v
	m.dirty = false
}

func (m *Memo[T]) clearDeps() {
	for _, n := range m.deps {
		n.unsubscribe(m.node.h)
	}
	clear(m.deps)
}

func (m *Memo[T]) handle() uint64   { return m.node.h }
func (m *Memo[T]) isDisposed() bool { return m.disposed }

func (m *Memo[T]) addDep(n *node) {
	m.deps[n.h] = n
}

// markStale implements the memo half of the notification walk: flip the
// dirty flag, never recompute. Marking an already-dirty memo is a no-op for
// the flag but the walk still continues through its subscribers; a memo left
// dirty by a panicking compute must not cut its effects off from retries.
func (m *Memo[T]) markStale() {
	if m.disposed {
		return
	}
	m.dirty = true
}

func (m *Memo[T]) source() *node { return &m.node }

var _ memoObserver = (*Memo[int])(nil)
