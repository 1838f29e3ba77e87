package reflow

import "sort"

// observer is anything that can be notified when a source it read changes.
// It is implemented by Effect and Memo[T]; the two variants diverge in how
// the notification walk treats them (run-or-enqueue vs. mark-dirty).
type observer interface {
	// handle returns the observer's stable identity on its runtime.
	// Used for O(1) removal from subscriber sets and for deduplication.
	handle() uint64

	// isDisposed reports whether the observer has been disposed.
	// Notification walks never invoke disposed observers and prune them
	// from subscriber sets on sight.
	isDisposed() bool

	// addDep records a source read during the observer's current run.
	addDep(n *node)
}

// memoObserver is the type-erased view of Memo[T] used by the notification
// walk. Memos are simultaneously observers and sources, so dirtying one
// continues the walk through its own subscribers.
type memoObserver interface {
	observer

	// markStale flips the memo's dirty flag without recomputing.
	markStale()

	// source returns the memo's source half.
	source() *node
}

// Cleanup is a function returned by an effect to release resources.
// It runs before the effect re-runs and when the effect is disposed.
type Cleanup func()

// node is the type-erased source half shared by Signal[T] and Memo[T].
// It holds the subscriber set: exactly the live observers whose most recent
// run read this source. Subscribers are keyed by handle so stale edges from
// a prior run are removed in O(1).
type node struct {
	rt   *Runtime
	h    uint64
	subs map[uint64]observer
}

func newNode(rt *Runtime) node {
	return node{
		rt:   rt,
		h:    rt.newHandle(),
		subs: make(map[uint64]observer),
	}
}

func (n *node) subscribe(o observer) {
	n.subs[o.handle()] = o
}

func (n *node) unsubscribe(h uint64) {
	delete(n.subs, h)
}

// orderedSubs returns the current subscribers in ascending handle order.
// Handles are allocated in creation order, so iteration order is
// deterministic for a fixed graph.
func (n *node) orderedSubs() []observer {
	if len(n.subs) == 0 {
		return nil
	}
	out := make([]observer, 0, len(n.subs))
	for _, o := range n.subs {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].handle() < out[j].handle() })
	return out
}

// disposable is implemented by observers a Scope can own.
type disposable interface {
	Dispose()
}
