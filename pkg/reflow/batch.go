package reflow

// Batch defers effect notifications until fn returns. Signal writes inside
// the batch still store immediately and still mark memos dirty, but every
// reachable effect is queued, deduplicated, and run exactly once when the
// outermost batch exits.
//
// Batches nest: an inner Batch never flushes early, only the transition back
// to depth zero does. The depth counter stays balanced even when fn panics.
// When the outermost fn panics, queued effects are discarded rather than run
// mid-unwind or carried into an unrelated later batch; the signal writes
// themselves remain applied. An inner panic recovered by the outer fn keeps
// the queue, since the surviving outer batch still owns its flush.
//
// Example:
//
//	reflow.Batch(rt, func() {
//	    first.Set("Ada")
//	    last.Set("Lovelace")
//	    age.Set(36)
//	})
//	// One run per dependent effect, observing all three final values.
func Batch(rt *Runtime, fn func()) {
	rt.lock.acquire()
	defer rt.lock.release()

	rt.batchDepth++
	panicked := true
	func() {
		defer func() {
			rt.batchDepth--
			if panicked && rt.batchDepth == 0 {
				rt.pending = nil
				clear(rt.pendingSet)
			}
		}()
		fn()
		panicked = false
	}()

	// Reached only when fn returned normally.
	if rt.batchDepth == 0 {
		rt.flush()
	}
}

// BatchValue is Batch for functions that produce a value.
func BatchValue[T any](rt *Runtime, fn func() T) T {
	var out T
	Batch(rt, func() { out = fn() })
	return out
}

// flush runs every pending effect exactly once, in first-insertion order,
// then clears the queue. Caller must hold the graph lock.
//
// Writes performed by a flushed effect happen at depth zero, so their own
// dependents run nested and synchronously, not appended to this flush.
func (rt *Runtime) flush() {
	if len(rt.pending) == 0 {
		return
	}
	effects := rt.pending
	rt.pending = nil
	clear(rt.pendingSet)

	rt.batchFlushes.Add(1)
	rt.runEffects(effects)
}
