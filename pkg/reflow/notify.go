package reflow

// notify walks the dependent graph of src: reachable memos are marked dirty
// without recomputing, and reachable effects either run now (batch depth 0)
// or join the pending queue (inside a batch).
//
// Caller must hold the graph lock.
func (rt *Runtime) notify(src *node) {
	effects := rt.collectEffects(src)
	if rt.batchDepth > 0 {
		rt.enqueue(effects)
		return
	}
	rt.runEffects(effects)
}

// collectEffects is the dirty-propagation walk. It is an iterative work-list
// rather than recursion so that deep memo chains cannot grow the native call
// stack. Effects are deduplicated by handle and returned in discovery order,
// which is deterministic because each source iterates subscribers in
// creation order.
//
// The walk visits each source node at most once (deduplicated by handle), so
// diamonds terminate. It deliberately continues through memos that were
// already dirty: a memo can stay dirty across writes when its compute
// panicked, and its subscribed effects must still be collected so the next
// write retries them.
//
// Disposed observers are pruned from subscriber sets on sight, never invoked.
func (rt *Runtime) collectEffects(src *node) []*Effect {
	queue := []*node{src}
	seenNodes := map[uint64]struct{}{src.h: {}}
	seenEffects := make(map[uint64]struct{})
	var out []*Effect

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		for _, o := range n.orderedSubs() {
			if o.isDisposed() {
				n.unsubscribe(o.handle())
				continue
			}
			switch t := o.(type) {
			case *Effect:
				if _, dup := seenEffects[t.h]; dup {
					continue
				}
				seenEffects[t.h] = struct{}{}
				out = append(out, t)
			case memoObserver:
				t.markStale()
				s := t.source()
				if _, dup := seenNodes[s.h]; dup {
					continue
				}
				seenNodes[s.h] = struct{}{}
				queue = append(queue, s)
			}
		}
	}
	return out
}

// enqueue adds effects to the pending queue, deduplicated by handle,
// preserving first-insertion order across the whole batch.
func (rt *Runtime) enqueue(effects []*Effect) {
	for _, e := range effects {
		if _, ok := rt.pendingSet[e.h]; ok {
			continue
		}
		rt.pendingSet[e.h] = struct{}{}
		rt.pending = append(rt.pending, e)
	}
}

// runEffects runs each effect in order. A panicking effect does not stop
// independent effects from running: every panic is recovered, the loop
// continues, and a single aggregate *EffectPanicError is re-panicked after
// the loop. Failing effects stay subscribed so later writes retry them.
func (rt *Runtime) runEffects(effects []*Effect) {
	var panics []any
	for _, e := range effects {
		if p, panicked := runEffectRecover(e); panicked {
			panics = append(panics, p)
		}
	}
	if len(panics) > 0 {
		panic(&EffectPanicError{Panics: panics})
	}
}

func runEffectRecover(e *Effect) (p any, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			p = r
			panicked = true
		}
	}()
	e.run()
	return nil, false
}
