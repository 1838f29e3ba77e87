package reflow

// Scope is a lifecycle container. Effects and memos created while a scope is
// active are owned by it and disposed with it. Scopes form a tree mirroring
// the structure that created them; teardown is depth-first, children before
// their parent.
type Scope struct {
	rt     *Runtime
	parent *Scope

	// children in creation order.
	children []*Scope

	// mountFns and cleanupFns in registration order.
	mountFns   []func()
	cleanupFns []func()

	// owned observers, disposed with the scope.
	owned []disposable

	disposed bool
}

// NewScope creates a scope on rt under parent. A nil parent creates a root
// scope. The new scope is not active until Run is called with it.
func NewScope(rt *Runtime, parent *Scope) *Scope {
	rt.lock.acquire()
	defer rt.lock.release()

	s := &Scope{rt: rt, parent: parent}
	if parent != nil {
		parent.children = append(parent.children, s)
	}
	return s
}

// Run executes fn with s as the active scope on its runtime, restoring the
// previous scope afterward. Effects, memos, and mount/cleanup registrations
// inside fn attach to s.
func (s *Scope) Run(fn func()) {
	s.rt.lock.acquire()
	defer s.rt.lock.release()

	prev := s.rt.scope
	s.rt.scope = s
	defer func() { s.rt.scope = prev }()
	fn()
}

// OnMount registers fn to run when the scope is mounted via RunMount.
func (s *Scope) OnMount(fn func()) {
	s.rt.lock.acquire()
	defer s.rt.lock.release()
	s.mountFns = append(s.mountFns, fn)
}

// OnCleanup registers fn to run when the scope is disposed. Registering on
// an already-disposed scope runs fn immediately.
func (s *Scope) OnCleanup(fn func()) {
	s.rt.lock.acquire()
	defer s.rt.lock.release()

	if s.disposed {
		fn()
		return
	}
	s.cleanupFns = append(s.cleanupFns, fn)
}

// OnMount registers fn on the active scope of rt. With no active scope, fn
// runs immediately; top-level code has nothing to defer mounting to.
func OnMount(rt *Runtime, fn func()) {
	rt.lock.acquire()
	defer rt.lock.release()

	if rt.scope == nil {
		fn()
		return
	}
	rt.scope.mountFns = append(rt.scope.mountFns, fn)
}

// OnCleanup registers fn on the active scope of rt.
// No-op when no scope is active.
func OnCleanup(rt *Runtime, fn func()) {
	rt.lock.acquire()
	defer rt.lock.release()

	if rt.scope == nil {
		return
	}
	rt.scope.cleanupFns = append(rt.scope.cleanupFns, fn)
}

// RunMount runs the scope's own mount callbacks in registration order, then
// recurses into children in creation order.
func (s *Scope) RunMount() {
	s.rt.lock.acquire()
	defer s.rt.lock.release()
	s.runMount()
}

func (s *Scope) runMount() {
	if s.disposed {
		return
	}
	for _, fn := range s.mountFns {
		fn()
	}
	for _, child := range s.children {
		child.runMount()
	}
}

// Dispose tears the scope down: children first in reverse creation order,
// then the scope's owned effects and memos, then its own cleanup callbacks
// in registration order. Mirrors nested-resource teardown. Idempotent.
func (s *Scope) Dispose() {
	s.rt.lock.acquire()
	defer s.rt.lock.release()
	s.dispose()
}

func (s *Scope) dispose() {
	if s.disposed {
		return
	}
	s.disposed = true

	if s.parent != nil {
		s.parent.removeChild(s)
	}

	children := s.children
	s.children = nil
	for i := len(children) - 1; i >= 0; i-- {
		children[i].dispose()
	}

	owned := s.owned
	s.owned = nil
	for _, d := range owned {
		d.Dispose()
	}

	cleanups := s.cleanupFns
	s.cleanupFns = nil
	for _, fn := range cleanups {
		fn()
	}

	s.mountFns = nil
}

// IsDisposed reports whether the scope has been disposed.
func (s *Scope) IsDisposed() bool {
	s.rt.lock.acquire()
	defer s.rt.lock.release()
	return s.disposed
}

// Parent returns the parent scope, nil for a root.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// removeChild unlinks a disposed child. No-op while the parent itself is
// mid-dispose, since it detached its child list first.
func (s *Scope) removeChild(child *Scope) {
	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

// adopt registers an observer for disposal with the scope.
// Caller must hold the graph lock.
func (s *Scope) adopt(d disposable) {
	if s.disposed {
		d.Dispose()
		return
	}
	s.owned = append(s.owned, d)
}
