package reflow

// Signal is a reactive value container, the base source node of the graph.
// Reading a Signal during a tracked run (an effect or memo computation)
// automatically subscribes the running observer to the signal's changes.
//
// Every Set call notifies subscribers, even when the new value equals the
// old one. Suppressing no-op writes would change observable effect-run
// counts, so no equality check is performed.
type Signal[T any] struct {
	node node

	// value is the current signal value, always post-transform.
	value T

	// transform is applied to every written value, including the initial
	// one. nil means identity.
	transform func(T) T
}

// SignalOption configures a signal at creation time.
type SignalOption[T any] func(*Signal[T])

// WithTransform sets a write-time transform. The transform is applied to the
// initial value and to every subsequent Set or Update before storing.
//
// Example:
//
//	name := reflow.NewSignal(rt, "hello", reflow.WithTransform(strings.ToUpper))
//	name.Get() // "HELLO"
func WithTransform[T any](fn func(T) T) SignalOption[T] {
	return func(s *Signal[T]) {
		s.transform = fn
	}
}

// NewSignal creates a signal on rt holding initial.
func NewSignal[T any](rt *Runtime, initial T, opts ...SignalOption[T]) *Signal[T] {
	rt.lock.acquire()
	defer rt.lock.release()

	s := &Signal[T]{node: newNode(rt)}
	for _, opt := range opts {
		opt(s)
	}
	s.value = s.apply(initial)
	return s
}

// Get returns the current value and subscribes the currently running
// observer, if any. Bare reads outside any tracked run are legal and
// subscribe nothing.
func (s *Signal[T]) Get() T {
	rt := s.node.rt
	rt.lock.acquire()
	defer rt.lock.release()

	rt.readSource(&s.node)
	return s.value
}

// Peek returns the current value without subscribing.
func (s *Signal[T]) Peek() T {
	rt := s.node.rt
	rt.lock.acquire()
	defer rt.lock.release()
	return s.value
}

// Set stores transform(value) and notifies subscribers.
//
// Outside a batch, dependent effects run synchronously on this call stack
// before Set returns, and dependent memos are marked dirty without
// recomputing. Inside a batch, reachable effects are queued instead and run
// once when the outermost batch exits.
//
// A panic in a dependent effect propagates to the Set caller; the effect
// stays subscribed so a later write retries it.
func (s *Signal[T]) Set(value T) {
	rt := s.node.rt
	rt.lock.acquire()
	defer rt.lock.release()

	s.value = s.apply(value)
	rt.signalWrites.Add(1)
	rt.notify(&s.node)
}

// Update stores transform(fn(current)) as a single write with a single
// notification pass.
func (s *Signal[T]) Update(fn func(T) T) {
	rt := s.node.rt
	rt.lock.acquire()
	defer rt.lock.release()

	s.value = s.apply(fn(s.value))
	rt.signalWrites.Add(1)
	rt.notify(&s.node)
}

// ID returns the signal's stable handle on its runtime.
func (s *Signal[T]) ID() uint64 {
	return s.node.h
}

func (s *Signal[T]) apply(v T) T {
	if s.transform == nil {
		return v
	}
	return s.transform(v)
}
