package live

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/reflow-dev/reflow/internal/errors"
	"github.com/reflow-dev/reflow/pkg/reflow"
)

// Channel is a named broadcast signal. Server code writes it like any other
// signal via Set/Update; a broadcast effect on the hub's runtime serializes
// each new value and fans it out to subscribed peers. Because fan-out is an
// effect, it composes with batching: five writes inside a Batch produce one
// frame per subscriber, not five.
type Channel[T any] struct {
	hub  *Hub
	name string
	sig  *reflow.Signal[T]
	seq  atomic.Uint64

	mu   sync.Mutex
	subs map[*Peer]struct{}
}

// NewChannel registers a broadcast signal under name on the hub. The name
// must be unique per hub.
func NewChannel[T any](hub *Hub, name string, initial T, opts ...reflow.SignalOption[T]) (*Channel[T], error) {
	c := &Channel[T]{
		hub:  hub,
		name: name,
		sig:  reflow.NewSignal(hub.rt, initial, opts...),
		subs: make(map[*Peer]struct{}),
	}
	if err := hub.register(c); err != nil {
		return nil, err
	}

	// The broadcast effect reads the signal so every write re-runs it. It
	// must not hold c.mu while touching the runtime, so the subscriber set
	// is snapshotted first.
	reflow.NewEffect(hub.rt, func() reflow.Cleanup {
		v := c.sig.Get()
		c.broadcast(v)
		return nil
	})
	return c, nil
}

// Name returns the channel's registered name.
func (c *Channel[T]) Name() string { return c.name }

// Signal exposes the underlying signal for composing memos and effects on
// the hub's runtime.
func (c *Channel[T]) Signal() *reflow.Signal[T] { return c.sig }

// Publish writes a new value, fanning it out to every subscriber before
// returning.
func (c *Channel[T]) Publish(v T) { c.sig.Set(v) }

// Update applies fn to the current value and publishes the result.
func (c *Channel[T]) Update(fn func(T) T) { c.sig.Update(fn) }

func (c *Channel[T]) broadcast(v T) {
	// The first run happens at effect creation, before any peer can have
	// subscribed; it only establishes the dependency.
	c.mu.Lock()
	if len(c.subs) == 0 {
		c.mu.Unlock()
		return
	}
	peers := make([]*Peer, 0, len(c.subs))
	for p := range c.subs {
		peers = append(peers, p)
	}
	c.mu.Unlock()

	f, err := c.encodeUpdate(v)
	if err != nil {
		c.hub.logger.Error("broadcast encode failed", "channel", c.name, "error", err)
		return
	}
	for _, p := range peers {
		p.trySend(f)
	}
	if c.hub.metrics != nil {
		c.hub.metrics.RecordBroadcast(c.name, len(peers))
	}
}

func (c *Channel[T]) encodeUpdate(v T) (Frame, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Frame{}, errors.Wrap("E213", errors.CategoryRuntime, "channel "+c.name+" value is not serializable", err)
	}
	return Frame{
		Type:    FrameUpdate,
		Channel: c.name,
		Seq:     c.seq.Add(1),
		Value:   raw,
	}, nil
}

// snapshotFrame encodes the current value without subscribing anything.
func (c *Channel[T]) snapshotFrame() (Frame, error) {
	return c.encodeUpdate(c.sig.Peek())
}

// applySet decodes a client write and applies it to the signal. Effects run
// synchronously inside Set, so panicking effects unwind through here; the
// hub contains them.
func (c *Channel[T]) applySet(value json.RawMessage) error {
	var v T
	if err := json.Unmarshal(value, &v); err != nil {
		return errors.Wrap("E214", errors.CategoryProtocol, "set value does not match channel "+c.name, err)
	}
	c.sig.Set(v)
	return nil
}

// attach subscribes a peer, queueing a snapshot frame as the first update.
// Snapshot and join happen under the graph lock (via Batch) so a concurrent
// write cannot slip between them and leave the peer one value behind. Lock
// order is always graph lock then c.mu, matching the broadcast effect.
func (c *Channel[T]) attach(p *Peer) error {
	return reflow.BatchValue(c.hub.rt, func() error {
		f, err := c.snapshotFrame()
		if err != nil {
			return err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if _, dup := c.subs[p]; dup {
			return nil
		}
		c.subs[p] = struct{}{}
		p.trySend(f)
		return nil
	})
}

func (c *Channel[T]) detach(p *Peer) {
	c.mu.Lock()
	delete(c.subs, p)
	c.mu.Unlock()
}
