package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/reflow-dev/reflow/internal/errors"
	"github.com/reflow-dev/reflow/pkg/reflow"
)

// Hub owns one shared reactive runtime and the set of broadcast channels and
// connected peers. A channel is a named signal whose writes fan out to every
// subscribed peer; the fan-out itself is an effect on the runtime, so the
// setter keeps the synchronous notify-then-return contract — by the time Set
// returns, every local effect has run and every subscribed peer's frame has
// been queued.
type Hub struct {
	rt      *reflow.Runtime
	logger  *slog.Logger
	metrics *Metrics
	tracer  *Tracer

	mu       sync.Mutex
	channels map[string]broadcaster
	peers    map[*Peer]struct{}
	closed   bool
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithLogger sets the hub's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) { h.logger = logger }
}

// WithMetrics attaches a metrics recorder to the hub.
func WithMetrics(m *Metrics) HubOption {
	return func(h *Hub) { h.metrics = m }
}

// WithTracer attaches an OpenTelemetry tracer to inbound frame handling.
func WithTracer(tr *Tracer) HubOption {
	return func(h *Hub) { h.tracer = tr }
}

// NewHub creates a hub with its own private Runtime.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		rt:       reflow.New(),
		logger:   slog.Default(),
		channels: make(map[string]broadcaster),
		peers:    make(map[*Peer]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Runtime returns the hub's reactive runtime, for composing memos and
// effects over broadcast channels.
func (h *Hub) Runtime() *reflow.Runtime {
	return h.rt
}

// broadcaster is the type-erased view of Channel[T] the hub dispatches on.
type broadcaster interface {
	Name() string
	snapshotFrame() (Frame, error)
	applySet(value json.RawMessage) error
	attach(p *Peer) error
	detach(p *Peer)
}

// register adds a channel under its name. Names are unique per hub.
func (h *Hub) register(b broadcaster) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, dup := h.channels[b.Name()]; dup {
		return errors.New("E210", errors.CategoryRuntime, "channel "+b.Name()+" already registered")
	}
	h.channels[b.Name()] = b
	if h.metrics != nil {
		h.metrics.RecordChannelCount(len(h.channels))
	}
	return nil
}

func (h *Hub) lookup(name string) (broadcaster, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.channels[name]
	return b, ok
}

func (h *Hub) addPeer(p *Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peers[p] = struct{}{}
	if h.metrics != nil {
		h.metrics.RecordPeerConnect()
	}
}

func (h *Hub) removePeer(p *Peer) {
	h.mu.Lock()
	_, present := h.peers[p]
	delete(h.peers, p)
	h.mu.Unlock()

	if !present {
		return
	}
	if h.metrics != nil {
		h.metrics.RecordPeerDisconnect()
	}
}

// handleFrame dispatches one inbound client frame. Failures are reported
// back to the peer as error frames; they never tear down the connection.
func (h *Hub) handleFrame(ctx context.Context, p *Peer, f Frame) {
	start := time.Now()
	_, span := h.tracer.start(ctx, p, f)
	defer span.End()

	var err error
	switch f.Type {
	case FrameSubscribe:
		err = h.subscribe(p, f.Channel)
	case FrameUnsubscribe:
		h.unsubscribe(p, f.Channel)
	case FrameSet:
		err = h.applySet(f)
	default:
		err = errors.New("E205", errors.CategoryProtocol, "unknown frame type "+string(f.Type))
	}

	if h.metrics != nil {
		h.metrics.RecordFrameReceived(string(f.Type), time.Since(start))
	}
	if err != nil {
		span.recordError(err)
		h.logger.Error("frame failed", "peer", p.ID(), "type", f.Type, "channel", f.Channel, "error", err)
		if h.metrics != nil {
			h.metrics.RecordFrameError(string(f.Type))
		}
		p.sendError(f.Channel, err)
	}
}

func (h *Hub) subscribe(p *Peer, name string) error {
	b, ok := h.lookup(name)
	if !ok {
		return errors.New("E211", errors.CategoryProtocol, "unknown channel "+name)
	}
	if err := b.attach(p); err != nil {
		return err
	}
	p.addSubscription(b)
	return nil
}

func (h *Hub) unsubscribe(p *Peer, name string) {
	b, ok := h.lookup(name)
	if !ok {
		return
	}
	b.detach(p)
	p.removeSubscription(name)
}

// applySet applies a client write to the named channel's signal. Effects run
// synchronously inside Set; a panicking effect must not kill the connection,
// so the unwind is contained here.
func (h *Hub) applySet(f Frame) (err error) {
	b, ok := h.lookup(f.Channel)
	if !ok {
		return errors.New("E211", errors.CategoryProtocol, "unknown channel "+f.Channel)
	}
	defer func() {
		if r := recover(); r != nil {
			if e, isErr := r.(error); isErr {
				err = errors.Wrap("E212", errors.CategoryRuntime, "effect failed applying set", e)
				return
			}
			err = errors.New("E212", errors.CategoryRuntime, "effect failed applying set")
		}
	}()
	return b.applySet(f.Value)
}

// Close disconnects every peer. Channels and the runtime stay usable so a
// hub can be drained and restarted in tests.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	peers := make([]*Peer, 0, len(h.peers))
	for p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.Unlock()

	for _, p := range peers {
		p.Close()
	}
}
