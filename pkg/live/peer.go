package live

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

var peerCounter atomic.Uint64

// Peer is one live WebSocket connection. Outbound frames go through a
// buffered send queue drained by WriteLoop; a peer that cannot keep up has
// its queue fill and is dropped rather than letting one slow client stall a
// broadcast for everyone else.
type Peer struct {
	id   string
	hub  *Hub
	conn *websocket.Conn

	send chan Frame
	done chan struct{}

	pingInterval time.Duration
	writeTimeout time.Duration
	readTimeout  time.Duration

	mu   sync.Mutex
	subs map[string]broadcaster

	closeOnce sync.Once
}

func newPeer(h *Hub, conn *websocket.Conn, cfg Config) *Peer {
	p := &Peer{
		id:           fmt.Sprintf("peer-%d", peerCounter.Add(1)),
		hub:          h,
		conn:         conn,
		send:         make(chan Frame, cfg.SendBuffer),
		done:         make(chan struct{}),
		pingInterval: cfg.PingInterval,
		writeTimeout: cfg.WriteTimeout,
		readTimeout:  cfg.ReadTimeout,
		subs:         make(map[string]broadcaster),
	}
	h.addPeer(p)
	return p
}

// ID returns the peer's connection identifier, used in logs and traces.
func (p *Peer) ID() string { return p.id }

// ReadLoop decodes inbound frames and hands them to the hub until the
// connection drops or ctx is cancelled. Blocks; run it on the handler's
// goroutine.
func (p *Peer) ReadLoop(ctx context.Context) {
	defer p.Close()

	p.conn.SetReadDeadline(time.Now().Add(p.readTimeout))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(p.readTimeout))
	})

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				p.hub.logger.Warn("peer read failed", "peer", p.id, "error", err)
			}
			return
		}
		f, err := DecodeFrame(data)
		if err != nil {
			p.hub.logger.Warn("dropping bad frame", "peer", p.id, "error", err)
			p.sendError("", err)
			continue
		}
		p.hub.handleFrame(ctx, p, f)
	}
}

// WriteLoop drains the send queue onto the socket and keeps the connection
// alive with pings. Exits when the peer closes.
func (p *Peer) WriteLoop() {
	ticker := time.NewTicker(p.pingInterval)
	defer func() {
		ticker.Stop()
		p.Close()
	}()

	for {
		select {
		case f := <-p.send:
			data, err := EncodeFrame(f)
			if err != nil {
				p.hub.logger.Error("encode failed", "peer", p.id, "error", err)
				continue
			}
			p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout))
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
			if p.hub.metrics != nil {
				p.hub.metrics.RecordFrameSent(string(f.Type))
			}
		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-p.done:
			return
		}
	}
}

// trySend queues a frame without blocking. A full queue means the peer has
// fallen too far behind; it gets dropped so broadcasts stay non-blocking.
func (p *Peer) trySend(f Frame) {
	select {
	case p.send <- f:
	case <-p.done:
	default:
		p.hub.logger.Warn("peer too slow, dropping", "peer", p.id, "queued", cap(p.send))
		if p.hub.metrics != nil {
			p.hub.metrics.RecordSlowPeerDrop()
		}
		go p.Close()
	}
}

func (p *Peer) sendError(channel string, err error) {
	p.trySend(Frame{
		Type:    FrameError,
		Channel: channel,
		Message: err.Error(),
	})
}

func (p *Peer) addSubscription(b broadcaster) {
	p.mu.Lock()
	p.subs[b.Name()] = b
	p.mu.Unlock()
}

func (p *Peer) removeSubscription(name string) {
	p.mu.Lock()
	delete(p.subs, name)
	p.mu.Unlock()
}

// Close detaches the peer from every channel and tears down the connection.
// Safe to call from any goroutine, any number of times.
func (p *Peer) Close() {
	p.closeOnce.Do(func() {
		close(p.done)

		p.mu.Lock()
		subs := make([]broadcaster, 0, len(p.subs))
		for _, b := range p.subs {
			subs = append(subs, b)
		}
		p.subs = make(map[string]broadcaster)
		p.mu.Unlock()

		for _, b := range subs {
			b.detach(p)
		}
		p.hub.removePeer(p)
		p.conn.Close()
	})
}
