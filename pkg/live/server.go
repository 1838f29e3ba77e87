package live

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes a hub over HTTP: WebSocket upgrades on /live, liveness on
// /healthz, and Prometheus metrics on /metrics.
type Server struct {
	hub      *Hub
	config   Config
	upgrader websocket.Upgrader
}

// NewServer wraps hub with an HTTP surface.
func NewServer(hub *Hub, config Config) *Server {
	config = config.withDefaults()
	return &Server{
		hub:    hub,
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(config.AllowedOrigins),
		},
	}
}

// Handler returns the server's router.
//
// Example:
//
//	srv := live.NewServer(hub, live.DefaultConfig())
//	http.ListenAndServe(":3000", srv.Handler())
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/live", s.handleUpgrade)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// handleUpgrade turns an HTTP request into a live peer. Blocks in the read
// loop until the connection drops.
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.hub.logger.Error("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	conn.SetReadLimit(s.config.MaxFrameSize)
	conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

	p := newPeer(s.hub, conn, s.config)
	s.hub.logger.Info("peer connected", "peer", p.ID(), "remote", r.RemoteAddr)

	go p.WriteLoop()
	p.ReadLoop(r.Context())

	s.hub.logger.Info("peer disconnected", "peer", p.ID())
}

// originChecker builds the upgrade origin policy. No allowed origins means
// gorilla's default same-origin check; "*" disables the check.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
