package signaling

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/meshcam/signal-relay/internal/metrics"
	"github.com/meshcam/signal-relay/internal/registry"
)

const (
	DefaultRoomName        = "lobby"
	DefaultMaxMessageBytes = 64 * 1024
	DefaultIdleTimeout     = 60 * time.Second
	DefaultPingInterval    = 25 * time.Second
	DefaultSendQueueSize   = 32
)

// Config wires together the runtime dependencies for the signaling service.
type Config struct {
	// Registry holds the shared session/room/directory state. If nil, the
	// server creates an unbounded one.
	Registry *registry.Registry

	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// DefaultRoom is used when a join message omits the room name.
	DefaultRoom string

	// WebSocket inbound hardening and keepalive.
	MaxMessageBytes int64
	IdleTimeout     time.Duration
	PingInterval    time.Duration

	// SendQueueSize bounds each connection's outbound queue; events beyond it
	// are dropped rather than blocking the sender.
	SendQueueSize int
}

// Server implements the relay's WebSocket signaling endpoint.
//
// Each accepted connection gets a read goroutine (this handler) and a write
// pump; all cross-connection state lives in the Registry and is driven by the
// Router.
type Server struct {
	cfg     Config
	log     *slog.Logger
	metrics *metrics.Metrics
	reg     *registry.Registry
	router  *Router

	mu    sync.Mutex
	peers map[*wsPeer]struct{}
}

func NewServer(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New()
	}
	reg := cfg.Registry
	if reg == nil {
		reg = registry.New(registry.Config{})
	}
	room := cfg.DefaultRoom
	if room == "" {
		room = DefaultRoomName
	}

	return &Server{
		cfg:     cfg,
		log:     log,
		metrics: m,
		reg:     reg,
		router:  NewRouter(reg, log, m, room),
		peers:   make(map[*wsPeer]struct{}),
	}
}

// Router returns the message router backing this server.
func (s *Server) Router() *Router { return s.router }

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /signal", s.handleSignal)
}

// ServeHTTP provides minimal routing for tests and simple deployments.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handleSignal(w, r)
}

// Close tears down every live connection. Read loops observe the closed
// transport and run their normal disconnect cleanup.
func (s *Server) Close() {
	s.mu.Lock()
	peers := make([]*wsPeer, 0, len(s.peers))
	for p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.Unlock()

	for _, p := range peers {
		p.close()
	}
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		// Origin checks are enforced by the outer httpserver origin middleware.
		// For unit tests that don't use httpserver.Server, accept all origins.
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	peer := newWSPeer(conn, s.log, s.metrics, s.sendQueueSize(), s.pingInterval())

	var sess *registry.Session
	for attempt := 0; attempt < 3; attempt++ {
		sess = registry.NewSession(uuid.NewString(), peer)
		err = s.reg.Register(sess)
		if !errors.Is(err, registry.ErrDuplicateID) {
			break
		}
	}
	if err != nil {
		s.metrics.Inc(metrics.SessionRefused)
		s.log.Warn("refusing connection", "remote_addr", r.RemoteAddr, "err", err)
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many sessions"),
			time.Now().Add(wsWriteWait),
		)
		_ = conn.Close()
		return
	}

	s.metrics.Inc(metrics.SessionConnected)
	s.log.Info("session connected", "session_id", sess.ID(), "remote_addr", r.RemoteAddr)

	s.trackPeer(peer)
	defer s.untrackPeer(peer)

	go peer.writePump()

	// The welcome event hands the client the identifier other peers use to
	// address it. It must be the first event on the wire.
	if err := sess.Send(Event{Type: EventWelcome, SessionID: sess.ID()}); err != nil {
		s.log.Warn("failed to enqueue welcome", "session_id", sess.ID(), "err", err)
	}

	s.readLoop(sess, peer, conn)
}

func (s *Server) readLoop(sess *registry.Session, peer *wsPeer, conn *websocket.Conn) {
	defer func() {
		s.router.HandleDisconnect(sess)
		peer.close()
	}()

	conn.SetReadLimit(s.maxMessageBytes())
	idle := s.idleTimeout()
	_ = conn.SetReadDeadline(time.Now().Add(idle))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(idle))
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(idle))

		if msgType != websocket.TextMessage {
			s.metrics.Inc(metrics.MessageMalformed)
			s.log.Warn("dropping non-text frame", "session_id", sess.ID())
			continue
		}
		s.router.HandleMessage(sess, data)
	}
}

func (s *Server) trackPeer(p *wsPeer) {
	s.mu.Lock()
	s.peers[p] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrackPeer(p *wsPeer) {
	s.mu.Lock()
	delete(s.peers, p)
	s.mu.Unlock()
}

func (s *Server) maxMessageBytes() int64 {
	if s.cfg.MaxMessageBytes <= 0 {
		return DefaultMaxMessageBytes
	}
	return s.cfg.MaxMessageBytes
}

func (s *Server) idleTimeout() time.Duration {
	if s.cfg.IdleTimeout <= 0 {
		return DefaultIdleTimeout
	}
	return s.cfg.IdleTimeout
}

func (s *Server) pingInterval() time.Duration {
	if s.cfg.PingInterval <= 0 {
		return DefaultPingInterval
	}
	return s.cfg.PingInterval
}

func (s *Server) sendQueueSize() int {
	if s.cfg.SendQueueSize <= 0 {
		return DefaultSendQueueSize
	}
	return s.cfg.SendQueueSize
}
