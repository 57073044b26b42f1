// Package chat is the session and relay engine of the chat server: sessions
// that own one connection each, the registry of joined sessions, the router
// that fans frames out, and the server that ties them to a TCP listener.
package chat

import (
	"net"
	"time"

	"github.com/cyberinferno/go-chat/cacher"
	"github.com/cyberinferno/go-chat/logger"
	"github.com/cyberinferno/go-chat/protocol"
	"github.com/cyberinferno/go-chat/tcpserver"
)

// Default tuning values.
const (
	DefaultQueueSize    = 256
	DefaultJoinTimeout  = 10 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	DefaultRosterTTL    = 5 * time.Second
)

// ServerConfig configures a Server.
type ServerConfig struct {
	// Name identifies the server in logs and in roster cache keys.
	Name string
	// Addr is the "host:port" to listen on.
	Addr string
	// Session settings applied to every connection.
	Session SessionConfig
	// Roster is an optional roster cache shared by the router.
	Roster cacher.Cacher[[]string]
	// RosterTTL bounds how stale a cached roster may be.
	RosterTTL time.Duration
}

// Server accepts chat connections and relays between them.
type Server struct {
	cfg      ServerConfig
	log      logger.Logger
	registry *Registry
	router   *Router
	tcp      *tcpserver.TCPServer
}

// NewServer builds a Server. Zero-valued settings take the package defaults.
func NewServer(cfg ServerConfig, l logger.Logger) *Server {
	if cfg.Name == "" {
		cfg.Name = "chat"
	}
	if cfg.Session.QueueSize <= 0 {
		cfg.Session.QueueSize = DefaultQueueSize
	}
	if cfg.Session.JoinTimeout <= 0 {
		cfg.Session.JoinTimeout = DefaultJoinTimeout
	}
	if cfg.Session.WriteTimeout <= 0 {
		cfg.Session.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Session.MaxPayload <= 0 {
		cfg.Session.MaxPayload = protocol.DefaultMaxPayload
	}
	if cfg.RosterTTL <= 0 {
		cfg.RosterTTL = DefaultRosterTTL
	}

	registry := NewRegistry()
	s := &Server{
		cfg:      cfg,
		log:      l,
		registry: registry,
		router: NewRouter(registry, RouterConfig{
			Roster:    cfg.Roster,
			RosterKey: "roster:" + cfg.Name,
			RosterTTL: cfg.RosterTTL,
		}, l),
	}
	s.tcp = tcpserver.New(cfg.Name, cfg.Addr, s.newSession, l)

	return s
}

func (s *Server) newSession(id uint64, conn net.Conn) tcpserver.TCPServerSession {
	return &serverSession{NewSession(id, conn, s.cfg.Session, s.router, s.log)}
}

// Start binds the listener and begins accepting. A bind failure is the only
// error the server ever reports.
func (s *Server) Start() error {
	return s.tcp.Start()
}

// Stop stops accepting, closes every session (joined or not) and waits for
// their goroutines to finish. Departures are broadcast as usual while the
// registry empties.
func (s *Server) Stop() {
	s.tcp.Stop()
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	return s.tcp.ListenAddr()
}

// State returns the accept loop state.
func (s *Server) State() tcpserver.State {
	return s.tcp.State()
}

// Registry exposes the joined sessions.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Connections returns the number of open connections, joined or not.
func (s *Server) Connections() int {
	return s.tcp.Sessions.Len()
}

// serverSession adapts Session to tcpserver.TCPServerSession, whose Close
// takes no cause.
type serverSession struct {
	*Session
}

func (s *serverSession) Close() error {
	s.Session.Close(ErrServerShutdown)
	return nil
}
