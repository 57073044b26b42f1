// Package tcpserver runs a TCP accept loop that hands every connection to a
// session created by the caller and tracks live sessions until they end.
package tcpserver

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cyberinferno/go-chat/idgenerator"
	"github.com/cyberinferno/go-chat/logger"
	"github.com/cyberinferno/go-chat/safemap"
)

// State is the lifecycle stage of a TCPServer.
type State int32

const (
	Starting     State = iota // created, not yet listening
	Accepting                 // listener open, accept loop running
	ShuttingDown              // listener closed, sessions being closed
	Stopped                   // every session handler has returned
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case Starting:
		return "Starting"
	case Accepting:
		return "Accepting"
	case ShuttingDown:
		return "ShuttingDown"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// NewSessionFunc creates the session for an accepted connection. It receives
// the assigned session ID and the connection, which the session then owns.
type NewSessionFunc func(id uint64, conn net.Conn) TCPServerSession

// TCPServer accepts connections on Addr and delegates each one to a session
// created by NewSession. Live sessions are stored by ID until their Handle
// returns. A TCPServer is started once and stopped once.
type TCPServer struct {
	Logger      logger.Logger
	Name        string
	Addr        string
	Listener    net.Listener
	Sessions    *safemap.SafeMap[uint64, TCPServerSession]
	NewSession  NewSessionFunc
	IdGenerator *idgenerator.IdGenerator

	state    atomic.Int32
	mu       sync.Mutex // orders handler registration against Stop
	handlers sync.WaitGroup
	stopOnce sync.Once
}

// New returns a TCPServer in the Starting state.
//
// Parameters:
//   - name: Server name used in log messages
//   - addr: The "host:port" to listen on; port 0 picks a free port
//   - newSession: Factory for per-connection sessions
//   - l: Logger for accept loop events
func New(name, addr string, newSession NewSessionFunc, l logger.Logger) *TCPServer {
	return &TCPServer{
		Logger:      l,
		Name:        name,
		Addr:        addr,
		Sessions:    safemap.NewSafeMap[uint64, TCPServerSession](),
		NewSession:  newSession,
		IdGenerator: idgenerator.NewIdGenerator(0),
	}
}

// State returns the current lifecycle state.
func (s *TCPServer) State() State {
	return State(s.state.Load())
}

// ListenAddr returns the bound address, or nil before Start succeeds.
func (s *TCPServer) ListenAddr() net.Addr {
	if s.Listener == nil {
		return nil
	}

	return s.Listener.Addr()
}

// Start binds to Addr and runs the accept loop in a goroutine.
//
// Returns:
//   - An error if the server was already started or listening on Addr fails
func (s *TCPServer) Start() error {
	if s.State() != Starting || s.Listener != nil {
		return fmt.Errorf("server %s already started", s.Name)
	}

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		s.Logger.Error("server failed to start", logger.F("error", err))
		return fmt.Errorf("server %s failed to start: %w", s.Name, err)
	}

	s.Listener = ln
	s.state.Store(int32(Accepting))

	s.Logger.Info(fmt.Sprintf("%s server started", s.Name), logger.F("addr", ln.Addr().String()))
	go s.AcceptLoop()

	return nil
}

// Stop closes the listener, closes every live session and waits for their
// handlers to return. It is safe to call more than once and before Start.
func (s *TCPServer) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.state.Store(int32(ShuttingDown))
		s.mu.Unlock()

		if s.Listener != nil {
			_ = s.Listener.Close()
		}

		closed := 0
		s.Sessions.Range(func(_ uint64, session TCPServerSession) bool {
			_ = session.Close()
			closed++
			return true
		})

		s.handlers.Wait()
		s.state.Store(int32(Stopped))
		s.Logger.Info(fmt.Sprintf("%s server stopped", s.Name), logger.F("sessions_closed", closed))
	})
}

// AcceptLoop accepts connections until the listener is closed. Each
// connection gets a fresh ID and a session whose Handle runs in its own
// goroutine. Transient accept errors are retried with a capped backoff.
func (s *TCPServer) AcceptLoop() {
	backoff := time.Duration(0)
	for {
		conn, err := s.Listener.Accept()
		if err != nil {
			if s.State() != Accepting || errors.Is(err, net.ErrClosed) {
				return
			}

			backoff = min(max(backoff*2, minAcceptBackoff), maxAcceptBackoff)
			s.Logger.Error(fmt.Sprintf("%s server accept error", s.Name),
				logger.F("error", err), logger.F("retry_in", backoff.String()))
			time.Sleep(backoff)
			continue
		}

		backoff = 0
		s.serve(conn)
	}
}

func (s *TCPServer) serve(conn net.Conn) {
	s.mu.Lock()
	if s.State() != Accepting {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}

	id := s.IdGenerator.Id()
	session := s.NewSession(id, conn)
	s.Sessions.Store(id, session)
	s.handlers.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.handlers.Done()
		defer s.Sessions.Delete(id)
		session.Handle()
	}()
}
