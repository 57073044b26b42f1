package chat

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cyberinferno/go-chat/logger"
	"github.com/cyberinferno/go-chat/protocol"
)

// FrameHandler receives what a session reads and learns when it ends.
// Router is the production implementation.
type FrameHandler interface {
	// HandleFrame is called from the session's read goroutine, one frame at
	// a time, in arrival order.
	HandleFrame(s *Session, f protocol.Frame)

	// SessionClosed is called exactly once, from whichever goroutine closed
	// the session.
	SessionClosed(s *Session, cause error)
}

// SessionConfig tunes one session.
type SessionConfig struct {
	// QueueSize bounds the outbound queue. A full queue closes the session.
	QueueSize int
	// JoinTimeout is how long the peer has to complete the join handshake;
	// 0 disables the limit.
	JoinTimeout time.Duration
	// WriteTimeout bounds each write to the transport; 0 disables the limit.
	WriteTimeout time.Duration
	// MaxPayload caps inbound frame payloads; <= 0 selects the protocol default.
	MaxPayload int
}

// Presence announcement states, see Router.depart.
const (
	presencePending int32 = iota
	presenceAnnounced
	presenceDeparted
)

type outbound struct {
	data  []byte
	final bool  // close the session once written
	cause error // close cause when final
}

// Session is one connected peer. It owns its connection, reads frames on
// one goroutine and drains its outbound queue to the connection on another.
// Every way a session can end funnels into Close, which runs once.
type Session struct {
	id      uint64
	conn    net.Conn
	cfg     SessionConfig
	handler FrameHandler
	log     logger.Logger

	name     atomic.Pointer[string]
	joined   atomic.Bool
	presence atomic.Int32

	out       chan outbound
	closing   atomic.Bool // no new frames are accepted
	done      chan struct{}
	closeOnce sync.Once
	cause     error
}

// NewSession wraps conn. The session does nothing until Handle runs.
func NewSession(id uint64, conn net.Conn, cfg SessionConfig, handler FrameHandler, l logger.Logger) *Session {
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}

	return &Session{
		id:      id,
		conn:    conn,
		cfg:     cfg,
		handler: handler,
		log:     l.With(logger.F("session_id", id), logger.F("remote", conn.RemoteAddr().String())),
		out:     make(chan outbound, cfg.QueueSize),
		done:    make(chan struct{}),
	}
}

// ID implements tcpserver.TCPServerSession.
func (s *Session) ID() uint64 { return s.id }

// Name returns the display name, or "" before the join handshake.
func (s *Session) Name() string {
	if p := s.name.Load(); p != nil {
		return *p
	}

	return ""
}

// Joined reports whether the session completed the join handshake.
func (s *Session) Joined() bool { return s.joined.Load() }

// RemoteAddr returns the peer address.
func (s *Session) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

// Done is closed when the session has terminated.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns why the session closed, or nil while it is open.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.cause
	default:
		return nil
	}
}

// setName records the display name. It succeeds only the first time.
func (s *Session) setName(name string) bool {
	return s.name.CompareAndSwap(nil, &name)
}

// markJoined lifts the handshake deadline. Called from the read goroutine.
func (s *Session) markJoined() {
	s.joined.Store(true)
	_ = s.conn.SetReadDeadline(time.Time{})
}

// Send queues f for delivery. It never blocks.
//
// Returns:
//   - nil once f is queued
//   - ErrSessionClosed if the session has terminated, or was just closed
//     because its queue was full
//   - An error wrapping protocol.ErrInvalidFrame if f cannot be encoded
func (s *Session) Send(f protocol.Frame) error {
	if s.closing.Load() {
		return ErrSessionClosed
	}

	data, err := protocol.Encode(f)
	if err != nil {
		return err
	}

	return s.sendEncoded(data)
}

// sendEncoded queues an already encoded frame; a broadcast encodes once and
// calls this for every recipient.
func (s *Session) sendEncoded(data []byte) error {
	if s.closing.Load() {
		return ErrSessionClosed
	}

	select {
	case s.out <- outbound{data: data}:
		return nil
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	s.log.Warn("outbound queue full, dropping slow session", logger.F("queue_size", s.cfg.QueueSize))
	s.Close(ErrQueueFull)
	return ErrSessionClosed
}

// offer queues data without the close-on-full policy. It is used while the
// registry lock is held, where closing would re-enter the registry.
func (s *Session) offer(data []byte) bool {
	select {
	case s.out <- outbound{data: data}:
		return true
	default:
		return false
	}
}

// Fail sends Error{reason} to the peer and closes the session once the frame
// is written, or after WriteTimeout at the latest. Frames sent after Fail are
// rejected with ErrSessionClosed.
func (s *Session) Fail(reason string, cause error) {
	if s.finish(protocol.MustEncode(protocol.Error{Reason: reason}), cause) {
		s.log.Info("closing session", logger.F("reason", reason), logger.F("cause", errString(cause)))
	}
}

// Finish closes the session once every frame already queued has been
// written. It is the graceful counterpart of Close.
func (s *Session) Finish(cause error) {
	s.finish(nil, cause)
}

// finish stops accepting frames and queues a final item carrying data, which
// may be empty. It reports whether this call started the shutdown.
func (s *Session) finish(data []byte, cause error) bool {
	if !s.closing.CompareAndSwap(false, true) {
		return false
	}

	select {
	case s.out <- outbound{data: data, final: true, cause: cause}:
	default:
		s.Close(cause)
		return true
	}

	grace := s.cfg.WriteTimeout
	if grace <= 0 {
		grace = 5 * time.Second
	}
	timer := time.AfterFunc(grace, func() { s.Close(cause) })
	go func() {
		<-s.done
		timer.Stop()
	}()

	return true
}

// Close terminates the session: nothing further is written, the connection
// is closed and the handler is told before Done is closed. Only the first
// call has any effect.
func (s *Session) Close(cause error) {
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		s.cause = cause
		_ = s.conn.Close()

		s.log.Debug("session closed", logger.F("cause", errString(cause)))
		if s.handler != nil {
			s.handler.SessionClosed(s, cause)
		}
		close(s.done)
	})
}

// Handle runs the read loop on the calling goroutine and the write loop on
// another, and returns once both have stopped.
func (s *Session) Handle() {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop()
	}()

	err := s.readLoop()
	if !s.closing.Load() {
		s.Close(err)
	}

	<-s.done
	<-writerDone
}

func (s *Session) readLoop() error {
	if s.cfg.JoinTimeout > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.JoinTimeout))
	}

	dec := protocol.NewDecoder(s.cfg.MaxPayload)
	for {
		f, err := dec.ReadFrame(s.conn)
		if err != nil {
			return s.readFailed(err)
		}

		s.log.Debug("frame received", logger.F("type", f.Type().String()))
		s.handler.HandleFrame(s, f)
		if s.closing.Load() {
			return nil
		}
	}
}

func (s *Session) readFailed(err error) error {
	var netErr net.Error
	switch {
	case s.closing.Load():
		return err
	case errors.Is(err, protocol.ErrMalformedFrame):
		s.Fail(ReasonMalformedFrame, err)
	case errors.As(err, &netErr) && netErr.Timeout() && !s.Joined():
		s.Fail(ReasonJoinTimeout, ErrJoinTimeout)
		return ErrJoinTimeout
	case errors.Is(err, io.EOF):
		s.log.Debug("peer closed connection")
	default:
		s.log.Debug("read failed", logger.F("error", err))
	}

	return err
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case item := <-s.out:
			if s.cfg.WriteTimeout > 0 {
				_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			}

			if len(item.data) > 0 {
				if _, err := s.conn.Write(item.data); err != nil {
					s.Close(fmt.Errorf("write: %w", err))
					return
				}
			}

			if item.final {
				s.Close(item.cause)
				return
			}
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
