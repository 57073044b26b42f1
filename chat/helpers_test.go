package chat

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/cyberinferno/go-chat/logger"
	"github.com/cyberinferno/go-chat/protocol"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

// recordingHandler captures what a session delivers.
type recordingHandler struct {
	mu      sync.Mutex
	frames  []protocol.Frame
	closed  []error
	onFrame func(s *Session, f protocol.Frame)
}

func (h *recordingHandler) HandleFrame(s *Session, f protocol.Frame) {
	h.mu.Lock()
	h.frames = append(h.frames, f)
	cb := h.onFrame
	h.mu.Unlock()
	if cb != nil {
		cb(s, f)
	}
}

func (h *recordingHandler) SessionClosed(_ *Session, cause error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = append(h.closed, cause)
}

func (h *recordingHandler) Frames() []protocol.Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]protocol.Frame(nil), h.frames...)
}

func (h *recordingHandler) Closed() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]error(nil), h.closed...)
}

// pipeSession returns a session over one end of net.Pipe and the peer end.
func pipeSession(t *testing.T, id uint64, cfg SessionConfig, h FrameHandler) (*Session, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	return NewSession(id, server, cfg, h, logger.Nop()), client
}

// namedSession returns a session with its name set, never started.
func namedSession(t *testing.T, id uint64, name string) *Session {
	t.Helper()
	s, _ := pipeSession(t, id, SessionConfig{QueueSize: 8}, &recordingHandler{})
	require.True(t, s.setName(name))
	return s
}

// peer is a raw protocol client used against a running server.
type peer struct {
	t    *testing.T
	conn net.Conn
	dec  *protocol.Decoder
}

func dialPeer(t *testing.T, addr net.Addr) *peer {
	t.Helper()
	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &peer{t: t, conn: conn, dec: protocol.NewDecoder(0)}
}

func wrapPeer(t *testing.T, conn net.Conn) *peer {
	return &peer{t: t, conn: conn, dec: protocol.NewDecoder(0)}
}

func (p *peer) send(f protocol.Frame) {
	p.t.Helper()
	_, err := p.conn.Write(protocol.MustEncode(f))
	require.NoError(p.t, err)
}

func (p *peer) next() protocol.Frame {
	p.t.Helper()
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(waitFor)))
	f, err := p.dec.ReadFrame(p.conn)
	require.NoError(p.t, err)
	return f
}

// closedByServer reports whether the server ended the connection.
func (p *peer) closedByServer() bool {
	_ = p.conn.SetReadDeadline(time.Now().Add(waitFor))
	for {
		_, err := p.dec.ReadFrame(p.conn)
		if err == nil {
			continue
		}
		var ne net.Error
		return !(errors.As(err, &ne) && ne.Timeout())
	}
}

// join connects, joins as name and consumes the Ack.
func join(t *testing.T, addr net.Addr, name string) *peer {
	t.Helper()
	p := dialPeer(t, addr)
	p.send(protocol.Join{Name: name})
	require.Equal(t, protocol.Ack{Text: AckConnected}, p.next())
	return p
}

// quiet reports whether no frame arrives within d.
func (p *peer) quiet(d time.Duration) bool {
	p.t.Helper()
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(d)))
	f, err := p.dec.ReadFrame(p.conn)
	if err == nil {
		p.t.Logf("unexpected frame: %#v", f)
		return false
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// queued drains and decodes the frames waiting in a session's outbound
// queue. The session must not be running its write loop.
func queued(t *testing.T, s *Session) []protocol.Frame {
	t.Helper()
	var frames []protocol.Frame
	for {
		select {
		case item := <-s.out:
			if len(item.data) == 0 {
				continue
			}
			f, _, err := protocol.Decode(item.data, 0)
			require.NoError(t, err)
			frames = append(frames, f)
		default:
			return frames
		}
	}
}
