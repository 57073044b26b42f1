package tcpserver

import (
	"bufio"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cyberinferno/go-chat/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoSession writes back every line it reads.
type echoSession struct {
	id     uint64
	conn   net.Conn
	once   sync.Once
	closed atomic.Bool
}

func (e *echoSession) ID() uint64 { return e.id }

func (e *echoSession) Handle() {
	r := bufio.NewReader(e.conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			_ = e.Close()
			return
		}
		if _, err := e.conn.Write([]byte(line)); err != nil {
			_ = e.Close()
			return
		}
	}
}

func (e *echoSession) Close() error {
	e.once.Do(func() {
		e.closed.Store(true)
		_ = e.conn.Close()
	})
	return nil
}

func newEchoServer(t *testing.T) (*TCPServer, *sync.Map) {
	t.Helper()
	var created sync.Map
	srv := New("echo", "127.0.0.1:0", func(id uint64, conn net.Conn) TCPServerSession {
		s := &echoSession{id: id, conn: conn}
		created.Store(id, s)
		return s
	}, logger.Nop())
	return srv, &created
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "Starting", Starting.String())
	assert.Equal(t, "Accepting", Accepting.String())
	assert.Equal(t, "ShuttingDown", ShuttingDown.String())
	assert.Equal(t, "Stopped", Stopped.String())
	assert.Equal(t, "Unknown", State(42).String())
}

func TestTCPServer_Lifecycle(t *testing.T) {
	srv, _ := newEchoServer(t)
	assert.Equal(t, Starting, srv.State())
	assert.Nil(t, srv.ListenAddr())

	require.NoError(t, srv.Start())
	assert.Equal(t, Accepting, srv.State())
	require.NotNil(t, srv.ListenAddr())

	assert.Error(t, srv.Start(), "second start must fail")

	srv.Stop()
	assert.Equal(t, Stopped, srv.State())
	srv.Stop()
	assert.Equal(t, Stopped, srv.State())
}

func TestTCPServer_Start_BindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv := New("dup", ln.Addr().String(), nil, logger.Nop())
	assert.Error(t, srv.Start())
	assert.Equal(t, Starting, srv.State())
}

func TestTCPServer_ServesAndTracksSessions(t *testing.T) {
	srv, created := newEchoServer(t)
	require.NoError(t, srv.Start())
	defer srv.Stop()

	conn, err := net.Dial("tcp", srv.ListenAddr().String())
	require.NoError(t, err)

	_, err = conn.Write([]byte("ping\n"))
	require.NoError(t, err)
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "ping\n", line)

	assert.Equal(t, 1, srv.Sessions.Len())
	srv.Sessions.Range(func(id uint64, s TCPServerSession) bool {
		assert.Equal(t, uint64(1), id)
		assert.Equal(t, id, s.ID())
		return true
	})

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return srv.Sessions.Len() == 0 }, time.Second, 5*time.Millisecond)

	v, ok := created.Load(uint64(1))
	require.True(t, ok)
	assert.True(t, v.(*echoSession).closed.Load())
}

func TestTCPServer_StopClosesLiveSessions(t *testing.T) {
	srv, created := newEchoServer(t)
	require.NoError(t, srv.Start())

	var conns []net.Conn
	for i := 0; i < 3; i++ {
		c, err := net.Dial("tcp", srv.ListenAddr().String())
		require.NoError(t, err)
		defer c.Close()
		conns = append(conns, c)
	}
	assert.Eventually(t, func() bool { return srv.Sessions.Len() == 3 }, time.Second, 5*time.Millisecond)

	srv.Stop()
	assert.Equal(t, Stopped, srv.State())
	assert.Equal(t, 0, srv.Sessions.Len())

	created.Range(func(_, v any) bool {
		assert.True(t, v.(*echoSession).closed.Load())
		return true
	})

	for _, c := range conns {
		_ = c.SetReadDeadline(time.Now().Add(time.Second))
		_, err := c.Read(make([]byte, 1))
		assert.Error(t, err)
	}

	_, err := net.DialTimeout("tcp", srv.ListenAddr().String(), 200*time.Millisecond)
	assert.Error(t, err)
}
