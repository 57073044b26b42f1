// Package chatclient is the client endpoint of the chat protocol. It dials a
// server, performs the join handshake, relays typed lines to the server and
// hands everything the server sends to a Renderer.
package chatclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/cyberinferno/go-chat/chat"
	"github.com/cyberinferno/go-chat/logger"
	"github.com/cyberinferno/go-chat/protocol"
	"golang.org/x/sync/errgroup"
)

const defaultLeaveGrace = 5 * time.Second

// Config holds configuration for the chat client.
type Config struct {
	// Address is the "host:port" of the chat server.
	Address string
	// Name is the display name announced in the join handshake.
	Name string
	// ConnectionTimeout is the max duration for establishing the connection.
	ConnectionTimeout time.Duration
	// JoinTimeout is the max duration to wait for the server's answer to the
	// join; 0 means no timeout.
	JoinTimeout time.Duration
	// WriteTimeout is the max duration for a single write; 0 means no timeout.
	WriteTimeout time.Duration
	// MaxPayload caps inbound frame payloads and input line length; <= 0
	// selects the protocol default.
	MaxPayload int
	// OnConnectionState, when set, is told about every state change.
	OnConnectionState ConnectionStateHandler
	// Logger receives client diagnostics; nil discards them.
	Logger logger.Logger
}

// DefaultConfig returns a Config with default values for the given server
// address and display name.
//
// Returns:
//   - A Config with defaults: ConnectionTimeout 10s, JoinTimeout 10s,
//     WriteTimeout 10s, MaxPayload protocol.DefaultMaxPayload
func DefaultConfig(address, name string) Config {
	return Config{
		Address:           address,
		Name:              name,
		ConnectionTimeout: 10 * time.Second,
		JoinTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		MaxPayload:        protocol.DefaultMaxPayload,
	}
}

// Client is a joined chat connection. It is safe for concurrent use.
type Client struct {
	cfg  Config
	conn net.Conn
	dec  *protocol.Decoder
	log  logger.Logger

	mu        sync.RWMutex
	state     ConnectionState
	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to cfg.Address and joins as cfg.Name.
//
// Parameters:
//   - ctx: Bounds the dial and the handshake together with the configured timeouts
//   - cfg: Connection settings (e.g. from DefaultConfig)
//
// Returns:
//   - A Connected client on success
//   - An error wrapping chat.ErrInvalidName if cfg.Name cannot be sent
//   - *RejectedError if the server answered the join with an Error frame
//   - An error wrapping ErrHandshake if no usable answer arrived
//   - The dial error otherwise
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	if cfg.MaxPayload <= 0 {
		cfg.MaxPayload = protocol.DefaultMaxPayload
	}

	if err := chat.ValidateName(cfg.Name); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:   cfg,
		dec:   protocol.NewDecoder(cfg.MaxPayload),
		log:   cfg.Logger.With(logger.F("server", cfg.Address)),
		state: Disconnected,
		done:  make(chan struct{}),
	}

	c.setState(Connecting, nil)

	dialer := net.Dialer{Timeout: cfg.ConnectionTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Address)
	if err != nil {
		c.setState(Disconnected, err)
		return nil, fmt.Errorf("connect %s: %w", cfg.Address, err)
	}

	c.conn = conn
	if err := c.handshake(ctx); err != nil {
		_ = conn.Close()
		c.setState(Disconnected, err)
		return nil, err
	}

	c.setState(Connected, nil)
	c.log.Info("joined", logger.F("name", cfg.Name))

	return c, nil
}

func (c *Client) handshake(ctx context.Context) error {
	if err := c.write(protocol.Join{Name: c.cfg.Name}); err != nil {
		return fmt.Errorf("%w: send join: %w", ErrHandshake, err)
	}

	var deadline time.Time
	if c.cfg.JoinTimeout > 0 {
		deadline = time.Now().Add(c.cfg.JoinTimeout)
	}

	_ = c.conn.SetReadDeadline(deadline)
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})

	f, err := c.dec.ReadFrame(c.conn)
	if !stop() {
		return fmt.Errorf("%w: %w", ErrHandshake, ctx.Err())
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrHandshake, err)
	}

	switch v := f.(type) {
	case protocol.Ack:
		return c.conn.SetReadDeadline(time.Time{})
	case protocol.Error:
		return &RejectedError{Reason: v.Reason}
	default:
		return fmt.Errorf("%w: got %s before ack", ErrHandshake, f.Type())
	}
}

// Name returns the display name the client joined with.
func (c *Client) Name() string {
	return c.cfg.Name
}

// GetState returns the current connection state.
func (c *Client) GetState() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Done is closed once the client has been closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Send writes f to the server.
//
// Returns:
//   - nil on success
//   - ErrNotConnected if the client is not in the Connected state
//   - An error wrapping protocol.ErrInvalidFrame if f cannot be encoded
//   - The write error otherwise
func (c *Client) Send(f protocol.Frame) error {
	if c.GetState() != Connected {
		return ErrNotConnected
	}

	if err := c.write(f); err != nil {
		return fmt.Errorf("send %s: %w", f.Type(), err)
	}

	return nil
}

// Chat sends a chat line.
func (c *Client) Chat(text string) error {
	return c.Send(protocol.Chat{Text: text})
}

// List asks the server for the roster of joined names.
func (c *Client) List() error {
	return c.Send(protocol.List{})
}

// Leave announces a graceful departure. The server closes the connection
// once it has flushed what it still had queued for this client.
func (c *Client) Leave() error {
	return c.Send(protocol.Leave{})
}

// Close closes the connection and moves the client to the Closed state.
// Idempotent; calling Close multiple times is safe and returns nil.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
		c.setState(Closed, nil)
	})

	return nil
}

// Run relays input lines to the server and server frames to r until the
// connection ends.
//
// Each input line is sent as chat text, except for the commands /quit and
// /exit, which leave, and /who and /list, which request the roster. Blank
// lines are ignored. End of input and cancellation of ctx both leave
// gracefully.
//
// Parameters:
//   - ctx: Cancelling it leaves the chat
//   - input: Source of user lines
//   - r: Receives every frame the server sends; may be nil
//
// Returns:
//   - nil when the connection ended, whichever side ended it
//   - ErrNotConnected if the client is not Connected
//   - An error wrapping protocol.ErrMalformedFrame if the server sent garbage
func (c *Client) Run(ctx context.Context, input io.Reader, r Renderer) error {
	if c.GetState() != Connected {
		return ErrNotConnected
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer c.Close()
		return c.receive(r)
	})
	g.Go(func() error {
		c.relayInput(gctx, input)
		return nil
	})

	err := g.Wait()
	_ = c.Close()

	return err
}

func (c *Client) receive(r Renderer) error {
	for {
		f, err := c.dec.ReadFrame(c.conn)
		if err != nil {
			switch {
			case errors.Is(err, protocol.ErrMalformedFrame):
				c.log.Error("malformed frame from server", logger.F("error", err))
				return fmt.Errorf("receive: %w", err)
			case c.isClosed(), errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
				c.log.Info("connection closed")
			default:
				c.log.Warn("connection lost", logger.F("error", err))
			}

			return nil
		}

		if r != nil {
			r.Render(f)
		}
	}
}

func (c *Client) relayInput(ctx context.Context, input io.Reader) {
	lines := c.scanLines(input)
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			c.leave()
			return
		case line, ok := <-lines:
			if !ok {
				c.leave()
				return
			}

			if !c.handleLine(line) {
				return
			}
		}
	}
}

// handleLine sends what line asks for and reports whether to keep reading.
func (c *Client) handleLine(line string) bool {
	text := strings.TrimRight(line, "\r")
	if strings.TrimSpace(text) == "" {
		return true
	}

	// Commands are matched on the whole first word; "/quitting" is chat.
	var err error
	switch strings.Fields(text)[0] {
	case "/quit", "/exit":
		c.leave()
		return false
	case "/who", "/list":
		err = c.List()
	default:
		err = c.Chat(text)
	}

	if err != nil {
		c.log.Warn("send failed", logger.F("error", err))
		return !errors.Is(err, ErrNotConnected)
	}

	return true
}

// leave sends Leave and closes the client if the server has not closed the
// connection within the write timeout.
func (c *Client) leave() {
	if err := c.Leave(); err != nil {
		_ = c.Close()
		return
	}

	grace := c.cfg.WriteTimeout
	if grace <= 0 {
		grace = defaultLeaveGrace
	}

	timer := time.AfterFunc(grace, func() { _ = c.Close() })
	go func() {
		<-c.done
		timer.Stop()
	}()
}

// scanLines feeds input lines to the returned channel, which is closed at
// end of input. The scanning goroutine may stay blocked on input after the
// client closes.
func (c *Client) scanLines(input io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)

		sc := bufio.NewScanner(input)
		sc.Buffer(make([]byte, 0, 4096), c.cfg.MaxPayload)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-c.done:
				return
			}
		}

		if err := sc.Err(); err != nil {
			c.log.Warn("input failed", logger.F("error", err))
		}
	}()

	return lines
}

func (c *Client) write(f protocol.Frame) error {
	data, err := protocol.Encode(f)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.cfg.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}

	_, err = c.conn.Write(data)
	return err
}

func (c *Client) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Client) setState(state ConnectionState, err error) {
	c.mu.Lock()
	c.state = state
	handler := c.cfg.OnConnectionState
	c.mu.Unlock()

	if handler != nil {
		handler(ConnectionStateEvent{
			State:     state,
			Address:   c.cfg.Address,
			Timestamp: time.Now(),
			Error:     err,
		})
	}
}
