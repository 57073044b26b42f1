// Package config defines the runtime configuration of the chat server and
// client and loads it from defaults, the environment and CLI flags.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/cyberinferno/go-chat/chat"
	"github.com/cyberinferno/go-chat/logger"
)

// ErrInvalidConfig is wrapped by every Validate error.
var ErrInvalidConfig = errors.New("invalid configuration")

// ServerConfig holds every tuneable of the chat server.
type ServerConfig struct {
	// ── Listener ─────────────────────────────────────────────────────
	Host string
	Port int // 0 picks a free port
	Name string

	// ── Sessions ─────────────────────────────────────────────────────
	QueueSize    int
	JoinTimeout  time.Duration
	WriteTimeout time.Duration
	MaxPayload   int

	// ── Roster cache ─────────────────────────────────────────────────
	RosterTTL     time.Duration
	RedisAddr     string // empty → in-memory cache
	RedisPassword string
	RedisDB       int

	// ── Output ───────────────────────────────────────────────────────
	LogLevel string
	LogDir   string // empty → stdout only
}

// Addr returns the "host:port" to listen on.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate reports the first setting the server cannot run with.
func (c *ServerConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range 0-65535", ErrInvalidConfig, c.Port)
	}
	if c.Name == "" {
		return fmt.Errorf("%w: server name is required", ErrInvalidConfig)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("%w: queue size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	}
	if c.JoinTimeout <= 0 {
		return fmt.Errorf("%w: join timeout must be positive", ErrInvalidConfig)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("%w: write timeout must be positive", ErrInvalidConfig)
	}
	if err := validatePayload(c.MaxPayload); err != nil {
		return err
	}
	if c.RosterTTL <= 0 {
		return fmt.Errorf("%w: roster ttl must be positive", ErrInvalidConfig)
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("%w: redis db must not be negative", ErrInvalidConfig)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ClientConfig holds every tuneable of the chat client.
type ClientConfig struct {
	Server         string
	Port           int
	Name           string
	ConnectTimeout time.Duration
	JoinTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxPayload     int
	LogLevel       string
}

// Addr returns the server's "host:port".
func (c *ClientConfig) Addr() string {
	return net.JoinHostPort(c.Server, strconv.Itoa(c.Port))
}

// Validate reports the first setting the client cannot run with.
func (c *ClientConfig) Validate() error {
	if c.Server == "" {
		return fmt.Errorf("%w: server address is required (--server)", ErrInvalidConfig)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range 1-65535", ErrInvalidConfig, c.Port)
	}
	if err := chat.ValidateName(c.Name); err != nil {
		return fmt.Errorf("%w: --name: %w", ErrInvalidConfig, err)
	}
	if c.ConnectTimeout <= 0 || c.JoinTimeout <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}
	if err := validatePayload(c.MaxPayload); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func validatePayload(n int) error {
	if n < 1 || n > MaxMaxPayload {
		return fmt.Errorf("%w: max payload %d out of range 1-%d", ErrInvalidConfig, n, MaxMaxPayload)
	}
	return nil
}
