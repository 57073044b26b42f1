package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so flags, environment loading and the
// binaries agree on them.

const (
	// DefaultHost is the address the server binds to.
	DefaultHost = "0.0.0.0"

	// DefaultPort is the chat server port.
	DefaultPort = 50000

	// DefaultServerName identifies the server in logs and cache keys.
	DefaultServerName = "chat"

	// DefaultQueueSize bounds each session's outbound queue.
	DefaultQueueSize = 256

	// DefaultJoinTimeout is how long a new connection has to send Join.
	DefaultJoinTimeout = 10 * time.Second

	// DefaultWriteTimeout bounds every write to a peer.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultConnectTimeout bounds the client's dial.
	DefaultConnectTimeout = 10 * time.Second

	// DefaultMaxPayload caps a single frame's payload.
	DefaultMaxPayload = 1 << 20

	// MaxMaxPayload is the largest payload cap accepted from configuration.
	MaxMaxPayload = 16 << 20

	// DefaultRosterTTL bounds how stale a cached roster may be.
	DefaultRosterTTL = 5 * time.Second

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"
)

// DefaultServerConfig returns a ServerConfig populated with defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:         DefaultHost,
		Port:         DefaultPort,
		Name:         DefaultServerName,
		QueueSize:    DefaultQueueSize,
		JoinTimeout:  DefaultJoinTimeout,
		WriteTimeout: DefaultWriteTimeout,
		MaxPayload:   DefaultMaxPayload,
		RosterTTL:    DefaultRosterTTL,
		LogLevel:     DefaultLogLevel,
	}
}

// DefaultClientConfig returns a ClientConfig populated with defaults.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Port:           DefaultPort,
		ConnectTimeout: DefaultConnectTimeout,
		JoinTimeout:    DefaultJoinTimeout,
		WriteTimeout:   DefaultWriteTimeout,
		MaxPayload:     DefaultMaxPayload,
		LogLevel:       DefaultLogLevel,
	}
}
