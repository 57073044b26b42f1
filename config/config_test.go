package config

import (
	"io"
	"strings"
	"testing"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberinferno/go-chat/chat"
)

func TestDefaultServerConfig_Valid(t *testing.T) {
	cfg := DefaultServerConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "0.0.0.0:50000", cfg.Addr())
}

func TestServerConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ServerConfig)
		errSub string
	}{
		{"port too large", func(c *ServerConfig) { c.Port = 70000 }, "port"},
		{"negative port", func(c *ServerConfig) { c.Port = -1 }, "port"},
		{"missing name", func(c *ServerConfig) { c.Name = "" }, "server name"},
		{"zero queue", func(c *ServerConfig) { c.QueueSize = 0 }, "queue size"},
		{"zero join timeout", func(c *ServerConfig) { c.JoinTimeout = 0 }, "join timeout"},
		{"zero write timeout", func(c *ServerConfig) { c.WriteTimeout = 0 }, "write timeout"},
		{"zero payload", func(c *ServerConfig) { c.MaxPayload = 0 }, "max payload"},
		{"huge payload", func(c *ServerConfig) { c.MaxPayload = MaxMaxPayload + 1 }, "max payload"},
		{"zero roster ttl", func(c *ServerConfig) { c.RosterTTL = 0 }, "roster ttl"},
		{"negative redis db", func(c *ServerConfig) { c.RedisDB = -1 }, "redis db"},
		{"bad log level", func(c *ServerConfig) { c.LogLevel = "loud" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultServerConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.errSub)
		})
	}

	t.Run("port zero picks a free port", func(t *testing.T) {
		cfg := DefaultServerConfig()
		cfg.Port = 0
		assert.NoError(t, cfg.Validate())
	})
}

func validClient() *ClientConfig {
	cfg := DefaultClientConfig()
	cfg.Server = "chat.example.com"
	cfg.Name = "Alice"
	return cfg
}

func TestClientConfig_Validate(t *testing.T) {
	require.NoError(t, validClient().Validate())
	assert.Equal(t, "chat.example.com:50000", validClient().Addr())

	tests := []struct {
		name   string
		mutate func(*ClientConfig)
	}{
		{"missing server", func(c *ClientConfig) { c.Server = "" }},
		{"port zero", func(c *ClientConfig) { c.Port = 0 }},
		{"port too large", func(c *ClientConfig) { c.Port = 65536 }},
		{"missing name", func(c *ClientConfig) { c.Name = "" }},
		{"name too long", func(c *ClientConfig) { c.Name = strings.Repeat("a", 256) }},
		{"zero connect timeout", func(c *ClientConfig) { c.ConnectTimeout = 0 }},
		{"zero join timeout", func(c *ClientConfig) { c.JoinTimeout = 0 }},
		{"zero payload", func(c *ClientConfig) { c.MaxPayload = 0 }},
		{"bad log level", func(c *ClientConfig) { c.LogLevel = "chatty" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validClient()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	t.Run("name error keeps its cause", func(t *testing.T) {
		cfg := validClient()
		cfg.Name = ""
		assert.ErrorIs(t, cfg.Validate(), chat.ErrInvalidName)
	})
}

func TestLoadServerEnv(t *testing.T) {
	t.Setenv("CHAT_HOST", "127.0.0.1")
	t.Setenv("CHAT_PORT", "6000")
	t.Setenv("CHAT_SERVER_NAME", "lobby")
	t.Setenv("CHAT_QUEUE_SIZE", "32")
	t.Setenv("CHAT_JOIN_TIMEOUT", "3")
	t.Setenv("CHAT_WRITE_TIMEOUT", "750ms")
	t.Setenv("CHAT_MAX_PAYLOAD", "4096")
	t.Setenv("CHAT_ROSTER_TTL", "1m")
	t.Setenv("CHAT_REDIS_ADDR", "localhost:6379")
	t.Setenv("CHAT_REDIS_PASSWORD", "secret")
	t.Setenv("CHAT_REDIS_DB", "2")
	t.Setenv("CHAT_LOG_LEVEL", "debug")
	t.Setenv("CHAT_LOG_DIR", "/var/log/chat")

	cfg := DefaultServerConfig()
	LoadServerEnv(cfg)

	assert.Equal(t, &ServerConfig{
		Host:          "127.0.0.1",
		Port:          6000,
		Name:          "lobby",
		QueueSize:     32,
		JoinTimeout:   3 * time.Second,
		WriteTimeout:  750 * time.Millisecond,
		MaxPayload:    4096,
		RosterTTL:     time.Minute,
		RedisAddr:     "localhost:6379",
		RedisPassword: "secret",
		RedisDB:       2,
		LogLevel:      "debug",
		LogDir:        "/var/log/chat",
	}, cfg)
}

func TestLoadServerEnv_IgnoresMalformed(t *testing.T) {
	t.Setenv("CHAT_PORT", "not-a-port")
	t.Setenv("CHAT_JOIN_TIMEOUT", "soon")

	cfg := DefaultServerConfig()
	LoadServerEnv(cfg)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultJoinTimeout, cfg.JoinTimeout)
}

func TestLoadClientEnv(t *testing.T) {
	t.Setenv("CHAT_SERVER", "10.0.0.5")
	t.Setenv("CHAT_PORT", "6001")
	t.Setenv("CHAT_NAME", "Bob")
	t.Setenv("CHAT_CONNECT_TIMEOUT", "2s")
	t.Setenv("CHAT_LOG_LEVEL", "warn")

	cfg := DefaultClientConfig()
	LoadClientEnv(cfg)

	assert.Equal(t, "10.0.0.5", cfg.Server)
	assert.Equal(t, 6001, cfg.Port)
	assert.Equal(t, "Bob", cfg.Name)
	assert.Equal(t, 2*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, DefaultJoinTimeout, cfg.JoinTimeout)
}

func TestParseServerArgs(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := ParseServerArgs(nil, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, DefaultServerConfig(), cfg)
	})

	t.Run("flags", func(t *testing.T) {
		cfg, err := ParseServerArgs([]string{
			"--host", "127.0.0.1", "-p", "6000", "--queue-size", "16",
			"--join-timeout", "2s", "--roster-ttl", "30s", "--redis-addr", "redis:6379",
			"--log-level", "debug", "--log-dir", "/tmp/chat",
		}, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:6000", cfg.Addr())
		assert.Equal(t, 16, cfg.QueueSize)
		assert.Equal(t, 2*time.Second, cfg.JoinTimeout)
		assert.Equal(t, 30*time.Second, cfg.RosterTTL)
		assert.Equal(t, "redis:6379", cfg.RedisAddr)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "/tmp/chat", cfg.LogDir)
	})

	t.Run("flags override env", func(t *testing.T) {
		t.Setenv("CHAT_PORT", "6000")
		t.Setenv("CHAT_HOST", "10.0.0.1")

		cfg, err := ParseServerArgs([]string{"--port", "7000"}, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, 7000, cfg.Port)
		assert.Equal(t, "10.0.0.1", cfg.Host)
	})

	t.Run("help", func(t *testing.T) {
		var out strings.Builder
		_, err := ParseServerArgs([]string{"--help"}, &out)
		assert.ErrorIs(t, err, flag.ErrHelp)
		assert.Contains(t, out.String(), "--redis-addr")
	})

	t.Run("unknown flag", func(t *testing.T) {
		_, err := ParseServerArgs([]string{"--bogus"}, io.Discard)
		assert.Error(t, err)
	})

	t.Run("positional argument", func(t *testing.T) {
		_, err := ParseServerArgs([]string{"extra"}, io.Discard)
		assert.ErrorContains(t, err, "unexpected argument")
	})

	t.Run("invalid value", func(t *testing.T) {
		_, err := ParseServerArgs([]string{"--queue-size", "0"}, io.Discard)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestParseClientArgs(t *testing.T) {
	t.Run("flags", func(t *testing.T) {
		cfg, err := ParseClientArgs([]string{"--server", "192.168.0.10", "--port", "50001", "--name", "Alice"}, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, "192.168.0.10:50001", cfg.Addr())
		assert.Equal(t, "Alice", cfg.Name)
		assert.Equal(t, DefaultConnectTimeout, cfg.ConnectTimeout)
	})

	t.Run("shorthands", func(t *testing.T) {
		cfg, err := ParseClientArgs([]string{"-s", "localhost", "-n", "Bob"}, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, "localhost:50000", cfg.Addr())
		assert.Equal(t, "Bob", cfg.Name)
	})

	t.Run("env fills the gaps", func(t *testing.T) {
		t.Setenv("CHAT_SERVER", "chat.local")
		t.Setenv("CHAT_NAME", "Carol")

		cfg, err := ParseClientArgs(nil, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, "chat.local:50000", cfg.Addr())
		assert.Equal(t, "Carol", cfg.Name)
	})

	t.Run("name is required", func(t *testing.T) {
		_, err := ParseClientArgs([]string{"--server", "localhost"}, io.Discard)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}
