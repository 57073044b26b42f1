package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (flags.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"time"
)

// Every supported env var uses the CHAT_ prefix. Durations accept Go
// duration syntax ("750ms", "2m") or a bare number of seconds.

// LoadServerEnv overlays environment variables onto cfg. Only non-empty,
// well-formed values override the existing ones.
func LoadServerEnv(cfg *ServerConfig) {
	if v := os.Getenv("CHAT_HOST"); v != "" {
		cfg.Host = v
	}
	if v, ok := envInt("CHAT_PORT"); ok {
		cfg.Port = v
	}
	if v := os.Getenv("CHAT_SERVER_NAME"); v != "" {
		cfg.Name = v
	}
	if v, ok := envInt("CHAT_QUEUE_SIZE"); ok {
		cfg.QueueSize = v
	}
	if v, ok := envDuration("CHAT_JOIN_TIMEOUT"); ok {
		cfg.JoinTimeout = v
	}
	if v, ok := envDuration("CHAT_WRITE_TIMEOUT"); ok {
		cfg.WriteTimeout = v
	}
	if v, ok := envInt("CHAT_MAX_PAYLOAD"); ok {
		cfg.MaxPayload = v
	}

	// Roster cache
	if v, ok := envDuration("CHAT_ROSTER_TTL"); ok {
		cfg.RosterTTL = v
	}
	if v := os.Getenv("CHAT_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("CHAT_REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v, ok := envInt("CHAT_REDIS_DB"); ok {
		cfg.RedisDB = v
	}

	// Output
	if v := os.Getenv("CHAT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CHAT_LOG_DIR"); v != "" {
		cfg.LogDir = v
	}
}

// LoadClientEnv overlays environment variables onto cfg. Only non-empty,
// well-formed values override the existing ones.
func LoadClientEnv(cfg *ClientConfig) {
	if v := os.Getenv("CHAT_SERVER"); v != "" {
		cfg.Server = v
	}
	if v, ok := envInt("CHAT_PORT"); ok {
		cfg.Port = v
	}
	if v := os.Getenv("CHAT_NAME"); v != "" {
		cfg.Name = v
	}
	if v, ok := envDuration("CHAT_CONNECT_TIMEOUT"); ok {
		cfg.ConnectTimeout = v
	}
	if v, ok := envDuration("CHAT_JOIN_TIMEOUT"); ok {
		cfg.JoinTimeout = v
	}
	if v, ok := envDuration("CHAT_WRITE_TIMEOUT"); ok {
		cfg.WriteTimeout = v
	}
	if v := os.Getenv("CHAT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envDuration(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	if sec, err := strconv.Atoi(v); err == nil {
		return time.Duration(sec) * time.Second, true
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}
