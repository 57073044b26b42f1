package config

import (
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

// ParseServerArgs builds the server configuration from defaults, the
// environment and args, in increasing order of precedence, and validates it.
//
// Parameters:
//   - args: Command-line arguments without the program name
//   - out: Where usage and parse errors are printed
//
// Returns:
//   - The validated configuration
//   - pflag.ErrHelp if -h/--help was given
//   - A parse error or an error wrapping ErrInvalidConfig otherwise
func ParseServerArgs(args []string, out io.Writer) (*ServerConfig, error) {
	cfg := DefaultServerConfig()
	LoadServerEnv(cfg)

	fs := flag.NewFlagSet("chatserver", flag.ContinueOnError)
	fs.SetOutput(out)

	// ── listener ─────────────────────────────────────────────────
	fs.StringVarP(&cfg.Host, "host", "H", cfg.Host, "Address to bind")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "Port to listen on")
	fs.StringVar(&cfg.Name, "name", cfg.Name, "Server name used in logs and cache keys")

	// ── sessions ─────────────────────────────────────────────────
	fs.IntVar(&cfg.QueueSize, "queue-size", cfg.QueueSize, "Outbound frames buffered per session")
	fs.DurationVar(&cfg.JoinTimeout, "join-timeout", cfg.JoinTimeout, "Time a connection has to join")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "Deadline for each write to a peer")
	fs.IntVar(&cfg.MaxPayload, "max-payload", cfg.MaxPayload, "Largest accepted frame payload in bytes")

	// ── roster cache ─────────────────────────────────────────────
	fs.DurationVar(&cfg.RosterTTL, "roster-ttl", cfg.RosterTTL, "How long a roster reply may be cached")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address for the roster cache (in-memory if empty)")
	fs.StringVar(&cfg.RedisPassword, "redis-password", cfg.RedisPassword, "Redis password")
	fs.IntVar(&cfg.RedisDB, "redis-db", cfg.RedisDB, "Redis database number")

	// ── output ───────────────────────────────────────────────────
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "Directory for daily log files (stdout only if empty)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseClientArgs builds the client configuration from defaults, the
// environment and args, in increasing order of precedence, and validates it.
//
// Parameters:
//   - args: Command-line arguments without the program name
//   - out: Where usage and parse errors are printed
//
// Returns:
//   - The validated configuration
//   - pflag.ErrHelp if -h/--help was given
//   - A parse error or an error wrapping ErrInvalidConfig otherwise
func ParseClientArgs(args []string, out io.Writer) (*ClientConfig, error) {
	cfg := DefaultClientConfig()
	LoadClientEnv(cfg)

	fs := flag.NewFlagSet("chatclient", flag.ContinueOnError)
	fs.SetOutput(out)

	fs.StringVarP(&cfg.Server, "server", "s", cfg.Server, "Chat server host")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "Chat server port")
	fs.StringVarP(&cfg.Name, "name", "n", cfg.Name, "Display name")
	fs.DurationVar(&cfg.ConnectTimeout, "connect-timeout", cfg.ConnectTimeout, "Deadline for connecting")
	fs.DurationVar(&cfg.JoinTimeout, "join-timeout", cfg.JoinTimeout, "Deadline for the server to accept the join")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "Deadline for each write")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
