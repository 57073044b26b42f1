// Command chatserver runs the chat relay server.
//
//	chatserver --host 0.0.0.0 --port 50000
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/cyberinferno/go-chat/cacher"
	"github.com/cyberinferno/go-chat/chat"
	"github.com/cyberinferno/go-chat/config"
	"github.com/cyberinferno/go-chat/logger"
)

const (
	serviceName    = "chatserver"
	redisNamespace = "go-chat"
	redisPingWait  = 3 * time.Second
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "chatserver: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.ParseServerArgs(args, os.Stderr)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	roster, closeRoster := newRosterCache(ctx, cfg, log)
	defer closeRoster()

	srv := chat.NewServer(chat.ServerConfig{
		Name: cfg.Name,
		Addr: cfg.Addr(),
		Session: chat.SessionConfig{
			QueueSize:    cfg.QueueSize,
			JoinTimeout:  cfg.JoinTimeout,
			WriteTimeout: cfg.WriteTimeout,
			MaxPayload:   cfg.MaxPayload,
		},
		Roster:    roster,
		RosterTTL: cfg.RosterTTL,
	}, log)

	if err := srv.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("shutdown requested", logger.F("online", srv.Registry().Len()))
	srv.Stop()

	return nil
}

func newLogger(cfg *config.ServerConfig) (logger.Logger, error) {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if cfg.LogDir != "" {
		return logger.NewZerologFileLogger(serviceName, cfg.LogDir, level)
	}

	return logger.NewZerologLogger(zerolog.New(os.Stdout), serviceName, level), nil
}

// newRosterCache returns the Redis-backed roster cache when a Redis address
// is configured and reachable, and the in-memory cache otherwise.
func newRosterCache(ctx context.Context, cfg *config.ServerConfig, log logger.Logger) (cacher.Cacher[[]string], func()) {
	memory := func() (cacher.Cacher[[]string], func()) {
		return cacher.NewMemoryCacher[[]string](cfg.RosterTTL, 2*cfg.RosterTTL), func() {}
	}

	if cfg.RedisAddr == "" {
		return memory()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingWait)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unavailable, using in-memory roster cache",
			logger.F("redis_addr", cfg.RedisAddr), logger.F("error", err))
		_ = client.Close()
		return memory()
	}

	log.Info("roster cache backed by redis", logger.F("redis_addr", cfg.RedisAddr))
	return cacher.NewRedisCacher[[]string](client, redisNamespace), func() { _ = client.Close() }
}
