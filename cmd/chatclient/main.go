// Command chatclient joins a chat server and relays terminal lines to it.
//
//	chatclient --server 192.168.0.10 --port 50000 --name Alice
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/cyberinferno/go-chat/chatclient"
	"github.com/cyberinferno/go-chat/config"
	"github.com/cyberinferno/go-chat/logger"
)

const serviceName = "chatclient"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "chatclient: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.ParseClientArgs(args, os.Stderr)
	if err != nil {
		return err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log := logger.NewConsoleLogger(os.Stderr, serviceName, level)
	defer log.Close()

	clientCfg := chatclient.DefaultConfig(cfg.Addr(), cfg.Name)
	clientCfg.ConnectionTimeout = cfg.ConnectTimeout
	clientCfg.JoinTimeout = cfg.JoinTimeout
	clientCfg.WriteTimeout = cfg.WriteTimeout
	clientCfg.MaxPayload = cfg.MaxPayload
	clientCfg.Logger = log
	clientCfg.OnConnectionState = func(e chatclient.ConnectionStateEvent) {
		log.Debug("connection state", logger.F("state", e.State.String()), logger.F("addr", e.Address))
	}

	client, err := chatclient.Dial(ctx, clientCfg)
	if err != nil {
		return err
	}
	defer client.Close()

	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Printf("Connected to %s as %s. Type a message, /who to list users, /quit to leave.\n",
			cfg.Addr(), cfg.Name)
	}

	return client.Run(ctx, os.Stdin, chatclient.TextRenderer(os.Stdout))
}
