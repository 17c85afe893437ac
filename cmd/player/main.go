// derby-player is the decision worker. Over stdio it plays a single game
// on stdin/stdout and exits; over NATS it serves games on a session until
// interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/derby/config"
	"github.com/domino14/derby/minimax"
	"github.com/domino14/derby/player"
	"github.com/domino14/derby/transport"
)

const natsConnectAttempts = 10

var (
	configFile    = flag.String("config", "", "path to a YAML or JSON config file")
	session       = flag.String("session", "default", "NATS session name shared with the game")
	debug         = flag.Bool(config.ConfigDebug, false, "debug logging")
	transportName = flag.String(config.ConfigTransport, config.TransportStdio, "stdio or nats")
	natsURL       = flag.String(config.ConfigNatsURL, "nats://127.0.0.1:4222", "NATS server")
	budget        = flag.Duration(config.ConfigSearchTimeBudget, 55*time.Millisecond, "search time per move")
)

func overrides() map[string]any {
	set := map[string]any{}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case config.ConfigDebug:
			set[f.Name] = *debug
		case config.ConfigTransport:
			set[f.Name] = *transportName
		case config.ConfigNatsURL:
			set[f.Name] = *natsURL
		case config.ConfigSearchTimeBudget:
			set[f.Name] = *budget
		}
	})
	return set
}

func main() {
	flag.Parse()
	cfg, err := config.Load(*configFile, overrides())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	// stdout may be the game channel, so logs always go to stderr
	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("got quit signal...")
		cancel()
	}()

	// an in-process pipe has no meaning for a separate player process
	if cfg.Transport == config.TransportPipe {
		cfg.Transport = config.TransportStdio
	}
	solver := minimax.NewSolver(&cfg)
	switch cfg.Transport {
	case config.TransportStdio:
		ch := transport.NewStream(os.Stdin, os.Stdout, nil)
		defer ch.Close()
		err = player.NewController(&cfg, ch, solver).Run(ctx)
	case config.TransportNats:
		err = serveNats(ctx, &cfg, solver)
	default:
		err = fmt.Errorf("unknown transport %q", cfg.Transport)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("player-failed")
		os.Exit(1)
	}
}

func serveNats(ctx context.Context, cfg *config.Config, solver *minimax.Solver) error {
	nc, err := transport.DialNats(ctx, cfg.NatsURL, natsConnectAttempts)
	if err != nil {
		return err
	}
	ch, err := transport.NewPlayerNatsChannel(nc, transport.SessionSubjects(cfg.NatsSubject, *session))
	if err != nil {
		nc.Close()
		return err
	}
	ch.OwnConnection()
	defer ch.Close()
	log.Info().Str("session", *session).Msg("waiting-for-games")
	for games := 0; ; games++ {
		c := player.NewController(cfg, ch, solver)
		if err := c.Run(ctx); err != nil {
			return err
		}
		log.Info().Int("game", games).Int("turns", c.Turns()).Msg("game-finished")
	}
}
