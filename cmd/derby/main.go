// derby runs fishing-derby matches: it steps the world, plays the second
// boat with its own solver, and talks to a player worker over the chosen
// transport.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/domino14/derby/cache"
	"github.com/domino14/derby/config"
	"github.com/domino14/derby/derby"
	"github.com/domino14/derby/game"
	"github.com/domino14/derby/minimax"
	"github.com/domino14/derby/stats"
	"github.com/domino14/derby/transport"
)

const natsConnectAttempts = 10

var (
	configFile   = flag.String("config", "", "path to a YAML or JSON config file")
	threads      = flag.Int("threads", 1, "matches played at once (pipe transport only)")
	session      = flag.String("session", "default", "NATS session name shared with the player")
	saveScenario = flag.String("save-scenario", "", "write the generated scenario of the first game here")
	histBins     = flag.Int("hist-bins", 10, "bins in the spread histogram; 0 disables it")

	debug         = flag.Bool(config.ConfigDebug, false, "debug logging")
	games         = flag.Int(config.ConfigGames, 1, "number of games")
	seed          = flag.Uint64(config.ConfigSeed, 0, "scenario seed; 0 picks one at random")
	scenarioPath  = flag.String(config.ConfigScenarioPath, "", "scenario file; empty generates one per game")
	transportName = flag.String(config.ConfigTransport, config.TransportPipe, "pipe, stdio or nats")
	playerCommand = flag.String(config.ConfigPlayerCommand, "derby-player", "player command for the stdio transport")
	natsURL       = flag.String(config.ConfigNatsURL, "nats://127.0.0.1:4222", "NATS server")
	tracePath     = flag.String(config.ConfigTracePath, "", "write the opponent's search trace here")
)

// overrides collects the config flags given on the command line.
func overrides() map[string]any {
	set := map[string]any{}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case config.ConfigDebug:
			set[f.Name] = *debug
		case config.ConfigGames:
			set[f.Name] = *games
		case config.ConfigSeed:
			set[f.Name] = *seed
		case config.ConfigScenarioPath:
			set[f.Name] = *scenarioPath
		case config.ConfigTransport:
			set[f.Name] = *transportName
		case config.ConfigPlayerCommand:
			set[f.Name] = *playerCommand
		case config.ConfigNatsURL:
			set[f.Name] = *natsURL
		case config.ConfigTracePath:
			set[f.Name] = *tracePath
		}
	})
	return set
}

func setupLogging(cfg *config.Config) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(output).Level(level).With().Timestamp().Logger()
}

func loadScenario(cfg *config.Config, key string) (*derby.Scenario, error) {
	return derby.LoadScenario(key)
}

// scenarios returns one scenario per game. A scenario file is shared by
// every game; otherwise each game gets its own seed.
func scenarios(cfg *config.Config) ([]*derby.Scenario, error) {
	out := make([]*derby.Scenario, cfg.Games)
	if cfg.ScenarioPath != "" {
		sc, err := cache.Load(cfg, cfg.ScenarioPath, loadScenario)
		if err != nil {
			return nil, err
		}
		for i := range out {
			out[i] = sc
		}
		return out, nil
	}
	base := cfg.Seed
	if base == 0 {
		base = frand.Uint64n(1<<63) + 1
	}
	grid := game.NewGrid(cfg.SpaceSubdivisions)
	for i := range out {
		s := base + uint64(i)
		log.Debug().Uint64("seed", s).Msg("generating-scenario")
		out[i] = derby.GenerateScenario(s, grid, cfg.RandomFish, cfg.RandomSequenceLength)
	}
	return out, nil
}

func newOpponent(cfg *config.Config) (*minimax.Solver, func(), error) {
	opp := minimax.NewSolver(cfg)
	if cfg.TracePath == "" {
		return opp, func() {}, nil
	}
	f, err := os.Create(cfg.TracePath)
	if err != nil {
		return nil, nil, err
	}
	opp.SetLogStream(f)
	return opp, func() { f.Close() }, nil
}

// playStdio plays each game against a freshly spawned player process.
func playStdio(ctx context.Context, cfg *config.Config, scs []*derby.Scenario) (*derby.Summary, error) {
	opp, done, err := newOpponent(cfg)
	if err != nil {
		return nil, err
	}
	defer done()
	args := strings.Fields(cfg.PlayerCommand)
	if len(args) == 0 {
		return nil, fmt.Errorf("empty player command")
	}
	sum := &derby.Summary{}
	for i, sc := range scs {
		res, err := playChild(ctx, cfg, args, sc, opp)
		if err != nil {
			log.Err(err).Int("game", i).Msg("match-aborted")
			sum.Aborted++
			continue
		}
		sum.Add(res)
	}
	return sum, nil
}

func playChild(ctx context.Context, cfg *config.Config, args []string,
	sc *derby.Scenario, opp *minimax.Solver) (*derby.Result, error) {

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	stream := transport.NewStream(stdout, stdin, stdin)
	runner, err := derby.NewGameRunner(cfg, sc, opp)
	if err != nil {
		stream.Close()
		cmd.Wait()
		return nil, err
	}
	res, err := runner.Play(ctx, stream)
	stream.Close()
	if werr := cmd.Wait(); werr != nil && err == nil {
		log.Warn().Err(werr).Msg("player-exited-with-error")
	}
	return res, err
}

// playNats plays the games one after another against a player listening
// on the session's subjects.
func playNats(ctx context.Context, cfg *config.Config, scs []*derby.Scenario) (*derby.Summary, error) {
	nc, err := transport.DialNats(ctx, cfg.NatsURL, natsConnectAttempts)
	if err != nil {
		return nil, err
	}
	ch, err := transport.NewGameNatsChannel(nc, transport.SessionSubjects(cfg.NatsSubject, *session))
	if err != nil {
		nc.Close()
		return nil, err
	}
	ch.OwnConnection()
	defer ch.Close()

	opp, done, err := newOpponent(cfg)
	if err != nil {
		return nil, err
	}
	defer done()
	sum := &derby.Summary{}
	for i, sc := range scs {
		runner, err := derby.NewGameRunner(cfg, sc, opp)
		if err != nil {
			return sum, err
		}
		res, err := runner.Play(ctx, ch)
		if err != nil {
			log.Err(err).Int("game", i).Msg("match-aborted")
			sum.Aborted++
			continue
		}
		sum.Add(res)
	}
	return sum, nil
}

func report(sum *derby.Summary) {
	log.Info().
		Int("games", sum.Games).
		Int("p0-wins", sum.Wins[0]).
		Int("p1-wins", sum.Wins[1]).
		Int("ties", sum.Ties).
		Int("aborted", sum.Aborted).
		Int("timeouts", sum.Timeouts).
		Float64("spread-mean", sum.Spread.Mean()).
		Float64("spread-ci95", sum.Spread.ConfidenceInterval(95)).
		Float64("search-sec-mean", sum.Search.Mean()).
		Msg("matches-finished")
	if sum.Games > 1 {
		fmt.Printf("spread %.2f ± %.2f (z=%.3f, %d games)\n",
			sum.Spread.Mean(), sum.Spread.ConfidenceInterval(95), stats.ZVal(95), sum.Games)
	}
	if *histBins > 0 {
		if err := sum.WriteHistogram(os.Stdout, *histBins); err != nil {
			log.Err(err).Msg("histogram")
		}
	}
}

func main() {
	flag.Parse()
	cfg, err := config.Load(*configFile, overrides())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	setupLogging(&cfg)
	log.Debug().Interface("config", cfg).Msg("loaded-config")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("got quit signal...")
		cancel()
	}()

	scs, err := scenarios(&cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("loading-scenario")
	}
	if *saveScenario != "" && len(scs) > 0 {
		if err := scs[0].Save(*saveScenario); err != nil {
			log.Fatal().Err(err).Msg("saving-scenario")
		}
	}

	var sum *derby.Summary
	switch cfg.Transport {
	case config.TransportPipe:
		if cfg.TracePath != "" {
			log.Warn().Msg("trace-path-ignored-for-pipe-transport")
		}
		sum, err = derby.PlayMatches(ctx, &cfg, scs, *threads)
	case config.TransportStdio:
		sum, err = playStdio(ctx, &cfg, scs)
	case config.TransportNats:
		sum, err = playNats(ctx, &cfg, scs)
	default:
		err = fmt.Errorf("unknown transport %q", cfg.Transport)
	}
	if sum != nil {
		report(sum)
	}
	if err != nil {
		log.Error().Err(err).Msg("derby-failed")
		os.Exit(1)
	}
	os.Exit(exitCode(sum))
}

// exitCode is nonzero when any match was aborted.
func exitCode(sum *derby.Summary) int {
	if sum.Aborted > 0 {
		return 2
	}
	return 0
}
