package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ConfigDebug                = "debug"
	ConfigSearchTimeBudget     = "search-time-budget"
	ConfigResponseDeadline     = "response-deadline"
	ConfigMaxTimeouts          = "max-timeouts"
	ConfigMaxSearchDepth       = "max-search-depth"
	ConfigTTableSizePowerOf2   = "ttable-size-power-of-2"
	ConfigTTableMemoryFraction = "ttable-memory-fraction"
	ConfigSpaceSubdivisions    = "space-subdivisions"
	ConfigScenarioPath         = "scenario-path"
	ConfigTransport            = "transport"
	ConfigNatsURL              = "nats-url"
	ConfigNatsSubject          = "nats-subject"
	ConfigPlayerCommand        = "player-command"
	ConfigSeed                 = "seed"
	ConfigGames                = "games"
	ConfigRandomFish           = "random-fish"
	ConfigRandomSequenceLength = "random-sequence-length"
	ConfigTracePath            = "trace-path"
)

const (
	TransportPipe  = "pipe"
	TransportStdio = "stdio"
	TransportNats  = "nats"
)

// Config holds every tunable of the derby engine and its two workers.
type Config struct {
	Debug bool

	// SearchTimeBudget is the wall-clock budget handed to one search
	// invocation. It must stay below ResponseDeadline.
	SearchTimeBudget time.Duration
	// ResponseDeadline is how long the game worker waits for a reply
	// before counting the turn as timed out.
	ResponseDeadline time.Duration
	MaxTimeouts      int
	MaxSearchDepth   int

	TTableSizePowerOf2   int
	TTableMemoryFraction float64

	SpaceSubdivisions int

	ScenarioPath         string
	RandomFish           int
	RandomSequenceLength int
	Seed                 uint64
	Games                int

	Transport     string
	NatsURL       string
	NatsSubject   string
	PlayerCommand string

	TracePath string
}

func DefaultConfig() Config {
	return Config{
		SearchTimeBudget:     55 * time.Millisecond,
		ResponseDeadline:     75 * time.Millisecond,
		MaxTimeouts:          3,
		MaxSearchDepth:       25,
		TTableSizePowerOf2:   18,
		TTableMemoryFraction: 0.05,
		SpaceSubdivisions:    20,
		RandomFish:           6,
		RandomSequenceLength: 180,
		Games:                1,
		Transport:            TransportPipe,
		NatsURL:              "nats://127.0.0.1:4222",
		NatsSubject:          "derby",
		PlayerCommand:        "derby-player",
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault(ConfigDebug, d.Debug)
	v.SetDefault(ConfigSearchTimeBudget, d.SearchTimeBudget)
	v.SetDefault(ConfigResponseDeadline, d.ResponseDeadline)
	v.SetDefault(ConfigMaxTimeouts, d.MaxTimeouts)
	v.SetDefault(ConfigMaxSearchDepth, d.MaxSearchDepth)
	v.SetDefault(ConfigTTableSizePowerOf2, d.TTableSizePowerOf2)
	v.SetDefault(ConfigTTableMemoryFraction, d.TTableMemoryFraction)
	v.SetDefault(ConfigSpaceSubdivisions, d.SpaceSubdivisions)
	v.SetDefault(ConfigScenarioPath, d.ScenarioPath)
	v.SetDefault(ConfigRandomFish, d.RandomFish)
	v.SetDefault(ConfigRandomSequenceLength, d.RandomSequenceLength)
	v.SetDefault(ConfigSeed, d.Seed)
	v.SetDefault(ConfigGames, d.Games)
	v.SetDefault(ConfigTransport, d.Transport)
	v.SetDefault(ConfigNatsURL, d.NatsURL)
	v.SetDefault(ConfigNatsSubject, d.NatsSubject)
	v.SetDefault(ConfigPlayerCommand, d.PlayerCommand)
	v.SetDefault(ConfigTracePath, d.TracePath)
}

// Load reads configuration from an optional file and from DERBY_-prefixed
// environment variables, for example DERBY_SEARCH_TIME_BUDGET=40ms.
// Explicit overrides (usually parsed command-line flags) win over both.
func Load(configFile string, overrides map[string]any) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("derby")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", configFile, err)
		}
	}
	for k, val := range overrides {
		v.Set(k, val)
	}

	cfg := Config{
		Debug:                v.GetBool(ConfigDebug),
		SearchTimeBudget:     v.GetDuration(ConfigSearchTimeBudget),
		ResponseDeadline:     v.GetDuration(ConfigResponseDeadline),
		MaxTimeouts:          v.GetInt(ConfigMaxTimeouts),
		MaxSearchDepth:       v.GetInt(ConfigMaxSearchDepth),
		TTableSizePowerOf2:   v.GetInt(ConfigTTableSizePowerOf2),
		TTableMemoryFraction: v.GetFloat64(ConfigTTableMemoryFraction),
		SpaceSubdivisions:    v.GetInt(ConfigSpaceSubdivisions),
		ScenarioPath:         v.GetString(ConfigScenarioPath),
		RandomFish:           v.GetInt(ConfigRandomFish),
		RandomSequenceLength: v.GetInt(ConfigRandomSequenceLength),
		Seed:                 v.GetUint64(ConfigSeed),
		Games:                v.GetInt(ConfigGames),
		Transport:            v.GetString(ConfigTransport),
		NatsURL:              v.GetString(ConfigNatsURL),
		NatsSubject:          v.GetString(ConfigNatsSubject),
		PlayerCommand:        v.GetString(ConfigPlayerCommand),
		TracePath:            v.GetString(ConfigTracePath),
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.SearchTimeBudget <= 0 {
		return errors.New("search time budget must be positive")
	}
	if c.ResponseDeadline > 0 && c.SearchTimeBudget >= c.ResponseDeadline {
		return fmt.Errorf("search time budget %s must be shorter than the response deadline %s",
			c.SearchTimeBudget, c.ResponseDeadline)
	}
	if c.MaxSearchDepth < 1 {
		return errors.New("max search depth must be at least 1")
	}
	if c.SpaceSubdivisions < 2 {
		return fmt.Errorf("space subdivisions must be at least 2, got %d", c.SpaceSubdivisions)
	}
	switch c.Transport {
	case TransportPipe, TransportStdio, TransportNats:
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	return nil
}
