package derby

import (
	"encoding/binary"
	"fmt"
	"os"
	"strconv"

	"github.com/cespare/xxhash"
	"gopkg.in/yaml.v3"
	"lukechampine.com/frand"

	"github.com/domino14/derby/game"
)

// A Scenario is the complete, pre-determined script of one game: where
// everything starts and how every fish will move. Scenario files are JSON
// (or YAML) with string keys, as in
//
//	{"init_fishes": {"0": {"init_pos": [3, 7], "score": 11}},
//	 "init_players": {"0": [2, 19], "1": [9, 19]},
//	 "sequence": {"0": [0, 4, 8, ...]},
//	 "params": {"n_seq": 180}}
type Scenario struct {
	InitFishes  map[string]InitFish `yaml:"init_fishes" json:"init_fishes"`
	InitPlayers map[string][]int    `yaml:"init_players" json:"init_players"`
	Sequence    map[string][]int    `yaml:"sequence" json:"sequence"`
	Params      ScenarioParams      `yaml:"params" json:"params"`
}

type InitFish struct {
	InitPos []int `yaml:"init_pos" json:"init_pos"`
	Score   int   `yaml:"score" json:"score"`
}

type ScenarioParams struct {
	NSeq int `yaml:"n_seq" json:"n_seq"`
}

// LoadScenario reads a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// ParseScenario decodes and validates a scenario. JSON is valid YAML, so
// both formats go through the same decoder.
func ParseScenario(data []byte) (*Scenario, error) {
	sc := &Scenario{}
	if err := yaml.Unmarshal(data, sc); err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

// Validate checks the scenario's shape. Checks that need the grid, such as
// positions being on it, happen in InitialState.
func (sc *Scenario) Validate() error {
	for p := range game.NumPlayers {
		coords, ok := sc.InitPlayers[strconv.Itoa(p)]
		if !ok {
			return fmt.Errorf("init_players: no entry for player %d", p)
		}
		if _, err := toPoint(coords, "init_players"); err != nil {
			return err
		}
	}
	for k, f := range sc.InitFishes {
		if _, err := parseID(k); err != nil {
			return fmt.Errorf("init_fishes: %w", err)
		}
		if _, err := toPoint(f.InitPos, "init_fishes "+k); err != nil {
			return err
		}
		if _, ok := game.TypeForScore(f.Score); !ok {
			return fmt.Errorf("init_fishes %s: no fish type scores %d", k, f.Score)
		}
		if _, ok := sc.Sequence[k]; !ok {
			return fmt.Errorf("fish %s has no movement sequence", k)
		}
	}
	_, err := sc.Observations()
	return err
}

func parseID(key string) (int, error) {
	id, err := strconv.Atoi(key)
	if err != nil {
		return 0, fmt.Errorf("bad id %q", key)
	}
	return id, nil
}

func toPoint(coords []int, what string) (game.Point, error) {
	if len(coords) != 2 {
		return game.Point{}, fmt.Errorf("%s: want [x, y], got %v", what, coords)
	}
	return game.Point{X: coords[0], Y: coords[1]}, nil
}

// Plies is the number of moves the game lasts.
func (sc *Scenario) Plies() int {
	n := sc.Params.NSeq
	for _, seq := range sc.Sequence {
		if n == 0 || len(seq) < n {
			n = len(seq)
		}
	}
	return n
}

// Observations returns every fish's full displacement sequence.
func (sc *Scenario) Observations() (game.Observations, error) {
	obs := make(game.Observations, len(sc.Sequence))
	for k, seq := range sc.Sequence {
		id, err := parseID(k)
		if err != nil {
			return nil, fmt.Errorf("sequence: %w", err)
		}
		for _, c := range seq {
			if c < 0 || c >= game.NumDisplacements {
				return nil, fmt.Errorf("sequence %s: bad displacement code %d", k, c)
			}
		}
		obs[id] = seq
	}
	return obs, nil
}

// InitialState builds the state the game starts from, with player 0 to
// move.
func (sc *Scenario) InitialState(grid game.Grid) (*game.State, error) {
	var hooks [game.NumPlayers]game.Point
	for p := range game.NumPlayers {
		coords, ok := sc.InitPlayers[strconv.Itoa(p)]
		if !ok {
			return nil, fmt.Errorf("init_players: no entry for player %d", p)
		}
		pt, err := toPoint(coords, "init_players")
		if err != nil {
			return nil, err
		}
		hooks[p] = pt
	}
	fish := make(map[int]game.Point, len(sc.InitFishes))
	scores := make(map[int]int, len(sc.InitFishes))
	for k, f := range sc.InitFishes {
		id, err := parseID(k)
		if err != nil {
			return nil, fmt.Errorf("init_fishes: %w", err)
		}
		if _, ok := sc.Sequence[k]; !ok {
			return nil, fmt.Errorf("fish %d has no movement sequence", id)
		}
		pt, err := toPoint(f.InitPos, "init_fishes "+k)
		if err != nil {
			return nil, err
		}
		fish[id] = pt
		scores[id] = f.Score
	}
	s := game.NewState(grid, 0, hooks, fish, scores)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Digest identifies a scenario by content.
func (sc *Scenario) Digest() (uint64, error) {
	// yaml sorts map keys, so the encoding is canonical
	data, err := yaml.Marshal(sc)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}

func (sc *Scenario) Save(path string) error {
	data, err := yaml.Marshal(sc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// SeedBytes expands a numeric seed to the 32 bytes frand wants.
func SeedBytes(seed uint64) []byte {
	b := make([]byte, 32)
	binary.LittleEndian.PutUint64(b, seed)
	return b
}

// GenerateScenario makes a random scenario. The same seed always yields
// the same scenario.
func GenerateScenario(seed uint64, grid game.Grid, nfish, plies int) *Scenario {
	rng := frand.NewCustom(SeedBytes(seed), 1024, 12)
	sc := &Scenario{
		InitFishes:  make(map[string]InitFish, nfish),
		InitPlayers: make(map[string][]int, game.NumPlayers),
		Sequence:    make(map[string][]int, nfish),
		Params:      ScenarioParams{NSeq: plies},
	}
	x0 := rng.Intn(grid.Width)
	x1 := (x0 + 1 + rng.Intn(grid.Width-1)) % grid.Width
	sc.InitPlayers["0"] = []int{x0, grid.Surface()}
	sc.InitPlayers["1"] = []int{x1, grid.Surface()}

	scores := game.PointValues()
	for i := range nfish {
		k := strconv.Itoa(i)
		sc.InitFishes[k] = InitFish{
			InitPos: []int{rng.Intn(grid.Width), rng.Intn(max(1, grid.Surface()-1))},
			Score:   scores[rng.Intn(len(scores))],
		}
		seq := make([]int, plies)
		// fish tend to keep swimming the way they were going
		code := rng.Intn(game.NumDisplacements)
		for j := range seq {
			if rng.Intn(4) == 0 {
				code = rng.Intn(game.NumDisplacements)
			}
			seq[j] = code
		}
		sc.Sequence[k] = seq
	}
	return sc
}
