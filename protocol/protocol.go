// Package protocol defines the JSON messages exchanged between the game
// worker and the player worker.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/domino14/derby/game"
)

var (
	ErrMalformedHandshake = errors.New("malformed handshake")
	ErrMalformedSnapshot  = errors.New("malformed snapshot")
	ErrMalformedResponse  = errors.New("malformed response")
)

// FishInfo describes one fish in the handshake.
type FishInfo struct {
	Type  int `json:"type"`
	Score int `json:"score"`
}

// Handshake is the first message of a game. On the wire every fish is a
// top-level "fish<id>" key next to "game_over".
type Handshake struct {
	Fish     map[int]FishInfo
	GameOver bool
}

func (h Handshake) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(h.Fish)+1)
	for id, f := range h.Fish {
		m["fish"+strconv.Itoa(id)] = f
	}
	m["game_over"] = h.GameOver
	return json.Marshal(m)
}

// wireFish has pointer fields so missing keys can be told apart from zero.
type wireFish struct {
	Type  *int `json:"type"`
	Score *int `json:"score"`
}

func (h *Handshake) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedHandshake, err)
	}
	if raw == nil {
		return fmt.Errorf("%w: not an object", ErrMalformedHandshake)
	}
	over, ok := raw["game_over"]
	if !ok {
		return fmt.Errorf("%w: no game_over key", ErrMalformedHandshake)
	}
	h.Fish = make(map[int]FishInfo)
	if err := json.Unmarshal(over, &h.GameOver); err != nil {
		return fmt.Errorf("%w: game_over: %w", ErrMalformedHandshake, err)
	}
	for k, v := range raw {
		idStr, ok := strings.CutPrefix(k, "fish")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(idStr)
		if err != nil {
			return fmt.Errorf("%w: bad fish key %q", ErrMalformedHandshake, k)
		}
		var f wireFish
		if err := json.Unmarshal(v, &f); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMalformedHandshake, k, err)
		}
		if f.Type == nil || f.Score == nil {
			return fmt.Errorf("%w: %s needs type and score", ErrMalformedHandshake, k)
		}
		h.Fish[id] = FishInfo{Type: *f.Type, Score: *f.Score}
	}
	return nil
}

// Snapshot is the per-turn view of the world sent to the player. Map keys
// are player or fish ids; positions are [x, y].
type Snapshot struct {
	HooksPositions  map[int][2]int `json:"hooks_positions"`
	FishesPositions map[int][2]int `json:"fishes_positions"`
	Observations    map[int][]int  `json:"observations"`
	FishScores      map[int]int    `json:"fish_scores"`
	PlayerScores    map[int]int    `json:"player_scores"`
	CaughtFish      map[int]*int   `json:"caught_fish"`
	GameOver        bool           `json:"game_over"`
}

func point(p [2]int) game.Point {
	return game.Point{X: p[0], Y: p[1]}
}

// NewSnapshot renders a state and the observations still ahead of it.
func NewSnapshot(s *game.State, obs game.Observations) *Snapshot {
	snap := &Snapshot{
		HooksPositions: make(map[int][2]int, game.NumPlayers),
		FishesPositions: lo.MapValues(s.FishPositions(), func(p game.Point, _ int) [2]int {
			return [2]int{p.X, p.Y}
		}),
		Observations: obs,
		FishScores:   s.FishScores,
		PlayerScores: make(map[int]int, game.NumPlayers),
		CaughtFish:   make(map[int]*int, game.NumPlayers),
	}
	for p := range game.NumPlayers {
		snap.HooksPositions[p] = [2]int{s.Hooks[p].X, s.Hooks[p].Y}
		snap.PlayerScores[p] = s.Scores[p]
		if s.Caught[p] != game.NoFish {
			snap.CaughtFish[p] = lo.ToPtr(s.Caught[p])
		} else {
			snap.CaughtFish[p] = nil
		}
	}
	return snap
}

// State rebuilds the game state the snapshot describes, with player to
// move.
func (snap *Snapshot) State(grid game.Grid, player int) (*game.State, error) {
	var hooks [game.NumPlayers]game.Point
	var scores [game.NumPlayers]int
	caught := [game.NumPlayers]int{game.NoFish, game.NoFish}
	for p := range game.NumPlayers {
		h, ok := snap.HooksPositions[p]
		if !ok {
			return nil, fmt.Errorf("%w: no hook for player %d", ErrMalformedSnapshot, p)
		}
		hooks[p] = point(h)
		sc, ok := snap.PlayerScores[p]
		if !ok {
			return nil, fmt.Errorf("%w: no score for player %d", ErrMalformedSnapshot, p)
		}
		scores[p] = sc
		if c := snap.CaughtFish[p]; c != nil {
			caught[p] = *c
		}
	}
	fish := lo.MapValues(snap.FishesPositions, func(p [2]int, _ int) game.Point { return point(p) })
	s := game.NewState(grid, player, hooks, fish, snap.FishScores)
	s.Scores = scores
	s.Caught = caught
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}
	return s, nil
}

// Root builds the search tree root for player 0.
func (snap *Snapshot) Root(grid game.Grid) (*game.Node, error) {
	s, err := snap.State(grid, 0)
	if err != nil {
		return nil, err
	}
	return game.NewRoot(s, game.Observations(snap.Observations)), nil
}

// Response is the player's reply to a snapshot.
type Response struct {
	Action     string   `json:"action"`
	SearchTime *float64 `json:"search_time"`
}

func NewResponse(a game.Action, searchTimeSec float64) Response {
	return Response{Action: a.String(), SearchTime: lo.ToPtr(searchTimeSec)}
}

func (r Response) ParsedAction() (game.Action, error) {
	a, err := game.ParseAction(r.Action)
	if err != nil {
		return game.ActionStay, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return a, nil
}

type gameOverProbe struct {
	GameOver bool `json:"game_over"`
}

// IsGameOver reports whether a raw message carries game_over=true.
func IsGameOver(data []byte) (bool, error) {
	var p gameOverProbe
	if err := json.Unmarshal(data, &p); err != nil {
		return false, err
	}
	return p.GameOver, nil
}

// GameOverMessage is sent to end a game.
func GameOverMessage() []byte {
	return []byte(`{"game_over":true}`)
}

func DecodeHandshake(data []byte) (*Handshake, error) {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, fmt.Errorf("%w: null", ErrMalformedHandshake)
	}
	h := &Handshake{}
	if err := json.Unmarshal(data, h); err != nil {
		if !errors.Is(err, ErrMalformedHandshake) {
			err = fmt.Errorf("%w: %w", ErrMalformedHandshake, err)
		}
		return nil, err
	}
	return h, nil
}

func DecodeSnapshot(data []byte) (*Snapshot, error) {
	snap := &Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}
	return snap, nil
}

func DecodeResponse(data []byte) (*Response, error) {
	r := &Response{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return r, nil
}

func EncodeResponse(r Response) ([]byte, error) {
	return json.Marshal(r)
}

func EncodeHandshake(h Handshake) ([]byte, error) {
	return json.Marshal(h)
}

func EncodeSnapshot(snap *Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}
