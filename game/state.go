package game

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
)

const (
	NumPlayers = 2
	// NoFish marks an empty hook.
	NoFish = -1
)

// State is one snapshot of the world, real or hypothetical. A State is never
// mutated once handed out; successors are fresh values.
type State struct {
	Grid Grid
	// Player is the index of the side whose action this state awaits.
	// Player 0 maximizes, player 1 minimizes.
	Player int
	Scores [NumPlayers]int
	Hooks  [NumPlayers]Point
	// Fish holds every fish still in the water, sorted by id.
	Fish []Fish
	// FishScores is shared, read-only, between all states of a game.
	FishScores map[int]int
	// Caught is the id of the fish on each player's hook, or NoFish.
	Caught [NumPlayers]int
}

// NewState builds a state from unordered fish positions.
func NewState(grid Grid, player int, hooks [NumPlayers]Point, fish map[int]Point,
	fishScores map[int]int) *State {

	s := &State{
		Grid:       grid,
		Player:     player,
		Hooks:      hooks,
		FishScores: fishScores,
		Caught:     [NumPlayers]int{NoFish, NoFish},
	}
	s.Fish = lo.MapToSlice(fish, func(id int, p Point) Fish { return Fish{ID: id, Pos: p} })
	slices.SortFunc(s.Fish, func(a, b Fish) int { return a.ID - b.ID })
	return s
}

func (s *State) Opponent() int {
	return 1 - s.Player
}

// Spread is the score difference from player 0's point of view.
func (s *State) Spread() int {
	return s.Scores[0] - s.Scores[1]
}

func (s *State) NumFish() int {
	return len(s.Fish)
}

func (s *State) FishPosition(id int) (Point, bool) {
	i, ok := slices.BinarySearchFunc(s.Fish, id, func(f Fish, id int) int { return f.ID - id })
	if !ok {
		return Point{}, false
	}
	return s.Fish[i].Pos, true
}

// FishPositions returns the fish in the water as a map.
func (s *State) FishPositions() map[int]Point {
	return lo.SliceToMap(s.Fish, func(f Fish) (int, Point) { return f.ID, f.Pos })
}

// Hooked reports whether player p has a fish on the line.
func (s *State) Hooked(p int) bool {
	return s.Caught[p] != NoFish
}

// WithPlayer returns a shallow copy of s awaiting player p's action.
func (s *State) WithPlayer(p int) *State {
	c := *s
	c.Player = p
	return &c
}

// Validate checks the structural invariants every state must satisfy.
func (s *State) Validate() error {
	if s.Player != 0 && s.Player != 1 {
		return fmt.Errorf("player to move must be 0 or 1, got %d", s.Player)
	}
	if s.Grid.Width < 2 || s.Grid.Height < 1 {
		return fmt.Errorf("degenerate grid %dx%d", s.Grid.Width, s.Grid.Height)
	}
	for p, h := range s.Hooks {
		if !s.Grid.Contains(h) {
			return fmt.Errorf("hook %d at %v is outside the grid", p, h)
		}
	}
	if s.Hooks[0].X == s.Hooks[1].X {
		return errors.New("hooks share a column")
	}
	for i, f := range s.Fish {
		if i > 0 && s.Fish[i-1].ID >= f.ID {
			return errors.New("fish are not sorted by id")
		}
		if _, ok := s.FishScores[f.ID]; !ok {
			return fmt.Errorf("fish %d has no score", f.ID)
		}
		if !s.Grid.Contains(f.Pos) {
			return fmt.Errorf("fish %d at %v is outside the grid", f.ID, f.Pos)
		}
	}
	for p, id := range s.Caught {
		if id == NoFish {
			continue
		}
		if _, ok := s.FishPosition(id); !ok {
			return fmt.Errorf("player %d holds fish %d which is not in the water", p, id)
		}
	}
	if s.Caught[0] != NoFish && s.Caught[0] == s.Caught[1] {
		return fmt.Errorf("fish %d is hooked by both players", s.Caught[0])
	}
	return nil
}

func (s *State) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "to-move=%d scores=%v hooks=%v caught=%v fish=[", s.Player, s.Scores, s.Hooks, s.Caught)
	for i, f := range s.Fish {
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%d:%v", f.ID, f.Pos)
	}
	sb.WriteString("]")
	return sb.String()
}
