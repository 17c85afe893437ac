package zobrist

import (
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/derby/game"
)

var grid = game.NewGrid(20)

func baseState() *game.State {
	return game.NewState(grid, 0, [2]game.Point{{X: 1, Y: 2}, {X: 8, Y: 9}},
		map[int]game.Point{0: {X: 3, Y: 3}, 4: {X: 10, Y: 12}}, map[int]int{0: 5, 4: -3})
}

func TestHashDeterministic(t *testing.T) {
	is := is.New(t)
	z := &Zobrist{}
	z.Initialize(grid, FishIDs(baseState().FishScores))
	is.Equal(z.Hash(baseState(), 0), z.Hash(baseState(), 0))
}

func TestHashDistinguishes(t *testing.T) {
	is := is.New(t)
	z := &Zobrist{}
	s := baseState()
	z.Initialize(grid, FishIDs(s.FishScores))
	h := z.Hash(s, 0)

	other := s.WithPlayer(1)
	is.True(z.Hash(other, 0) != h)

	moved := baseState()
	moved.Hooks[0] = game.Point{X: 2, Y: 2}
	is.True(z.Hash(moved, 0) != h)

	hooked := baseState()
	hooked.Caught[1] = 4
	is.True(z.Hash(hooked, 0) != h)

	swapped := baseState()
	swapped.Caught[0] = 4
	is.True(z.Hash(swapped, 0) != z.Hash(hooked, 0))

	fishMoved := baseState()
	fishMoved.Fish[1].Pos = game.Point{X: 11, Y: 12}
	is.True(z.Hash(fishMoved, 0) != h)
}

func TestHashIncludesSpread(t *testing.T) {
	is := is.New(t)
	z := &Zobrist{}
	s := baseState()
	z.Initialize(grid, FishIDs(s.FishScores))

	ahead := baseState()
	ahead.Scores = [2]int{5, 0}
	behind := baseState()
	behind.Scores = [2]int{0, 5}
	is.True(z.Hash(ahead, 0) != z.Hash(s, 0))
	is.True(z.Hash(ahead, 0) != z.Hash(behind, 0))

	// Only the spread matters, not the absolute totals.
	shifted := baseState()
	shifted.Scores = [2]int{12, 7}
	is.Equal(z.Hash(shifted, 0), z.Hash(ahead, 0))
}

func TestHashIncludesPly(t *testing.T) {
	is := is.New(t)
	z := &Zobrist{}
	s := baseState()
	z.Initialize(grid, FishIDs(s.FishScores))
	is.True(z.Hash(s, 0) != z.Hash(s, 2))
	is.True(z.Hash(s, 70) != z.Hash(s, 71))
	is.Equal(z.Hash(s, 70), z.Hash(s, 70))
}

func TestCovers(t *testing.T) {
	is := is.New(t)
	z := &Zobrist{}
	z.Initialize(grid, []int{0, 4})
	is.True(z.Covers(grid, []int{4}))
	is.True(!z.Covers(grid, []int{0, 5}))
	is.True(!z.Covers(game.NewGrid(10), []int{0}))
}
