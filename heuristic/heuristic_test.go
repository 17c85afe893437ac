package heuristic

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/domino14/derby/game"
)

var grid = game.NewGrid(20)

func state(hooks [2]game.Point, scores [2]int, fish map[int]game.Point, fishScores map[int]int) *game.State {
	s := game.NewState(grid, 0, hooks, fish, fishScores)
	s.Scores = scores
	return s
}

func TestEvaluateNoFish(t *testing.T) {
	s := state([2]game.Point{{X: 0, Y: 0}, {X: 5, Y: 5}}, [2]int{30, 10}, map[int]game.Point{}, map[int]int{})
	assert.Equal(t, 2000.0, Evaluate(s))
}

func TestEvaluateLastFishOnHook(t *testing.T) {
	s := state([2]game.Point{{X: 4, Y: 9}, {X: 12, Y: 1}}, [2]int{0, 0},
		map[int]game.Point{3: {X: 4, Y: 9}}, map[int]int{3: 10})
	assert.True(t, math.IsInf(Evaluate(s), 1))
}

func TestEvaluateNegativeLastFishOnHook(t *testing.T) {
	s := state([2]game.Point{{X: 4, Y: 9}, {X: 12, Y: 1}}, [2]int{0, 0},
		map[int]game.Point{3: {X: 4, Y: 9}}, map[int]int{3: -4})
	// 5*-4/1 averaged over one fish, minus one fish.
	assert.Equal(t, -21.0, Evaluate(s))
}

func TestEvaluateMixed(t *testing.T) {
	s := state([2]game.Point{{X: 0, Y: 0}, {X: 10, Y: 0}}, [2]int{3, 1},
		map[int]game.Point{0: {X: 2, Y: 0}, 1: {X: 0, Y: 5}}, map[int]int{0: 4, 1: 10})
	// distances 2 and 5: acc = 5*4/2 + 5*10/5 = 20; 10*2 + 20/2 - 2
	assert.Equal(t, 28.0, Evaluate(s))
}

func TestDistance(t *testing.T) {
	for _, tc := range []struct {
		name              string
		hook, opp, target game.Point
		want              int
	}{
		{"same cell", game.Point{X: 3, Y: 3}, game.Point{X: 10, Y: 0}, game.Point{X: 3, Y: 3}, 0},
		{"direct open", game.Point{X: 2, Y: 0}, game.Point{X: 10, Y: 0}, game.Point{X: 5, Y: 4}, 7},
		{"direct blocked", game.Point{X: 2, Y: 0}, game.Point{X: 4, Y: 0}, game.Point{X: 6, Y: 0}, 16},
		{"wrap shorter", game.Point{X: 1, Y: 0}, game.Point{X: 10, Y: 0}, game.Point{X: 18, Y: 0}, 3},
		{"wrap blocked", game.Point{X: 1, Y: 0}, game.Point{X: 19, Y: 0}, game.Point{X: 17, Y: 0}, 16},
		{"opponent on target column", game.Point{X: 2, Y: 0}, game.Point{X: 6, Y: 0}, game.Point{X: 6, Y: 2}, 6},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Distance(grid, tc.hook, tc.opp, tc.target))
		})
	}
}
