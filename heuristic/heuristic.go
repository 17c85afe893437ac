// Package heuristic holds the static evaluator used at search cutoffs and
// for move ordering. Values are from player 0's point of view.
package heuristic

import (
	"math"

	"github.com/domino14/derby/game"
)

const (
	// DecidedWeight scales the spread once every fish is gone.
	DecidedWeight = 100
	// SpreadWeight scales the spread while fish remain.
	SpreadWeight = 10
	// ProximityWeight scales each fish's value over its distance.
	ProximityWeight = 5
)

// Evaluate scores s for player 0.
func Evaluate(s *game.State) float64 {
	spread := float64(s.Spread())
	n := s.NumFish()
	if n == 0 {
		return DecidedWeight * spread
	}
	hook, opp := s.Hooks[0], s.Hooks[1]
	var acc float64
	for _, f := range s.Fish {
		d := Distance(s.Grid, hook, opp, f.Pos)
		score := s.FishScores[f.ID]
		if score > 0 && n == 1 && d == 0 {
			return math.Inf(1)
		}
		acc += ProximityWeight * float64(score) / float64(max(d, 1))
	}
	return SpreadWeight*spread + acc/float64(n) - float64(n)
}

// Distance is the number of hook moves from hook to target when the hook
// may not pass through the opponent's column. Horizontally it takes the
// shorter way around the torus unless the opponent sits strictly inside
// that stretch, in which case it goes the long way.
func Distance(g game.Grid, hook, opp, target game.Point) int {
	lo, hi := min(hook.X, target.X), max(hook.X, target.X)
	direct := hi - lo
	around := g.Width - direct
	directBlocked := opp.X > lo && opp.X < hi
	aroundBlocked := opp.X < lo || opp.X > hi

	dx := direct
	switch {
	case direct == 0:
	case direct <= around && directBlocked:
		dx = around
	case around < direct && !aroundBlocked:
		dx = around
	}
	return dx + abs(target.Y-hook.Y)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
