package game

import (
	"slices"

	"github.com/samber/lo"
)

// Fish is an uncaught-or-hooked fish still in the water.
type Fish struct {
	ID  int
	Pos Point
}

// typeScores maps a fish species (its sprite type) to its point value.
var typeScores = map[int]int{
	0: 1, 1: 2, 2: 3, 3: 4, 4: 5, 5: 6, 6: -7, 7: 7, 8: 8, 9: 9,
	10: 10, 11: 11, 12: -1, 13: -2, 14: -3, 15: -4, 16: -5, 17: -6,
}

// TypeForScore returns the species carrying the given point value.
func TypeForScore(score int) (int, bool) {
	for typ, s := range typeScores {
		if s == score {
			return typ, true
		}
	}
	return 0, false
}

func ScoreForType(typ int) (int, bool) {
	s, ok := typeScores[typ]
	return s, ok
}

// PointValues lists every point value a fish can carry, ascending.
func PointValues() []int {
	vals := lo.Uniq(lo.Values(typeScores))
	slices.Sort(vals)
	return vals
}
