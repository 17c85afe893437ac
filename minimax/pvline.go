package minimax

import (
	"fmt"
	"strings"

	"github.com/domino14/derby/game"
)

// PVLine is the principal variation found by a search.
type PVLine struct {
	Moves []game.Action
	score float64
}

// Clear the principal variation line.
func (pvLine *PVLine) Clear() {
	pvLine.Moves = pvLine.Moves[:0]
}

// Update the principal variation line with a new best move,
// and a new line of best play after the best move.
func (pvLine *PVLine) Update(m game.Action, newPVLine PVLine, score float64) {
	pvLine.Moves = append(pvLine.Moves[:0], m)
	pvLine.Moves = append(pvLine.Moves, newPVLine.Moves...)
	pvLine.score = score
}

func (pvLine PVLine) Strings() []string {
	out := make([]string, len(pvLine.Moves))
	for i, m := range pvLine.Moves {
		out[i] = m.String()
	}
	return out
}

// NLBString renders the line without line breaks.
func (pvLine PVLine) NLBString() string {
	return fmt.Sprintf("PV; val %g; %s", pvLine.score, strings.Join(pvLine.Strings(), " "))
}
