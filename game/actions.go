package game

import (
	"fmt"
)

// An Action is one of the five hook commands a player may issue.
type Action int8

const (
	ActionStay Action = iota
	ActionUp
	ActionDown
	ActionLeft
	ActionRight
)

// NumActions is the branching factor of an unconstrained player.
const NumActions = 5

var actionDeltas = [NumActions]Point{
	ActionStay:  {0, 0},
	ActionUp:    {0, 1},
	ActionDown:  {0, -1},
	ActionLeft:  {-1, 0},
	ActionRight: {1, 0},
}

var actionNames = [NumActions]string{"stay", "up", "down", "left", "right"}

// AllActions lists the actions in the order children are generated.
var AllActions = [NumActions]Action{ActionStay, ActionUp, ActionDown, ActionLeft, ActionRight}

func (a Action) Valid() bool {
	return a >= 0 && int(a) < NumActions
}

func (a Action) String() string {
	if !a.Valid() {
		return fmt.Sprintf("action(%d)", int8(a))
	}
	return actionNames[a]
}

// Delta is the hook displacement the action requests.
func (a Action) Delta() Point {
	if !a.Valid() {
		return Point{}
	}
	return actionDeltas[a]
}

func ParseAction(s string) (Action, error) {
	for i, n := range actionNames {
		if n == s {
			return Action(i), nil
		}
	}
	return ActionStay, fmt.Errorf("unknown action %q", s)
}

// Fish displacement codes, as they appear in an observation window.
const (
	DisplaceUp = iota
	DisplaceDown
	DisplaceLeft
	DisplaceRight
	DisplaceUpLeft
	DisplaceUpRight
	DisplaceDownLeft
	DisplaceDownRight
	DisplaceNone
	NumDisplacements
)

var displacements = [NumDisplacements]Point{
	DisplaceUp:        {0, 1},
	DisplaceDown:      {0, -1},
	DisplaceLeft:      {-1, 0},
	DisplaceRight:     {1, 0},
	DisplaceUpLeft:    {-1, 1},
	DisplaceUpRight:   {1, 1},
	DisplaceDownLeft:  {-1, -1},
	DisplaceDownRight: {1, -1},
	DisplaceNone:      {0, 0},
}

// Displacement decodes an observation code. Unknown codes leave the fish in place.
func Displacement(code int) Point {
	if code < 0 || code >= NumDisplacements {
		return Point{}
	}
	return displacements[code]
}
