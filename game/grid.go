package game

import "fmt"

type Point struct {
	X, Y int
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Grid is the body of water. It wraps around horizontally; the bottom row
// is y=0 and the surface, where hooked fish are landed, is y=Height-1.
type Grid struct {
	Width, Height int
}

func NewGrid(subdivisions int) Grid {
	return Grid{Width: subdivisions, Height: subdivisions}
}

func (g Grid) Surface() int {
	return g.Height - 1
}

func (g Grid) WrapX(x int) int {
	x %= g.Width
	if x < 0 {
		x += g.Width
	}
	return x
}

func (g Grid) Contains(p Point) bool {
	return p.X >= 0 && p.X < g.Width && p.Y >= 0 && p.Y < g.Height
}

// Move displaces p by d. X wraps; a vertical move that would leave the
// water keeps the old row.
func (g Grid) Move(p, d Point) Point {
	np := Point{X: g.WrapX(p.X + d.X), Y: p.Y + d.Y}
	if np.Y < 0 || np.Y >= g.Height {
		np.Y = p.Y
	}
	return np
}

// MoveHook is Move with the no-crossing rule applied: a hook may never
// enter the column of the adversary's hook, so such a move is a no-op.
func (g Grid) MoveHook(p, d, adversary Point) Point {
	np := g.Move(p, d)
	if np.X == adversary.X {
		return p
	}
	return np
}
