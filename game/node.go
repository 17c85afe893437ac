package game

import "strings"

// Node is a vertex of the lazily expanded lookahead tree. Children are
// generated at most once and kept for the lifetime of the tree.
type Node struct {
	State  *State
	Parent *Node
	// Move is the action that led here from Parent.
	Move  Action
	Depth int

	obs      Observations
	horizon  int
	children []*Node
	expanded bool

	estimate    float64
	hasEstimate bool
}

// NewRoot wraps a state and the known observation window into a tree root.
func NewRoot(s *State, obs Observations) *Node {
	return &Node{
		State:   s,
		Move:    ActionStay,
		obs:     obs,
		horizon: obs.Horizon(),
	}
}

// Horizon is the depth past which no observations are known.
func (n *Node) Horizon() int {
	return n.horizon
}

func (n *Node) Observations() Observations {
	return n.obs
}

// HasChildren reports whether the node can be expanded, without expanding it.
func (n *Node) HasChildren() bool {
	return n.Depth < n.horizon
}

// Expanded reports whether Children has already been called.
func (n *Node) Expanded() bool {
	return n.expanded
}

// Children generates and memoizes the successors of n. A player with a
// hooked fish has a single child; otherwise there is one per action.
func (n *Node) Children() []*Node {
	if n.expanded {
		return n.children
	}
	n.expanded = true
	if !n.HasChildren() {
		return nil
	}
	if n.State.Hooked(n.State.Player) {
		n.children = []*Node{n.child(ActionUp)}
		return n.children
	}
	n.children = make([]*Node, 0, NumActions)
	for _, a := range AllActions {
		n.children = append(n.children, n.child(a))
	}
	return n.children
}

func (n *Node) child(a Action) *Node {
	return &Node{
		State:   NextState(n.State, a, n.obs, n.Depth),
		Parent:  n,
		Move:    a,
		Depth:   n.Depth + 1,
		obs:     n.obs,
		horizon: n.horizon,
	}
}

// Estimate returns the static value of the node under eval, computing it
// once.
func (n *Node) Estimate(eval func(*State) float64) float64 {
	if !n.hasEstimate {
		n.estimate = eval(n.State)
		n.hasEstimate = true
	}
	return n.estimate
}

// Line returns the actions from the root down to n.
func (n *Node) Line() []Action {
	var line []Action
	for cur := n; cur.Parent != nil; cur = cur.Parent {
		line = append(line, cur.Move)
	}
	for i, j := 0, len(line)-1; i < j; i, j = i+1, j-1 {
		line[i], line[j] = line[j], line[i]
	}
	return line
}

func (n *Node) String() string {
	var sb strings.Builder
	for i, a := range n.Line() {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(a.String())
	}
	if sb.Len() == 0 {
		sb.WriteString("root")
	}
	sb.WriteString(" | ")
	sb.WriteString(n.State.String())
	return sb.String()
}
