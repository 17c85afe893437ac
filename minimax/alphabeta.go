package minimax

import (
	"cmp"
	"context"
	"math"
	"slices"

	"github.com/domino14/derby/game"
	"github.com/domino14/derby/heuristic"
)

// orderChildren sorts children best-first for the player to move, by static
// evaluation. The sort is stable so ties keep generation order.
func orderChildren(children []*game.Node, maximizing bool) {
	slices.SortStableFunc(children, func(a, b *game.Node) int {
		ea, eb := a.Estimate(heuristic.Evaluate), b.Estimate(heuristic.Evaluate)
		if maximizing {
			return cmp.Compare(eb, ea)
		}
		return cmp.Compare(ea, eb)
	})
}

func better(value, best float64, maximizing bool) bool {
	if maximizing {
		return value > best
	}
	return value < best
}

// alphabeta returns the minimax value of node searched depth plies further,
// from player 0's point of view. It fails soft. A node is depth limited if
// it still had children when depth ran out; subtrees free of such nodes are
// stored in the table as valid at any depth.
func (s *Solver) alphabeta(ctx context.Context, node *game.Node, depth int, α, β float64,
	pv *PVLine) (float64, error) {

	if ctx.Err() != nil {
		return 0, ErrSearchTimeout
	}
	if !node.HasChildren() {
		return node.Estimate(heuristic.Evaluate), nil
	}
	if depth == 0 {
		s.depthLimited = true
		return node.Estimate(heuristic.Evaluate), nil
	}

	var nodeKey uint64
	if s.transpositionTableOptim {
		nodeKey = s.zobrist.Hash(node.State, node.Depth)
		if ttEntry, ok := s.ttable.probe(nodeKey, depth); ok {
			if ttEntry.depth() != depthMask {
				s.depthLimited = true
			}
			score := ttEntry.score
			switch ttEntry.flag() {
			case TTExact:
				return score, nil
			case TTLower:
				if score >= β {
					return score, nil
				}
			case TTUpper:
				if score <= α {
					return score, nil
				}
			}
		}
	}

	limitedAbove := s.depthLimited
	s.depthLimited = false

	maximizing := node.State.Player == 0
	children := node.Children()
	orderChildren(children, maximizing)

	alphaOrig, betaOrig := α, β
	childPV := PVLine{}
	var bestValue float64
	bestMove := children[0].Move
	for i, child := range children {
		s.nodes++
		value, err := s.alphabeta(ctx, child, depth-1, α, β, &childPV)
		if err != nil {
			return value, err
		}
		if i == 0 || better(value, bestValue, maximizing) {
			bestValue = value
			bestMove = child.Move
			pv.Update(child.Move, childPV, value)
		}
		if maximizing {
			α = max(α, bestValue)
		} else {
			β = min(β, bestValue)
		}
		childPV.Clear()
		if α >= β {
			break
		}
	}

	subtreeLimited := s.depthLimited
	s.depthLimited = limitedAbove || subtreeLimited

	if s.transpositionTableOptim {
		var flag uint8
		switch {
		case bestValue <= alphaOrig:
			flag = TTUpper
		case bestValue >= betaOrig:
			flag = TTLower
		default:
			flag = TTExact
		}
		storeDepth := depth
		if !subtreeLimited {
			storeDepth = depthMask
		}
		s.ttable.store(nodeKey, newEntry(bestValue, flag, storeDepth, bestMove))
	}
	return bestValue, nil
}

// searchRoot runs one full-width pass at the given depth. The root is
// never looked up in the table since a move is needed. Ties keep the
// earlier child.
func (s *Solver) searchRoot(ctx context.Context, root *game.Node, depth int,
	pv *PVLine) (float64, map[game.Action]float64, error) {

	maximizing := root.State.Player == 0
	α, β := math.Inf(-1), math.Inf(1)
	values := make(map[game.Action]float64, game.NumActions)
	childPV := PVLine{}
	var bestValue float64
	for i, child := range root.Children() {
		s.nodes++
		value, err := s.alphabeta(ctx, child, depth-1, α, β, &childPV)
		if err != nil {
			return 0, nil, err
		}
		values[child.Move] = value
		if i == 0 || better(value, bestValue, maximizing) {
			bestValue = value
			pv.Update(child.Move, childPV, value)
		}
		if maximizing {
			α = max(α, bestValue)
		} else {
			β = min(β, bestValue)
		}
		childPV.Clear()
	}
	return bestValue, values, nil
}
