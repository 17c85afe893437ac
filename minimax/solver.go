// Package minimax picks a move for one side of the derby with a
// time-bounded, iteratively deepened alpha-beta search.
package minimax

import (
	"context"
	"errors"
	"io"
	"math"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/domino14/derby/config"
	"github.com/domino14/derby/game"
	"github.com/domino14/derby/heuristic"
	"github.com/domino14/derby/zobrist"
)

// ErrSearchTimeout aborts a pass once the search deadline has passed. It
// never escapes Search.
var ErrSearchTimeout = errors.New("search timed out")

// Result is the outcome of one Search call. Value is from player 0's point
// of view.
type Result struct {
	Move  game.Action
	Value float64
	// Depth is the last fully completed depth; 0 means no pass finished
	// and Move is the best child by static evaluation.
	Depth int
	PV    []game.Action
	Nodes uint64

	Elapsed time.Duration
	// Forced is set when the player had a fish on the line and no search
	// was run.
	Forced bool
	// TimedOut is set when a pass was abandoned at the deadline.
	TimedOut bool
	// Exhausted is set when the last pass reached the end of the
	// observation window on every line.
	Exhausted bool
}

type Solver struct {
	zobrist *zobrist.Zobrist
	ttable  *TranspositionTable

	timeBudget       time.Duration
	maxDepth         int
	ttSizePowerOf2   int
	ttMemoryFraction float64

	iterativeDeepeningOptim bool
	transpositionTableOptim bool
	earlyDecisionOptim      bool

	depthLimited   bool
	nodes          uint64

	principalVariation PVLine
	onDepthComplete    func(Result)

	logStream io.Writer
}

// NewSolver creates a solver tuned by cfg. A solver keeps its tables
// between calls but is not safe for concurrent use.
func NewSolver(cfg *config.Config) *Solver {
	return &Solver{
		zobrist:                 &zobrist.Zobrist{},
		ttable:                  &TranspositionTable{},
		timeBudget:              cfg.SearchTimeBudget,
		maxDepth:                min(cfg.MaxSearchDepth, depthMask-1),
		ttSizePowerOf2:          cfg.TTableSizePowerOf2,
		ttMemoryFraction:        cfg.TTableMemoryFraction,
		iterativeDeepeningOptim: true,
		transpositionTableOptim: true,
		earlyDecisionOptim:      true,
	}
}

func (s *Solver) prepare(root *game.Node) {
	ids := zobrist.FishIDs(root.State.FishScores)
	if !s.zobrist.Covers(root.State.Grid, ids) {
		log.Debug().Int("fish", len(ids)).Msg("creating-zobrist-hash")
		s.zobrist = &zobrist.Zobrist{}
		s.zobrist.Initialize(root.State.Grid, ids)
	}
	if s.transpositionTableOptim {
		s.ttable.Reset(s.ttSizePowerOf2, s.ttMemoryFraction)
	}
	s.nodes = 0
	s.principalVariation.Clear()
}

// Search returns the best move for the player to move at root. It always
// returns a legal action: with a fish on the line it is "up" without any
// search, with no lookahead available it is "stay", and if not even the
// first pass completes in time it is the child the evaluator likes best.
// Otherwise it is the best move of the deepest completed pass.
func (s *Solver) Search(ctx context.Context, root *game.Node) (Result, error) {
	tstart := time.Now()
	player := root.State.Player
	if root.State.Hooked(player) {
		log.Debug().Int("player", player).Msg("reeling-in")
		return Result{Move: game.ActionUp, Forced: true, Elapsed: time.Since(tstart)}, nil
	}

	children := root.Children()
	if len(children) == 0 {
		log.Debug().Int("player", player).Msg("no-lookahead-staying")
		return Result{Move: game.ActionStay, Exhausted: true, Elapsed: time.Since(tstart)}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeBudget)
	defer cancel()

	s.prepare(root)
	maximizing := player == 0
	orderChildren(children, maximizing)
	best := Result{
		Move:  children[0].Move,
		Value: children[0].Estimate(heuristic.Evaluate),
	}

	plies := min(s.maxDepth, root.Horizon())
	start := 1
	if !s.iterativeDeepeningOptim {
		start = plies
	}

	for p := start; p <= plies; p++ {
		log.Trace().Int("plies", p).Msg("deepening-iteratively")
		s.depthLimited = false
		pv := PVLine{}
		val, values, err := s.searchRoot(ctx, root, p, &pv)
		if errors.Is(err, ErrSearchTimeout) {
			log.Trace().Int("plies", p).Msg("search-deadline-hit")
			best.TimedOut = true
			break
		}
		if err != nil {
			return best, err
		}
		s.principalVariation = pv
		best = Result{
			Move:      pv.Moves[0],
			Value:     val,
			Depth:     p,
			PV:        slices.Clone(pv.Moves),
			Nodes:     s.nodes,
			Elapsed:   time.Since(tstart),
			Exhausted: !s.depthLimited,
		}
		log.Trace().Float64("value", val).Int("ply", p).Str("pv", pv.NLBString()).Msg("best-val")
		s.trace(best)
		if s.onDepthComplete != nil {
			s.onDepthComplete(best)
		}
		if best.Exhausted {
			break
		}
		if s.earlyDecisionOptim && decided(val, maximizing) {
			break
		}
		// Search the most promising first move first next time around.
		slices.SortStableFunc(children, func(a, b *game.Node) int {
			va, vb := values[a.Move], values[b.Move]
			switch {
			case better(va, vb, maximizing):
				return -1
			case better(vb, va, maximizing):
				return 1
			}
			return 0
		})
	}

	best.Nodes = s.nodes
	best.Elapsed = time.Since(tstart)
	if best.Depth == 0 {
		log.Warn().Int("player", player).Dur("elapsed", best.Elapsed).
			Msg("no-pass-completed-using-static-ordering")
	}
	created, lookups, hits, t2collisions := s.ttable.Stats()
	log.Debug().
		Int("player", player).
		Str("move", best.Move.String()).
		Float64("value", best.Value).
		Int("depth", best.Depth).
		Uint64("nodes", best.Nodes).
		Uint64("ttable-created", created).
		Uint64("ttable-lookups", lookups).
		Uint64("ttable-hits", hits).
		Uint64("ttable-t2collisions", t2collisions).
		Bool("timed-out", best.TimedOut).
		Float64("time-elapsed-sec", best.Elapsed.Seconds()).
		Msg("search-returning")
	return best, nil
}

// decided reports whether val is already a forced win for the side to move.
func decided(val float64, maximizing bool) bool {
	if maximizing {
		return math.IsInf(val, 1)
	}
	return math.IsInf(val, -1)
}

func (s *Solver) PrincipalVariation() PVLine {
	return s.principalVariation
}

func (s *Solver) SetTimeBudget(d time.Duration) {
	s.timeBudget = d
}

func (s *Solver) SetMaxDepth(d int) {
	s.maxDepth = min(d, depthMask-1)
}

func (s *Solver) SetIterativeDeepening(id bool) {
	s.iterativeDeepeningOptim = id
}

func (s *Solver) SetTranspositionTableOptim(tt bool) {
	s.transpositionTableOptim = tt
}

func (s *Solver) SetEarlyDecisionOptim(e bool) {
	s.earlyDecisionOptim = e
}

// SetDepthCallback registers f to be called after every completed pass.
func (s *Solver) SetDepthCallback(f func(Result)) {
	s.onDepthComplete = f
}

// SetLogStream makes the solver write a YAML trace of its passes to w.
func (s *Solver) SetLogStream(w io.Writer) {
	s.logStream = w
}
