// Package derby is the game worker: it owns the real world, steps it one
// ply at a time, and asks the player worker for player 0's moves while a
// built-in solver plays player 1.
package derby

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/domino14/derby/config"
	"github.com/domino14/derby/game"
	"github.com/domino14/derby/minimax"
	"github.com/domino14/derby/protocol"
	"github.com/domino14/derby/stats"
	"github.com/domino14/derby/transport"
)

var (
	// ErrTooManyTimeouts ends a match whose player overran the response
	// deadline MaxTimeouts turns in a row.
	ErrTooManyTimeouts = errors.New("player exceeded the response deadline too many times")
	// ErrPlayerStalled ends a match whose player stopped answering.
	ErrPlayerStalled = errors.New("player stopped responding")
)

// stallFactor multiplies the response deadline to give the longest wait
// for a single reply.
const stallFactor = 20

// Result summarizes a finished match.
type Result struct {
	Scores      [game.NumPlayers]int
	Plies       int
	PlayerTurns int
	Timeouts    int
	// SearchTime is the search time player 0 reported, in seconds.
	SearchTime stats.Statistic
	// ResponseTime is the round trip the game measured, in seconds.
	ResponseTime stats.Statistic
	Digest       uint64
}

// Spread is player 0's score minus player 1's.
func (r *Result) Spread() int {
	return r.Scores[0] - r.Scores[1]
}

// Winner returns the winning player, or -1 for a tie.
func (r *Result) Winner() int {
	switch {
	case r.Spread() > 0:
		return 0
	case r.Spread() < 0:
		return 1
	}
	return -1
}

// GameRunner plays one scenario to the end.
type GameRunner struct {
	cfg      *config.Config
	scenario *Scenario
	grid     game.Grid
	opponent *minimax.Solver

	state *game.State
	obs   game.Observations
	ply   int
	plies int

	consecutiveTimeouts int
	result              Result
}

// NewGameRunner sets up a game of sc. opponent plays player 1.
func NewGameRunner(cfg *config.Config, sc *Scenario, opponent *minimax.Solver) (*GameRunner, error) {
	grid := game.NewGrid(cfg.SpaceSubdivisions)
	st, err := sc.InitialState(grid)
	if err != nil {
		return nil, err
	}
	obs, err := sc.Observations()
	if err != nil {
		return nil, err
	}
	digest, err := sc.Digest()
	if err != nil {
		return nil, err
	}
	return &GameRunner{
		cfg:      cfg,
		scenario: sc,
		grid:     grid,
		opponent: opponent,
		state:    st,
		obs:      obs,
		plies:    sc.Plies(),
		result:   Result{Digest: digest},
	}, nil
}

// State is the current world.
func (r *GameRunner) State() *game.State {
	return r.state
}

func (r *GameRunner) Ply() int {
	return r.ply
}

// Handshake is the first message of the game.
func (r *GameRunner) Handshake() protocol.Handshake {
	h := protocol.Handshake{Fish: make(map[int]protocol.FishInfo, len(r.state.FishScores))}
	for id, score := range r.state.FishScores {
		typ, ok := game.TypeForScore(score)
		if !ok {
			typ = -1
		}
		h.Fish[id] = protocol.FishInfo{Type: typ, Score: score}
	}
	return h
}

// Over reports whether the game has ended.
func (r *GameRunner) Over() bool {
	return r.state.NumFish() == 0 || r.ply >= r.plies
}

// Play runs the game over ch, talking to the player worker for player 0.
// The game-over message is sent even when the match is aborted.
func (r *GameRunner) Play(ctx context.Context, ch transport.Channel) (*Result, error) {
	hs, err := protocol.EncodeHandshake(r.Handshake())
	if err != nil {
		return nil, err
	}
	if err := ch.Send(ctx, hs); err != nil {
		return nil, fmt.Errorf("sending handshake: %w", err)
	}
	log.Debug().Uint64("scenario", r.result.Digest).Int("plies", r.plies).
		Int("fish", r.state.NumFish()).Msg("game-starting")

	for !r.Over() {
		if err := r.step(ctx, ch); err != nil {
			r.finish(ctx, ch)
			return &r.result, err
		}
	}
	r.finish(ctx, ch)
	log.Info().
		Int("p0", r.result.Scores[0]).
		Int("p1", r.result.Scores[1]).
		Int("plies", r.result.Plies).
		Int("timeouts", r.result.Timeouts).
		Msg("game-over")
	return &r.result, nil
}

func (r *GameRunner) finish(ctx context.Context, ch transport.Channel) {
	r.result.Scores = r.state.Scores
	r.result.Plies = r.ply
	if err := ch.Send(ctx, protocol.GameOverMessage()); err != nil {
		log.Debug().Err(err).Msg("could-not-send-game-over")
	}
}

// step plays one ply.
func (r *GameRunner) step(ctx context.Context, ch transport.Channel) error {
	var act game.Action
	var err error
	if r.state.Player == 0 {
		act, err = r.askPlayer(ctx, ch)
	} else {
		act, err = r.askOpponent(ctx)
	}
	if err != nil {
		return err
	}
	if r.state.Hooked(r.state.Player) {
		act = game.ActionUp
	}
	log.Trace().Int("ply", r.ply).Int("player", r.state.Player).Str("action", act.String()).Msg("applying")
	r.state = game.NextState(r.state, act, r.obs, r.ply)
	r.ply++
	return nil
}

func (r *GameRunner) askPlayer(ctx context.Context, ch transport.Channel) (game.Action, error) {
	msg, err := protocol.EncodeSnapshot(protocol.NewSnapshot(r.state, r.obs.Suffix(r.ply)))
	if err != nil {
		return game.ActionStay, err
	}
	sent := time.Now()
	if err := ch.Send(ctx, msg); err != nil {
		return game.ActionStay, fmt.Errorf("sending snapshot: %w", err)
	}

	wctx, cancel := context.WithTimeout(ctx, r.cfg.ResponseDeadline*stallFactor)
	defer cancel()
	data, err := ch.Receive(wctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return game.ActionStay, fmt.Errorf("%w: ply %d", ErrPlayerStalled, r.ply)
		}
		return game.ActionStay, fmt.Errorf("waiting for response: %w", err)
	}
	elapsed := time.Since(sent)
	r.result.PlayerTurns++
	r.result.ResponseTime.Push(elapsed.Seconds())

	if elapsed > r.cfg.ResponseDeadline {
		r.consecutiveTimeouts++
		r.result.Timeouts++
		log.Warn().Int("ply", r.ply).Dur("elapsed", elapsed).
			Int("consecutive", r.consecutiveTimeouts).Msg("response-deadline-missed")
		if r.consecutiveTimeouts >= r.cfg.MaxTimeouts {
			return game.ActionStay, ErrTooManyTimeouts
		}
	} else {
		r.consecutiveTimeouts = 0
	}

	resp, err := protocol.DecodeResponse(data)
	if err != nil {
		return game.ActionStay, err
	}
	if resp.SearchTime != nil {
		r.result.SearchTime.Push(*resp.SearchTime)
	}
	return resp.ParsedAction()
}

func (r *GameRunner) askOpponent(ctx context.Context) (game.Action, error) {
	root := game.NewRoot(r.state.WithPlayer(1), r.obs.Suffix(r.ply))
	res, err := r.opponent.Search(ctx, root)
	if err != nil {
		return game.ActionStay, fmt.Errorf("opponent: %w", err)
	}
	return res.Move, nil
}
