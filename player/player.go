// Package player is the decision worker: it answers every snapshot the game
// sends with the move its solver picks.
package player

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
	"github.com/domino14/derby/transport"
)

// Model is what the player learns from the handshake.
type Model struct {
	FishTypes  map[int]int
	FishScores map[int]int
}

// newModel rejects a fish whose known species carries a different score.
// Unknown species are taken at their stated score.
func newModel(h *protocol.Handshake) (*Model, error) {
	m := &Model{
		FishTypes:  make(map[int]int, len(h.Fish)),
		FishScores: make(map[int]int, len(h.Fish)),
	}
	for id, f := range h.Fish {
		if want, ok := game.ScoreForType(f.Type); ok && want != f.Score {
			return nil, fmt.Errorf("%w: fish%d of type %d scores %d, not %d",
				protocol.ErrMalformedHandshake, id, f.Type, f.Score, want)
		}
		m.FishTypes[id] = f.Type
		m.FishScores[id] = f.Score
	}
	return m, nil
}

// Controller runs the player's side of one game.
type Controller struct {
	cfg    *config.Config
	ch     transport.Channel
	solver *minimax.Solver
	grid   game.Grid
	model  *Model

	turns int
}

func NewController(cfg *config.Config, ch transport.Channel, solver *minimax.Solver) *Controller {
	return &Controller{
		cfg:    cfg,
		ch:     ch,
		solver: solver,
		grid:   game.NewGrid(cfg.SpaceSubdivisions),
	}
}

func (c *Controller) Model() *Model {
	return c.model
}

func (c *Controller) Turns() int {
	return c.turns
}

// Run handles the handshake and then every turn until the game is over.
// A hung-up channel ends the run with transport.ErrClosed.
func (c *Controller) Run(ctx context.Context) error {
	data, err := c.ch.Receive(ctx)
	if err != nil {
		return fmt.Errorf("waiting for handshake: %w", err)
	}
	hs, err := protocol.DecodeHandshake(data)
	if err != nil {
		return err
	}
	model, err := newModel(hs)
	if err != nil {
		return err
	}
	c.model = model
	log.Debug().Int("fish", len(c.model.FishScores)).Msg("handshake-received")
	if hs.GameOver {
		return nil
	}

	for {
		data, err := c.ch.Receive(ctx)
		if err != nil {
			if errors.Is(err, transport.ErrClosed) {
				log.Info().Int("turns", c.turns).Msg("game-hung-up")
			}
			return err
		}
		over, err := protocol.IsGameOver(data)
		if err != nil {
			return fmt.Errorf("%w: %w", protocol.ErrMalformedSnapshot, err)
		}
		if over {
			log.Debug().Int("turns", c.turns).Msg("game-over")
			return nil
		}
		resp, err := c.Respond(ctx, data)
		if err != nil {
			return err
		}
		out, err := protocol.EncodeResponse(resp)
		if err != nil {
			return err
		}
		if err := c.ch.Send(ctx, out); err != nil {
			return err
		}
		c.turns++
	}
}

// Respond turns one raw snapshot into a response.
func (c *Controller) Respond(ctx context.Context, data []byte) (protocol.Response, error) {
	tstart := time.Now()
	snap, err := protocol.DecodeSnapshot(data)
	if err != nil {
		return protocol.Response{}, err
	}
	root, err := snap.Root(c.grid)
	if err != nil {
		return protocol.Response{}, err
	}
	res, err := c.solver.Search(ctx, root)
	if err != nil {
		return protocol.Response{}, err
	}
	elapsed := time.Since(tstart)
	log.Debug().
		Int("turn", c.turns).
		Str("action", res.Move.String()).
		Int("depth", res.Depth).
		Uint64("nodes", res.Nodes).
		Str("pv", c.solver.PrincipalVariation().NLBString()).
		Dur("search-time", elapsed).
		Msg("responding")
	return protocol.NewResponse(res.Move, elapsed.Seconds()), nil
}
