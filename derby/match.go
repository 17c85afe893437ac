package derby

import (
	"context"
	"errors"
	"expvar"
	"io"
	"sync"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/derby/config"
	"github.com/domino14/derby/minimax"
	"github.com/domino14/derby/player"
	"github.com/domino14/derby/stats"
	"github.com/domino14/derby/transport"
)

var (
	MatchCounter *expvar.Int
	IsPlaying    *expvar.Int
)

func init() {
	MatchCounter = expvar.NewInt("derbyMatchCounter")
	IsPlaying = expvar.NewInt("derbyIsPlaying")
}

// PlayMatch plays sc between an in-process player worker, using
// playerSolver, and opponent. The two sides talk over a pipe.
func PlayMatch(ctx context.Context, cfg *config.Config, sc *Scenario,
	playerSolver, opponent *minimax.Solver) (*Result, error) {

	runner, err := NewGameRunner(cfg, sc, opponent)
	if err != nil {
		return nil, err
	}
	gameEnd, playerEnd := transport.NewPipe()
	var res *Result

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer gameEnd.Close()
		var err error
		res, err = runner.Play(gctx, gameEnd)
		return err
	})
	g.Go(func() error {
		defer playerEnd.Close()
		err := player.NewController(cfg, playerEnd, playerSolver).Run(gctx)
		if errors.Is(err, transport.ErrClosed) {
			// the game already decided how the match ended
			return nil
		}
		return err
	})
	err = g.Wait()
	return res, err
}

// Summary aggregates many matches.
type Summary struct {
	Games    int
	Wins     [2]int
	Ties     int
	Aborted  int
	Timeouts int
	Spread   stats.Statistic
	Search   stats.Statistic

	spreads []float64
}

// Add counts one finished match.
func (s *Summary) Add(r *Result) {
	s.Games++
	if w := r.Winner(); w >= 0 {
		s.Wins[w]++
	} else {
		s.Ties++
	}
	s.Timeouts += r.Timeouts
	s.Spread.Push(float64(r.Spread()))
	s.spreads = append(s.spreads, float64(r.Spread()))
	if r.SearchTime.Iterations() > 0 {
		s.Search.Push(r.SearchTime.Mean())
	}
}

// WriteHistogram draws the distribution of score spreads.
func (s *Summary) WriteHistogram(w io.Writer, bins int) error {
	if len(s.spreads) == 0 {
		return nil
	}
	return histogram.Fprint(w, histogram.Hist(bins, s.spreads), histogram.Linear(40))
}

// PlayMatches plays every scenario with the given number of worker
// goroutines. Each worker owns its pair of solvers. A match that errors is
// counted as aborted and does not stop the others.
func PlayMatches(ctx context.Context, cfg *config.Config, scenarios []*Scenario, threads int) (*Summary, error) {
	if IsPlaying.Value() > 0 {
		return nil, errors.New("matches are already being played, please wait till complete")
	}
	threads = max(1, threads)
	log.Debug().Int("games", len(scenarios)).Int("threads", threads).Msg("starting-matches")

	MatchCounter.Set(0)
	jobs := make(chan *Scenario)
	results := make(chan *Result)
	var wg sync.WaitGroup
	wg.Add(threads)

	for range threads {
		go func() {
			defer wg.Done()
			IsPlaying.Add(1)
			defer IsPlaying.Add(-1)
			playerSolver := minimax.NewSolver(cfg)
			opponent := minimax.NewSolver(cfg)
			for sc := range jobs {
				res, err := PlayMatch(ctx, cfg, sc, playerSolver, opponent)
				if err != nil {
					log.Err(err).Msg("match-aborted")
					res = nil
				}
				MatchCounter.Add(1)
				results <- res
			}
		}()
	}

	go func() {
	queue:
		for _, sc := range scenarios {
			select {
			case jobs <- sc:
			case <-ctx.Done():
				log.Info().Msg("got-stop-signal-exiting-soon")
				break queue
			}
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	sum := &Summary{}
	for res := range results {
		if res == nil {
			sum.Aborted++
			continue
		}
		sum.Add(res)
	}
	return sum, ctx.Err()
}
