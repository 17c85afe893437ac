package player

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/domino14/derby/config"
	"github.com/domino14/derby/game"
	"github.com/domino14/derby/minimax"
	"github.com/domino14/derby/protocol"
	"github.com/domino14/derby/transport"
)

var DefaultConfig = config.DefaultConfig()

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

func start(t *testing.T) (transport.Channel, chan error, *Controller) {
	gameEnd, playerEnd := transport.NewPipe()
	cfg := DefaultConfig
	c := NewController(&cfg, playerEnd, minimax.NewSolver(&cfg))
	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()
	return gameEnd, done, c
}

func send(t *testing.T, ch transport.Channel, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if err := ch.Send(context.Background(), data); err != nil {
		t.Fatal(err)
	}
}

func TestRunAnswersSnapshots(t *testing.T) {
	is := is.New(t)
	gameEnd, done, c := start(t)

	send(t, gameEnd, protocol.Handshake{Fish: map[int]protocol.FishInfo{0: {Type: 4, Score: 5}}})

	s := game.NewState(game.NewGrid(20), 0, [2]game.Point{{X: 3, Y: 5}, {X: 10, Y: 0}},
		map[int]game.Point{0: {X: 4, Y: 5}}, map[int]int{0: 5})
	still := []int{game.DisplaceNone, game.DisplaceNone, game.DisplaceNone}
	send(t, gameEnd, protocol.NewSnapshot(s, game.Observations{0: still}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, err := gameEnd.Receive(ctx)
	is.NoErr(err)
	resp, err := protocol.DecodeResponse(data)
	is.NoErr(err)
	is.Equal(resp.Action, "right")
	is.True(resp.SearchTime != nil)

	is.NoErr(gameEnd.Send(ctx, protocol.GameOverMessage()))
	is.NoErr(<-done)
	is.Equal(c.Turns(), 1)
	is.Equal(c.Model().FishScores[0], 5)
	is.Equal(c.Model().FishTypes[0], 4)
}

func TestRunGameOverAtHandshake(t *testing.T) {
	is := is.New(t)
	gameEnd, done, _ := start(t)
	send(t, gameEnd, protocol.Handshake{GameOver: true})
	is.NoErr(<-done)
}

func TestRunMalformedSnapshot(t *testing.T) {
	is := is.New(t)
	gameEnd, done, _ := start(t)
	send(t, gameEnd, protocol.Handshake{})
	is.NoErr(gameEnd.Send(context.Background(), []byte(`{"hooks_positions":{"0":[1,1]}}`)))
	err := <-done
	is.True(errors.Is(err, protocol.ErrMalformedSnapshot))
}

func TestRunHangUp(t *testing.T) {
	is := is.New(t)
	gameEnd, done, _ := start(t)
	send(t, gameEnd, protocol.Handshake{})
	is.NoErr(gameEnd.Close())
	err := <-done
	is.True(errors.Is(err, transport.ErrClosed))
}

func TestRunMalformedHandshake(t *testing.T) {
	is := is.New(t)
	gameEnd, done, c := start(t)
	is.NoErr(gameEnd.Send(context.Background(), []byte(`{"fish0":{"type":1}}`)))
	err := <-done
	is.True(errors.Is(err, protocol.ErrMalformedHandshake))
	is.Equal(c.Model(), nil)
}

func TestRunHandshakeScoreDisagreesWithType(t *testing.T) {
	is := is.New(t)
	gameEnd, done, c := start(t)
	// type 4 is worth 5
	send(t, gameEnd, protocol.Handshake{Fish: map[int]protocol.FishInfo{0: {Type: 4, Score: 9}}})
	err := <-done
	is.True(errors.Is(err, protocol.ErrMalformedHandshake))
	is.Equal(c.Model(), nil)
}

func TestRunHandshakeUnknownType(t *testing.T) {
	is := is.New(t)
	gameEnd, done, c := start(t)
	send(t, gameEnd, protocol.Handshake{Fish: map[int]protocol.FishInfo{2: {Type: -1, Score: 9}}, GameOver: true})
	is.NoErr(<-done)
	is.Equal(c.Model().FishScores[2], 9)
}
