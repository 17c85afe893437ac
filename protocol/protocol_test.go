package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domino14/derby/game"
)

var grid = game.NewGrid(20)

func TestHandshakeWireLayout(t *testing.T) {
	h := Handshake{Fish: map[int]FishInfo{0: {Type: 4, Score: 5}, 12: {Type: 6, Score: -7}}}
	data, err := json.Marshal(h)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fish0":{"type":4,"score":5},"fish12":{"type":6,"score":-7},"game_over":false}`, string(data))

	back, err := DecodeHandshake(data)
	require.NoError(t, err)
	assert.Equal(t, h.Fish, back.Fish)
	assert.False(t, back.GameOver)
}

func TestHandshakeMalformed(t *testing.T) {
	cases := map[string]string{
		"bad fish key":    `{"fishX":{"type":1,"score":2},"game_over":false}`,
		"not json":        `not json`,
		"empty object":    `{}`,
		"null":            `null`,
		"array":           `[1, 2]`,
		"no game_over":    `{"fish0":{"type":1,"score":2}}`,
		"fish no fields":  `{"fish0":{},"game_over":false}`,
		"fish no score":   `{"fish0":{"type":1},"game_over":false}`,
		"fish no type":    `{"fish0":{"score":2},"game_over":false}`,
		"fish not object": `{"fish0":3,"game_over":false}`,
	}
	for name, data := range cases {
		h, err := DecodeHandshake([]byte(data))
		assert.True(t, errors.Is(err, ErrMalformedHandshake), name)
		assert.Nil(t, h, name)
	}
}

func TestHandshakeGameOverOnly(t *testing.T) {
	h, err := DecodeHandshake([]byte(`{"game_over":true}`))
	require.NoError(t, err)
	assert.True(t, h.GameOver)
	assert.Empty(t, h.Fish)

	h, err = DecodeHandshake([]byte(`{"fish3":{"type":0,"score":1},"game_over":false}`))
	require.NoError(t, err)
	assert.Equal(t, map[int]FishInfo{3: {Type: 0, Score: 1}}, h.Fish)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := game.NewState(grid, 0, [2]game.Point{{X: 1, Y: 2}, {X: 7, Y: 19}},
		map[int]game.Point{0: {X: 1, Y: 2}, 3: {X: 15, Y: 4}}, map[int]int{0: 6, 3: -2, 5: 9})
	s.Scores = [2]int{9, 4}
	s.Caught[0] = 0
	obs := game.Observations{0: {1, 2}, 3: {8, 8}}

	data, err := json.Marshal(NewSnapshot(s, obs))
	require.NoError(t, err)

	snap, err := DecodeSnapshot(data)
	require.NoError(t, err)
	root, err := snap.Root(grid)
	require.NoError(t, err)
	got := root.State
	assert.Equal(t, s.Hooks, got.Hooks)
	assert.Equal(t, s.Scores, got.Scores)
	assert.Equal(t, s.Caught, got.Caught)
	assert.Equal(t, s.Fish, got.Fish)
	assert.Equal(t, 0, got.Player)
	assert.Equal(t, 2, root.Horizon())
}

func TestSnapshotWireNames(t *testing.T) {
	data := []byte(`{
		"hooks_positions": {"0": [3, 4], "1": [9, 9]},
		"fishes_positions": {"2": [5, 5]},
		"observations": {"2": [0, 1, 8]},
		"fish_scores": {"2": 11},
		"player_scores": {"0": 0, "1": 3},
		"caught_fish": {"0": null, "1": null},
		"game_over": false
	}`)
	snap, err := DecodeSnapshot(data)
	require.NoError(t, err)
	root, err := snap.Root(grid)
	require.NoError(t, err)
	assert.Equal(t, game.Point{X: 3, Y: 4}, root.State.Hooks[0])
	assert.Equal(t, [2]int{game.NoFish, game.NoFish}, root.State.Caught)
	assert.Equal(t, 3, root.Horizon())
}

func TestSnapshotMissingHook(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(`{"hooks_positions":{"0":[1,1]},"player_scores":{"0":0,"1":0}}`))
	require.NoError(t, err)
	_, err = snap.Root(grid)
	assert.True(t, errors.Is(err, ErrMalformedSnapshot))
}

func TestSnapshotRejectsSharedColumn(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(`{"hooks_positions":{"0":[4,1],"1":[4,9]},"player_scores":{"0":0,"1":0}}`))
	require.NoError(t, err)
	_, err = snap.Root(grid)
	assert.True(t, errors.Is(err, ErrMalformedSnapshot))
}

func TestResponse(t *testing.T) {
	data, err := json.Marshal(NewResponse(game.ActionLeft, 0.012))
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"left","search_time":0.012}`, string(data))

	r, err := DecodeResponse([]byte(`{"action":"down","search_time":null}`))
	require.NoError(t, err)
	a, err := r.ParsedAction()
	require.NoError(t, err)
	assert.Equal(t, game.ActionDown, a)

	r, err = DecodeResponse([]byte(`{"action":"jump"}`))
	require.NoError(t, err)
	_, err = r.ParsedAction()
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}

func TestIsGameOver(t *testing.T) {
	over, err := IsGameOver(GameOverMessage())
	require.NoError(t, err)
	assert.True(t, over)
	over, err = IsGameOver([]byte(`{"hooks_positions":{}}`))
	require.NoError(t, err)
	assert.False(t, over)
}
