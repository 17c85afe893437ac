package minimax

import (
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/derby/game"
)

func TestTableEntryPacking(t *testing.T) {
	is := is.New(t)
	e := newEntry(-12.5, TTLower, 17, game.ActionLeft)
	is.Equal(e.flag(), uint8(TTLower))
	is.Equal(e.depth(), uint8(17))
	is.Equal(e.move, game.ActionLeft)
	is.True(e.valid())
	is.True(!TableEntry{}.valid())
}

func TestTTDepthSafety(t *testing.T) {
	is := is.New(t)
	tt := &TranspositionTable{}
	tt.Reset(12, 0)

	key := uint64(0xdeadbeefcafe)
	tt.store(key, newEntry(42, TTExact, 2, game.ActionUp))

	_, ok := tt.probe(key, 4)
	is.True(!ok) // a depth-2 value must not answer a depth-4 query
	e, ok := tt.probe(key, 2)
	is.True(ok)
	is.Equal(e.score, 42.0)
	_, ok = tt.probe(key, 1)
	is.True(ok)
}

func TestTTKeepsDeeperEntry(t *testing.T) {
	is := is.New(t)
	tt := &TranspositionTable{}
	tt.Reset(12, 0)
	key := uint64(77)
	tt.store(key, newEntry(5, TTExact, 6, game.ActionDown))
	tt.store(key, newEntry(9, TTExact, 3, game.ActionUp))
	e, ok := tt.probe(key, 6)
	is.True(ok)
	is.Equal(e.score, 5.0)
}

func TestTTCollision(t *testing.T) {
	is := is.New(t)
	tt := &TranspositionTable{}
	tt.Reset(MinTableSizePowerOf2, 0)
	a := uint64(3)
	b := a + 1<<MinTableSizePowerOf2 // same bucket
	tt.store(a, newEntry(1, TTExact, 1, game.ActionStay))
	_, ok := tt.probe(b, 0)
	is.True(!ok)
	_, _, _, collisions := tt.Stats()
	is.Equal(collisions, uint64(1))
}

func TestTTReset(t *testing.T) {
	is := is.New(t)
	tt := &TranspositionTable{}
	tt.Reset(12, 0)
	tt.store(9, newEntry(1, TTExact, 1, game.ActionStay))
	tt.Reset(12, 0)
	_, ok := tt.probe(9, 0)
	is.True(!ok)
	is.Equal(len(tt.table), 1<<12)
}
