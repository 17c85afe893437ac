package zobrist

import (
	"slices"

	"github.com/samber/lo"
	"lukechampine.com/frand"

	"github.com/domino14/derby/game"
)

const bignum = 1<<63 - 2

// MaxPly is how many plies below the root get their own random key.
const MaxPly = 64

// generate a zobrist hash for a derby position.
// https://en.wikipedia.org/wiki/Zobrist_hashing
type Zobrist struct {
	theirTurn uint64
	plyTable  [MaxPly]uint64

	hookTable   [game.NumPlayers][]uint64
	fishTable   [][]uint64
	hookedTable [game.NumPlayers][]uint64

	grid    game.Grid
	fishIdx map[int]int
}

func randomKey() uint64 {
	return frand.Uint64n(bignum) + 1
}

// Initialize builds fresh random keys for a grid and a fixed set of fish.
func (z *Zobrist) Initialize(grid game.Grid, fishIDs []int) {
	cells := grid.Width * grid.Height
	z.grid = grid
	for p := range game.NumPlayers {
		z.hookTable[p] = make([]uint64, cells)
		for i := range cells {
			z.hookTable[p][i] = randomKey()
		}
		z.hookedTable[p] = make([]uint64, len(fishIDs))
		for i := range fishIDs {
			z.hookedTable[p][i] = randomKey()
		}
	}
	z.fishIdx = make(map[int]int, len(fishIDs))
	z.fishTable = make([][]uint64, len(fishIDs))
	for i, id := range fishIDs {
		z.fishIdx[id] = i
		z.fishTable[i] = make([]uint64, cells)
		for j := range cells {
			z.fishTable[i][j] = randomKey()
		}
	}
	z.theirTurn = randomKey()
	for i := range z.plyTable {
		z.plyTable[i] = randomKey()
	}
}

// Covers reports whether the keys were built for this grid and fish set,
// so they can be reused for another position of the same game.
func (z *Zobrist) Covers(grid game.Grid, fishIDs []int) bool {
	if z.grid != grid || len(z.fishIdx) < len(fishIDs) {
		return false
	}
	for _, id := range fishIDs {
		if _, ok := z.fishIdx[id]; !ok {
			return false
		}
	}
	return true
}

// https://stackoverflow.com/a/12996028/1737333
func hashUint64(x uint64) uint64 {
	x = (x ^ (x >> 30)) * uint64(0xbf58476d1ce4e5b9)
	x = (x ^ (x >> 27)) * uint64(0x94d049bb133111eb)
	x = x ^ (x >> 31)
	return x
}

func (z *Zobrist) cell(p game.Point) int {
	return p.Y*z.grid.Width + p.X
}

// Hash returns the signature of s reached ply plies below the search root.
// It covers the player to move, both hooks and what hangs from them, every
// fish in the water and the spread. The ply is part of the key because fish
// at different plies follow different observations.
func (z *Zobrist) Hash(s *game.State, ply int) uint64 {
	key := uint64(0)
	if ply >= 0 && ply < MaxPly {
		key ^= z.plyTable[ply]
	} else {
		key ^= hashUint64(uint64(ply) ^ z.theirTurn)
	}
	for p := range game.NumPlayers {
		key ^= z.hookTable[p][z.cell(s.Hooks[p])]
		if id := s.Caught[p]; id != game.NoFish {
			key ^= z.hookedKey(p, id)
		}
	}
	for _, f := range s.Fish {
		idx, ok := z.fishIdx[f.ID]
		if !ok {
			key ^= hashUint64(uint64(f.ID)<<32 | uint64(z.cell(f.Pos)))
			continue
		}
		key ^= z.fishTable[idx][z.cell(f.Pos)]
	}
	if s.Player == 1 {
		key ^= z.theirTurn
	}
	key ^= hashUint64(uint64(s.Spread()))
	return key
}

func (z *Zobrist) hookedKey(p, id int) uint64 {
	if idx, ok := z.fishIdx[id]; ok {
		return z.hookedTable[p][idx]
	}
	return hashUint64(uint64(id)<<1 | uint64(p) ^ z.theirTurn)
}

// FishIDs lists the ids a state's fish table should cover, sorted.
func FishIDs(fishScores map[int]int) []int {
	ids := lo.Keys(fishScores)
	slices.Sort(ids)
	return ids
}
