package minimax

import (
	"math"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"

	"github.com/domino14/derby/game"
)

const (
	TTExact = 0x01
	TTLower = 0x02
	TTUpper = 0x03
)

const entrySize = 24

const depthMask = (1 << 6) - 1

// MinTableSizePowerOf2 bounds how small Reset may shrink the table.
const MinTableSizePowerOf2 = 10

type TableEntry struct {
	fullHash     uint64
	score        float64
	flagAndDepth uint8
	move         game.Action
}

func newEntry(score float64, flag uint8, depth int, m game.Action) TableEntry {
	return TableEntry{
		score:        score,
		flagAndDepth: flag<<6 + uint8(depth&depthMask),
		move:         m,
	}
}

func (t TableEntry) flag() uint8 {
	return t.flagAndDepth >> 6
}

func (t TableEntry) depth() uint8 {
	return t.flagAndDepth & depthMask
}

func (t TableEntry) valid() bool {
	// a table flag is 1, 2, or 3.
	return t.flag() != 0
}

// TranspositionTable caches search results by zobrist key. Every entry is
// tagged with the remaining depth it was searched to, so a shallow result
// never stands in for a deeper query. It is owned by a single search and
// is not safe for concurrent use.
type TranspositionTable struct {
	table        []TableEntry
	created      uint64
	lookups      uint64
	hits         uint64
	sizePowerOf2 int
	sizeMask     uint64
	// two different positions mapping to the same bucket
	t2collisions uint64
}

func (t *TranspositionTable) lookup(zval uint64) TableEntry {
	t.lookups++
	idx := zval & t.sizeMask
	entry := t.table[idx]
	if entry.fullHash != zval || !entry.valid() {
		if entry.valid() {
			t.t2collisions++
		}
		return TableEntry{}
	}
	t.hits++
	return entry
}

// probe returns the entry for zval only if it was searched at least as
// deep as depth.
func (t *TranspositionTable) probe(zval uint64, depth int) (TableEntry, bool) {
	entry := t.lookup(zval)
	if !entry.valid() || int(entry.depth()) < depth {
		return TableEntry{}, false
	}
	return entry, true
}

func (t *TranspositionTable) store(zval uint64, tentry TableEntry) {
	idx := zval & t.sizeMask
	tentry.fullHash = zval
	// prefer keeping deeper results for the same position
	if old := t.table[idx]; old.valid() && old.fullHash == zval && old.depth() > tentry.depth() {
		return
	}
	t.table[idx] = tentry
	t.created++
}

// Reset empties the table, sizing it to the largest power of 2 that fits
// both maxPowerOf2 and the given fraction of system memory.
func (t *TranspositionTable) Reset(maxPowerOf2 int, fractionOfMemory float64) {
	totalMem := memory.TotalMemory()
	power := maxPowerOf2
	if totalMem > 0 && fractionOfMemory > 0 {
		desiredNElems := fractionOfMemory * (float64(totalMem) / float64(entrySize))
		power = min(power, int(math.Log2(desiredNElems)))
	}
	power = max(power, MinTableSizePowerOf2)

	numElems := 1 << power
	t.sizePowerOf2 = power
	t.sizeMask = uint64(numElems - 1)
	reset := false
	if t.table != nil && len(t.table) == numElems {
		reset = true
		clear(t.table)
	} else {
		t.table = make([]TableEntry, numElems)
	}

	if !reset {
		log.Debug().Int("num-elems", numElems).
			Int("estimated-total-memory-bytes", numElems*entrySize).
			Uint64("total-system-memory-bytes", totalMem).
			Msg("transposition-table-size")
	}

	t.created = 0
	t.lookups = 0
	t.hits = 0
	t.t2collisions = 0
}

func (t *TranspositionTable) Stats() (created, lookups, hits, t2collisions uint64) {
	return t.created, t.lookups, t.hits, t.t2collisions
}
