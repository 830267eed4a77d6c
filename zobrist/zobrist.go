// Package zobrist computes a canonical hash of search state for the MCTS
// transposition memo, following the same table-driven XOR scheme the
// teacher repo uses for board positions, adapted to card/row identity:
// each (row, card) membership and each unseen/dealt card contributes an
// independently random 64-bit value, XORed together.
package zobrist

import (
	"lukechampine.com/frand"

	"github.com/ofcsolver/ofc/arrangement"
	"github.com/ofcsolver/ofc/card"
	"github.com/ofcsolver/ofc/state"
)

const bignum = 1<<63 - 2

// Table holds the random XOR values. It is built once and is read-only
// for the lifetime of the solver, shared by every worker.
type Table struct {
	rowCard   [3][card.NumCards]uint64
	unseen    [card.NumCards]uint64
	dealt     [card.NumCards]uint64
	street    [5]uint64
}

// New builds a fresh table seeded from the process-wide fast random
// source. A table is never reused across processes; it only needs to be
// internally consistent for the lifetime of one solve call.
func New() *Table {
	t := &Table{}
	for r := 0; r < 3; r++ {
		for c := 0; c < card.NumCards; c++ {
			t.rowCard[r][c] = rand64()
		}
	}
	for c := 0; c < card.NumCards; c++ {
		t.unseen[c] = rand64()
		t.dealt[c] = rand64()
	}
	for s := 0; s < 5; s++ {
		t.street[s] = rand64()
	}
	return t
}

func rand64() uint64 {
	return frand.Uint64n(bignum) + 1
}

// avalanche is the same finalizer mix the teacher uses to fold a plain
// integer into the XOR space without correlating with any table entry.
func avalanche(x uint64) uint64 {
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// Hash returns a canonical key for s: order-independent within a row
// (membership, not slot position, is hashed) and independent of dealt-
// card ordering.
func (t *Table) Hash(s *state.State) uint64 {
	var key uint64
	rows := [3]arrangement.Row{arrangement.Top, arrangement.Middle, arrangement.Bottom}
	for _, r := range rows {
		for _, c := range s.Arrangement.Cards(r) {
			key ^= t.rowCard[r][c]
		}
	}
	s.Unseen.ForEach(func(c card.Card) {
		key ^= t.unseen[c]
	})
	for _, c := range s.Dealt {
		key ^= t.dealt[c]
	}
	key ^= t.street[s.Street]
	return avalanche(key)
}
