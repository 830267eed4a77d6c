// Package scoring computes standalone and head-to-head Pineapple OFC
// scores from completed arrangements: row royalties, the foul penalty, and
// the scoop bonus when comparing two boards.
package scoring

import "github.com/ofcsolver/ofc/arrangement"

// ScoopBonus is awarded on top of royalty-and-row-win scoring when one
// player wins all three rows against the other in a head-to-head
// comparison.
const ScoopBonus = 3

// FoulPenalty is the fixed point cost of a fouled board in self-evaluation
// mode: royalties(self) - foul_penalty when fouled, royalties(self)
// otherwise. Chosen on the same scale as ScoopBonus so neither dominates
// the other in the absence of royalties.
const FoulPenalty = 3

// Self returns a's own score in isolation: its royalty total, or
// -FoulPenalty if fouled. Used as a terminal score when no opponent
// arrangement is available (self-evaluation playouts via mcts.SelfValue).
func Self(a *arrangement.Arrangement) int {
	if a.IsFouled() {
		return -FoulPenalty
	}
	return a.TotalRoyalties()
}

// RowResult is the outcome of comparing one row between two boards.
type RowResult int

const (
	RowLose RowResult = -1
	RowTie  RowResult = 0
	RowWin  RowResult = 1
)

// Matchup holds the full row-by-row and royalty breakdown of comparing a
// against b.
type Matchup struct {
	Rows          [3]RowResult // indexed by arrangement.Row
	AFouled       bool
	BFouled       bool
	ARoyalties    int
	BRoyalties    int
	AScore        int
	BScore        int
}

// Compare scores a complete head-to-head matchup between a and b per
// standard OFC rules: a fouled board forfeits all three rows and its
// royalties to a non-fouled opponent, and since that opponent wins all
// three rows it also receives the scoop bonus; if both foul, the matchup
// is a wash (every row ties, no royalties, no scoop). Otherwise each row
// is compared by hand strength (1 point per row won, -1 per row lost),
// royalties are added for each non-fouled player, and whichever player
// wins all three rows receives the scoop bonus in addition.
func Compare(a, b *arrangement.Arrangement) Matchup {
	m := Matchup{AFouled: a.IsFouled(), BFouled: b.IsFouled()}

	if m.AFouled && m.BFouled {
		return m
	}
	if m.AFouled {
		m.BRoyalties = b.TotalRoyalties()
		m.Rows = [3]RowResult{RowLose, RowLose, RowLose}
		m.AScore = -3 - ScoopBonus - m.BRoyalties
		m.BScore = 3 + ScoopBonus + m.BRoyalties
		return m
	}
	if m.BFouled {
		m.ARoyalties = a.TotalRoyalties()
		m.Rows = [3]RowResult{RowWin, RowWin, RowWin}
		m.AScore = 3 + ScoopBonus + m.ARoyalties
		m.BScore = -3 - ScoopBonus - m.ARoyalties
		return m
	}

	m.ARoyalties = a.TotalRoyalties()
	m.BRoyalties = b.TotalRoyalties()

	aWins, bWins := 0, 0
	for r := arrangement.Top; r < 3; r++ {
		ah, bh := a.RowHandType(r), b.RowHandType(r)
		switch {
		case bh.Less(ah):
			m.Rows[r] = RowWin
			aWins++
		case ah.Less(bh):
			m.Rows[r] = RowLose
			bWins++
		default:
			m.Rows[r] = RowTie
		}
	}

	rowDelta := aWins - bWins
	m.AScore = rowDelta + m.ARoyalties - m.BRoyalties
	m.BScore = -rowDelta + m.BRoyalties - m.ARoyalties

	if aWins == 3 {
		m.AScore += ScoopBonus
		m.BScore -= ScoopBonus
	} else if bWins == 3 {
		m.BScore += ScoopBonus
		m.AScore -= ScoopBonus
	}
	return m
}
