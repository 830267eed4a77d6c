// Package evaluator categorizes and strength-ranks 3- or 5-card Pineapple
// OFC hands, resolving wild (joker) cards optimally. Evaluate is the
// hottest function in the solver: every MCTS playout evaluates up to three
// hands. It builds small temporary slices per call, so it is not
// allocation-free.
package evaluator

import "github.com/ofcsolver/ofc/card"

// Category orders hand types from weakest to strongest. 3-card hands only
// ever reach High, Pair, or Trips.
type Category uint8

const (
	High Category = iota
	Pair
	TwoPair
	Trips
	Straight
	Flush
	FullHouse
	Quads
	StraightFlush
	RoyalFlush
)

// HandType is a totally ordered value: category first, then up to five
// descending tiebreak ranks (0..12, 2..A). Only the first NumBreaks slots
// are meaningful; compare reads any slot past NumBreaks as -1 so that
// comparisons never accidentally treat it as rank 2.
type HandType struct {
	Category  Category
	Tiebreak  [5]int8
	NumBreaks int
}

// Less reports whether h is strictly weaker than other.
func (h HandType) Less(other HandType) bool {
	return h.compare(other) < 0
}

// Equal reports whether h and other are a true tie.
func (h HandType) Equal(other HandType) bool {
	return h.compare(other) == 0
}

// Compare returns -1, 0, or 1 as h is weaker, equal to, or stronger than
// other.
func (h HandType) Compare(other HandType) int {
	return h.compare(other)
}

func (h HandType) compare(other HandType) int {
	if h.Category != other.Category {
		if h.Category < other.Category {
			return -1
		}
		return 1
	}
	n := h.NumBreaks
	if other.NumBreaks > n {
		n = other.NumBreaks
	}
	for i := 0; i < n; i++ {
		a, b := tiebreakAt(h, i), tiebreakAt(other, i)
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}
	return 0
}

func tiebreakAt(h HandType, i int) int8 {
	if i < h.NumBreaks {
		return h.Tiebreak[i]
	}
	return -1
}

func hand(cat Category, breaks ...int) HandType {
	var h HandType
	h.Category = cat
	h.NumBreaks = len(breaks)
	for i, b := range breaks {
		h.Tiebreak[i] = int8(b)
	}
	return h
}

// rankName maps rank indices 0..12 to their letters; no code in this
// module reads it.
var rankName = [card.NumRanks]string{"2", "3", "4", "5", "6", "7", "8", "9", "T", "J", "Q", "K", "A"}

var categoryName = [...]string{
	High: "high card", Pair: "pair", TwoPair: "two pair", Trips: "trips",
	Straight: "straight", Flush: "flush", FullHouse: "full house",
	Quads: "quads", StraightFlush: "straight flush", RoyalFlush: "royal flush",
}

// String renders the category name, e.g. "full house".
func (c Category) String() string {
	if int(c) < len(categoryName) {
		return categoryName[c]
	}
	return "unknown"
}

// String renders h's category name; ties within a category are not
// distinguished (callers needing the tiebreak should use Tiebreak
// directly).
func (h HandType) String() string {
	return h.Category.String()
}
