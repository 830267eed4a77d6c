package evaluator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ofcsolver/ofc/card"
)

func cards(ss ...string) []card.Card {
	out := make([]card.Card, len(ss))
	for i, s := range ss {
		out[i] = card.MustParse(s)
	}
	return out
}

func TestEvaluateSymmetryUnderPermutation(t *testing.T) {
	hand := cards("As", "Ks", "Qs", "Js", "Ts")
	base := Evaluate(hand)
	perm := cards("Ts", "Js", "As", "Qs", "Ks")
	require.True(t, base.Equal(Evaluate(perm)))
}

func TestEvaluateMonotonicityPairBeatsHigh(t *testing.T) {
	high := Evaluate(cards("2c", "5d", "9h", "Js", "Ks"))
	pair := Evaluate(cards("2c", "2d", "9h", "Js", "Ks"))
	require.True(t, high.Less(pair))
}

func TestEvaluateCategoryOrdering3Card(t *testing.T) {
	pair := Evaluate(cards("3c", "3d", "9h"))
	trips := Evaluate(cards("5c", "5d", "5h"))
	require.True(t, pair.Less(trips))
}

// Scenario 4 from spec.md §8: a wild completing a royal flush.
func TestWildResolvesToRoyalFlush(t *testing.T) {
	h := Evaluate(cards("As", "Ks", "Qs", "Js", "Xj"))
	require.Equal(t, RoyalFlush, h.Category)
}

// Scenario 5 from spec.md §8: a wild should complete quads over a
// full house when both are reachable.
func TestWildPrefersQuadsOverFullHouse(t *testing.T) {
	h := Evaluate(cards("Ah", "Ad", "Ac", "Xj", "2s"))
	require.Equal(t, Quads, h.Category)
	require.EqualValues(t, 12, h.Tiebreak[0]) // rank index of ace
}

func TestWildTripsPrefersHighestPlainRankOverPair(t *testing.T) {
	// Two wilds can trip up the highest plain card (9) rather than
	// settling for a pair, since trips outranks any pair.
	h := Evaluate(cards("Xj", "Yj", "2c", "7d", "9h"))
	require.Equal(t, Trips, h.Category)
	require.EqualValues(t, 7, h.Tiebreak[0]) // rank index of 9
}

func TestWildPairWhenNoRankIsReachableForTrips(t *testing.T) {
	// A single wild with three plain cards, none paired, can only build
	// a pair from the highest plain card.
	h := Evaluate(cards("Xj", "2c", "7d", "9h", "3s"))
	require.Equal(t, Pair, h.Category)
	require.EqualValues(t, 7, h.Tiebreak[0]) // rank index of 9
}

func TestWildTripsThreeCard(t *testing.T) {
	h := Evaluate(cards("5c", "Xj", "Yj"))
	require.Equal(t, Trips, h.Category)
	require.EqualValues(t, 3, h.Tiebreak[0]) // rank index of 5
}

func TestEvaluateNoWildsStraightFlushBeatsQuads(t *testing.T) {
	sf := Evaluate(cards("9s", "8s", "7s", "6s", "5s"))
	quads := Evaluate(cards("2c", "2d", "2h", "2s", "Kd"))
	require.True(t, quads.Less(sf))
}
