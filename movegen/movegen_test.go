package movegen

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/matryer/is"

	"github.com/ofcsolver/ofc/arrangement"
	"github.com/ofcsolver/ofc/card"
	"github.com/ofcsolver/ofc/evaluator"
	"github.com/ofcsolver/ofc/heuristic"
	"github.com/ofcsolver/ofc/state"
)

func openerState(t *testing.T, cs ...string) *state.State {
	t.Helper()
	dealt := make([]card.Card, len(cs))
	for i, s := range cs {
		dealt[i] = card.MustParse(s)
	}
	st, err := state.New(dealt)
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func TestGenerateOpenerProducesLegalActions(t *testing.T) {
	is := is.New(t)
	st := openerState(t, "As", "Ks", "Qs", "Js", "Ts")
	actions := GenerateOpener(st, 0)
	is.True(len(actions) > 0)
	for _, a := range actions {
		next, err := st.Apply(a)
		is.NoErr(err)
		is.Equal(next.Arrangement.Count(arrangement.Top)+
			next.Arrangement.Count(arrangement.Middle)+
			next.Arrangement.Count(arrangement.Bottom), 5)
	}
}

// Scenario 1 from spec.md §8: five aligned spades should have a candidate
// that places all five cards in the bottom row (a royal flush).
func TestGenerateOpenerIncludesRoyalFlushBottomCandidate(t *testing.T) {
	is := is.New(t)
	st := openerState(t, "As", "Ks", "Qs", "Js", "Ts")
	actions := GenerateOpener(st, 0)
	found := false
	for _, a := range actions {
		all := true
		for _, p := range a.Placements {
			if p.Row != arrangement.Bottom {
				all = false
				break
			}
		}
		if all {
			found = true
			break
		}
	}
	is.True(found)
}

// Scenario 2 from spec.md §8: trivial trips top must appear among
// candidates.
func TestGenerateOpenerIncludesTripsTopCandidate(t *testing.T) {
	is := is.New(t)
	// Pad with two low cards so the opener deals exactly 5.
	st := openerState(t, "Ah", "Ad", "Ac", "2c", "3d")
	actions := GenerateOpener(st, 0)
	found := false
	for _, a := range actions {
		rows := map[arrangement.Row]int{}
		for _, p := range a.Placements {
			if p.Card.Rank() == card.MustParse("Ah").Rank() {
				rows[p.Row]++
			}
		}
		if rows[arrangement.Top] == 3 {
			found = true
			break
		}
	}
	is.True(found)
}

func TestCanonicalSignatureIgnoresSlotOrder(t *testing.T) {
	a1 := state.Action{Placements: []state.Placement{
		{Card: card.MustParse("2c"), Row: arrangement.Top},
		{Card: card.MustParse("3c"), Row: arrangement.Top},
	}}
	a2 := state.Action{Placements: []state.Placement{
		{Card: card.MustParse("3c"), Row: arrangement.Top},
		{Card: card.MustParse("2c"), Row: arrangement.Top},
	}}
	if diff := cmp.Diff(canonicalSignature(a1), canonicalSignature(a2)); diff != "" {
		panic("expected identical canonical signatures regardless of slot order: " + diff)
	}
}

// representativeRowStrength averages the evaluator category over every
// actual completion, which can never exceed heuristic.RowStrength's
// optimistic best-reachable-category estimate.
func TestRepresentativeRowStrengthNeverExceedsOptimisticHeuristic(t *testing.T) {
	is := is.New(t)
	cards := []card.Card{card.MustParse("Ah")}
	unseen := card.Full().Diff(card.FromSlice(cards))
	got := representativeRowStrength(cards, 3, unseen)
	cheap := heuristic.RowStrength(cards, 3, unseen)
	is.True(got <= cheap)
}

// A row exactly one card short of completion uses exact enumeration
// (missing == 1 <= maxRepresentativeMissing) and must return a value
// consistent with evaluating every single-card completion directly.
func TestRepresentativeRowStrengthExactEnumerationMatchesManualAverage(t *testing.T) {
	is := is.New(t)
	cards := []card.Card{card.MustParse("Ah"), card.MustParse("Ad")}
	unseen := card.Full().Diff(card.FromSlice(cards))
	got := representativeRowStrength(cards, 3, unseen)

	var manualTotal float64
	var manualCount int
	unseen.ForEach(func(c card.Card) {
		trial := append(append([]card.Card{}, cards...), c)
		manualTotal += float64(evaluator.Evaluate(trial).Category)
		manualCount++
	})
	is.True(manualCount > 0)
	want := manualTotal / float64(manualCount)
	is.True(got == want)
}

func TestGenerateStreetRespectsDiscardCount(t *testing.T) {
	is := is.New(t)
	st := openerState(t, "2c", "3c", "4c", "5c", "6c")
	applied, err := st.Apply(state.Action{Kind: state.OpenerAction, Placements: []state.Placement{
		{Card: card.MustParse("2c"), Row: arrangement.Top},
		{Card: card.MustParse("3c"), Row: arrangement.Top},
		{Card: card.MustParse("4c"), Row: arrangement.Middle},
		{Card: card.MustParse("5c"), Row: arrangement.Middle},
		{Card: card.MustParse("6c"), Row: arrangement.Bottom},
	}})
	is.NoErr(err)
	next := applied.WithDealt(1, []card.Card{card.MustParse("7d"), card.MustParse("8d"), card.MustParse("9d")})

	actions := GenerateStreet(next)
	is.True(len(actions) > 0)
	for _, a := range actions {
		is.Equal(len(a.Placements), 2)
		result, err := next.Apply(a)
		is.NoErr(err)
		is.Equal(result.Discarded.Len(), 1)
	}
}
