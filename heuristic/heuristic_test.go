package heuristic

import (
	"testing"

	"github.com/matryer/is"

	"github.com/ofcsolver/ofc/arrangement"
	"github.com/ofcsolver/ofc/card"
	"github.com/ofcsolver/ofc/evaluator"
)

func fullUnseenExcept(used ...card.Card) card.CardSet {
	s := card.Full()
	for _, c := range used {
		s = s.Remove(c)
	}
	return s
}

func TestRowStrengthFullRowMatchesEvaluator(t *testing.T) {
	is := is.New(t)
	cards := []card.Card{
		card.MustParse("Ks"), card.MustParse("Kd"), card.MustParse("Kh"),
		card.MustParse("Kc"), card.MustParse("2s"),
	}
	unseen := fullUnseenExcept(cards...)
	got := RowStrength(cards, 5, unseen)
	is.Equal(got, float64(evaluator.Evaluate(cards).Category))
}

func TestRowStrengthPartialRowDetectsFlushDraw(t *testing.T) {
	is := is.New(t)
	cards := []card.Card{card.MustParse("2s"), card.MustParse("5s"), card.MustParse("9s"), card.MustParse("Ks")}
	unseen := fullUnseenExcept(cards...)
	got := RowStrength(cards, 5, unseen)
	is.True(got >= float64(evaluator.Flush))
}

func TestRowStrengthTopPartialDetectsTripsPossible(t *testing.T) {
	is := is.New(t)
	cards := []card.Card{card.MustParse("Ah"), card.MustParse("Ad")}
	unseen := fullUnseenExcept(cards...)
	got := RowStrength(cards, 3, unseen)
	is.Equal(got, float64(evaluator.Trips))
}

func TestFoulRiskZeroWhenRowsAscendInStrength(t *testing.T) {
	is := is.New(t)
	a := arrangement.New()
	place(t, a, arrangement.Top, "2c", "3c", "4d")
	place(t, a, arrangement.Middle, "5c", "5d", "6h", "7s", "8c")
	place(t, a, arrangement.Bottom, "Ks", "Kd", "Kh", "Kc", "2s")
	unseen := fullUnseenExcept(append(append(a.Cards(arrangement.Top), a.Cards(arrangement.Middle)...), a.Cards(arrangement.Bottom)...)...)
	is.Equal(FoulRisk(a, unseen), 0.0)
}

func TestFoulRiskPositiveWhenTopAlreadyBeatsBottom(t *testing.T) {
	is := is.New(t)
	a := arrangement.New()
	place(t, a, arrangement.Top, "Ah", "Ad", "Ac") // trips on top
	place(t, a, arrangement.Bottom, "2h", "4d", "6h", "8s", "Tc")
	unseen := fullUnseenExcept(append(a.Cards(arrangement.Top), a.Cards(arrangement.Bottom)...)...)
	is.True(FoulRisk(a, unseen) > 0)
}

func TestScoreRewardsCompletedRoyalties(t *testing.T) {
	is := is.New(t)
	a := arrangement.New()
	place(t, a, arrangement.Top, "Ah", "Ad", "Ac")
	unseen := fullUnseenExcept(a.Cards(arrangement.Top)...)
	withoutTrips := arrangement.New()
	place(t, withoutTrips, arrangement.Top, "2c", "3c", "4d")
	unseen2 := fullUnseenExcept(withoutTrips.Cards(arrangement.Top)...)

	is.True(Score(a, unseen) > Score(withoutTrips, unseen2))
}

func place(t *testing.T, a *arrangement.Arrangement, row arrangement.Row, cs ...string) {
	t.Helper()
	for _, s := range cs {
		if err := a.Place(row, card.MustParse(s)); err != nil {
			t.Fatalf("place %s in %s: %v", s, row, err)
		}
	}
}
