package scoring

import (
	"testing"

	"github.com/matryer/is"

	"github.com/ofcsolver/ofc/arrangement"
	"github.com/ofcsolver/ofc/card"
)

func build(t *testing.T, top, middle, bottom []string) *arrangement.Arrangement {
	t.Helper()
	a := arrangement.New()
	for _, s := range top {
		if err := a.Place(arrangement.Top, card.MustParse(s)); err != nil {
			t.Fatal(err)
		}
	}
	for _, s := range middle {
		if err := a.Place(arrangement.Middle, card.MustParse(s)); err != nil {
			t.Fatal(err)
		}
	}
	for _, s := range bottom {
		if err := a.Place(arrangement.Bottom, card.MustParse(s)); err != nil {
			t.Fatal(err)
		}
	}
	return a
}

func TestSelfFouledScoresNegativePenalty(t *testing.T) {
	is := is.New(t)
	a := build(t,
		[]string{"2c", "2d", "9h"},
		[]string{"Ks", "Kd", "Kh", "Kc", "2s"},
		[]string{"3c", "5d", "7h", "9s", "Jc"},
	)
	is.True(a.IsFouled())
	is.Equal(Self(a), -FoulPenalty)
}

func TestSelfNonFouledScoresRoyalties(t *testing.T) {
	is := is.New(t)
	a := build(t,
		[]string{"Ah", "Ad", "Ac"},
		[]string{"3c", "4d", "5h", "6s", "7c"},
		[]string{"2h", "4h", "6h", "8h", "Th"},
	)
	is.True(!a.IsFouled())
	is.Equal(Self(a), 30) // 22 (AAA top) + 4 (straight middle) + 4 (flush bottom)
}

func TestCompareScoopBonusAwardedForSweep(t *testing.T) {
	is := is.New(t)
	winner := build(t,
		[]string{"Ah", "Ad", "Ac"},
		[]string{"Qs", "Qd", "Qh", "Qc", "3s"},
		[]string{"Ks", "Kd", "Kh", "Kc", "2s"},
	)
	loser := build(t,
		[]string{"2c", "3d", "5h"},
		[]string{"6c", "7d", "8h", "9s", "2d"},
		[]string{"3c", "4d", "5s", "6h", "7s"},
	)
	m := Compare(winner, loser)
	is.Equal(m.Rows, [3]RowResult{RowWin, RowWin, RowWin})
	is.True(m.AScore > m.BScore)
	// AScore = 3 (rows) + ScoopBonus + royalty differential
	is.Equal(m.AScore, 3+ScoopBonus+winner.TotalRoyalties()-loser.TotalRoyalties())
}

func TestCompareFouledOpponentIsScoop(t *testing.T) {
	is := is.New(t)
	clean := build(t,
		[]string{"2c", "3d", "5h"},
		[]string{"6c", "7d", "8h", "9s", "2d"},
		[]string{"3c", "4d", "5s", "6h", "7s"},
	)
	fouled := build(t,
		[]string{"Ah", "Ad", "Ac"},
		[]string{"2c", "3d", "4h", "5s", "6c"},
		[]string{"2h", "3h", "4s", "5c", "7d"}, // weaker than middle -> fouled despite trips top
	)
	is.True(fouled.IsFouled())

	m := Compare(clean, fouled)
	is.True(m.AFouled == false && m.BFouled == true)
	is.Equal(m.Rows, [3]RowResult{RowWin, RowWin, RowWin})
	is.Equal(m.BRoyalties, 0)
	is.Equal(m.AScore, 3+ScoopBonus+clean.TotalRoyalties())
	is.Equal(m.BScore, -(3 + ScoopBonus + clean.TotalRoyalties()))

	m2 := Compare(fouled, clean)
	is.Equal(m2.AScore, m.BScore)
	is.Equal(m2.BScore, m.AScore)
}

func TestCompareBothFouledIsWash(t *testing.T) {
	is := is.New(t)
	fouledA := build(t,
		[]string{"Ks", "Kd", "9h"},
		[]string{"2c", "3d", "4h", "5s", "6c"},
		[]string{"2h", "3h", "4s", "5c", "7d"}, // weaker than middle -> fouled
	)
	fouledB := build(t,
		[]string{"Qs", "Qd", "2h"},
		[]string{"2c", "3d", "4h", "5s", "7c"},
		[]string{"2h", "3h", "4s", "5c", "8d"},
	)
	m := Compare(fouledA, fouledB)
	is.Equal(m.AScore, 0)
	is.Equal(m.BScore, 0)
	is.Equal(m.Rows, [3]RowResult{RowTie, RowTie, RowTie})
}
