package zobrist

import (
	"testing"

	"github.com/matryer/is"

	"github.com/ofcsolver/ofc/arrangement"
	"github.com/ofcsolver/ofc/card"
	"github.com/ofcsolver/ofc/state"
)

func dealtState(t *testing.T, cs ...string) *state.State {
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

func TestHashIsDeterministicForIdenticalState(t *testing.T) {
	is := is.New(t)
	table := New()
	a := dealtState(t, "As", "Ks", "Qs", "Js", "Ts")
	b := dealtState(t, "As", "Ks", "Qs", "Js", "Ts")
	is.Equal(table.Hash(a), table.Hash(b))
}

func TestHashIgnoresPlacementSlotOrderWithinARow(t *testing.T) {
	is := is.New(t)
	table := New()
	st := dealtState(t, "2c", "3c", "4c", "5c", "6c")

	a, err := st.Apply(state.Action{Kind: state.OpenerAction, Placements: []state.Placement{
		{Card: card.MustParse("2c"), Row: arrangement.Top},
		{Card: card.MustParse("3c"), Row: arrangement.Top},
		{Card: card.MustParse("4c"), Row: arrangement.Middle},
		{Card: card.MustParse("5c"), Row: arrangement.Middle},
		{Card: card.MustParse("6c"), Row: arrangement.Bottom},
	}})
	is.NoErr(err)

	b, err := st.Apply(state.Action{Kind: state.OpenerAction, Placements: []state.Placement{
		{Card: card.MustParse("3c"), Row: arrangement.Top},
		{Card: card.MustParse("2c"), Row: arrangement.Top},
		{Card: card.MustParse("5c"), Row: arrangement.Middle},
		{Card: card.MustParse("4c"), Row: arrangement.Middle},
		{Card: card.MustParse("6c"), Row: arrangement.Bottom},
	}})
	is.NoErr(err)

	is.Equal(table.Hash(a), table.Hash(b))
}

func TestHashDiffersAcrossDifferentArrangements(t *testing.T) {
	is := is.New(t)
	table := New()
	st := dealtState(t, "2c", "3c", "4c", "5c", "6c")

	a, err := st.Apply(state.Action{Kind: state.OpenerAction, Placements: []state.Placement{
		{Card: card.MustParse("2c"), Row: arrangement.Top},
		{Card: card.MustParse("3c"), Row: arrangement.Top},
		{Card: card.MustParse("4c"), Row: arrangement.Middle},
		{Card: card.MustParse("5c"), Row: arrangement.Middle},
		{Card: card.MustParse("6c"), Row: arrangement.Bottom},
	}})
	is.NoErr(err)

	b, err := st.Apply(state.Action{Kind: state.OpenerAction, Placements: []state.Placement{
		{Card: card.MustParse("2c"), Row: arrangement.Bottom},
		{Card: card.MustParse("3c"), Row: arrangement.Top},
		{Card: card.MustParse("4c"), Row: arrangement.Middle},
		{Card: card.MustParse("5c"), Row: arrangement.Middle},
		{Card: card.MustParse("6c"), Row: arrangement.Top},
	}})
	is.NoErr(err)

	is.True(table.Hash(a) != table.Hash(b))
}

func TestHashDiffersAcrossIndependentTables(t *testing.T) {
	st := dealtState(t, "As", "Ks", "Qs", "Js", "Ts")
	t1, t2 := New(), New()
	// Two freshly-randomized tables virtually never agree; this just
	// guards against New() accidentally returning a fixed table.
	if t1.Hash(st) == t2.Hash(st) {
		t.Skip("extremely unlikely hash collision between independent tables")
	}
}
