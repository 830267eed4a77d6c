// Package state defines the immutable-by-convention search state: an
// Arrangement plus deck bookkeeping (unseen, discarded, known-opponent
// cards), the current street, and the cards just dealt and awaiting
// placement. Actions are a tagged sum type distinguishing the street-0
// opener shape from the streets-1..4 placements-plus-discard shape.
package state

import (
	"github.com/ofcsolver/ofc/arrangement"
	"github.com/ofcsolver/ofc/card"
	"github.com/ofcsolver/ofc/ofcerr"
)

// ActionKind distinguishes the two action shapes named in the external
// interface: the street-0 opener and the streets-1..4 placement pair, plus
// a conceded-hand fold.
type ActionKind int

const (
	OpenerAction ActionKind = iota
	StreetAction
	FoldAction
)

// Placement assigns one card to one row.
type Placement struct {
	Card card.Card
	Row  arrangement.Row
}

// Action is a sum type: for OpenerAction, Placements holds all 5 dealt
// cards; for StreetAction, Placements holds exactly 2 and Discard holds
// the third dealt card; for FoldAction neither field is meaningful.
type Action struct {
	Kind       ActionKind
	Placements []Placement
	Discard    card.Card
}

// State is a snapshot of one player's in-progress hand.
type State struct {
	Arrangement   *arrangement.Arrangement
	Unseen        card.CardSet
	Discarded     card.CardSet
	KnownOpponent card.CardSet
	Street        int
	Dealt         []card.Card
}

// New builds the opener state: an empty arrangement, a full unseen set
// minus the 5 just-dealt cards, and street 0.
func New(dealt []card.Card) (*State, error) {
	if len(dealt) != 5 {
		return nil, ofcerr.New(ofcerr.InvalidInput, "opener requires exactly 5 dealt cards")
	}
	return &State{
		Arrangement: arrangement.New(),
		Unseen:      card.Full().Diff(card.FromSlice(dealt)),
		Street:      0,
		Dealt:       append([]card.Card(nil), dealt...),
	}, nil
}

// expectedDealt returns how many cards must be dealt for the given street:
// 5 for the opener, 3 for every subsequent street.
func expectedDealt(street int) int {
	if street == 0 {
		return 5
	}
	return 3
}

// Validate checks the structural invariants from spec.md §7 (Invalid
// input, Inconsistent state): dealt-card count matches street, no
// duplicate cards across self/opponent/discard/dealt, and row counts plus
// dealt count don't exceed 13.
func (s *State) Validate() error {
	if s.Street < 0 || s.Street > 4 {
		return ofcerr.New(ofcerr.InvalidInput, "street out of range")
	}
	if len(s.Dealt) != expectedDealt(s.Street) {
		return ofcerr.New(ofcerr.InvalidInput, "dealt-card count does not match street")
	}
	seen := card.CardSet(0)
	add := func(c card.Card) error {
		if !c.Valid() {
			return ofcerr.New(ofcerr.InvalidInput, "malformed card")
		}
		if seen.Contains(c) {
			return ofcerr.New(ofcerr.InvalidInput, "duplicate card across self/opponent/discard/dealt")
		}
		seen = seen.Insert(c)
		return nil
	}
	for r := arrangement.Top; r < 3; r++ {
		for _, c := range s.Arrangement.Cards(r) {
			if err := add(c); err != nil {
				return err
			}
		}
	}
	for _, c := range s.Discarded.Cards() {
		if err := add(c); err != nil {
			return err
		}
	}
	for _, c := range s.KnownOpponent.Cards() {
		if err := add(c); err != nil {
			return err
		}
	}
	for _, c := range s.Dealt {
		if err := add(c); err != nil {
			return err
		}
	}
	placed := s.Arrangement.Count(arrangement.Top) + s.Arrangement.Count(arrangement.Middle) + s.Arrangement.Count(arrangement.Bottom)
	if placed+len(s.Dealt) > 13 {
		return ofcerr.New(ofcerr.InconsistentState, "placed-plus-dealt cards exceed board capacity")
	}
	return nil
}

// Clone returns a deep copy safe for independent mutation.
func (s *State) Clone() *State {
	return &State{
		Arrangement:   s.Arrangement.Clone(),
		Unseen:        s.Unseen,
		Discarded:     s.Discarded,
		KnownOpponent: s.KnownOpponent,
		Street:        s.Street,
		Dealt:         append([]card.Card(nil), s.Dealt...),
	}
}

// dealtSet returns s.Dealt as a CardSet, for membership checks.
func (s *State) dealtSet() card.CardSet {
	return card.FromSlice(s.Dealt)
}

// Apply validates and applies action to a clone of s, returning the
// resulting state for the next street (or the same completed state if
// action finishes the hand). It does not itself deal the next street's
// cards; callers draw from Unseen and call WithDealt.
func (s *State) Apply(action Action) (*State, error) {
	next := s.Clone()

	if action.Kind == FoldAction {
		next.Dealt = nil
		return next, nil
	}

	want := expectedDealt(s.Street)
	wantPlacements := want
	if s.Street > 0 {
		wantPlacements = want - 1 // one discarded
	}
	if len(action.Placements) != wantPlacements {
		return nil, ofcerr.New(ofcerr.InvalidInput, "action places the wrong number of cards for this street")
	}

	dealt := s.dealtSet()
	used := card.CardSet(0)
	for _, p := range action.Placements {
		if !dealt.Contains(p.Card) {
			return nil, ofcerr.New(ofcerr.InvalidInput, "placed card was not in the dealt set")
		}
		if used.Contains(p.Card) {
			return nil, ofcerr.New(ofcerr.InvalidInput, "duplicate card in action")
		}
		used = used.Insert(p.Card)
		if !next.Arrangement.CanPlace(p.Row) {
			return nil, ofcerr.New(ofcerr.InvalidInput, "row is already full")
		}
		if err := next.Arrangement.Place(p.Row, p.Card); err != nil {
			return nil, ofcerr.Wrap(ofcerr.InternalInvariantViolation, "arrangement rejected a validated placement", err)
		}
	}

	if s.Street > 0 {
		if !dealt.Contains(action.Discard) {
			return nil, ofcerr.New(ofcerr.InvalidInput, "discard was not in the dealt set")
		}
		if used.Contains(action.Discard) {
			return nil, ofcerr.New(ofcerr.InvalidInput, "discard duplicates a placed card")
		}
		next.Discarded = next.Discarded.Insert(action.Discard)
	}

	next.Dealt = nil
	return next, nil
}

// WithDealt advances to the next street, drawing the supplied cards
// (already sampled from Unseen by the caller) as the new Dealt set and
// removing them from Unseen.
func (s *State) WithDealt(street int, dealt []card.Card) *State {
	next := s.Clone()
	next.Street = street
	next.Dealt = append([]card.Card(nil), dealt...)
	for _, c := range dealt {
		next.Unseen = next.Unseen.Remove(c)
	}
	return next
}

// IsTerminal reports whether the arrangement is complete (13 cards
// placed); a terminal state has no further actions.
func (s *State) IsTerminal() bool {
	return s.Arrangement.IsComplete()
}
