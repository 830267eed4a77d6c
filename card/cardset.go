package card

import (
	"math/bits"

	"github.com/ofcsolver/ofc/rng"
)

// CardSet is a 54-bit mask over the Card space. The zero value is the
// empty set.
type CardSet uint64

const fullMask CardSet = (1 << NumCards) - 1

// Full returns the set containing all 54 cards.
func Full() CardSet {
	return fullMask
}

// Insert returns the set with c added.
func (s CardSet) Insert(c Card) CardSet {
	return s | (CardSet(1) << uint(c))
}

// Remove returns the set with c removed.
func (s CardSet) Remove(c Card) CardSet {
	return s &^ (CardSet(1) << uint(c))
}

// Contains reports whether c is a member.
func (s CardSet) Contains(c Card) bool {
	return s&(CardSet(1)<<uint(c)) != 0
}

// Union returns s | other.
func (s CardSet) Union(other CardSet) CardSet {
	return s | other
}

// Intersect returns s & other.
func (s CardSet) Intersect(other CardSet) CardSet {
	return s & other
}

// Diff returns s with every member of other removed.
func (s CardSet) Diff(other CardSet) CardSet {
	return s &^ other
}

// Len returns the cardinality of s.
func (s CardSet) Len() int {
	return bits.OnesCount64(uint64(s))
}

// Empty reports whether s has no members.
func (s CardSet) Empty() bool {
	return s == 0
}

// Cards returns the members of s in ascending index order.
func (s CardSet) Cards() []Card {
	out := make([]Card, 0, s.Len())
	for m := s; m != 0; m &= m - 1 {
		out = append(out, Card(bits.TrailingZeros64(uint64(m))))
	}
	return out
}

// ForEach calls fn for every member of s in ascending index order.
func (s CardSet) ForEach(fn func(Card)) {
	for m := s; m != 0; m &= m - 1 {
		fn(Card(bits.TrailingZeros64(uint64(m))))
	}
}

// Sample draws k distinct cards from s uniformly without replacement, using
// r for all randomness so that identical seeds reproduce identical draws.
// It returns fewer than k cards only if s has fewer than k members.
func (s CardSet) Sample(k int, r *rng.RNG) []Card {
	pool := s.Cards()
	if k > len(pool) {
		k = len(pool)
	}
	// Partial Fisher-Yates: shuffle only the first k positions.
	for i := 0; i < k; i++ {
		j := i + r.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

// FromSlice builds a CardSet from a slice of cards.
func FromSlice(cs []Card) CardSet {
	var s CardSet
	for _, c := range cs {
		s = s.Insert(c)
	}
	return s
}
