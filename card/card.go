// Package card implements bit-packed card identity and set algebra for
// Pineapple OFC: a 54-value card space (52 standard cards plus two
// distinguishable jokers) and a 64-bit CardSet mask over it.
package card

import (
	"fmt"
	"strings"
)

// Card is a single card in 0..53. Indices 0..51 encode rank*4+suit; 52 and
// 53 are the two distinguishable jokers ("Xj" and "Yj").
type Card uint8

const (
	NumRanks     = 13
	NumSuits     = 4
	NumStandard  = NumRanks * NumSuits // 52
	JokerX  Card = 52
	JokerY  Card = 53
	NumCards     = 54
)

const rankLetters = "23456789TJQKA"
const suitLetters = "cdhs"

// Rank returns 0..12 (2..A). Undefined for jokers.
func (c Card) Rank() int {
	return int(c) / NumSuits
}

// Suit returns 0..3 (c,d,h,s). Undefined for jokers.
func (c Card) Suit() int {
	return int(c) % NumSuits
}

// IsWild reports whether c is one of the two jokers.
func (c Card) IsWild() bool {
	return c == JokerX || c == JokerY
}

// Valid reports whether c is in the legal 0..53 range.
func (c Card) Valid() bool {
	return c < NumCards
}

// String renders the canonical two-character text form: "As", "Td", "2c",
// "Xj", "Yj".
func (c Card) String() string {
	if c == JokerX {
		return "Xj"
	}
	if c == JokerY {
		return "Yj"
	}
	if !c.Valid() {
		return "??"
	}
	return string(rankLetters[c.Rank()]) + string(suitLetters[c.Suit()])
}

// New builds a card from a 0..12 rank and 0..3 suit.
func New(rank, suit int) Card {
	return Card(rank*NumSuits + suit)
}

// Parse accepts "2".."9", "T", "J", "Q", "K", "A" followed by "c", "d", "h",
// "s" (case-insensitive), or "Xj"/"Yj" (either letter order) for a joker.
func Parse(s string) (Card, error) {
	if len(s) != 2 {
		return 0, fmt.Errorf("card: %q is not two characters", s)
	}
	lower := strings.ToLower(s)
	if lower == "xj" || lower == "jx" {
		return JokerX, nil
	}
	if lower == "yj" || lower == "jy" {
		return JokerY, nil
	}
	rankCh := rankRune(s[0])
	suitCh := lower[1]
	rank := strings.IndexByte(rankLetters, rankCh)
	if rank < 0 {
		return 0, fmt.Errorf("card: %q has unrecognized rank", s)
	}
	suit := strings.IndexByte(suitLetters, suitCh)
	if suit < 0 {
		return 0, fmt.Errorf("card: %q has unrecognized suit", s)
	}
	return New(rank, suit), nil
}

func rankRune(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}

// MustParse is Parse but panics on error; for tests and literal tables.
func MustParse(s string) Card {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}
