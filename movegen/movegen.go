// Package movegen enumerates legal (placement, discard) actions for a
// given street: the street-0 opener (5 dealt cards across three rows) and
// the streets-1..4 three-card generator (place 2, discard 1). Candidates
// are deduplicated, pruned for obvious forced fouls, and returned ordered
// by a cheap static heuristic — highest first — so the MCTS engine can
// bias its initial visits.
package movegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat/combin"

	"github.com/ofcsolver/ofc/arrangement"
	"github.com/ofcsolver/ofc/card"
	"github.com/ofcsolver/ofc/evaluator"
	"github.com/ofcsolver/ofc/heuristic"
	"github.com/ofcsolver/ofc/state"
)

// DefaultOpenerCandidates is the maximum number of opener candidates the
// generator returns when the caller doesn't request a specific count;
// fewer are returned when fewer survive pruning.
const DefaultOpenerCandidates = 30

var allRows = [3]arrangement.Row{arrangement.Top, arrangement.Middle, arrangement.Bottom}

// scored pairs a candidate action with its static ordering score.
type scored struct {
	action state.Action
	score  float64
}

// GenerateOpener enumerates the 3^5 row assignments of st.Dealt (which
// must hold exactly 5 cards), dedupes per-row-multiset equivalents, prunes
// tuples that force a foul, and returns at most n candidates ordered by
// descending static heuristic score. n <= 0 uses DefaultOpenerCandidates.
func GenerateOpener(st *state.State, n int) []state.Action {
	if n <= 0 {
		n = DefaultOpenerCandidates
	}
	dealt := st.Dealt

	var raw []state.Action
	assignment := make([]arrangement.Row, len(dealt))
	var assign func(i int)
	assign = func(i int) {
		if i == len(dealt) {
			placements := make([]state.Placement, len(dealt))
			for k, c := range dealt {
				placements[k] = state.Placement{Card: c, Row: assignment[k]}
			}
			raw = append(raw, state.Action{Kind: state.OpenerAction, Placements: placements})
			return
		}
		for _, r := range allRows {
			assignment[i] = r
			assign(i + 1)
		}
	}
	assign(0)

	return rankCandidates(st, raw, n)
}

// GenerateStreet enumerates, for each of the 3 choices of discarded card,
// every placement of the remaining 2 dealt cards across open row slots;
// dedupes, prunes forced-foul tuples, and returns all surviving candidates
// ordered by descending static heuristic score.
func GenerateStreet(st *state.State) []state.Action {
	dealt := st.Dealt
	var raw []state.Action
	for di := range dealt {
		discard := dealt[di]
		remaining := make([]card.Card, 0, len(dealt)-1)
		for i, c := range dealt {
			if i != di {
				remaining = append(remaining, c)
			}
		}
		for _, r0 := range allRows {
			for _, r1 := range allRows {
				raw = append(raw, state.Action{
					Kind: state.StreetAction,
					Placements: []state.Placement{
						{Card: remaining[0], Row: r0},
						{Card: remaining[1], Row: r1},
					},
					Discard: discard,
				})
			}
		}
	}
	return rankCandidates(st, raw, 0)
}

// rankCandidates applies the shared capacity filter, dedup, forced-foul
// prune, and descending-score ordering used by both generators. n <= 0
// returns every surviving candidate.
func rankCandidates(st *state.State, raw []state.Action, n int) []state.Action {
	var capacityOK []state.Action
	for _, a := range raw {
		if withinCapacity(st.Arrangement, a.Placements) {
			capacityOK = append(capacityOK, a)
		}
	}

	deduped := lo.UniqBy(capacityOK, func(a state.Action) string {
		return canonicalSignature(a)
	})

	var candidates []scored
	for _, a := range deduped {
		next, err := st.Apply(a)
		if err != nil {
			continue
		}
		if obviouslyFouled(next) {
			continue
		}
		candidates = append(candidates, scored{a, orderingScore(st, next, a)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if n > 0 && len(candidates) > n {
		candidates = candidates[:n]
	}
	out := make([]state.Action, len(candidates))
	for i, c := range candidates {
		out[i] = c.action
	}
	return out
}

// withinCapacity reports whether applying placements to a fresh clone of
// current would not overflow any row.
func withinCapacity(current *arrangement.Arrangement, placements []state.Placement) bool {
	used := map[arrangement.Row]int{}
	for _, p := range placements {
		used[p.Row]++
	}
	for r, count := range used {
		if current.Count(r)+count > r.Capacity() {
			return false
		}
	}
	return true
}

// canonicalSignature builds a dedup key from the per-row multiset of
// placed cards: row-slot order never matters, and within a row the
// evaluator is symmetric, so two actions with the same (row -> set of
// cards) mapping are equivalent regardless of discard bookkeeping order.
func canonicalSignature(a state.Action) string {
	byRow := map[arrangement.Row][]card.Card{}
	for _, p := range a.Placements {
		byRow[p.Row] = append(byRow[p.Row], p.Card)
	}
	var sb strings.Builder
	for _, r := range allRows {
		cards := byRow[r]
		sort.Slice(cards, func(i, j int) bool { return cards[i] < cards[j] })
		fmt.Fprintf(&sb, "%d:", r)
		for _, c := range cards {
			fmt.Fprintf(&sb, "%d,", c)
		}
		sb.WriteByte('|')
	}
	fmt.Fprintf(&sb, "discard:%d", a.Discard)
	return sb.String()
}

// obviouslyFouled reports whether s has already locked in a forced foul:
// a row that is complete strictly exceeds the upper-bound hand type still
// reachable by the row below it, or the arrangement is already complete
// and fouled outright.
func obviouslyFouled(s *state.State) bool {
	if s.Arrangement.IsComplete() {
		return s.Arrangement.IsFouled()
	}
	if s.Arrangement.Count(arrangement.Top) == arrangement.Top.Capacity() {
		topType := s.Arrangement.RowHandType(arrangement.Top)
		midCeiling := heuristic.RowStrength(s.Arrangement.Cards(arrangement.Middle), arrangement.Middle.Capacity(), s.Unseen)
		if float64(topType.Category) > midCeiling {
			return true
		}
	}
	if s.Arrangement.Count(arrangement.Middle) == arrangement.Middle.Capacity() {
		midType := s.Arrangement.RowHandType(arrangement.Middle)
		botCeiling := heuristic.RowStrength(s.Arrangement.Cards(arrangement.Bottom), arrangement.Bottom.Capacity(), s.Unseen)
		if float64(midType.Category) > botCeiling {
			return true
		}
	}
	return false
}

// orderingScore is the cheap static heuristic from spec.md §4.5: the
// heuristic-score delta this action produces, plus a small bonus for
// keeping rows ordered (lower foul risk), a small penalty for leaving few
// outs behind in unseen, and a small representative-completion tie-break.
func orderingScore(before, after *state.State, a state.Action) float64 {
	delta := heuristic.Score(after.Arrangement, after.Unseen) - heuristic.Score(before.Arrangement, before.Unseen)
	orderBonus := 0.0
	if !obviouslyFouled(after) {
		orderBonus = 0.05
	}
	outsPenalty := 0.0
	if after.Unseen.Len() < 10 {
		outsPenalty = 0.01 * float64(10-after.Unseen.Len())
	}
	return delta + orderBonus - outsPenalty + 0.001*representativeCompletionTiebreak(after)
}

// maxRepresentativeMissing bounds how many slots representativeRowStrength
// will exactly enumerate completions for: spec.md §4.5's representative-
// completion sampling is only worth its combinatorial cost as a tie-break
// between otherwise close candidates, not as the primary ordering signal.
const maxRepresentativeMissing = 2

// representativeRowStrength estimates a partial row's expected completed
// category by exactly enumerating every combin.Combinations(len(unseen),
// missing) way to fill its remaining slots from unseen and averaging the
// resulting evaluator.Category values, when that space is small enough;
// otherwise it falls back to heuristic.RowStrength's cheaper reachability
// estimate.
func representativeRowStrength(cards []card.Card, capacity int, unseen card.CardSet) float64 {
	missing := capacity - len(cards)
	if missing <= 0 {
		return float64(evaluator.Evaluate(cards).Category)
	}
	if missing > maxRepresentativeMissing {
		return heuristic.RowStrength(cards, capacity, unseen)
	}
	pool := unseen.Cards()
	if len(pool) == 0 || len(pool) < missing {
		return heuristic.RowStrength(cards, capacity, unseen)
	}
	combos := combin.Combinations(len(pool), missing)
	if len(combos) == 0 {
		return heuristic.RowStrength(cards, capacity, unseen)
	}
	total := 0.0
	trial := make([]card.Card, len(cards), capacity)
	copy(trial, cards)
	for _, combo := range combos {
		filled := trial[:len(cards)]
		for _, idx := range combo {
			filled = append(filled, pool[idx])
		}
		total += float64(evaluator.Evaluate(filled).Category)
	}
	return total / float64(len(combos))
}

// representativeCompletionTiebreak sums, over each of s's incomplete rows,
// representativeRowStrength minus heuristic.RowStrength's coarser
// reachability estimate — positive when exact enumeration over a small
// remaining space finds better completions than the cheap check alone
// would suggest, used only to break near-ties between similarly-scored
// candidates.
func representativeCompletionTiebreak(s *state.State) float64 {
	total := 0.0
	for _, r := range allRows {
		cards := s.Arrangement.Cards(r)
		if len(cards) == r.Capacity() {
			continue
		}
		total += representativeRowStrength(cards, r.Capacity(), s.Unseen) - heuristic.RowStrength(cards, r.Capacity(), s.Unseen)
	}
	return total
}
