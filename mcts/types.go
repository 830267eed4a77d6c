// Package mcts implements the parallel Monte-Carlo Tree Search engine
// (C7): UCT selection, expansion via movegen, a lightweight default-policy
// playout, back-propagation, and two parallelism strategies (root and
// tree, per spec.md §4.7). A ValueFunc supplies the terminal value of a
// completed hand — either the self-evaluation royalty score or a
// head-to-head matchup score against a fixed, caller-supplied opponent
// board (no opponent board is sampled during playouts) —
// following spec.md §9's guidance to model this as a function-object
// field rather than a type switch.
package mcts

import (
	"math"

	"github.com/ofcsolver/ofc/arrangement"
	"github.com/ofcsolver/ofc/scoring"
	"github.com/ofcsolver/ofc/state"
)

// ValueFunc scores a completed (terminal) state from the root player's
// perspective. Self-evaluation and matchup-against-an-opponent are both
// ordinary ValueFunc values, not a type switch on a "mode" enum.
type ValueFunc func(terminal *state.State) float64

// SelfValue scores a hand purely on its own royalties/foul penalty,
// ignoring any opponent, per spec.md §4.4's self-evaluation strategy.
func SelfValue(terminal *state.State) float64 {
	return float64(scoring.Self(terminal.Arrangement))
}

// MatchupValue builds a ValueFunc that scores the root player's terminal
// arrangement against a single fixed opponent arrangement (assumed
// already complete), using the row-by-row matchup strategy.
func MatchupValue(opponent *arrangement.Arrangement) ValueFunc {
	return func(terminal *state.State) float64 {
		m := scoring.Compare(terminal.Arrangement, opponent)
		return float64(m.AScore)
	}
}

// Parallelism selects how the search distributes work across workers.
type Parallelism int

const (
	// RootParallel runs Threads independent trees from the same root and
	// merges (N, W) per root action after every CheckEvery-sized round.
	RootParallel Parallelism = iota
	// TreeParallel runs Threads workers against one shared tree, guarded
	// by per-node locks and virtual loss.
	TreeParallel
)

// EngineOptions configures one Search call.
type EngineOptions struct {
	Parallelism  Parallelism
	Threads      int
	ExplorationC float64 // UCT constant c; 0 defaults to sqrt(2).

	ProgressiveWidening bool
	PWk                 float64 // default 2
	PWAlpha             float64 // default 0.5

	Memo *TranspositionMemo // optional; nil disables the transposition memo.

	// StoppingConfidence, if > 0, lets root-parallel search exit early
	// (see shouldStopOnConfidence) once the leading root action's mean value has
	// separated from the runner-up's by this many percentage points of
	// confidence (e.g. 95 for a 95% interval).
	StoppingConfidence float64
	// MinVisitsForStop is the minimum per-action visit count before the
	// stopping-confidence check is allowed to fire, avoiding a premature
	// exit on noisy early estimates.
	MinVisitsForStop int64

	// NMin is the minimum visit count a root child needs to be eligible
	// as the chosen action under root-parallel merge (spec.md §4.7).
	NMin int64

	Value ValueFunc

	// RNGSeed, when non-zero, makes the search deterministic (bit-
	// identical across runs) at Threads=1, per spec.md §6's determinism
	// envelope. At Threads>1 each worker still derives an independent
	// stream from it via rng.RNG.Split, but scheduling nondeterminism
	// between workers means the merged result is no longer guaranteed
	// bit-identical.
	RNGSeed uint64

	// CheckEvery is the size, in simulations per worker, of one
	// root-parallel round: after each round the trees are merged and the
	// stopping-confidence condition is checked. The budget and
	// cancellation are checked before every simulation.
	CheckEvery int64

	// MaxNodes bounds a tree's node count (the shared tree in tree-parallel
	// mode, or each independent tree in root-parallel mode), derived from
	// the process's soft memory limit (§5). Enforced in selectStep: once a
	// tree reaches the cap, expansion first prunes the root's least-
	// visited child subtree to reclaim space and, failing that, falls
	// back to a playout in place of expanding.
	MaxNodes int64
}

// DefaultOptions returns sane defaults; callers override individual
// fields (e.g. Value, Threads) as needed.
func DefaultOptions() EngineOptions {
	return EngineOptions{
		Parallelism:        RootParallel,
		Threads:            1,
		ExplorationC:       math.Sqrt2,
		PWk:                2,
		PWAlpha:            0.5,
		StoppingConfidence: 0,
		MinVisitsForStop:   200,
		NMin:               1,
		CheckEvery:         64,
		MaxNodes:           2_000_000,
	}
}

// Budget bounds one Search call: a deadline, a simulation cap, or both
// (the search stops at whichever is hit first). A zero MaxSimulations or
// DeadlineUnixNs, or a nil Cancel, means "unbounded" on that axis.
type Budget struct {
	MaxSimulations int64
	DeadlineUnixNs int64 // 0 means no deadline; compared against a clock.Now() snapshot the caller takes.
	Cancel         <-chan struct{}
}

func (b Budget) exceeded(simsDone int64, nowUnixNs int64) bool {
	if b.MaxSimulations > 0 && simsDone >= b.MaxSimulations {
		return true
	}
	if b.DeadlineUnixNs > 0 && nowUnixNs >= b.DeadlineUnixNs {
		return true
	}
	if b.Cancel != nil {
		select {
		case <-b.Cancel:
			return true
		default:
		}
	}
	return false
}

// ActionStat reports one root action's aggregated search statistics.
type ActionStat struct {
	Action state.Action
	Visits int64
	Mean   float64
}

// Result is what Search returns: the chosen action, its statistics, the
// full ranked list of root actions considered, how many simulations ran,
// and whether the search completed on its own terms (false when it was
// cut short by the simulation cap, the deadline or a cancellation; true
// when the stopping-confidence check ended it early — callers still get
// the best decision found so far, per
// spec.md §7's "not an error" semantics for budget exhaustion).
type Result struct {
	Best       ActionStat
	TopActions []ActionStat
	Simulated  int64
	Complete   bool
	Degraded   bool
}
