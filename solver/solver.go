// Package solver is the C8 facade: the two public library entry points,
// solve and analyze, dispatching on state.Street to the C5 move generator
// and C7 MCTS engine, or to C6 alone for a MCTS-free summary.
package solver

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ofcsolver/ofc/arrangement"
	"github.com/ofcsolver/ofc/heuristic"
	"github.com/ofcsolver/ofc/mcts"
	"github.com/ofcsolver/ofc/movegen"
	"github.com/ofcsolver/ofc/ofcerr"
	"github.com/ofcsolver/ofc/scoring"
	"github.com/ofcsolver/ofc/state"
)

// Budget bounds one Solve call, mirroring spec.md §6's wire shape.
type Budget struct {
	TimeLimitSeconds  float64
	MaxSimulations    int64
	CancellationToken <-chan struct{}
}

// Decision is solve's return value (spec.md §6, expanded with the
// trace/degradation fields SPEC_FULL.md §3 adds).
type Decision struct {
	Action               state.Action
	ExpectedScore        float64
	Confidence           float64 // ratio of best visit count to total visits, per spec.md §4.8
	SimulationsPerformed int64
	ElapsedSeconds       float64
	Complete             bool
	TopActions           []mcts.ActionStat
	TraceID              uuid.UUID
	Degraded             bool
}

// Summary is analyze's return value: C6-only, no search.
type Summary struct {
	PerRowType             [3]string
	CurrentRoyalties       int
	FoulProbability        float64
	FantasyLandProbability float64
	TopActions             []state.Action
}

// Solve dispatches by st.Street: street 0 uses the C5 opener generator as
// MCTS root candidates, streets 1..4 use the street generator. The whole
// budget goes to a single mcts.Search call; there is no separate
// exploratory pass and no deeper pass over a top-K subset.
func Solve(st *state.State, budget Budget, opts mcts.EngineOptions, value mcts.ValueFunc, log zerolog.Logger) (Decision, error) {
	if err := st.Validate(); err != nil {
		return Decision{}, err
	}
	if st.Unseen.Len() == 0 && !st.IsTerminal() {
		return Decision{}, ofcerr.New(ofcerr.ExhaustedDeck, "no unseen cards remain to complete the hand")
	}

	traceID := uuid.New()
	start := time.Now()
	log = log.With().Str("trace_id", traceID.String()).Int("street", st.Street).Logger()

	opts.Value = value
	if opts.Value == nil {
		opts.Value = mcts.SelfValue
	}

	mctsBudget := mcts.Budget{
		MaxSimulations: budget.MaxSimulations,
		Cancel:         budget.CancellationToken,
	}
	if budget.TimeLimitSeconds > 0 {
		mctsBudget.DeadlineUnixNs = start.Add(time.Duration(budget.TimeLimitSeconds * float64(time.Second))).UnixNano()
	}

	log.Debug().Msg("starting search")
	result := mcts.Search(st, mctsBudget, opts)

	elapsed := time.Since(start).Seconds()

	var totalVisits int64
	for _, a := range result.TopActions {
		totalVisits += a.Visits
	}
	confidence := 0.0
	if totalVisits > 0 {
		confidence = float64(result.Best.Visits) / float64(totalVisits)
	}

	log.Info().
		Int64("simulations", result.Simulated).
		Bool("complete", result.Complete).
		Bool("degraded", result.Degraded).
		Float64("elapsed_seconds", elapsed).
		Msg("search finished")

	return Decision{
		Action:               result.Best.Action,
		ExpectedScore:        result.Best.Mean,
		Confidence:           confidence,
		SimulationsPerformed: result.Simulated,
		ElapsedSeconds:       elapsed,
		Complete:             result.Complete,
		TopActions:           result.TopActions,
		TraceID:              traceID,
		Degraded:             result.Degraded,
	}, nil
}

// Analyze computes the C6-only summary: no search, just the current
// arrangement's row hand types, royalties, foul/Fantasy-Land estimates,
// and the top heuristic-ranked candidates for the current street.
// Royalties are counted only once the board is complete; an incomplete
// board reports 0.
func Analyze(st *state.State) (Summary, error) {
	if err := st.Validate(); err != nil {
		return Summary{}, err
	}

	var perRow [3]string
	for r := arrangement.Top; r < 3; r++ {
		if st.Arrangement.Count(r) == r.Capacity() {
			perRow[r] = st.Arrangement.RowHandType(r).String()
		} else {
			perRow[r] = "incomplete"
		}
	}

	foulProb := 0.0
	flProb := 0.0
	royalties := 0
	if st.Arrangement.IsComplete() {
		royalties = st.Arrangement.TotalRoyalties()
		if st.Arrangement.IsFouled() {
			foulProb = 1
		}
		if st.Arrangement.QualifiesFantasyLand() {
			flProb = 1
		}
	} else {
		foulProb = heuristic.FoulRisk(st.Arrangement, st.Unseen) / float64(scoring.FoulPenalty)
	}

	var candidates []state.Action
	if len(st.Dealt) > 0 {
		if st.Street == 0 {
			candidates = movegen.GenerateOpener(st, movegen.DefaultOpenerCandidates)
		} else {
			candidates = movegen.GenerateStreet(st)
		}
	}

	return Summary{
		PerRowType:             perRow,
		CurrentRoyalties:       royalties,
		FoulProbability:        foulProb,
		FantasyLandProbability: flProb,
		TopActions:             candidates,
	}, nil
}
