package mcts

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/errgroup"

	"github.com/ofcsolver/ofc/movegen"
	"github.com/ofcsolver/ofc/rng"
	"github.com/ofcsolver/ofc/state"
	"github.com/ofcsolver/ofc/stats"
)

// defaultPolicyEpsilon is the probability the playout's default policy
// ignores the generator's top-ranked (highest-heuristic) candidate and
// instead samples uniformly among all candidates, so playouts do not
// always follow the top candidate. The draws come from the worker's RNG
// stream, so a fixed seed still reproduces them.
const defaultPolicyEpsilon = 0.15

// workerStreams derives one RNG stream per worker. With opts.RNGSeed set,
// the root stream is deterministic and each worker's child stream is
// derived by repeated Split() in a fixed order, giving the (seed,
// worker-count) reproducibility spec.md §4.9 requires; RNGSeed == 0 falls
// back to a process-random root.
func workerStreams(opts EngineOptions, threads int) []*rng.RNG {
	var root *rng.RNG
	if opts.RNGSeed != 0 {
		root = rng.New(opts.RNGSeed)
	} else {
		root = rng.NewNondeterministic()
	}
	streams := make([]*rng.RNG, threads)
	for i := 0; i < threads; i++ {
		streams[i] = root.Split()
	}
	return streams
}

// newClockFunc returns a function yielding the current wall-clock time as
// Unix nanoseconds, used by Budget.exceeded for deadline comparisons.
func newClockFunc() func() int64 {
	clk := rng.SystemClock{}
	return func() int64 { return clk.Now().UnixNano() }
}

// actionsFor returns st's legal, pruned, heuristic-ordered candidate
// actions via the C5 move generator.
func actionsFor(st *state.State) []state.Action {
	if st.Street == 0 {
		return movegen.GenerateOpener(st, movegen.DefaultOpenerCandidates)
	}
	return movegen.GenerateStreet(st)
}

// advance applies action to st and, if the result isn't terminal, draws
// the next street's cards from Unseen using r and folds them in.
func advance(st *state.State, action state.Action, r *rng.RNG) (*state.State, error) {
	next, err := st.Apply(action)
	if err != nil {
		return nil, err
	}
	if next.IsTerminal() {
		return next, nil
	}
	drawn := next.Unseen.Sample(3, r)
	return next.WithDealt(st.Street+1, drawn), nil
}

// pickDefaultAction implements the lightweight default policy: mostly
// follow the generator's top (highest static-heuristic) candidate, with
// a small chance of sampling uniformly among all legal candidates
// instead (which can, by chance, land back on the top candidate).
func pickDefaultAction(actions []state.Action, r *rng.RNG) state.Action {
	if len(actions) == 1 || r.Float64() >= defaultPolicyEpsilon {
		return actions[0]
	}
	return actions[r.Intn(len(actions))]
}

// playout runs the default policy from leaf to a terminal state and
// returns its value under opts.Value.
func playout(leaf *state.State, opts EngineOptions, r *rng.RNG) float64 {
	st := leaf
	for !st.IsTerminal() {
		actions := actionsFor(st)
		if len(actions) == 0 {
			break
		}
		choice := pickDefaultAction(actions, r)
		next, err := advance(st, choice, r)
		if err != nil {
			next, err = advance(st, actions[0], r)
			if err != nil {
				break
			}
		}
		st = next
	}
	return opts.Value(st)
}

// runOneTree repeatedly selects, expands, simulates, and backpropagates
// against root until budget is exhausted, counting every completed
// simulation into simsDone (shared across workers so the budget applies
// to the search call as a whole, not per worker). nc tracks root's live
// node count against opts.MaxNodes.
func runOneTree(root *SearchNode, budget Budget, opts EngineOptions, r *rng.RNG, simsDone *int64, virtualLoss bool, now func() int64, nc *nodeCounter) {
	for {
		done := atomic.LoadInt64(simsDone)
		if budget.exceeded(done, now()) {
			return
		}

		path := []*SearchNode{root}
		node := root
		for {
			next, expanded := selectStep(node, root, nc, opts, virtualLoss, r)
			if next == node {
				break
			}
			path = append(path, next)
			node = next
			if expanded || next.terminal {
				break
			}
		}

		var value float64
		if opts.Memo != nil {
			key := node.hashKey
			if n, w, ok := opts.Memo.Lookup(key); ok && n > 0 {
				value = w / float64(n)
			} else {
				value = playout(node.st, opts, r)
				opts.Memo.Accumulate(key, value)
			}
		} else {
			value = playout(node.st, opts, r)
		}

		backpropagate(path, value, virtualLoss)
		atomic.AddInt64(simsDone, 1)
	}
}

// Search runs MCTS from rootState under budget and opts, returning the
// chosen action and the full ranked root statistics. It never returns an
// error: a worker-spawn failure (a panicking search goroutine — the
// closest Go analogue to the OS-level "thread could not be created"
// failure spec.md §5 describes) degrades to a single-threaded retry
// (Result.Degraded = true), and budget exhaustion or cancellation is
// reported via Result.Complete = false with the best decision found so
// far, not an error.
func Search(rootState *state.State, budget Budget, opts EngineOptions) Result {
	if opts.Value == nil {
		opts.Value = SelfValue
	}
	threads := opts.Threads
	if threads < 1 {
		threads = 1
	}

	degraded := false
	var result Result

	run := func() error {
		var err error
		switch opts.Parallelism {
		case TreeParallel:
			result, err = searchTreeParallel(rootState, budget, opts, threads)
		default:
			result, err = searchRootParallel(rootState, budget, opts, threads)
		}
		return err
	}

	attempt := 0
	err := retry.Do(func() error {
		attempt++
		if attempt > 1 {
			threads = 1
			degraded = true
		}
		return run()
	}, retry.Attempts(2), retry.OnRetry(func(n uint, err error) {
		degraded = true
	}))
	if err != nil {
		// Both attempts failed (every worker panicked even at
		// threads=1); surface an empty, degraded result rather than
		// propagating the panic.
		return Result{Degraded: true}
	}

	result.Degraded = result.Degraded || degraded
	return result
}

// recoverableGo runs fn under g.Go, converting a panic in fn into a
// returned error instead of crashing the process — the failure signal
// Search's retry/degrade path needs to actually observe a broken worker.
func recoverableGo(g *errgroup.Group, fn func()) {
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("mcts worker panic: %v", r)
			}
		}()
		fn()
		return nil
	})
}

// mergeRootStats reads root's children under their own locks and returns
// one ActionStat per child, sorted by descending mean value among those
// with at least opts.NMin visits (falling back to raw visits if none
// qualify), per spec.md §4.7's root-parallel termination rule.
func mergeRootStats(root *SearchNode, opts EngineOptions) []ActionStat {
	root.mu.Lock()
	children := append([]*SearchNode(nil), root.children...)
	root.mu.Unlock()

	out := make([]ActionStat, 0, len(children))
	for _, c := range children {
		n, w := c.snapshot()
		mean := 0.0
		if n > 0 {
			mean = w / float64(n)
		}
		out = append(out, ActionStat{Action: c.action, Visits: n, Mean: mean})
	}

	nMin := opts.NMin
	if nMin < 1 {
		nMin = 1
	}
	eligible := func(a ActionStat) bool { return a.Visits >= nMin }
	anyEligible := false
	for _, a := range out {
		if eligible(a) {
			anyEligible = true
			break
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if anyEligible && eligible(out[i]) != eligible(out[j]) {
			return eligible(out[i])
		}
		if !anyEligible && out[i].Visits != out[j].Visits {
			return out[i].Visits > out[j].Visits
		}
		if out[i].Mean != out[j].Mean {
			return out[i].Mean > out[j].Mean
		}
		return out[i].Visits > out[j].Visits
	})
	return out
}

// mergeRootStatsByVisits is the tree-parallel termination rule from
// spec.md §4.7's general case: highest visit count first, ties broken by
// mean value, then by C5 (generator) order — which is already the order
// actionsFor produced the untried list in, so a stable sort preserves it.
func mergeRootStatsByVisits(root *SearchNode) []ActionStat {
	root.mu.Lock()
	children := append([]*SearchNode(nil), root.children...)
	root.mu.Unlock()

	out := make([]ActionStat, 0, len(children))
	for _, c := range children {
		n, w := c.snapshot()
		mean := 0.0
		if n > 0 {
			mean = w / float64(n)
		}
		out = append(out, ActionStat{Action: c.action, Visits: n, Mean: mean})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Visits != out[j].Visits {
			return out[i].Visits > out[j].Visits
		}
		return out[i].Mean > out[j].Mean
	})
	return out
}

// searchRootParallel spawns threads independent trees from rootState,
// running in CheckEvery-sized rounds so the merged root statistics can be
// checked against the budget and the optional stopping-confidence
// condition between rounds.
func searchRootParallel(rootState *state.State, budget Budget, opts EngineOptions, threads int) (Result, error) {
	roots := make([]*SearchNode, threads)
	ncs := make([]*nodeCounter, threads)
	for i := range roots {
		roots[i] = newNode(rootState, state.Action{}, nil)
		ncs[i] = &nodeCounter{n: 1}
	}
	merged := newNode(rootState, state.Action{}, nil)

	checkEvery := opts.CheckEvery
	if checkEvery < 1 {
		checkEvery = 1
	}

	var simsDone int64
	clk := newClockFunc()
	streams := workerStreams(opts, threads)

	for {
		target := atomic.LoadInt64(&simsDone) + checkEvery*int64(threads)
		roundBudget := Budget{MaxSimulations: target, DeadlineUnixNs: budget.DeadlineUnixNs, Cancel: budget.Cancel}
		if budget.MaxSimulations > 0 && (roundBudget.MaxSimulations > budget.MaxSimulations) {
			roundBudget.MaxSimulations = budget.MaxSimulations
		}

		var g errgroup.Group
		for i := 0; i < threads; i++ {
			i := i
			recoverableGo(&g, func() {
				runOneTree(roots[i], roundBudget, opts, streams[i], &simsDone, false, clk, ncs[i])
			})
		}
		if err := g.Wait(); err != nil {
			mergeInto(merged, roots)
			top := mergeRootStats(merged, opts)
			return finishResult(top, simsDone, budget, clk(), rootState), err
		}

		mergeInto(merged, roots)

		done := atomic.LoadInt64(&simsDone)
		if budget.exceeded(done, clk()) {
			break
		}
		if opts.StoppingConfidence > 0 && shouldStopOnConfidence(merged, opts.StoppingConfidence, opts.MinVisitsForStop) {
			break
		}
	}

	top := mergeRootStats(merged, opts)
	return finishResult(top, simsDone, budget, clk(), rootState), nil
}

// actionKey builds a stable string key for an action, used only to match
// the "same" root action across independent trees in mergeInto — every
// tree starts from the same rootState, but EngineOptions.MaxNodes
// pruning can remove and reorder a tree's root children independently of
// the others, so matching by position is no longer safe.
func actionKey(a state.Action) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d|", a.Kind)
	placements := append([]state.Placement(nil), a.Placements...)
	sort.Slice(placements, func(i, j int) bool {
		if placements[i].Row != placements[j].Row {
			return placements[i].Row < placements[j].Row
		}
		return placements[i].Card < placements[j].Card
	})
	for _, p := range placements {
		fmt.Fprintf(&sb, "%d:%d,", p.Row, p.Card)
	}
	fmt.Fprintf(&sb, "|%d", a.Discard)
	return sb.String()
}

// mergeInto combines every independent tree's root-children accumulators
// into dst's children via stats.Statistic.Merge, matching by actionKey
// rather than position: a pruned tree's root.children can be shorter
// than, and reordered relative to, another tree's, so the merge has to
// find each action wherever it landed instead of assuming index i means
// the same thing in every tree.
func mergeInto(dst *SearchNode, roots []*SearchNode) {
	if len(roots) == 0 {
		return
	}

	order := make([]string, 0)
	seen := make(map[string]*SearchNode)
	for _, root := range roots {
		root.mu.Lock()
		children := append([]*SearchNode(nil), root.children...)
		root.mu.Unlock()
		for _, c := range children {
			key := actionKey(c.action)
			acc, ok := seen[key]
			if !ok {
				acc = &SearchNode{action: c.action}
				seen[key] = acc
				order = append(order, key)
			}
			childStat := c.statCopy()
			acc.stat.Merge(&childStat)
		}
	}

	dst.children = make([]*SearchNode, len(order))
	for i, key := range order {
		dst.children[i] = seen[key]
	}
}

// searchTreeParallel spawns threads workers against one shared tree,
// guarded by per-node locks and virtual loss.
func searchTreeParallel(rootState *state.State, budget Budget, opts EngineOptions, threads int) (Result, error) {
	root := newNode(rootState, state.Action{}, nil)
	nc := &nodeCounter{n: 1}

	var simsDone int64
	var g errgroup.Group
	clk := newClockFunc()
	streams := workerStreams(opts, threads)
	for i := 0; i < threads; i++ {
		i := i
		recoverableGo(&g, func() {
			runOneTree(root, budget, opts, streams[i], &simsDone, true, clk, nc)
		})
	}
	err := g.Wait()

	top := mergeRootStatsByVisits(root)
	return finishResult(top, simsDone, budget, clk(), rootState), err
}

// finishResult assembles the final Result from the merged root statistics.
// If the search never expanded a single root child (e.g. cancelled before
// the first playout), top is empty; spec.md §8 still requires a valid
// first-C5-order action in that case, so the zero-visit fallback comes
// straight from the move generator rather than a zero-value Action.
func finishResult(top []ActionStat, simsDone int64, budget Budget, nowNs int64, rootState *state.State) Result {
	complete := !budget.exceeded(simsDone, nowNs)
	var best ActionStat
	if len(top) > 0 {
		best = top[0]
	} else if candidates := actionsFor(rootState); len(candidates) > 0 {
		best = ActionStat{Action: candidates[0]}
	}
	return Result{
		Best:       best,
		TopActions: top,
		Simulated:  simsDone,
		Complete:   complete,
	}
}

// shouldStopOnConfidence reports whether root's two leading children (by
// mean value) have statistically separated: the leader's mean minus its
// margin of error still exceeds the runner-up's mean plus its margin,
// per spec.md §4.7's stopping-confidence check. This mirrors the
// teacher's montecarlo package's passTest shape (leader's lower bound
// beats the runner-up's upper bound) without depending on its since-
// diverged stats.Z95/Z98/Z99 constant API; it's built directly from
// stats.ZVal and each node's own accumulated sum-of-squares.
func shouldStopOnConfidence(root *SearchNode, confidence float64, minVisits int64) bool {
	if confidence <= 0 {
		return false
	}
	root.mu.Lock()
	children := append([]*SearchNode(nil), root.children...)
	root.mu.Unlock()
	if len(children) < 2 {
		return false
	}

	type ranked struct {
		n    int64
		mean float64
		err  float64
	}
	ranks := make([]ranked, 0, len(children))
	for _, c := range children {
		n, w := c.snapshot()
		if n == 0 {
			continue
		}
		ranks = append(ranks, ranked{n: n, mean: w / float64(n), err: c.standardError()})
	}
	if len(ranks) < 2 {
		return false
	}
	sort.Slice(ranks, func(i, j int) bool { return ranks[i].mean > ranks[j].mean })
	lead, runnerUp := ranks[0], ranks[1]
	if lead.n < minVisits || runnerUp.n < minVisits {
		return false
	}
	z := stats.ZVal(confidence)
	return (lead.mean - z*lead.err) > (runnerUp.mean + z*runnerUp.err)
}
