// Command ofcsolve is a single-shot CLI driver around the solver library:
// it parses a textual board state from flags, runs solve or analyze, and
// prints the resulting decision or summary to the console. It is not a
// server and holds no state between invocations, per spec.md §6's "no
// persisted state, no CLI read by the core" rule — everything here is
// host-side plumbing around the core library.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ofcsolver/ofc/arrangement"
	"github.com/ofcsolver/ofc/card"
	"github.com/ofcsolver/ofc/config"
	"github.com/ofcsolver/ofc/mcts"
	"github.com/ofcsolver/ofc/solver"
	"github.com/ofcsolver/ofc/state"
)

func main() {
	mode := flag.String("mode", "solve", "solve or analyze")
	topFlag := flag.String("top", "", "comma-separated cards already placed in the top row")
	middleFlag := flag.String("middle", "", "comma-separated cards already placed in the middle row")
	bottomFlag := flag.String("bottom", "", "comma-separated cards already placed in the bottom row")
	dealtFlag := flag.String("dealt", "", "comma-separated cards just dealt, awaiting placement")
	discardedFlag := flag.String("discarded", "", "comma-separated cards already discarded")
	opponentFlag := flag.String("known-opponent", "", "comma-separated cards known to be in the opponent's hand")
	street := flag.Int("street", 0, "current street, 0..4")
	opponentBoard := flag.String("opponent-board", "", "top;middle;bottom cards for a fixed matchup opponent (self-evaluation if empty)")

	maxSims := flag.Int64("max-sims", 10000, "simulation budget")
	timeLimit := flag.Float64("time-limit", 0, "wall-clock budget in seconds, 0 for none")
	seed := flag.Uint64("seed", 42, "deterministic RNG seed (results reproducible only at threads=1)")
	threads := flag.Int("threads", 1, "worker thread count")
	parallelism := flag.String("parallelism", "root", "root or tree")
	configPath := flag.String("config", "", "optional YAML/JSON/TOML config file overriding engine options")
	watch := flag.Bool("watch", false, "reload -config on change and print a notice (single-shot solve still runs once)")
	verbose := flag.Bool("verbose", false, "debug-level logging")

	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	v, err := config.New(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}
	cfg, err := config.Load(v)
	if err != nil {
		log.Fatal().Err(err).Msg("parsing config")
	}
	if *watch && *configPath != "" {
		config.Watch(v, func(c config.Config) {
			log.Info().Msg("config changed on disk; new options take effect on the next invocation")
		})
	}

	cfg.Threads = *threads
	cfg.Parallelism = *parallelism
	cfg.RNGSeed = *seed

	st, err := buildState(*topFlag, *middleFlag, *bottomFlag, *dealtFlag, *discardedFlag, *opponentFlag, *street)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid state")
	}

	switch *mode {
	case "analyze":
		summary, err := solver.Analyze(st)
		if err != nil {
			log.Fatal().Err(err).Msg("analyze failed")
		}
		printSummary(summary)
	default:
		opts := config.ToEngineOptions(cfg)
		value := mcts.SelfValue
		if *opponentBoard != "" {
			opp, err := parseArrangement(*opponentBoard)
			if err != nil {
				log.Fatal().Err(err).Msg("invalid opponent-board")
			}
			value = mcts.MatchupValue(opp)
		}
		budget := solver.Budget{MaxSimulations: *maxSims, TimeLimitSeconds: *timeLimit}
		decision, err := solver.Solve(st, budget, opts, value, log)
		if err != nil {
			log.Fatal().Err(err).Msg("solve failed")
		}
		printDecision(decision)
	}
}

func printSummary(s solver.Summary) {
	fmt.Printf("top=%s middle=%s bottom=%s\n", s.PerRowType[0], s.PerRowType[1], s.PerRowType[2])
	fmt.Printf("royalties=%d foul_probability=%.3f fantasy_land_probability=%.3f\n",
		s.CurrentRoyalties, s.FoulProbability, s.FantasyLandProbability)
	for i, a := range s.TopActions {
		if i >= 5 {
			break
		}
		fmt.Printf("  candidate %d: %s\n", i+1, describeAction(a))
	}
}

func printDecision(d solver.Decision) {
	fmt.Printf("trace_id=%s action=%s\n", d.TraceID, describeAction(d.Action))
	fmt.Printf("expected_score=%.3f confidence=%.3f simulations=%d elapsed=%.3fs complete=%t degraded=%t\n",
		d.ExpectedScore, d.Confidence, d.SimulationsPerformed, d.ElapsedSeconds, d.Complete, d.Degraded)
	for i, a := range d.TopActions {
		if i >= 5 {
			break
		}
		fmt.Printf("  #%d visits=%d mean=%.3f %s\n", i+1, a.Visits, a.Mean, describeAction(a.Action))
	}
}

func describeAction(a state.Action) string {
	if a.Kind == state.FoldAction {
		return "fold"
	}
	var sb strings.Builder
	for _, p := range a.Placements {
		fmt.Fprintf(&sb, "%s->%s ", p.Card, p.Row)
	}
	if a.Kind == state.StreetAction {
		fmt.Fprintf(&sb, "discard=%s", a.Discard)
	}
	return strings.TrimSpace(sb.String())
}

// buildState assembles a state.State from the CLI's flat comma-separated
// card lists.
func buildState(topCSV, middleCSV, bottomCSV, dealtCSV, discardedCSV, opponentCSV string, street int) (*state.State, error) {
	dealt, err := parseCards(dealtCSV)
	if err != nil {
		return nil, err
	}

	if street == 0 {
		st, err := state.New(dealt)
		if err != nil {
			return nil, err
		}
		return st, st.Validate()
	}

	st := &state.State{Arrangement: arrangement.New(), Unseen: card.Full(), Street: street, Dealt: dealt}
	rowCSVs := [3]string{topCSV, middleCSV, bottomCSV}
	rows := [3]arrangement.Row{arrangement.Top, arrangement.Middle, arrangement.Bottom}
	for i, csv := range rowCSVs {
		cs, err := parseCards(csv)
		if err != nil {
			return nil, err
		}
		for _, c := range cs {
			if err := st.Arrangement.Place(rows[i], c); err != nil {
				return nil, err
			}
			st.Unseen = st.Unseen.Remove(c)
		}
	}
	discarded, err := parseCards(discardedCSV)
	if err != nil {
		return nil, err
	}
	for _, c := range discarded {
		st.Discarded = st.Discarded.Insert(c)
		st.Unseen = st.Unseen.Remove(c)
	}
	opponent, err := parseCards(opponentCSV)
	if err != nil {
		return nil, err
	}
	for _, c := range opponent {
		st.KnownOpponent = st.KnownOpponent.Insert(c)
		st.Unseen = st.Unseen.Remove(c)
	}
	for _, c := range dealt {
		st.Unseen = st.Unseen.Remove(c)
	}
	return st, st.Validate()
}

func parseCards(csv string) ([]card.Card, error) {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return nil, nil
	}
	parts := strings.Split(csv, ",")
	out := make([]card.Card, 0, len(parts))
	for _, p := range parts {
		c, err := card.Parse(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// parseArrangement parses a "top;middle;bottom" spec (each a
// comma-separated card list) into a complete Arrangement, for the
// -opponent-board flag.
func parseArrangement(spec string) (*arrangement.Arrangement, error) {
	sections := strings.Split(spec, ";")
	if len(sections) != 3 {
		return nil, fmt.Errorf("opponent-board: expected 3 semicolon-separated rows, got %d", len(sections))
	}
	a := arrangement.New()
	rows := [3]arrangement.Row{arrangement.Top, arrangement.Middle, arrangement.Bottom}
	for i, section := range sections {
		cs, err := parseCards(section)
		if err != nil {
			return nil, err
		}
		for _, c := range cs {
			if err := a.Place(rows[i], c); err != nil {
				return nil, err
			}
		}
	}
	return a, nil
}
