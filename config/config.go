// Package config loads EngineOptions defaults from an optional config
// file and environment variables, layered on the code defaults from
// mcts.DefaultOptions, via viper. fsnotify support lets the CLI driver
// optionally reload options between solve calls without restarting the
// process (cmd/ofcsolve's -watch flag).
package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/ofcsolver/ofc/mcts"
)

// memorySoftLimitBytes resolves a configured soft limit (in MB) to bytes,
// falling back to a fraction of the host's total memory (via pbnjay/
// memory, which works without cgo or /proc parsing) when unset.
func memorySoftLimitBytes(configuredMB int) uint64 {
	if configuredMB > 0 {
		return uint64(configuredMB) * 1024 * 1024
	}
	total := memory.TotalMemory()
	if total == 0 {
		return 0
	}
	return total / 4
}

// MaxNodesForMemory estimates a tree node-count cap from a byte budget,
// used to populate mcts.EngineOptions.MaxNodes (spec.md §5's "soft memory
// bound... triggers pruning... before allocation of new nodes").
func MaxNodesForMemory(configuredMB int) int64 {
	const approxBytesPerNode = 256
	limit := memorySoftLimitBytes(configuredMB)
	if limit == 0 {
		return 2_000_000
	}
	return int64(limit / approxBytesPerNode)
}

// Config holds the engine-options knobs a host can override, independent
// of the per-call state/budget (which always comes from the CLI
// invocation itself, never from a config file, per spec.md §6's "no
// persisted state" rule for the core).
type Config struct {
	Threads             int     `mapstructure:"threads"`
	ExplorationC        float64 `mapstructure:"exploration_c"`
	Parallelism         string  `mapstructure:"parallelism"` // "root" or "tree"
	ProgressiveWidening bool    `mapstructure:"progressive_widening"`
	TranspositionMemo   bool    `mapstructure:"transposition_memo"`
	MemoShardCapacity   int     `mapstructure:"memo_shard_capacity"`
	StoppingConfidence  float64 `mapstructure:"stopping_confidence"`
	MemorySoftLimitMB   int     `mapstructure:"memory_soft_limit_mb"`
	RNGSeed             uint64  `mapstructure:"rng_seed"`
}

// New builds a viper instance seeded with mcts.DefaultOptions-equivalent
// defaults, then layers in configPath (if non-empty) and OFCSOLVE_*
// environment variables.
func New(configPath string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("ofcsolve")
	v.AutomaticEnv()

	defaults := mcts.DefaultOptions()
	v.SetDefault("threads", defaults.Threads)
	v.SetDefault("exploration_c", defaults.ExplorationC)
	v.SetDefault("parallelism", "root")
	v.SetDefault("progressive_widening", defaults.ProgressiveWidening)
	v.SetDefault("transposition_memo", false)
	v.SetDefault("memo_shard_capacity", 4096)
	v.SetDefault("stopping_confidence", defaults.StoppingConfidence)
	v.SetDefault("memory_soft_limit_mb", 0) // 0 means "query the host", see memorySoftLimitBytes
	v.SetDefault("rng_seed", 0)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", configPath, err)
		}
	}
	return v, nil
}

// Load unmarshals v into a Config.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return c, nil
}

// Watch installs an fsnotify-backed reload: whenever the underlying
// config file changes, v re-reads it and onChange is invoked with the
// freshly loaded Config. Used by cmd/ofcsolve's -watch flag so a host
// running repeated manual solves can tune options without restarting.
func Watch(v *viper.Viper, onChange func(Config)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		c, err := Load(v)
		if err != nil {
			log.Warn().Err(err).Str("file", e.Name).Msg("config reload failed, keeping previous options")
			return
		}
		log.Info().Str("file", e.Name).Msg("config reloaded")
		onChange(c)
	})
	v.WatchConfig()
}

// ToEngineOptions maps a Config onto mcts.EngineOptions, leaving fields
// the config doesn't cover (Value, MinVisitsForStop, NMin, CheckEvery) at
// mcts.DefaultOptions' values. Memo is set only when TranspositionMemo is
// true.
func ToEngineOptions(c Config) mcts.EngineOptions {
	opts := mcts.DefaultOptions()
	opts.Threads = c.Threads
	opts.ExplorationC = c.ExplorationC
	opts.ProgressiveWidening = c.ProgressiveWidening
	opts.StoppingConfidence = c.StoppingConfidence
	if c.Parallelism == "tree" {
		opts.Parallelism = mcts.TreeParallel
	} else {
		opts.Parallelism = mcts.RootParallel
	}
	if c.TranspositionMemo {
		opts.Memo = mcts.NewTranspositionMemo(c.MemoShardCapacity)
	}
	opts.MaxNodes = MaxNodesForMemory(c.MemorySoftLimitMB)
	opts.RNGSeed = c.RNGSeed
	return opts
}
