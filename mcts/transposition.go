package mcts

import "sync"

// memoEntry is the cached playout value for one transposition key: a
// value cache (not a shared subtree), per spec.md §4.7.
type memoEntry struct {
	key uint64
	n   int
	w   float64
}

const shardCount = 64

// shard is a small fixed-capacity, oldest-first-eviction bucket guarded by
// its own mutex, storing (N,W) value pairs.
type shard struct {
	mu      sync.Mutex
	entries []memoEntry
	cap     int
}

// TranspositionMemo is a bounded, thread-safe cache from canonical state
// hash to accumulated (N,W). It is optional — the MCTS engine only
// consults it when EngineOptions.Memo is non-nil.
type TranspositionMemo struct {
	shards [shardCount]*shard
}

// NewTranspositionMemo builds a memo with perShardCapacity entries per
// shard (shardCount * perShardCapacity total, bounding memory as spec.md
// §4.7 and §5 require).
func NewTranspositionMemo(perShardCapacity int) *TranspositionMemo {
	m := &TranspositionMemo{}
	for i := range m.shards {
		m.shards[i] = &shard{cap: perShardCapacity}
	}
	return m
}

func (m *TranspositionMemo) shardFor(key uint64) *shard {
	return m.shards[key%shardCount]
}

// Lookup returns the cached (N,W) for key, if present.
func (m *TranspositionMemo) Lookup(key uint64) (n int, w float64, ok bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.key == key {
			return e.n, e.w, true
		}
	}
	return 0, 0, false
}

// Accumulate merges a new playout observation into key's cached value,
// inserting a fresh entry (evicting the oldest if the shard is full) when
// key is not yet present.
func (m *TranspositionMemo) Accumulate(key uint64, value float64) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.key == key {
			s.entries[i].n++
			s.entries[i].w += value
			return
		}
	}
	if len(s.entries) >= s.cap {
		// Oldest-first eviction: index 0 was inserted first.
		s.entries = s.entries[1:]
	}
	s.entries = append(s.entries, memoEntry{key: key, n: 1, w: value})
}
