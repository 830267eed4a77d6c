package mcts

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/ofcsolver/ofc/rng"
	"github.com/ofcsolver/ofc/state"
	"github.com/ofcsolver/ofc/stats"
	"github.com/ofcsolver/ofc/zobrist"
)

// zobristTable hashes every node's state once at creation time, for the
// transposition memo. One table is shared process-wide: it only needs to
// be internally consistent for the lifetime of the program, not stable
// across restarts.
var zobristTable = zobrist.New()

// nodeCounter is a shared, atomically-updated count of live nodes in one
// search tree, used to enforce EngineOptions.MaxNodes (spec.md §5's soft
// memory bound on the tree).
type nodeCounter struct {
	n int64
}

func (c *nodeCounter) add(delta int64) int64 {
	return atomic.AddInt64(&c.n, delta)
}

func (c *nodeCounter) load() int64 {
	return atomic.LoadInt64(&c.n)
}

// SearchNode is one node of the search tree: parent link, the action that
// produced it from its parent, a running mean/variance accumulator over
// backpropagated values, the still-untried actions (in C5 order), and
// expanded children. All mutable fields are guarded by mu so a node can be
// safely shared across workers in tree-parallel mode.
type SearchNode struct {
	mu sync.Mutex

	parent *SearchNode
	action state.Action
	st     *state.State

	stat        stats.Statistic
	virtualLoss int64
	hashKey     uint64

	untried  []state.Action
	children []*SearchNode
	terminal bool
}

func newNode(st *state.State, action state.Action, parent *SearchNode) *SearchNode {
	n := &SearchNode{parent: parent, action: action, st: st, hashKey: zobristTable.Hash(st)}
	if st.IsTerminal() {
		n.terminal = true
	} else {
		n.untried = actionsFor(st)
	}
	return n
}

// progressiveExposed returns the number of children exposed at visit
// count visits, per spec.md §4.7: ceil(k * N^alpha).
func progressiveExposed(visits int64, opts EngineOptions) int {
	if visits < 1 {
		visits = 1
	}
	exposed := opts.PWk * math.Pow(float64(visits), opts.PWAlpha)
	return int(math.Ceil(exposed))
}

// selectStep advances the tree policy one step from node: it either pops
// the next untried action (C5 order) and creates a child, or — once the
// node is fully expanded (or progressive widening has capped exposure) —
// descends via UCT among existing children. virtualLoss adds a temporary
// visit-loss to the chosen child for tree-parallel mode; it is undone in
// backpropagate. root and nc enforce EngineOptions.MaxNodes: when the
// tree is at its cap and a new node would otherwise be allocated,
// selectStep first tries pruneLeastVisited to reclaim space and, failing
// that, returns node itself so the caller runs a playout in place of an
// expansion, per spec.md §5.
func selectStep(node, root *SearchNode, nc *nodeCounter, opts EngineOptions, applyVirtualLoss bool, r *rng.RNG) (next *SearchNode, expanded bool) {
	node.mu.Lock()

	if node.terminal {
		node.mu.Unlock()
		return node, false
	}

	exposed := progressiveExposed(int64(node.stat.Iterations()), opts)
	canExpand := len(node.untried) > 0 && (!opts.ProgressiveWidening || len(node.children) < exposed)

	if canExpand && opts.MaxNodes > 0 && nc.load() >= opts.MaxNodes {
		node.mu.Unlock()
		if !pruneLeastVisited(root, nc) {
			// No space could be reclaimed; skip expansion and let the
			// caller play out from the current (already-expanded) node.
			return node, false
		}
		node.mu.Lock()
		exposed = progressiveExposed(int64(node.stat.Iterations()), opts)
		canExpand = len(node.untried) > 0 && (!opts.ProgressiveWidening || len(node.children) < exposed)
	}

	if canExpand {
		action := node.untried[0]
		node.untried = node.untried[1:]
		childState, err := advance(node.st, action, r)
		if err != nil {
			// Defensive: drop the illegal action, try again next call.
			node.mu.Unlock()
			return node, true
		}
		child := newNode(childState, action, node)
		node.children = append(node.children, child)
		node.mu.Unlock()
		nc.add(1)
		return child, true
	}

	if len(node.children) == 0 {
		// No legal continuation (shouldn't happen with a correct
		// generator); treat as a dead-end leaf.
		node.mu.Unlock()
		return node, false
	}

	best := uctBestLocked(node, opts)
	node.mu.Unlock()
	if applyVirtualLoss {
		best.mu.Lock()
		best.virtualLoss++
		best.mu.Unlock()
	}
	return best, false
}

// pruneLeastVisited removes root's least-visited direct child, subtree
// and all, to reclaim node-count headroom under EngineOptions.MaxNodes
// (spec.md §5: "pruning of the least-visited subtrees before allocation
// of new nodes"). The pruned action is returned to root's untried list
// so it remains legally selectable, with its accumulated statistics
// discarded — pruning trades fidelity for memory, per spec.md §5.
// Reports whether a subtree was actually removed; false means root has
// no children left to sacrifice, and the caller should fall back to a
// playout instead of expanding.
func pruneLeastVisited(root *SearchNode, nc *nodeCounter) bool {
	root.mu.Lock()
	if len(root.children) == 0 {
		root.mu.Unlock()
		return false
	}

	worstIdx := 0
	worstVisits := int64(math.MaxInt64)
	for i, c := range root.children {
		c.mu.Lock()
		v := int64(c.stat.Iterations())
		c.mu.Unlock()
		if v < worstVisits {
			worstVisits = v
			worstIdx = i
		}
	}

	victim := root.children[worstIdx]
	root.children = append(root.children[:worstIdx:worstIdx], root.children[worstIdx+1:]...)
	root.untried = append(root.untried, victim.action)
	root.mu.Unlock()

	nc.add(-subtreeSize(victim))
	return true
}

// subtreeSize walks n's subtree, locking each node transiently, and
// returns the total node count including n itself.
func subtreeSize(n *SearchNode) int64 {
	n.mu.Lock()
	children := append([]*SearchNode(nil), n.children...)
	n.mu.Unlock()

	size := int64(1)
	for _, c := range children {
		size += subtreeSize(c)
	}
	return size
}

// uctBestLocked picks node's best child by UCT. Caller must hold node.mu.
// Unvisited children (N==0) always win first, in C5 (creation) order.
func uctBestLocked(node *SearchNode, opts EngineOptions) *SearchNode {
	c := opts.ExplorationC
	if c == 0 {
		c = math.Sqrt2
	}
	var best *SearchNode
	bestScore := math.Inf(-1)
	parentN := int64(node.stat.Iterations())
	for _, child := range node.children {
		child.mu.Lock()
		realVisits := int64(child.stat.Iterations())
		sum := child.stat.Mean() * float64(realVisits)
		n := realVisits + child.virtualLoss
		var score float64
		if n == 0 {
			score = math.Inf(1)
		} else {
			exploit := sum / float64(n)
			explore := c * math.Sqrt(math.Log(float64(parentN+1))/float64(n))
			score = exploit + explore
		}
		child.mu.Unlock()
		if score > bestScore {
			bestScore = score
			best = child
		}
	}
	return best
}

// backpropagate adds value to every node on path (root-player perspective
// throughout), increments N, and undoes any virtual loss this worker
// applied while descending.
func backpropagate(path []*SearchNode, value float64, hadVirtualLoss bool) {
	for _, node := range path {
		node.mu.Lock()
		node.stat.Push(value)
		if hadVirtualLoss && node.virtualLoss > 0 {
			node.virtualLoss--
		}
		node.mu.Unlock()
	}
}

// snapshot reads a node's (N, sum-of-values) under lock; the sum is
// reconstructed from the accumulator's mean since stats.Statistic doesn't
// expose a running total directly.
func (n *SearchNode) snapshot() (visits int64, value float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	visits = int64(n.stat.Iterations())
	return visits, n.stat.Mean() * float64(visits)
}

// statCopy returns a snapshot of the node's accumulator under lock, for
// merging into another node's accumulator (see stats.Statistic.Merge).
func (n *SearchNode) statCopy() stats.Statistic {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stat
}

// standardError returns the standard error of the node's accumulated mean,
// 0 when fewer than two samples have been pushed.
func (n *SearchNode) standardError() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stat.Iterations() < 2 {
		return 0
	}
	return n.stat.StandardError()
}
