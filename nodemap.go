package editorcore

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// childIndexCacheSize bounds the per-parent child-index LRU (spec
// §4.1: "an O(1) per-parent child-index cache is built lazily on first
// lookup ... dropped at each transaction boundary"). A few thousand
// entries comfortably covers documents with many large elements
// without the cache itself becoming a memory concern.
const childIndexCacheSize = 4096

// NodeMap is a state's `NodeKey -> Node` mapping (spec §3.1). It is
// value-like: Clone produces a structurally-shared copy, and mutating
// a cloned map only privatizes (deep-copies) the nodes actually
// touched, not the whole tree — the copy-on-write discipline design
// notes §9 calls for ("stable identity under copy-on-write").
type NodeMap struct {
	nodes map[NodeKey]Node

	// shared is the map this NodeMap was cloned from, or nil for an
	// original (non-cloned) map. A lookup that misses nodes but hits
	// shared is still valid: the node simply hasn't been privatized
	// yet.
	shared map[NodeKey]Node

	cloneNotNeeded cloneNotNeeded

	// childIndexCache maps parent key -> (child key -> position),
	// built lazily per parent and invalidated whenever that parent's
	// children list is mutated.
	childIndexCache *lru.Cache[NodeKey, map[NodeKey]int]
}

// NewNodeMap returns an empty map seeded with a fresh Root node.
func NewNodeMap() *NodeMap {
	cache, _ := lru.New[NodeKey, map[NodeKey]int](childIndexCacheSize)
	m := &NodeMap{
		nodes:           make(map[NodeKey]Node),
		cloneNotNeeded:  make(cloneNotNeeded),
		childIndexCache: cache,
	}
	m.nodes[RootKey] = NewRootNode()
	return m
}

// Clone returns a structurally-shared copy: looking up an untouched
// node returns the same value as the source until Mutate privatizes
// it. Mutating the clone never affects m (EditorState.Clone guarantee,
// spec §4.2).
func (m *NodeMap) Clone() *NodeMap {
	cache, _ := lru.New[NodeKey, map[NodeKey]int](childIndexCacheSize)
	return &NodeMap{
		nodes:           make(map[NodeKey]Node, len(m.nodes)),
		shared:          mergedShared(m),
		cloneNotNeeded:  make(cloneNotNeeded),
		childIndexCache: cache,
	}
}

// mergedShared flattens m's own nodes into its shared source so a
// grandchild clone only ever needs to consult one fallback map.
func mergedShared(m *NodeMap) map[NodeKey]Node {
	if len(m.nodes) == 0 {
		return m.shared
	}
	merged := make(map[NodeKey]Node, len(m.shared)+len(m.nodes))
	for k, v := range m.shared {
		merged[k] = v
	}
	for k, v := range m.nodes {
		merged[k] = v
	}
	return merged
}

// Get returns the node for key, checking the private map first and
// falling back to the shared source.
func (m *NodeMap) Get(key NodeKey) (Node, bool) {
	if n, ok := m.nodes[key]; ok {
		return n, n != nil
	}
	if m.shared != nil {
		n, ok := m.shared[key]
		return n, ok && n != nil
	}
	return nil, false
}

// MustGet panics with an InvariantViolation if key is absent; it is
// for internal call sites that have already validated the key exists.
func (m *NodeMap) MustGet(key NodeKey) Node {
	n, ok := m.Get(key)
	if !ok {
		panic(newInvariantViolation("node %q not present in state", key))
	}
	return n
}

// Mutate returns a privatized, mutable copy of the node for key —
// cloning it from the shared source on first touch within this
// transaction and returning the already-private copy on subsequent
// touches (the "clone-not-needed" short-circuit).
func (m *NodeMap) Mutate(key NodeKey) (Node, bool) {
	if n, ok := m.nodes[key]; ok {
		return n, n != nil
	}
	if m.shared == nil {
		return nil, false
	}
	src, ok := m.shared[key]
	if !ok || src == nil {
		return nil, false
	}
	var cloned Node
	if c, ok := src.(interface{ CloneNode() Node }); ok {
		cloned = c.CloneNode()
	} else {
		cloned = src.clone()
	}
	m.nodes[key] = cloned
	m.cloneNotNeeded.mark(key)
	m.invalidateChildIndex(key)
	return cloned, true
}

// Set installs n directly under its own key, bypassing clone-on-write
// (used when inserting freshly constructed nodes).
func (m *NodeMap) Set(n Node) {
	m.nodes[n.Key()] = n
	m.cloneNotNeeded.mark(n.Key())
}

// Delete removes key from the private map. Keys from the shared
// source are shadowed by recording a tombstone.
func (m *NodeMap) Delete(key NodeKey) {
	m.nodes[key] = nil
	m.invalidateChildIndex(key)
}

// Len reports the number of live (non-tombstoned) keys visible through
// this map.
func (m *NodeMap) Len() int {
	n := 0
	for k := range m.All() {
		_ = k
		n++
	}
	return n
}

// All iterates every live key in this map's view: private entries
// (skipping tombstones) plus shared entries not shadowed privately.
func (m *NodeMap) All() func(func(NodeKey) bool) {
	return func(yield func(NodeKey) bool) {
		seen := make(map[NodeKey]struct{}, len(m.nodes))
		for k, v := range m.nodes {
			seen[k] = struct{}{}
			if v == nil {
				continue
			}
			if !yield(k) {
				return
			}
		}
		for k, v := range m.shared {
			if _, dup := seen[k]; dup {
				continue
			}
			if v == nil {
				continue
			}
			if !yield(k) {
				return
			}
		}
	}
}

// ChildIndex returns the position of child within parent's children,
// using (and lazily populating) the per-parent LRU cache.
func (m *NodeMap) ChildIndex(parent NodeKey, child NodeKey) (int, bool) {
	if idx, ok := m.childIndexCache.Get(parent); ok {
		pos, ok := idx[child]
		return pos, ok
	}
	n, ok := m.Get(parent)
	if !ok {
		return 0, false
	}
	e, ok := n.(Elemental)
	if !ok {
		return 0, false
	}
	idx := make(map[NodeKey]int, len(e.Children()))
	for i, k := range e.Children() {
		idx[k] = i
	}
	m.childIndexCache.Add(parent, idx)
	pos, ok := idx[child]
	return pos, ok
}

func (m *NodeMap) invalidateChildIndex(parent NodeKey) {
	m.childIndexCache.Remove(parent)
}

// ResetTransactionCaches drops the clone-not-needed set and every
// per-parent child-index cache entry, as the Update Driver must at
// every transaction boundary (spec §4.1, §4.8 step 8).
func (m *NodeMap) ResetTransactionCaches() {
	m.cloneNotNeeded = make(cloneNotNeeded)
	m.childIndexCache.Purge()
}
