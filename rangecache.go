package editorcore

import (
	"sort"

	"github.com/corelex/editorcore/internal/bitset"
	"github.com/corelex/editorcore/internal/fenwick"
)

// RangeCacheItem is the per-node bookkeeping the reconciler and
// Point<->offset search operate over (spec §3.3). Location is the
// node's base position in the rendered buffer before any pending
// Fenwick deltas; the caller-visible absolute location is
// ActualLocation.
type RangeCacheItem struct {
	Location                       int
	PreambleLength                 int
	PreambleSpecialCharacterLength int
	ChildrenLength                 int
	TextLength                     int
	PostambleLength                int

	// NodeIndex is a stable insertion-order integer minted once per
	// node and never reused, used as a dense key into the cache's
	// present (liveness) bitset.
	NodeIndex int
	// DFSPosition is 1-based document order, assigned when the DFS
	// order is first (re)materialized; root is 1.
	DFSPosition int
}

// Length is the item's total span: preamble + children + text +
// postamble (spec §3.3 invariant).
func (r RangeCacheItem) Length() int {
	return r.PreambleLength + r.ChildrenLength + r.TextLength + r.PostambleLength
}

// RangeCache indexes RangeCacheItem by NodeKey and maintains the
// Fenwick tree of pending location deltas keyed by DFSPosition.
type RangeCache struct {
	items     map[NodeKey]*RangeCacheItem
	dfsOrder  []NodeKey // index i -> key with DFSPosition i+1
	fenwick   *fenwick.Tree
	nextIndex int

	// present tracks which minted NodeIndex values currently back a
	// live item, keyed densely so a detached/still-attached check
	// never has to walk items (spec invariant "range-cache totality").
	present bitset.BitSet
}

// NewRangeCache returns an empty cache.
func NewRangeCache() *RangeCache {
	return &RangeCache{
		items:   make(map[NodeKey]*RangeCacheItem),
		fenwick: fenwick.New(0),
	}
}

// Get returns the cached item for key.
func (rc *RangeCache) Get(key NodeKey) (*RangeCacheItem, bool) {
	it, ok := rc.items[key]
	return it, ok
}

// Put installs or replaces the cached item for key, minting a fresh
// NodeIndex if the key is new.
func (rc *RangeCache) Put(key NodeKey, item RangeCacheItem) *RangeCacheItem {
	existing, ok := rc.items[key]
	if ok {
		item.NodeIndex = existing.NodeIndex
	} else {
		item.NodeIndex = rc.nextIndex
		rc.nextIndex++
	}
	stored := item
	rc.items[key] = &stored
	rc.present.Set(uint(stored.NodeIndex))
	return &stored
}

// DFSOrder returns the document-order key sequence from the most
// recent RebuildDFSOrder call.
func (rc *RangeCache) DFSOrder() []NodeKey { return rc.dfsOrder }

// Delete removes key's cached item.
func (rc *RangeCache) Delete(key NodeKey) {
	if it, ok := rc.items[key]; ok {
		rc.present.Clear(uint(it.NodeIndex))
	}
	delete(rc.items, key)
}

// Len returns the number of cached items.
func (rc *RangeCache) Len() int { return len(rc.items) }

// LiveIndexCount returns the number of NodeIndex values currently
// marked present. Consistency requires this equal Len(): every cached
// item owns exactly one set bit and every set bit backs exactly one
// item.
func (rc *RangeCache) LiveIndexCount() int { return rc.present.Count() }

// OrphanedLiveIndexes walks the present bitset's set bits (via its
// range-over-func iterator) and returns those not claimed by any
// current item — the diagnostic a LiveIndexCount/Len mismatch can't
// explain on its own (spec invariant "range-cache totality").
func (rc *RangeCache) OrphanedLiveIndexes() []int {
	claimed := make(map[int]struct{}, len(rc.items))
	for _, it := range rc.items {
		claimed[it.NodeIndex] = struct{}{}
	}
	var orphans []int
	for idx := range rc.present.All() {
		if _, ok := claimed[int(idx)]; !ok {
			orphans = append(orphans, int(idx))
		}
	}
	return orphans
}

// AddDelta records a pending location shift of delta for every node at
// dfsPosition or later (spec §4.4, the Fenwick lazy-location
// protocol): `add(dfs_position_of_edited_node, length_delta)`.
func (rc *RangeCache) AddDelta(dfsPosition int, delta int64) {
	if dfsPosition <= 0 {
		return
	}
	if dfsPosition > rc.fenwick.Size() {
		rc.fenwick.Grow(dfsPosition)
	}
	rc.fenwick.Add(dfsPosition, delta)
}

// ActualLocation returns location + prefix_sum(min(dfs_position,
// tree_size)) — the absolute position callers must use instead of the
// item's raw Location while deltas are pending.
func (rc *RangeCache) ActualLocation(key NodeKey) (int, bool) {
	it, ok := rc.items[key]
	if !ok {
		return 0, false
	}
	return it.Location + int(rc.fenwick.PrefixSum(it.DFSPosition)), true
}

// RebuildDFSOrder materializes a fresh DFS order over the tree rooted
// at root, assigns DFSPosition (1-based) to every visited node's
// cached item, and resets the Fenwick tree to all-zero deltas — the
// "materialize deltas into base location fields before rebuilding"
// step structural changes require (spec invariant 8).
func RebuildDFSOrder(state *EditorState, cache *RangeCache) {
	order := make([]NodeKey, 0, len(cache.items))
	var visit func(key NodeKey)
	visit = func(key NodeKey) {
		order = append(order, key)
		n, ok := state.nodes.Get(key)
		if !ok {
			return
		}
		for _, child := range GetChildren(n) {
			visit(child)
		}
	}
	visit(RootKey)

	cache.dfsOrder = order
	for i, key := range order {
		if it, ok := cache.items[key]; ok {
			if actual, ok2 := cache.ActualLocation(key); ok2 {
				it.Location = actual
			}
			it.DFSPosition = i + 1
		}
	}
	cache.fenwick.ResetSized(len(order))
}

// PointAtStringLocation resolves a rendered-buffer location to a
// Point by walking the tree from root, binary-searching each
// element's children by cached range (spec §4.3). affinity breaks
// ties when loc sits exactly on a child boundary. Every position
// comparison goes through ActualLocation rather than an item's raw
// Location, so a search issued while a text-only reconcile still has
// pending Fenwick deltas resolves against the same absolute
// coordinates the host's loc is expressed in.
func (rc *RangeCache) PointAtStringLocation(state *EditorState, loc int, affinity Affinity) (Point, error) {
	key := RootKey
	for {
		n, ok := state.nodes.Get(key)
		if !ok {
			return Point{}, newRangeCacheSearchError("node %q missing while resolving location %d", key, loc)
		}
		itemLoc, ok := rc.ActualLocation(key)
		if !ok {
			return Point{}, newRangeCacheSearchError("no range cache entry for %q", key)
		}

		e, isElement := n.(Elemental)
		if !isElement {
			tn, isText := n.(*TextNode)
			if !isText {
				return Point{}, newRangeCacheSearchError("node %q is neither Elemental nor TextNode", key)
			}
			off := loc - itemLoc
			if off < 0 {
				off = 0
			}
			if off > tn.TextLength() {
				off = tn.TextLength()
			}
			return Point{Key: key, Offset: off, Kind: PointText}, nil
		}

		children := e.Children()
		item := rc.items[key]
		relLoc := loc - itemLoc - item.PreambleLength
		if relLoc <= 0 {
			return Point{Key: key, Offset: 0, Kind: PointElement}, nil
		}
		if relLoc >= item.ChildrenLength {
			if len(children) == 0 {
				return Point{Key: key, Offset: 0, Kind: PointElement}, nil
			}
			return Point{Key: key, Offset: len(children), Kind: PointElement}, nil
		}

		idx := sort.Search(len(children), func(i int) bool {
			ciLoc, ok := rc.ActualLocation(children[i])
			if !ok {
				return false
			}
			ci := rc.items[children[i]]
			return ciLoc-itemLoc-item.PreambleLength+ci.Length() > relLoc
		})
		if idx >= len(children) {
			idx = len(children) - 1
		}
		childKey := children[idx]
		childLoc, ok := rc.ActualLocation(childKey)
		if !ok {
			return Point{}, newRangeCacheSearchError("no range cache entry for child %q", childKey)
		}
		childRelStart := childLoc - itemLoc - item.PreambleLength

		if relLoc == childRelStart && idx > 0 && affinity == AffinityBackward {
			idx--
			childKey = children[idx]
			childLoc, ok = rc.ActualLocation(childKey)
			if !ok {
				return Point{}, newRangeCacheSearchError("no range cache entry for child %q", childKey)
			}
			childRelStart = childLoc - itemLoc - item.PreambleLength
		}

		key = childKey
	}
}

// ApplySelectionRange implements apply_selection_range(native_range,
// affinity) (spec §4.3): resolves a host-reported native (location,
// length) pair into anchor/focus Points via the Range Cache and
// installs them as the pending state's selection. A zero length
// resolves a collapsed caret; a negative length reverses anchor and
// focus (focus precedes anchor).
func ApplySelectionRange(ctx *UpdateContext, cache *RangeCache, location, length int, affinity Affinity) error {
	state := ctx.State()
	anchor, err := cache.PointAtStringLocation(state, location, affinity)
	if err != nil {
		return err
	}
	focus := anchor
	if length != 0 {
		focus, err = cache.PointAtStringLocation(state, location+length, affinity)
		if err != nil {
			return err
		}
	}
	ctx.SetSelection(NewRangeSelection(anchor, focus))
	return nil
}
