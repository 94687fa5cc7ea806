package editorcore

import (
	"strings"

	"github.com/corelex/editorcore/internal/reconcile"
	"github.com/corelex/editorcore/internal/rope"
)

// rebuildDocumentText concatenates every node's preamble + children +
// text + postamble in document order (spec §6.4): the ground truth
// the sanity check (update.go) and the full-rebuild strategy compare
// against.
func rebuildDocumentText(state *EditorState) string {
	var b strings.Builder
	writeNodeText(&b, state, RootKey)
	return b.String()
}

func writeNodeText(b *strings.Builder, state *EditorState, key NodeKey) {
	n, ok := state.GetNode(key)
	if !ok {
		return
	}
	switch v := n.(type) {
	case *RootNode:
		for _, c := range v.Children() {
			writeNodeText(b, state, c)
		}
	case *ElementNode:
		b.WriteString(v.Preamble())
		for _, c := range v.Children() {
			writeNodeText(b, state, c)
		}
		b.WriteString(v.Postamble())
	case *TextNode:
		b.WriteString(v.Text())
	case *DecoratorNode:
		b.WriteRune('￼') // object replacement character: one slot, opaque
	case *PlaceholderNode, *LineBreakNode:
		// Zero-width structural markers contribute no text of their own
		// beyond what their containing element's pre/postamble already
		// accounts for.
	}
}

// reconcileInputFromStates builds a reconcile.Input by diffing prev
// and next over the keys touched this transaction (spec §4.5 "Input
// classification").
func reconcileInputFromStates(prev, next *EditorState, dirty map[NodeKey]struct{}) reconcile.Input {
	in := reconcile.Input{
		DocLengthPrev: documentLength(prev),
		DocLengthNext: documentLength(next),
		PrevEmpty:     documentLength(prev) == 0,
		NextEmpty:     documentLength(next) == 0,
	}
	for key := range dirty {
		prevNode, inPrev := prev.GetNode(key)
		nextNode, inNext := next.GetNode(key)
		switch {
		case !inPrev && inNext:
			in.Diffs = append(in.Diffs, reconcile.NodeDiff{
				Key: string(key), ParentKey: string(parentOf(nextNode)),
				Kind: reconcile.DiffInsert, IsTextNode: isTextNode(nextNode),
			})
		case inPrev && !inNext:
			in.Diffs = append(in.Diffs, reconcile.NodeDiff{
				Key: string(key), ParentKey: string(parentOf(prevNode)),
				Kind: reconcile.DiffRemove, IsTextNode: isTextNode(prevNode),
			})
		case inPrev && inNext:
			in.Diffs = append(in.Diffs, reconcile.NodeDiff{
				Key: string(key), ParentKey: string(parentOf(nextNode)),
				Kind: reconcile.DiffUpdate, IsTextNode: isTextNode(nextNode),
			})
		}
	}
	return in
}

func parentOf(n Node) NodeKey {
	if n == nil {
		return ""
	}
	p, ok := n.Parent()
	if !ok {
		return ""
	}
	return p
}

func isTextNode(n Node) bool {
	_, ok := n.(*TextNode)
	return ok
}

func documentLength(state *EditorState) int {
	return len([]rune(rebuildDocumentText(state)))
}

// applyReconcilePlan issues the Attributed Store edits the chosen
// strategy calls for, then rebuilds whatever range-cache entries it
// touched.
func (e *Editor) applyReconcilePlan(store *rope.Store, plan reconcile.Plan, prev, next *EditorState) error {
	switch plan.Strategy {
	case reconcile.StrategyFullRebuild, reconcile.StrategyHydration:
		return e.fullRebuild(store, next)
	case reconcile.StrategySelectionOnly:
		return nil
	case reconcile.StrategyTextOnly:
		return e.textOnlyReconcile(store, prev, next, plan.Diffs)
	default:
		// Bulk insert/remove and the fully generic case share one
		// correct, if not maximally optimized, incremental path: each
		// touched node's contribution is recomputed and the store
		// patched at its current absolute location.
		return e.genericIncremental(store, prev, next, plan.Diffs)
	}
}

func (e *Editor) fullRebuild(store *rope.Store, next *EditorState) error {
	store.Clear()
	text := rebuildDocumentText(next)
	store.Insert(0, rope.Chunk{Text: text})
	e.rangeCache = NewRangeCache()
	RebuildRangeCacheEntries(next, e.rangeCache)
	RebuildDFSOrder(next, e.rangeCache)
	return nil
}

// RebuildRangeCacheEntries walks next's tree and installs a
// RangeCacheItem per node reflecting its contribution to the rendered
// buffer, in document order.
func RebuildRangeCacheEntries(state *EditorState, cache *RangeCache) int {
	loc := 0
	var visit func(key NodeKey) int
	visit = func(key NodeKey) int {
		n, ok := state.GetNode(key)
		if !ok {
			return 0
		}
		start := loc
		switch v := n.(type) {
		case *RootNode:
			childrenLen := 0
			for _, c := range v.Children() {
				childrenLen += visit(c)
			}
			item := RangeCacheItem{Location: start, ChildrenLength: childrenLen}
			cache.Put(key, item)
			return item.Length()
		case *ElementNode:
			preLen := len([]rune(v.Preamble()))
			loc += preLen
			childrenLen := 0
			for _, c := range v.Children() {
				childrenLen += visit(c)
			}
			postLen := len([]rune(v.Postamble()))
			loc += postLen
			item := RangeCacheItem{
				Location:                        start,
				PreambleLength:                  preLen,
				PreambleSpecialCharacterLength:  v.PreambleSpecialLen(),
				ChildrenLength:                  childrenLen,
				PostambleLength:                 postLen,
			}
			cache.Put(key, item)
			return item.Length()
		case *TextNode:
			tl := v.TextLength()
			loc += tl
			item := RangeCacheItem{Location: start, TextLength: tl}
			cache.Put(key, item)
			return item.Length()
		case *DecoratorNode:
			loc += 1
			item := RangeCacheItem{Location: start, TextLength: 1}
			cache.Put(key, item)
			return 1
		default:
			item := RangeCacheItem{Location: start}
			cache.Put(key, item)
			return 0
		}
	}
	visit(RootKey)
	return loc
}

// textOnlyReconcile implements the Fenwick-lazy text-only path (spec
// §4.5): only the edited nodes' own text is replaced in the store;
// every ancestor's children_length is adjusted and a single Fenwick
// delta records the shift for everything at or after the edited
// node's DFS position.
func (e *Editor) textOnlyReconcile(store *rope.Store, prev, next *EditorState, diffs []reconcile.NodeDiff) error {
	for _, d := range diffs {
		key := NodeKey(d.Key)
		prevItem, ok := e.rangeCache.Get(key)
		if !ok {
			return e.genericIncremental(store, prev, next, diffs)
		}
		nextNode, ok := next.GetNode(key)
		if !ok {
			continue
		}
		tn, ok := nextNode.(*TextNode)
		if !ok {
			continue
		}
		newLen := tn.TextLength()
		delta := newLen - prevItem.TextLength

		loc, ok := e.rangeCache.ActualLocation(key)
		if !ok {
			loc = prevItem.Location
		}
		store.Replace(loc, loc+prevItem.TextLength, rope.Chunk{Text: tn.Text(), NodeKey: string(key)})

		prevItem.TextLength = newLen
		propagateChildrenLengthDelta(next, e.rangeCache, key, delta)
		e.rangeCache.AddDelta(prevItem.DFSPosition, int64(delta))
	}
	return nil
}

func propagateChildrenLengthDelta(state *EditorState, cache *RangeCache, key NodeKey, delta int) {
	n, ok := state.GetNode(key)
	if !ok {
		return
	}
	parentKey, hasParent := n.Parent()
	for hasParent {
		item, ok := cache.Get(parentKey)
		if !ok {
			return
		}
		item.ChildrenLength += delta
		pn, ok := state.GetNode(parentKey)
		if !ok {
			return
		}
		parentKey, hasParent = pn.Parent()
	}
}

// genericIncremental re-derives the rendered text of the affected
// parent and patches the store with one replace of that parent's
// range; when more than one parent is touched it replaces the whole
// document from the root instead, so no replace runs at a location a
// previous replace has already shifted. It then rebuilds the range
// cache. It is correctness-first: bulk insert/remove reuse it rather
// than each getting its own single-chunk fast path.
func (e *Editor) genericIncremental(store *rope.Store, prev, next *EditorState, diffs []reconcile.NodeDiff) error {
	touchedParents := map[NodeKey]struct{}{}
	for _, d := range diffs {
		if d.ParentKey != "" {
			touchedParents[NodeKey(d.ParentKey)] = struct{}{}
		} else {
			touchedParents[RootKey] = struct{}{}
		}
	}
	if len(touchedParents) > 1 {
		touchedParents = map[NodeKey]struct{}{RootKey: {}}
	}

	for parent := range touchedParents {
		prevItem, hadPrev := e.rangeCache.Get(parent)
		var start, oldLen int
		if hadPrev {
			start, _ = e.rangeCache.ActualLocation(parent)
			oldLen = prevItem.Length()
		}

		var b strings.Builder
		writeNodeText(&b, next, parent)
		newText := b.String()

		if hadPrev {
			store.Replace(start, start+oldLen, rope.Chunk{Text: newText, NodeKey: string(parent)})
		} else {
			store.Insert(start, rope.Chunk{Text: newText, NodeKey: string(parent)})
		}
	}

	// A structural change materializes pending deltas and invalidates
	// DFS order (spec invariant 8); the simplest correct response is a
	// full range-cache recompute from the now-consistent store.
	e.rangeCache = NewRangeCache()
	RebuildRangeCacheEntries(next, e.rangeCache)
	RebuildDFSOrder(next, e.rangeCache)
	return nil
}
