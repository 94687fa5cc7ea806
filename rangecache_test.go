package editorcore

import "testing"

func buildTwoParagraphState() *EditorState {
	s := NewEditorState()
	root, _ := s.nodes.Mutate(RootKey)

	p1 := NewParagraphNode()
	p1.setKey("p1")
	p1.setParent(RootKey, true)
	t1 := NewTextNode("hello")
	t1.setKey("t1")
	t1.setParent("p1", true)
	p1.setChildren([]NodeKey{"t1"})
	s.nodes.Set(p1)
	s.nodes.Set(t1)

	p2 := NewParagraphNode()
	p2.setKey("p2")
	p2.setParent(RootKey, true)
	t2 := NewTextNode("world")
	t2.setKey("t2")
	t2.setParent("p2", true)
	p2.setChildren([]NodeKey{"t2"})
	s.nodes.Set(p2)
	s.nodes.Set(t2)

	root.(*RootNode).setChildren([]NodeKey{"p1", "p2"})
	return s
}

func TestRebuildRangeCacheAndDFSOrder(t *testing.T) {
	s := buildTwoParagraphState()
	cache := NewRangeCache()
	RebuildRangeCacheEntries(s, cache)
	RebuildDFSOrder(s, cache)

	order := cache.DFSOrder()
	if len(order) == 0 || order[0] != RootKey {
		t.Fatalf("DFS order should start at root, got %v", order)
	}
	if cache.Len() != cache.LiveIndexCount() {
		t.Fatalf("Len()=%d != LiveIndexCount()=%d", cache.Len(), cache.LiveIndexCount())
	}

	item, ok := cache.Get("t2")
	if !ok {
		t.Fatalf("missing cache entry for t2")
	}
	// "hello" (5) + "\n" (1) + "world" (5) = 11; t2 starts after p1's
	// whole 6-rune contribution.
	if item.Location != 6 {
		t.Fatalf("t2 Location = %d, want 6", item.Location)
	}
}

func TestRangeCacheAddDeltaShiftsActualLocation(t *testing.T) {
	s := buildTwoParagraphState()
	cache := NewRangeCache()
	RebuildRangeCacheEntries(s, cache)
	RebuildDFSOrder(s, cache)

	t2Item, _ := cache.Get("t2")
	before, _ := cache.ActualLocation("t2")

	cache.AddDelta(1, 3) // shift everything from root's DFS position onward
	after, _ := cache.ActualLocation("t2")
	if after != before+3 {
		t.Fatalf("ActualLocation after delta = %d, want %d", after, before+3)
	}
	_ = t2Item
}

func TestPointAtStringLocation(t *testing.T) {
	s := buildTwoParagraphState()
	cache := NewRangeCache()
	RebuildRangeCacheEntries(s, cache)
	RebuildDFSOrder(s, cache)

	p, err := cache.PointAtStringLocation(s, 7, AffinityForward)
	if err != nil {
		t.Fatalf("PointAtStringLocation error: %v", err)
	}
	if p.Key != "t2" || p.Kind != PointText {
		t.Fatalf("PointAtStringLocation(7) = %+v, want text point in t2", p)
	}
	if p.Offset != 1 {
		t.Fatalf("offset = %d, want 1 ('w' consumed, caret after 'o'-1)", p.Offset)
	}
}

func TestPointAtStringLocationUsesActualLocationWithPendingDelta(t *testing.T) {
	s := buildTwoParagraphState()
	cache := NewRangeCache()
	RebuildRangeCacheEntries(s, cache)
	RebuildDFSOrder(s, cache)

	// Simulate a text-only reconcile having grown t1's text by 2 runes
	// without a full range-cache rebuild (the same AddDelta call
	// textOnlyReconcile makes): everything from t1's DFS position
	// onward, including p2 and t2, owes +2 to its raw Location.
	t1Item, _ := cache.Get("t1")
	cache.AddDelta(t1Item.DFSPosition, 2)

	// Location 9 in the shifted buffer ("helloXX\nworld") lands one
	// rune into "world" (after the 8-rune preamble "helloXX\n").
	p, err := cache.PointAtStringLocation(s, 9, AffinityForward)
	if err != nil {
		t.Fatalf("PointAtStringLocation error: %v", err)
	}
	if p.Key != "t2" || p.Kind != PointText || p.Offset != 1 {
		t.Fatalf("PointAtStringLocation(9) with pending delta = %+v, want {t2 1 PointText}", p)
	}
}

func TestApplySelectionRangeResolvesCollapsedCaret(t *testing.T) {
	e, _, textKey := newSingleParagraphEditor("hello")
	err := e.Update(func(ctx *UpdateContext) error {
		return ApplySelectionRange(ctx, e.rangeCache, 2, 0, AffinityForward)
	}, UpdateOptions{})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	sel := e.GetEditorState().Selection().(*RangeSelection)
	want := Point{Key: textKey, Offset: 2, Kind: PointText}
	if sel.Anchor != want || sel.Focus != want {
		t.Fatalf("selection = %+v, want collapsed caret %+v", sel.Anchor, want)
	}
}

func TestApplySelectionRangeResolvesNonCollapsedRange(t *testing.T) {
	e, _, textKey := newSingleParagraphEditor("hello")
	err := e.Update(func(ctx *UpdateContext) error {
		return ApplySelectionRange(ctx, e.rangeCache, 1, 3, AffinityForward)
	}, UpdateOptions{})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	sel := e.GetEditorState().Selection().(*RangeSelection)
	wantAnchor := Point{Key: textKey, Offset: 1, Kind: PointText}
	wantFocus := Point{Key: textKey, Offset: 4, Kind: PointText}
	if sel.Anchor != wantAnchor || sel.Focus != wantFocus {
		t.Fatalf("selection = %+v/%+v, want %+v/%+v", sel.Anchor, sel.Focus, wantAnchor, wantFocus)
	}
}

func TestRangeCacheOrphanedLiveIndexesEmptyWhenConsistent(t *testing.T) {
	s := buildTwoParagraphState()
	cache := NewRangeCache()
	RebuildRangeCacheEntries(s, cache)
	if orphans := cache.OrphanedLiveIndexes(); len(orphans) != 0 {
		t.Fatalf("expected no orphaned indexes, got %v", orphans)
	}
}

func TestRangeCacheDeleteClearsPresence(t *testing.T) {
	cache := NewRangeCache()
	item := cache.Put("k1", RangeCacheItem{Location: 0, TextLength: 3})
	if cache.LiveIndexCount() != 1 {
		t.Fatalf("expected 1 live index after Put")
	}
	cache.Delete("k1")
	if cache.LiveIndexCount() != 0 {
		t.Fatalf("expected 0 live indexes after Delete")
	}
	_ = item
}
