package editorcore

import "testing"

func TestRangeSelectionIsCollapsed(t *testing.T) {
	p := Point{Key: "t1", Offset: 3, Kind: PointText}
	sel := NewRangeSelection(p, p)
	if !sel.IsCollapsed() {
		t.Fatalf("equal anchor/focus should be collapsed")
	}
	sel.Focus.Offset = 5
	if sel.IsCollapsed() {
		t.Fatalf("differing anchor/focus should not be collapsed")
	}
}

func TestNodeSelectionAddRemoveHas(t *testing.T) {
	sel := NewNodeSelection("a", "b")
	if !sel.Has("a") || !sel.Has("b") {
		t.Fatalf("constructor keys missing")
	}
	sel.Add("c")
	if !sel.Has("c") {
		t.Fatalf("Add did not stick")
	}
	sel.Remove("a")
	if sel.Has("a") {
		t.Fatalf("Remove did not stick")
	}
}

func TestSelectionCloneIndependence(t *testing.T) {
	sel := NewNodeSelection("a")
	var s Selection = sel
	clone := s.clone().(*NodeSelection)
	clone.Add("b")
	if sel.Has("b") {
		t.Fatalf("clone mutation leaked into original")
	}
}

func TestGridSelectionClonesOpaque(t *testing.T) {
	g := &GridSelection{GridKey: "grid1", Opaque: map[string]any{"cells": 4}}
	clone := g.clone().(*GridSelection)
	clone.Opaque["cells"] = 9
	if g.Opaque["cells"] != 4 {
		t.Fatalf("opaque map shared between original and clone")
	}
}
