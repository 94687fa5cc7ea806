package editorcore

import "testing"

func TestNewEditorStateHasEmptyRoot(t *testing.T) {
	s := NewEditorState()
	root := s.Root()
	if len(root.Children()) != 0 {
		t.Fatalf("fresh state root has children: %v", root.Children())
	}
	if s.Version() != 0 {
		t.Fatalf("fresh state version = %d, want 0", s.Version())
	}
}

func TestEditorStateCloneIsIndependent(t *testing.T) {
	s := NewEditorState()
	clone := s.Clone()

	para := NewParagraphNode()
	para.setKey("p1")
	para.setParent(RootKey, true)
	clone.nodes.Set(para)
	root, _ := clone.nodes.Mutate(RootKey)
	root.(*RootNode).setChildren([]NodeKey{"p1"})

	if len(s.Root().Children()) != 0 {
		t.Fatalf("original state mutated by clone's edit")
	}
	if len(clone.Root().Children()) != 1 {
		t.Fatalf("clone missing its own edit")
	}
}

func TestEditorStateSelection(t *testing.T) {
	s := NewEditorState()
	if s.Selection() != nil {
		t.Fatalf("fresh state has a selection")
	}
	p := Point{Key: RootKey, Offset: 0, Kind: PointElement}
	sel := NewRangeSelection(p, p)
	s.SetSelection(sel)
	if s.Selection() != Selection(sel) {
		t.Fatalf("SetSelection did not stick")
	}
}
