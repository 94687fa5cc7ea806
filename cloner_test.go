package editorcore

import "testing"

// customClonedNode implements Cloner with a sentinel field change so a
// test can distinguish CloneNode from the default struct copy.
type customClonedNode struct {
	*TextNode
	clonedVia string
}

func (n *customClonedNode) CloneNode() Node {
	return &customClonedNode{TextNode: n.TextNode.clone().(*TextNode), clonedVia: "custom"}
}

func TestNodeMapMutateUsesClonerWhenImplemented(t *testing.T) {
	base := NewTextNode("x")
	base.setKey("c1")
	wrapped := &customClonedNode{TextNode: base, clonedVia: "none"}

	m := NewNodeMap()
	m.Set(wrapped)
	clone := m.Clone()

	mutated, ok := clone.Mutate("c1")
	if !ok {
		t.Fatalf("Mutate(c1) failed")
	}
	cc, ok := mutated.(*customClonedNode)
	if !ok {
		t.Fatalf("mutated node lost its concrete type: %T", mutated)
	}
	if cc.clonedVia != "custom" {
		t.Fatalf("clonedVia = %q, want custom (CloneNode should have been used)", cc.clonedVia)
	}
}
