package editorcore

import "reflect"

// StatesEqual reports whether a and b's node trees are structurally
// identical: same node keys in the same positions with equal field
// values. Selections are not compared — two states reached via
// different navigation histories can be "the same document" with
// different carets.
func StatesEqual(a, b *EditorState) bool {
	return nodesEqual(a, a.Root().Key(), b, b.Root().Key())
}

func nodesEqual(a *EditorState, ak NodeKey, b *EditorState, bk NodeKey) bool {
	an, aok := a.GetNode(ak)
	bn, bok := b.GetNode(bk)
	if aok != bok {
		return false
	}
	if !aok {
		return true
	}
	if an.Key() != bn.Key() || an.Kind() != bn.Kind() || an.Type() != bn.Type() {
		return false
	}

	switch av := an.(type) {
	case *DecoratorNode:
		bv := bn.(*DecoratorNode)
		if !payloadsEqual(av.Payload(), bv.Payload()) {
			return false
		}
	case *TextNode:
		bv := bn.(*TextNode)
		if av.Text() != bv.Text() || av.Format() != bv.Format() || av.Style() != bv.Style() || av.Mode() != bv.Mode() {
			return false
		}
	default:
		if !reflect.DeepEqual(stripChildren(an), stripChildren(bn)) {
			return false
		}
	}

	ac := GetChildren(an)
	bc := GetChildren(bn)
	if len(ac) != len(bc) {
		return false
	}
	for i := range ac {
		if !nodesEqual(a, ac[i], b, bc[i]) {
			return false
		}
	}
	return true
}

// stripChildren returns a shallow copy of an Elemental node with its
// children slice cleared, so reflect.DeepEqual only compares the
// node's own scalar fields — children are compared recursively by key
// in nodesEqual instead.
func stripChildren(n Node) Node {
	e, ok := n.(Elemental)
	if !ok {
		return n
	}
	c := e.clone().(Elemental)
	c.setChildren(nil)
	return c
}
