package editorcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatesEqualIdenticalTrees(t *testing.T) {
	a := buildTwoParagraphState()
	b := buildTwoParagraphState()
	assert.True(t, StatesEqual(a, b), "structurally identical states should compare equal")
}

func TestStatesEqualDetectsTextDifference(t *testing.T) {
	a := buildTwoParagraphState()
	b := buildTwoParagraphState()
	tn, _ := b.nodes.Mutate("t1")
	tn.(*TextNode).SetText("changed")
	assert.False(t, StatesEqual(a, b), "differing text content should not compare equal")
}

func TestStatesEqualDetectsStructuralDifference(t *testing.T) {
	a := buildTwoParagraphState()
	b := buildTwoParagraphState()
	root, _ := b.nodes.Mutate(RootKey)
	root.(*RootNode).setChildren([]NodeKey{"p1"})
	assert.False(t, StatesEqual(a, b), "a missing child (p2) should not compare equal")
}

func TestStatesEqualIgnoresSelection(t *testing.T) {
	a := buildTwoParagraphState()
	b := buildTwoParagraphState()
	p := Point{Key: "t1", Offset: 2, Kind: PointText}
	b.SetSelection(NewRangeSelection(p, p))
	assert.True(t, StatesEqual(a, b), "differing selection alone should still compare equal")
}
