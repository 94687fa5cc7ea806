package editorcore

// newSingleParagraphEditor builds an Editor backed by a NopHost whose
// document is one paragraph containing one text node, and returns the
// editor plus the paragraph's and text node's keys for tests to anchor
// selections on.
func newSingleParagraphEditor(text string) (*Editor, NodeKey, NodeKey) {
	host := NewNopHost()
	e := NewEditor(host)

	var paraKey, textKey NodeKey
	err := e.Update(func(ctx *UpdateContext) error {
		state := ctx.State()
		root, _ := ctx.MutateNode(RootKey)
		re := root.(*RootNode)

		para := NewParagraphNode()
		para.setKey(mintNodeKey())
		para.setParent(RootKey, true)
		state.nodes.Set(para)
		ctx.MarkDirty(para.Key())

		tn := NewTextNode(text)
		tn.setKey(mintNodeKey())
		tn.setParent(para.Key(), true)
		state.nodes.Set(tn)
		ctx.MarkDirty(tn.Key())

		para.setChildren([]NodeKey{tn.Key()})
		re.setChildren([]NodeKey{para.Key()})

		paraKey, textKey = para.Key(), tn.Key()
		point := Point{Key: tn.Key(), Offset: 0, Kind: PointText}
		ctx.SetSelection(NewRangeSelection(point, point))
		return nil
	}, UpdateOptions{})
	if err != nil {
		panic(err)
	}
	return e, paraKey, textKey
}

// newEmptyParagraphEditor builds an Editor backed by a NopHost whose
// document is one childless paragraph, with a collapsed element-point
// caret at offset 0 — the caret shape an empty block actually has,
// exercised by the insert_text element-point seed scenario.
func newEmptyParagraphEditor() (*Editor, NodeKey) {
	host := NewNopHost()
	e := NewEditor(host)

	var paraKey NodeKey
	err := e.Update(func(ctx *UpdateContext) error {
		state := ctx.State()
		root, _ := ctx.MutateNode(RootKey)
		re := root.(*RootNode)

		para := NewParagraphNode()
		para.setKey(mintNodeKey())
		para.setParent(RootKey, true)
		state.nodes.Set(para)
		ctx.MarkDirty(para.Key())

		re.setChildren([]NodeKey{para.Key()})
		paraKey = para.Key()

		point := Point{Key: para.Key(), Offset: 0, Kind: PointElement}
		ctx.SetSelection(NewRangeSelection(point, point))
		return nil
	}, UpdateOptions{})
	if err != nil {
		panic(err)
	}
	return e, paraKey
}
