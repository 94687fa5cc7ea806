package editorcore

// normalizeDirtyTextNodes implements spec §4.8 phase 4, "Normalize":
// every text node MarkDirty touched this transaction that is simple
// (ModeNormal) and sits next to a sibling sharing its format, style,
// and mode is merged into that sibling, leaving exactly one node in
// its place (spec §4.1 normalize(text_node)). Runs once, between the
// user closure and the transform fixpoint, so transforms never see
// the split-node artifacts of the edit that produced them.
func (e *Editor) normalizeDirtyTextNodes(ctx *UpdateContext) {
	keys := make([]NodeKey, 0, len(ctx.dirty))
	for k := range ctx.dirty {
		keys = append(keys, k)
	}
	for _, key := range keys {
		normalizeTextNode(ctx, key)
	}
}

// normalizeTextNode, if key is still a live simple text node, merges a
// mergeable next sibling into key and then merges key into a
// mergeable previous sibling, collapsing a run of same-format splits
// in one pass.
func normalizeTextNode(ctx *UpdateContext, key NodeKey) {
	state := ctx.State()
	n, ok := state.GetNode(key)
	if !ok {
		return
	}
	tn, ok := n.(*TextNode)
	if !ok || tn.Mode() != ModeNormal {
		return
	}
	parentKey, hasParent := tn.Parent()
	if !hasParent {
		return
	}
	parent, ok := state.GetNode(parentKey)
	if !ok {
		return
	}
	pe, ok := parent.(Elemental)
	if !ok {
		return
	}

	children := pe.Children()
	idx, found := indexOf(children, key)
	if !found {
		return
	}
	if idx+1 < len(children) {
		if mergeTextSiblings(ctx, parentKey, key, children[idx+1]) {
			children = pe.Children()
			idx, found = indexOf(children, key)
			if !found {
				return
			}
		}
	}
	if idx > 0 {
		mergeTextSiblings(ctx, parentKey, children[idx-1], key)
	}
}

// mergeTextSiblings merges fromKey's text onto the end of intoKey and
// removes fromKey from parentKey's children, provided both are simple
// text nodes sharing format, style, and mode. A selection Point
// resting in fromKey is reprojected onto intoKey at its new offset.
// Reports whether a merge happened.
func mergeTextSiblings(ctx *UpdateContext, parentKey, intoKey, fromKey NodeKey) bool {
	state := ctx.State()
	intoNode, ok := state.GetNode(intoKey)
	if !ok {
		return false
	}
	fromNode, ok := state.GetNode(fromKey)
	if !ok {
		return false
	}
	into, ok := intoNode.(*TextNode)
	if !ok {
		return false
	}
	from, ok := fromNode.(*TextNode)
	if !ok {
		return false
	}
	if !mergeableTextNodes(into, from) {
		return false
	}

	intoLen := into.TextLength()
	reproject := func(p Point) (Point, bool) {
		if p.Key != fromKey || p.Kind != PointText {
			return p, false
		}
		return Point{Key: intoKey, Offset: intoLen + p.Offset, Kind: PointText}, true
	}
	sel, selIsRange := state.Selection().(*RangeSelection)

	mutatedInto, _ := ctx.MutateNode(intoKey)
	mutatedInto.(*TextNode).SetText(into.Text() + from.Text())

	if parent, ok := ctx.MutateNode(parentKey); ok {
		pe := parent.(Elemental)
		children := pe.Children()
		if fromIdx, found := indexOf(children, fromKey); found {
			pe.setChildren(append(append([]NodeKey{}, children[:fromIdx]...), children[fromIdx+1:]...))
		}
	}
	state.nodes.Delete(fromKey)
	ctx.MarkDirty(fromKey)

	if selIsRange {
		newAnchor, anchorMoved := reproject(sel.Anchor)
		newFocus, focusMoved := reproject(sel.Focus)
		if anchorMoved || focusMoved {
			ctx.SetSelection(NewRangeSelection(newAnchor, newFocus))
		}
	}
	return true
}

// mergeableTextNodes reports whether a and b are both simple, and
// share the identity that makes concatenating them lossless: format,
// style, and mode.
func mergeableTextNodes(a, b *TextNode) bool {
	return a.Mode() == ModeNormal && b.Mode() == ModeNormal &&
		a.Format() == b.Format() && a.Style() == b.Style()
}
