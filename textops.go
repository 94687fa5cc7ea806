package editorcore

import "unicode"

// InsertText implements RangeSelection.insert_text (spec §4.3): at a
// collapsed caret inside a TextNode, splices s into its content at the
// caret offset. An element-kind caret (the shape an empty block's
// caret has) is delegated to insertTextAtElementPoint. This covers
// the common typing path every higher-level command (insert_text,
// paste, IME commit) funnels through.
func InsertText(ctx *UpdateContext, sel *RangeSelection, s string) error {
	if !sel.IsCollapsed() {
		if err := RemoveText(ctx, sel); err != nil {
			return err
		}
	}
	p := sel.Anchor
	if p.Kind != PointText {
		return insertTextAtElementPoint(ctx, p, s)
	}
	n, ok := ctx.MutateNode(p.Key)
	if !ok {
		return newInvariantViolation("insert_text target %q is detached", p.Key)
	}
	tn, ok := n.(*TextNode)
	if !ok {
		return newInvariantViolation("insert_text target %q is not a text node", p.Key)
	}
	if tn.IsToken() {
		return newInvariantViolation("insert_text cannot split token text node %q", p.Key)
	}

	runes := []rune(tn.Text())
	if p.Offset < 0 || p.Offset > len(runes) {
		return newInvariantViolation("insert_text offset %d out of range for %q (len %d)", p.Offset, p.Key, len(runes))
	}
	inserted := []rune(s)
	merged := make([]rune, 0, len(runes)+len(inserted))
	merged = append(merged, runes[:p.Offset]...)
	merged = append(merged, inserted...)
	merged = append(merged, runes[p.Offset:]...)
	tn.SetText(string(merged))

	newOffset := p.Offset + len(inserted)
	point := Point{Key: p.Key, Offset: newOffset, Kind: PointText}
	ctx.SetSelection(NewRangeSelection(point, point))
	return nil
}

// insertTextAtElementPoint implements insert_text at an element-kind
// caret (spec §8.3 Scenario A): the anchor addresses a child-list
// index rather than a text offset, the case an empty block's caret
// always produces. A fresh TextNode carrying s is spliced into the
// element's children at that index; the same splice also handles a
// caret sitting between two existing children.
func insertTextAtElementPoint(ctx *UpdateContext, p Point, s string) error {
	elNode, ok := ctx.MutateNode(p.Key)
	if !ok {
		return newInvariantViolation("insert_text target %q is detached", p.Key)
	}
	ee, ok := elNode.(Elemental)
	if !ok {
		return newInvariantViolation("insert_text element-point target %q is not Elemental", p.Key)
	}
	children := ee.Children()
	if p.Offset < 0 || p.Offset > len(children) {
		return newInvariantViolation("insert_text offset %d out of range for %q (len %d)", p.Offset, p.Key, len(children))
	}

	tn := NewTextNode(s)
	tn.setKey(mintNodeKey())
	tn.setParent(p.Key, true)
	ctx.State().nodes.Set(tn)
	ctx.MarkDirty(tn.Key())

	newChildren := make([]NodeKey, 0, len(children)+1)
	newChildren = append(newChildren, children[:p.Offset]...)
	newChildren = append(newChildren, tn.Key())
	newChildren = append(newChildren, children[p.Offset:]...)
	ee.setChildren(newChildren)

	point := Point{Key: tn.Key(), Offset: len([]rune(s)), Kind: PointText}
	ctx.SetSelection(NewRangeSelection(point, point))
	return nil
}

// InsertParagraph implements insert_paragraph (spec §4.3): splits the
// nearest block ancestor at the caret, moving trailing content into a
// new sibling of the same block type.
func InsertParagraph(ctx *UpdateContext, sel *RangeSelection) error {
	if !sel.IsCollapsed() {
		if err := RemoveText(ctx, sel); err != nil {
			return err
		}
		sel = ctx.State().Selection().(*RangeSelection)
	}
	p := sel.Anchor
	if p.Kind != PointText {
		return newInvariantViolation("insert_paragraph requires a text-kind caret, got element point at %q", p.Key)
	}

	state := ctx.State()
	textNode, ok := state.GetNode(p.Key)
	if !ok {
		return newInvariantViolation("insert_paragraph target %q is detached", p.Key)
	}
	textParentKey, hasParent := textNode.Parent()
	if !hasParent {
		return newInvariantViolation("text node %q has no parent", p.Key)
	}
	blockKey, ok := nearestBlockAncestor(state, p.Key)
	if !ok {
		return newInvariantViolation("text node %q has no block ancestor", p.Key)
	}
	if textParentKey != blockKey {
		return newInvariantViolation("insert_paragraph requires the caret's text node to be a direct child of its block (inline wrappers not yet supported)")
	}
	block, ok := ctx.MutateNode(blockKey)
	if !ok {
		return newInvariantViolation("block ancestor %q is detached", blockKey)
	}
	be, ok := block.(Elemental)
	if !ok {
		return newInvariantViolation("block ancestor %q is not Elemental", blockKey)
	}

	children := be.Children()
	idx, found := indexOf(children, p.Key)
	if !found {
		return newInvariantViolation("caret's text node %q not found among block %q's children", p.Key, blockKey)
	}

	tn := textNode.(*TextNode)
	runes := []rune(tn.Text())
	before := string(runes[:p.Offset])
	after := string(runes[p.Offset:])

	mutatedText, _ := ctx.MutateNode(p.Key)
	mutatedText.(*TextNode).SetText(before)

	newBlock := cloneBlockShell(block)
	newBlock.setKey(mintNodeKey())
	ctx.State().nodes.Set(newBlock)
	ctx.MarkDirty(newBlock.Key())

	newText := NewTextNode(after)
	newText.setKey(mintNodeKey())
	newText.setParent(newBlock.Key(), true)
	ctx.State().nodes.Set(newText)
	ctx.MarkDirty(newText.Key())

	moved := append([]NodeKey{newText.Key()}, children[idx+1:]...)
	newBlock.(Elemental).setChildren(moved)
	for _, k := range children[idx+1:] {
		if movedNode, ok := ctx.MutateNode(k); ok {
			movedNode.setParent(newBlock.Key(), true)
		}
	}
	be.setChildren(children[:idx+1])

	parentKey, hasParent := block.Parent()
	if !hasParent {
		return newInvariantViolation("block %q has no parent to splice sibling into", blockKey)
	}
	parent, ok := ctx.MutateNode(parentKey)
	if !ok {
		return newInvariantViolation("parent %q of block %q is detached", parentKey, blockKey)
	}
	pe := parent.(Elemental)
	siblings := pe.Children()
	blockPos, _ := indexOf(siblings, blockKey)
	newSiblings := make([]NodeKey, 0, len(siblings)+1)
	newSiblings = append(newSiblings, siblings[:blockPos+1]...)
	newSiblings = append(newSiblings, newBlock.Key())
	newSiblings = append(newSiblings, siblings[blockPos+1:]...)
	pe.setChildren(newSiblings)
	newBlock.setParent(parentKey, true)

	point := Point{Key: newText.Key(), Offset: 0, Kind: PointText}
	ctx.SetSelection(NewRangeSelection(point, point))
	return nil
}

// InsertLineBreak implements insert_line_break: splits the text node
// at the caret and inserts a LineBreakNode between the two halves
// (spec §4.3).
func InsertLineBreak(ctx *UpdateContext, sel *RangeSelection) error {
	if !sel.IsCollapsed() {
		if err := RemoveText(ctx, sel); err != nil {
			return err
		}
		sel = ctx.State().Selection().(*RangeSelection)
	}
	p := sel.Anchor
	if p.Kind != PointText {
		return newInvariantViolation("insert_line_break requires a text-kind caret")
	}
	state := ctx.State()
	n, ok := state.GetNode(p.Key)
	if !ok {
		return newInvariantViolation("insert_line_break target %q is detached", p.Key)
	}
	tn := n.(*TextNode)
	parentKey, hasParent := n.Parent()
	if !hasParent {
		return newInvariantViolation("text node %q has no parent", p.Key)
	}
	parent, ok := ctx.MutateNode(parentKey)
	if !ok {
		return newInvariantViolation("parent %q is detached", parentKey)
	}
	pe := parent.(Elemental)
	children := pe.Children()
	idx, found := indexOf(children, p.Key)
	if !found {
		return newInvariantViolation("text node %q not found among parent %q's children", p.Key, parentKey)
	}

	runes := []rune(tn.Text())
	before := string(runes[:p.Offset])
	after := string(runes[p.Offset:])

	mutated, _ := ctx.MutateNode(p.Key)
	mutated.(*TextNode).SetText(before)

	br := NewLineBreakNode()
	br.setKey(mintNodeKey())
	br.setParent(parentKey, true)
	state.nodes.Set(br)
	ctx.MarkDirty(br.Key())

	afterNode := NewTextNode(after)
	afterNode.setKey(mintNodeKey())
	afterNode.setParent(parentKey, true)
	state.nodes.Set(afterNode)
	ctx.MarkDirty(afterNode.Key())

	newChildren := make([]NodeKey, 0, len(children)+2)
	newChildren = append(newChildren, children[:idx+1]...)
	newChildren = append(newChildren, br.Key(), afterNode.Key())
	newChildren = append(newChildren, children[idx+1:]...)
	pe.setChildren(newChildren)

	point := Point{Key: afterNode.Key(), Offset: 0, Kind: PointText}
	ctx.SetSelection(NewRangeSelection(point, point))
	return nil
}

// RemoveText implements remove_text: deletes all text in sel's range
// (spec §4.3). Only a range whose anchor and focus lie in the same
// text node is handled; a range spanning distinct nodes returns an
// invariant-violation error and leaves the text unchanged.
func RemoveText(ctx *UpdateContext, sel *RangeSelection) error {
	if sel.IsCollapsed() {
		return nil
	}
	a, f := sel.Anchor, sel.Focus
	if a.Key != f.Key || a.Kind != PointText {
		return newInvariantViolation("remove_text across distinct nodes is not yet supported")
	}
	lo, hi := a.Offset, f.Offset
	if lo > hi {
		lo, hi = hi, lo
	}
	n, ok := ctx.MutateNode(a.Key)
	if !ok {
		return newInvariantViolation("remove_text target %q is detached", a.Key)
	}
	tn := n.(*TextNode)
	runes := []rune(tn.Text())
	if hi > len(runes) {
		hi = len(runes)
	}
	tn.SetText(string(runes[:lo]) + string(runes[hi:]))

	point := Point{Key: a.Key, Offset: lo, Kind: PointText}
	ctx.SetSelection(NewRangeSelection(point, point))
	return nil
}

// DeleteCharacter implements delete_character(backwards) for a
// collapsed RangeSelection (spec §4.3): deletes one rune (Unicode code
// point), converting to a NodeSelection first when the caret sits
// adjacent to a decorator. A character built from several code points
// (a base letter with combining marks, an emoji sequence) is not
// deleted as one unit.
func DeleteCharacter(ctx *UpdateContext, backwards bool) error {
	sel, ok := ctx.State().Selection().(*RangeSelection)
	if !ok {
		if ns, ok := ctx.State().Selection().(*NodeSelection); ok {
			return deleteNodeSelection(ctx, ns)
		}
		return newInvariantViolation("delete_character requires a selection")
	}
	if !sel.IsCollapsed() {
		return RemoveText(ctx, sel)
	}

	p := sel.Anchor
	if p.Kind != PointText {
		return newInvariantViolation("delete_character at an element point is not yet supported")
	}
	n, ok := ctx.State().GetNode(p.Key)
	if !ok {
		return newInvariantViolation("delete_character target %q is detached", p.Key)
	}
	tn := n.(*TextNode)
	runes := []rune(tn.Text())

	if backwards && p.Offset == 0 {
		if dk, ok := adjacentDecorator(ctx.State(), p.Key, true); ok {
			ctx.SetSelection(NewNodeSelection(dk))
			return nil
		}
		return mergeWithPreviousBlock(ctx, p.Key)
	}
	if !backwards && p.Offset == len(runes) {
		if dk, ok := adjacentDecorator(ctx.State(), p.Key, false); ok {
			ctx.SetSelection(NewNodeSelection(dk))
			return nil
		}
		return mergeWithNextBlock(ctx, p.Key)
	}

	lo, hi := p.Offset, p.Offset
	if backwards {
		lo--
	} else {
		hi++
	}
	mutated, _ := ctx.MutateNode(p.Key)
	mtn := mutated.(*TextNode)
	newRunes := []rune(mtn.Text())
	mtn.SetText(string(newRunes[:lo]) + string(newRunes[hi:]))

	point := Point{Key: p.Key, Offset: lo, Kind: PointText}
	ctx.SetSelection(NewRangeSelection(point, point))
	return nil
}

func deleteNodeSelection(ctx *UpdateContext, ns *NodeSelection) error {
	var firstParent NodeKey
	var firstIdx int
	first := true
	for key := range ns.Nodes {
		n, ok := ctx.State().GetNode(key)
		if !ok {
			continue
		}
		parentKey, hasParent := n.Parent()
		if !hasParent {
			continue
		}
		parent, ok := ctx.MutateNode(parentKey)
		if !ok {
			continue
		}
		pe := parent.(Elemental)
		children := pe.Children()
		idx, found := indexOf(children, key)
		if !found {
			continue
		}
		if first {
			firstParent, firstIdx, first = parentKey, idx, false
		}
		pe.setChildren(append(append([]NodeKey{}, children[:idx]...), children[idx+1:]...))
		ctx.State().nodes.Delete(key)
		ctx.MarkDirty(key)
	}
	if !first {
		point := Point{Key: firstParent, Offset: firstIdx, Kind: PointElement}
		ctx.SetSelection(NewRangeSelection(point, point))
	}
	return nil
}

// InsertNodes implements insert_nodes(nodes, select_start): splices
// nodes at the caret's containing block, after the current text node
// (spec §4.3). It is a structural splice, so it is intentionally
// simpler than insert_paragraph's split logic — callers needing mid-
// text splicing should split first.
func InsertNodes(ctx *UpdateContext, sel *RangeSelection, nodes []Node, selectStart bool) error {
	p := sel.Anchor
	state := ctx.State()
	anchorNode, ok := state.GetNode(p.Key)
	if !ok {
		return newInvariantViolation("insert_nodes anchor %q is detached", p.Key)
	}
	parentKey, hasParent := anchorNode.Parent()
	if !hasParent {
		return newInvariantViolation("insert_nodes anchor %q has no parent", p.Key)
	}
	parent, ok := ctx.MutateNode(parentKey)
	if !ok {
		return newInvariantViolation("insert_nodes parent %q is detached", parentKey)
	}
	pe := parent.(Elemental)
	children := pe.Children()
	idx, found := indexOf(children, p.Key)
	if !found {
		return newInvariantViolation("anchor %q not found among parent %q's children", p.Key, parentKey)
	}

	inserted := make([]NodeKey, 0, len(nodes))
	for _, n := range nodes {
		if n.Key() == "" {
			n.setKey(mintNodeKey())
		}
		n.setParent(parentKey, true)
		state.nodes.Set(n)
		ctx.MarkDirty(n.Key())
		inserted = append(inserted, n.Key())
	}

	newChildren := make([]NodeKey, 0, len(children)+len(inserted))
	newChildren = append(newChildren, children[:idx+1]...)
	newChildren = append(newChildren, inserted...)
	newChildren = append(newChildren, children[idx+1:]...)
	pe.setChildren(newChildren)

	var point Point
	if selectStart && len(inserted) > 0 {
		point = Point{Key: inserted[0], Offset: 0, Kind: PointElement}
	} else if len(inserted) > 0 {
		point = Point{Key: parentKey, Offset: idx + 1 + len(inserted), Kind: PointElement}
	} else {
		point = p
	}
	ctx.SetSelection(NewRangeSelection(point, point))
	return nil
}

func nearestBlockAncestor(state *EditorState, key NodeKey) (NodeKey, bool) {
	n, ok := state.GetNode(key)
	if !ok {
		return "", false
	}
	cur := key
	for {
		n, ok = state.GetNode(cur)
		if !ok {
			return "", false
		}
		if el, ok := n.(*ElementNode); ok && !el.IsInline() {
			return cur, true
		}
		parentKey, hasParent := n.Parent()
		if !hasParent {
			return "", false
		}
		cur = parentKey
	}
}

func indexOf(keys []NodeKey, target NodeKey) (int, bool) {
	for i, k := range keys {
		if k == target {
			return i, true
		}
	}
	return 0, false
}

func cloneBlockShell(block Node) Node {
	c := block.clone()
	if e, ok := c.(Elemental); ok {
		e.setChildren(nil)
	}
	return c
}

func adjacentDecorator(state *EditorState, textKey NodeKey, before bool) (NodeKey, bool) {
	n, ok := state.GetNode(textKey)
	if !ok {
		return "", false
	}
	parentKey, hasParent := n.Parent()
	if !hasParent {
		return "", false
	}
	parent, ok := state.GetNode(parentKey)
	if !ok {
		return "", false
	}
	pe, ok := parent.(Elemental)
	if !ok {
		return "", false
	}
	children := pe.Children()
	idx, found := indexOf(children, textKey)
	if !found {
		return "", false
	}
	var neighborIdx int
	if before {
		neighborIdx = idx - 1
	} else {
		neighborIdx = idx + 1
	}
	if neighborIdx < 0 || neighborIdx >= len(children) {
		return "", false
	}
	neighbor, ok := state.GetNode(children[neighborIdx])
	if !ok {
		return "", false
	}
	if _, isDecorator := neighbor.(*DecoratorNode); isDecorator {
		return neighbor.Key(), true
	}
	return "", false
}

func mergeWithPreviousBlock(ctx *UpdateContext, textKey NodeKey) error {
	state := ctx.State()
	blockKey, ok := nearestBlockAncestor(state, textKey)
	if !ok {
		return nil
	}
	block, ok := state.GetNode(blockKey)
	if !ok {
		return nil
	}
	parentKey, hasParent := block.Parent()
	if !hasParent {
		return nil
	}
	parent, ok := state.GetNode(parentKey)
	if !ok {
		return nil
	}
	pe := parent.(Elemental)
	siblings := pe.Children()
	idx, found := indexOf(siblings, blockKey)
	if !found || idx == 0 {
		return nil
	}
	prevKey := siblings[idx-1]
	return mergeBlocks(ctx, prevKey, blockKey)
}

func mergeWithNextBlock(ctx *UpdateContext, textKey NodeKey) error {
	state := ctx.State()
	blockKey, ok := nearestBlockAncestor(state, textKey)
	if !ok {
		return nil
	}
	block, ok := state.GetNode(blockKey)
	if !ok {
		return nil
	}
	parentKey, hasParent := block.Parent()
	if !hasParent {
		return nil
	}
	parent, ok := state.GetNode(parentKey)
	if !ok {
		return nil
	}
	pe := parent.(Elemental)
	siblings := pe.Children()
	idx, found := indexOf(siblings, blockKey)
	if !found || idx+1 >= len(siblings) {
		return nil
	}
	nextKey := siblings[idx+1]
	return mergeBlocks(ctx, blockKey, nextKey)
}

// WordClassifier reports whether r counts as part of a word, for
// delete_word's boundary scan (spec §4.3 "passed in as a callback;
// default is Unicode-aware word breaks").
type WordClassifier func(r rune) bool

// DefaultWordClassifier treats letters, digits, and underscore as
// word runes.
func DefaultWordClassifier(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// DeleteWord implements delete_word(backwards): consumes one run of
// non-word runes followed by one run of word runes, scanning away from
// the caret in the deletion's direction, matching the common "delete
// previous/next word"
// editing gesture. At a text-node boundary with nothing left to
// consume it falls through to delete_character's block-merge logic.
func DeleteWord(ctx *UpdateContext, backwards bool, classify WordClassifier) error {
	sel, ok := ctx.State().Selection().(*RangeSelection)
	if !ok {
		if ns, ok := ctx.State().Selection().(*NodeSelection); ok {
			return deleteNodeSelection(ctx, ns)
		}
		return newInvariantViolation("delete_word requires a selection")
	}
	if !sel.IsCollapsed() {
		return RemoveText(ctx, sel)
	}
	p := sel.Anchor
	if p.Kind != PointText {
		return newInvariantViolation("delete_word at an element point is not yet supported")
	}
	n, ok := ctx.State().GetNode(p.Key)
	if !ok {
		return newInvariantViolation("delete_word target %q is detached", p.Key)
	}
	tn := n.(*TextNode)
	runes := []rune(tn.Text())

	var lo, hi int
	if backwards {
		i := p.Offset
		for i > 0 && !classify(runes[i-1]) {
			i--
		}
		for i > 0 && classify(runes[i-1]) {
			i--
		}
		lo, hi = i, p.Offset
	} else {
		i := p.Offset
		for i < len(runes) && !classify(runes[i]) {
			i++
		}
		for i < len(runes) && classify(runes[i]) {
			i++
		}
		lo, hi = p.Offset, i
	}
	if lo == hi {
		return DeleteCharacter(ctx, backwards)
	}

	mutated, _ := ctx.MutateNode(p.Key)
	mtn := mutated.(*TextNode)
	newRunes := []rune(mtn.Text())
	mtn.SetText(string(newRunes[:lo]) + string(newRunes[hi:]))

	point := Point{Key: p.Key, Offset: lo, Kind: PointText}
	ctx.SetSelection(NewRangeSelection(point, point))
	return nil
}

// DeleteLine implements delete_line(backwards): clears the caret's
// text node from the caret to the start (or end) of its block and
// drops any fully-contained sibling text between them, matching
// "delete to start/end of line" for the single-block case.
func DeleteLine(ctx *UpdateContext, backwards bool) error {
	sel, ok := ctx.State().Selection().(*RangeSelection)
	if !ok {
		if ns, ok := ctx.State().Selection().(*NodeSelection); ok {
			return deleteNodeSelection(ctx, ns)
		}
		return newInvariantViolation("delete_line requires a selection")
	}
	if !sel.IsCollapsed() {
		return RemoveText(ctx, sel)
	}
	p := sel.Anchor
	if p.Kind != PointText {
		return newInvariantViolation("delete_line at an element point is not yet supported")
	}
	state := ctx.State()
	blockKey, ok := nearestBlockAncestor(state, p.Key)
	if !ok {
		return newInvariantViolation("text node %q has no block ancestor", p.Key)
	}
	block, ok := ctx.MutateNode(blockKey)
	if !ok {
		return newInvariantViolation("block ancestor %q is detached", blockKey)
	}
	be, ok := block.(Elemental)
	if !ok {
		return newInvariantViolation("block ancestor %q is not Elemental", blockKey)
	}
	children := be.Children()
	idx, found := indexOf(children, p.Key)
	if !found {
		return newInvariantViolation("delete_line requires the caret's text node to be a direct child of its block")
	}

	mutated, _ := ctx.MutateNode(p.Key)
	tn := mutated.(*TextNode)
	runes := []rune(tn.Text())

	if backwards {
		for _, k := range children[:idx] {
			state.nodes.Delete(k)
			ctx.MarkDirty(k)
		}
		tn.SetText(string(runes[p.Offset:]))
		be.setChildren(append([]NodeKey(nil), children[idx:]...))
		point := Point{Key: p.Key, Offset: 0, Kind: PointText}
		ctx.SetSelection(NewRangeSelection(point, point))
		return nil
	}

	for _, k := range children[idx+1:] {
		state.nodes.Delete(k)
		ctx.MarkDirty(k)
	}
	tn.SetText(string(runes[:p.Offset]))
	be.setChildren(append([]NodeKey(nil), children[:idx+1]...))
	point := Point{Key: p.Key, Offset: p.Offset, Kind: PointText}
	ctx.SetSelection(NewRangeSelection(point, point))
	return nil
}

// FormatText implements format_text(format): toggles format across
// sel's range (spec §4.3, §6.2). A partially-covered text node is
// split into up to three siblings so the toggle applies to exactly
// the selected runes; the selection is left spanning the (now sole)
// middle segment.
func FormatText(ctx *UpdateContext, sel *RangeSelection, flag FormatFlag) error {
	if sel.IsCollapsed() {
		return nil
	}
	a, f := sel.Anchor, sel.Focus
	if a.Key != f.Key || a.Kind != PointText {
		return newInvariantViolation("format_text across distinct nodes is not yet supported")
	}
	lo, hi := a.Offset, f.Offset
	if lo > hi {
		lo, hi = hi, lo
	}
	state := ctx.State()
	n, ok := state.GetNode(a.Key)
	if !ok {
		return newInvariantViolation("format_text target %q is detached", a.Key)
	}
	orig := n.(*TextNode)
	runes := []rune(orig.Text())
	if hi > len(runes) {
		hi = len(runes)
	}

	if lo == 0 && hi == len(runes) {
		mutated, _ := ctx.MutateNode(a.Key)
		mt := mutated.(*TextNode)
		mt.SetFormat(mt.Format() ^ flag)
		return nil
	}

	parentKey, hasParent := n.Parent()
	if !hasParent {
		return newInvariantViolation("format_text target %q has no parent", a.Key)
	}
	parent, ok := ctx.MutateNode(parentKey)
	if !ok {
		return newInvariantViolation("parent %q of %q is detached", parentKey, a.Key)
	}
	pe := parent.(Elemental)
	children := pe.Children()
	idx, found := indexOf(children, a.Key)
	if !found {
		return newInvariantViolation("text node %q not found among parent %q's children", a.Key, parentKey)
	}

	before, middle, after := string(runes[:lo]), string(runes[lo:hi]), string(runes[hi:])

	mutated, _ := ctx.MutateNode(a.Key)
	mt := mutated.(*TextNode)
	mt.SetText(middle)
	mt.SetFormat(mt.Format() ^ flag)

	sibling := func(text string) *TextNode {
		tn := NewTextNode(text)
		tn.setKey(mintNodeKey())
		tn.setParent(parentKey, true)
		tn.SetFormat(orig.Format())
		tn.SetStyle(orig.Style())
		tn.SetMode(orig.Mode())
		state.nodes.Set(tn)
		ctx.MarkDirty(tn.Key())
		return tn
	}

	newChildren := append([]NodeKey{}, children[:idx]...)
	if before != "" {
		newChildren = append(newChildren, sibling(before).Key())
	}
	newChildren = append(newChildren, a.Key)
	if after != "" {
		newChildren = append(newChildren, sibling(after).Key())
	}
	newChildren = append(newChildren, children[idx+1:]...)
	pe.setChildren(newChildren)

	point := Point{Key: a.Key, Offset: 0, Kind: PointText}
	focus := Point{Key: a.Key, Offset: len([]rune(middle)), Kind: PointText}
	ctx.SetSelection(NewRangeSelection(point, focus))
	return nil
}

// IndentContent implements indent_content/outdent_content (spec
// SUPPLEMENTAL FEATURES): a thin handler delegating to element-level
// mutation on the selection's current block ancestor, clamped at 0.
func IndentContent(ctx *UpdateContext, delta int) error {
	sel, ok := ctx.State().Selection().(*RangeSelection)
	if !ok {
		return newInvariantViolation("indent_content requires a range selection")
	}
	blockKey, ok := nearestBlockAncestor(ctx.State(), sel.Anchor.Key)
	if !ok {
		return newInvariantViolation("selection has no block ancestor to indent")
	}
	block, ok := ctx.MutateNode(blockKey)
	if !ok {
		return newInvariantViolation("block %q is detached", blockKey)
	}
	el, ok := block.(*ElementNode)
	if !ok || !el.CanIndent() {
		return nil
	}
	newIndent := el.Indent() + delta
	if newIndent < 0 {
		newIndent = 0
	}
	el.SetIndent(newIndent)
	return nil
}

// InsertList implements insert_unordered_list/insert_ordered_list
// (spec SUPPLEMENTAL FEATURES): replaces the selection's block
// ancestor with a ListItemNode carrying the same children.
func InsertList(ctx *UpdateContext, ordered bool) error {
	sel, ok := ctx.State().Selection().(*RangeSelection)
	if !ok {
		return newInvariantViolation("insert_list requires a range selection")
	}
	state := ctx.State()
	blockKey, ok := nearestBlockAncestor(state, sel.Anchor.Key)
	if !ok {
		return newInvariantViolation("selection has no block ancestor")
	}
	block, ok := state.GetNode(blockKey)
	if !ok {
		return newInvariantViolation("block %q is detached", blockKey)
	}
	be, ok := block.(Elemental)
	if !ok {
		return newInvariantViolation("block %q is not Elemental", blockKey)
	}
	parentKey, hasParent := block.Parent()
	if !hasParent {
		return newInvariantViolation("block %q has no parent", blockKey)
	}
	parent, ok := ctx.MutateNode(parentKey)
	if !ok {
		return newInvariantViolation("parent %q is detached", parentKey)
	}
	pe := parent.(Elemental)
	siblings := pe.Children()
	idx, found := indexOf(siblings, blockKey)
	if !found {
		return newInvariantViolation("block %q not found among parent %q's children", blockKey, parentKey)
	}

	marker := "• "
	if ordered {
		marker = "1. "
	}
	item := NewListItemNode(marker)
	item.setKey(mintNodeKey())
	item.setParent(parentKey, true)
	item.setChildren(append([]NodeKey(nil), be.Children()...))
	for _, k := range be.Children() {
		if child, ok := ctx.MutateNode(k); ok {
			child.setParent(item.Key(), true)
		}
	}
	state.nodes.Set(item)
	ctx.MarkDirty(item.Key())
	state.nodes.Delete(blockKey)
	ctx.MarkDirty(blockKey)

	newSiblings := append([]NodeKey{}, siblings[:idx]...)
	newSiblings = append(newSiblings, item.Key())
	newSiblings = append(newSiblings, siblings[idx+1:]...)
	pe.setChildren(newSiblings)
	return nil
}

// mergeBlocks appends fromKey's children onto intoKey and removes
// fromKey from its parent (spec §4.3). A backward delete at a block's
// start merges that block into the previous one; a forward delete at
// its end merges the next block into it.
func mergeBlocks(ctx *UpdateContext, intoKey, fromKey NodeKey) error {
	state := ctx.State()
	into, ok := ctx.MutateNode(intoKey)
	if !ok {
		return newInvariantViolation("merge target %q is detached", intoKey)
	}
	from, ok := state.GetNode(fromKey)
	if !ok {
		return newInvariantViolation("merge source %q is detached", fromKey)
	}
	ie := into.(Elemental)
	fe := from.(Elemental)

	caretAt := len(ie.Children())
	var caretKey NodeKey
	if caretAt > 0 {
		caretKey = ie.Children()[caretAt-1]
	}

	ie.setChildren(append(append([]NodeKey{}, ie.Children()...), fe.Children()...))
	for _, k := range fe.Children() {
		if n, ok := ctx.MutateNode(k); ok {
			n.setParent(intoKey, true)
		}
	}

	fromParentKey, hasParent := from.Parent()
	if hasParent {
		fromParent, ok := ctx.MutateNode(fromParentKey)
		if ok {
			fpe := fromParent.(Elemental)
			siblings := fpe.Children()
			idx, found := indexOf(siblings, fromKey)
			if found {
				fpe.setChildren(append(append([]NodeKey{}, siblings[:idx]...), siblings[idx+1:]...))
			}
		}
	}
	state.nodes.Delete(fromKey)
	ctx.MarkDirty(fromKey)

	var point Point
	if caretKey != "" {
		if tn, ok := state.GetNode(caretKey); ok {
			if txt, ok := tn.(*TextNode); ok {
				point = Point{Key: caretKey, Offset: txt.TextLength(), Kind: PointText}
			}
		}
	}
	if point.Key == "" {
		point = Point{Key: intoKey, Offset: caretAt, Kind: PointElement}
	}
	ctx.SetSelection(NewRangeSelection(point, point))
	return nil
}
