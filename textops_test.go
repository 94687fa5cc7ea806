package editorcore

import "testing"

func caretAt(key NodeKey, offset int) *RangeSelection {
	p := Point{Key: key, Offset: offset, Kind: PointText}
	return NewRangeSelection(p, p)
}

func TestInsertTextSplicesAtCaret(t *testing.T) {
	e, _, textKey := newSingleParagraphEditor("helo")
	err := e.Update(func(ctx *UpdateContext) error {
		ctx.SetSelection(caretAt(textKey, 3))
		sel := ctx.State().Selection().(*RangeSelection)
		return InsertText(ctx, sel, "l")
	}, UpdateOptions{})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	n, _ := e.GetEditorState().GetNode(textKey)
	if n.(*TextNode).Text() != "hello" {
		t.Fatalf("text = %q, want hello", n.(*TextNode).Text())
	}
}

func TestInsertTextAtElementPointCreatesTextNode(t *testing.T) {
	e, paraKey := newEmptyParagraphEditor()
	err := e.Update(func(ctx *UpdateContext) error {
		sel := ctx.State().Selection().(*RangeSelection)
		return InsertText(ctx, sel, "Hi")
	}, UpdateOptions{})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}

	state := e.GetEditorState()
	para, _ := state.GetNode(paraKey)
	children := para.(*ElementNode).Children()
	if len(children) != 1 {
		t.Fatalf("paragraph has %d children, want 1", len(children))
	}
	tn, ok := state.GetNode(children[0])
	if !ok {
		t.Fatalf("child %q not found", children[0])
	}
	textNode, ok := tn.(*TextNode)
	if !ok {
		t.Fatalf("child %q is %T, want *TextNode", children[0], tn)
	}
	if textNode.Text() != "Hi" {
		t.Fatalf("text = %q, want Hi", textNode.Text())
	}

	sel := state.Selection().(*RangeSelection)
	want := Point{Key: children[0], Offset: 2, Kind: PointText}
	if sel.Anchor != want || sel.Focus != want {
		t.Fatalf("selection = %+v, want collapsed caret %+v", sel.Anchor, want)
	}
}

func TestRemoveTextDeletesRange(t *testing.T) {
	e, _, textKey := newSingleParagraphEditor("hello")
	err := e.Update(func(ctx *UpdateContext) error {
		a := Point{Key: textKey, Offset: 1, Kind: PointText}
		f := Point{Key: textKey, Offset: 4, Kind: PointText}
		sel := NewRangeSelection(a, f)
		ctx.SetSelection(sel)
		return RemoveText(ctx, sel)
	}, UpdateOptions{})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	n, _ := e.GetEditorState().GetNode(textKey)
	if n.(*TextNode).Text() != "ho" {
		t.Fatalf("text = %q, want ho", n.(*TextNode).Text())
	}
}

func TestDeleteCharacterBackwardsAndForwards(t *testing.T) {
	e, _, textKey := newSingleParagraphEditor("hello")
	err := e.Update(func(ctx *UpdateContext) error {
		ctx.SetSelection(caretAt(textKey, 2))
		return DeleteCharacter(ctx, true)
	}, UpdateOptions{})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	n, _ := e.GetEditorState().GetNode(textKey)
	if n.(*TextNode).Text() != "hllo" {
		t.Fatalf("after backward delete text = %q, want hllo", n.(*TextNode).Text())
	}

	err = e.Update(func(ctx *UpdateContext) error {
		ctx.SetSelection(caretAt(textKey, 1))
		return DeleteCharacter(ctx, false)
	}, UpdateOptions{})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	n, _ = e.GetEditorState().GetNode(textKey)
	if n.(*TextNode).Text() != "hlo" {
		t.Fatalf("after forward delete text = %q, want hlo", n.(*TextNode).Text())
	}
}

func TestDeleteWordBackwards(t *testing.T) {
	e, _, textKey := newSingleParagraphEditor("foo bar")
	err := e.Update(func(ctx *UpdateContext) error {
		ctx.SetSelection(caretAt(textKey, 7))
		return DeleteWord(ctx, true, DefaultWordClassifier)
	}, UpdateOptions{})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	n, _ := e.GetEditorState().GetNode(textKey)
	if n.(*TextNode).Text() != "foo " {
		t.Fatalf("text = %q, want \"foo \"", n.(*TextNode).Text())
	}
}

func TestDeleteLineForwardTruncatesAtCaret(t *testing.T) {
	e, _, textKey := newSingleParagraphEditor("hello world")
	err := e.Update(func(ctx *UpdateContext) error {
		ctx.SetSelection(caretAt(textKey, 5))
		return DeleteLine(ctx, false)
	}, UpdateOptions{})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	n, _ := e.GetEditorState().GetNode(textKey)
	if n.(*TextNode).Text() != "hello" {
		t.Fatalf("text = %q, want hello", n.(*TextNode).Text())
	}
}

func TestFormatTextSplitsPartialSelectionIntoSiblings(t *testing.T) {
	e, paraKey, textKey := newSingleParagraphEditor("hello")
	err := e.Update(func(ctx *UpdateContext) error {
		a := Point{Key: textKey, Offset: 1, Kind: PointText}
		f := Point{Key: textKey, Offset: 3, Kind: PointText}
		sel := NewRangeSelection(a, f)
		ctx.SetSelection(sel)
		return FormatText(ctx, sel, FormatBold)
	}, UpdateOptions{})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}

	para, _ := e.GetEditorState().GetNode(paraKey)
	children := para.(*ElementNode).Children()
	if len(children) != 3 {
		t.Fatalf("expected 3 sibling text nodes after partial format, got %d", len(children))
	}
	texts := make([]string, len(children))
	for i, k := range children {
		n, _ := e.GetEditorState().GetNode(k)
		texts[i] = n.(*TextNode).Text()
	}
	if texts[0] != "h" || texts[1] != "el" || texts[2] != "lo" {
		t.Fatalf("sibling texts = %v, want [h el lo]", texts)
	}
	middle, _ := e.GetEditorState().GetNode(children[1])
	if middle.(*TextNode).Format()&FormatBold == 0 {
		t.Fatalf("middle segment should carry the toggled bold format")
	}
}

func TestIndentContentClampsAtZero(t *testing.T) {
	e, paraKey, textKey := newSingleParagraphEditor("hi")
	err := e.Update(func(ctx *UpdateContext) error {
		ctx.SetSelection(caretAt(textKey, 0))
		return IndentContent(ctx, -1)
	}, UpdateOptions{})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	para, _ := e.GetEditorState().GetNode(paraKey)
	if para.(*ElementNode).Indent() != 0 {
		t.Fatalf("indent = %d, want clamped to 0", para.(*ElementNode).Indent())
	}
}

func TestInsertListReplacesBlockWithListItem(t *testing.T) {
	e, paraKey, textKey := newSingleParagraphEditor("item one")
	err := e.Update(func(ctx *UpdateContext) error {
		ctx.SetSelection(caretAt(textKey, 0))
		return InsertList(ctx, false)
	}, UpdateOptions{})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if _, ok := e.GetEditorState().GetNode(paraKey); ok {
		t.Fatalf("original paragraph should have been removed")
	}
	root := e.GetEditorState().Root()
	if len(root.Children()) != 1 {
		t.Fatalf("expected exactly one replacement child, got %d", len(root.Children()))
	}
	item, _ := e.GetEditorState().GetNode(root.Children()[0])
	if item.Type() != "listitem" {
		t.Fatalf("replacement node type = %q, want listitem", item.Type())
	}
	children := item.(*ElementNode).Children()
	if len(children) != 1 {
		t.Fatalf("expected the original text node reparented under the list item")
	}
	tn, _ := e.GetEditorState().GetNode(children[0])
	if tn.(*TextNode).Text() != "item one" {
		t.Fatalf("reparented text = %q, want \"item one\"", tn.(*TextNode).Text())
	}
}
