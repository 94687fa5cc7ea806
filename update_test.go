package editorcore

import "testing"

func TestUpdateCommitsClosureMutation(t *testing.T) {
	e, _, textKey := newSingleParagraphEditor("hi")
	err := e.Update(func(ctx *UpdateContext) error {
		n, _ := ctx.MutateNode(textKey)
		n.(*TextNode).SetText("bye")
		return nil
	}, UpdateOptions{})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	n, _ := e.GetEditorState().GetNode(textKey)
	if n.(*TextNode).Text() != "bye" {
		t.Fatalf("committed text = %q, want bye", n.(*TextNode).Text())
	}
}

func TestUpdateReturnsNonFatalClosureError(t *testing.T) {
	e, _, textKey := newSingleParagraphEditor("hi")
	sentinel := newRangeCacheSearchError("boom")
	err := e.Update(func(ctx *UpdateContext) error {
		return sentinel
	}, UpdateOptions{})
	if err != sentinel {
		t.Fatalf("Update error = %v, want the closure's own non-fatal error returned verbatim", err)
	}
	// Committed state must be untouched: the original text is still there.
	n, _ := e.GetEditorState().GetNode(textKey)
	if n.(*TextNode).Text() != "hi" {
		t.Fatalf("committed text after non-fatal error = %q, want unchanged hi", n.(*TextNode).Text())
	}
}

func TestUpdatePanicRecoveredAndRetried(t *testing.T) {
	e, _, textKey := newSingleParagraphEditor("hi")

	var gotErr error
	e.OnError(func(err error) { gotErr = err })

	err := e.Update(func(ctx *UpdateContext) error {
		panic("boom")
	}, UpdateOptions{})
	if err != nil {
		t.Fatalf("Update should recover the panic via its fatal-retry path, got error: %v", err)
	}
	if gotErr == nil {
		t.Fatalf("OnError listener was never notified of the panic-turned-error")
	}

	n, _ := e.GetEditorState().GetNode(textKey)
	if n.(*TextNode).Text() != "hi" {
		t.Fatalf("committed text after panic+retry = %q, want unchanged hi", n.(*TextNode).Text())
	}
}

func TestNestedUpdateReusesPendingState(t *testing.T) {
	e, _, textKey := newSingleParagraphEditor("hi")

	err := e.Update(func(ctx *UpdateContext) error {
		n, _ := ctx.MutateNode(textKey)
		n.(*TextNode).SetText("outer")
		return e.Update(func(inner *UpdateContext) error {
			if inner.State() != ctx.State() {
				t.Fatalf("nested update did not reuse the outer pending state")
			}
			n2, _ := inner.MutateNode(textKey)
			n2.(*TextNode).SetText("inner")
			return nil
		}, UpdateOptions{})
	}, UpdateOptions{})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}

	n, _ := e.GetEditorState().GetNode(textKey)
	if n.(*TextNode).Text() != "inner" {
		t.Fatalf("committed text = %q, want inner (the nested edit)", n.(*TextNode).Text())
	}
}

func TestUpdateRejectedInsideRead(t *testing.T) {
	e, _, textKey := newSingleParagraphEditor("hi")
	var updateErr error
	e.Read(func(state *EditorState) {
		updateErr = e.Update(func(ctx *UpdateContext) error {
			ctx.MarkDirty(textKey)
			return nil
		}, UpdateOptions{})
	})
	if updateErr == nil {
		t.Fatalf("expected Update to be rejected while a Read scope is active")
	}
	if !IsFatal(updateErr) {
		t.Fatalf("rejection should be a fatal invariant violation, got %v", updateErr)
	}
}
