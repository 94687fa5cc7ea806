package editorcore

import "testing"

func TestOnUpdateFiresAfterCommit(t *testing.T) {
	e, _, textKey := newSingleParagraphEditor("hi")

	var sawDirty bool
	e.OnUpdate(func(prev, next *EditorState, dirty map[NodeKey]struct{}) {
		if _, ok := dirty[textKey]; ok {
			sawDirty = true
		}
	})

	err := e.Update(func(ctx *UpdateContext) error {
		sel, _ := currentRangeSelection(ctx)
		return InsertText(ctx, sel, "!")
	}, UpdateOptions{})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if !sawDirty {
		t.Fatalf("update listener did not observe the edited text node as dirty")
	}
}

func TestOnUpdateUnregisterStopsFutureNotifications(t *testing.T) {
	e, _, _ := newSingleParagraphEditor("hi")

	calls := 0
	unregister := e.OnUpdate(func(prev, next *EditorState, dirty map[NodeKey]struct{}) {
		calls++
	})
	unregister()

	err := e.Update(func(ctx *UpdateContext) error {
		sel, _ := currentRangeSelection(ctx)
		return InsertText(ctx, sel, "!")
	}, UpdateOptions{})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if calls != 0 {
		t.Fatalf("unregistered listener fired %d times", calls)
	}
}

func TestOnTextContentFiresOnlyWhenTextChanges(t *testing.T) {
	e, _, _ := newSingleParagraphEditor("hi")

	var lastText string
	fires := 0
	e.OnTextContent(func(text string) {
		fires++
		lastText = text
	})

	err := e.Update(func(ctx *UpdateContext) error {
		sel, _ := currentRangeSelection(ctx)
		return InsertText(ctx, sel, "!")
	}, UpdateOptions{})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if fires == 0 {
		t.Fatalf("text content listener never fired")
	}
	if lastText == "" {
		t.Fatalf("text content listener received empty text")
	}
}

func TestRegisterTransformRunsOnDirtyNodesOfType(t *testing.T) {
	e, _, textKey := newSingleParagraphEditor("hi")

	var seen []NodeKey
	e.RegisterTransform("text", func(ctx *UpdateContext, key NodeKey) error {
		seen = append(seen, key)
		return nil
	})

	err := e.Update(func(ctx *UpdateContext) error {
		sel, _ := currentRangeSelection(ctx)
		return InsertText(ctx, sel, "!")
	}, UpdateOptions{})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}

	found := false
	for _, k := range seen {
		if k == textKey {
			found = true
		}
	}
	if !found {
		t.Fatalf("transform for type %q never ran on dirtied node %q, saw %v", "text", textKey, seen)
	}
}
