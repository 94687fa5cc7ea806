package editorcore

import "sort"

// CommandPriority is one of the five dispatch bands (spec §4.7);
// listeners run highest band first, and within a band in registration
// order.
type CommandPriority int

const (
	PriorityEditor CommandPriority = iota
	PriorityLow
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// CommandHandler processes a dispatched command's payload and reports
// whether it considers the command handled; the first handler
// returning true stops dispatch. ctx is nil for listeners registered
// with wrapInUpdate=false (pre-dispatch inspection): they may read the
// editor's committed state but must not mutate it.
type CommandHandler func(editor *Editor, ctx *UpdateContext, payload any) (handled bool)

type commandListener struct {
	id       uint64
	priority CommandPriority
	handler  CommandHandler
	wrap     bool // wrap dispatch in an update block (default true)
}

// CommandBus is the uniform dispatch point for named intents (spec
// §4.7). Listeners may be registered across the five priority bands;
// dispatch runs synchronously on the caller's thread.
type CommandBus struct {
	editor    *Editor
	listeners map[string][]*commandListener
	nextID    uint64
}

func newCommandBus(editor *Editor) *CommandBus {
	return &CommandBus{editor: editor, listeners: make(map[string][]*commandListener)}
}

// RegisterCommand subscribes handler to name at priority, wrapping
// dispatch in an update block unless wrapInUpdate is false (for
// pre-dispatch inspection listeners). It returns an idempotent removal
// function.
func (b *CommandBus) RegisterCommand(name string, priority CommandPriority, wrapInUpdate bool, handler CommandHandler) (unregister func()) {
	b.nextID++
	id := b.nextID
	l := &commandListener{id: id, priority: priority, handler: handler, wrap: wrapInUpdate}
	b.listeners[name] = append(b.listeners[name], l)
	sortListenersByPriority(b.listeners[name])

	removed := false
	return func() {
		if removed {
			return
		}
		removed = true
		ls := b.listeners[name]
		for i, cur := range ls {
			if cur.id == id {
				b.listeners[name] = append(ls[:i], ls[i+1:]...)
				return
			}
		}
	}
}

func sortListenersByPriority(ls []*commandListener) {
	sort.SliceStable(ls, func(i, j int) bool { return ls[i].priority > ls[j].priority })
}

// Dispatch runs every registered handler for name, highest priority
// first, stopping at the first one that returns handled=true. It
// reports whether any handler claimed the command.
func (b *CommandBus) Dispatch(name string, payload any) bool {
	for _, l := range b.listeners[name] {
		var handled bool
		if l.wrap {
			b.editor.Update(func(ctx *UpdateContext) error {
				handled = l.handler(b.editor, ctx, payload)
				return nil
			}, UpdateOptions{})
		} else {
			handled = l.handler(b.editor, nil, payload)
		}
		if handled {
			return true
		}
	}
	return false
}

// Built-in command names (spec §4.7).
const (
	CmdInsertText          = "insert_text"
	CmdInsertParagraph     = "insert_paragraph"
	CmdInsertLineBreak     = "insert_line_break"
	CmdDeleteCharacter     = "delete_character"
	CmdDeleteWord          = "delete_word"
	CmdDeleteLine          = "delete_line"
	CmdRemoveText          = "remove_text"
	CmdFormatText          = "format_text"
	CmdCopy                = "copy"
	CmdCut                 = "cut"
	CmdPaste               = "paste"
	CmdUndo                = "undo"
	CmdRedo                = "redo"
	CmdSelectionChange     = "selection_change"
	CmdIndentContent       = "indent_content"
	CmdOutdentContent      = "outdent_content"
	CmdInsertUnorderedList = "insert_unordered_list"
	CmdInsertOrderedList   = "insert_ordered_list"
)

// FormatTextPayload is CmdFormatText's payload: toggle a single
// format bit across the current RangeSelection.
type FormatTextPayload struct {
	Format FormatFlag
}

// SelectionRangePayload is CmdSelectionChange's native-range payload
// (spec §4.3 apply_selection_range): a host reports a rendered-buffer
// (Location, Length) pair instead of building Points itself, and the
// core resolves them through the Range Cache.
type SelectionRangePayload struct {
	Location int
	Length   int
	Affinity Affinity
}

// currentRangeSelection fetches ctx's pending selection as a
// RangeSelection, or reports false for any other selection kind.
func currentRangeSelection(ctx *UpdateContext) (*RangeSelection, bool) {
	sel, ok := ctx.State().Selection().(*RangeSelection)
	return sel, ok
}

// RegisterBuiltinCommands wires the spec's built-in command names
// (§4.7) to the editing primitives in textops.go, clipboard.go, and
// the indent/list handlers below (SUPPLEMENTAL FEATURES). Every
// handler runs at PriorityEditor so a host or plugin registering at a
// higher band can intercept first.
func RegisterBuiltinCommands(e *Editor) {
	bus := e.bus

	bus.RegisterCommand(CmdInsertText, PriorityEditor, true, func(_ *Editor, ctx *UpdateContext, payload any) bool {
		sel, ok := currentRangeSelection(ctx)
		if !ok {
			return false
		}
		s, _ := payload.(string)
		return InsertText(ctx, sel, s) == nil
	})

	bus.RegisterCommand(CmdInsertParagraph, PriorityEditor, true, func(_ *Editor, ctx *UpdateContext, _ any) bool {
		sel, ok := currentRangeSelection(ctx)
		if !ok {
			return false
		}
		return InsertParagraph(ctx, sel) == nil
	})

	bus.RegisterCommand(CmdInsertLineBreak, PriorityEditor, true, func(_ *Editor, ctx *UpdateContext, _ any) bool {
		sel, ok := currentRangeSelection(ctx)
		if !ok {
			return false
		}
		return InsertLineBreak(ctx, sel) == nil
	})

	bus.RegisterCommand(CmdDeleteCharacter, PriorityEditor, true, func(_ *Editor, ctx *UpdateContext, payload any) bool {
		backwards, _ := payload.(bool)
		return DeleteCharacter(ctx, backwards) == nil
	})

	bus.RegisterCommand(CmdDeleteWord, PriorityEditor, true, func(_ *Editor, ctx *UpdateContext, payload any) bool {
		backwards, _ := payload.(bool)
		return DeleteWord(ctx, backwards, DefaultWordClassifier) == nil
	})

	bus.RegisterCommand(CmdDeleteLine, PriorityEditor, true, func(_ *Editor, ctx *UpdateContext, payload any) bool {
		backwards, _ := payload.(bool)
		return DeleteLine(ctx, backwards) == nil
	})

	bus.RegisterCommand(CmdRemoveText, PriorityEditor, true, func(_ *Editor, ctx *UpdateContext, _ any) bool {
		sel, ok := currentRangeSelection(ctx)
		if !ok {
			return false
		}
		return RemoveText(ctx, sel) == nil
	})

	bus.RegisterCommand(CmdFormatText, PriorityEditor, true, func(_ *Editor, ctx *UpdateContext, payload any) bool {
		p, ok := payload.(FormatTextPayload)
		if !ok {
			return false
		}
		sel, ok := currentRangeSelection(ctx)
		if !ok {
			return false
		}
		return FormatText(ctx, sel, p.Format) == nil
	})

	bus.RegisterCommand(CmdCopy, PriorityEditor, false, func(e *Editor, _ *UpdateContext, payload any) bool {
		dst, ok := payload.(*ClipboardPayload)
		if !ok {
			return false
		}
		built, err := BuildClipboardPayload(e.GetEditorState())
		if err != nil {
			return false
		}
		*dst = *built
		return true
	})

	bus.RegisterCommand(CmdCut, PriorityEditor, true, func(e *Editor, ctx *UpdateContext, payload any) bool {
		dst, ok := payload.(*ClipboardPayload)
		if !ok {
			return false
		}
		built, err := BuildClipboardPayload(e.GetEditorState())
		if err != nil {
			return false
		}
		*dst = *built
		sel, ok := currentRangeSelection(ctx)
		if !ok {
			return false
		}
		return RemoveText(ctx, sel) == nil
	})

	bus.RegisterCommand(CmdPaste, PriorityEditor, true, func(_ *Editor, ctx *UpdateContext, payload any) bool {
		p, ok := payload.(*ClipboardPayload)
		if !ok {
			return false
		}
		sel, ok := currentRangeSelection(ctx)
		if !ok {
			return false
		}
		return PasteClipboardPayload(ctx, sel, p) == nil
	})

	bus.RegisterCommand(CmdUndo, PriorityEditor, true, func(e *Editor, ctx *UpdateContext, _ any) bool {
		if e.historyIndex == 0 {
			return false
		}
		e.historyIndex--
		ctx.editor.pending = e.history[e.historyIndex].Clone()
		ctx.skipHistory = true
		return true
	})

	bus.RegisterCommand(CmdRedo, PriorityEditor, true, func(e *Editor, ctx *UpdateContext, _ any) bool {
		if e.historyIndex >= len(e.history)-1 {
			return false
		}
		e.historyIndex++
		ctx.editor.pending = e.history[e.historyIndex].Clone()
		ctx.skipHistory = true
		return true
	})

	bus.RegisterCommand(CmdSelectionChange, PriorityEditor, true, func(e *Editor, ctx *UpdateContext, payload any) bool {
		switch p := payload.(type) {
		case Selection:
			ctx.SetSelection(p)
			return true
		case SelectionRangePayload:
			return ApplySelectionRange(ctx, e.rangeCache, p.Location, p.Length, p.Affinity) == nil
		default:
			return false
		}
	})

	bus.RegisterCommand(CmdIndentContent, PriorityEditor, true, func(_ *Editor, ctx *UpdateContext, _ any) bool {
		return IndentContent(ctx, 1) == nil
	})
	bus.RegisterCommand(CmdOutdentContent, PriorityEditor, true, func(_ *Editor, ctx *UpdateContext, _ any) bool {
		return IndentContent(ctx, -1) == nil
	})
	bus.RegisterCommand(CmdInsertUnorderedList, PriorityEditor, true, func(_ *Editor, ctx *UpdateContext, _ any) bool {
		return InsertList(ctx, false) == nil
	})
	bus.RegisterCommand(CmdInsertOrderedList, PriorityEditor, true, func(_ *Editor, ctx *UpdateContext, _ any) bool {
		return InsertList(ctx, true) == nil
	})
}
