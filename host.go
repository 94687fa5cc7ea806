package editorcore

import "github.com/corelex/editorcore/internal/rope"

// Host is the platform-side contract the core drives (spec §6.1). An
// Editor is constructed with one Host; the core never reaches past it
// into a concrete text view, clipboard, or file system.
type Host interface {
	// TextStorage returns the Attributed Store instance the core
	// writes into. The host owns rendering it; the core owns its
	// contents.
	TextStorage() *rope.Store

	// UpdateNativeSelection adopts sel as the platform's caret/range.
	UpdateNativeSelection(sel *RangeSelection)
	// ResetSelectedRange clears any native selection.
	ResetSelectedRange()
	// ShowPlaceholderText is called when the root's text content
	// becomes empty.
	ShowPlaceholderText()

	// ReconcileDecorator is called once per created, changed, or
	// removed decorator key after a commit (spec §4.8 step 9). action
	// is one of "create", "update", "remove".
	ReconcileDecorator(key NodeKey, action string, payload any)
}

// NopHost is a zero-effort Host for headless use (tests, cmd/lexdump):
// it owns an in-memory Attributed Store and no-ops everything else.
type NopHost struct {
	store *rope.Store
}

// NewNopHost returns a Host backed by a fresh, empty Attributed Store.
func NewNopHost() *NopHost {
	return &NopHost{store: rope.New()}
}

func (h *NopHost) TextStorage() *rope.Store                              { return h.store }
func (h *NopHost) UpdateNativeSelection(sel *RangeSelection)              {}
func (h *NopHost) ResetSelectedRange()                                   {}
func (h *NopHost) ShowPlaceholderText()                                  {}
func (h *NopHost) ReconcileDecorator(key NodeKey, action string, p any) {}
