package editorcore

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/corelex/editorcore/internal/reconcile"
)

// maxUpdateCount bounds the transform fixpoint (spec §4.8 step 5):
// exceeding it without the dirty set draining is a failure rather
// than an infinite loop.
const maxUpdateCount = 99

// UpdateOptions selects which phases of one update to skip (spec
// §4.8 "Update modes").
type UpdateOptions struct {
	SuppressReconcilingSelection bool
	SuppressSanityCheck          bool
	SkipTransforms               bool
	AllowUpdateWithoutTextStorage bool
	Headless                     bool
	MarkedTextOperation          *MarkedTextOperation
}

// MarkedTextOperation sequences an IME composition update: the
// selection is applied before text insertion and re-derived from this
// descriptor afterward (spec §4.5).
type MarkedTextOperation struct {
	Text           string
	SelectionStart int
	SelectionEnd   int
}

// UpdateContext is passed to a caller's update closure. It exposes the
// pending state and the marking operations a closure needs; it never
// exposes the committed state directly so a closure can't accidentally
// read stale data mid-transaction.
type UpdateContext struct {
	editor *Editor

	// dirty is the current fixpoint pass's work queue: MarkDirty
	// during a pass enqueues into it, driving the next pass.
	dirty map[NodeKey]struct{}
	// allDirty accumulates every key ever dirtied this transaction,
	// for reconciliation input and listener notification.
	allDirty map[NodeKey]struct{}
	// finalDirty is allDirty frozen at commit time.
	finalDirty map[NodeKey]struct{}
	readOnly   bool

	// prevCommitted is the state committed before this transaction
	// began, retained so the update listener can see (prev, next).
	prevCommitted *EditorState
	// startPending is the clone Update installed as the pending state;
	// a closure that swaps in a whole other state (undo/redo,
	// SetEditorState) leaves no dirty keys, so reconciliation rebuilds
	// the store in full whenever the pending state is no longer it.
	startPending *EditorState

	selectionChanged bool
	skipHistory      bool
}

// SetSelection replaces the pending state's selection and records
// that the selection changed this transaction, for the reconciler's
// selection-only fast path.
func (c *UpdateContext) SetSelection(sel Selection) {
	c.editor.pending.SetSelection(sel)
	c.selectionChanged = true
}

// State returns the transaction's pending EditorState.
func (c *UpdateContext) State() *EditorState { return c.editor.pending }

// MarkDirty records key as touched during this transaction, queuing
// it for normalization/transforms/reconciliation.
func (c *UpdateContext) MarkDirty(key NodeKey) {
	if c.readOnly {
		panic(newInvariantViolation("mutation attempted inside a read-only transaction"))
	}
	c.dirty[key] = struct{}{}
	c.allDirty[key] = struct{}{}
}

// MutateNode returns a privatized, mutable copy of key's node and
// marks it dirty in one step — the common case for a text op.
func (c *UpdateContext) MutateNode(key NodeKey) (Node, bool) {
	n, ok := c.editor.pending.nodes.Mutate(key)
	if ok {
		c.MarkDirty(key)
	}
	return n, ok
}

func newUpdateContext(e *Editor) *UpdateContext {
	return &UpdateContext{
		editor:   e,
		dirty:    make(map[NodeKey]struct{}),
		allDirty: make(map[NodeKey]struct{}),
	}
}

// Editor owns one committed EditorState and drives every transaction
// against it (spec §4.8). It is not safe for concurrent use: the
// spec's concurrency model is single-threaded cooperative (§5).
type Editor struct {
	committed *EditorState
	pending   *EditorState

	host           Host
	bus            *CommandBus
	listeners      *listenerRegistry
	rangeCache     *RangeCache
	decoratorCache *DecoratorCache
	reconciler     *reconcile.Reconciler

	updateDepth int
	readOnly    bool
	logger      *zap.Logger

	// history is the undo/redo stack of committed states (spec §4.7
	// built-in commands "undo"/"redo"); historyIndex points at the
	// currently-active entry.
	history      []*EditorState
	historyIndex int
}

// NewEditor constructs an Editor with a fresh empty document and
// wires host into every phase that needs to notify it.
func NewEditor(host Host) *Editor {
	initial := NewEditorState()
	e := &Editor{
		committed:      initial,
		host:           host,
		listeners:      newListenerRegistry(),
		rangeCache:     NewRangeCache(),
		decoratorCache: NewDecoratorCache(),
		reconciler:     reconcile.New(),
		logger:         defaultLogger,
		history:        []*EditorState{initial},
		historyIndex:   0,
	}
	e.bus = newCommandBus(e)
	RegisterBuiltinCommands(e)
	return e
}

// WithLogger attaches l as the editor's zap logger.
func (e *Editor) WithLogger(l *zap.Logger) *Editor {
	e.logger = l
	return e
}

// Commands returns the editor's command bus.
func (e *Editor) Commands() *CommandBus { return e.bus }

// GetEditorState returns the last committed state.
func (e *Editor) GetEditorState() *EditorState { return e.committed }

// SetEditorState atomically replaces the committed state (spec §3.1
// "may be wholly swapped via set_editor_state"), reconciling it onto
// the host exactly like a normal commit.
func (e *Editor) SetEditorState(next *EditorState) error {
	return e.Update(func(ctx *UpdateContext) error {
		e.pending = next
		return nil
	}, UpdateOptions{})
}

// OnUpdate registers an update listener.
func (e *Editor) OnUpdate(fn UpdateListener) func() { return e.listeners.RegisterUpdateListener(fn) }

// OnTextContent registers a text-content listener.
func (e *Editor) OnTextContent(fn TextContentListener) func() {
	return e.listeners.RegisterTextContentListener(fn)
}

// OnError registers an error listener.
func (e *Editor) OnError(fn ErrorListener) func() { return e.listeners.RegisterErrorListener(fn) }

// RegisterTransform registers a per-node-type transform.
func (e *Editor) RegisterTransform(nodeType string, fn NodeTransform) func() {
	return e.listeners.RegisterNodeTransform(nodeType, fn)
}

// Read runs closure in a scoped read-only activation (spec §4.8 "Read
// transactions"). Mutations attempted inside panic as an
// InvariantViolation.
func (e *Editor) Read(closure func(*EditorState)) {
	prevReadOnly := e.readOnly
	e.readOnly = true
	defer func() { e.readOnly = prevReadOnly }()
	closure(e.committed)
}

// Update runs the full transaction lifecycle (spec §4.8 phases 1-11).
// Nested calls (from inside a listener or transform) detected via
// updateDepth reuse the current pending state and return without
// reconciling; only the outermost call reconciles.
func (e *Editor) Update(closure func(*UpdateContext) error, opts UpdateOptions) error {
	if e.readOnly {
		return newInvariantViolation("update attempted inside a read-only transaction")
	}

	nested := e.updateDepth > 0
	e.updateDepth++
	defer func() { e.updateDepth-- }()

	if nested {
		ctx := newUpdateContext(e)
		return closure(ctx)
	}

	prevCommitted := e.committed
	e.pending = prevCommitted.Clone()
	ctx := newUpdateContext(e)
	ctx.prevCommitted = prevCommitted
	ctx.startPending = e.pending

	err := e.runTransaction(ctx, closure, opts)
	if err != nil {
		e.pending = nil
		e.listeners.notifyError(err)
		if IsFatal(err) {
			// One retry against an untouched clone, per §7 propagation
			// policy; a second failure is unrecoverable.
			e.pending = prevCommitted.Clone()
			retryCtx := newUpdateContext(e)
			if retryErr := e.runTransaction(retryCtx, func(*UpdateContext) error { return nil }, opts); retryErr != nil {
				e.pending = nil
				e.listeners.notifyError(retryErr)
				return fmt.Errorf("update failed after retry: %w", retryErr)
			}
			return nil
		}
		return err
	}
	return nil
}

// runTransaction executes phase 3 (the user closure) under panic
// recovery and then phases 4-11.
func (e *Editor) runTransaction(ctx *UpdateContext, closure func(*UpdateContext) error, opts UpdateOptions) error {
	if err := closureWithRecover(func() error { return closure(ctx) }); err != nil {
		return err
	}
	return e.finishTransaction(ctx, opts)
}

func closureWithRecover(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newError(KindInternal, true, "panic during update: %v", r)
		}
	}()
	return fn()
}

func (e *Editor) finishTransaction(ctx *UpdateContext, opts UpdateOptions) error {
	// Phase 4: normalize simple, mergeable dirty text nodes.
	e.normalizeDirtyTextNodes(ctx)

	// Phase 5: transforms fixpoint (leaves-first by ascending
	// children-count, then repeat until the dirty set drains).
	if !opts.SkipTransforms {
		if err := e.runTransformFixpoint(ctx); err != nil {
			return err
		}
	}

	// Phase 6: reconcile.
	if !opts.Headless {
		if err := e.reconcileAndCommit(ctx, opts); err != nil {
			return err
		}
	} else {
		e.commitPending(ctx)
	}

	// Phase 9: decorator reconciliation.
	e.reconcileDecorators(ctx)

	// Phase 10: listener dispatch, in a read-only scope.
	e.dispatchListeners(ctx, opts)

	// Phase 11: sanity check.
	if !opts.Headless && !opts.SuppressSanityCheck {
		if err := e.sanityCheck(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Editor) runTransformFixpoint(ctx *UpdateContext) error {
	pass := 0
	for len(ctx.dirty) > 0 {
		pass++
		if pass > maxUpdateCount {
			return newInvariantViolation("transform fixpoint exceeded %d passes", maxUpdateCount)
		}
		current := ctx.dirty
		ctx.dirty = make(map[NodeKey]struct{})

		keys := orderByAscendingChildCount(ctx.editor.pending, current)
		for _, key := range keys {
			n, ok := ctx.editor.pending.nodes.Get(key)
			if !ok {
				continue
			}
			for _, l := range e.listeners.transforms[n.Type()] {
				if err := l.fn(ctx, key); err != nil {
					return err
				}
			}
		}
		// Any MarkDirty call made by a transform just now landed in the
		// fresh ctx.dirty, driving the next pass; current itself need
		// not be re-visited unless a transform re-dirtied it.
	}
	return nil
}

func orderByAscendingChildCount(state *EditorState, dirty map[NodeKey]struct{}) []NodeKey {
	keys := make([]NodeKey, 0, len(dirty))
	for k := range dirty {
		keys = append(keys, k)
	}
	childCount := func(k NodeKey) int {
		n, ok := state.nodes.Get(k)
		if !ok {
			return 0
		}
		return len(GetChildren(n))
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && childCount(keys[j]) < childCount(keys[j-1]); j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

func (e *Editor) reconcileAndCommit(ctx *UpdateContext, opts UpdateOptions) error {
	prev := e.committed
	next := e.pending

	if e.host == nil && !opts.AllowUpdateWithoutTextStorage {
		return newInvariantViolation("update requires a host unless allow_update_without_text_storage is set")
	}

	if e.host != nil {
		store := e.host.TextStorage()
		store.BeginEditing()
		in := reconcileInputFromStates(prev, next, ctx.allDirty)
		in.SelectionOnlyChanged = ctx.selectionChanged
		in.FullReconcileRequested = ctx.startPending != nil && next != ctx.startPending
		plan := reconcile.Classify(in)
		if err := e.applyReconcilePlan(store, plan, prev, next); err != nil {
			store.EndEditing()
			return err
		}
		store.EndEditing()
	}

	e.commitPending(ctx)

	// Phase 7: selection safeguard.
	e.safeguardSelection()

	if e.host != nil && !opts.SuppressReconcilingSelection {
		if rs, ok := e.committed.Selection().(*RangeSelection); ok {
			e.host.UpdateNativeSelection(rs)
		} else if e.committed.Selection() == nil {
			e.host.ResetSelectedRange()
		}
	}
	return nil
}

func (e *Editor) safeguardSelection() {
	sel := e.committed.Selection()
	if sel == nil {
		return
	}
	missing := func(k NodeKey) bool {
		_, ok := e.committed.GetNode(k)
		return !ok
	}
	switch s := sel.(type) {
	case *RangeSelection:
		if missing(s.Anchor.Key) || missing(s.Focus.Key) {
			e.committed.SetSelection(safeCaret(e.committed))
		}
	case *NodeSelection:
		for k := range s.Nodes {
			if missing(k) {
				e.committed.SetSelection(safeCaret(e.committed))
				return
			}
		}
	}
}

func safeCaret(state *EditorState) Selection {
	root := state.Root()
	if len(root.Children()) > 0 {
		p := Point{Key: root.Children()[0], Offset: 0, Kind: PointElement}
		return NewRangeSelection(p, p)
	}
	p := Point{Key: RootKey, Offset: 0, Kind: PointElement}
	return NewRangeSelection(p, p)
}

func (e *Editor) commitPending(ctx *UpdateContext) {
	e.committed = e.pending
	e.pending = nil
	e.committed.nodes.ResetTransactionCaches()
	ctx.finalDirty = copyDirtySet(ctx.allDirty)

	if !ctx.skipHistory {
		e.history = append(e.history[:e.historyIndex+1], e.committed)
		e.historyIndex = len(e.history) - 1
	}
}

func copyDirtySet(d map[NodeKey]struct{}) map[NodeKey]struct{} {
	out := make(map[NodeKey]struct{}, len(d))
	for k := range d {
		out[k] = struct{}{}
	}
	return out
}

func (e *Editor) reconcileDecorators(ctx *UpdateContext) {
	if e.host == nil {
		return
	}
	for key := range ctx.finalDirty {
		n, ok := e.committed.GetNode(key)
		if !ok {
			e.decoratorCache.Forget(key)
			e.host.ReconcileDecorator(key, "remove", nil)
			continue
		}
		dn, ok := n.(*DecoratorNode)
		if !ok {
			continue
		}
		if e.decoratorCache.NeedsRender(key, dn.Payload()) {
			e.decoratorCache.Record(key, dn.Payload())
			e.host.ReconcileDecorator(key, "update", dn.Payload())
		}
	}
}

func (e *Editor) dispatchListeners(ctx *UpdateContext, opts UpdateOptions) {
	prevReadOnly := e.readOnly
	e.readOnly = true
	defer func() { e.readOnly = prevReadOnly }()

	e.listeners.notifyUpdate(ctx.prevCommitted, e.committed, ctx.finalDirty)
	if e.listeners.hasTextContentListeners() {
		changed := textChanged(ctx.finalDirty, e.committed)
		if ctx.prevCommitted != nil {
			changed = rebuildDocumentText(ctx.prevCommitted) != rebuildDocumentText(e.committed)
		}
		if changed {
			e.listeners.notifyTextContent(e.textContent())
		}
	}
}

func textChanged(dirty map[NodeKey]struct{}, state *EditorState) bool {
	for k := range dirty {
		if n, ok := state.GetNode(k); ok {
			if _, isText := n.(*TextNode); isText {
				return true
			}
		} else {
			return true
		}
	}
	return false
}

func (e *Editor) textContent() string {
	if e.host == nil {
		return ""
	}
	return e.host.TextStorage().String()
}

func (e *Editor) sanityCheck() error {
	if e.host == nil {
		return nil
	}
	got := e.host.TextStorage().String()
	want := rebuildDocumentText(e.committed)
	if got != want {
		return newSanityCheckError("reconciled buffer (%d runes) disagrees with full-rebuild projection (%d runes)", len([]rune(got)), len([]rune(want)))
	}
	if e.rangeCache.LiveIndexCount() != e.rangeCache.Len() {
		return newSanityCheckError("range cache has %d items but %d live indexes (orphaned: %v)",
			e.rangeCache.Len(), e.rangeCache.LiveIndexCount(), e.rangeCache.OrphanedLiveIndexes())
	}
	return nil
}
