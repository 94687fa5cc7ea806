package editorcore

import "go.uber.org/zap"

// EditorState is the immutable-by-convention snapshot pairing a node
// map with an optional selection and a monotonic version tag used for
// serialization migrations (spec §3.1). States are value-like:
// Clone produces a structurally-shared copy, never a deep one.
type EditorState struct {
	nodes     *NodeMap
	selection Selection
	version   int

	logger *zap.Logger
}

// NewEditorState returns a fresh state: an empty root, no selection,
// version 0.
func NewEditorState() *EditorState {
	return &EditorState{
		nodes:  NewNodeMap(),
		logger: defaultLogger,
	}
}

// Clone returns a structurally-shared copy. Mutating the clone's node
// map privatizes only the nodes actually touched; the selection (if
// any) is deep-copied since selections are small and always
// logically owned by one state.
func (s *EditorState) Clone() *EditorState {
	clone := &EditorState{
		nodes:   s.nodes.Clone(),
		version: s.version,
		logger:  s.logger,
	}
	if s.selection != nil {
		clone.selection = s.selection.clone()
	}
	return clone
}

// Version returns the state's serialization version tag.
func (s *EditorState) Version() int { return s.version }

// Selection returns the current selection, or nil if none is set.
func (s *EditorState) Selection() Selection { return s.selection }

// SetSelection replaces the state's selection.
func (s *EditorState) SetSelection(sel Selection) { s.selection = sel }

// Root returns the root node.
func (s *EditorState) Root() *RootNode {
	n, ok := s.nodes.Get(RootKey)
	if !ok {
		panic(newInvariantViolation("state has no root node"))
	}
	root, ok := n.(*RootNode)
	if !ok {
		panic(newInvariantViolation("root key bound to non-root node of type %T", n))
	}
	return root
}

// GetNode returns the node for key.
func (s *EditorState) GetNode(key NodeKey) (Node, bool) {
	return s.nodes.Get(key)
}

// WithLogger attaches a zap logger to states cloned from s going
// forward (an Editor typically calls this once at construction).
func (s *EditorState) WithLogger(l *zap.Logger) *EditorState {
	s.logger = l
	return s
}
