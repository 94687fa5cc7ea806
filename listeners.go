package editorcore

// UpdateListener is invoked post-commit with the previous state, the
// newly-committed state, and the set of node keys touched during the
// update (spec §4.7).
type UpdateListener func(prev, next *EditorState, dirty map[NodeKey]struct{})

// TextContentListener is invoked only when the root's text content
// changed; text is computed lazily and only if at least one such
// listener is registered (spec §4.7).
type TextContentListener func(text string)

// ErrorListener is invoked whenever an update is caught and rolled
// back (spec §4.8, §7).
type ErrorListener func(err error)

// NodeTransform runs once per dirty node of its registered type during
// the transform-fixpoint phase (spec §4.8 step 5). It may mutate the
// node (via the pending state) and/or dirty further nodes; returning
// an error aborts the whole update.
type NodeTransform func(ctx *UpdateContext, key NodeKey) error

// listenerRegistry holds every subscription kind an Editor owns.
// Removal functions returned at registration are idempotent, matching
// the bus's own idempotent-unregister discipline.
type listenerRegistry struct {
	update      []*idListener[UpdateListener]
	textContent []*idListener[TextContentListener]
	errorL      []*idListener[ErrorListener]
	transforms  map[string][]*idListener[NodeTransform]
	nextID      uint64
}

type idListener[T any] struct {
	id uint64
	fn T
}

func newListenerRegistry() *listenerRegistry {
	return &listenerRegistry{transforms: make(map[string][]*idListener[NodeTransform])}
}

func (r *listenerRegistry) RegisterUpdateListener(fn UpdateListener) func() {
	r.nextID++
	id := r.nextID
	r.update = append(r.update, &idListener[UpdateListener]{id: id, fn: fn})
	removed := false
	return func() {
		if removed {
			return
		}
		removed = true
		r.update = removeByID(r.update, id)
	}
}

func (r *listenerRegistry) RegisterTextContentListener(fn TextContentListener) func() {
	r.nextID++
	id := r.nextID
	r.textContent = append(r.textContent, &idListener[TextContentListener]{id: id, fn: fn})
	removed := false
	return func() {
		if removed {
			return
		}
		removed = true
		r.textContent = removeByID(r.textContent, id)
	}
}

func (r *listenerRegistry) RegisterErrorListener(fn ErrorListener) func() {
	r.nextID++
	id := r.nextID
	r.errorL = append(r.errorL, &idListener[ErrorListener]{id: id, fn: fn})
	removed := false
	return func() {
		if removed {
			return
		}
		removed = true
		r.errorL = removeByID(r.errorL, id)
	}
}

func (r *listenerRegistry) RegisterNodeTransform(nodeType string, fn NodeTransform) func() {
	r.nextID++
	id := r.nextID
	r.transforms[nodeType] = append(r.transforms[nodeType], &idListener[NodeTransform]{id: id, fn: fn})
	removed := false
	return func() {
		if removed {
			return
		}
		removed = true
		r.transforms[nodeType] = removeByID(r.transforms[nodeType], id)
	}
}

func removeByID[T any](ls []*idListener[T], id uint64) []*idListener[T] {
	for i, l := range ls {
		if l.id == id {
			return append(ls[:i:i], ls[i+1:]...)
		}
	}
	return ls
}

func (r *listenerRegistry) hasTextContentListeners() bool { return len(r.textContent) > 0 }

func (r *listenerRegistry) notifyUpdate(prev, next *EditorState, dirty map[NodeKey]struct{}) {
	for _, l := range r.update {
		l.fn(prev, next, dirty)
	}
}

func (r *listenerRegistry) notifyTextContent(text string) {
	for _, l := range r.textContent {
		l.fn(text)
	}
}

func (r *listenerRegistry) notifyError(err error) {
	for _, l := range r.errorL {
		l.fn(err)
	}
}
