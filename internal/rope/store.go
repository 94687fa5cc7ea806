package rope

import "strings"

// Mode distinguishes host-originated edits from core-originated edits
// (spec §5, "the Attributed Store has a mode discriminator"). While
// ModeController is set, the store is inside a reconciler-driven
// begin/end-editing transaction and host-visible change callbacks are
// suppressed.
type Mode int

const (
	ModeNone Mode = iota
	ModeController
)

// EditKind classifies a single edit for the host notification (edit_mask).
type EditKind int

const (
	EditInsert EditKind = 1 << iota
	EditDelete
	EditAttributes
)

// HostNotice is published at the end of every transaction (spec
// §4.6, "Host notification").
type HostNotice struct {
	Mask        EditKind
	Range       [2]int // [start, end) in the *pre-edit* coordinate space
	LengthDelta int
}

// Store is the Attributed Store: a rope of Chunks with transactional
// batched edits and a lazily re-cached materialized string.
type Store struct {
	root *node
	mode Mode

	inTxn   bool
	pending []HostNotice
	notify  func(HostNotice)

	cache      string
	cacheValid bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

// OnChange registers the callback invoked once per transaction with the
// aggregated host notification. Passing nil disables notification.
func (s *Store) OnChange(f func(HostNotice)) {
	s.notify = f
}

// SetMode sets the host/controller discriminator.
func (s *Store) SetMode(m Mode) { s.mode = m }

// Mode returns the current discriminator.
func (s *Store) Mode() Mode { return s.mode }

// Length returns the total byte length in O(1).
func (s *Store) Length() int {
	return length(s.root)
}

// BeginEditing starts a batched transaction; all edits issued before
// the matching EndEditing are coalesced into one host notification.
func (s *Store) BeginEditing() {
	s.inTxn = true
	s.pending = s.pending[:0]
}

// EndEditing closes the transaction and publishes a single aggregated
// HostNotice (if any edits occurred and a callback is registered).
func (s *Store) EndEditing() {
	s.inTxn = false
	if len(s.pending) == 0 {
		return
	}
	agg := s.pending[0]
	for _, n := range s.pending[1:] {
		agg.Mask |= n.Mask
		if n.Range[0] < agg.Range[0] {
			agg.Range[0] = n.Range[0]
		}
		if n.Range[1] > agg.Range[1] {
			agg.Range[1] = n.Range[1]
		}
		agg.LengthDelta += n.LengthDelta
	}
	s.pending = s.pending[:0]
	if s.notify != nil {
		s.notify(agg)
	}
}

func (s *Store) publish(notice HostNotice) {
	s.invalidate(notice.Range[0], notice.LengthDelta)
	if s.inTxn {
		s.pending = append(s.pending, notice)
		return
	}
	if s.notify != nil {
		s.notify(notice)
	}
}

// invalidate drops the cached whole-document string on every edit,
// wherever the edit lands: cached text before or after the edit point
// is not kept or shifted, and the next whole-document read
// re-materializes it from the rope. The region-scoped reader below
// never consults this cache at all.
func (s *Store) invalidate(int, int) {
	s.cacheValid = false
}

// Insert splices chunk into the store at byte offset at.
func (s *Store) Insert(at int, chunk Chunk) {
	n := leafChunk(chunk)
	if n == nil {
		return
	}
	l, r := split(s.root, at)
	s.root = concat(concat(l, n), r)
	s.publish(HostNotice{Mask: EditInsert, Range: [2]int{at, at}, LengthDelta: chunk.len()})
}

// Delete removes the byte range [start, end) from the store.
func (s *Store) Delete(start, end int) {
	if end <= start {
		return
	}
	l, mid := split(s.root, start)
	_, r := split(mid, end-start)
	s.root = concat(l, r)
	s.publish(HostNotice{Mask: EditDelete, Range: [2]int{start, end}, LengthDelta: start - end})
}

// Replace is delete+insert as a single edit.
func (s *Store) Replace(start, end int, chunk Chunk) {
	s.Delete(start, end)
	s.Insert(start, chunk)
}

// Clear empties the store; used by the reconciler's full-rebuild path.
func (s *Store) Clear() {
	n := length(s.root)
	s.root = nil
	if n > 0 {
		s.publish(HostNotice{Mask: EditDelete, Range: [2]int{0, n}, LengthDelta: -n})
	}
}

// ChunkAt returns the chunk containing byte offset index and that
// chunk's absolute start offset, in O(log N).
func (s *Store) ChunkAt(index int) (Chunk, int, bool) {
	return chunkAt(s.root, index)
}

// AttributesAt returns the effective attribute run containing index.
func (s *Store) AttributesAt(index int) (Attributes, bool) {
	c, base, ok := s.ChunkAt(index)
	if !ok {
		return nil, false
	}
	rel := index - base
	for _, r := range c.Runs {
		if rel >= r.Start && rel < r.End {
			return r.Attrs, true
		}
	}
	return nil, false
}

// SetAttributes extracts [start,end) as a single chunk with attrs
// applied uniformly and re-knits the rope around it.
func (s *Store) SetAttributes(start, end int, attrs Attributes) {
	if end <= start {
		return
	}
	l, mid := split(s.root, start)
	extracted, r := split(mid, end-start)

	var sb strings.Builder
	materialize(extracted, &sb)
	key := ""
	if extracted != nil {
		forEachChunk(extracted, 0, func(_ int, c Chunk) {
			if key == "" {
				key = c.NodeKey
			}
		})
	}
	text := sb.String()
	replacement := leafChunk(Chunk{
		Text:    text,
		Runs:    []Run{{Start: 0, End: len(text), Attrs: attrs}},
		NodeKey: key,
	})
	s.root = concat(concat(l, replacement), r)
	s.publish(HostNotice{Mask: EditAttributes, Range: [2]int{start, end}})
}

// String materializes the full document text, caching the result
// until the next mutation.
func (s *Store) String() string {
	if s.cacheValid {
		return s.cache
	}
	var sb strings.Builder
	sb.Grow(length(s.root))
	materialize(s.root, &sb)
	s.cache = sb.String()
	s.cacheValid = true
	return s.cache
}

// Substring materializes only [start, end) without touching the
// whole-document cache — the "range-scoped materializer" the spec
// calls for.
func (s *Store) Substring(start, end int) string {
	if end <= start {
		return ""
	}
	var sb strings.Builder
	forEachChunk(s.root, 0, func(base int, c Chunk) {
		chunkEnd := base + len(c.Text)
		if chunkEnd <= start || base >= end {
			return
		}
		lo := max(0, start-base)
		hi := len(c.Text) - max(0, chunkEnd-end)
		if lo < hi {
			sb.WriteString(c.Text[lo:hi])
		}
	})
	return sb.String()
}

// ForEachChunk visits every leaf chunk in document order with its
// absolute start offset.
func (s *Store) ForEachChunk(f func(start int, c Chunk)) {
	forEachChunk(s.root, 0, f)
}
