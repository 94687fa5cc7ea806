// Package fenwick implements a binary-indexed tree (Fenwick tree) of
// integer deltas over 1-based positions, used by editorcore's range
// cache to apply lazy location shifts in O(log N) instead of rewriting
// every node's absolute location on a text-only edit.
//
// The tree stores deltas, not absolute values: Add(pos, delta) records
// that every position >= pos has shifted by delta, and PrefixSum(pos)
// returns the accumulated shift to apply at that position. Nothing in
// this package knows about nodes, DFS order, or documents — it is pure
// arithmetic, grounded on the classic Fenwick/BIT recurrence (no
// widely-used third-party Go package implements this narrow a
// primitive, so it is hand-written against the textbook algorithm
// rather than pulled from a dependency).
package fenwick

// Tree is a 1-indexed Fenwick tree over [1, size]. The zero value is an
// empty tree; call Grow before using it, or rely on Add/Grow calls to
// size it lazily.
type Tree struct {
	sums []int64 // sums[0] is unused; sums[i] covers a range ending at i
}

// New returns a Tree sized to hold positions in [1, size].
func New(size int) *Tree {
	return &Tree{sums: make([]int64, size+1)}
}

// Size returns the maximum position the tree currently accommodates.
func (t *Tree) Size() int {
	if t == nil {
		return 0
	}
	return len(t.sums) - 1
}

// Grow resizes the tree to accommodate at least the given position,
// preserving all previously recorded deltas. Growing copies prior
// prefix sums forward: the newly added positions start with zero
// additional delta beyond what prefix sums already implied for them.
func (t *Tree) Grow(pos int) {
	if pos <= t.Size() {
		return
	}
	old := &Tree{sums: t.sums}
	oldSize := t.Size()
	t.sums = make([]int64, pos+1)
	var prev int64
	for i := 1; i <= oldSize; i++ {
		cur := old.PrefixSum(i)
		if d := cur - prev; d != 0 {
			t.Add(i, d)
		}
		prev = cur
	}
}

// Add records that position pos (and, by prefix-sum semantics, every
// subsequent position) has shifted by delta. O(log N).
func (t *Tree) Add(pos int, delta int64) {
	if delta == 0 {
		return
	}
	if pos < 1 {
		pos = 1
	}
	t.Grow(pos)
	for i := pos; i < len(t.sums); i += i & (-i) {
		t.sums[i] += delta
	}
}

// PrefixSum returns the sum of all deltas recorded at positions <= pos.
// O(log N). Positions beyond the tree's current size are clamped, per
// the spec's actual_location formula: location + prefix_sum(min(dfs_position, tree_size)).
func (t *Tree) PrefixSum(pos int) int64 {
	if t == nil || pos <= 0 {
		return 0
	}
	if pos > t.Size() {
		pos = t.Size()
	}
	var sum int64
	for i := pos; i > 0; i -= i & (-i) {
		sum += t.sums[i]
	}
	return sum
}

// Reset clears every delta while keeping the tree's current capacity.
// Used after deltas have been materialized into absolute base locations.
func (t *Tree) Reset() {
	for i := range t.sums {
		t.sums[i] = 0
	}
}

// ResetSized clears the tree and grows it to at least size, in one call
// — the common "rebuild with capacity >= node count" pattern used by a
// full reconcile.
func (t *Tree) ResetSized(size int) {
	if size < 0 {
		size = 0
	}
	t.sums = make([]int64, size+1)
}
