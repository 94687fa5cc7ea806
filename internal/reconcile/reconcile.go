// Package reconcile classifies a state transition into one of the
// reconciler's edit strategies. It is deliberately ignorant of the
// node tree's concrete Go types — editorcore builds an Input from its
// own state diff and applies the returned Plan against its own
// Attributed Store, so this package has no import-cycle risk and can
// be unit tested with plain data.
package reconcile

// Strategy is the reconciler's choice of how to project a dirty set
// onto the rendered buffer (spec "Strategy selection").
type Strategy int

const (
	StrategyFullRebuild Strategy = iota
	StrategyHydration
	StrategySelectionOnly
	StrategyTextOnly
	StrategyBulkInsert
	StrategyBulkRemove
	StrategyGeneric
)

func (s Strategy) String() string {
	switch s {
	case StrategyFullRebuild:
		return "full_rebuild"
	case StrategyHydration:
		return "hydration"
	case StrategySelectionOnly:
		return "selection_only"
	case StrategyTextOnly:
		return "text_only"
	case StrategyBulkInsert:
		return "bulk_insert"
	case StrategyBulkRemove:
		return "bulk_remove"
	default:
		return "generic"
	}
}

// DiffKind classifies one node's change between prev and next (spec
// "Input classification (per dirty node key)").
type DiffKind int

const (
	DiffInsert DiffKind = iota
	DiffRemove
	DiffUpdate
	DiffMove
)

// NodeDiff describes one changed node. Key is opaque to this package;
// IsTextNode and ParentKey let Classify recognize the bulk and
// text-only shapes without needing the node's full type.
type NodeDiff struct {
	Key        string
	ParentKey  string
	Kind       DiffKind
	IsTextNode bool
}

// Input is everything Classify needs to pick a strategy.
type Input struct {
	FullReconcileRequested bool
	PrevEmpty              bool
	NextEmpty              bool
	DocLengthPrev          int
	DocLengthNext          int
	SelectionOnlyChanged   bool
	Diffs                  []NodeDiff
}

// Plan is Classify's output: the chosen strategy plus the diffs it
// was computed from, so the caller's apply step doesn't need to
// recompute anything.
type Plan struct {
	Strategy Strategy
	Diffs    []NodeDiff
}

// Classify implements the strategy-selection table (spec §4.5).
func Classify(in Input) Plan {
	if in.FullReconcileRequested || lengthMismatchAtLeastHalf(in.DocLengthPrev, in.DocLengthNext) {
		return Plan{Strategy: StrategyFullRebuild, Diffs: in.Diffs}
	}
	if in.PrevEmpty && !in.NextEmpty {
		return Plan{Strategy: StrategyHydration, Diffs: in.Diffs}
	}
	if in.SelectionOnlyChanged && len(in.Diffs) == 0 {
		return Plan{Strategy: StrategySelectionOnly}
	}
	if allTextOnlyUpdates(in.Diffs) {
		return Plan{Strategy: StrategyTextOnly, Diffs: in.Diffs}
	}
	if strategy, ok := bulkStrategy(in.Diffs); ok {
		return Plan{Strategy: strategy, Diffs: in.Diffs}
	}
	return Plan{Strategy: StrategyGeneric, Diffs: in.Diffs}
}

func lengthMismatchAtLeastHalf(prev, next int) bool {
	if prev == 0 {
		// An empty-to-non-empty transition is hydration, not a rebuild.
		return false
	}
	delta := next - prev
	if delta < 0 {
		delta = -delta
	}
	return delta*2 >= prev
}

func allTextOnlyUpdates(diffs []NodeDiff) bool {
	if len(diffs) == 0 {
		return false
	}
	for _, d := range diffs {
		if d.Kind != DiffUpdate || !d.IsTextNode {
			return false
		}
	}
	return true
}

// bulkStrategy recognizes "single parent gains/loses K>=2 children, no
// opposite-kind diffs". Contiguity is not checked: any K>=2 inserts
// (or K>=2 removes) under one parent qualify.
func bulkStrategy(diffs []NodeDiff) (Strategy, bool) {
	if len(diffs) < 2 {
		return 0, false
	}
	parent := diffs[0].ParentKey
	kind := diffs[0].Kind
	if kind != DiffInsert && kind != DiffRemove {
		return 0, false
	}
	for _, d := range diffs {
		if d.ParentKey != parent || d.Kind != kind {
			return 0, false
		}
	}
	if kind == DiffInsert {
		return StrategyBulkInsert, true
	}
	return StrategyBulkRemove, true
}

// Reconciler is a stateless strategy selector; editorcore holds one
// per Editor so the public API mirrors the spec's component naming,
// but all the logic lives in Classify since there is no per-call
// state to retain between reconcile passes.
type Reconciler struct{}

// New returns a Reconciler.
func New() *Reconciler { return &Reconciler{} }

// Classify delegates to the package-level Classify function.
func (r *Reconciler) Classify(in Input) Plan { return Classify(in) }
