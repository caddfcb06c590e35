package movement

import (
	"github.com/louisbranch/boardrules/internal/ontology"
)

// Evaluator recomputes the move set when the selection, the ontology, the
// entity types, the board radius or the fallback budget change. Board content edits do not
// trigger a recompute; call Invalidate after them if needed.
type Evaluator struct {
	seen      bool
	selection string
	radius    int
	fallback  int
	ontology  ontology.Version
	types     uint64

	result   ValidMoveSet
	selected bool
}

// Update recomputes if an input moved and reports whether it did.
func (e *Evaluator) Update(in Input) bool {
	ov, tv := in.Ontology.Version(), in.Types.Version()
	if e.seen && in.Selection == e.selection && in.Board.Radius == e.radius && in.FallbackBudget == e.fallback && ov == e.ontology && tv == e.types {
		return false
	}
	e.result, e.selected = Compute(in)
	e.seen = true
	e.selection, e.radius, e.fallback = in.Selection, in.Board.Radius, in.FallbackBudget
	e.ontology, e.types = ov, tv
	return true
}

// Result returns the current move set. The bool is false when nothing is
// selected.
func (e *Evaluator) Result() (ValidMoveSet, bool) {
	return e.result, e.selected
}

// Invalidate forces the next Update to recompute.
func (e *Evaluator) Invalidate() { e.seen = false }
