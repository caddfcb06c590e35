// Package movement computes where a selected unit may move. Costs, budgets
// and blocks come entirely from the ontology: OnEnter relations between the
// unit's bindings and the destination tile's bindings price or forbid each
// step, and a best-first search spreads the unit's budget over the board.
package movement

import (
	"slices"

	"github.com/louisbranch/boardrules/internal/entity"
	"github.com/louisbranch/boardrules/internal/hexgrid"
	"github.com/louisbranch/boardrules/internal/ontology"
)

// DefaultBudget is used when no relation or binding yields a budget.
const DefaultBudget = 100

// Unit is a placed token.
type Unit struct {
	ID       string           `json:"id"`
	Position hexgrid.Position `json:"position"`
	Data     entity.Data      `json:"data"`
}

// Board is the live board state read by the evaluator.
type Board struct {
	Radius int                              `json:"radius"`
	Tiles  map[hexgrid.Position]entity.Data `json:"-"`
	Units  map[string]Unit                  `json:"-"`
}

// Input is everything one computation reads.
type Input struct {
	// Selection is the id of the selected unit; empty means nothing is
	// selected.
	Selection string
	Ontology  *ontology.Registry
	Types     *entity.TypeRegistry
	Board     Board
	// FallbackBudget replaces DefaultBudget when positive.
	FallbackBudget int
}

// BudgetSource records where the initial budget came from.
type BudgetSource string

const (
	BudgetFromRelation BudgetSource = "relation"
	BudgetFromBinding  BudgetSource = "binding"
	BudgetFromDefault  BudgetSource = "default"
	BudgetUnlimited    BudgetSource = "unconstrained"
)

// ValidMoveSet is the reachable set for one unit. Valid maps each
// destination to the best remaining budget it was reached with; Blocked maps
// positions no path could reach to their explanations. A position is never
// in both. Unconstrained results report zero remaining budget everywhere.
type ValidMoveSet struct {
	EntityID     string                        `json:"entity_id"`
	Origin       hexgrid.Position              `json:"origin"`
	Budget       int                           `json:"budget"`
	BudgetName   string                        `json:"budget_name,omitempty"`
	BudgetSource BudgetSource                  `json:"budget_source"`
	Valid        map[hexgrid.Position]int      `json:"-"`
	Blocked      map[hexgrid.Position][]string `json:"-"`
}

// IsValid reports whether pos is a valid destination.
func (s ValidMoveSet) IsValid(pos hexgrid.Position) bool {
	_, ok := s.Valid[pos]
	return ok
}

// Reasons returns the explanations recorded for a blocked position.
func (s ValidMoveSet) Reasons(pos hexgrid.Position) []string {
	return s.Blocked[pos]
}

// ValidPositions returns the valid destinations in ring order.
func (s ValidMoveSet) ValidPositions() []hexgrid.Position {
	out := make([]hexgrid.Position, 0, len(s.Valid))
	for pos := range s.Valid {
		out = append(out, pos)
	}
	hexgrid.Sort(out)
	return out
}

// BlockedPositions returns the blocked positions in ring order.
func (s ValidMoveSet) BlockedPositions() []hexgrid.Position {
	out := make([]hexgrid.Position, 0, len(s.Blocked))
	for pos := range s.Blocked {
		out = append(out, pos)
	}
	hexgrid.Sort(out)
	return out
}

func (s *ValidMoveSet) block(pos hexgrid.Position, reasons []string) {
	if _, ok := s.Valid[pos]; ok {
		return
	}
	existing := s.Blocked[pos]
	for _, reason := range reasons {
		if !slices.Contains(existing, reason) {
			existing = append(existing, reason)
		}
	}
	s.Blocked[pos] = existing
}

func (s *ValidMoveSet) allow(pos hexgrid.Position, remaining int) bool {
	if prev, ok := s.Valid[pos]; ok && remaining <= prev {
		return false
	}
	s.Valid[pos] = remaining
	delete(s.Blocked, pos)
	return true
}

// Compute returns the move set for the selection. The bool is false when
// nothing is selected or the selected unit is not on the board, in which
// case any previous result should be cleared.
func Compute(in Input) (ValidMoveSet, bool) {
	if in.Selection == "" {
		return ValidMoveSet{}, false
	}
	unit, ok := in.Board.Units[in.Selection]
	if !ok {
		return ValidMoveSet{}, false
	}
	reg := in.Ontology
	if reg == nil {
		reg = ontology.NewRegistry()
	}

	set := ValidMoveSet{
		EntityID: unit.ID,
		Origin:   unit.Position,
		Valid:    make(map[hexgrid.Position]int),
		Blocked:  make(map[hexgrid.Position][]string),
	}
	if set.EntityID == "" {
		set.EntityID = in.Selection
	}

	onEnter := onEnterRelations(reg)
	if len(onEnter) == 0 && reg.Constraints.Len() == 0 {
		set.BudgetSource = BudgetUnlimited
		for _, pos := range hexgrid.Within(in.Board.Radius) {
			if pos != unit.Position {
				set.Valid[pos] = 0
			}
		}
		return set, true
	}

	unitBindings := reg.BindingsForType(unit.Data.TypeID)
	budget := resolveBudget(onEnter, unitBindings, unit.Data, in.FallbackBudget)
	set.Budget, set.BudgetName, set.BudgetSource = budget.amount, budget.name, budget.source

	steps := &stepper{
		reg:          reg,
		types:        in.Types,
		relations:    onEnter,
		unitTypeID:   unit.Data.TypeID,
		unitBindings: unitBindings,
		unitName:     unitLabel(in.Types, unit),
		budgetName:   budget.name,
		tiles:        in.Board.Tiles,
		tileBindings: make(map[string][]ontology.ConceptBinding),
	}
	search(&set, steps, in.Board.Radius)
	return set, true
}

func onEnterRelations(reg *ontology.Registry) []ontology.Relation {
	var out []ontology.Relation
	for _, rel := range reg.Relations.List() {
		if rel.Trigger == ontology.TriggerOnEnter && rel.Effect != nil {
			out = append(out, rel)
		}
	}
	return out
}

func unitLabel(types *entity.TypeRegistry, unit Unit) string {
	if t, ok := types.Get(unit.Data.TypeID); ok {
		if unit.ID != "" {
			return t.Label() + " " + unit.ID
		}
		return t.Label()
	}
	return unit.ID
}
