package movement

import (
	"fmt"
	"math"

	"github.com/louisbranch/boardrules/internal/entity"
	"github.com/louisbranch/boardrules/internal/hexgrid"
	"github.com/louisbranch/boardrules/internal/ontology"
)

type stepResult struct {
	valid     bool
	remaining int
	reasons   []string
}

type stepper struct {
	reg          *ontology.Registry
	types        *entity.TypeRegistry
	relations    []ontology.Relation
	unitTypeID   string
	unitBindings []ontology.ConceptBinding
	unitName     string
	budgetName   string
	tiles        map[hexgrid.Position]entity.Data

	// tileBindings caches bindings per tile type for one computation.
	tileBindings map[string][]ontology.ConceptBinding
}

func (s *stepper) bindingsFor(typeID string) []ontology.ConceptBinding {
	if typeID == "" {
		return nil
	}
	if cached, ok := s.tileBindings[typeID]; ok {
		return cached
	}
	bindings := s.reg.BindingsForType(typeID)
	s.tileBindings[typeID] = bindings
	return bindings
}

func (s *stepper) tileName(tile entity.Data, pos hexgrid.Position) string {
	if t, ok := s.types.Get(tile.TypeID); ok {
		return t.Label() + " " + pos.String()
	}
	return pos.String()
}

func (s *stepper) typeLabel(typeID string) string {
	if t, ok := s.types.Get(typeID); ok {
		return t.Label()
	}
	return ""
}

// evaluate prices entering dest with remaining budget left.
func (s *stepper) evaluate(dest hexgrid.Position, remaining int) stepResult {
	tile := s.tiles[dest]
	tileBindings := s.bindingsFor(tile.TypeID)
	relations := s.relations
	if len(tileBindings) == 0 {
		// An unbound tile participates in no relation.
		relations = nil
	}

	var (
		cost    int
		blocked bool
		reasons []string
	)
	for _, rel := range relations {
		if _, ok := ontology.FindBinding(s.unitBindings, rel.ConceptID, rel.SubjectRoleID); !ok {
			continue
		}
		objectBinding, ok := ontology.FindBinding(tileBindings, rel.ConceptID, rel.ObjectRoleID)
		if !ok {
			continue
		}
		switch effect := rel.Effect.(type) {
		case ontology.ModifyProperty:
			amount, _ := readInt(objectBinding, effect.SourceProperty, tile)
			switch effect.Operation {
			case ontology.OpSubtract:
				cost = addSaturating(cost, amount)
			case ontology.OpAdd:
				cost = subSaturating(cost, amount)
			default:
				continue
			}
			if cost > remaining {
				reasons = append(reasons, fmt.Sprintf("%s: %s needs %d %s to enter %s",
					rel.Label(), s.unitName, cost, s.budgetName, s.tileName(tile, dest)))
			}
		case ontology.Block:
			if effect.Condition != nil && !conditionHolds(effect.Condition, rel, s.unitTypeID, tile.TypeID) {
				continue
			}
			blocked = true
			reason := fmt.Sprintf("%s: %s cannot enter %s", rel.Label(), s.unitName, s.tileName(tile, dest))
			if effect.Condition != nil {
				reason += " (" + ontology.DescribeExpr(effect.Condition, ontology.Labels{Role: s.reg.RoleName, Type: s.typeLabel}) + ")"
			}
			reasons = append(reasons, reason)
		case ontology.Allow:
			// Allow carries no movement semantics.
		}
	}

	if blocked {
		return stepResult{reasons: reasons}
	}
	if cost > remaining {
		if len(reasons) == 0 {
			reasons = append(reasons, fmt.Sprintf("%s needs %d %s to enter %s", s.unitName, cost, s.budgetName, s.tileName(tile, dest)))
		}
		return stepResult{reasons: reasons}
	}
	return stepResult{valid: true, remaining: subSaturating(remaining, cost)}
}

// addSaturating returns a+b clamped to the int range.
func addSaturating(a, b int) int {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return math.MaxInt
	case b < 0 && a < math.MinInt-b:
		return math.MinInt
	}
	return a + b
}

// subSaturating returns a-b clamped to the int range.
func subSaturating(a, b int) int {
	switch {
	case b < 0 && a > math.MaxInt+b:
		return math.MaxInt
	case b > 0 && a < math.MinInt+b:
		return math.MinInt
	}
	return a - b
}

// conditionHolds evaluates a block condition. Type checks read the subject
// or object type by role; a role that is neither reads as no type. Kinds
// other than type checks and boolean composition hold.
func conditionHolds(e ontology.Expr, rel ontology.Relation, subjectType, objectType string) bool {
	typeOf := func(roleID string) string {
		switch roleID {
		case rel.SubjectRoleID:
			return subjectType
		case rel.ObjectRoleID:
			return objectType
		}
		return ""
	}
	switch n := e.(type) {
	case ontology.IsType:
		return typeOf(n.RoleID) == n.EntityTypeID
	case ontology.IsNotType:
		return typeOf(n.RoleID) != n.EntityTypeID
	case ontology.All:
		for _, child := range n.Exprs {
			if !conditionHolds(child, rel, subjectType, objectType) {
				return false
			}
		}
		return true
	case ontology.Any:
		for _, child := range n.Exprs {
			if conditionHolds(child, rel, subjectType, objectType) {
				return true
			}
		}
		return false
	case ontology.Not:
		return !conditionHolds(n.Expr, rel, subjectType, objectType)
	}
	return true
}
