package movement

import (
	"github.com/louisbranch/boardrules/internal/entity"
	"github.com/louisbranch/boardrules/internal/ontology"
)

// budgetLocalName is the binding name consulted when no relation names the
// unit's budget.
const budgetLocalName = "budget"

type budget struct {
	amount int
	name   string
	source BudgetSource
}

// resolveBudget reads the unit's starting budget. The first OnEnter subtract
// relation whose subject role the unit binds decides which property holds
// it; failing that, any binding exposing "budget" is used, and finally the
// fallback constant. Missing wiring never yields a zero budget.
func resolveBudget(relations []ontology.Relation, bindings []ontology.ConceptBinding, data entity.Data, fallback int) budget {
	for _, rel := range relations {
		modify, ok := ontology.IsSubtract(rel.Effect)
		if !ok {
			continue
		}
		binding, ok := ontology.FindBinding(bindings, rel.ConceptID, rel.SubjectRoleID)
		if !ok {
			continue
		}
		if amount, ok := readInt(binding, modify.TargetProperty, data); ok {
			return budget{amount: amount, name: modify.TargetProperty, source: BudgetFromRelation}
		}
	}
	for _, binding := range bindings {
		if amount, ok := readInt(binding, budgetLocalName, data); ok {
			return budget{amount: amount, name: budgetLocalName, source: BudgetFromBinding}
		}
	}
	if fallback <= 0 {
		fallback = DefaultBudget
	}
	return budget{amount: fallback, name: budgetLocalName, source: BudgetFromDefault}
}

// readInt resolves a concept-local name through binding and reads it off
// data as an integer. Floats truncate toward zero.
func readInt(binding ontology.ConceptBinding, localName string, data entity.Data) (int, bool) {
	propertyID, ok := binding.PropertyFor(localName)
	if !ok {
		return 0, false
	}
	value, ok := data.Get(propertyID)
	if !ok {
		return 0, false
	}
	return value.Integer()
}
