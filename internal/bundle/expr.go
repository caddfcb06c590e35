package bundle

import (
	"fmt"

	"github.com/louisbranch/boardrules/internal/entity"
	"github.com/louisbranch/boardrules/internal/ontology"
	apperrors "github.com/louisbranch/boardrules/internal/platform/errors"
)

func (b *Builder) effect(conceptID string, doc EffectDoc) (ontology.Effect, error) {
	set := 0
	for _, present := range []bool{doc.Modify != nil, doc.Block != nil, doc.Allow != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, apperrors.New(apperrors.CodeBundleInvalidEffect, fmt.Sprintf("effect must set exactly one of modify, block or allow, got %d", set))
	}
	switch {
	case doc.Modify != nil:
		op, ok := ontology.ParseModifyOperation(doc.Modify.Operation)
		if !ok {
			return nil, apperrors.WithMetadata(apperrors.CodeBundleUnknownOperation,
				fmt.Sprintf("unknown modify operation %q", doc.Modify.Operation),
				map[string]string{"operation": doc.Modify.Operation})
		}
		return ontology.ModifyProperty{TargetProperty: doc.Modify.Target, SourceProperty: doc.Modify.Source, Operation: op}, nil
	case doc.Block != nil:
		cond, err := b.condition(conceptID, doc.Block)
		if err != nil {
			return nil, err
		}
		return ontology.Block{Condition: cond}, nil
	default:
		cond, err := b.condition(conceptID, doc.Allow)
		if err != nil {
			return nil, err
		}
		return ontology.Allow{Condition: cond}, nil
	}
}

func (b *Builder) condition(conceptID string, doc *ConditionDoc) (ontology.Expr, error) {
	if doc.Condition == nil {
		return nil, nil
	}
	return b.expr(conceptID, *doc.Condition)
}

func (b *Builder) ref(conceptID string, doc RefDoc) (ontology.PropertyRef, error) {
	roleID, err := b.resolveRole(conceptID, doc.Role)
	if err != nil {
		return ontology.PropertyRef{}, err
	}
	return ontology.PropertyRef{RoleID: roleID, Name: doc.Property}, nil
}

func compareOp(raw string) (ontology.CompareOp, error) {
	op, ok := ontology.ParseCompareOp(raw)
	if !ok {
		return "", apperrors.WithMetadata(apperrors.CodeBundleInvalidExpr,
			fmt.Sprintf("unknown comparison %q", raw),
			map[string]string{"op": raw})
	}
	return op, nil
}

// expr resolves role and type names in doc within the given concept.
func (b *Builder) expr(conceptID string, doc ExprDoc) (ontology.Expr, error) {
	set := 0
	for _, present := range []bool{
		doc.Compare != nil, doc.CrossCompare != nil, doc.IsType != nil, doc.IsNotType != nil,
		doc.PathBudget != nil, doc.All != nil, doc.Any != nil, doc.Not != nil,
	} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, apperrors.New(apperrors.CodeBundleInvalidExpr, fmt.Sprintf("expression must set exactly one form, got %d", set))
	}

	switch {
	case doc.Compare != nil:
		left, err := b.ref(conceptID, RefDoc{Role: doc.Compare.Role, Property: doc.Compare.Property})
		if err != nil {
			return nil, err
		}
		op, err := compareOp(doc.Compare.Op)
		if err != nil {
			return nil, err
		}
		var value entity.Value
		if doc.Compare.Kind != "" {
			kind, ok := entity.ParseValueKind(doc.Compare.Kind)
			if !ok {
				return nil, apperrors.WithMetadata(apperrors.CodeBundleUnknownValueKind,
					fmt.Sprintf("unknown value kind %q", doc.Compare.Kind),
					map[string]string{"kind": doc.Compare.Kind})
			}
			value, err = ParseValue(kind, doc.Compare.Value, nil)
		} else {
			value, err = InferValue(doc.Compare.Value)
		}
		if err != nil {
			return nil, err
		}
		return ontology.Compare{Left: left, Op: op, Value: value}, nil

	case doc.CrossCompare != nil:
		left, err := b.ref(conceptID, doc.CrossCompare.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.ref(conceptID, doc.CrossCompare.Right)
		if err != nil {
			return nil, err
		}
		op, err := compareOp(doc.CrossCompare.Op)
		if err != nil {
			return nil, err
		}
		return ontology.CrossCompare{Left: left, Op: op, Right: right}, nil

	case doc.IsType != nil, doc.IsNotType != nil:
		check := doc.IsType
		if check == nil {
			check = doc.IsNotType
		}
		roleID, err := b.resolveRole(conceptID, check.Role)
		if err != nil {
			return nil, err
		}
		typeID, err := b.resolveType(check.Type)
		if err != nil {
			return nil, err
		}
		if doc.IsType != nil {
			return ontology.IsType{RoleID: roleID, EntityTypeID: typeID}, nil
		}
		return ontology.IsNotType{RoleID: roleID, EntityTypeID: typeID}, nil

	case doc.PathBudget != nil:
		cost, err := b.ref(conceptID, doc.PathBudget.Cost)
		if err != nil {
			return nil, err
		}
		budget, err := b.ref(conceptID, doc.PathBudget.Budget)
		if err != nil {
			return nil, err
		}
		return ontology.PathBudget{Cost: cost, Budget: budget}, nil

	case doc.All != nil, doc.Any != nil:
		children := doc.All
		if doc.Any != nil {
			children = doc.Any
		}
		exprs := make([]ontology.Expr, 0, len(children))
		for _, child := range children {
			e, err := b.expr(conceptID, child)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, e)
		}
		if doc.All != nil {
			return ontology.All{Exprs: exprs}, nil
		}
		return ontology.Any{Exprs: exprs}, nil

	default:
		inner, err := b.expr(conceptID, *doc.Not)
		if err != nil {
			return nil, err
		}
		return ontology.Not{Expr: inner}, nil
	}
}
