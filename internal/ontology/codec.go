package ontology

import (
	"encoding/json"
	"fmt"

	"github.com/louisbranch/boardrules/internal/entity"
)

// The unions are encoded as {"kind": ..., <fields>} objects so stored
// documents stay readable and stable.

type refJSON struct {
	Role string `json:"role"`
	Name string `json:"name"`
}

type exprJSON struct {
	Kind       ExprKind      `json:"kind"`
	Left       *refJSON      `json:"left,omitempty"`
	Right      *refJSON      `json:"right,omitempty"`
	Op         CompareOp     `json:"op,omitempty"`
	Value      *entity.Value `json:"value,omitempty"`
	Role       string        `json:"role,omitempty"`
	EntityType string        `json:"entity_type,omitempty"`
	Exprs      []exprJSON    `json:"exprs,omitempty"`
	Expr       *exprJSON     `json:"expr,omitempty"`
}

type effectJSON struct {
	Kind      EffectKind      `json:"kind"`
	Target    string          `json:"target_property,omitempty"`
	Source    string          `json:"source_property,omitempty"`
	Operation ModifyOperation `json:"operation,omitempty"`
	Condition *exprJSON       `json:"condition,omitempty"`
}

func encodeRef(r PropertyRef) *refJSON {
	return &refJSON{Role: r.RoleID, Name: r.Name}
}

func decodeRef(r *refJSON) PropertyRef {
	if r == nil {
		return PropertyRef{}
	}
	return PropertyRef{RoleID: r.Role, Name: r.Name}
}

func encodeExpr(e Expr) (*exprJSON, error) {
	if e == nil {
		return nil, nil
	}
	doc := &exprJSON{Kind: e.ExprKind()}
	switch n := e.(type) {
	case Compare:
		value := n.Value
		doc.Left, doc.Op, doc.Value = encodeRef(n.Left), n.Op, &value
	case CrossCompare:
		doc.Left, doc.Op, doc.Right = encodeRef(n.Left), n.Op, encodeRef(n.Right)
	case IsType:
		doc.Role, doc.EntityType = n.RoleID, n.EntityTypeID
	case IsNotType:
		doc.Role, doc.EntityType = n.RoleID, n.EntityTypeID
	case PathBudget:
		doc.Left, doc.Right = encodeRef(n.Cost), encodeRef(n.Budget)
	case All:
		children, err := encodeExprs(n.Exprs)
		if err != nil {
			return nil, err
		}
		doc.Exprs = children
	case Any:
		children, err := encodeExprs(n.Exprs)
		if err != nil {
			return nil, err
		}
		doc.Exprs = children
	case Not:
		child, err := encodeExpr(n.Expr)
		if err != nil {
			return nil, err
		}
		if child == nil {
			return nil, fmt.Errorf("not expression requires a child")
		}
		doc.Expr = child
	default:
		return nil, fmt.Errorf("unsupported expression %T", e)
	}
	return doc, nil
}

func encodeExprs(exprs []Expr) ([]exprJSON, error) {
	out := make([]exprJSON, 0, len(exprs))
	for _, child := range exprs {
		doc, err := encodeExpr(child)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return nil, fmt.Errorf("nil child expression")
		}
		out = append(out, *doc)
	}
	return out, nil
}

func decodeExpr(doc *exprJSON) (Expr, error) {
	if doc == nil {
		return nil, nil
	}
	switch doc.Kind {
	case ExprCompare:
		var value entity.Value
		if doc.Value != nil {
			value = *doc.Value
		}
		return Compare{Left: decodeRef(doc.Left), Op: doc.Op, Value: value}, nil
	case ExprCrossCompare:
		return CrossCompare{Left: decodeRef(doc.Left), Op: doc.Op, Right: decodeRef(doc.Right)}, nil
	case ExprIsType:
		return IsType{RoleID: doc.Role, EntityTypeID: doc.EntityType}, nil
	case ExprIsNotType:
		return IsNotType{RoleID: doc.Role, EntityTypeID: doc.EntityType}, nil
	case ExprPathBudget:
		return PathBudget{Cost: decodeRef(doc.Left), Budget: decodeRef(doc.Right)}, nil
	case ExprAll, ExprAny:
		children := make([]Expr, 0, len(doc.Exprs))
		for i := range doc.Exprs {
			child, err := decodeExpr(&doc.Exprs[i])
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		if doc.Kind == ExprAll {
			return All{Exprs: children}, nil
		}
		return Any{Exprs: children}, nil
	case ExprNot:
		child, err := decodeExpr(doc.Expr)
		if err != nil {
			return nil, err
		}
		if child == nil {
			return nil, fmt.Errorf("not expression requires a child")
		}
		return Not{Expr: child}, nil
	}
	return nil, fmt.Errorf("unknown expression kind %q", doc.Kind)
}

// MarshalExpr encodes an expression tree. A nil expression encodes as null.
func MarshalExpr(e Expr) ([]byte, error) {
	doc, err := encodeExpr(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// UnmarshalExpr decodes MarshalExpr output.
func UnmarshalExpr(data []byte) (Expr, error) {
	var doc *exprJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return decodeExpr(doc)
}

func encodeEffect(e Effect) (*effectJSON, error) {
	if e == nil {
		return nil, nil
	}
	doc := &effectJSON{Kind: e.EffectKind()}
	switch effect := e.(type) {
	case ModifyProperty:
		doc.Target, doc.Source, doc.Operation = effect.TargetProperty, effect.SourceProperty, effect.Operation
	case Block, Allow:
		condition, err := encodeExpr(EffectCondition(effect))
		if err != nil {
			return nil, err
		}
		doc.Condition = condition
	default:
		return nil, fmt.Errorf("unsupported effect %T", e)
	}
	return doc, nil
}

func decodeEffect(doc *effectJSON) (Effect, error) {
	if doc == nil {
		return nil, nil
	}
	switch doc.Kind {
	case EffectModifyProperty:
		return ModifyProperty{TargetProperty: doc.Target, SourceProperty: doc.Source, Operation: doc.Operation}, nil
	case EffectBlock, EffectAllow:
		condition, err := decodeExpr(doc.Condition)
		if err != nil {
			return nil, err
		}
		if doc.Kind == EffectBlock {
			return Block{Condition: condition}, nil
		}
		return Allow{Condition: condition}, nil
	}
	return nil, fmt.Errorf("unknown effect kind %q", doc.Kind)
}

type relationAlias Relation

type relationJSON struct {
	relationAlias
	Effect *effectJSON `json:"effect"`
}

// MarshalJSON encodes the relation including its effect.
func (r Relation) MarshalJSON() ([]byte, error) {
	effect, err := encodeEffect(r.Effect)
	if err != nil {
		return nil, fmt.Errorf("relation %s: %w", r.ID, err)
	}
	return json.Marshal(relationJSON{relationAlias: relationAlias(r), Effect: effect})
}

// UnmarshalJSON decodes MarshalJSON output.
func (r *Relation) UnmarshalJSON(data []byte) error {
	var doc relationJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	effect, err := decodeEffect(doc.Effect)
	if err != nil {
		return fmt.Errorf("relation %s: %w", doc.ID, err)
	}
	*r = Relation(doc.relationAlias)
	r.Effect = effect
	return nil
}

type constraintAlias Constraint

type constraintJSON struct {
	constraintAlias
	Expr *exprJSON `json:"expr"`
}

// MarshalJSON encodes the constraint including its expression.
func (c Constraint) MarshalJSON() ([]byte, error) {
	expr, err := encodeExpr(c.Expr)
	if err != nil {
		return nil, fmt.Errorf("constraint %s: %w", c.ID, err)
	}
	return json.Marshal(constraintJSON{constraintAlias: constraintAlias(c), Expr: expr})
}

// UnmarshalJSON decodes MarshalJSON output.
func (c *Constraint) UnmarshalJSON(data []byte) error {
	var doc constraintJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	expr, err := decodeExpr(doc.Expr)
	if err != nil {
		return fmt.Errorf("constraint %s: %w", doc.ID, err)
	}
	*c = Constraint(doc.constraintAlias)
	c.Expr = expr
	return nil
}
