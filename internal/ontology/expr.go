package ontology

import (
	"fmt"
	"strings"

	"github.com/louisbranch/boardrules/internal/entity"
)

// ExprKind discriminates the Expr union.
type ExprKind string

const (
	ExprCompare      ExprKind = "compare"
	ExprCrossCompare ExprKind = "cross_compare"
	ExprIsType       ExprKind = "is_type"
	ExprIsNotType    ExprKind = "is_not_type"
	ExprPathBudget   ExprKind = "path_budget"
	ExprAll          ExprKind = "all"
	ExprAny          ExprKind = "any"
	ExprNot          ExprKind = "not"
)

// Expr is a node of the closed constraint expression language. Trees are
// authored, never built from back-references, so they are always acyclic.
type Expr interface {
	ExprKind() ExprKind
	sealedExpr()
}

// CompareOp is a comparison operator.
type CompareOp string

const (
	CmpEq CompareOp = "eq"
	CmpNe CompareOp = "ne"
	CmpLt CompareOp = "lt"
	CmpLe CompareOp = "le"
	CmpGt CompareOp = "gt"
	CmpGe CompareOp = "ge"
)

// ParseCompareOp accepts both names ("ge") and symbols (">=").
func ParseCompareOp(raw string) (CompareOp, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "eq", "==", "=":
		return CmpEq, true
	case "ne", "!=", "<>":
		return CmpNe, true
	case "lt", "<":
		return CmpLt, true
	case "le", "<=":
		return CmpLe, true
	case "gt", ">":
		return CmpGt, true
	case "ge", ">=":
		return CmpGe, true
	}
	return "", false
}

// Symbol renders the operator for descriptions.
func (op CompareOp) Symbol() string {
	switch op {
	case CmpEq:
		return "=="
	case CmpNe:
		return "!="
	case CmpLt:
		return "<"
	case CmpLe:
		return "<="
	case CmpGt:
		return ">"
	case CmpGe:
		return ">="
	}
	return string(op)
}

// Holds applies the operator to a three-way comparison result.
func (op CompareOp) Holds(cmp int) bool {
	switch op {
	case CmpEq:
		return cmp == 0
	case CmpNe:
		return cmp != 0
	case CmpLt:
		return cmp < 0
	case CmpLe:
		return cmp <= 0
	case CmpGt:
		return cmp > 0
	case CmpGe:
		return cmp >= 0
	}
	return false
}

// PropertyRef names a concept-local property on a role.
type PropertyRef struct {
	RoleID string
	Name   string
}

// Compare checks a role property against a literal.
type Compare struct {
	Left  PropertyRef
	Op    CompareOp
	Value entity.Value
}

// CrossCompare checks a property of one role against a property of another.
type CrossCompare struct {
	Left  PropertyRef
	Op    CompareOp
	Right PropertyRef
}

// IsType holds when the entity bound to RoleID has type EntityTypeID.
type IsType struct {
	RoleID       string
	EntityTypeID string
}

// IsNotType holds when the entity bound to RoleID does not have type
// EntityTypeID.
type IsNotType struct {
	RoleID       string
	EntityTypeID string
}

// PathBudget holds when the sum of Cost along a path does not exceed Budget.
type PathBudget struct {
	Cost   PropertyRef
	Budget PropertyRef
}

// All holds when every child holds. An empty All holds.
type All struct {
	Exprs []Expr
}

// Any holds when at least one child holds. An empty Any does not hold.
type Any struct {
	Exprs []Expr
}

// Not negates its child.
type Not struct {
	Expr Expr
}

func (Compare) ExprKind() ExprKind      { return ExprCompare }
func (CrossCompare) ExprKind() ExprKind { return ExprCrossCompare }
func (IsType) ExprKind() ExprKind       { return ExprIsType }
func (IsNotType) ExprKind() ExprKind    { return ExprIsNotType }
func (PathBudget) ExprKind() ExprKind   { return ExprPathBudget }
func (All) ExprKind() ExprKind          { return ExprAll }
func (Any) ExprKind() ExprKind          { return ExprAny }
func (Not) ExprKind() ExprKind          { return ExprNot }

func (Compare) sealedExpr()      {}
func (CrossCompare) sealedExpr() {}
func (IsType) sealedExpr()       {}
func (IsNotType) sealedExpr()    {}
func (PathBudget) sealedExpr()   {}
func (All) sealedExpr()          {}
func (Any) sealedExpr()          {}
func (Not) sealedExpr()          {}

// PropertyRefs returns every role property an expression reads, depth first.
func PropertyRefs(e Expr) []PropertyRef {
	var out []PropertyRef
	Walk(e, func(node Expr) {
		switch n := node.(type) {
		case Compare:
			out = append(out, n.Left)
		case CrossCompare:
			out = append(out, n.Left, n.Right)
		case PathBudget:
			out = append(out, n.Cost, n.Budget)
		}
	})
	return out
}

// Walk visits e and its descendants depth first. Nil nodes are skipped.
func Walk(e Expr, visit func(Expr)) {
	if e == nil {
		return
	}
	visit(e)
	switch n := e.(type) {
	case All:
		for _, child := range n.Exprs {
			Walk(child, visit)
		}
	case Any:
		for _, child := range n.Exprs {
			Walk(child, visit)
		}
	case Not:
		Walk(n.Expr, visit)
	}
}

// ExprEqual compares two trees structurally.
func ExprEqual(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case Compare:
		y, ok := b.(Compare)
		return ok && x.Left == y.Left && x.Op == y.Op && x.Value.Equal(y.Value)
	case CrossCompare:
		y, ok := b.(CrossCompare)
		return ok && x == y
	case IsType:
		y, ok := b.(IsType)
		return ok && x == y
	case IsNotType:
		y, ok := b.(IsNotType)
		return ok && x == y
	case PathBudget:
		y, ok := b.(PathBudget)
		return ok && x == y
	case All:
		y, ok := b.(All)
		return ok && exprsEqual(x.Exprs, y.Exprs)
	case Any:
		y, ok := b.(Any)
		return ok && exprsEqual(x.Exprs, y.Exprs)
	case Not:
		y, ok := b.(Not)
		return ok && ExprEqual(x.Expr, y.Expr)
	}
	return false
}

func exprsEqual(a, b []Expr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !ExprEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Labels maps identifiers to display names for DescribeExpr. Nil functions
// and empty results fall back to the identifier.
type Labels struct {
	Role func(roleID string) string
	Type func(entityTypeID string) string
}

func (l Labels) role(id string) string { return labelOr(l.Role, id) }
func (l Labels) typ(id string) string  { return labelOr(l.Type, id) }

func labelOr(fn func(string) string, id string) string {
	if fn != nil {
		if label := fn(id); label != "" {
			return label
		}
	}
	return id
}

// DescribeExpr renders an expression for humans, e.g. "mover.budget >= 0".
func DescribeExpr(e Expr, labels Labels) string {
	ref := func(r PropertyRef) string { return labels.role(r.RoleID) + "." + r.Name }

	switch n := e.(type) {
	case nil:
		return "true"
	case Compare:
		return fmt.Sprintf("%s %s %s", ref(n.Left), n.Op.Symbol(), n.Value.Display())
	case CrossCompare:
		return fmt.Sprintf("%s %s %s", ref(n.Left), n.Op.Symbol(), ref(n.Right))
	case IsType:
		return fmt.Sprintf("%s is %s", labels.role(n.RoleID), labels.typ(n.EntityTypeID))
	case IsNotType:
		return fmt.Sprintf("%s is not %s", labels.role(n.RoleID), labels.typ(n.EntityTypeID))
	case PathBudget:
		return fmt.Sprintf("sum(%s) <= %s", ref(n.Cost), ref(n.Budget))
	case All:
		return joinExprs(n.Exprs, " and ", "true", labels)
	case Any:
		return joinExprs(n.Exprs, " or ", "false", labels)
	case Not:
		return "not (" + DescribeExpr(n.Expr, labels) + ")"
	}
	return string(e.ExprKind())
}

func joinExprs(exprs []Expr, sep, empty string, labels Labels) string {
	if len(exprs) == 0 {
		return empty
	}
	parts := make([]string, 0, len(exprs))
	for _, child := range exprs {
		parts = append(parts, DescribeExpr(child, labels))
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, sep) + ")"
}
