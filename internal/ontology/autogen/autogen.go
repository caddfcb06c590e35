// Package autogen keeps one derived non-negativity constraint in step with
// every relation that subtracts from a property.
package autogen

import (
	"fmt"

	"github.com/louisbranch/boardrules/internal/entity"
	"github.com/louisbranch/boardrules/internal/ontology"
	"github.com/louisbranch/boardrules/internal/platform/id"
)

// Report counts what one Sync changed in the constraint table.
type Report struct {
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Retracted int `json:"retracted"`
	Unchanged int `json:"unchanged"`
}

// Changed reports whether Sync wrote anything.
func (r Report) Changed() bool {
	return r.Inserted+r.Updated+r.Retracted > 0
}

// Expected builds the guard derived from rel, or false when rel does not
// subtract. The returned constraint has no identifier.
func Expected(rel ontology.Relation) (ontology.Constraint, bool) {
	modify, ok := ontology.IsSubtract(rel.Effect)
	if !ok {
		return ontology.Constraint{}, false
	}
	return ontology.Constraint{
		Name:             fmt.Sprintf("%s keeps %s non-negative", rel.Label(), modify.TargetProperty),
		Description:      fmt.Sprintf("Generated from relation %s: the subject's %s must stay at or above zero.", rel.Label(), modify.TargetProperty),
		ConceptID:        rel.ConceptID,
		Expr:             Guard(rel.SubjectRoleID, modify.TargetProperty),
		AutoGenerated:    true,
		SourceRelationID: rel.ID,
	}, true
}

// Guard is the expression role.property >= 0.
func Guard(roleID, property string) ontology.Expr {
	return ontology.Compare{
		Left:  ontology.PropertyRef{RoleID: roleID, Name: property},
		Op:    ontology.CmpGe,
		Value: entity.Int(0),
	}
}

func sameContent(a, b ontology.Constraint) bool {
	return a.Name == b.Name &&
		a.Description == b.Description &&
		a.ConceptID == b.ConceptID &&
		a.AutoGenerated == b.AutoGenerated &&
		a.SourceRelationID == b.SourceRelationID &&
		ontology.ExprEqual(a.Expr, b.Expr)
}

// Generator syncs derived constraints. The zero value is ready to use.
type Generator struct {
	// NewID allocates constraint identifiers; defaults to id.NewID.
	NewID func() (string, error)

	seen        bool
	relations   uint64
	constraints uint64
}

// Update runs Sync only when relations or constraints changed since the
// previous run. The bool reports whether a sync ran.
func (g *Generator) Update(reg *ontology.Registry) (Report, bool, error) {
	v := reg.Version()
	if g.seen && v.Relations == g.relations && v.Constraints == g.constraints {
		return Report{}, false, nil
	}
	report, err := g.Sync(reg)
	if err != nil {
		return report, true, err
	}
	v = reg.Version()
	g.relations, g.constraints, g.seen = v.Relations, v.Constraints, true
	return report, true, nil
}

// Invalidate forces the next Update to sync.
func (g *Generator) Invalidate() { g.seen = false }

// Sync brings the derived constraints in line with the current relations.
// Existing guards keep their identifier and position; only stale content is
// rewritten. Auto-generated constraints without a source relation are left
// alone.
func (g *Generator) Sync(reg *ontology.Registry) (Report, error) {
	var report Report
	if reg == nil {
		return report, nil
	}

	expected := make(map[string]ontology.Constraint)
	var order []string
	for _, rel := range reg.Relations.List() {
		if c, ok := Expected(rel); ok {
			expected[rel.ID] = c
			order = append(order, rel.ID)
		}
	}

	existing := make(map[string]ontology.Constraint)
	for _, c := range reg.Constraints.List() {
		if !c.AutoGenerated || c.SourceRelationID == "" {
			continue
		}
		if _, live := expected[c.SourceRelationID]; !live {
			reg.Constraints.Delete(c.ID)
			report.Retracted++
			continue
		}
		if _, dup := existing[c.SourceRelationID]; dup {
			reg.Constraints.Delete(c.ID)
			report.Retracted++
			continue
		}
		existing[c.SourceRelationID] = c
	}

	for _, relationID := range order {
		want := expected[relationID]
		current, ok := existing[relationID]
		if ok {
			if sameContent(current, want) {
				report.Unchanged++
				continue
			}
			want.ID = current.ID
			if err := reg.Constraints.Put(want); err != nil {
				return report, fmt.Errorf("update derived constraint %s: %w", current.ID, err)
			}
			report.Updated++
			continue
		}
		constraintID, err := g.newID()
		if err != nil {
			return report, fmt.Errorf("derive constraint for relation %s: %w", relationID, err)
		}
		want.ID = constraintID
		if err := reg.Constraints.Insert(want); err != nil {
			return report, fmt.Errorf("insert derived constraint for relation %s: %w", relationID, err)
		}
		report.Inserted++
	}
	return report, nil
}

func (g *Generator) newID() (string, error) {
	if g.NewID != nil {
		return g.NewID()
	}
	return id.NewID()
}
