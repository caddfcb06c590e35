package ontology

import (
	"errors"

	"github.com/louisbranch/boardrules/internal/platform/registry"
)

// Registry is the read/write handle to the ontology tables. The editing
// surface mutates it; the auto-generator writes only Constraints; the
// validator and move evaluator only read it.
type Registry struct {
	Concepts    *registry.Table[Concept]
	Bindings    *registry.Table[ConceptBinding]
	Relations   *registry.Table[Relation]
	Constraints *registry.Table[Constraint]
}

// NewRegistry creates an empty ontology.
func NewRegistry() *Registry {
	return &Registry{
		Concepts:    registry.NewTable[Concept](),
		Bindings:    registry.NewTable[ConceptBinding](),
		Relations:   registry.NewTable[Relation](),
		Constraints: registry.NewTable[Constraint](),
	}
}

// Version is a snapshot of every table's mutation counter.
type Version struct {
	Concepts    uint64
	Bindings    uint64
	Relations   uint64
	Constraints uint64
}

// Version returns the current table versions.
func (r *Registry) Version() Version {
	if r == nil {
		return Version{}
	}
	return Version{
		Concepts:    r.Concepts.Version(),
		Bindings:    r.Bindings.Version(),
		Relations:   r.Relations.Version(),
		Constraints: r.Constraints.Version(),
	}
}

// PutConcept stores a concept.
func (r *Registry) PutConcept(c Concept) error {
	if r == nil {
		return errors.New("ontology registry is required")
	}
	return r.Concepts.Put(c)
}

// PutBinding stores a binding.
func (r *Registry) PutBinding(b ConceptBinding) error {
	if r == nil {
		return errors.New("ontology registry is required")
	}
	return r.Bindings.Put(b)
}

// PutRelation stores a relation. A relation must carry an effect.
func (r *Registry) PutRelation(rel Relation) error {
	if r == nil {
		return errors.New("ontology registry is required")
	}
	if rel.Effect == nil {
		return errors.New("relation effect is required")
	}
	return r.Relations.Put(rel)
}

// PutConstraint stores a constraint.
func (r *Registry) PutConstraint(c Constraint) error {
	if r == nil {
		return errors.New("ontology registry is required")
	}
	return r.Constraints.Put(c)
}

// BindingsForType returns every binding of the given entity type.
func (r *Registry) BindingsForType(entityTypeID string) []ConceptBinding {
	if r == nil || entityTypeID == "" {
		return nil
	}
	var out []ConceptBinding
	for _, b := range r.Bindings.List() {
		if b.EntityTypeID == entityTypeID {
			out = append(out, b)
		}
	}
	return out
}

// BindingsForRole returns every binding into one role of one concept.
func (r *Registry) BindingsForRole(conceptID, roleID string) []ConceptBinding {
	if r == nil {
		return nil
	}
	var out []ConceptBinding
	for _, b := range r.Bindings.List() {
		if b.ConceptID == conceptID && b.RoleID == roleID {
			out = append(out, b)
		}
	}
	return out
}

// FindBinding returns the first binding in bindings that places an entity
// into (conceptID, roleID).
func FindBinding(bindings []ConceptBinding, conceptID, roleID string) (ConceptBinding, bool) {
	for _, b := range bindings {
		if b.ConceptID == conceptID && b.RoleID == roleID {
			return b, true
		}
	}
	return ConceptBinding{}, false
}

// RoleName returns a display name for a role id, searching every concept.
func (r *Registry) RoleName(roleID string) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Concepts.List() {
		if role, ok := c.Role(roleID); ok {
			return role.Name
		}
	}
	return ""
}
