// Package schema checks an ontology for internal consistency against the
// entity type registry. Findings are data: an invalid schema never stops the
// rest of the engine from running.
package schema

import (
	"fmt"

	"github.com/louisbranch/boardrules/internal/entity"
	"github.com/louisbranch/boardrules/internal/ontology"
)

// ErrorKind categorizes a schema finding.
type ErrorKind string

const (
	DanglingReference ErrorKind = "dangling_reference"
	RoleMismatch      ErrorKind = "role_mismatch"
	PropertyMismatch  ErrorKind = "property_mismatch"
	MissingBinding    ErrorKind = "missing_binding"
	InvalidExpression ErrorKind = "invalid_expression"
)

// Error is one schema finding. Subject is the id of the binding, relation,
// constraint or concept role that produced it.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Subject string    `json:"subject"`
	Message string    `json:"message"`
}

func (e Error) String() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Validation is the output of one full pass.
type Validation struct {
	Errors  []Error `json:"errors"`
	IsValid bool    `json:"is_valid"`
}

// Count returns how many errors of kind were reported.
func (v Validation) Count(kind ErrorKind) int {
	n := 0
	for _, e := range v.Errors {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Has reports whether at least one error of kind was reported.
func (v Validation) Has(kind ErrorKind) bool { return v.Count(kind) > 0 }

type checker struct {
	reg   *ontology.Registry
	types *entity.TypeRegistry
	out   []Error
}

func (c *checker) add(kind ErrorKind, subject, format string, args ...any) {
	c.out = append(c.out, Error{Kind: kind, Subject: subject, Message: fmt.Sprintf(format, args...)})
}

// Check runs every consistency check to completion and accumulates the
// findings. A nil registry is treated as empty.
func Check(reg *ontology.Registry, types *entity.TypeRegistry) Validation {
	if reg == nil {
		reg = ontology.NewRegistry()
	}
	c := &checker{reg: reg, types: types}
	c.checkBindingReferences()
	c.checkBindingRoles()
	c.checkBindingProperties()
	c.checkRelations()
	c.checkConstraints()
	c.checkMissingBindings()
	return Validation{Errors: c.out, IsValid: len(c.out) == 0}
}

func (c *checker) checkBindingReferences() {
	for _, b := range c.reg.Bindings.List() {
		if _, ok := c.types.Get(b.EntityTypeID); !ok {
			c.add(DanglingReference, b.ID, "binding %s: entity type %q does not exist", b.ID, b.EntityTypeID)
		}
		concept, ok := c.reg.Concepts.Get(b.ConceptID)
		if !ok {
			c.add(DanglingReference, b.ID, "binding %s: concept %q does not exist", b.ID, b.ConceptID)
			continue
		}
		if !concept.HasRole(b.RoleID) {
			c.add(DanglingReference, b.ID, "binding %s: role %q does not exist in concept %s", b.ID, b.RoleID, concept.Name)
		}
	}
}

func (c *checker) checkBindingRoles() {
	for _, b := range c.reg.Bindings.List() {
		entityType, ok := c.types.Get(b.EntityTypeID)
		if !ok {
			continue
		}
		concept, ok := c.reg.Concepts.Get(b.ConceptID)
		if !ok {
			continue
		}
		role, ok := concept.Role(b.RoleID)
		if !ok {
			continue
		}
		if !role.Allows(entityType.Role) {
			c.add(RoleMismatch, b.ID, "binding %s: %s is a %s but %s.%s allows %v",
				b.ID, entityType.Label(), entityType.Role, concept.Name, role.Name, role.AllowedRoles)
		}
	}
}

func (c *checker) checkBindingProperties() {
	for _, b := range c.reg.Bindings.List() {
		entityType, ok := c.types.Get(b.EntityTypeID)
		if !ok {
			continue
		}
		for _, pb := range b.Properties {
			if !entityType.HasProperty(pb.PropertyID) {
				c.add(PropertyMismatch, b.ID, "binding %s: property %q (as %q) does not exist on %s",
					b.ID, pb.PropertyID, pb.LocalName, entityType.Label())
			}
		}
	}
}

func (c *checker) checkRelations() {
	for _, rel := range c.reg.Relations.List() {
		concept, ok := c.reg.Concepts.Get(rel.ConceptID)
		if !ok {
			c.add(DanglingReference, rel.ID, "relation %s: concept %q does not exist", rel.Label(), rel.ConceptID)
			continue
		}
		if !concept.HasRole(rel.SubjectRoleID) {
			c.add(DanglingReference, rel.ID, "relation %s: subject role %q does not exist in concept %s", rel.Label(), rel.SubjectRoleID, concept.Name)
		}
		if !concept.HasRole(rel.ObjectRoleID) {
			c.add(DanglingReference, rel.ID, "relation %s: object role %q does not exist in concept %s", rel.Label(), rel.ObjectRoleID, concept.Name)
		}
		if rel.SubjectRoleID == rel.ObjectRoleID {
			c.add(InvalidExpression, rel.ID, "relation %s: subject and object roles must differ", rel.Label())
		}
		if cond := ontology.EffectCondition(rel.Effect); cond != nil {
			c.checkTypeChecks(rel.ID, "relation "+rel.Label(), concept, cond)
		}
	}
}

// checkTypeChecks validates the role and entity type named by every type
// check in e.
func (c *checker) checkTypeChecks(subject, owner string, concept ontology.Concept, e ontology.Expr) {
	ontology.Walk(e, func(node ontology.Expr) {
		var roleID, typeID string
		switch n := node.(type) {
		case ontology.IsType:
			roleID, typeID = n.RoleID, n.EntityTypeID
		case ontology.IsNotType:
			roleID, typeID = n.RoleID, n.EntityTypeID
		default:
			return
		}
		if !concept.HasRole(roleID) {
			c.add(DanglingReference, subject, "%s: role %q does not exist in concept %s", owner, roleID, concept.Name)
		}
		if _, ok := c.types.Get(typeID); !ok {
			c.add(DanglingReference, subject, "%s: entity type %q does not exist", owner, typeID)
		}
	})
}

func (c *checker) checkConstraints() {
	for _, constraint := range c.reg.Constraints.List() {
		owner := "constraint " + constraint.Name
		concept, ok := c.reg.Concepts.Get(constraint.ConceptID)
		if !ok {
			c.add(DanglingReference, constraint.ID, "%s: concept %q does not exist", owner, constraint.ConceptID)
			continue
		}
		if constraint.Expr == nil {
			c.add(InvalidExpression, constraint.ID, "%s: expression is empty", owner)
			continue
		}
		c.checkTypeChecks(constraint.ID, owner, concept, constraint.Expr)
		for _, ref := range ontology.PropertyRefs(constraint.Expr) {
			c.checkPropertyRef(constraint.ID, owner, concept, ref)
		}
	}
}

func (c *checker) checkPropertyRef(subject, owner string, concept ontology.Concept, ref ontology.PropertyRef) {
	role, ok := concept.Role(ref.RoleID)
	if !ok {
		c.add(DanglingReference, subject, "%s: role %q does not exist in concept %s", owner, ref.RoleID, concept.Name)
		return
	}
	bindings := c.reg.BindingsForRole(concept.ID, role.ID)
	if len(bindings) == 0 {
		// Reported once as a missing binding for the role.
		return
	}
	for _, b := range bindings {
		if _, ok := b.PropertyFor(ref.Name); ok {
			return
		}
	}
	c.add(InvalidExpression, subject, "%s: %s.%s is not bound by any binding of that role", owner, role.Name, ref.Name)
}

func (c *checker) checkMissingBindings() {
	for _, concept := range c.reg.Concepts.List() {
		for _, role := range concept.Roles {
			if len(c.reg.BindingsForRole(concept.ID, role.ID)) == 0 {
				c.add(MissingBinding, role.ID, "concept %s: role %s has no bindings", concept.Name, role.Name)
			}
		}
	}
}
