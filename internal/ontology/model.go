// Package ontology is the designer-authored rule vocabulary: concepts and
// their roles, bindings from entity types onto those roles, relations between
// roles, and constraint expressions over role properties.
//
// Everything here is a plain value. Validation lives in ontology/schema,
// derived constraints in ontology/autogen, and movement evaluation in
// ontology/movement; each reads a *Registry handle passed in explicitly.
package ontology

import (
	"slices"
	"strings"

	"github.com/louisbranch/boardrules/internal/entity"
)

// ConceptRole is a named slot within a concept that entity types bind to.
type ConceptRole struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	AllowedRoles []entity.Role `json:"allowed_roles"`
}

// Allows reports whether an entity role may bind to this concept role.
func (r ConceptRole) Allows(role entity.Role) bool {
	return slices.Contains(r.AllowedRoles, role)
}

// Concept is an abstract category such as "Motion".
type Concept struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Roles       []ConceptRole `json:"roles"`
}

// Key implements registry.Keyed.
func (c Concept) Key() string { return c.ID }

// Role returns the concept role with the given identifier.
func (c Concept) Role(roleID string) (ConceptRole, bool) {
	for _, role := range c.Roles {
		if role.ID == roleID {
			return role, true
		}
	}
	return ConceptRole{}, false
}

// HasRole reports whether roleID belongs to c.
func (c Concept) HasRole(roleID string) bool {
	_, ok := c.Role(roleID)
	return ok
}

// PropertyBinding aliases a concrete property to a concept-local name, for
// example "movement_points" → "budget".
type PropertyBinding struct {
	PropertyID string `json:"property_id"`
	LocalName  string `json:"local_name"`
}

// ConceptBinding places one entity type into one role of one concept.
type ConceptBinding struct {
	ID           string            `json:"id"`
	EntityTypeID string            `json:"entity_type_id"`
	ConceptID    string            `json:"concept_id"`
	RoleID       string            `json:"role_id"`
	Properties   []PropertyBinding `json:"properties,omitempty"`
}

// Key implements registry.Keyed.
func (b ConceptBinding) Key() string { return b.ID }

// PropertyFor resolves a concept-local name to the bound property id.
func (b ConceptBinding) PropertyFor(localName string) (string, bool) {
	localName = strings.TrimSpace(localName)
	for _, prop := range b.Properties {
		if prop.LocalName == localName {
			return prop.PropertyID, true
		}
	}
	return "", false
}

// LocalNames lists the concept-local names this binding declares.
func (b ConceptBinding) LocalNames() []string {
	out := make([]string, 0, len(b.Properties))
	for _, prop := range b.Properties {
		out = append(out, prop.LocalName)
	}
	return out
}

// Trigger is when a relation fires relative to a position.
type Trigger string

const (
	TriggerOnEnter      Trigger = "on_enter"
	TriggerOnExit       Trigger = "on_exit"
	TriggerWhilePresent Trigger = "while_present"
)

// ParseTrigger normalizes a trigger name; "OnEnter", "on-enter" and
// "on_enter" are equivalent.
func ParseTrigger(raw string) (Trigger, bool) {
	switch normalizeToken(raw) {
	case "onenter":
		return TriggerOnEnter, true
	case "onexit":
		return TriggerOnExit, true
	case "whilepresent":
		return TriggerWhilePresent, true
	}
	return "", false
}

// Relation is a triggered rule between two roles of one concept.
type Relation struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	ConceptID     string  `json:"concept_id"`
	SubjectRoleID string  `json:"subject_role_id"`
	ObjectRoleID  string  `json:"object_role_id"`
	Trigger       Trigger `json:"trigger"`
	Effect        Effect  `json:"-"`
}

// Key implements registry.Keyed.
func (r Relation) Key() string { return r.ID }

// Label returns the relation name, falling back to its identifier.
func (r Relation) Label() string {
	if strings.TrimSpace(r.Name) != "" {
		return r.Name
	}
	return r.ID
}

// Constraint is a named boolean expression that should hold within a
// concept. Auto-generated constraints point back at the relation they were
// derived from.
type Constraint struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	ConceptID        string `json:"concept_id"`
	Expr             Expr   `json:"-"`
	AutoGenerated    bool   `json:"auto_generated"`
	SourceRelationID string `json:"source_relation_id,omitempty"`
}

// Key implements registry.Keyed.
func (c Constraint) Key() string { return c.ID }

func normalizeToken(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.ReplaceAll(value, "_", "")
	value = strings.ReplaceAll(value, "-", "")
	return strings.ReplaceAll(value, " ", "")
}
