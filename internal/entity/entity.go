// Package entity holds designer-defined entity types, their typed property
// definitions, and the per-instance data attached to placed tiles and units.
package entity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/boardrules/internal/platform/registry"
)

// Role is the coarse kind of an entity type.
type Role string

const (
	// RoleBoardPosition marks types that occupy a hex as terrain.
	RoleBoardPosition Role = "board_position"
	// RoleToken marks movable pieces placed on top of a hex.
	RoleToken Role = "token"
)

// ParseRole normalizes a role name. Hyphens and the short aliases "tile" and
// "board" are accepted.
func ParseRole(raw string) (Role, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.ReplaceAll(value, "-", "_")
	switch value {
	case string(RoleBoardPosition), "tile", "board":
		return RoleBoardPosition, true
	case string(RoleToken), "unit":
		return RoleToken, true
	}
	return "", false
}

// PropertyDefinition declares one typed property of an entity type.
type PropertyDefinition struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Default Value  `json:"default"`
	// Variants lists the allowed names for enum properties.
	Variants []string `json:"variants,omitempty"`
}

// Type is a designer-defined kind of object.
type Type struct {
	ID         string               `json:"id"`
	Name       string               `json:"name"`
	Role       Role                 `json:"role"`
	Properties []PropertyDefinition `json:"properties"`
}

// Key implements registry.Keyed.
func (t Type) Key() string { return t.ID }

// Property returns the property definition with the given identifier.
func (t Type) Property(propertyID string) (PropertyDefinition, bool) {
	for _, prop := range t.Properties {
		if prop.ID == propertyID {
			return prop, true
		}
	}
	return PropertyDefinition{}, false
}

// HasProperty reports whether propertyID is declared on t.
func (t Type) HasProperty(propertyID string) bool {
	_, ok := t.Property(propertyID)
	return ok
}

// Label returns the type name, falling back to its identifier.
func (t Type) Label() string {
	if strings.TrimSpace(t.Name) != "" {
		return t.Name
	}
	return t.ID
}

// TypeRegistry is the versioned id→type store.
type TypeRegistry struct {
	types *registry.Table[Type]
}

// NewTypeRegistry creates an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{types: registry.NewTable[Type]()}
}

// Register adds or replaces an entity type.
func (r *TypeRegistry) Register(t Type) error {
	if r == nil {
		return errors.New("type registry is required")
	}
	switch t.Role {
	case RoleBoardPosition, RoleToken:
	default:
		return fmt.Errorf("entity type %s: role must be %s or %s", t.ID, RoleBoardPosition, RoleToken)
	}
	seen := make(map[string]struct{}, len(t.Properties))
	for _, prop := range t.Properties {
		if strings.TrimSpace(prop.ID) == "" {
			return fmt.Errorf("entity type %s: property id is required", t.ID)
		}
		if _, dup := seen[prop.ID]; dup {
			return fmt.Errorf("entity type %s: duplicate property %s", t.ID, prop.ID)
		}
		seen[prop.ID] = struct{}{}
	}
	return r.types.Put(t)
}

// Remove deletes an entity type.
func (r *TypeRegistry) Remove(typeID string) bool {
	if r == nil {
		return false
	}
	return r.types.Delete(typeID)
}

// Get returns the type registered under typeID.
func (r *TypeRegistry) Get(typeID string) (Type, bool) {
	if r == nil {
		return Type{}, false
	}
	return r.types.Get(typeID)
}

// List returns every type in registration order.
func (r *TypeRegistry) List() []Type {
	if r == nil {
		return nil
	}
	return r.types.List()
}

// Version changes whenever a type is registered or removed.
func (r *TypeRegistry) Version() uint64 {
	if r == nil {
		return 0
	}
	return r.types.Version()
}
