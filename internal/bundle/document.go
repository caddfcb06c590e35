// Package bundle loads ontology bundles: YAML documents that declare entity
// types, concepts, bindings, relations, constraints and a board, all by
// name. A Builder turns names into identifiers; names that were never
// declared resolve to fresh identifiers so the schema validator, not the
// loader, reports them.
package bundle

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/louisbranch/boardrules/internal/hexgrid"
	apperrors "github.com/louisbranch/boardrules/internal/platform/errors"
	"gopkg.in/yaml.v3"
)

// Document is the top-level bundle file.
//
// Example:
//
//	radius: 2
//	entity_types:
//	  - name: Infantry
//	    role: token
//	    properties:
//	      - {name: movement_points, kind: int, default: 3}
//	concepts:
//	  - name: Motion
//	    roles:
//	      - {name: mover, allowed: [token]}
//	relations:
//	  - name: Terrain cost
//	    concept: Motion
//	    subject: mover
//	    object: terrain
//	    trigger: on_enter
//	    effect:
//	      modify: {target: budget, source: cost, operation: subtract}
type Document struct {
	Radius      int             `yaml:"radius"`
	EntityTypes []EntityTypeDoc `yaml:"entity_types"`
	Concepts    []ConceptDoc    `yaml:"concepts"`
	Bindings    []BindingDoc    `yaml:"bindings"`
	Relations   []RelationDoc   `yaml:"relations"`
	Constraints []ConstraintDoc `yaml:"constraints"`
	Tiles       []TileDoc       `yaml:"tiles"`
	Units       []UnitDoc       `yaml:"units"`
	Selection   string          `yaml:"selection"`
}

// PropertyDoc declares one property of an entity type.
type PropertyDoc struct {
	Name     string   `yaml:"name"`
	Kind     string   `yaml:"kind"`
	Default  any      `yaml:"default"`
	Variants []string `yaml:"variants"`
}

// EntityTypeDoc declares an entity type.
type EntityTypeDoc struct {
	Name       string        `yaml:"name"`
	Role       string        `yaml:"role"`
	Properties []PropertyDoc `yaml:"properties"`
}

// RoleDoc declares a concept role and the entity roles it accepts.
type RoleDoc struct {
	Name    string   `yaml:"name"`
	Allowed []string `yaml:"allowed"`
}

// ConceptDoc declares a concept.
type ConceptDoc struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Roles       []RoleDoc `yaml:"roles"`
}

// PropertyAliasDoc maps an entity property to a concept-local name.
type PropertyAliasDoc struct {
	Property string `yaml:"property"`
	As       string `yaml:"as"`
}

// BindingDoc binds an entity type into a concept role.
type BindingDoc struct {
	EntityType string             `yaml:"entity_type"`
	Concept    string             `yaml:"concept"`
	Role       string             `yaml:"role"`
	Properties []PropertyAliasDoc `yaml:"properties"`
}

// ModifyDoc is a ModifyProperty effect.
type ModifyDoc struct {
	Target    string `yaml:"target"`
	Source    string `yaml:"source"`
	Operation string `yaml:"operation"`
}

// ConditionDoc wraps the optional condition of a block or allow effect.
type ConditionDoc struct {
	Condition *ExprDoc `yaml:"condition"`
}

// EffectDoc holds exactly one of its fields.
type EffectDoc struct {
	Modify *ModifyDoc    `yaml:"modify"`
	Block  *ConditionDoc `yaml:"block"`
	Allow  *ConditionDoc `yaml:"allow"`
}

// RelationDoc declares a relation.
type RelationDoc struct {
	Name    string    `yaml:"name"`
	Concept string    `yaml:"concept"`
	Subject string    `yaml:"subject"`
	Object  string    `yaml:"object"`
	Trigger string    `yaml:"trigger"`
	Effect  EffectDoc `yaml:"effect"`
}

// ConstraintDoc declares a designer-authored constraint.
type ConstraintDoc struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Concept     string   `yaml:"concept"`
	Expr        *ExprDoc `yaml:"expr"`
}

// RefDoc names a concept-local property on a role.
type RefDoc struct {
	Role     string `yaml:"role"`
	Property string `yaml:"property"`
}

// CompareDoc compares a role property with a literal. Kind forces the
// literal's value kind; otherwise it is inferred from the YAML scalar.
type CompareDoc struct {
	Role     string `yaml:"role"`
	Property string `yaml:"property"`
	Op       string `yaml:"op"`
	Value    any    `yaml:"value"`
	Kind     string `yaml:"kind"`
}

// CrossCompareDoc compares two role properties.
type CrossCompareDoc struct {
	Left  RefDoc `yaml:"left"`
	Op    string `yaml:"op"`
	Right RefDoc `yaml:"right"`
}

// TypeCheckDoc tests the entity type filling a role.
type TypeCheckDoc struct {
	Role string `yaml:"role"`
	Type string `yaml:"type"`
}

// PathBudgetDoc sums a cost property along a path against a budget.
type PathBudgetDoc struct {
	Cost   RefDoc `yaml:"cost"`
	Budget RefDoc `yaml:"budget"`
}

// ExprDoc holds exactly one expression form.
type ExprDoc struct {
	Compare      *CompareDoc      `yaml:"compare"`
	CrossCompare *CrossCompareDoc `yaml:"cross_compare"`
	IsType       *TypeCheckDoc    `yaml:"is_type"`
	IsNotType    *TypeCheckDoc    `yaml:"is_not_type"`
	PathBudget   *PathBudgetDoc   `yaml:"path_budget"`
	All          []ExprDoc        `yaml:"all"`
	Any          []ExprDoc        `yaml:"any"`
	Not          *ExprDoc         `yaml:"not"`
}

// TileDoc places a tile. A tile without a position fills every in-bounds
// hex; later tiles override earlier ones.
type TileDoc struct {
	At     *hexgrid.Position `yaml:"at"`
	Type   string            `yaml:"type"`
	Values map[string]any    `yaml:"values"`
}

// UnitDoc places a unit.
type UnitDoc struct {
	ID     string           `yaml:"id"`
	Type   string           `yaml:"type"`
	At     hexgrid.Position `yaml:"at"`
	Values map[string]any   `yaml:"values"`
}

// LoadFile reads and decodes a bundle file.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bundle %q: %w", path, err)
	}
	defer f.Close()

	doc, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("parse bundle %q: %w", path, err)
	}
	return doc, nil
}

// Decode parses a bundle from r. Unknown keys are rejected.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, apperrors.Wrap(apperrors.CodeBundleInvalidDocument, "decode bundle yaml", err)
	}
	return &doc, nil
}

// Remarshal converts a generic value (such as a decoded Lua table) into one
// of the document types through its YAML form.
func Remarshal(in any, out any) error {
	data, err := yaml.Marshal(in)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeBundleInvalidDocument, "encode document fragment", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return apperrors.Wrap(apperrors.CodeBundleInvalidDocument, "decode document fragment", err)
	}
	return nil
}
