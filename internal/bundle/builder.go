package bundle

import (
	"fmt"
	"strings"

	"github.com/louisbranch/boardrules/internal/entity"
	"github.com/louisbranch/boardrules/internal/hexgrid"
	"github.com/louisbranch/boardrules/internal/ontology"
	"github.com/louisbranch/boardrules/internal/ontology/movement"
	apperrors "github.com/louisbranch/boardrules/internal/platform/errors"
	"github.com/louisbranch/boardrules/internal/platform/id"
)

// Builder applies named declarations to a set of registries and a board.
// Declaring a name twice replaces the earlier declaration and keeps its
// identifier.
type Builder struct {
	types     *entity.TypeRegistry
	ontology  *ontology.Registry
	board     movement.Board
	selection string
	newID     func() (string, error)

	typeIDs       map[string]string
	propertyIDs   map[string]map[string]string
	conceptIDs    map[string]string
	roleIDs       map[string]map[string]string
	relationIDs   map[string]string
	constraintIDs map[string]string
	// unresolved holds the fresh ids handed out for undeclared names so
	// repeated references agree.
	unresolved map[string]string
}

// BuilderOption customizes a Builder.
type BuilderOption func(*Builder)

// WithIDGenerator replaces id.NewID.
func WithIDGenerator(fn func() (string, error)) BuilderOption {
	return func(b *Builder) {
		if fn != nil {
			b.newID = fn
		}
	}
}

// WithRegistries builds into existing registries instead of fresh ones.
func WithRegistries(types *entity.TypeRegistry, reg *ontology.Registry) BuilderOption {
	return func(b *Builder) {
		if types != nil {
			b.types = types
		}
		if reg != nil {
			b.ontology = reg
		}
	}
}

// NewBuilder creates a builder over empty registries and an empty board.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		types:         entity.NewTypeRegistry(),
		ontology:      ontology.NewRegistry(),
		board:         movement.Board{Tiles: map[hexgrid.Position]entity.Data{}, Units: map[string]movement.Unit{}},
		newID:         id.NewID,
		typeIDs:       map[string]string{},
		propertyIDs:   map[string]map[string]string{},
		conceptIDs:    map[string]string{},
		roleIDs:       map[string]map[string]string{},
		relationIDs:   map[string]string{},
		constraintIDs: map[string]string{},
		unresolved:    map[string]string{},
	}
	for _, opt := range opts {
		opt(b)
	}
	// Names already present in injected registries resolve to their ids.
	for _, t := range b.types.List() {
		b.typeIDs[t.Name] = t.ID
		props := map[string]string{}
		for _, p := range t.Properties {
			props[p.Name] = p.ID
		}
		b.propertyIDs[t.ID] = props
	}
	for _, c := range b.ontology.Concepts.List() {
		b.conceptIDs[c.Name] = c.ID
		roles := map[string]string{}
		for _, r := range c.Roles {
			roles[r.Name] = r.ID
		}
		b.roleIDs[c.ID] = roles
	}
	for _, r := range b.ontology.Relations.List() {
		b.relationIDs[r.Name] = r.ID
	}
	for _, c := range b.ontology.Constraints.List() {
		if !c.AutoGenerated {
			b.constraintIDs[c.Name] = c.ID
		}
	}
	return b
}

// Types returns the entity type registry being built.
func (b *Builder) Types() *entity.TypeRegistry { return b.types }

// Ontology returns the ontology registry being built.
func (b *Builder) Ontology() *ontology.Registry { return b.ontology }

// Board returns the board being built.
func (b *Builder) Board() movement.Board { return b.board }

// Selection returns the selected unit id.
func (b *Builder) Selection() string { return b.selection }

// SetRadius sets the board radius.
func (b *Builder) SetRadius(radius int) error {
	if radius < 0 {
		return apperrors.New(apperrors.CodeBundleInvalidDocument, fmt.Sprintf("radius must be non-negative, got %d", radius))
	}
	b.board.Radius = radius
	return nil
}

// Select sets the selected unit. The unit does not need to exist; an
// unresolvable selection clears the move result.
func (b *Builder) Select(unitID string) { b.selection = strings.TrimSpace(unitID) }

// TypeID returns the identifier of a declared entity type.
func (b *Builder) TypeID(name string) (string, bool) {
	v, ok := b.typeIDs[name]
	return v, ok
}

// PropertyID returns the identifier of a declared property.
func (b *Builder) PropertyID(typeName, property string) (string, bool) {
	typeID, ok := b.typeIDs[typeName]
	if !ok {
		return "", false
	}
	v, ok := b.propertyIDs[typeID][property]
	return v, ok
}

// ConceptID returns the identifier of a declared concept.
func (b *Builder) ConceptID(name string) (string, bool) {
	v, ok := b.conceptIDs[name]
	return v, ok
}

// RoleID returns the identifier of a declared concept role.
func (b *Builder) RoleID(concept, role string) (string, bool) {
	conceptID, ok := b.conceptIDs[concept]
	if !ok {
		return "", false
	}
	v, ok := b.roleIDs[conceptID][role]
	return v, ok
}

// RelationID returns the identifier of a declared relation.
func (b *Builder) RelationID(name string) (string, bool) {
	v, ok := b.relationIDs[name]
	return v, ok
}

// ConstraintID returns the identifier of a declared constraint.
func (b *Builder) ConstraintID(name string) (string, bool) {
	v, ok := b.constraintIDs[name]
	return v, ok
}

func (b *Builder) existingOrNew(known map[string]string, name string) (string, error) {
	if existing, ok := known[name]; ok {
		return existing, nil
	}
	return b.newID()
}

// unresolvedID returns a stable fresh identifier for an undeclared name.
func (b *Builder) unresolvedID(kind, scope, name string) (string, error) {
	key := kind + "\x00" + scope + "\x00" + name
	if existing, ok := b.unresolved[key]; ok {
		return existing, nil
	}
	fresh, err := b.newID()
	if err != nil {
		return "", err
	}
	b.unresolved[key] = fresh
	return fresh, nil
}

func (b *Builder) resolveType(name string) (string, error) {
	if typeID, ok := b.typeIDs[name]; ok {
		return typeID, nil
	}
	return b.unresolvedID("type", "", name)
}

func (b *Builder) resolveConcept(name string) (string, error) {
	if conceptID, ok := b.conceptIDs[name]; ok {
		return conceptID, nil
	}
	return b.unresolvedID("concept", "", name)
}

func (b *Builder) resolveRole(conceptID, name string) (string, error) {
	if roleID, ok := b.roleIDs[conceptID][name]; ok {
		return roleID, nil
	}
	return b.unresolvedID("role", conceptID, name)
}

func (b *Builder) resolveProperty(typeID, name string) (string, error) {
	if propertyID, ok := b.propertyIDs[typeID][name]; ok {
		return propertyID, nil
	}
	return b.unresolvedID("property", typeID, name)
}

func requireName(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return apperrors.New(apperrors.CodeBundleInvalidDocument, kind+" name is required")
	}
	return nil
}

// EntityType declares an entity type and returns its identifier.
func (b *Builder) EntityType(doc EntityTypeDoc) (string, error) {
	if err := requireName("entity type", doc.Name); err != nil {
		return "", err
	}
	role, ok := entity.ParseRole(doc.Role)
	if !ok {
		return "", apperrors.WithMetadata(apperrors.CodeBundleUnknownRole,
			fmt.Sprintf("entity type %s: unknown role %q", doc.Name, doc.Role),
			map[string]string{"entity_type": doc.Name, "role": doc.Role})
	}
	typeID, err := b.existingOrNew(b.typeIDs, doc.Name)
	if err != nil {
		return "", err
	}
	previous := b.propertyIDs[typeID]
	props := make(map[string]string, len(doc.Properties))
	defs := make([]entity.PropertyDefinition, 0, len(doc.Properties))
	for _, p := range doc.Properties {
		if err := requireName("property", p.Name); err != nil {
			return "", err
		}
		if _, dup := props[p.Name]; dup {
			return "", apperrors.WithMetadata(apperrors.CodeBundleDuplicateName,
				fmt.Sprintf("entity type %s: duplicate property %s", doc.Name, p.Name),
				map[string]string{"entity_type": doc.Name, "property": p.Name})
		}
		kind, ok := entity.ParseValueKind(p.Kind)
		if !ok {
			return "", apperrors.WithMetadata(apperrors.CodeBundleUnknownValueKind,
				fmt.Sprintf("entity type %s: property %s has unknown kind %q", doc.Name, p.Name, p.Kind),
				map[string]string{"entity_type": doc.Name, "property": p.Name, "kind": p.Kind})
		}
		def := entity.PropertyDefinition{Name: p.Name, Variants: p.Variants, Default: zeroValue(kind, p.Variants)}
		if p.Default != nil {
			def.Default, err = ParseValue(kind, p.Default, p.Variants)
			if err != nil {
				return "", fmt.Errorf("entity type %s: property %s default: %w", doc.Name, p.Name, err)
			}
		}
		if def.ID, err = b.existingOrNew(previous, p.Name); err != nil {
			return "", err
		}
		props[p.Name] = def.ID
		defs = append(defs, def)
	}
	if err := b.types.Register(entity.Type{ID: typeID, Name: doc.Name, Role: role, Properties: defs}); err != nil {
		return "", apperrors.Wrap(apperrors.CodeBundleInvalidDocument, "register entity type "+doc.Name, err)
	}
	b.typeIDs[doc.Name] = typeID
	b.propertyIDs[typeID] = props
	return typeID, nil
}

func zeroValue(kind entity.ValueKind, variants []string) entity.Value {
	switch kind {
	case entity.KindBool:
		return entity.Bool(false)
	case entity.KindInt:
		return entity.Int(0)
	case entity.KindFloat:
		return entity.Float(0)
	case entity.KindString:
		return entity.String("")
	case entity.KindColor:
		return entity.RGBA(0, 0, 0, 0xff)
	case entity.KindEnum:
		if len(variants) > 0 {
			return entity.Enum(variants[0])
		}
		return entity.Enum("")
	}
	return entity.Value{}
}

// Concept declares a concept and returns its identifier.
func (b *Builder) Concept(doc ConceptDoc) (string, error) {
	if err := requireName("concept", doc.Name); err != nil {
		return "", err
	}
	conceptID, err := b.existingOrNew(b.conceptIDs, doc.Name)
	if err != nil {
		return "", err
	}
	previous := b.roleIDs[conceptID]
	roleIDs := make(map[string]string, len(doc.Roles))
	roles := make([]ontology.ConceptRole, 0, len(doc.Roles))
	for _, r := range doc.Roles {
		if err := requireName("role", r.Name); err != nil {
			return "", err
		}
		if _, dup := roleIDs[r.Name]; dup {
			return "", apperrors.WithMetadata(apperrors.CodeBundleDuplicateName,
				fmt.Sprintf("concept %s: duplicate role %s", doc.Name, r.Name),
				map[string]string{"concept": doc.Name, "role": r.Name})
		}
		role := ontology.ConceptRole{Name: r.Name}
		for _, raw := range r.Allowed {
			allowed, ok := entity.ParseRole(raw)
			if !ok {
				return "", apperrors.WithMetadata(apperrors.CodeBundleUnknownRole,
					fmt.Sprintf("concept %s: role %s allows unknown entity role %q", doc.Name, r.Name, raw),
					map[string]string{"concept": doc.Name, "role": r.Name})
			}
			role.AllowedRoles = append(role.AllowedRoles, allowed)
		}
		if role.ID, err = b.existingOrNew(previous, r.Name); err != nil {
			return "", err
		}
		roleIDs[r.Name] = role.ID
		roles = append(roles, role)
	}
	if err := b.ontology.PutConcept(ontology.Concept{ID: conceptID, Name: doc.Name, Description: doc.Description, Roles: roles}); err != nil {
		return "", apperrors.Wrap(apperrors.CodeBundleInvalidDocument, "put concept "+doc.Name, err)
	}
	b.conceptIDs[doc.Name] = conceptID
	b.roleIDs[conceptID] = roleIDs
	return conceptID, nil
}

// Bind declares a concept binding and returns its identifier. Bindings
// have no name; every call adds a new one.
func (b *Builder) Bind(doc BindingDoc) (string, error) {
	typeID, err := b.resolveType(doc.EntityType)
	if err != nil {
		return "", err
	}
	conceptID, err := b.resolveConcept(doc.Concept)
	if err != nil {
		return "", err
	}
	roleID, err := b.resolveRole(conceptID, doc.Role)
	if err != nil {
		return "", err
	}
	binding := ontology.ConceptBinding{EntityTypeID: typeID, ConceptID: conceptID, RoleID: roleID}
	for _, alias := range doc.Properties {
		propertyID, err := b.resolveProperty(typeID, alias.Property)
		if err != nil {
			return "", err
		}
		local := alias.As
		if strings.TrimSpace(local) == "" {
			local = alias.Property
		}
		binding.Properties = append(binding.Properties, ontology.PropertyBinding{PropertyID: propertyID, LocalName: local})
	}
	if binding.ID, err = b.newID(); err != nil {
		return "", err
	}
	if err := b.ontology.PutBinding(binding); err != nil {
		return "", apperrors.Wrap(apperrors.CodeBundleInvalidDocument, "put binding", err)
	}
	return binding.ID, nil
}

// Relation declares a relation and returns its identifier.
func (b *Builder) Relation(doc RelationDoc) (string, error) {
	if err := requireName("relation", doc.Name); err != nil {
		return "", err
	}
	trigger, ok := ontology.ParseTrigger(doc.Trigger)
	if !ok {
		return "", apperrors.WithMetadata(apperrors.CodeBundleUnknownTrigger,
			fmt.Sprintf("relation %s: unknown trigger %q", doc.Name, doc.Trigger),
			map[string]string{"relation": doc.Name, "trigger": doc.Trigger})
	}
	conceptID, err := b.resolveConcept(doc.Concept)
	if err != nil {
		return "", err
	}
	rel := ontology.Relation{Name: doc.Name, ConceptID: conceptID, Trigger: trigger}
	if rel.SubjectRoleID, err = b.resolveRole(conceptID, doc.Subject); err != nil {
		return "", err
	}
	if rel.ObjectRoleID, err = b.resolveRole(conceptID, doc.Object); err != nil {
		return "", err
	}
	if rel.Effect, err = b.effect(conceptID, doc.Effect); err != nil {
		return "", fmt.Errorf("relation %s: %w", doc.Name, err)
	}
	if rel.ID, err = b.existingOrNew(b.relationIDs, doc.Name); err != nil {
		return "", err
	}
	if err := b.ontology.PutRelation(rel); err != nil {
		return "", apperrors.Wrap(apperrors.CodeBundleInvalidDocument, "put relation "+doc.Name, err)
	}
	b.relationIDs[doc.Name] = rel.ID
	return rel.ID, nil
}

// RemoveRelation deletes a declared relation.
func (b *Builder) RemoveRelation(name string) bool {
	relationID, ok := b.relationIDs[name]
	if !ok {
		return false
	}
	delete(b.relationIDs, name)
	return b.ontology.Relations.Delete(relationID)
}

// Constraint declares a designer-authored constraint and returns its
// identifier.
func (b *Builder) Constraint(doc ConstraintDoc) (string, error) {
	if err := requireName("constraint", doc.Name); err != nil {
		return "", err
	}
	conceptID, err := b.resolveConcept(doc.Concept)
	if err != nil {
		return "", err
	}
	c := ontology.Constraint{Name: doc.Name, Description: doc.Description, ConceptID: conceptID}
	if doc.Expr != nil {
		if c.Expr, err = b.expr(conceptID, *doc.Expr); err != nil {
			return "", fmt.Errorf("constraint %s: %w", doc.Name, err)
		}
	}
	if c.ID, err = b.existingOrNew(b.constraintIDs, doc.Name); err != nil {
		return "", err
	}
	if err := b.ontology.PutConstraint(c); err != nil {
		return "", apperrors.Wrap(apperrors.CodeBundleInvalidDocument, "put constraint "+doc.Name, err)
	}
	b.constraintIDs[doc.Name] = c.ID
	return c.ID, nil
}

// RemoveConstraint deletes a declared constraint.
func (b *Builder) RemoveConstraint(name string) bool {
	constraintID, ok := b.constraintIDs[name]
	if !ok {
		return false
	}
	delete(b.constraintIDs, name)
	return b.ontology.Constraints.Delete(constraintID)
}

// spawn creates instance data for a declared type with overrides applied.
func (b *Builder) spawn(typeName string, values map[string]any) (entity.Data, error) {
	typeID, ok := b.typeIDs[typeName]
	if !ok {
		return entity.Data{}, apperrors.WithMetadata(apperrors.CodeBundleInvalidDocument,
			fmt.Sprintf("unknown entity type %q", typeName),
			map[string]string{"entity_type": typeName})
	}
	t, _ := b.types.Get(typeID)
	data := entity.NewData(t)
	for name, raw := range values {
		propertyID, ok := b.propertyIDs[typeID][name]
		if !ok {
			return entity.Data{}, apperrors.WithMetadata(apperrors.CodeBundleInvalidDocument,
				fmt.Sprintf("%s has no property %q", typeName, name),
				map[string]string{"entity_type": typeName, "property": name})
		}
		def, _ := t.Property(propertyID)
		value, err := ParseValue(def.Default.Kind, raw, def.Variants)
		if err != nil {
			return entity.Data{}, fmt.Errorf("%s.%s: %w", typeName, name, err)
		}
		data.Set(propertyID, value)
	}
	return data, nil
}

// Tile places a tile of the named type at pos.
func (b *Builder) Tile(pos hexgrid.Position, typeName string, values map[string]any) error {
	data, err := b.spawn(typeName, values)
	if err != nil {
		return fmt.Errorf("tile %s: %w", pos, err)
	}
	b.board.Tiles[pos] = data
	return nil
}

// Fill places a tile of the named type on every in-bounds hex.
func (b *Builder) Fill(typeName string, values map[string]any) error {
	for _, pos := range hexgrid.Within(b.board.Radius) {
		if err := b.Tile(pos, typeName, values); err != nil {
			return err
		}
	}
	return nil
}

// Unit places a unit, replacing any unit with the same id.
func (b *Builder) Unit(doc UnitDoc) error {
	if err := requireName("unit", doc.ID); err != nil {
		return err
	}
	data, err := b.spawn(doc.Type, doc.Values)
	if err != nil {
		return fmt.Errorf("unit %s: %w", doc.ID, err)
	}
	b.board.Units[doc.ID] = movement.Unit{ID: doc.ID, Position: doc.At, Data: data}
	return nil
}

// MoveUnit relocates a placed unit.
func (b *Builder) MoveUnit(unitID string, pos hexgrid.Position) error {
	unit, ok := b.board.Units[unitID]
	if !ok {
		return apperrors.WithMetadata(apperrors.CodeBundleUnknownUnit,
			fmt.Sprintf("unknown unit %q", unitID),
			map[string]string{"unit": unitID})
	}
	unit.Position = pos
	b.board.Units[unitID] = unit
	return nil
}

// SetUnitValue overrides one property on a placed unit.
func (b *Builder) SetUnitValue(unitID, property string, raw any) error {
	unit, ok := b.board.Units[unitID]
	if !ok {
		return apperrors.WithMetadata(apperrors.CodeBundleUnknownUnit,
			fmt.Sprintf("unknown unit %q", unitID),
			map[string]string{"unit": unitID})
	}
	t, ok := b.types.Get(unit.Data.TypeID)
	if !ok {
		return apperrors.New(apperrors.CodeBundleInvalidDocument, fmt.Sprintf("unit %s has an unregistered type", unitID))
	}
	updated, err := b.spawn(t.Name, map[string]any{property: raw})
	if err != nil {
		return fmt.Errorf("unit %s: %w", unitID, err)
	}
	data := unit.Data.Clone()
	propertyID := b.propertyIDs[t.ID][property]
	value, _ := updated.Get(propertyID)
	data.Set(propertyID, value)
	unit.Data = data
	b.board.Units[unitID] = unit
	return nil
}
