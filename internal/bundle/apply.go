package bundle

import (
	"fmt"

	apperrors "github.com/louisbranch/boardrules/internal/platform/errors"
)

// Apply declares everything in doc, in dependency order: entity types,
// concepts, bindings, relations, constraints, then the board.
func (d *Document) Apply(b *Builder) error {
	if err := d.checkDuplicates(); err != nil {
		return err
	}
	if err := b.SetRadius(d.Radius); err != nil {
		return err
	}
	for _, t := range d.EntityTypes {
		if _, err := b.EntityType(t); err != nil {
			return err
		}
	}
	for _, c := range d.Concepts {
		if _, err := b.Concept(c); err != nil {
			return err
		}
	}
	for i, binding := range d.Bindings {
		if _, err := b.Bind(binding); err != nil {
			return fmt.Errorf("binding %d: %w", i, err)
		}
	}
	for _, r := range d.Relations {
		if _, err := b.Relation(r); err != nil {
			return err
		}
	}
	for _, c := range d.Constraints {
		if _, err := b.Constraint(c); err != nil {
			return err
		}
	}
	for _, tile := range d.Tiles {
		var err error
		if tile.At == nil {
			err = b.Fill(tile.Type, tile.Values)
		} else {
			err = b.Tile(*tile.At, tile.Type, tile.Values)
		}
		if err != nil {
			return err
		}
	}
	for _, u := range d.Units {
		if err := b.Unit(u); err != nil {
			return err
		}
	}
	b.Select(d.Selection)
	return nil
}

// Build applies doc to a fresh Builder.
func Build(doc *Document, opts ...BuilderOption) (*Builder, error) {
	if doc == nil {
		return nil, apperrors.New(apperrors.CodeBundleInvalidDocument, "bundle document is required")
	}
	b := NewBuilder(opts...)
	if err := doc.Apply(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (d *Document) checkDuplicates() error {
	sections := []struct {
		kind  string
		names []string
	}{
		{"entity type", names(d.EntityTypes, func(t EntityTypeDoc) string { return t.Name })},
		{"concept", names(d.Concepts, func(c ConceptDoc) string { return c.Name })},
		{"relation", names(d.Relations, func(r RelationDoc) string { return r.Name })},
		{"constraint", names(d.Constraints, func(c ConstraintDoc) string { return c.Name })},
		{"unit", names(d.Units, func(u UnitDoc) string { return u.ID })},
	}
	for _, section := range sections {
		seen := make(map[string]struct{}, len(section.names))
		for _, name := range section.names {
			if _, dup := seen[name]; dup {
				return apperrors.WithMetadata(apperrors.CodeBundleDuplicateName,
					fmt.Sprintf("duplicate %s %q", section.kind, name),
					map[string]string{"kind": section.kind, "name": name})
			}
			seen[name] = struct{}{}
		}
	}
	return nil
}

func names[T any](items []T, name func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, name(item))
	}
	return out
}
