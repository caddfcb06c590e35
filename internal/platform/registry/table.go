// Package registry provides the versioned, insertion-ordered tables that back
// the entity and ontology registries.
//
// Every mutation bumps the table version. Readers that recompute derived
// output remember the versions they last observed and skip work when nothing
// moved; the version is the dirty flag.
package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrKeyRequired indicates a definition without an identifier.
var ErrKeyRequired = errors.New("registry key is required")

// Keyed is implemented by every definition stored in a Table.
type Keyed interface {
	Key() string
}

// Table stores definitions by key and remembers insertion order so listings
// and anything derived from them are deterministic.
type Table[T Keyed] struct {
	items   map[string]T
	order   []string
	version uint64
}

// NewTable creates an empty table.
func NewTable[T Keyed]() *Table[T] {
	return &Table[T]{items: make(map[string]T)}
}

// Put inserts or replaces a definition. Replacing keeps the original
// position in the listing order.
func (t *Table[T]) Put(item T) error {
	if t == nil {
		return errors.New("table is required")
	}
	key := item.Key()
	if strings.TrimSpace(key) == "" {
		return ErrKeyRequired
	}
	if t.items == nil {
		t.items = make(map[string]T)
	}
	if _, exists := t.items[key]; !exists {
		t.order = append(t.order, key)
	}
	t.items[key] = item
	t.version++
	return nil
}

// Insert adds a definition and fails when the key is already present.
func (t *Table[T]) Insert(item T) error {
	if t == nil {
		return errors.New("table is required")
	}
	if _, exists := t.items[item.Key()]; exists {
		return fmt.Errorf("registry key already present: %s", item.Key())
	}
	return t.Put(item)
}

// Get returns the definition stored under key.
func (t *Table[T]) Get(key string) (T, bool) {
	var zero T
	if t == nil {
		return zero, false
	}
	item, ok := t.items[key]
	return item, ok
}

// Has reports whether key is present.
func (t *Table[T]) Has(key string) bool {
	_, ok := t.Get(key)
	return ok
}

// Delete removes key and reports whether anything was removed. Deleting an
// absent key leaves the version untouched.
func (t *Table[T]) Delete(key string) bool {
	if t == nil {
		return false
	}
	if _, ok := t.items[key]; !ok {
		return false
	}
	delete(t.items, key)
	for i, existing := range t.order {
		if existing == key {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	t.version++
	return true
}

// List returns definitions in insertion order.
func (t *Table[T]) List() []T {
	if t == nil {
		return nil
	}
	out := make([]T, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, t.items[key])
	}
	return out
}

// Len returns the number of stored definitions.
func (t *Table[T]) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Version returns the mutation counter.
func (t *Table[T]) Version() uint64 {
	if t == nil {
		return 0
	}
	return t.version
}
