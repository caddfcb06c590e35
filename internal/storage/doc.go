// Package storage defines the persistence contract for rules workspaces.
//
// A workspace is a named snapshot of an entity type registry, an ontology
// registry, and a board. Implementations (see the sqlite subpackage) store
// snapshots as canonical JSON so identical worlds produce identical bytes.
//
// # Error Types
//
//   - ErrNotFound: Indicates a requested workspace is missing.
package storage
