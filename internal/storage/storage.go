package storage

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/louisbranch/boardrules/internal/entity"
	"github.com/louisbranch/boardrules/internal/hexgrid"
	"github.com/louisbranch/boardrules/internal/ontology"
	"github.com/louisbranch/boardrules/internal/ontology/movement"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// Tile is one placed tile in a snapshot.
type Tile struct {
	At   hexgrid.Position `json:"at"`
	Data entity.Data      `json:"data"`
}

// Snapshot is the serializable form of a world.
type Snapshot struct {
	Types       []entity.Type             `json:"types"`
	Concepts    []ontology.Concept        `json:"concepts"`
	Bindings    []ontology.ConceptBinding `json:"bindings"`
	Relations   []ontology.Relation       `json:"relations"`
	Constraints []ontology.Constraint     `json:"constraints"`
	Radius      int                       `json:"radius"`
	Tiles       []Tile                    `json:"tiles"`
	Units       []movement.Unit           `json:"units"`
	Selection   string                    `json:"selection,omitempty"`
}

// Capture copies the registries and board into a snapshot. Tiles and units
// are listed in a stable order.
func Capture(types *entity.TypeRegistry, reg *ontology.Registry, board movement.Board, selection string) Snapshot {
	snap := Snapshot{
		Types:     types.List(),
		Radius:    board.Radius,
		Selection: selection,
	}
	if reg != nil {
		snap.Concepts = reg.Concepts.List()
		snap.Bindings = reg.Bindings.List()
		snap.Relations = reg.Relations.List()
		snap.Constraints = reg.Constraints.List()
	}

	positions := make([]hexgrid.Position, 0, len(board.Tiles))
	for pos := range board.Tiles {
		positions = append(positions, pos)
	}
	hexgrid.Sort(positions)
	for _, pos := range positions {
		snap.Tiles = append(snap.Tiles, Tile{At: pos, Data: board.Tiles[pos]})
	}

	for _, unit := range board.Units {
		snap.Units = append(snap.Units, unit)
	}
	slices.SortFunc(snap.Units, func(a, b movement.Unit) int { return cmp.Compare(a.ID, b.ID) })
	return snap
}

// Restore rebuilds registries and a board from the snapshot.
func (s Snapshot) Restore() (*entity.TypeRegistry, *ontology.Registry, movement.Board, error) {
	types := entity.NewTypeRegistry()
	reg := ontology.NewRegistry()
	board := movement.Board{
		Radius: s.Radius,
		Tiles:  make(map[hexgrid.Position]entity.Data, len(s.Tiles)),
		Units:  make(map[string]movement.Unit, len(s.Units)),
	}
	for _, t := range s.Types {
		if err := types.Register(t); err != nil {
			return nil, nil, board, fmt.Errorf("restore type: %w", err)
		}
	}
	for _, c := range s.Concepts {
		if err := reg.PutConcept(c); err != nil {
			return nil, nil, board, fmt.Errorf("restore concept: %w", err)
		}
	}
	for _, b := range s.Bindings {
		if err := reg.PutBinding(b); err != nil {
			return nil, nil, board, fmt.Errorf("restore binding: %w", err)
		}
	}
	for _, r := range s.Relations {
		if err := reg.PutRelation(r); err != nil {
			return nil, nil, board, fmt.Errorf("restore relation: %w", err)
		}
	}
	for _, c := range s.Constraints {
		if err := reg.PutConstraint(c); err != nil {
			return nil, nil, board, fmt.Errorf("restore constraint: %w", err)
		}
	}
	for _, tile := range s.Tiles {
		board.Tiles[tile.At] = tile.Data
	}
	for _, unit := range s.Units {
		board.Units[unit.ID] = unit
	}
	return types, reg, board, nil
}

// Workspace is a stored snapshot.
type Workspace struct {
	Name        string
	Snapshot    Snapshot
	ContentHash string
	UpdatedAt   time.Time
}

// WorkspaceSummary describes a stored workspace without its content.
type WorkspaceSummary struct {
	Name        string
	ContentHash string
	UpdatedAt   time.Time
}

// WorkspaceStore persists workspaces by name.
type WorkspaceStore interface {
	PutWorkspace(ctx context.Context, name string, snapshot Snapshot) (WorkspaceSummary, error)
	GetWorkspace(ctx context.Context, name string) (Workspace, error)
	ListWorkspaces(ctx context.Context) ([]WorkspaceSummary, error)
	DeleteWorkspace(ctx context.Context, name string) error
}
