package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/boardrules/internal/entity"
	"github.com/louisbranch/boardrules/internal/hexgrid"
	"github.com/louisbranch/boardrules/internal/ontology"
	"github.com/louisbranch/boardrules/internal/ontology/movement"
	apperrors "github.com/louisbranch/boardrules/internal/platform/errors"
	"github.com/louisbranch/boardrules/internal/storage"
)

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), ""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestPutGetWorkspaceRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	snapshot := sampleSnapshot()
	summary, err := store.PutWorkspace(context.Background(), " skirmish ", snapshot)
	if err != nil {
		t.Fatalf("put workspace: %v", err)
	}
	if summary.Name != "skirmish" {
		t.Fatalf("name = %q, want skirmish", summary.Name)
	}
	if len(summary.ContentHash) != 32 {
		t.Fatalf("content hash = %q, want 32 hex characters", summary.ContentHash)
	}

	got, err := store.GetWorkspace(context.Background(), "skirmish")
	if err != nil {
		t.Fatalf("get workspace: %v", err)
	}
	if got.ContentHash != summary.ContentHash {
		t.Fatalf("content hash = %q, want %q", got.ContentHash, summary.ContentHash)
	}
	if !got.UpdatedAt.Equal(summary.UpdatedAt) {
		t.Fatalf("updated_at = %v, want %v", got.UpdatedAt, summary.UpdatedAt)
	}
	if len(got.Snapshot.Relations) != 1 {
		t.Fatalf("relations = %d, want 1", len(got.Snapshot.Relations))
	}
	modify, ok := ontology.IsSubtract(got.Snapshot.Relations[0].Effect)
	if !ok || modify.TargetProperty != "budget" {
		t.Fatalf("effect = %#v, want subtract on budget", got.Snapshot.Relations[0].Effect)
	}
	if got.Snapshot.Tiles[0].At != hexgrid.At(1, 0) {
		t.Fatalf("tile at = %v, want (1,0)", got.Snapshot.Tiles[0].At)
	}
	if v, _ := got.Snapshot.Units[0].Data.Get("p-mp"); v.Int != 3 {
		t.Fatalf("unit mp = %d, want 3", v.Int)
	}
}

func TestPutWorkspaceReplacesContent(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	clock := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	first, err := store.PutWorkspace(context.Background(), "w", sampleSnapshot())
	if err != nil {
		t.Fatalf("put workspace: %v", err)
	}
	clock = clock.Add(time.Minute)
	changed := sampleSnapshot()
	changed.Radius = 5
	second, err := store.PutWorkspace(context.Background(), "w", changed)
	if err != nil {
		t.Fatalf("put workspace: %v", err)
	}
	if first.ContentHash == second.ContentHash {
		t.Fatal("expected content hash to change with content")
	}

	got, err := store.GetWorkspace(context.Background(), "w")
	if err != nil {
		t.Fatalf("get workspace: %v", err)
	}
	if got.Snapshot.Radius != 5 {
		t.Fatalf("radius = %d, want 5", got.Snapshot.Radius)
	}
	if !got.UpdatedAt.Equal(clock) {
		t.Fatalf("updated_at = %v, want %v", got.UpdatedAt, clock)
	}
}

func TestContentHashIsStable(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	a, err := store.PutWorkspace(context.Background(), "a", sampleSnapshot())
	if err != nil {
		t.Fatalf("put workspace: %v", err)
	}
	b, err := store.PutWorkspace(context.Background(), "b", sampleSnapshot())
	if err != nil {
		t.Fatalf("put workspace: %v", err)
	}
	if a.ContentHash != b.ContentHash {
		t.Fatalf("hashes differ for identical content: %q vs %q", a.ContentHash, b.ContentHash)
	}
}

func TestListAndDeleteWorkspaces(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	for _, name := range []string{"zeta", "alpha"} {
		if _, err := store.PutWorkspace(context.Background(), name, sampleSnapshot()); err != nil {
			t.Fatalf("put workspace %s: %v", name, err)
		}
	}
	list, err := store.ListWorkspaces(context.Background())
	if err != nil {
		t.Fatalf("list workspaces: %v", err)
	}
	if len(list) != 2 || list[0].Name != "alpha" || list[1].Name != "zeta" {
		t.Fatalf("list = %+v, want alpha then zeta", list)
	}

	if err := store.DeleteWorkspace(context.Background(), "alpha"); err != nil {
		t.Fatalf("delete workspace: %v", err)
	}
	if _, err := store.GetWorkspace(context.Background(), "alpha"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get deleted = %v, want ErrNotFound", err)
	}
	if err := store.DeleteWorkspace(context.Background(), "alpha"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("delete twice = %v, want ErrNotFound", err)
	}
}

func TestWorkspaceNameRequired(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	_, err := store.PutWorkspace(context.Background(), "  ", sampleSnapshot())
	if apperrors.CodeOf(err) != apperrors.CodeWorkspaceNameEmpty {
		t.Fatalf("code = %q, want %q", apperrors.CodeOf(err), apperrors.CodeWorkspaceNameEmpty)
	}
}

func TestGetWorkspaceCorruptDocument(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.sqlDB.Exec(
		`INSERT INTO workspaces (name, document, content_hash, created_at, updated_at) VALUES ('bad', '{', 'x', 0, 0)`,
	); err != nil {
		t.Fatalf("insert corrupt row: %v", err)
	}
	_, err := store.GetWorkspace(context.Background(), "bad")
	if apperrors.CodeOf(err) != apperrors.CodeStorageCorrupt {
		t.Fatalf("code = %q, want %q", apperrors.CodeOf(err), apperrors.CodeStorageCorrupt)
	}
}

func TestStoreHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.ListWorkspaces(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestReopenKeepsWorkspaces(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rules.db")
	store, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, err := store.PutWorkspace(context.Background(), "kept", sampleSnapshot()); err != nil {
		t.Fatalf("put workspace: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	reopened, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })
	if _, err := reopened.GetWorkspace(context.Background(), "kept"); err != nil {
		t.Fatalf("get workspace after reopen: %v", err)
	}
}

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "rules.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleSnapshot() storage.Snapshot {
	infantry := entity.Type{ID: "t-inf", Name: "Infantry", Role: entity.RoleToken, Properties: []entity.PropertyDefinition{
		{ID: "p-mp", Name: "mp", Default: entity.Int(3)},
	}}
	plains := entity.Type{ID: "t-plains", Name: "Plains", Role: entity.RoleBoardPosition}
	return storage.Snapshot{
		Types: []entity.Type{infantry, plains},
		Concepts: []ontology.Concept{{ID: "c-motion", Name: "Motion", Roles: []ontology.ConceptRole{
			{ID: "r-mover", Name: "mover", AllowedRoles: []entity.Role{entity.RoleToken}},
			{ID: "r-terrain", Name: "terrain", AllowedRoles: []entity.Role{entity.RoleBoardPosition}},
		}}},
		Relations: []ontology.Relation{{
			ID: "rel-cost", Name: "Cost", ConceptID: "c-motion",
			SubjectRoleID: "r-mover", ObjectRoleID: "r-terrain", Trigger: ontology.TriggerOnEnter,
			Effect: ontology.ModifyProperty{TargetProperty: "budget", SourceProperty: "cost", Operation: ontology.OpSubtract},
		}},
		Radius: 2,
		Tiles:  []storage.Tile{{At: hexgrid.At(1, 0), Data: entity.NewData(plains)}},
		Units:  []movement.Unit{{ID: "u1", Data: entity.NewData(infantry)}},
	}
}
