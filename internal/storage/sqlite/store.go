// Package sqlite provides a SQLite-backed workspace store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/boardrules/internal/platform/encoding"
	apperrors "github.com/louisbranch/boardrules/internal/platform/errors"
	sqlitemigrate "github.com/louisbranch/boardrules/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/boardrules/internal/storage"
	"github.com/louisbranch/boardrules/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists workspaces in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

var _ storage.WorkspaceStore = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite workspace store and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS, "."); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func workspaceName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.New(apperrors.CodeWorkspaceNameEmpty, "workspace name is required")
	}
	return name, nil
}

// PutWorkspace creates or replaces a workspace. The creation time of an
// existing workspace is kept.
func (s *Store) PutWorkspace(ctx context.Context, name string, snapshot storage.Snapshot) (storage.WorkspaceSummary, error) {
	if err := s.ready(ctx); err != nil {
		return storage.WorkspaceSummary{}, err
	}
	name, err := workspaceName(name)
	if err != nil {
		return storage.WorkspaceSummary{}, err
	}
	document, err := encoding.CanonicalJSON(snapshot)
	if err != nil {
		return storage.WorkspaceSummary{}, fmt.Errorf("encode workspace %s: %w", name, err)
	}
	hash, err := encoding.ContentHash(snapshot)
	if err != nil {
		return storage.WorkspaceSummary{}, fmt.Errorf("hash workspace %s: %w", name, err)
	}
	now := s.now().UTC()

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO workspaces (name, document, content_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   document = excluded.document,
		   content_hash = excluded.content_hash,
		   updated_at = excluded.updated_at`,
		name,
		string(document),
		hash,
		toMillis(now),
		toMillis(now),
	)
	if err != nil {
		return storage.WorkspaceSummary{}, fmt.Errorf("put workspace %s: %w", name, err)
	}
	return storage.WorkspaceSummary{Name: name, ContentHash: hash, UpdatedAt: fromMillis(toMillis(now))}, nil
}

// GetWorkspace returns one workspace by name.
func (s *Store) GetWorkspace(ctx context.Context, name string) (storage.Workspace, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Workspace{}, err
	}
	name, err := workspaceName(name)
	if err != nil {
		return storage.Workspace{}, err
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT document, content_hash, updated_at
		   FROM workspaces
		  WHERE name = ?`,
		name,
	)
	var (
		document  string
		hash      string
		updatedAt int64
	)
	if err := row.Scan(&document, &hash, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Workspace{}, storage.ErrNotFound
		}
		return storage.Workspace{}, fmt.Errorf("get workspace %s: %w", name, err)
	}

	var snapshot storage.Snapshot
	if err := json.Unmarshal([]byte(document), &snapshot); err != nil {
		return storage.Workspace{}, apperrors.Wrap(apperrors.CodeStorageCorrupt, "decode workspace "+name, err)
	}
	return storage.Workspace{
		Name:        name,
		Snapshot:    snapshot,
		ContentHash: hash,
		UpdatedAt:   fromMillis(updatedAt),
	}, nil
}

// ListWorkspaces returns every workspace ordered by name.
func (s *Store) ListWorkspaces(ctx context.Context) ([]storage.WorkspaceSummary, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT name, content_hash, updated_at
		   FROM workspaces
		  ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	var out []storage.WorkspaceSummary
	for rows.Next() {
		var (
			summary   storage.WorkspaceSummary
			updatedAt int64
		)
		if err := rows.Scan(&summary.Name, &summary.ContentHash, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		summary.UpdatedAt = fromMillis(updatedAt)
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	return out, nil
}

// DeleteWorkspace removes one workspace.
func (s *Store) DeleteWorkspace(ctx context.Context, name string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	name, err := workspaceName(name)
	if err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM workspaces WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete workspace %s: %w", name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete workspace %s: %w", name, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
