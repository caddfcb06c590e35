package migrations

import "embed"

// FS contains embedded SQLite migrations for workspace storage.
//
//go:embed *.sql
var FS embed.FS
