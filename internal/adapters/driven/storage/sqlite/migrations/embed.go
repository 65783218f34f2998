// Package migrations holds the SQLite schema for documents and conversations.
package migrations

import "embed"

// FS holds the numbered migration files. Only *.up.sql files are applied,
// in version order.
//
//go:embed *.sql
var FS embed.FS
