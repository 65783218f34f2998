// Package sqlite provides SQLite-backed implementations of the document and
// conversation stores.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. Both stores share a single database connection:
//
//   - DocumentStore: ingested document records
//   - ConversationStore: owner-scoped conversations and their messages
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.bpa/data/metadata.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
