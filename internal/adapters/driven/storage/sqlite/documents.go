package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driven"
)

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

const documentColumns = `id, title, source_kind, origin, namespace, access_role, department,
	version, effective_date, chunk_count, created_at, updated_at`

// CreateDocument inserts a new record. An existing ID is rejected.
func (s *documentStore) CreateDocument(ctx context.Context, doc *domain.DocumentRecord) error {
	var effective any
	if doc.EffectiveDate != nil {
		effective = utc(*doc.EffectiveDate)
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.Title, string(doc.SourceKind), doc.Origin, doc.Namespace,
		string(doc.AccessRole), doc.Department, doc.Version, effective,
		doc.ChunkCount, utc(doc.CreatedAt), utc(doc.UpdatedAt))

	if isUniqueViolation(err) {
		return fmt.Errorf("%w: document %s already exists", domain.ErrInvalidInput, doc.ID)
	}
	if err != nil {
		return fmt.Errorf("%w: saving document: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// GetDocument retrieves a record by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.DocumentRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents WHERE id = ?
	`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments returns all records, newest first.
func (s *documentStore) ListDocuments(ctx context.Context) ([]domain.DocumentRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		ORDER BY created_at DESC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying documents: %w", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var docs []domain.DocumentRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*domain.DocumentRecord, error) {
	var doc domain.DocumentRecord
	var sourceKind, role string
	var effective sql.NullTime

	err := row.Scan(&doc.ID, &doc.Title, &sourceKind, &doc.Origin, &doc.Namespace,
		&role, &doc.Department, &doc.Version, &effective, &doc.ChunkCount,
		&doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.SourceKind = domain.SourceKind(sourceKind)
	doc.AccessRole = domain.AccessRole(role)
	if effective.Valid {
		t := effective.Time
		doc.EffectiveDate = &t
	}
	return &doc, nil
}
