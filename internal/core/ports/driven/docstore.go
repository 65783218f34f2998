package driven

import (
	"context"

	"github.com/custodia-labs/bpa/internal/core/domain"
)

// DocumentStore persists DocumentRecords.
type DocumentStore interface {
	// CreateDocument inserts a new record.
	CreateDocument(ctx context.Context, doc *domain.DocumentRecord) error

	// GetDocument retrieves a record by ID. Returns domain.ErrNotFound if absent.
	GetDocument(ctx context.Context, id string) (*domain.DocumentRecord, error)

	// ListDocuments returns all records, newest first.
	ListDocuments(ctx context.Context) ([]domain.DocumentRecord, error)
}
