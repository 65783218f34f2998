package driving

import (
	"context"

	"github.com/custodia-labs/bpa/internal/core/domain"
)

// DocumentService reads DocumentRecords.
type DocumentService interface {
	// List returns all records, newest first.
	List(ctx context.Context) ([]domain.DocumentRecord, error)

	// Get retrieves a record by ID.
	Get(ctx context.Context, id string) (*domain.DocumentRecord, error)
}
