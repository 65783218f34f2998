package driving

import (
	"context"

	"github.com/custodia-labs/bpa/internal/core/domain"
)

// AnswerService answers questions from ingested documents.
type AnswerService interface {
	// AnswerQuery runs the retrieval-augmented pipeline. It never returns a
	// bare error: failures produce an Answer with Meta.Error set.
	AnswerQuery(ctx context.Context, req domain.AnswerRequest) *domain.Answer
}
