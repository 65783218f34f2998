package driving

import (
	"context"

	"github.com/custodia-labs/bpa/internal/core/domain"
)

// ConversationService exposes an owner's conversations.
// Conversations of other owners are reported as domain.ErrNotFound.
type ConversationService interface {
	// List returns the owner's conversations, most recently updated first.
	List(ctx context.Context, owner domain.Owner) ([]domain.ConversationSummary, error)

	// Get returns one conversation with its messages.
	Get(ctx context.Context, id string, owner domain.Owner) (*domain.Conversation, error)

	// Delete removes one conversation.
	Delete(ctx context.Context, id string, owner domain.Owner) error
}
