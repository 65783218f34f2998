package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/bpa/internal/core/domain"
)

// ConversationStore persists conversations.
// Every lookup is scoped by owner: a conversation owned by someone else
// is reported as domain.ErrNotFound.
type ConversationStore interface {
	// FindConversation returns the conversation with id owned by owner.
	FindConversation(ctx context.Context, id string, owner domain.Owner) (*domain.Conversation, error)

	// InsertConversation stores a new conversation.
	InsertConversation(ctx context.Context, conv *domain.Conversation) error

	// AppendMessage appends one message and sets the update timestamp.
	// Appends are independent; callers append the user and assistant
	// messages of a turn separately.
	AppendMessage(ctx context.Context, id string, owner domain.Owner, msg domain.Message) error

	// UpdateRole records the role used by the latest turn.
	UpdateRole(ctx context.Context, id string, owner domain.Owner, role domain.AccessRole, at time.Time) error

	// ListConversations returns the owner's conversations by update time, newest first.
	ListConversations(ctx context.Context, owner domain.Owner) ([]domain.ConversationSummary, error)

	// DeleteConversation removes a conversation and its messages.
	DeleteConversation(ctx context.Context, id string, owner domain.Owner) error
}
