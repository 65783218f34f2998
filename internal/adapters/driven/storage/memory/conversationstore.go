package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driven"
)

// Ensure ConversationStore implements the interface.
var _ driven.ConversationStore = (*ConversationStore)(nil)

// ConversationStore is an in-memory implementation of driven.ConversationStore.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]domain.Conversation
}

// NewConversationStore creates a new in-memory conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[string]domain.Conversation),
	}
}

// FindConversation returns the conversation with id owned by owner.
func (s *ConversationStore) FindConversation(_ context.Context, id string, owner domain.Owner) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok || !conv.OwnedBy(owner) {
		return nil, domain.ErrNotFound
	}
	return cloneConversation(conv), nil
}

// InsertConversation stores a new conversation.
func (s *ConversationStore) InsertConversation(_ context.Context, conv *domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.conversations[conv.ID]; exists {
		return domain.ErrInvalidInput
	}
	s.conversations[conv.ID] = *cloneConversation(*conv)
	return nil
}

// AppendMessage appends one message and sets the update timestamp.
func (s *ConversationStore) AppendMessage(
	_ context.Context, id string, owner domain.Owner, msg domain.Message,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok || !conv.OwnedBy(owner) {
		return domain.ErrNotFound
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = msg.Timestamp
	s.conversations[id] = conv
	return nil
}

// UpdateRole records the role used by the latest turn.
func (s *ConversationStore) UpdateRole(
	_ context.Context, id string, owner domain.Owner, role domain.AccessRole, at time.Time,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok || !conv.OwnedBy(owner) {
		return domain.ErrNotFound
	}
	conv.Role = role
	conv.UpdatedAt = at
	s.conversations[id] = conv
	return nil
}

// ListConversations returns the owner's conversations by update time, newest first.
func (s *ConversationStore) ListConversations(_ context.Context, owner domain.Owner) ([]domain.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var summaries []domain.ConversationSummary //nolint:prealloc
	for _, conv := range s.conversations {
		if !conv.OwnedBy(owner) {
			continue
		}
		summaries = append(summaries, domain.ConversationSummary{
			ID:           conv.ID,
			Owner:        conv.Owner,
			Role:         conv.Role,
			MessageCount: len(conv.Messages),
			CreatedAt:    conv.CreatedAt,
			UpdatedAt:    conv.UpdatedAt,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

// DeleteConversation removes a conversation.
func (s *ConversationStore) DeleteConversation(_ context.Context, id string, owner domain.Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok || !conv.OwnedBy(owner) {
		return domain.ErrNotFound
	}
	delete(s.conversations, id)
	return nil
}

func cloneConversation(conv domain.Conversation) *domain.Conversation {
	conv.Messages = append([]domain.Message(nil), conv.Messages...)
	if conv.Messages == nil {
		conv.Messages = []domain.Message{}
	}
	return &conv
}
