package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driven"
	"github.com/custodia-labs/bpa/internal/core/ports/driving"
	"github.com/custodia-labs/bpa/internal/logger"
)

// Ensure ConversationManager implements the interface.
var _ driving.ConversationService = (*ConversationManager)(nil)

// DefaultHistoryWindow is the number of recent messages passed to synthesis.
const DefaultHistoryWindow = 5

// ConversationManager loads, creates and appends to conversations.
type ConversationManager struct {
	store  driven.ConversationStore
	window int
	now    func() time.Time
	newID  func() string
}

// NewConversationManager creates a conversation manager.
// A negative window falls back to DefaultHistoryWindow.
func NewConversationManager(store driven.ConversationStore, window int) *ConversationManager {
	if window < 0 {
		window = DefaultHistoryWindow
	}
	return &ConversationManager{
		store:  store,
		window: window,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.New().String() },
	}
}

// GetOrCreate returns the owner's conversation with id, or a new one when id
// is empty, unknown or owned by someone else. created reports the latter.
func (m *ConversationManager) GetOrCreate(
	ctx context.Context, id string, owner domain.Owner, role domain.AccessRole,
) (conv *domain.Conversation, created bool, err error) {
	if owner.IsZero() {
		return nil, false, fmt.Errorf("%w: conversation owner is required", domain.ErrInvalidInput)
	}

	if id != "" {
		conv, err = m.store.FindConversation(ctx, id, owner)
		switch {
		case err == nil && conv.OwnedBy(owner):
			// The new role is stored by AppendTurn, so a failed turn leaves it unchanged.
			conv.Role = role
			return conv, false, nil
		case err == nil, errors.Is(err, domain.ErrNotFound):
			logger.Debug("Conversation %s not found for %s, starting a new one", id, owner)
		default:
			return nil, false, fmt.Errorf("%w: find conversation: %w", domain.ErrStoreUnavailable, err)
		}
	}

	now := m.now()
	conv = &domain.Conversation{
		ID:        m.newID(),
		Owner:     owner,
		Role:      role,
		Messages:  []domain.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.InsertConversation(ctx, conv); err != nil {
		return nil, false, fmt.Errorf("%w: insert conversation: %w", domain.ErrStoreUnavailable, err)
	}
	return conv, true, nil
}

// History serialises the most recent messages as "sender: text" lines.
func (m *ConversationManager) History(conv *domain.Conversation) string {
	return domain.FormatHistory(conv.RecentMessages(m.window))
}

// AppendTurn appends the user message, then the assistant message, then
// records conv.Role as the role of the latest turn.
// Each append is stamped when it is made. If the second append fails the
// user message remains, unanswered, and the stored role is not changed.
func (m *ConversationManager) AppendTurn(ctx context.Context, conv *domain.Conversation, userText, assistantText string) error {
	if err := m.appendMessage(ctx, conv, domain.SenderUser, userText); err != nil {
		return err
	}
	if err := m.appendMessage(ctx, conv, domain.SenderAssistant, assistantText); err != nil {
		logger.Warn("Conversation %s left with an unanswered user message: %v", conv.ID, err)
		return err
	}
	if err := m.store.UpdateRole(ctx, conv.ID, conv.Owner, conv.Role, conv.UpdatedAt); err != nil {
		// Both messages are stored; the turn stands with the previous role.
		logger.Warn("Failed to record role %s on conversation %s: %v", conv.Role, conv.ID, err)
	}
	return nil
}

func (m *ConversationManager) appendMessage(
	ctx context.Context, conv *domain.Conversation, sender domain.Sender, text string,
) error {
	msg := domain.Message{Sender: sender, Text: text, Timestamp: m.now()}
	if err := m.store.AppendMessage(ctx, conv.ID, conv.Owner, msg); err != nil {
		return fmt.Errorf("%w: append %s message: %w", domain.ErrStoreUnavailable, sender, err)
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = msg.Timestamp
	return nil
}

// Discard removes a conversation created by a request that then failed.
func (m *ConversationManager) Discard(ctx context.Context, conv *domain.Conversation) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := m.store.DeleteConversation(cleanupCtx, conv.ID, conv.Owner); err != nil {
		logger.Warn("Failed to discard conversation %s: %v", conv.ID, err)
	}
}

// List returns the owner's conversations, most recently updated first.
func (m *ConversationManager) List(ctx context.Context, owner domain.Owner) ([]domain.ConversationSummary, error) {
	if owner.IsZero() {
		return nil, fmt.Errorf("%w: conversation owner is required", domain.ErrInvalidInput)
	}
	return m.store.ListConversations(ctx, owner)
}

// Get returns one conversation with its messages.
func (m *ConversationManager) Get(ctx context.Context, id string, owner domain.Owner) (*domain.Conversation, error) {
	if owner.IsZero() {
		return nil, domain.ErrNotFound
	}
	conv, err := m.store.FindConversation(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	if !conv.OwnedBy(owner) {
		return nil, domain.ErrNotFound
	}
	return conv, nil
}

// Delete removes one conversation.
func (m *ConversationManager) Delete(ctx context.Context, id string, owner domain.Owner) error {
	if _, err := m.Get(ctx, id, owner); err != nil {
		return err
	}
	return m.store.DeleteConversation(ctx, id, owner)
}
