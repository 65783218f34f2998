package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/bpa/internal/core/domain"
	"github.com/custodia-labs/bpa/internal/core/ports/driven"
)

// conversationStore implements driven.ConversationStore.
// Every statement filters on owner_kind and owner_id.
type conversationStore struct {
	store *Store
}

var _ driven.ConversationStore = (*conversationStore)(nil)

// FindConversation returns the conversation with id owned by owner, messages in order.
func (s *conversationStore) FindConversation(
	ctx context.Context, id string, owner domain.Owner,
) (*domain.Conversation, error) {
	if owner.IsZero() {
		return nil, domain.ErrNotFound
	}

	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, owner_kind, owner_id, role, created_at, updated_at
		FROM conversations WHERE id = ? AND owner_kind = ? AND owner_id = ?
	`, id, string(owner.Kind()), owner.ID())

	var conv domain.Conversation
	var kind, ownerID, role string
	err := row.Scan(&conv.ID, &kind, &ownerID, &role, &conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scanning conversation: %w", domain.ErrStoreUnavailable, err)
	}

	conv.Owner, err = domain.NewOwner(domain.OwnerKind(kind), ownerID)
	if err != nil {
		return nil, fmt.Errorf("decoding owner of %s: %w", id, err)
	}
	conv.Role = domain.AccessRole(role)

	conv.Messages, err = s.messages(ctx, id)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *conversationStore) messages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT sender, text, created_at
		FROM messages WHERE conversation_id = ?
		ORDER BY seq
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying messages: %w", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		var sender string
		if err := rows.Scan(&sender, &msg.Text, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.Sender = domain.Sender(sender)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return messages, nil
}

// InsertConversation stores a new conversation with any initial messages.
func (s *conversationStore) InsertConversation(ctx context.Context, conv *domain.Conversation) error {
	if conv.Owner.IsZero() {
		return fmt.Errorf("%w: conversation %s has no owner", domain.ErrInvalidInput, conv.ID)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrStoreUnavailable, err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (id, owner_kind, owner_id, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, conv.ID, string(conv.Owner.Kind()), conv.Owner.ID(), string(conv.Role),
		utc(conv.CreatedAt), utc(conv.UpdatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: conversation %s already exists", domain.ErrInvalidInput, conv.ID)
	}
	if err != nil {
		return fmt.Errorf("%w: saving conversation: %w", domain.ErrStoreUnavailable, err)
	}

	for _, msg := range conv.Messages {
		if err := insertMessage(ctx, tx, conv.ID, msg); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// AppendMessage appends one message and sets the update timestamp.
func (s *conversationStore) AppendMessage(
	ctx context.Context, id string, owner domain.Owner, msg domain.Message,
) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrStoreUnavailable, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := touch(ctx, tx, id, owner, msg.Timestamp); err != nil {
		return err
	}
	if err := insertMessage(ctx, tx, id, msg); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// UpdateRole records the role used by the latest turn.
func (s *conversationStore) UpdateRole(
	ctx context.Context, id string, owner domain.Owner, role domain.AccessRole, at time.Time,
) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE conversations SET role = ?, updated_at = ?
		WHERE id = ? AND owner_kind = ? AND owner_id = ?
	`, string(role), utc(at), id, string(owner.Kind()), owner.ID())
	if err != nil {
		return fmt.Errorf("%w: updating role: %w", domain.ErrStoreUnavailable, err)
	}
	return requireAffected(res)
}

// ListConversations returns the owner's conversations by update time, newest first.
func (s *conversationStore) ListConversations(
	ctx context.Context, owner domain.Owner,
) ([]domain.ConversationSummary, error) {
	if owner.IsZero() {
		return nil, nil
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT c.id, c.role, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
		FROM conversations c
		WHERE c.owner_kind = ? AND c.owner_id = ?
		ORDER BY c.updated_at DESC, c.id ASC
	`, string(owner.Kind()), owner.ID())
	if err != nil {
		return nil, fmt.Errorf("%w: querying conversations: %w", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var summaries []domain.ConversationSummary //nolint:prealloc // size unknown from query
	for rows.Next() {
		summary := domain.ConversationSummary{Owner: owner}
		var role string
		if err := rows.Scan(&summary.ID, &role, &summary.CreatedAt, &summary.UpdatedAt,
			&summary.MessageCount); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		summary.Role = domain.AccessRole(role)
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversations: %w", err)
	}
	return summaries, nil
}

// DeleteConversation removes a conversation and its messages.
func (s *conversationStore) DeleteConversation(ctx context.Context, id string, owner domain.Owner) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrStoreUnavailable, err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		DELETE FROM conversations WHERE id = ? AND owner_kind = ? AND owner_id = ?
	`, id, string(owner.Kind()), owner.ID())
	if err != nil {
		return fmt.Errorf("%w: deleting conversation: %w", domain.ErrStoreUnavailable, err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE conversation_id = ?", id); err != nil {
		return fmt.Errorf("%w: deleting messages: %w", domain.ErrStoreUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// touch bumps updated_at on an owned conversation.
func touch(ctx context.Context, tx *sql.Tx, id string, owner domain.Owner, at time.Time) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE conversations SET updated_at = ?
		WHERE id = ? AND owner_kind = ? AND owner_id = ?
	`, utc(at), id, string(owner.Kind()), owner.ID())
	if err != nil {
		return fmt.Errorf("%w: updating conversation: %w", domain.ErrStoreUnavailable, err)
	}
	return requireAffected(res)
}

func insertMessage(ctx context.Context, tx *sql.Tx, conversationID string, msg domain.Message) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, sender, text, created_at)
		VALUES (?, ?, ?, ?)
	`, conversationID, string(msg.Sender), msg.Text, utc(msg.Timestamp))
	if err != nil {
		return fmt.Errorf("%w: saving message: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// requireAffected maps a statement that touched no rows to domain.ErrNotFound.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
