package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bpa/internal/core/domain"
)

func newTestConversation(id string, owner domain.Owner, at time.Time) *domain.Conversation {
	return &domain.Conversation{
		ID:        id,
		Owner:     owner,
		Role:      domain.RoleStudent,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func TestConversationStore_InsertAndFind(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()
	owner := domain.AuthenticatedUser("u-1")
	now := time.Now()

	require.NoError(t, store.InsertConversation(ctx, newTestConversation("c-1", owner, now)))

	conv, err := store.FindConversation(ctx, "c-1", owner)
	require.NoError(t, err)
	assert.Equal(t, "c-1", conv.ID)
	assert.Equal(t, owner, conv.Owner)
	assert.Empty(t, conv.Messages)
}

func TestConversationStore_FindForeignOwnerIsNotFound(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()
	require.NoError(t, store.InsertConversation(ctx,
		newTestConversation("c-1", domain.AuthenticatedUser("u-1"), time.Now())))

	_, err := store.FindConversation(ctx, "c-1", domain.AuthenticatedUser("u-2"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Same id under a different owner kind is still someone else.
	_, err = store.FindConversation(ctx, "c-1", domain.AnonymousSession("u-1"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.FindConversation(ctx, "missing", domain.AuthenticatedUser("u-1"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConversationStore_AppendMessage(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()
	owner := domain.AnonymousSession("s-1")
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertConversation(ctx, newTestConversation("c-1", owner, start)))

	userMsg := domain.Message{Sender: domain.SenderUser, Text: "hi", Timestamp: start.Add(time.Second)}
	botMsg := domain.Message{Sender: domain.SenderAssistant, Text: "hello", Timestamp: start.Add(2 * time.Second)}
	require.NoError(t, store.AppendMessage(ctx, "c-1", owner, userMsg))
	require.NoError(t, store.AppendMessage(ctx, "c-1", owner, botMsg))

	conv, err := store.FindConversation(ctx, "c-1", owner)
	require.NoError(t, err)
	assert.Equal(t, []domain.Message{userMsg, botMsg}, conv.Messages)
	assert.Equal(t, botMsg.Timestamp, conv.UpdatedAt)
	assert.Equal(t, start, conv.CreatedAt)
}

func TestConversationStore_AppendForeignOwner(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()
	require.NoError(t, store.InsertConversation(ctx,
		newTestConversation("c-1", domain.AuthenticatedUser("u-1"), time.Now())))

	err := store.AppendMessage(ctx, "c-1", domain.AuthenticatedUser("u-2"), domain.Message{Text: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConversationStore_FindReturnsCopy(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()
	owner := domain.AuthenticatedUser("u-1")
	require.NoError(t, store.InsertConversation(ctx, newTestConversation("c-1", owner, time.Now())))
	require.NoError(t, store.AppendMessage(ctx, "c-1", owner, domain.Message{Text: "one"}))

	conv, err := store.FindConversation(ctx, "c-1", owner)
	require.NoError(t, err)
	conv.Messages[0].Text = "mutated"

	again, err := store.FindConversation(ctx, "c-1", owner)
	require.NoError(t, err)
	assert.Equal(t, "one", again.Messages[0].Text)
}

func TestConversationStore_UpdateRole(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()
	owner := domain.AuthenticatedUser("u-1")
	require.NoError(t, store.InsertConversation(ctx, newTestConversation("c-1", owner, time.Now())))

	at := time.Now().Add(time.Minute)
	require.NoError(t, store.UpdateRole(ctx, "c-1", owner, domain.RoleStaff, at))

	conv, err := store.FindConversation(ctx, "c-1", owner)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStaff, conv.Role)
	assert.Equal(t, at, conv.UpdatedAt)
}

func TestConversationStore_ListScopedAndOrdered(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()
	owner := domain.AuthenticatedUser("u-1")
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.InsertConversation(ctx, newTestConversation("older", owner, base)))
	require.NoError(t, store.InsertConversation(ctx, newTestConversation("newer", owner, base.Add(time.Hour))))
	require.NoError(t, store.InsertConversation(ctx,
		newTestConversation("other", domain.AuthenticatedUser("u-2"), base.Add(2*time.Hour))))
	require.NoError(t, store.AppendMessage(ctx, "older", owner,
		domain.Message{Text: "bump", Timestamp: base.Add(3 * time.Hour)}))

	list, err := store.ListConversations(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "older", list[0].ID)
	assert.Equal(t, 1, list[0].MessageCount)
	assert.Equal(t, "newer", list[1].ID)
}

func TestConversationStore_Delete(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()
	owner := domain.AuthenticatedUser("u-1")
	require.NoError(t, store.InsertConversation(ctx, newTestConversation("c-1", owner, time.Now())))

	assert.ErrorIs(t, store.DeleteConversation(ctx, "c-1", domain.AuthenticatedUser("u-2")), domain.ErrNotFound)
	require.NoError(t, store.DeleteConversation(ctx, "c-1", owner))

	_, err := store.FindConversation(ctx, "c-1", owner)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
