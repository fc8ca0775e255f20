package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

func TestConversationStore_SaveGet(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewConversationStore(client, time.Minute)
	ctx := context.Background()

	conv := domain.NewConversation("sess-1", "doc-1", 10).
		Append("What is it about?", "Rockets.", time.Now().UTC())

	require.NoError(t, store.Save(ctx, &conv))

	got, err := store.Get(ctx, "sess-1", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, 10, got.MaxTurns)
	require.Len(t, got.Turns, 1)
	assert.Equal(t, "Rockets.", got.Turns[0].Answer)
}

func TestConversationStore_KeyedBySessionAndDocument(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewConversationStore(client, time.Minute)
	ctx := context.Background()

	conv := domain.NewConversation("sess-1", "doc-1", 0).Append("q", "a", time.Now())
	require.NoError(t, store.Save(ctx, &conv))

	_, err := store.Get(ctx, "sess-1", "doc-2")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = store.Get(ctx, "sess-2", "doc-1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestConversationStore_Expires(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewConversationStore(client, time.Minute)
	ctx := context.Background()

	conv := domain.NewConversation("sess-1", "doc-1", 0)
	require.NoError(t, store.Save(ctx, &conv))

	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "sess-1", "doc-1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestConversationStore_Delete(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewConversationStore(client, 0)
	ctx := context.Background()

	conv := domain.NewConversation("sess-1", "doc-1", 0)
	require.NoError(t, store.Save(ctx, &conv))
	require.NoError(t, store.Delete(ctx, "sess-1", "doc-1"))

	_, err := store.Get(ctx, "sess-1", "doc-1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.NoError(t, store.Delete(ctx, "sess-1", "doc-1"))
}

func TestConversationStore_RejectsIncompleteKey(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewConversationStore(client, time.Minute)

	err := store.Save(context.Background(), &domain.Conversation{SessionID: "s"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestConversationStore_CorruptValue(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewConversationStore(client, time.Minute)

	require.NoError(t, mr.Set("docqa:conversation:s:d", "{not json"))

	_, err := store.Get(context.Background(), "s", "d")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrNotFound))
}
