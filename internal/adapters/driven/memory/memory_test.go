package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-docqa/internal/core/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLock_Exclusive(t *testing.T) {
	lock := NewLock()
	ctx := context.Background()

	ok, err := lock.Acquire(ctx, "index-build:doc-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lock.Acquire(ctx, "index-build:doc-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = lock.Acquire(ctx, "index-build:doc-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, lock.Release(ctx, "index-build:doc-1"))
	ok, err = lock.Acquire(ctx, "index-build:doc-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLock_Concurrent(t *testing.T) {
	lock := NewLock()
	ctx := context.Background()

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := lock.Acquire(ctx, "index-build:doc-1", time.Minute); ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestLock_Expiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	lock := NewLock()
	lock.now = clock.Now
	ctx := context.Background()

	_, err := lock.Acquire(ctx, "x", time.Second)
	require.NoError(t, err)

	require.NoError(t, lock.Extend(ctx, "x", 10*time.Second))
	clock.Advance(5 * time.Second)

	ok, _ := lock.Acquire(ctx, "x", time.Second)
	assert.False(t, ok, "extended lock still held")

	clock.Advance(10 * time.Second)
	assert.Error(t, lock.Extend(ctx, "x", time.Second))

	ok, _ = lock.Acquire(ctx, "x", time.Second)
	assert.True(t, ok)
	assert.NoError(t, lock.Ping(ctx))
}

func TestConversationStore_RoundTripIsolated(t *testing.T) {
	store := NewConversationStore(time.Minute)
	ctx := context.Background()

	conv := domain.NewConversation("s", "d", 2).Append("q1", "a1", time.Now())
	require.NoError(t, store.Save(ctx, &conv))

	// Mutating the caller's copy does not leak into the store
	conv.Turns[0].Answer = "changed"

	got, err := store.Get(ctx, "s", "d")
	require.NoError(t, err)
	require.Len(t, got.Turns, 1)
	assert.Equal(t, "a1", got.Turns[0].Answer)
	assert.Equal(t, 2, got.MaxTurns)

	_, err = store.Get(ctx, "s", "other")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestConversationStore_Expiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	store := NewConversationStore(time.Minute)
	store.now = clock.Now
	ctx := context.Background()

	first := domain.NewConversation("s1", "d", 0)
	require.NoError(t, store.Save(ctx, &first))

	clock.Advance(2 * time.Minute)
	_, err := store.Get(ctx, "s1", "d")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	// Saving sweeps expired entries
	stale := domain.NewConversation("s2", "d", 0)
	require.NoError(t, store.Save(ctx, &stale))
	clock.Advance(2 * time.Minute)
	fresh := domain.NewConversation("s3", "d", 0)
	require.NoError(t, store.Save(ctx, &fresh))
	assert.Equal(t, 1, store.Len())
}

func TestConversationStore_Delete(t *testing.T) {
	store := NewConversationStore(0)
	ctx := context.Background()

	conv := domain.NewConversation("s", "d", 0)
	require.NoError(t, store.Save(ctx, &conv))
	require.NoError(t, store.Delete(ctx, "s", "d"))

	_, err := store.Get(ctx, "s", "d")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	assert.Error(t, store.Save(ctx, &domain.Conversation{DocumentID: "d"}))
}
