package workflow

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brand-catalog-service/internal/ownership"
)

func sampleSession(t *testing.T) *Session {
	st := walkTo(t, Phase2)
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	return &Session{ID: uuid.NewString(), UserID: "alice", State: st, CreatedAt: now, UpdatedAt: now}
}

func exerciseSessionStore(t *testing.T, store SessionStore) {
	t.Helper()
	ctx := context.Background()
	s := sampleSession(t)

	_, err := store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ownership.ErrNotFound)

	require.NoError(t, store.Put(ctx, s))
	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(s, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	got.State.Selections[Phase2] = 1
	got.State.Payloads[Phase2] = json.RawMessage(`{"options":[{}]}`)
	require.NoError(t, store.Put(ctx, got))
	again, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.State.Selections[Phase2])

	require.NoError(t, store.Delete(ctx, s.ID))
	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStore(t *testing.T) {
	exerciseSessionStore(t, NewMemorySessionStore(time.Hour))
}

func TestMemorySessionStore_Expiry(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	s := sampleSession(t)
	require.NoError(t, store.Put(context.Background(), s))

	now = now.Add(59 * time.Second)
	_, err := store.Get(context.Background(), s.ID)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	_, err = store.Get(context.Background(), s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisSessionStore(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	defer rdb.Close()

	store := NewRedisSessionStore(rdb, time.Minute)
	exerciseSessionStore(t, store)

	s := sampleSession(t)
	require.NoError(t, store.Put(context.Background(), s))
	ttl, err := rdb.TTL(context.Background(), store.key(s.ID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	require.NoError(t, store.Delete(context.Background(), s.ID))
}
