package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/loadkit/pkg/adapters/redis"
	"github.com/aretw0/loadkit/pkg/domain"
	"github.com/aretw0/loadkit/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)
	ports.RunJournalStoreContract(t, store)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithTTL(time.Second))
	ctx := context.Background()
	rec := domain.LoadRecord{ID: "load-ttl", Outcome: domain.OutcomeSuccess, StartedAt: time.Now()}

	require.NoError(t, store.Append(ctx, rec))

	list, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	mr.FastForward(2 * time.Second)

	_, err = store.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)

	// the stale index entry is dropped by List
	list, err = store.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
	members, err := mr.ZMembers(redis.DefaultPrefix + "index")
	if err == nil {
		assert.Empty(t, members)
	}
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	err := store.Append(ctx, domain.LoadRecord{ID: "my-load", StartedAt: time.Now()})
	require.NoError(t, err)

	assert.True(t, mr.Exists("custom:app:my-load"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	rec, err := store.Get(ctx, "my-load")
	require.NoError(t, err)
	assert.Equal(t, "my-load", rec.ID)
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	store := redis.New(mr.Addr(), "", 0)
	defer store.Close()
	require.NoError(t, store.Ping(context.Background()))
	mr.Close()

	_, err = store.Get(context.Background(), "x")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrRecordNotFound)
}
