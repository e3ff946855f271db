package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/otec/pkg/adapters/redis"
	"github.com/aretw0/otec/pkg/domain"
	"github.com/aretw0/otec/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunLogStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithTTL(time.Minute), redis.WithPrefix("t:"))
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, 1, domain.Record{OperationID: "a", EntityID: 1, Canon: true}))
	assert.True(t, mr.Exists("t:log:1"))
	assert.Equal(t, time.Minute, mr.TTL("t:log:1"))

	mr.FastForward(2 * time.Minute)

	_, err := store.Load(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrEntityNotFound)
}

func TestRedisStore_ListPrunesExpired(t *testing.T) {
	_, client := newClient(t)
	ctx := context.Background()

	// Score in the past: the index entry is stale.
	require.NoError(t, client.ZAdd(ctx, "otec:index", backend.Z{Score: 1, Member: "9"}).Err())
	store := redis.NewFromClient(client)
	require.NoError(t, store.Append(ctx, 4, domain.Record{OperationID: "a", EntityID: 4}))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{4}, ids)
}

func TestRedisStore_CorruptRecord(t *testing.T) {
	mr, client := newClient(t)
	_, err := mr.Push("otec:log:2", "{bad")
	require.NoError(t, err)

	_, err = redis.NewFromClient(client).Load(context.Background(), 2)
	assert.ErrorIs(t, err, domain.ErrCorruptLog)
}
