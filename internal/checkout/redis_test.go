package checkout

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testRedis "github.com/testcontainers/testcontainers-go/modules/redis"

	"nightlife-storefront/internal/models"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	c := context.Background()

	container, err := testRedis.Run(c, "redis:7.4.2-alpine3.21")
	if err != nil {
		t.Skipf("redis container unavailable: %s", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Errorf("failed to terminate container: %s", err)
		}
	})

	connStr, err := container.ConnectionString(c)
	require.NoError(t, err)
	opt, err := redis.ParseURL(connStr)
	require.NoError(t, err)

	client := redis.NewClient(opt)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(c).Err())
	return client
}

func TestRedisDetails(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	store := NewRedisDetails(client, "sid-1")

	d, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, d)

	require.NoError(t, store.Save(ctx, models.TransactionDetails{TransactionID: "tx-1", Status: models.TransactionApproved}))

	d, err = store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, models.TransactionApproved, d.Status)

	ttl, err := client.TTL(ctx, "nl:tx:sid-1").Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)
}
