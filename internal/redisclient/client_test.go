package redisclient

import (
	"context"
	"testing"
	"time"

	"shoestore/internal/policy"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestRedis(t *testing.T) *Client {
	t.Helper()
	if testing.Short() {
		t.Skip("Integration test - requires docker")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: endpoint})
	require.NoError(t, rdb.Ping(ctx).Err())

	c := NewFromRedis(rdb, time.Minute)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCatalogCache(t *testing.T) {
	c := setupTestRedis(t)
	ctx := context.Background()

	var got []string
	version, hit, err := c.CachedCatalog(ctx, "all", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.CacheCatalog(ctx, version, "all", []string{"A112T4", "F635R4"}))

	_, hit, err = c.CachedCatalog(ctx, "all", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"A112T4", "F635R4"}, got)

	require.NoError(t, c.InvalidateCatalog(ctx))

	_, hit, err = c.CachedCatalog(ctx, "all", &got)
	require.NoError(t, err)
	assert.False(t, hit, "bumped version hides older entries")
}

func TestCatalogCacheWriteAfterInvalidate(t *testing.T) {
	c := setupTestRedis(t)
	ctx := context.Background()

	var got []string
	version, hit, err := c.CachedCatalog(ctx, "in-stock", &got)
	require.NoError(t, err)
	require.False(t, hit)

	// an order commits between the database read and the cache write
	require.NoError(t, c.InvalidateCatalog(ctx))
	require.NoError(t, c.CacheCatalog(ctx, version, "in-stock", []string{"A112T4"}))

	got = nil
	_, hit, err = c.CachedCatalog(ctx, "in-stock", &got)
	require.NoError(t, err)
	assert.False(t, hit, "result read before the invalidation must not be served")
	assert.Empty(t, got)
}

func TestSessions(t *testing.T) {
	c := setupTestRedis(t)
	ctx := context.Background()
	p := policy.Principal{UserID: 4, Login: "client", FullName: "Anna", Role: policy.RoleClient}

	id, err := c.CreateSession(ctx, p, time.Minute)
	require.NoError(t, err)
	assert.Len(t, id, 64)

	got, ok, err := c.GetSession(ctx, id, time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, p, got)

	ttl, err := c.GetClient().PTTL(ctx, sessionPrefix+id).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 30*time.Minute, "reading a session extends it")

	require.NoError(t, c.DeleteSession(ctx, id))
	_, ok, err = c.GetSession(ctx, id, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
}
