//go:build integration

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/seunghun2/daedaesonson/internal/config"
	"github.com/seunghun2/daedaesonson/internal/pricing"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	redisContainer, err := redis.Run(ctx,
		"redis:7.4-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := redisContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate redis container: %v", err)
		}
	})

	host, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	port, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestRedisClient_ExtractionCache(t *testing.T) {
	ctx := context.Background()
	client, err := NewFromConfig(config.CacheConfig{
		Driver: "redis",
		Redis:  config.RedisConfig{Addr: startRedis(t), Prefix: "pe-test:"},
	})
	require.NoError(t, err)
	defer client.Close()

	ec := NewExtractionCache(client, time.Minute)
	items := []pricing.LineItem{{Name: "개인단", Price: 1500000, SourceType: pricing.SourceExtracted}}

	_, err = ec.Get(ctx, "sum", "fp")
	assert.True(t, IsMiss(err))

	require.NoError(t, ec.Put(ctx, "sum", "fp", items))
	got, err := ec.Get(ctx, "sum", "fp")
	require.NoError(t, err)
	assert.Equal(t, items, got)

	require.NoError(t, client.Ping(ctx))
	purged, err := ec.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)
	_, err = ec.Get(ctx, "sum", "fp")
	assert.True(t, IsMiss(err))
}
