package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/schoolgrants/backend/internal/domain/accountability"
	"github.com/schoolgrants/backend/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func sampleSummary(pct string) accountability.FinancialSummary {
	return accountability.FinancialSummary{
		OpeningBalance:       decimal.RequireFromString("50"),
		TotalDisbursed:       decimal.RequireFromString("700"),
		TotalAccounted:       decimal.RequireFromString("650"),
		AccountingPercentage: decimal.RequireFromString(pct),
		AccountabilityStatus: accountability.StatusPartiallyAccounted,
	}
}

// exerciseCache runs the behaviour every SummaryCache must share
func exerciseCache(t *testing.T, c accountability.SummaryCache) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "CES-0456", 2024, 2024)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "CES-0456", 2024, 2024, sampleSummary("92.9")))
	require.NoError(t, c.Set(ctx, "CES-0456", 2024, 2023, sampleSummary("10")))
	require.NoError(t, c.Set(ctx, "CES-0456", 2025, 2025, sampleSummary("0")))
	require.NoError(t, c.Set(ctx, "CES-0999", 2024, 2024, sampleSummary("1")))

	got, ok, err := c.Get(ctx, "CES-0456", 2024, 2024)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.AccountingPercentage.Equal(decimal.RequireFromString("92.9")))
	assert.True(t, got.OpeningBalance.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, accountability.StatusPartiallyAccounted, got.AccountabilityStatus)

	require.NoError(t, c.Invalidate(ctx, "CES-0456", 2024, 2025))

	for _, k := range [][2]int{{2024, 2024}, {2024, 2023}, {2025, 2025}} {
		_, ok, err = c.Get(ctx, "CES-0456", k[0], k[1])
		require.NoError(t, err)
		assert.False(t, ok, "%v should be evicted", k)
	}
	_, ok, err = c.Get(ctx, "CES-0999", 2024, 2024)
	require.NoError(t, err)
	assert.True(t, ok, "other schools are untouched")

	require.NoError(t, c.Invalidate(ctx, "CES-0456"))
}

func TestInMemorySummaryCache(t *testing.T) {
	exerciseCache(t, NewInMemorySummaryCache(time.Minute))
}

func TestInMemorySummaryCache_Expiry(t *testing.T) {
	c := NewInMemorySummaryCache(time.Minute)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "CES-0456", 2024, 2024, sampleSummary("1")))
	_, ok, _ := c.Get(ctx, "CES-0456", 2024, 2024)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = c.Get(ctx, "CES-0456", 2024, 2024)
	assert.False(t, ok)
}

func TestInMemorySummaryCache_ReturnsCopy(t *testing.T) {
	c := NewInMemorySummaryCache(0)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "CES-0456", 2024, 2024, sampleSummary("1")))

	got, _, _ := c.Get(ctx, "CES-0456", 2024, 2024)
	got.AccountabilityStatus = "mutated"

	again, _, _ := c.Get(ctx, "CES-0456", 2024, 2024)
	assert.Equal(t, accountability.StatusPartiallyAccounted, again.AccountabilityStatus)
}

func TestSummaryCacheFactory(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled uses memory", func(t *testing.T) {
		c, closeFn, err := NewSummaryCacheFactory(config.RedisConfig{}).CreateCache(ctx)
		require.NoError(t, err)
		assert.IsType(t, &InMemorySummaryCache{}, c)
		assert.NoError(t, closeFn())
	})

	unreachable := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

	t.Run("unreachable falls back", func(t *testing.T) {
		c, _, err := NewSummaryCacheFactory(unreachable).CreateCache(ctx)
		require.NoError(t, err)
		assert.IsType(t, &InMemorySummaryCache{}, c)
	})

	t.Run("unreachable without fallback fails", func(t *testing.T) {
		_, _, err := NewSummaryCacheFactory(unreachable, WithInMemoryFallback(false)).CreateCache(ctx)
		assert.Error(t, err)
	})
}

func TestRedisSummaryCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	c, closeFn, err := NewSummaryCacheFactory(config.RedisConfig{
		Enabled:    true,
		Host:       host,
		Port:       port.Int(),
		SummaryTTL: time.Minute,
	}, WithInMemoryFallback(false)).CreateCache(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeFn() })
	require.IsType(t, &RedisSummaryCache{}, c)

	exerciseCache(t, c)

	rc := c.(*RedisSummaryCache)
	require.NoError(t, rc.Set(ctx, "CES-0001", 2024, 2024, sampleSummary("1")))
	ttl, err := rc.client.TTL(ctx, rc.key("CES-0001", 2024)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, rc.client.HSet(ctx, rc.key("CES-0002", 2024), "2024", "not json").Err())
	_, _, err = rc.Get(ctx, "CES-0002", 2024, 2024)
	assert.Error(t, err)

	_, err = rc.client.Ping(ctx).Result()
	assert.NotErrorIs(t, err, redis.Nil)
}
