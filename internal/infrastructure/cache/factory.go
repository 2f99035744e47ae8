package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/schoolgrants/backend/internal/domain/accountability"
	"github.com/schoolgrants/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// SummaryCacheFactory builds the summary cache from the redis config section
type SummaryCacheFactory struct {
	cfg                   config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption configures a SummaryCacheFactory
type FactoryOption func(*SummaryCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *SummaryCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// the in-memory cache. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *SummaryCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewSummaryCacheFactory creates a new factory
func NewSummaryCacheFactory(cfg config.RedisConfig, opts ...FactoryOption) *SummaryCacheFactory {
	f := &SummaryCacheFactory{cfg: cfg, logger: zap.NewNop(), allowInMemoryFallback: true}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateRedisCache connects to Redis and verifies the connection with a PING
func (f *SummaryCacheFactory) CreateRedisCache(ctx context.Context) (*RedisSummaryCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     f.cfg.Addr(),
		Password: f.cfg.Password,
		DB:       f.cfg.DB,
	})
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisSummaryCache(client, f.cfg.SummaryTTL), nil
}

// CreateCache returns the Redis cache when enabled and reachable, otherwise
// the in-memory cache. The returned close func releases the Redis client.
func (f *SummaryCacheFactory) CreateCache(ctx context.Context) (accountability.SummaryCache, func() error, error) {
	noop := func() error { return nil }
	if !f.cfg.Enabled {
		f.logger.Info("Redis disabled, using in-memory summary cache")
		return NewInMemorySummaryCache(f.cfg.SummaryTTL), noop, nil
	}

	c, err := f.CreateRedisCache(ctx)
	if err == nil {
		f.logger.Info("using Redis summary cache", zap.String("addr", f.cfg.Addr()))
		return c, c.Close, nil
	}
	if !f.allowInMemoryFallback {
		return nil, nil, err
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory summary cache. "+
		"Instances will not share cached summaries.",
		zap.Error(err),
	)
	return NewInMemorySummaryCache(f.cfg.SummaryTTL), noop, nil
}
