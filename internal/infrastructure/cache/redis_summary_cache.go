package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/schoolgrants/backend/internal/domain/accountability"
)

const defaultKeyPrefix = "sgb:summary:"

// RedisSummaryCache stores each record's summaries in one hash keyed by
// code and academic year, with one field per as-of year. Invalidating a
// record is a single DEL.
type RedisSummaryCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisSummaryCache wraps an existing client
func NewRedisSummaryCache(client *redis.Client, ttl time.Duration) *RedisSummaryCache {
	return &RedisSummaryCache{client: client, keyPrefix: defaultKeyPrefix, ttl: ttl}
}

func (c *RedisSummaryCache) key(code string, academicYear int) string {
	return fmt.Sprintf("%s%s:%d", c.keyPrefix, code, academicYear)
}

// Get implements accountability.SummaryCache
func (c *RedisSummaryCache) Get(ctx context.Context, code string, academicYear, asOfYear int) (*accountability.FinancialSummary, bool, error) {
	raw, err := c.client.HGet(ctx, c.key(code, academicYear), strconv.Itoa(asOfYear)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached summary: %w", err)
	}
	var s accountability.FinancialSummary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached summary: %w", err)
	}
	return &s, true, nil
}

// Set implements accountability.SummaryCache. The TTL applies to the whole
// hash and is refreshed on every write.
func (c *RedisSummaryCache) Set(ctx context.Context, code string, academicYear, asOfYear int, summary accountability.FinancialSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	key := c.key(code, academicYear)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, strconv.Itoa(asOfYear), raw)
	if c.ttl > 0 {
		pipe.Expire(ctx, key, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache summary: %w", err)
	}
	return nil
}

// Invalidate implements accountability.SummaryCache
func (c *RedisSummaryCache) Invalidate(ctx context.Context, code string, academicYears ...int) error {
	if len(academicYears) == 0 {
		return nil
	}
	keys := make([]string, len(academicYears))
	for i, y := range academicYears {
		keys[i] = c.key(code, y)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached summaries: %w", err)
	}
	return nil
}

// Close closes the underlying client
func (c *RedisSummaryCache) Close() error {
	return c.client.Close()
}

var _ accountability.SummaryCache = (*RedisSummaryCache)(nil)
