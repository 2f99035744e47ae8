package cache

import (
	"context"
	"sync"
	"time"

	"github.com/schoolgrants/backend/internal/domain/accountability"
)

type recordKey struct {
	code string
	year int
}

type cachedSummary struct {
	summary   accountability.FinancialSummary
	expiresAt time.Time
}

// InMemorySummaryCache is a process-local accountability.SummaryCache.
// Expired entries are dropped lazily on read.
type InMemorySummaryCache struct {
	mu      sync.RWMutex
	entries map[recordKey]map[int]cachedSummary
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemorySummaryCache creates an empty cache. A non-positive ttl never expires.
func NewInMemorySummaryCache(ttl time.Duration) *InMemorySummaryCache {
	return &InMemorySummaryCache{
		entries: make(map[recordKey]map[int]cachedSummary),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get implements accountability.SummaryCache
func (c *InMemorySummaryCache) Get(_ context.Context, code string, academicYear, asOfYear int) (*accountability.FinancialSummary, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[recordKey{code, academicYear}][asOfYear]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries[recordKey{code, academicYear}], asOfYear)
		c.mu.Unlock()
		return nil, false, nil
	}
	s := e.summary
	return &s, true, nil
}

// Set implements accountability.SummaryCache
func (c *InMemorySummaryCache) Set(_ context.Context, code string, academicYear, asOfYear int, summary accountability.FinancialSummary) error {
	e := cachedSummary{summary: summary}
	if c.ttl > 0 {
		e.expiresAt = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	k := recordKey{code, academicYear}
	if c.entries[k] == nil {
		c.entries[k] = make(map[int]cachedSummary)
	}
	c.entries[k][asOfYear] = e
	return nil
}

// Invalidate implements accountability.SummaryCache
func (c *InMemorySummaryCache) Invalidate(_ context.Context, code string, academicYears ...int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, y := range academicYears {
		delete(c.entries, recordKey{code, y})
	}
	return nil
}

var _ accountability.SummaryCache = (*InMemorySummaryCache)(nil)
