// Package cache keeps hot read-mostly rows in memory.
package cache

import (
	"context"
	"sync/atomic"
	"time"

	"admissions-crm/models"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CourseLoader fetches a course from the store on a cache miss.
type CourseLoader interface {
	GetByID(ctx context.Context, id int64) (*models.Course, error)
}

// CourseCache is a size and TTL bounded LRU in front of a CourseLoader.
// Course edits must call Invalidate; entries otherwise expire after ttl.
type CourseCache struct {
	loader  CourseLoader
	entries *expirable.LRU[int64, *models.Course]

	hits   atomic.Int64
	misses atomic.Int64
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Size   int   `json:"size"`
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

func NewCourseCache(loader CourseLoader, size int, ttl time.Duration) *CourseCache {
	if size <= 0 {
		size = 256
	}
	return &CourseCache{
		loader:  loader,
		entries: expirable.NewLRU[int64, *models.Course](size, nil, ttl),
	}
}

// Get returns the course with the given id, loading it on a miss. Loader
// errors are returned unchanged and nothing is cached.
func (c *CourseCache) Get(ctx context.Context, id int64) (*models.Course, error) {
	if course, ok := c.entries.Get(id); ok {
		c.hits.Add(1)
		return course, nil
	}
	c.misses.Add(1)

	course, err := c.loader.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.entries.Add(id, course)
	return course, nil
}

func (c *CourseCache) Invalidate(id int64) {
	c.entries.Remove(id)
}

func (c *CourseCache) Purge() {
	c.entries.Purge()
}

func (c *CourseCache) Stats() CacheStats {
	return CacheStats{
		Size:   c.entries.Len(),
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}
