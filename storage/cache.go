package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"taskboard/domain"
)

type backend interface {
	Create(ctx context.Context, title, description, status string) (domain.Task, error)
	FindAll(ctx context.Context, status string) ([]domain.Task, error)
	FindByID(ctx context.Context, id int64) (domain.Task, error)
	Update(ctx context.Context, id int64, fields domain.TaskFields) (domain.Task, error)
	Delete(ctx context.Context, id int64) (domain.Task, error)
}

// Cache wraps a task store with Redis-backed caching of list reads. Every
// mutation evicts the cached lists, so readers converge after each write.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) Create(ctx context.Context, title, description, status string) (domain.Task, error) {
	t, err := c.base.Create(ctx, title, description, status)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx)
	return t, nil
}

func (c *Cache) FindAll(ctx context.Context, status string) ([]domain.Task, error) {
	if tasks, ok := c.loadFromCache(ctx, status); ok {
		return tasks, nil
	}
	tasks, err := c.base.FindAll(ctx, status)
	if err != nil {
		return nil, err
	}
	c.store(ctx, status, tasks)
	return tasks, nil
}

func (c *Cache) FindByID(ctx context.Context, id int64) (domain.Task, error) {
	return c.base.FindByID(ctx, id)
}

func (c *Cache) Update(ctx context.Context, id int64, fields domain.TaskFields) (domain.Task, error) {
	t, err := c.base.Update(ctx, id, fields)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx)
	return t, nil
}

func (c *Cache) Delete(ctx context.Context, id int64) (domain.Task, error) {
	t, err := c.base.Delete(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	c.evict(ctx)
	return t, nil
}

func (c *Cache) loadFromCache(ctx context.Context, status string) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, tasksCacheKey(status)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, tasksCacheKey(status)).Err()
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, tasksCacheKey(status)).Err()
		return nil, false
	}
	return tasks, true
}

func (c *Cache) store(ctx context.Context, status string, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, tasksCacheKey(status), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	keys := []string{
		tasksCacheKey(""),
		tasksCacheKey(domain.StatusPending),
		tasksCacheKey(domain.StatusInProgress),
		tasksCacheKey(domain.StatusCompleted),
	}
	_, _ = c.redis.Del(ctx, keys...).Result()
}

func tasksCacheKey(status string) string {
	if status == "" {
		return "tasks:all"
	}
	return "tasks:" + status
}
