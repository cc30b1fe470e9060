// Package cache decorates a task gateway with a Redis read-through cache.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"taskhub/internal/models"
	"taskhub/internal/repository"
	"taskhub/pkg/crypto"
	"taskhub/pkg/logger"
)

// TaskCache serves FindOwned from Redis when the cached owner matches the
// caller. Redis failures are logged and fall through to the wrapped store.
type TaskCache struct {
	next   repository.TaskRepository
	client *redis.Client
	sealer *crypto.Sealer
	ttl    time.Duration
}

func NewTaskCache(next repository.TaskRepository, client *redis.Client, sealer *crypto.Sealer, ttl time.Duration) *TaskCache {
	return &TaskCache{next: next, client: client, sealer: sealer, ttl: ttl}
}

func cacheKey(id string) string {
	return fmt.Sprintf("task:%s", id)
}

func (c *TaskCache) put(ctx context.Context, task *models.Task) {
	jsonData, err := json.Marshal(task)
	if err != nil {
		logger.ErrorLogger.Error("Error encoding task for cache", zap.Error(err))
		return
	}
	sealed, err := c.sealer.Encrypt(jsonData)
	if err != nil {
		logger.ErrorLogger.Error("Error encrypting cached task", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, cacheKey(task.ID), sealed, c.ttl).Err(); err != nil {
		logger.ErrorLogger.Error("Error caching task", zap.String("task_id", task.ID), zap.Error(err))
	}
}

func (c *TaskCache) get(ctx context.Context, id string) (*models.Task, bool) {
	cached, err := c.client.Get(ctx, cacheKey(id)).Result()
	if err != nil {
		if err != redis.Nil {
			logger.ErrorLogger.Error("Error reading task cache", zap.String("task_id", id), zap.Error(err))
		}
		return nil, false
	}
	plain, err := c.sealer.Decrypt(cached)
	if err != nil {
		logger.SecurityLogger.Warn("Discarding undecryptable cache entry", zap.String("task_id", id), zap.Error(err))
		c.evict(ctx, id)
		return nil, false
	}
	var task models.Task
	if err := json.Unmarshal(plain, &task); err != nil {
		c.evict(ctx, id)
		return nil, false
	}
	return &task, true
}

func (c *TaskCache) evict(ctx context.Context, id string) {
	if err := c.client.Del(ctx, cacheKey(id)).Err(); err != nil {
		logger.ErrorLogger.Error("Error evicting cached task", zap.String("task_id", id), zap.Error(err))
	}
}

func (c *TaskCache) Create(ctx context.Context, task *models.Task) error {
	if err := c.next.Create(ctx, task); err != nil {
		return err
	}
	c.put(ctx, task)
	return nil
}

func (c *TaskCache) ListByOwner(ctx context.Context, owner string) ([]models.Task, error) {
	return c.next.ListByOwner(ctx, owner)
}

func (c *TaskCache) FindOwned(ctx context.Context, id, owner string) (*models.Task, error) {
	if task, ok := c.get(ctx, id); ok && task.CreatedBy == owner {
		return task, nil
	}
	task, err := c.next.FindOwned(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	c.put(ctx, task)
	return task, nil
}

func (c *TaskCache) UpdateOwned(ctx context.Context, id, owner string, upd models.TaskUpdate) (*models.Task, error) {
	task, err := c.next.UpdateOwned(ctx, id, owner, upd)
	if err != nil {
		return nil, err
	}
	c.put(ctx, task)
	return task, nil
}

func (c *TaskCache) DeleteOwned(ctx context.Context, id, owner string) (*models.Task, error) {
	task, err := c.next.DeleteOwned(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, id)
	return task, nil
}
