// Package cache puts a Redis read-through cache in front of board task lists.
package cache

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/twiced-technology-gmbh/taskboard/internal/server"
	"github.com/twiced-technology-gmbh/taskboard/internal/task"
)

// Cache wraps a Storage with Redis-backed caching of task lists. Every
// mutation evicts the lists of the board it touched.
type Cache struct {
	server.Storage
	redis *redis.Client
	ttl   time.Duration
	log   *log.Entry
}

var _ server.Storage = (*Cache)(nil)

// New creates a caching wrapper using the provided Redis client and TTL.
// A nil client or zero TTL disables caching.
func New(base server.Storage, client *redis.Client, ttl time.Duration, logger *log.Entry) *Cache {
	if base == nil {
		panic("cache.New: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Cache{Storage: base, redis: client, ttl: ttl, log: logger.WithField("component", "cache")}
}

// ListTasks serves a board's tasks from Redis when present.
func (c *Cache) ListTasks(ctx context.Context, boardID string, includeCompleted bool) ([]task.Task, error) {
	key := tasksCacheKey(boardID, includeCompleted)
	if tasks, ok := c.load(ctx, key); ok {
		return tasks, nil
	}
	tasks, err := c.Storage.ListTasks(ctx, boardID, includeCompleted)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, tasks)
	return tasks, nil
}

func (c *Cache) CreateTask(ctx context.Context, actor string, f task.Fields) (task.Task, error) {
	return c.evictAfter(ctx, func() (task.Task, error) { return c.Storage.CreateTask(ctx, actor, f) })
}

func (c *Cache) UpdateTask(ctx context.Context, actor, id string, p task.Patch) (task.Task, error) {
	return c.evictAfter(ctx, func() (task.Task, error) { return c.Storage.UpdateTask(ctx, actor, id, p) })
}

func (c *Cache) DeleteTask(ctx context.Context, id string) (task.Task, error) {
	return c.evictAfter(ctx, func() (task.Task, error) { return c.Storage.DeleteTask(ctx, id) })
}

func (c *Cache) MoveTask(ctx context.Context, actor, id string, to task.Placement) (task.Task, error) {
	return c.evictAfter(ctx, func() (task.Task, error) { return c.Storage.MoveTask(ctx, actor, id, to) })
}

func (c *Cache) CompleteTask(ctx context.Context, actor, id string) (task.Task, error) {
	return c.evictAfter(ctx, func() (task.Task, error) { return c.Storage.CompleteTask(ctx, actor, id) })
}

func (c *Cache) AssignTask(ctx context.Context, actor, id string, userID *string) (task.Task, error) {
	return c.evictAfter(ctx, func() (task.Task, error) { return c.Storage.AssignTask(ctx, actor, id, userID) })
}

// Comments and time change the counters carried on cached tasks.

func (c *Cache) CreateComment(ctx context.Context, authorID, taskID, content string) (task.Comment, error) {
	cm, err := c.Storage.CreateComment(ctx, authorID, taskID, content)
	if err == nil {
		c.evictTask(ctx, taskID)
	}
	return cm, err
}

func (c *Cache) CreateTimeEntry(ctx context.Context, userID, taskID string, minutes int) (task.TimeEntry, error) {
	e, err := c.Storage.CreateTimeEntry(ctx, userID, taskID, minutes)
	if err == nil {
		c.evictTask(ctx, taskID)
	}
	return e, err
}

func (c *Cache) StopTimer(ctx context.Context, userID, entryID string) (task.TimeEntry, error) {
	e, err := c.Storage.StopTimer(ctx, userID, entryID)
	if err == nil {
		c.evictTask(ctx, e.TaskID)
	}
	return e, err
}

func (c *Cache) evictAfter(ctx context.Context, fn func() (task.Task, error)) (task.Task, error) {
	t, err := fn()
	if err != nil {
		return t, err
	}
	c.evict(ctx, t.BoardID)
	return t, nil
}

func (c *Cache) evictTask(ctx context.Context, taskID string) {
	if c.redis == nil {
		return
	}
	t, err := c.Storage.GetTask(ctx, taskID)
	if err != nil {
		c.log.WithError(err).WithField("task_id", taskID).Warn("cannot resolve board for eviction")
		return
	}
	c.evict(ctx, t.BoardID)
}

func (c *Cache) load(ctx context.Context, key string) ([]task.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			c.log.WithError(err).WithField("key", key).Debug("cache read failed")
			_ = c.redis.Del(ctx, key).Err()
		}
		return nil, false
	}
	var tasks []task.Task
	if err := sonic.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return nil, false
	}
	return tasks, true
}

func (c *Cache) store(ctx context.Context, key string, tasks []task.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(tasks)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Debug("cache write failed")
	}
}

func (c *Cache) evict(ctx context.Context, boardID string) {
	if c.redis == nil || boardID == "" {
		return
	}
	if err := c.redis.Del(ctx, tasksCacheKey(boardID, false), tasksCacheKey(boardID, true)).Err(); err != nil {
		c.log.WithError(err).WithField("board_id", boardID).Warn("cache eviction failed")
	}
}

func tasksCacheKey(boardID string, includeCompleted bool) string {
	if includeCompleted {
		return "tasks:" + boardID + ":all"
	}
	return "tasks:" + boardID + ":open"
}
