package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/johnrirwin/gemlisting/internal/logging"
)

const (
	redisOpTimeout = 2 * time.Second
	clearBatch     = 100
)

// DefaultPrefix namespaces every key this client writes to a shared Redis
const DefaultPrefix = "gemlist:cache:"

// RedisCache stores values in Redis under a prefix so that Clear only touches
// this cache's keys. The connection is borrowed and is not closed here.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
	logger *logging.Logger
}

// NewRedisFromClient wraps a client shared with the draft store. An empty
// prefix takes DefaultPrefix.
func NewRedisFromClient(client redis.UniversalClient, prefix string, ttl time.Duration, logger *logging.Logger) *RedisCache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisCache{client: client, ttl: ttl, prefix: prefix, logger: logger}
}

// Get treats any backend failure as a miss; a cache outage must never block
// extraction or screening
func (c *RedisCache) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.warn("get", key, err)
		}
		return nil, false
	}
	return data, true
}

func (c *RedisCache) Set(key string, value []byte) {
	c.SetWithTTL(key, value, c.ttl)
}

func (c *RedisCache) SetWithTTL(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		c.Delete(key)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		c.warn("set", key, err)
	}
}

func (c *RedisCache) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		c.warn("delete", key, err)
	}
}

// Clear removes this cache's keys in batches of clearBatch
func (c *RedisCache) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*redisOpTimeout)
	defer cancel()

	batch := make([]string, 0, clearBatch)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := c.client.Unlink(ctx, batch...).Err(); err != nil {
			c.warn("clear", c.prefix+"*", err)
		}
		batch = batch[:0]
	}

	iter := c.client.Scan(ctx, 0, c.prefix+"*", clearBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == clearBatch {
			flush()
		}
	}
	flush()
	if err := iter.Err(); err != nil {
		c.warn("scan", c.prefix+"*", err)
	}
}

func (c *RedisCache) warn(op, key string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Debug("Redis cache operation failed", logging.WithFields(map[string]interface{}{
		"op":    op,
		"key":   key,
		"error": err.Error(),
	}))
}

var _ Cache = (*RedisCache)(nil)
