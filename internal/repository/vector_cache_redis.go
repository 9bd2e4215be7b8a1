package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"profile-matcher/internal/domain"
)

// redisHasher es el subconjunto de *redis.Client que usa la caché; permite tests sin Redis.
type redisHasher interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
}

// RedisVectorCache es una copia caliente delante de otra VectorCache (Postgres).
// Lectura: Redis y luego next; un acierto en next puebla Redis. Escritura: next y luego Redis.
// Los fallos de Redis se registran y se degradan a next, nunca se propagan.
type RedisVectorCache struct {
	client redisHasher
	next   VectorCache
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

func NewRedisVectorCache(client *redis.Client, next VectorCache, ttl time.Duration, logger *zap.Logger) VectorCache {
	if client == nil {
		return next
	}
	return newRedisVectorCache(client, next, ttl, logger)
}

func newRedisVectorCache(client redisHasher, next VectorCache, ttl time.Duration, logger *zap.Logger) *RedisVectorCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisVectorCache{
		client: client,
		next:   next,
		ttl:    ttl,
		prefix: "embeds:",
		logger: logger,
	}
}

func (c *RedisVectorCache) Get(ctx context.Context, userID string) (domain.VectorSet, error) {
	key := c.prefix + userID
	fields, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		c.logger.Warn("redis vector read failed", zap.String("user_id", userID), zap.Error(err))
	} else if vectors := c.decode(userID, fields); len(vectors) > 0 {
		return vectors, nil
	}

	vectors, err := c.next.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(vectors) > 0 {
		c.write(ctx, userID, vectors)
	}
	return vectors, nil
}

func (c *RedisVectorCache) Upsert(ctx context.Context, userID string, vectors domain.VectorSet) error {
	if err := c.next.Upsert(ctx, userID, vectors); err != nil {
		return err
	}
	c.write(ctx, userID, vectors)
	return nil
}

// decode descarta campos que no se pueden interpretar: cuentan como fallo de caché para esa categoría.
func (c *RedisVectorCache) decode(userID string, fields map[string]string) domain.VectorSet {
	vectors := make(domain.VectorSet, len(fields))
	for name, raw := range fields {
		cat := domain.Category(name)
		if !cat.Valid() {
			continue
		}
		vec, err := ParseVector(raw)
		if err != nil {
			c.logger.Warn("dropping unparsable cached vector",
				zap.String("user_id", userID),
				zap.String("category", name),
				zap.Error(err),
			)
			continue
		}
		vectors[cat] = vec
	}
	return vectors
}

func (c *RedisVectorCache) write(ctx context.Context, userID string, vectors domain.VectorSet) {
	key := c.prefix + userID
	values := make([]interface{}, 0, 2*len(vectors))
	for _, cat := range vectors.PresentCategories() {
		values = append(values, string(cat), FormatVector(vectors[cat]))
	}

	// Del, HSet y Expire van en un solo MULTI/EXEC: dos escritores concurrentes nunca
	// mezclan campos y gana la última escritura completa.
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.HSet(ctx, key, values...)
			if c.ttl > 0 {
				pipe.Expire(ctx, key, c.ttl)
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("redis vector write failed", zap.String("user_id", userID), zap.Error(err))
	}
}
