package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/perdin/internal/application/port"
	"github.com/garyjia/perdin/internal/domain/entity"
)

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// Connect dials Redis and verifies the connection with a short ping
func Connect(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// RedisCityCache stores cities as JSON values. Backend errors are logged and
// reported as misses.
type RedisCityCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCityCache creates a city cache on client
func NewRedisCityCache(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *RedisCityCache {
	if prefix == "" {
		prefix = "perdin"
	}
	return &RedisCityCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *RedisCityCache) key(id int64) string {
	return c.prefix + ":city:" + strconv.FormatInt(id, 10)
}

func (c *RedisCityCache) allKey() string {
	return c.prefix + ":cities:all"
}

// Get returns a cached city
func (c *RedisCityCache) Get(ctx context.Context, id int64) (*entity.City, bool) {
	var city entity.City
	if !c.load(ctx, c.key(id), &city) {
		return nil, false
	}
	return &city, true
}

// Set caches a city
func (c *RedisCityCache) Set(ctx context.Context, city *entity.City) {
	c.store(ctx, c.key(city.ID), city)
}

// GetAll returns the cached city list
func (c *RedisCityCache) GetAll(ctx context.Context) ([]*entity.City, bool) {
	var cities []*entity.City
	if !c.load(ctx, c.allKey(), &cities) {
		return nil, false
	}
	return cities, true
}

// SetAll caches the full city list
func (c *RedisCityCache) SetAll(ctx context.Context, cities []*entity.City) {
	c.store(ctx, c.allKey(), cities)
}

// Invalidate drops a city and the cached list. id 0 drops only the list.
func (c *RedisCityCache) Invalidate(ctx context.Context, id int64) {
	keys := []string{c.allKey()}
	if id != 0 {
		keys = append(keys, c.key(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("Failed to invalidate city cache", zap.Int64("city_id", id), zap.Error(err))
	}
}

func (c *RedisCityCache) load(ctx context.Context, key string, dst interface{}) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		c.logger.Warn("City cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("Discarding corrupt city cache entry", zap.String("key", key), zap.Error(err))
		_ = c.client.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *RedisCityCache) store(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Failed to encode city cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("City cache write failed", zap.String("key", key), zap.Error(err))
	}
}

var _ port.CityCache = (*RedisCityCache)(nil)
