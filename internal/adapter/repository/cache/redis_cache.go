package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/mapper"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	itemKeyPrefix = "locations:item:"
	listKeyPrefix = "locations:list:"
	// listIndexKey is a set of every list key currently cached, so that
	// all lists can be dropped without SCAN.
	listIndexKey = "locations:list:keys"
)

func NewRedisClient(cfg config.RedisConfig, log *logger.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Error("Failed to connect to Redis", zap.String("address", cfg.Address), zap.Error(err))
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Address, err)
	}
	log.Info("Successfully connected to Redis", zap.String("address", cfg.Address))
	return rdb, nil
}

// RedisQueryCache stores locations as their snake_case rows in JSON.
type RedisQueryCache struct {
	client *redis.Client
	logger *logger.Logger
}

func NewRedisQueryCache(client *redis.Client, log *logger.Logger) *RedisQueryCache {
	return &RedisQueryCache{client: client, logger: log.Named("RedisQueryCache")}
}

func (c *RedisQueryCache) GetLocation(ctx context.Context, id string) (*domain.Location, bool, error) {
	data, err := c.client.Get(ctx, itemKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", id, err)
	}
	var row mapper.LocationRow
	if err := json.Unmarshal(data, &row); err != nil {
		c.logger.Warn("dropping undecodable cache entry", zap.String("location_id", id), zap.Error(err))
		_ = c.client.Del(ctx, itemKeyPrefix+id).Err()
		return nil, false, nil
	}
	loc, err := mapper.ToLocation(row)
	if err != nil {
		return nil, false, nil
	}
	return loc, true, nil
}

func (c *RedisQueryCache) SetLocation(ctx context.Context, loc *domain.Location, ttl time.Duration) error {
	data, err := json.Marshal(mapper.FromLocation(loc))
	if err != nil {
		return err
	}
	return c.client.Set(ctx, itemKeyPrefix+loc.ID, data, ttl).Err()
}

func (c *RedisQueryCache) GetList(ctx context.Context, key string) ([]*domain.Location, bool, error) {
	data, err := c.client.Get(ctx, listKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get list: %w", err)
	}
	var rows []mapper.LocationRow
	if err := json.Unmarshal(data, &rows); err != nil {
		c.logger.Warn("dropping undecodable list entry", zap.String("key", key), zap.Error(err))
		_ = c.client.Del(ctx, listKeyPrefix+key).Err()
		return nil, false, nil
	}
	locs := make([]*domain.Location, 0, len(rows))
	for _, row := range rows {
		loc, err := mapper.ToLocation(row)
		if err != nil {
			return nil, false, nil
		}
		locs = append(locs, loc)
	}
	return locs, true, nil
}

func (c *RedisQueryCache) SetList(ctx context.Context, key string, locs []*domain.Location, ttl time.Duration) error {
	rows := make([]mapper.LocationRow, len(locs))
	for i, l := range locs {
		rows[i] = mapper.FromLocation(l)
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, listKeyPrefix+key, data, ttl)
		pipe.SAdd(ctx, listIndexKey, listKeyPrefix+key)
		return nil
	})
	return err
}

func (c *RedisQueryCache) InvalidateLocation(ctx context.Context, id string) error {
	return c.client.Del(ctx, itemKeyPrefix+id).Err()
}

// InvalidateLists drops every tracked list. Only the members read here are
// removed from the index, so a list written concurrently stays tracked for
// the next invalidation.
func (c *RedisQueryCache) InvalidateLists(ctx context.Context) error {
	keys, err := c.client.SMembers(ctx, listIndexKey).Result()
	if err != nil {
		return fmt.Errorf("redis list index: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	members := make([]interface{}, len(keys))
	for i, k := range keys {
		members[i] = k
	}
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.SRem(ctx, listIndexKey, members...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis del lists: %w", err)
	}
	c.logger.Debug("list entries invalidated", zap.Int("count", len(keys)))
	return nil
}
