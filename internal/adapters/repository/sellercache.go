package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/domain/model"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/logger"
)

// Default cache configuration constants.
const (
	defaultSellerTTL    = 5 * time.Minute
	defaultSellerPrefix = "pambo:seller:"
)

// RedisClient is the subset of *redis.Client the seller cache needs.
type RedisClient interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// NewRedisClient creates and verifies a Redis client connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return rdb, nil
}

// CachedSellerStore is a read-through Redis cache in front of a SellerStore.
// Cache failures fall back to the backing store.
type CachedSellerStore struct {
	next   SellerStore
	rdb    RedisClient
	ttl    time.Duration
	prefix string
	logger logger.Logger
}

// NewCachedSellerStore wraps next with a cache held in rdb.
func NewCachedSellerStore(next SellerStore, rdb RedisClient, opts ...CacheOption) *CachedSellerStore {
	c := &CachedSellerStore{
		next:   next,
		rdb:    rdb,
		ttl:    defaultSellerTTL,
		prefix: defaultSellerPrefix,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SellersByID serves cached sellers and loads the rest from the backing
// store, caching what it finds.
func (c *CachedSellerStore) SellersByID(ctx context.Context, ids []string) ([]model.Seller, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.prefix + id
	}

	sellers := make([]model.Seller, 0, len(ids))
	missing := ids
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn(ctx, "seller cache read failed", logger.Error(err))
	} else {
		missing = nil
		for i, v := range vals {
			raw, ok := v.(string)
			if !ok {
				missing = append(missing, ids[i])
				continue
			}
			var s model.Seller
			if err := json.Unmarshal([]byte(raw), &s); err != nil {
				missing = append(missing, ids[i])
				continue
			}
			sellers = append(sellers, s)
		}
	}
	if len(missing) == 0 {
		return sellers, nil
	}

	loaded, err := c.next.SellersByID(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, s := range loaded {
		c.store(ctx, s)
	}
	return append(sellers, loaded...), nil
}

func (c *CachedSellerStore) store(ctx context.Context, s model.Seller) {
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.prefix+s.ID, data, c.ttl).Err(); err != nil {
		c.logger.Warn(ctx, "seller cache write failed",
			logger.String("sellerID", s.ID),
			logger.Error(err),
		)
	}
}
