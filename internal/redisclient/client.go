package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/reserve_promo.lua
var reservePromoScript string

//go:embed scripts/release_promo.lua
var releasePromoScript string

type Client struct {
	rdb           *redis.Client
	reserveScript *redis.Script
	releaseScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:           rdb,
		reserveScript: redis.NewScript(reservePromoScript),
		releaseScript: redis.NewScript(releasePromoScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// ReservePromotionUse atomically increments a promotion's usage counter
// while it is below the limit. Returns true if a use was reserved.
func (c *Client) ReservePromotionUse(ctx context.Context, code string, usageLimit int) (bool, error) {
	key := fmt.Sprintf("promo:%s", code)

	result, err := c.reserveScript.Run(ctx, c.rdb, []string{key}, usageLimit).Result()
	if err != nil {
		return false, fmt.Errorf("reserve promo script failed: %w", err)
	}

	success, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected script result type")
	}

	return success == 1, nil
}

// ReleasePromotionUse atomically decrements a promotion's usage counter
// (compensation when the reserving order fails to persist)
func (c *Client) ReleasePromotionUse(ctx context.Context, code string) error {
	key := fmt.Sprintf("promo:%s", code)

	_, err := c.releaseScript.Run(ctx, c.rdb, []string{key}).Result()
	if err != nil {
		return fmt.Errorf("release promo script failed: %w", err)
	}

	return nil
}

// InitPromotionCounter seeds a promotion's usage counter from the
// database value
func (c *Client) InitPromotionCounter(ctx context.Context, code string, timesUsed int) error {
	key := fmt.Sprintf("promo:%s", code)
	return c.rdb.Set(ctx, key, timesUsed, 0).Err()
}

// SetIdempotencyKey stores an idempotency key with TTL
func (c *Client) SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), value, ttl).Err()
}

// CheckIdempotencyKey checks if an idempotency key exists
func (c *Client) CheckIdempotencyKey(ctx context.Context, key string) (bool, error) {
	result, err := c.rdb.Exists(ctx, fmt.Sprintf("idempotency:%s", key)).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}

// AcquireLock acquires a distributed lock
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}

// MarkLowStockAlerted dedupes low-stock alerts per lot: returns true the
// first time a lot is flagged within the TTL window
func (c *Client) MarkLowStockAlerted(ctx context.Context, locationID, lotID int64, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lowstock:%d:%d", locationID, lotID)
	return c.rdb.SetNX(ctx, key, "1", ttl).Result()
}
