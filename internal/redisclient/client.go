package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"checkout-service/internal/models"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
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

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetProductSnapshot retrieves a cached product snapshot.
// Returns (nil, nil) on a cache miss.
func (c *Client) GetProductSnapshot(ctx context.Context, productID int64) (*models.Product, error) {
	key := fmt.Sprintf("product:%d", productID)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var product models.Product
	if err := json.Unmarshal(raw, &product); err != nil {
		return nil, fmt.Errorf("corrupt product snapshot for %d: %w", productID, err)
	}
	return &product, nil
}

// SetProductSnapshot caches a product snapshot with a TTL
func (c *Client) SetProductSnapshot(ctx context.Context, product *models.Product, ttl time.Duration) error {
	raw, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, fmt.Sprintf("product:%d", product.ID), raw, ttl).Err()
}

// InvalidateProductSnapshot drops a cached product snapshot
func (c *Client) InvalidateProductSnapshot(ctx context.Context, productID int64) error {
	return c.rdb.Del(ctx, fmt.Sprintf("product:%d", productID)).Err()
}

// MarkIdempotencyKey stores a checkout idempotency key with TTL
func (c *Client) MarkIdempotencyKey(ctx context.Context, key string, orderID int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), orderID, ttl).Err()
}

// SeenIdempotencyKey checks if a checkout idempotency key exists
func (c *Client) SeenIdempotencyKey(ctx context.Context, key string) (bool, error) {
	result, err := c.rdb.Exists(ctx, fmt.Sprintf("idempotency:%s", key)).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}
