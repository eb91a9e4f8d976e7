package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/take_stock.lua
var takeStockScript string

//go:embed scripts/return_stock.lua
var returnStockScript string

type Client struct {
	rdb          *redis.Client
	takeScript   *redis.Script
	returnScript *redis.Script
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
		rdb:          rdb,
		takeScript:   redis.NewScript(takeStockScript),
		returnScript: redis.NewScript(returnStockScript),
	}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// TakeStock atomically decrements the stock snapshot for a product.
// Returns false only when the snapshot is warm and shows insufficient
// stock; the database conditional update stays the authority either way.
func (c *Client) TakeStock(ctx context.Context, productID int64, quantity int) (bool, error) {
	key := fmt.Sprintf("stock:%d", productID)

	result, err := c.takeScript.Run(ctx, c.rdb, []string{key}, quantity).Result()
	if err != nil {
		return false, fmt.Errorf("take stock script failed: %w", err)
	}

	success, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected script result type")
	}

	return success == 1, nil
}

// ReturnStock atomically restores the stock snapshot (compensation)
func (c *Client) ReturnStock(ctx context.Context, productID int64, quantity int) error {
	key := fmt.Sprintf("stock:%d", productID)

	_, err := c.returnScript.Run(ctx, c.rdb, []string{key}, quantity).Result()
	if err != nil {
		return fmt.Errorf("return stock script failed: %w", err)
	}

	return nil
}

// SetStock overwrites the stock snapshot for a product
func (c *Client) SetStock(ctx context.Context, productID int64, stock int) error {
	key := fmt.Sprintf("stock:%d", productID)
	return c.rdb.Set(ctx, key, stock, 0).Err()
}

// MarkCallbackSeen records a callback payment key with a TTL, returning
// false if it was already recorded. Fast-path dedup only; the payments
// unique constraint is the durable guarantee.
func (c *Client) MarkCallbackSeen(ctx context.Context, paymentKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("callback:%s", paymentKey), "1", ttl).Result()
}
