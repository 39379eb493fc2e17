package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	productKeyPrefix  = "product:"
	lowStockSetKey    = "alerts:low-stock"
	dashboardCacheKey = "dashboard:stock"
)

// Client is a thin redis wrapper used as a read cache for product snapshots
// and dashboard aggregates. The database stays the source of truth; nothing
// here participates in stock bookkeeping.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new redis client
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

// GetClient returns the underlying redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// SetProduct caches a product snapshot with a TTL
func (c *Client) SetProduct(ctx context.Context, productID int64, product interface{}, ttl time.Duration) error {
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to marshal product: %w", err)
	}
	return c.rdb.Set(ctx, fmt.Sprintf("%s%d", productKeyPrefix, productID), data, ttl).Err()
}

// GetProduct loads a cached product snapshot into dest. Returns false on a
// cache miss.
func (c *Client) GetProduct(ctx context.Context, productID int64, dest interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, fmt.Sprintf("%s%d", productKeyPrefix, productID)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached product: %w", err)
	}
	return true, nil
}

// InvalidateProduct drops a cached product snapshot
func (c *Client) InvalidateProduct(ctx context.Context, productID int64) error {
	return c.rdb.Del(ctx, fmt.Sprintf("%s%d", productKeyPrefix, productID)).Err()
}

// SetDashboard caches the stock dashboard with a TTL
func (c *Client) SetDashboard(ctx context.Context, dashboard interface{}, ttl time.Duration) error {
	data, err := json.Marshal(dashboard)
	if err != nil {
		return fmt.Errorf("failed to marshal dashboard: %w", err)
	}
	return c.rdb.Set(ctx, dashboardCacheKey, data, ttl).Err()
}

// GetDashboard loads the cached stock dashboard into dest. Returns false on
// a cache miss.
func (c *Client) GetDashboard(ctx context.Context, dest interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, dashboardCacheKey).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached dashboard: %w", err)
	}
	return true, nil
}

// InvalidateDashboard drops the cached stock dashboard
func (c *Client) InvalidateDashboard(ctx context.Context) error {
	return c.rdb.Del(ctx, dashboardCacheKey).Err()
}

// MarkLowStock adds a product to the low-stock alert set
func (c *Client) MarkLowStock(ctx context.Context, productID int64) error {
	return c.rdb.SAdd(ctx, lowStockSetKey, productID).Err()
}

// ClearLowStock removes a product from the low-stock alert set
func (c *Client) ClearLowStock(ctx context.Context, productID int64) error {
	return c.rdb.SRem(ctx, lowStockSetKey, productID).Err()
}

// LowStockProductIDs returns the product IDs currently flagged low on stock
func (c *Client) LowStockProductIDs(ctx context.Context) ([]int64, error) {
	ids, err := c.rdb.SMembers(ctx, lowStockSetKey).Result()
	if err != nil {
		return nil, err
	}

	result := make([]int64, 0, len(ids))
	for _, id := range ids {
		var v int64
		if _, err := fmt.Sscanf(id, "%d", &v); err != nil {
			continue
		}
		result = append(result, v)
	}
	return result, nil
}
