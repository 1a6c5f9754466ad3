// Package cache decorates the product catalog with a Redis cache-aside layer.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/larder/internal/domain"
	"github.com/dukerupert/larder/internal/telemetry"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "catalog:product:"

// DefaultTTL is used when no positive TTL is configured.
const DefaultTTL = 5 * time.Minute

// CatalogCache is a domain.ProductStore whose Lookup reads through Redis.
//
// Concurrent misses for one product collapse into a single store read.
// Writes go to the store first and then evict the cached entry. Redis
// failures degrade to reading the store directly.
type CatalogCache struct {
	store   domain.ProductStore
	redis   redis.Cmdable
	ttl     time.Duration
	group   singleflight.Group
	metrics *telemetry.CartMetrics
	logger  *slog.Logger
}

var _ domain.ProductStore = (*CatalogCache)(nil)

// NewCatalogCache wraps store. metrics may be nil.
func NewCatalogCache(store domain.ProductStore, client redis.Cmdable, ttl time.Duration, metrics *telemetry.CartMetrics, logger *slog.Logger) *CatalogCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CatalogCache{
		store:   store,
		redis:   client,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
	}
}

// cachedProduct is the JSON form kept in Redis.
type cachedProduct struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Image        string    `json:"image"`
	Quantity     int       `json:"quantity"`
	Price        string    `json:"price"`
	Discount     string    `json:"discount"`
	SpecialPrice string    `json:"specialPrice"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func key(productID uuid.UUID) string {
	return keyPrefix + productID.String()
}

func (c *CatalogCache) Lookup(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	if p, ok := c.get(ctx, productID); ok {
		return p, nil
	}

	v, err, _ := c.group.Do(productID.String(), func() (interface{}, error) {
		if p, ok := c.get(ctx, productID); ok {
			return p, nil
		}
		p, err := c.store.Lookup(ctx, productID)
		if err != nil {
			return nil, err
		}
		c.set(ctx, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}

	p := *v.(*domain.Product)
	return &p, nil
}

// Invalidate evicts productID from the cache.
func (c *CatalogCache) Invalidate(ctx context.Context, productID uuid.UUID) error {
	if err := c.redis.Del(ctx, key(productID)).Err(); err != nil {
		return fmt.Errorf("evict product %s: %w", productID, err)
	}
	return nil
}

func (c *CatalogCache) ListProducts(ctx context.Context, limit, offset int) ([]domain.Product, error) {
	return c.store.ListProducts(ctx, limit, offset)
}

func (c *CatalogCache) CountProducts(ctx context.Context) (int, error) {
	return c.store.CountProducts(ctx)
}

func (c *CatalogCache) ProductNameExists(ctx context.Context, name string, excludeID uuid.UUID) (bool, error) {
	return c.store.ProductNameExists(ctx, name, excludeID)
}

func (c *CatalogCache) CreateProduct(ctx context.Context, product *domain.Product) error {
	return c.store.CreateProduct(ctx, product)
}

func (c *CatalogCache) UpdateProduct(ctx context.Context, product *domain.Product) error {
	if err := c.store.UpdateProduct(ctx, product); err != nil {
		return err
	}
	c.evict(ctx, product.ID)
	return nil
}

func (c *CatalogCache) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	if err := c.store.DeleteProduct(ctx, productID); err != nil {
		return err
	}
	c.evict(ctx, productID)
	return nil
}

func (c *CatalogCache) get(ctx context.Context, productID uuid.UUID) (*domain.Product, bool) {
	data, err := c.redis.Get(ctx, key(productID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.metrics.CacheLookup("miss")
		} else {
			c.metrics.CacheLookup("error")
			c.logger.Warn("catalog cache read failed", "product_id", productID, "error", err)
		}
		return nil, false
	}

	p, err := decodeProduct(data)
	if err != nil {
		c.metrics.CacheLookup("error")
		c.logger.Warn("catalog cache entry unreadable", "product_id", productID, "error", err)
		return nil, false
	}
	c.metrics.CacheLookup("hit")
	return p, true
}

func (c *CatalogCache) set(ctx context.Context, p *domain.Product) {
	data, err := encodeProduct(p)
	if err != nil {
		c.logger.Warn("catalog cache encode failed", "product_id", p.ID, "error", err)
		return
	}
	if err := c.redis.Set(ctx, key(p.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("catalog cache write failed", "product_id", p.ID, "error", err)
	}
}

func (c *CatalogCache) evict(ctx context.Context, productID uuid.UUID) {
	if err := c.Invalidate(ctx, productID); err != nil {
		c.logger.Warn("catalog cache eviction failed", "product_id", productID, "error", err)
	}
}

func encodeProduct(p *domain.Product) (string, error) {
	data, err := json.Marshal(cachedProduct{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Image:        p.Image,
		Quantity:     p.Quantity,
		Price:        p.Price.String(),
		Discount:     p.Discount.String(),
		SpecialPrice: p.SpecialPrice.String(),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeProduct(data []byte) (*domain.Product, error) {
	var cp cachedProduct
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, err
	}

	p := &domain.Product{
		ID:          cp.ID,
		Name:        cp.Name,
		Description: cp.Description,
		Image:       cp.Image,
		Quantity:    cp.Quantity,
		CreatedAt:   cp.CreatedAt,
		UpdatedAt:   cp.UpdatedAt,
	}
	var err error
	if p.Price, err = parseDecimal(cp.Price); err != nil {
		return nil, err
	}
	if p.Discount, err = parseDecimal(cp.Discount); err != nil {
		return nil, err
	}
	if p.SpecialPrice, err = parseDecimal(cp.SpecialPrice); err != nil {
		return nil, err
	}
	return p, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse cached decimal %q: %w", s, err)
	}
	return d, nil
}
