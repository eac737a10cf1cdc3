package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"go-gearstore/internal/model"
	"go-gearstore/pkg/cache"
)

// ProductCache is a read-through cache of products by slug. A nil store
// disables caching. Cache failures are logged and never fail a request.
type ProductCache struct {
	store cache.Store
	ttl   time.Duration
}

func NewProductCache(store cache.Store, ttl time.Duration) *ProductCache {
	return &ProductCache{store: store, ttl: ttl}
}

func productKey(slug string) string {
	return "product:slug:" + slug
}

func (c *ProductCache) get(ctx context.Context, slug string) (*model.Product, bool) {
	if c == nil || c.store == nil {
		return nil, false
	}
	raw, err := c.store.Get(ctx, productKey(slug))
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			log.Printf("product cache get %s: %v", slug, err)
		}
		return nil, false
	}
	var product model.Product
	if err := json.Unmarshal(raw, &product); err != nil {
		log.Printf("product cache decode %s: %v", slug, err)
		return nil, false
	}
	return &product, true
}

func (c *ProductCache) put(ctx context.Context, product *model.Product) {
	if c == nil || c.store == nil {
		return
	}
	raw, err := json.Marshal(product)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, productKey(product.Slug), raw, c.ttl); err != nil {
		log.Printf("product cache set %s: %v", product.Slug, err)
	}
}

// Invalidate drops the cached entries for the given slugs.
func (c *ProductCache) Invalidate(ctx context.Context, slugs ...string) {
	if c == nil || c.store == nil || len(slugs) == 0 {
		return
	}
	keys := make([]string, 0, len(slugs))
	for _, s := range slugs {
		if s != "" {
			keys = append(keys, productKey(s))
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := c.store.Delete(ctx, keys...); err != nil {
		log.Printf("product cache invalidate: %v", err)
	}
}
