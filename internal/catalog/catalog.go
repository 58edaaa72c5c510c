// Package catalog provides read-only product lookups for the cart and display
// paths. Order assembly bypasses the cache and reads prices straight from the
// database so snapshots are always taken against the current catalog state.
package catalog

import (
	"context"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/redisclient"
	"checkout-service/internal/store"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// Reader serves product snapshots, cache-aside via Redis with a DB fallback.
type Reader struct {
	store  *store.Store
	redis  *redisclient.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewReader creates a new catalog reader
func NewReader(store *store.Store, redis *redisclient.Client, ttl time.Duration) *Reader {
	return &Reader{
		store:  store,
		redis:  redis,
		ttl:    ttl,
		logger: util.GetLogger(),
	}
}

// ProductByID retrieves a product snapshot. Returns (nil, nil) when the
// product does not exist. Cache failures degrade to DB reads.
func (r *Reader) ProductByID(ctx context.Context, productID int64) (*models.Product, error) {
	if r.redis != nil {
		cached, err := r.redis.GetProductSnapshot(ctx, productID)
		if err != nil {
			util.ProductCacheHitsTotal.WithLabelValues("error").Inc()
			r.logger.Warn("Product cache read failed, falling back to DB",
				zap.Int64("product_id", productID),
				zap.Error(err))
		} else if cached != nil {
			util.ProductCacheHitsTotal.WithLabelValues("hit").Inc()
			return cached, nil
		} else {
			util.ProductCacheHitsTotal.WithLabelValues("miss").Inc()
		}
	}

	product, err := r.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, nil
	}

	if r.redis != nil {
		if err := r.redis.SetProductSnapshot(ctx, product, r.ttl); err != nil {
			r.logger.Warn("Product cache write failed",
				zap.Int64("product_id", productID),
				zap.Error(err))
		}
	}

	return product, nil
}
