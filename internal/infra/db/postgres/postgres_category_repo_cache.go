package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"club-registration/internal/domain/model"
	"club-registration/internal/domain/ports/repository"
	"club-registration/internal/infra/metrics"
	red "club-registration/internal/infra/redis"
)

var _ repository.CategoryRepository = (*categoryRepoCacheDecorator)(nil)

// categoryRepoCacheDecorator caches category reads. Categories change only
// through the admin surface, so a short TTL plus write-through invalidation
// keeps the registration hot path off the database.
type categoryRepoCacheDecorator struct {
	inner repository.CategoryRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewCategoryRepoCacheDecorator(inner repository.CategoryRepository, cache red.RedisClient) repository.CategoryRepository {
	return &categoryRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   10 * time.Minute,
	}
}

// Lock is a correctness primitive, never cached.
func (d *categoryRepoCacheDecorator) Lock(ctx context.Context, tx repository.Tx, id string) error {
	return d.inner.Lock(ctx, tx, id)
}

func (d *categoryRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.RegistrationCategory, error) {
	// Transactional reads feed capacity decisions and must see committed
	// state, not a TTL-stale copy.
	if tx != repository.NoTX {
		return d.inner.FindByID(ctx, tx, id)
	}
	key := fmt.Sprintf("category:%s", id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		metrics.IncCacheRequest("category", "hit")
		var c model.RegistrationCategory
		if json.Unmarshal([]byte(val), &c) == nil {
			return &c, nil
		}
	}

	metrics.IncCacheRequest("category", "miss")
	c, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if c != nil {
		bytes, _ := json.Marshal(c)
		d.cache.Set(ctx, key, bytes, d.ttl)
	}
	return c, nil
}

func (d *categoryRepoCacheDecorator) ListByRegistration(ctx context.Context, tx repository.Tx, registrationID string) ([]*model.RegistrationCategory, error) {
	if tx != repository.NoTX {
		return d.inner.ListByRegistration(ctx, tx, registrationID)
	}
	key := fmt.Sprintf("categories:reg:%s", registrationID)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		metrics.IncCacheRequest("category_list", "hit")
		var cats []*model.RegistrationCategory
		if json.Unmarshal([]byte(val), &cats) == nil {
			return cats, nil
		}
	}

	metrics.IncCacheRequest("category_list", "miss")
	cats, err := d.inner.ListByRegistration(ctx, tx, registrationID)
	if err != nil {
		return nil, err
	}
	if len(cats) > 0 {
		bytes, _ := json.Marshal(cats)
		d.cache.Set(ctx, key, bytes, d.ttl)
	}
	return cats, nil
}

// Write operations invalidate both the single-item and list entries.
func (d *categoryRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, c *model.RegistrationCategory) error {
	d.cache.Del(ctx, fmt.Sprintf("category:%s", c.ID))
	d.cache.Del(ctx, fmt.Sprintf("categories:reg:%s", c.RegistrationID))
	return d.inner.Save(ctx, tx, c)
}

func (d *categoryRepoCacheDecorator) Delete(ctx context.Context, tx repository.Tx, id string) error {
	if c, err := d.inner.FindByID(ctx, tx, id); err == nil && c != nil {
		d.cache.Del(ctx, fmt.Sprintf("categories:reg:%s", c.RegistrationID))
	}
	d.cache.Del(ctx, fmt.Sprintf("category:%s", id))
	return d.inner.Delete(ctx, tx, id)
}
