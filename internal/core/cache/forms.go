package cache

import (
	"context"
	"time"

	"formcraft/internal/domain"
)

// FormCache holds public form reads by id.
type FormCache struct {
	c   *Cache
	ttl time.Duration
}

func NewFormCache(c *Cache, ttl time.Duration) *FormCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &FormCache{c: c, ttl: ttl}
}

func formKey(id string) string { return "formcraft:form:" + id }

func (f *FormCache) Get(ctx context.Context, id string, load func(context.Context) (*domain.Form, error)) (*domain.Form, error) {
	if f == nil || f.c == nil {
		return load(ctx)
	}
	return GetOrLoadJSON(f.c, ctx, formKey(id), f.ttl, load)
}

func (f *FormCache) Invalidate(ctx context.Context, id string) error {
	if f == nil {
		return nil
	}
	return f.c.Del(ctx, formKey(id))
}
