package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var errNilValue = errors.New("cache: loader returned nil")

// GetOrLoadJSON caches load's result as JSON under key.
// Errors are never cached: a NotFound may be filled in by the volatile store later.
func GetOrLoadJSON[T any](
	c *Cache,
	ctx context.Context,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) (*T, error),
) (*T, error) {
	var loaded *T
	b, err := c.GetOrLoad(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, e := load(ctx)
		if e != nil {
			return nil, e
		}
		if v == nil {
			return nil, errNilValue
		}
		loaded = v
		return json.Marshal(v)
	})
	if err != nil {
		return nil, err
	}
	if loaded != nil {
		return loaded, nil
	}
	out := new(T)
	if e := json.Unmarshal(b, out); e != nil {
		// 旧版本结构写进去的条目，删掉重新回源
		_ = c.Del(ctx, key)
		return load(ctx)
	}
	return out, nil
}
