package cache

import (
	"context"
	"strings"
	"time"

	"github.com/matzehuels/prereqgraph/pkg/observability"
)

type observed struct {
	Cache
}

// Observe wraps c so that hits, misses and writes are reported to the
// registered [observability.CacheHooks]. The key type is the key prefix up to
// the first colon ("dataset", "layout", "artifact" or "http").
func Observe(c Cache) Cache {
	if _, ok := c.(observed); ok {
		return c
	}
	return observed{Cache: c}
}

func (o observed) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, hit, err := o.Cache.Get(ctx, key)
	if err == nil {
		if hit {
			observability.Cache().OnCacheHit(ctx, keyType(key))
		} else {
			observability.Cache().OnCacheMiss(ctx, keyType(key))
		}
	}
	return data, hit, err
}

func (o observed) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := o.Cache.Set(ctx, key, data, ttl)
	if err == nil {
		observability.Cache().OnCacheSet(ctx, keyType(key), len(data))
	}
	return err
}

func keyType(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "other"
}
