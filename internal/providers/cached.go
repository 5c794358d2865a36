package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cesargomez89/ytmanager/internal/domain"
)

type Cache interface {
	GetCache(key string) ([]byte, error)
	SetCache(key string, data []byte, ttl time.Duration) error
	DeleteCachePrefix(prefix string) error
}

// CachedProvider caches subscription lookups of the wrapped provider.
// Video listings and statistics always go to the provider.
type CachedProvider struct {
	Provider
	cache    Cache
	cacheTTL time.Duration
}

func NewCachedProvider(provider Provider, cache Cache, cacheTTL time.Duration) *CachedProvider {
	return &CachedProvider{
		Provider: provider,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

func (c *CachedProvider) keyPrefix() string {
	return fmt.Sprintf("sub:%s:", c.ID())
}

func (c *CachedProvider) FetchSubscription(ctx context.Context, url string) (*domain.Subscription, error) {
	cacheKey := c.keyPrefix() + url

	data, err := c.cache.GetCache(cacheKey)
	if err != nil {
		return nil, err
	}
	if data != nil {
		var sub domain.Subscription
		if err := json.Unmarshal(data, &sub); err == nil {
			return &sub, nil
		}
	}

	sub, err := c.Provider.FetchSubscription(ctx, url)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(sub); err == nil {
		_ = c.cache.SetCache(cacheKey, data, c.cacheTTL)
	}

	return sub, nil
}

// Configure reconfigures the wrapped provider and drops its cached entries.
func (c *CachedProvider) Configure(settings json.RawMessage) error {
	if err := c.Provider.Configure(settings); err != nil {
		return err
	}
	return c.ClearCache()
}

func (c *CachedProvider) ClearCache() error {
	return c.cache.DeleteCachePrefix(c.keyPrefix())
}

var _ Provider = (*CachedProvider)(nil)
