package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const DefaultTTL = 24 * time.Hour

type Options struct {
	TTL            time.Duration
	CacheTimeout   time.Duration
	CatalogTimeout time.Duration
}

// Client is a cache-aside front for a Catalog.
type Client struct {
	cache   Cache
	catalog Catalog
	log     *slog.Logger
	opts    Options
}

func NewClient(cache Cache, catalog Catalog, log *slog.Logger, opts Options) *Client {
	if cache == nil {
		cache = NopCache{}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	return &Client{cache: cache, catalog: catalog, log: log, opts: opts}
}

// Lookup returns metadata for title, from the cache when present. Cache failures never fail
// the lookup; catalog failures and empty results wrap ErrUnavailable.
func (c *Client) Lookup(ctx context.Context, title string) (Metadata, error) {
	key := CacheKey(title)

	if m, ok := c.fromCache(ctx, key); ok {
		return m, nil
	}

	cctx, cancel := c.withTimeout(ctx, c.opts.CatalogTimeout)
	results, err := c.catalog.Search(cctx, title)
	cancel()
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(results) == 0 {
		return Metadata{}, ErrNoMatch
	}

	m := normalize(results[0])
	c.store(ctx, key, m)
	return m, nil
}

func (c *Client) fromCache(ctx context.Context, key string) (Metadata, bool) {
	cctx, cancel := c.withTimeout(ctx, c.opts.CacheTimeout)
	defer cancel()

	raw, err := c.cache.Get(cctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.log.WarnContext(ctx, "metadata cache get failed", "key", key, "err", err)
		}
		return Metadata{}, false
	}

	var m Metadata
	if err := json.Unmarshal(raw, &m); err != nil {
		c.log.WarnContext(ctx, "metadata cache entry undecodable", "key", key, "err", err)
		return Metadata{}, false
	}
	return m, true
}

func (c *Client) store(ctx context.Context, key string, m Metadata) {
	raw, err := json.Marshal(m)
	if err != nil {
		c.log.WarnContext(ctx, "metadata encode failed", "key", key, "err", err)
		return
	}

	cctx, cancel := c.withTimeout(ctx, c.opts.CacheTimeout)
	defer cancel()
	if err := c.cache.Set(cctx, key, raw, c.opts.TTL); err != nil {
		c.log.WarnContext(ctx, "metadata cache set failed", "key", key, "err", err)
	}
}

func (c *Client) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
