package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.etcd.io/bbolt"
)

// CacheFileName is the fetch cache file inside the base directory.
const CacheFileName = "fetch_cache.db"

var bucketPages = []byte("pages")

// Cache is a bbolt-backed store of fetched pages keyed by URL.
type Cache struct {
	db  *bbolt.DB
	ttl time.Duration
	now func() time.Time
}

// OpenCache opens (or creates) the cache file and drops expired entries.
// A second process holding the file makes this fail after one second.
func OpenCache(path string, ttl time.Duration) (*Cache, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open fetch cache: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPages)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket %s: %w", bucketPages, err)
	}

	c := &Cache{db: db, ttl: ttl, now: time.Now}
	if _, err := c.Prune(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Get returns a fresh cached page for url.
func (c *Cache) Get(url string) (*Page, bool) {
	var page *Page
	_ = c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketPages).Get([]byte(url))
		if data == nil {
			return nil
		}
		var p Page
		if err := json.Unmarshal(data, &p); err != nil {
			return nil
		}
		if c.expired(&p) {
			return nil
		}
		page = &p
		return nil
	})
	return page, page != nil
}

// Put stores page under its URL.
func (c *Cache) Put(page *Page) error {
	data, err := json.Marshal(page)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketPages).Put([]byte(page.URL), data)
	})
}

// Prune deletes expired or unreadable entries and returns how many it removed.
func (c *Cache) Prune() (int, error) {
	removed := 0
	err := c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketPages)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var p Page
			if err := json.Unmarshal(v, &p); err != nil || c.expired(&p) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune fetch cache: %w", err)
	}
	return removed, nil
}

// Close closes the cache file.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) expired(p *Page) bool {
	return c.now().Sub(time.Unix(p.FetchedAt, 0)) > c.ttl
}

type noCacheKey struct{}

// NoCache marks ctx so a cached fetcher goes to the network and refreshes its entry.
func NoCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, noCacheKey{}, true)
}

func skipCache(ctx context.Context) bool {
	v, _ := ctx.Value(noCacheKey{}).(bool)
	return v
}

// Cached serves pages from a Cache before falling back to the wrapped Fetcher.
type Cached struct {
	next   Fetcher
	cache  *Cache
	logger *slog.Logger
}

// WithCache wraps next with cache. Cache write failures are logged, not returned.
func WithCache(next Fetcher, cache *Cache, logger *slog.Logger) *Cached {
	return &Cached{next: next, cache: cache, logger: logger}
}

func (f *Cached) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if !skipCache(ctx) {
		if page, ok := f.cache.Get(rawURL); ok {
			f.logger.Debug("fetch cache hit", "url", rawURL)
			return page, nil
		}
	}

	page, err := f.next.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if err := f.cache.Put(page); err != nil {
		f.logger.Warn("fetch cache write failed", "url", rawURL, "error", err)
	}
	return page, nil
}
