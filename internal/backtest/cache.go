package backtest

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"
)

const seriesBucket = "series"

// Cache keeps fetched close series in a bolt file so repeated backtests over
// the same window do not hit the APIs again.
type Cache struct {
	db *bbolt.DB
}

func OpenCache(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create cache dir %s", dir)
		}
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open cache %s", path)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(seriesBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create series bucket")
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Get returns the series stored under key; ok is false on a miss.
func (c *Cache) Get(key string) (Series, bool, error) {
	var raw []byte
	err := c.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket([]byte(seriesBucket)).Get([]byte(key)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || raw == nil {
		return nil, false, err
	}
	var s Series
	if err := msgpack.Unmarshal(raw, &s); err != nil {
		return nil, false, errors.Wrapf(err, "decode cached series %s", key)
	}
	return s, true, nil
}

func (c *Cache) Put(key string, s Series) error {
	raw, err := msgpack.Marshal(s)
	if err != nil {
		return errors.Wrapf(err, "encode series %s", key)
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(seriesBucket)).Put([]byte(key), raw)
	})
}

// SeriesSource fetches the daily closes of one named instrument.
type SeriesSource interface {
	Closes(ctx context.Context, name string, start, end time.Time) (Series, error)
}

type cachedSource struct {
	prefix string
	next   SeriesSource
	cache  *Cache
}

// Cached wraps src so results are read from and written to cache. A nil cache
// returns src unchanged.
func Cached(src SeriesSource, prefix string, cache *Cache) SeriesSource {
	if cache == nil {
		return src
	}
	return &cachedSource{prefix: prefix, next: src, cache: cache}
}

func (c *cachedSource) Closes(ctx context.Context, name string, start, end time.Time) (Series, error) {
	key := c.prefix + ":" + name + ":" + dayOf(start) + ":" + dayOf(end)
	if s, ok, err := c.cache.Get(key); err == nil && ok {
		return s, nil
	}
	s, err := c.next.Closes(ctx, name, start, end)
	if err != nil {
		return nil, err
	}
	if len(s) > 0 {
		if err := c.cache.Put(key, s); err != nil {
			return nil, err
		}
	}
	return s, nil
}
