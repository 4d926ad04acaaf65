package sqlstore

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/tabula/internal/value"
)

// DefaultCacheSize is the number of decoded records kept per driver.
const DefaultCacheSize = 4096

type cachedRecord struct {
	rev int64
	rec *value.Record
}

// recordCache maps (object, id) to the last decoded revision of a record.
// Cached records are shared with readers and never modified.
type recordCache struct {
	lru *lru.Cache[string, cachedRecord]
}

func newRecordCache(size int) (*recordCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, cachedRecord](size)
	if err != nil {
		return nil, err
	}
	return &recordCache{lru: c}, nil
}

func cacheKey(object, id string) string {
	return object + "\x00" + id
}

// decode returns the record stored in r, reusing the cached copy when its
// revision matches.
func (c *recordCache) decode(object string, r row) (*value.Record, error) {
	key := cacheKey(object, r.id)
	if hit, ok := c.lru.Get(key); ok && hit.rev == r.rev {
		return hit.rec, nil
	}
	rec, err := value.DecodeDocument(r.data)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, cachedRecord{rev: r.rev, rec: rec})
	return rec, nil
}

func (c *recordCache) put(object, id string, rev int64, rec *value.Record) {
	c.lru.Add(cacheKey(object, id), cachedRecord{rev: rev, rec: rec})
}

func (c *recordCache) forget(object, id string) {
	c.lru.Remove(cacheKey(object, id))
}

// Len returns the number of cached records.
func (c *recordCache) Len() int {
	return c.lru.Len()
}
