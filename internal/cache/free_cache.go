package cache

import (
	"fmt"
	"time"

	"github.com/coocood/freecache"
)

const megabyte = 1024 * 1024

var _ Cache = (*FreeCache)(nil)

type FreeCache struct {
	mainCache *freecache.Cache
}

// NewFreeCache allocates sizeMB megabytes up front; freecache evicts on its own when full.
func NewFreeCache(sizeMB int) *FreeCache {
	return &FreeCache{
		mainCache: freecache.NewCache(sizeMB * megabyte),
	}
}

func (fc *FreeCache) Get(key string) ([]byte, bool) {
	value, err := fc.mainCache.Get([]byte(key))
	if err != nil {
		return nil, false
	}
	return value, true
}

func (fc *FreeCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := fc.mainCache.Set([]byte(key), value, int(ttl.Seconds())); err != nil {
		return fmt.Errorf("set cache key %s: %w", key, err)
	}
	return nil
}

func (fc *FreeCache) Del(key string) bool {
	return fc.mainCache.Del([]byte(key))
}

func (fc *FreeCache) Clear() {
	fc.mainCache.Clear()
}

func (fc *FreeCache) EntryCount() int64 {
	return fc.mainCache.EntryCount()
}
