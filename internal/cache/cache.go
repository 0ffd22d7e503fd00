package cache

import "time"

// Cache is a byte-oriented, size-bounded cache. A zero ttl means no expiry.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Del(key string) bool
	Clear()
}
