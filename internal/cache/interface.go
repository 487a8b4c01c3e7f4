package cache

import "time"

// Cache stores encoded values by key. Values are raw bytes so every backend
// round-trips them the same way.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	SetWithTTL(key string, value []byte, ttl time.Duration)
	Delete(key string)
	Clear()
}
