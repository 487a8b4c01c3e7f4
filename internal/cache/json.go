package cache

import "encoding/json"

// GetJSON decodes the value under key into v. An entry that no longer
// decodes is deleted and reported as a miss.
func GetJSON(c Cache, key string, v any) bool {
	if c == nil {
		return false
	}
	raw, ok := c.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		c.Delete(key)
		return false
	}
	return true
}

// SetJSON encodes v and stores it with the cache's default TTL
func SetJSON(c Cache, key string, v any) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.Set(key, raw)
	return nil
}
