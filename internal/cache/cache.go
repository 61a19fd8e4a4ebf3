// Package cache holds provider responses for their short useful lifetime,
// so repeated requests for the same location do not burn API quota.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache is the TTL store the provider clients use.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key builds the cache key for one provider's reading of one location.
// Locations are case-folded so "Berlin,DE" and "berlin,de" share an entry.
func Key(provider, location string) string {
	hash := sha256.Sum256([]byte(provider + "\x00" + strings.ToLower(strings.TrimSpace(location))))
	return "stratus:v1:" + hex.EncodeToString(hash[:])
}
