package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for the occurrence-query cache
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// WindowKey generates a cache key from a match window's bytes
func WindowKey(window []byte) string {
	hash := sha256.Sum256(window)
	return "decon:v1:" + hex.EncodeToString(hash[:])
}
