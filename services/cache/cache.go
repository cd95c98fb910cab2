package cache

import (
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is not cached
var ErrMiss = errors.New("cache miss")

// CacheService is the key/value store used for the rate-limit block marker
type CacheService interface {
	// Get retrieves a value, returning ErrMiss when absent
	Get(key string) ([]byte, error)

	// Set stores a value with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value
	Delete(key string) error
}

// IsMiss reports whether err means the key was simply not there
func IsMiss(err error) bool {
	return errors.Is(err, ErrMiss)
}
