package cache

import (
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	apperrors "github.com/cardledger/soldscraper/pkg/errors"
)

// MemcacheService implements CacheService on memcached. Keys are namespaced
// with prefix so several scrapers can share one server.
type MemcacheService struct {
	client *memcache.Client
	prefix string
}

// NewMemcacheService creates a new memcache service
func NewMemcacheService(serverAddr, prefix string) *MemcacheService {
	client := memcache.New(serverAddr)
	client.Timeout = 500 * time.Millisecond
	return &MemcacheService{
		client: client,
		prefix: prefix,
	}
}

func (m *MemcacheService) key(k string) string {
	return m.prefix + k
}

// Get retrieves a value from memcache
func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(m.key(key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, apperrors.NewCache("memcache", "get "+key, err)
	}
	return item.Value, nil
}

// Set stores a value in memcache. Sub-second expirations round up to one
// second since memcached counts whole seconds.
func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	secs := int32(expiration / time.Second)
	if expiration > 0 && secs == 0 {
		secs = 1
	}
	err := m.client.Set(&memcache.Item{
		Key:        m.key(key),
		Value:      value,
		Expiration: secs,
	})
	if err != nil {
		return apperrors.NewCache("memcache", "set "+key, err)
	}
	return nil
}

// Delete removes a value from memcache. Deleting an absent key is not an error.
func (m *MemcacheService) Delete(key string) error {
	err := m.client.Delete(m.key(key))
	if err == nil || errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return apperrors.NewCache("memcache", "delete "+key, err)
}

// Ping checks that every configured server answers
func (m *MemcacheService) Ping() error {
	return m.client.Ping()
}
