package soldprice

import (
	"context"
	"sync"
	"time"

	"github.com/cardledger/soldscraper/internal/scraper"
	apperrors "github.com/cardledger/soldscraper/pkg/errors"
	"github.com/cardledger/soldscraper/services/cache"
	"github.com/cardledger/soldscraper/services/publisher"
	"github.com/cardledger/soldscraper/services/store"
)

// MockScraper implements CardScraper for testing
type MockScraper struct {
	mu     sync.Mutex
	calls  []scraper.CardQuery
	result *scraper.ScrapeResult
	err    error
}

var _ CardScraper = (*MockScraper)(nil)

func (m *MockScraper) ScrapeCard(ctx context.Context, q scraper.CardQuery) (*scraper.ScrapeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, q)
	return m.result, m.err
}

func (m *MockScraper) Marketplace() string {
	return "ebay"
}

func (m *MockScraper) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// MockCache implements cache.CacheService in memory
type MockCache struct {
	mu     sync.Mutex
	values map[string][]byte
	ttls      map[string]time.Duration
	getErr    error
	deleteErr error
}

var _ cache.CacheService = (*MockCache)(nil)

func NewMockCache() *MockCache {
	return &MockCache{
		values: make(map[string][]byte),
		ttls:   make(map[string]time.Duration),
	}
}

func (m *MockCache) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return v, nil
}

func (m *MockCache) Set(key string, value []byte, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	m.ttls[key] = expiration
	return nil
}

func (m *MockCache) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.values, key)
	return nil
}

// MockPublisher implements publisher.Publisher for testing
type MockPublisher struct {
	mu       sync.Mutex
	messages map[string][][]byte
	err      error
}

var _ publisher.Publisher = (*MockPublisher)(nil)

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{messages: make(map[string][][]byte)}
}

func (m *MockPublisher) Publish(ctx context.Context, key string, message []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	messageCopy := make([]byte, len(message))
	copy(messageCopy, message)
	m.messages[key] = append(m.messages[key], messageCopy)
	return "msg-1", nil
}

func (m *MockPublisher) TrimStreams(ctx context.Context) error {
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

// MockStore implements store.CardStore from a fixed set of cards
type MockStore struct {
	cards map[string]scraper.CardQuery
}

var _ store.CardStore = (*MockStore)(nil)

func (m *MockStore) CardByID(ctx context.Context, uniqueID string) (scraper.CardQuery, error) {
	c, ok := m.cards[uniqueID]
	if !ok {
		return scraper.CardQuery{}, apperrors.NewNotFound("mock", "card "+uniqueID+" not found")
	}
	return c, nil
}

func (m *MockStore) PortfolioCards(ctx context.Context) ([]scraper.CardQuery, error) {
	var out []scraper.CardQuery
	for _, c := range m.cards {
		out = append(out, c)
	}
	return out, nil
}
