package soldprice

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cardledger/soldscraper/internal/scraper"
	"github.com/cardledger/soldscraper/logger"
	apperrors "github.com/cardledger/soldscraper/pkg/errors"
	"github.com/cardledger/soldscraper/services/cache"
	"github.com/cardledger/soldscraper/services/publisher"
	"github.com/cardledger/soldscraper/services/store"
)

// StreamKey is the field name results are published under
const StreamKey = "b64_sold_listings"

// CardScraper is the scraping core
type CardScraper interface {
	ScrapeCard(ctx context.Context, q scraper.CardQuery) (*scraper.ScrapeResult, error)
	Marketplace() string
}

// Message is the payload handed to the persistence consumer
type Message struct {
	UniqueID    string                `json:"unique_id"`
	Marketplace string                `json:"marketplace"`
	Result      *scraper.ScrapeResult `json:"result"`
}

// Service wraps the scraping core with the rate-limit gate, card lookup
// and result publishing
type Service struct {
	scraper   CardScraper
	cache     cache.CacheService
	blockFor  time.Duration
	publisher publisher.Publisher
	store     store.CardStore
	now       func() time.Time
	log       *logger.Logger
}

// Option configures a Service
type Option func(*Service)

// WithRateLimitCache enables the block marker. Once the marketplace answers
// with a rate limit, scrapes fail fast for blockFor.
func WithRateLimitCache(c cache.CacheService, blockFor time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.blockFor = blockFor
	}
}

// WithPublisher publishes every successful result
func WithPublisher(p publisher.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithStore enables lookups by unique id
func WithStore(st store.CardStore) Option {
	return func(s *Service) { s.store = st }
}

// NewService creates a new sold price service
func NewService(sc CardScraper, opts ...Option) *Service {
	s := &Service{
		scraper: sc,
		now:     time.Now,
		log:     logger.ForScraper(sc.Marketplace()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) blockKey() string {
	return s.scraper.Marketplace() + "_blocked"
}

// ScrapeCard scrapes sold listings for q
func (s *Service) ScrapeCard(ctx context.Context, q scraper.CardQuery) (*scraper.ScrapeResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkBlocked(); err != nil {
		return nil, err
	}

	result, err := s.scraper.ScrapeCard(ctx, q)
	if err != nil {
		if errors.Is(err, apperrors.ErrRateLimited) {
			s.block()
		}
		return nil, err
	}

	s.publish(ctx, q, result)
	return result, nil
}

// ScrapeByID looks the card up in the store and scrapes it
func (s *Service) ScrapeByID(ctx context.Context, uniqueID string) (*scraper.ScrapeResult, error) {
	if s.store == nil {
		return nil, apperrors.NewConfiguration("card store is not configured", nil)
	}
	if uniqueID == "" {
		return nil, apperrors.NewValidation("soldprice", "Missing required card data parameters: unique_id")
	}

	card, err := s.store.CardByID(ctx, uniqueID)
	if err != nil {
		return nil, err
	}
	return s.ScrapeCard(ctx, card)
}

func (s *Service) checkBlocked() error {
	if s.cache == nil {
		return nil
	}
	_, err := s.cache.Get(s.blockKey())
	switch {
	case err == nil:
		return apperrors.NewRateLimit(s.scraper.Marketplace(), s.blockFor)
	case cache.IsMiss(err):
		return nil
	default:
		// an unreachable cache must not stop scraping
		s.log.WithError(err).Warn().Msg("Rate limit marker check failed")
		return nil
	}
}

// ClearRateLimit removes the block marker so scrapes resume before it
// expires
func (s *Service) ClearRateLimit() error {
	if s.cache == nil {
		return apperrors.NewConfiguration("rate limit cache is not configured", nil)
	}
	if err := s.cache.Delete(s.blockKey()); err != nil {
		return err
	}
	s.log.Info().Msg("Rate limit marker cleared")
	return nil
}

func (s *Service) block() {
	if s.cache == nil || s.blockFor <= 0 {
		return
	}
	stamp := []byte(s.now().UTC().Format(time.RFC3339))
	if err := s.cache.Set(s.blockKey(), stamp, s.blockFor); err != nil {
		s.log.Warn().Err(err).Msg("Failed to set rate limit marker")
		return
	}
	s.log.Warn().Dur("block_for", s.blockFor).Msg("Marketplace rate limited, pausing scrapes")
}

// publish hands the result off. Failures are logged, the caller still gets
// its result.
func (s *Service) publish(ctx context.Context, q scraper.CardQuery, result *scraper.ScrapeResult) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(Message{
		UniqueID:    q.UniqueID,
		Marketplace: s.scraper.Marketplace(),
		Result:      result,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to encode result")
		return
	}
	id, err := s.publisher.Publish(ctx, StreamKey, payload)
	if err != nil {
		s.log.Error().Err(err).Str("unique_id", q.UniqueID).Msg("Failed to publish result")
		return
	}
	s.log.Debug().Str("message_id", id).Str("unique_id", q.UniqueID).Msg("Published result")
}
