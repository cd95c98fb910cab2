package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/cardledger/soldscraper/logger"
	apperrors "github.com/cardledger/soldscraper/pkg/errors"
)

// DefaultNavigationTimeout bounds the wait for the results page to settle
const DefaultNavigationTimeout = 30 * time.Second

var defaultBlockedResources = []ResourceType{ResourceImage, ResourceStylesheet, ResourceFont}

// Service scrapes sold listings for one card per call
type Service struct {
	browser    Browser
	market     Marketplace
	builder    *QueryBuilder
	extractor  *Extractor
	navTimeout time.Duration
	now        func() time.Time
	log        *logger.Logger
}

// Option customises a Service
type Option func(*Service)

// WithNavigationTimeout overrides the navigation bound
func WithNavigationTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.navTimeout = d
		}
	}
}

// WithClock replaces the timestamp source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger replaces the component logger
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService creates a scrape service for market driven through browser
func NewService(browser Browser, market Marketplace, opts ...Option) *Service {
	market = market.clone()
	s := &Service{
		browser:    browser,
		market:     market,
		builder:    NewQueryBuilder(market),
		extractor:  NewExtractor(market),
		navTimeout: DefaultNavigationTimeout,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.ForScraper(market.Name)
	}
	return s
}

// Marketplace returns the name of the marketplace this service scrapes
func (s *Service) Marketplace() string {
	return s.market.Name
}

// ScrapeCard validates q, scrapes the sold listings page for it and returns
// the classified listings. Validation failures never open a browser session;
// every other failure is reported as a ScrapeFailed error after the session
// has been closed.
func (s *Service) ScrapeCard(ctx context.Context, q CardQuery) (*ScrapeResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	spec := s.builder.Build(q)
	sourceURL := s.builder.BuildURL(spec)

	log := s.log.WithField("unique_id", q.UniqueID)
	log.Debug().Str("url", sourceURL).Msg("Scraping sold listings")

	listings, err := s.scrape(ctx, sourceURL, log)
	if err != nil {
		log.Error().Err(err).Msg("Scrape failed")
		return nil, apperrors.NewScrapeFailed(s.market.Name, err)
	}

	log.Info().Int("listings", len(listings)).Msg("Scrape finished")
	return &ScrapeResult{
		Data:      listings,
		SourceURL: sourceURL,
		Timestamp: s.now().UTC(),
	}, nil
}

func (s *Service) scrape(ctx context.Context, sourceURL string, log *logger.Logger) (listings []Listing, err error) {
	defer func() {
		if r := recover(); r != nil {
			listings, err = nil, fmt.Errorf("unexpected failure: %v", r)
		}
	}()

	session, err := s.browser.OpenSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("open browser session: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("Failed to close browser session")
		}
		log.Debug().Msg("Browser session released")
	}()

	page, err := session.OpenPage(ctx, PageOptions{BlockedResources: defaultBlockedResources})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}

	if err := page.Navigate(ctx, sourceURL, NavigateOptions{
		WaitUntil: WaitNetworkIdle,
		Timeout:   s.navTimeout,
	}); err != nil {
		return nil, err
	}

	items, err := page.Items(ctx, s.market.Selectors.Item)
	if err != nil {
		return nil, fmt.Errorf("read result items: %w", err)
	}

	raws := s.extractor.Extract(items)
	log.Debug().
		Int("rendered", len(items)).
		Int("extracted", len(raws)).
		Msg("Extracted result items")

	listings = make([]Listing, 0, len(raws))
	for _, raw := range raws {
		listing, err := ClassifyListing(raw)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

// ClassifyListing parses and classifies one raw listing
func ClassifyListing(raw RawListing) (Listing, error) {
	soldDate, err := ParseSoldDate(raw.SoldDateText)
	if err != nil {
		return Listing{}, err
	}
	price, err := ParsePrice(raw.PriceText)
	if err != nil {
		return Listing{}, err
	}
	return Listing{
		SoldDate:      soldDate,
		ItemPrice:     price,
		CardboardType: ClassifyCardboardType(raw.Title),
		Condition:     ClassifyCondition(raw.Title),
		Title:         raw.Title,
		ListingURL:    raw.ListingURL,
	}, nil
}
