package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/cardledger/soldscraper/helpers"
	"github.com/cardledger/soldscraper/internal/scraper"
	"github.com/cardledger/soldscraper/logger"
	apperrors "github.com/cardledger/soldscraper/pkg/errors"
)

// HTTPBrowser fetches result pages without executing scripts. Sub-resources
// are never requested, so every resource class is effectively blocked.
type HTTPBrowser struct {
	proxyURL string
	log      *logger.Logger
}

// NewHTTPBrowser creates a plain HTTP driver. proxyURL may be empty.
func NewHTTPBrowser(proxyURL string) *HTTPBrowser {
	return &HTTPBrowser{
		proxyURL: proxyURL,
		log:      logger.ForBrowser("http"),
	}
}

// OpenSession creates a session with its own HTTP client and cookie jar
func (b *HTTPBrowser) OpenSession(ctx context.Context) (scraper.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &httpSession{client: helpers.NewClient(b.proxyURL), log: b.log}, nil
}

type httpSession struct {
	mu     sync.Mutex
	client *resty.Client
	closed bool
	log    *logger.Logger
}

func (s *httpSession) OpenPage(ctx context.Context, opts scraper.PageOptions) (scraper.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("session closed")
	}
	return &httpPage{session: s}, nil
}

func (s *httpSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.client.GetClient().CloseIdleConnections()
	s.log.Debug().Msg("HTTP session closed")
	return nil
}

type httpPage struct {
	session *httpSession
	doc     *goquery.Document
}

// Navigate fetches url. The load is complete once the body is read, so
// every WaitUntil mode behaves the same.
func (p *httpPage) Navigate(ctx context.Context, url string, opts scraper.NavigateOptions) error {
	navCtx, cancel := helpers.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	body, err := helpers.FetchWithRandomHeaders(navCtx, p.session.client, url)
	if err != nil {
		if errors.Is(navCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return apperrors.NewNavigation("http", fmt.Sprintf("no response within %s", opts.Timeout),
				fmt.Errorf("%w: %v", apperrors.ErrNavigationTimeout, err))
		}
		if errors.Is(err, apperrors.ErrRateLimited) {
			return apperrors.New(apperrors.ErrorTypeRateLimit, "http", "marketplace refused the request", err)
		}
		return apperrors.NewNavigation("http", "request failed", err)
	}

	doc, err := createDocument(body)
	if err != nil {
		return err
	}
	p.doc = doc
	return nil
}

func (p *httpPage) Items(ctx context.Context, selector string) ([]scraper.Item, error) {
	if p.doc == nil {
		return nil, errors.New("page has not been navigated")
	}
	return documentItems(p.doc, selector), nil
}
