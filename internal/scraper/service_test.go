package scraper

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/cardledger/soldscraper/logger"
	apperrors "github.com/cardledger/soldscraper/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 10, 19, 12, 0, 0, 0, time.UTC)

func newTestService(b *MockBrowser, opts ...Option) *Service {
	opts = append([]Option{
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(logger.New(zerolog.Nop())),
	}, opts...)
	return NewService(b, EbayMarketplace(), opts...)
}

func TestScrapeCardSuccess(t *testing.T) {
	items := []Item{adItem()}
	for n := 1; n <= 12; n++ {
		items = append(items, goodItem(n))
	}
	b := &MockBrowser{items: items}
	s := newTestService(b)

	result, err := s.ScrapeCard(context.Background(), pikachu())
	require.NoError(t, err)

	assert.Len(t, result.Data, 10)
	assert.Equal(t, fixedNow, result.Timestamp)
	assert.Equal(t, "2024-10-01", result.Data[0].SoldDate)
	assert.InDelta(t, 1.5, result.Data[0].ItemPrice, 0.0001)
	assert.Equal(t, CardboardNormal, result.Data[0].CardboardType)
	assert.Equal(t, ConditionNM, result.Data[0].Condition)
	assert.Equal(t, "https://www.ebay.com/itm/1", result.Data[0].ListingURL)

	u, err := url.Parse(result.SourceURL)
	require.NoError(t, err)
	assert.Equal(t, "Pikachu 58/102 Base", u.Query().Get("_nkw")[:len("Pikachu 58/102 Base")])

	opened, closed := b.counts()
	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, closed)
	require.Len(t, b.navigated, 1)
	assert.Equal(t, result.SourceURL, b.navigated[0])
	assert.Equal(t, WaitNetworkIdle, b.navOpts[0].WaitUntil)
	assert.Equal(t, DefaultNavigationTimeout, b.navOpts[0].Timeout)
	assert.ElementsMatch(t, []ResourceType{ResourceImage, ResourceStylesheet, ResourceFont}, b.pageOpts[0].BlockedResources)
}

func TestScrapeCardNoListings(t *testing.T) {
	b := &MockBrowser{items: []Item{adItem()}}
	result, err := newTestService(b).ScrapeCard(context.Background(), pikachu())
	require.NoError(t, err)
	assert.Empty(t, result.Data)
}

func TestScrapeCardValidationNeverOpensSession(t *testing.T) {
	b := &MockBrowser{}
	q := pikachu()
	q.UniqueID = ""

	_, err := newTestService(b).ScrapeCard(context.Background(), q)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.False(t, apperrors.IsScrapeFailed(err))

	opened, closed := b.counts()
	assert.Zero(t, opened)
	assert.Zero(t, closed)
}

func TestScrapeCardNavigationTimeoutReleasesSession(t *testing.T) {
	b := &MockBrowser{navigateErr: navigationTimeout()}

	_, err := newTestService(b, WithNavigationTimeout(5*time.Second)).ScrapeCard(context.Background(), pikachu())
	require.Error(t, err)
	assert.True(t, apperrors.IsScrapeFailed(err))
	assert.False(t, apperrors.IsValidation(err))
	assert.True(t, errors.Is(err, apperrors.ErrNavigationTimeout))
	assert.Contains(t, err.Error(), "Scraping failed")

	var se *apperrors.ScrapeError
	require.True(t, errors.As(err, &se))
	assert.True(t, se.IsRetryable())

	opened, closed := b.counts()
	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, closed)
	assert.Equal(t, 5*time.Second, b.navOpts[0].Timeout)
}

func TestScrapeCardOpenSessionFailure(t *testing.T) {
	b := &MockBrowser{openErr: errors.New("chrome not found")}

	_, err := newTestService(b).ScrapeCard(context.Background(), pikachu())
	require.Error(t, err)
	assert.True(t, apperrors.IsScrapeFailed(err))
	assert.Contains(t, err.Error(), "chrome not found")

	_, closed := b.counts()
	assert.Zero(t, closed)
}

func TestScrapeCardItemsFailureReleasesSession(t *testing.T) {
	b := &MockBrowser{itemsErr: errors.New("target closed")}

	_, err := newTestService(b).ScrapeCard(context.Background(), pikachu())
	require.Error(t, err)
	assert.True(t, apperrors.IsScrapeFailed(err))

	_, closed := b.counts()
	assert.Equal(t, 1, closed)
}

func TestScrapeCardPanicIsReportedAsScrapeFailed(t *testing.T) {
	b := &MockBrowser{panicOn: "navigate"}

	_, err := newTestService(b).ScrapeCard(context.Background(), pikachu())
	require.Error(t, err)
	assert.True(t, apperrors.IsScrapeFailed(err))
	assert.Contains(t, err.Error(), "page crashed")

	_, closed := b.counts()
	assert.Equal(t, 1, closed)
}

func TestScrapeCardOpenSessionPanicIsReportedAsScrapeFailed(t *testing.T) {
	b := &MockBrowser{panicOn: "open"}

	var err error
	require.NotPanics(t, func() {
		_, err = newTestService(b).ScrapeCard(context.Background(), pikachu())
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsScrapeFailed(err))
	assert.Contains(t, err.Error(), "devtools socket gone")

	opened, closed := b.counts()
	assert.Zero(t, opened)
	assert.Zero(t, closed)
}

func TestScrapeResultJSON(t *testing.T) {
	data, err := (ScrapeResult{SourceURL: "https://example.com", Timestamp: fixedNow}).MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[],"source_url":"https://example.com","timestamp":"2024-10-19T12:00:00Z"}`, string(data))
}
