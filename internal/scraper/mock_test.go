package scraper

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/cardledger/soldscraper/pkg/errors"
)

// fakeItem answers reads from a selector-keyed map
type fakeItem map[string]string

func (f fakeItem) Text(selector string) (string, bool) {
	v, ok := f[selector]
	return v, ok && v != ""
}

func (f fakeItem) Attr(selector, name string) (string, bool) {
	v, ok := f[selector+"@"+name]
	return v, ok && v != ""
}

func goodItem(n int) fakeItem {
	sel := EbayMarketplace().Selectors
	return fakeItem{
		sel.SoldDate:                  fmt.Sprintf("Sold Oct %d, 2024", n),
		sel.Price:                     fmt.Sprintf("$%d.50", n),
		sel.Title:                     fmt.Sprintf("Pikachu 58/102 Base Set #%d", n),
		sel.Link + "@" + sel.LinkAttr: fmt.Sprintf("https://www.ebay.com/itm/%d", n),
	}
}

func adItem() fakeItem {
	sel := EbayMarketplace().Selectors
	return fakeItem{sel.Title: "Shop on eBay"}
}

// MockBrowser records session lifecycle calls for assertions
type MockBrowser struct {
	mu          sync.Mutex
	opened      int
	closed      int
	openErr     error
	navigateErr error
	itemsErr    error
	items       []Item
	panicOn     string
	navigated   []string
	pageOpts    []PageOptions
	navOpts     []NavigateOptions
}

func (b *MockBrowser) OpenSession(ctx context.Context) (Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.panicOn == "open" {
		panic("devtools socket gone")
	}
	if b.openErr != nil {
		return nil, b.openErr
	}
	b.opened++
	return &mockSession{browser: b}, nil
}

func (b *MockBrowser) counts() (opened, closed int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opened, b.closed
}

type mockSession struct {
	browser *MockBrowser
}

func (s *mockSession) OpenPage(ctx context.Context, opts PageOptions) (Page, error) {
	s.browser.mu.Lock()
	defer s.browser.mu.Unlock()
	s.browser.pageOpts = append(s.browser.pageOpts, opts)
	return &mockPage{browser: s.browser}, nil
}

func (s *mockSession) Close() error {
	s.browser.mu.Lock()
	defer s.browser.mu.Unlock()
	s.browser.closed++
	return nil
}

type mockPage struct {
	browser *MockBrowser
}

func (p *mockPage) Navigate(ctx context.Context, url string, opts NavigateOptions) error {
	p.browser.mu.Lock()
	p.browser.navigated = append(p.browser.navigated, url)
	p.browser.navOpts = append(p.browser.navOpts, opts)
	err := p.browser.navigateErr
	p.browser.mu.Unlock()
	if p.browser.panicOn == "navigate" {
		panic("page crashed")
	}
	return err
}

func (p *mockPage) Items(ctx context.Context, selector string) ([]Item, error) {
	if p.browser.itemsErr != nil {
		return nil, p.browser.itemsErr
	}
	return p.browser.items, nil
}

func navigationTimeout() error {
	return apperrors.NewNavigation("mock", "page did not settle", apperrors.ErrNavigationTimeout)
}
