package scraper

import (
	"context"
	"time"
)

// ResourceType is a class of sub-resource a page may fetch
type ResourceType string

const (
	ResourceImage      ResourceType = "image"
	ResourceStylesheet ResourceType = "stylesheet"
	ResourceFont       ResourceType = "font"
)

// WaitUntil selects when navigation counts as finished
type WaitUntil string

const (
	// WaitNetworkIdle waits until no more than two requests are in flight for 500ms
	WaitNetworkIdle WaitUntil = "network-idle"
)

// PageOptions configures a freshly opened page
type PageOptions struct {
	BlockedResources []ResourceType
}

// NavigateOptions bounds a navigation
type NavigateOptions struct {
	WaitUntil WaitUntil
	Timeout   time.Duration
}

// Browser hands out exclusively owned sessions
type Browser interface {
	OpenSession(ctx context.Context) (Session, error)
}

// Session is one browser instance. Close must be safe to call once on every exit path.
type Session interface {
	OpenPage(ctx context.Context, opts PageOptions) (Page, error)
	Close() error
}

// Page is a single tab driven through one navigation
type Page interface {
	// Navigate loads url. Exceeding opts.Timeout yields an error wrapping
	// errors.ErrNavigationTimeout.
	Navigate(ctx context.Context, url string, opts NavigateOptions) error
	// Items returns the rendered elements matching selector in document order
	Items(ctx context.Context, selector string) ([]Item, error)
}

// Item is a read-only handle on one rendered element. Reads report absence
// with false instead of failing.
type Item interface {
	Text(selector string) (string, bool)
	Attr(selector, name string) (string, bool)
}
