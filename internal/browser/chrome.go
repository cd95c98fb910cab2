package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/cardledger/soldscraper/helpers"
	"github.com/cardledger/soldscraper/internal/scraper"
	"github.com/cardledger/soldscraper/logger"
	apperrors "github.com/cardledger/soldscraper/pkg/errors"
)

const (
	idleMaxInflight = 2
	idleQuietPeriod = 500 * time.Millisecond
	idlePollEvery   = 100 * time.Millisecond
)

// ChromeConfig configures the headless Chrome driver
type ChromeConfig struct {
	// WSURL connects to an already running browser when set
	WSURL    string
	Headless bool
	ProxyURL string
}

// ChromeBrowser launches (or attaches to) Chrome through the DevTools protocol
type ChromeBrowser struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	log         *logger.Logger
}

// NewChromeBrowser prepares an allocator. Chrome itself starts lazily on the
// first session.
func NewChromeBrowser(cfg ChromeConfig) *ChromeBrowser {
	log := logger.ForBrowser("chrome")

	var allocCtx context.Context
	var cancel context.CancelFunc
	if cfg.WSURL != "" {
		log.Info().Str("ws_url", cfg.WSURL).Msg("Attaching to remote Chrome")
		allocCtx, cancel = chromedp.NewRemoteAllocator(context.Background(), cfg.WSURL)
	} else {
		allocCtx, cancel = chromedp.NewExecAllocator(context.Background(), stealthOpts(cfg)...)
	}

	return &ChromeBrowser{
		allocCtx:    allocCtx,
		allocCancel: cancel,
		log:         log,
	}
}

// Close shuts the allocator down, terminating any launched browser
func (b *ChromeBrowser) Close() {
	b.allocCancel()
}

func stealthOpts(cfg ChromeConfig) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(helpers.RandomUserAgent()),
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}
	if cfg.ProxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.ProxyURL))
	}
	return opts
}

// OpenSession starts a dedicated browser context
func (b *ChromeBrowser) OpenSession(ctx context.Context) (scraper.Session, error) {
	sessCtx, cancel := chromedp.NewContext(b.allocCtx)
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(sessCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return &chromeSession{ctx: sessCtx, cancel: cancel, log: b.log}, nil
}

type chromeSession struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	pages  []context.CancelFunc
	closed bool
	log    *logger.Logger
}

func (s *chromeSession) OpenPage(ctx context.Context, opts scraper.PageOptions) (scraper.Page, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.New("session closed")
	}
	tabCtx, cancel := chromedp.NewContext(s.ctx)
	s.pages = append(s.pages, cancel)
	s.mu.Unlock()

	p := &chromePage{ctx: tabCtx, tracker: newNetworkTracker(), log: s.log}
	chromedp.ListenTarget(tabCtx, p.handleEvent)

	actions := []chromedp.Action{network.Enable()}
	if patterns := blockPatterns(opts.BlockedResources); len(patterns) > 0 {
		actions = append(actions, fetch.Enable().WithPatterns(patterns))
	}

	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	return p, nil
}

func (s *chromeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, cancel := range s.pages {
		cancel()
	}
	s.cancel()
	s.log.Debug().Int("pages", len(s.pages)).Msg("Browser session closed")
	return nil
}

// blockPatterns intercepts only the blocked resource classes, so every paused
// request is one to refuse.
func blockPatterns(blocked []scraper.ResourceType) []*fetch.RequestPattern {
	var patterns []*fetch.RequestPattern
	for _, rt := range blocked {
		nt, ok := networkResourceType(rt)
		if !ok {
			continue
		}
		patterns = append(patterns, &fetch.RequestPattern{
			URLPattern:   "*",
			ResourceType: nt,
			RequestStage: fetch.RequestStageRequest,
		})
	}
	return patterns
}

func networkResourceType(rt scraper.ResourceType) (network.ResourceType, bool) {
	switch rt {
	case scraper.ResourceImage:
		return network.ResourceTypeImage, true
	case scraper.ResourceStylesheet:
		return network.ResourceTypeStylesheet, true
	case scraper.ResourceFont:
		return network.ResourceTypeFont, true
	default:
		return "", false
	}
}

type chromePage struct {
	ctx     context.Context
	tracker *networkTracker
	log     *logger.Logger

	mu          sync.Mutex
	rateLimited bool
}

func (p *chromePage) handleEvent(ev interface{}) {
	switch e := ev.(type) {
	case *fetch.EventRequestPaused:
		go func() {
			c := chromedp.FromContext(p.ctx)
			if c == nil || c.Target == nil {
				return
			}
			err := fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient).
				Do(cdp.WithExecutor(p.ctx, c.Target))
			if err != nil && p.ctx.Err() == nil {
				p.log.Debug().Err(err).Str("url", e.Request.URL).Msg("Failed to block request")
			}
		}()
	case *network.EventRequestWillBeSent:
		p.tracker.started(e.RequestID)
	case *network.EventLoadingFinished:
		p.tracker.finished(e.RequestID)
	case *network.EventLoadingFailed:
		p.tracker.finished(e.RequestID)
	case *network.EventResponseReceived:
		if e.Type == network.ResourceTypeDocument && e.Response != nil && e.Response.Status == 429 {
			p.mu.Lock()
			p.rateLimited = true
			p.mu.Unlock()
		}
	}
}

func (p *chromePage) Navigate(ctx context.Context, url string, opts scraper.NavigateOptions) error {
	navCtx, cancel := helpers.WithTimeout(p.ctx, opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	actions := []chromedp.Action{chromedp.Navigate(url)}
	if opts.WaitUntil == scraper.WaitNetworkIdle {
		actions = append(actions, chromedp.ActionFunc(p.tracker.waitIdle))
	}

	err := chromedp.Run(navCtx, actions...)

	p.mu.Lock()
	limited := p.rateLimited
	p.mu.Unlock()
	if limited {
		return apperrors.New(apperrors.ErrorTypeRateLimit, "chrome", "marketplace refused the request", apperrors.ErrRateLimited)
	}

	if err != nil {
		if errors.Is(navCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return apperrors.NewNavigation("chrome", fmt.Sprintf("page did not settle within %s", opts.Timeout),
				fmt.Errorf("%w: %v", apperrors.ErrNavigationTimeout, err))
		}
		return apperrors.NewNavigation("chrome", "navigation failed", err)
	}
	return nil
}

func (p *chromePage) Items(ctx context.Context, selector string) ([]scraper.Item, error) {
	var html string
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("read rendered page: %w", err)
	}
	return ItemsFromHTML(html, selector)
}

// networkTracker counts in-flight requests for the network-idle wait
type networkTracker struct {
	mu         sync.Mutex
	inflight   map[network.RequestID]struct{}
	lastChange time.Time
	now        func() time.Time
}

func newNetworkTracker() *networkTracker {
	return &networkTracker{
		inflight:   make(map[network.RequestID]struct{}),
		lastChange: time.Now(),
		now:        time.Now,
	}
}

func (t *networkTracker) started(id network.RequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight[id] = struct{}{}
	t.lastChange = t.now()
}

func (t *networkTracker) finished(id network.RequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.inflight[id]; !ok {
		return
	}
	delete(t.inflight, id)
	t.lastChange = t.now()
}

func (t *networkTracker) idle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) <= idleMaxInflight && t.now().Sub(t.lastChange) >= idleQuietPeriod
}

func (t *networkTracker) waitIdle(ctx context.Context) error {
	ticker := time.NewTicker(idlePollEvery)
	defer ticker.Stop()
	for {
		if t.idle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
