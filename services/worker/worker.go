package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/cardledger/soldscraper/helpers"
	"github.com/cardledger/soldscraper/internal/scraper"
	"github.com/cardledger/soldscraper/logger"
	apperrors "github.com/cardledger/soldscraper/pkg/errors"
	"github.com/cardledger/soldscraper/services/publisher"
)

// CardScraper scrapes one card
type CardScraper interface {
	ScrapeCard(ctx context.Context, q scraper.CardQuery) (*scraper.ScrapeResult, error)
}

// Options tunes a batch run
type Options struct {
	// Concurrency caps simultaneous scrapes, each owning its own browser session
	Concurrency int
	// RatePerMinute paces scrape starts; zero means unpaced
	RatePerMinute int
	// Interval between runs in Start; zero runs once
	Interval time.Duration
}

// Summary reports one batch run
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Listings  int
	Elapsed   time.Duration
}

// Worker scrapes every card of a source
type Worker struct {
	source      CardSource
	scraper     CardScraper
	publisher   publisher.Publisher
	logger      helpers.LoggerInterface
	concurrency int
	limiter     *rate.Limiter
	interval    time.Duration
	log         *logger.Logger
}

// NewWorker creates a new worker. pub may be nil; when set its streams are
// trimmed after every run.
func NewWorker(
	source CardSource,
	sc CardScraper,
	pub publisher.Publisher,
	errLog helpers.LoggerInterface,
	opts Options,
) *Worker {
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	limit := rate.Inf
	if opts.RatePerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(opts.RatePerMinute))
	}
	return &Worker{
		source:      source,
		scraper:     sc,
		publisher:   pub,
		logger:      errLog,
		concurrency: concurrency,
		limiter:     rate.NewLimiter(limit, 1),
		interval:    opts.Interval,
		log:         logger.ForWorker(),
	}
}

// Start runs batches until ctx is cancelled. With no interval it runs once
// and returns any failure; otherwise failed runs are logged and retried.
func (w *Worker) Start(ctx context.Context) error {
	for {
		summary, err := w.RunOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		switch {
		case err == nil || errors.Is(err, apperrors.ErrRateLimited):
			w.logger.LogInfo("batch %s finished: %d/%d cards, %d listings in %s",
				w.source.Name(), summary.Succeeded, summary.Total, summary.Listings, summary.Elapsed)
		case w.interval <= 0:
			return err
		default:
			// the next tick retries the source
			w.logger.LogError(w.source.Name(), err)
		}

		if w.interval <= 0 {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.interval):
		}
	}
}

// RunOnce scrapes every card of the source once. A marketplace rate limit
// stops the run early and is returned with the partial summary.
func (w *Worker) RunOnce(ctx context.Context) (Summary, error) {
	start := time.Now()

	cards, err := w.source.Cards(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load cards from %s: %w", w.source.Name(), err)
	}

	var succeeded, failed, listings atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for _, card := range cards {
		card := card // per-iteration copy (go.mod targets go1.21 loop semantics)
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := w.limiter.Wait(gctx); err != nil {
				return nil
			}

			result, err := w.scrape(gctx, card)
			if err != nil {
				failed.Add(1)
				w.logger.LogError(card.UniqueID, err)
				if errors.Is(err, apperrors.ErrRateLimited) {
					return err
				}
				return nil
			}

			succeeded.Add(1)
			listings.Add(int64(len(result.Data)))
			w.log.Debug().
				Str("unique_id", card.UniqueID).
				Int("listings", len(result.Data)).
				Msg("Card scraped")
			return nil
		})
	}
	runErr := g.Wait()

	if w.publisher != nil {
		if err := w.publisher.TrimStreams(ctx); err != nil {
			w.logger.LogError("StreamTrimming", err)
		}
	}

	summary := Summary{
		Total:     len(cards),
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
		Listings:  int(listings.Load()),
		Elapsed:   time.Since(start),
	}
	if runErr == nil && ctx.Err() != nil {
		runErr = ctx.Err()
	}
	return summary, runErr
}

// scrape runs one card, retrying once when the failure was a transient
// navigation problem
func (w *Worker) scrape(ctx context.Context, card scraper.CardQuery) (*scraper.ScrapeResult, error) {
	result, err := w.scraper.ScrapeCard(ctx, card)
	var se *apperrors.ScrapeError
	if err == nil || !errors.As(err, &se) || !se.IsRetryable() {
		return result, err
	}

	w.log.Debug().Err(err).Str("unique_id", card.UniqueID).Msg("Retrying card")
	if werr := w.limiter.Wait(ctx); werr != nil {
		return nil, err
	}
	return w.scraper.ScrapeCard(ctx, card)
}
