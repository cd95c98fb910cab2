package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/cardledger/soldscraper/config"
	"github.com/cardledger/soldscraper/helpers"
	"github.com/cardledger/soldscraper/internal/api"
	"github.com/cardledger/soldscraper/internal/scraper"
	"github.com/cardledger/soldscraper/logger"
	apperrors "github.com/cardledger/soldscraper/pkg/errors"
	"github.com/cardledger/soldscraper/services/worker"
)

var rootCmd = &cobra.Command{
	Use:           "soldscraper",
	Short:         "soldscraper collects recent sold prices for trading cards.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(newServeCmd(), newScrapeCmd(), newBatchCmd(), newUnblockCmd())
	rootCmd.SetErr(os.Stderr)
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w\n\n%s", err, cmd.UsageString())
	})
}

// loadConfig loads and validates configuration from the environment
func loadConfig() (*config.Config, error) {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.NewConfiguration("invalid configuration", err)
	}
	return &cfg, nil
}

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scraping HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTPAddr = addr
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	log := logger.ForServer()

	services, err := initializeServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer services.Cleanup()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.SetupRouter(services.SoldPrice),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverDone := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.HTTPAddr).
			Str("environment", cfg.Environment).
			Msg("Starting scraping API")
		serverDone <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverDone:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.NavigationTimeout+5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newScrapeCmd() *cobra.Command {
	var (
		q  scraper.CardQuery
		id string
	)
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape sold listings for one card and print them as JSON",
		Example: `  soldscraper scrape --name Pikachu --number 58 --set-printed-total 102 --set-name Base --unique-id base1-58
  soldscraper scrape --id base1-58`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			services, err := initializeServices(ctx, cfg)
			if err != nil {
				return err
			}
			defer services.Cleanup()

			var result *scraper.ScrapeResult
			if id != "" {
				result, err = services.SoldPrice.ScrapeByID(ctx, id)
			} else {
				result, err = services.SoldPrice.ScrapeCard(ctx, q)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	f := cmd.Flags()
	f.StringVar(&q.Name, "name", "", "card name")
	f.StringVar(&q.Number, "number", "", "collector number within the set")
	f.StringVar(&q.SetPrintedTotal, "set-printed-total", "", "printed set size")
	f.StringVar(&q.SetName, "set-name", "", "set name")
	f.StringVar(&q.UniqueID, "unique-id", "", "catalogue id, e.g. base1-58")
	f.StringVar(&id, "id", "", "look the card up by catalogue id (needs DATABASE_URL)")
	return cmd
}

func newBatchCmd() *cobra.Command {
	var (
		file      string
		portfolio bool
		once      bool
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Scrape many cards from a JSON file or from user portfolios",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (file == "") == !portfolio {
				return apperrors.NewValidation("batch", "exactly one of --file or --portfolio is required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			services, err := initializeServices(ctx, cfg)
			if err != nil {
				return err
			}
			defer services.Cleanup()

			var source worker.CardSource = worker.FileSource{Path: file}
			if portfolio {
				if services.Store == nil {
					return apperrors.NewConfiguration("--portfolio needs DATABASE_URL", nil)
				}
				source = worker.PortfolioSource{Store: services.Store}
			}

			interval := cfg.BatchInterval
			if once {
				interval = 0
			}

			w := worker.NewWorker(
				source,
				services.SoldPrice,
				services.Publisher,
				helpers.NewLogger(cfg.ErrorLogFile),
				worker.Options{
					Concurrency:   cfg.BatchConcurrency,
					RatePerMinute: cfg.BatchRatePerMinute,
					Interval:      interval,
				},
			)

			logger.ForWorker().Info().
				Str("source", source.Name()).
				Int("concurrency", cfg.BatchConcurrency).
				Dur("interval", interval).
				Msg("Starting batch worker")
			return w.Start(ctx)
		},
	}
	f := cmd.Flags()
	f.StringVar(&file, "file", "", "JSON file with an array of cards")
	f.BoolVar(&portfolio, "portfolio", false, "scrape every card held in a user portfolio")
	f.BoolVar(&once, "once", false, "run a single pass even when BATCH_INTERVAL_SECONDS is set")
	return cmd
}

func newUnblockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unblock",
		Short: "Clear the marketplace rate limit marker so scrapes resume",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			services, err := initializeServices(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer services.Cleanup()

			if services.Cache == nil {
				return apperrors.NewConfiguration("unblock needs MEMCACHE_ADDR", nil)
			}
			if err := services.SoldPrice.ClearRateLimit(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "rate limit marker cleared")
			return nil
		},
	}
}
