package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardledger/soldscraper/internal/scraper"
	"github.com/cardledger/soldscraper/logger"
	apperrors "github.com/cardledger/soldscraper/pkg/errors"
)

const (
	cardByIDSQL = `
	SELECT m.unique_id, m.name, m.number, s.set_printedtotal, s.set_name
	FROM metadata.pkmn_card_metadata m
	JOIN metadata.sets s ON m.set_id = s.set_id
	WHERE m.unique_id = $1
	`

	portfolioCardsSQL = `
	SELECT DISTINCT m.unique_id, m.name, m.number, s.set_printedtotal, s.set_name
	FROM user_portfolios.userportfolio up
	JOIN metadata.pkmn_card_metadata m ON up.unique_id = m.unique_id
	JOIN metadata.sets s ON m.set_id = s.set_id
	ORDER BY m.unique_id
	`
)

// CardStore resolves card metadata for scraping
type CardStore interface {
	CardByID(ctx context.Context, uniqueID string) (scraper.CardQuery, error)
	PortfolioCards(ctx context.Context) ([]scraper.CardQuery, error)
}

// querier is the subset of pgxpool.Pool the store reads through
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore reads card metadata from the catalogue database
type PostgresStore struct {
	pool *pgxpool.Pool
	db   querier
	log  *logger.Logger
}

// NewPostgresStore connects to dsn and verifies the connection
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, apperrors.NewStore("postgres", "failed to create postgres pool", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.NewStore("postgres", "failed to connect postgres", err)
	}

	return &PostgresStore{pool: pool, db: pool, log: logger.ForStore()}, nil
}

// Close releases the pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// CardByID looks up the search fields of one card
func (s *PostgresStore) CardByID(ctx context.Context, uniqueID string) (scraper.CardQuery, error) {
	var q scraper.CardQuery
	err := s.db.QueryRow(ctx, cardByIDSQL, uniqueID).Scan(
		&q.UniqueID, &q.Name, &q.Number, &q.SetPrintedTotal, &q.SetName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return scraper.CardQuery{}, apperrors.NewNotFound("postgres", fmt.Sprintf("card %s not found", uniqueID))
	}
	if err != nil {
		return scraper.CardQuery{}, apperrors.NewStore("postgres", "card lookup failed", err)
	}
	return q, nil
}

// PortfolioCards returns every distinct card held in any user portfolio
func (s *PostgresStore) PortfolioCards(ctx context.Context) ([]scraper.CardQuery, error) {
	rows, err := s.db.Query(ctx, portfolioCardsSQL)
	if err != nil {
		return nil, apperrors.NewStore("postgres", "portfolio query failed", err)
	}

	cards, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (scraper.CardQuery, error) {
		var q scraper.CardQuery
		err := row.Scan(&q.UniqueID, &q.Name, &q.Number, &q.SetPrintedTotal, &q.SetName)
		return q, err
	})
	if err != nil {
		return nil, apperrors.NewStore("postgres", "failed to read portfolio cards", err)
	}

	s.log.Debug().Int("cards", len(cards)).Msg("Loaded portfolio cards")
	return cards, nil
}
