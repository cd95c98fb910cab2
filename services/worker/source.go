package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cardledger/soldscraper/internal/scraper"
	"github.com/cardledger/soldscraper/services/store"
)

// CardSource supplies the cards for one batch run
type CardSource interface {
	Name() string
	Cards(ctx context.Context) ([]scraper.CardQuery, error)
}

// FileSource reads a JSON array of cards
type FileSource struct {
	Path string
}

func (s FileSource) Name() string {
	return "file:" + s.Path
}

func (s FileSource) Cards(ctx context.Context) ([]scraper.CardQuery, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read card file: %w", err)
	}
	var cards []scraper.CardQuery
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("decode card file %s: %w", s.Path, err)
	}
	return cards, nil
}

// PortfolioSource scrapes every card held in a user portfolio
type PortfolioSource struct {
	Store store.CardStore
}

func (s PortfolioSource) Name() string {
	return "portfolio"
}

func (s PortfolioSource) Cards(ctx context.Context) ([]scraper.CardQuery, error) {
	return s.Store.PortfolioCards(ctx)
}
