package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardledger/soldscraper/internal/scraper"
	"github.com/cardledger/soldscraper/logger"
	apperrors "github.com/cardledger/soldscraper/pkg/errors"
)

// fakeRow scans fixed values or returns err
type fakeRow struct {
	values []string
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		*(d.(*string)) = r.values[i]
	}
	return nil
}

type fakeQuerier struct {
	row     fakeRow
	lastArg any
}

func (f *fakeQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if len(args) > 0 {
		f.lastArg = args[0]
	}
	return f.row
}

func (f *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

func TestCardByID(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{values: []string{"base1-58", "Pikachu", "58", "102", "Base"}}}
	s := &PostgresStore{db: q, log: logger.ForStore()}

	card, err := s.CardByID(context.Background(), "base1-58")
	require.NoError(t, err)
	assert.Equal(t, "base1-58", q.lastArg)
	assert.Equal(t, scraper.CardQuery{
		Name:            "Pikachu",
		Number:          "58",
		SetPrintedTotal: "102",
		SetName:         "Base",
		UniqueID:        "base1-58",
	}, card)
}

func TestCardByIDNotFound(t *testing.T) {
	s := &PostgresStore{db: &fakeQuerier{row: fakeRow{err: pgx.ErrNoRows}}, log: logger.ForStore()}

	_, err := s.CardByID(context.Background(), "nope-1")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.TypeOf(err))
}

func TestCardByIDStoreError(t *testing.T) {
	s := &PostgresStore{db: &fakeQuerier{row: fakeRow{err: errors.New("conn reset")}}, log: logger.ForStore()}

	_, err := s.CardByID(context.Background(), "base1-58")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeStore, apperrors.TypeOf(err))
}

func TestPortfolioCardsQueryError(t *testing.T) {
	s := &PostgresStore{db: &fakeQuerier{}, log: logger.ForStore()}

	_, err := s.PortfolioCards(context.Background())
	assert.Equal(t, apperrors.ErrorTypeStore, apperrors.TypeOf(err))
}

// This test requires a catalogue database in TEST_DATABASE_URL
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping test")
	}

	ctx := context.Background()
	s, err := NewPostgresStore(ctx, dsn)
	if err != nil {
		t.Skipf("Postgres is not available, skipping test: %v", err)
	}
	defer s.Close()

	cards, err := s.PortfolioCards(ctx)
	require.NoError(t, err)
	for _, c := range cards {
		assert.NotEmpty(t, c.UniqueID)
	}
}
