package badger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/interfaces"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/models"
)

// TickerStorage implements the TickerStorage interface for Badger. A single
// mutex serializes read-modify-write cycles on ticker documents; watermark
// advancement must never interleave with a concurrent touch.
type TickerStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
	mu     sync.Mutex
}

// NewTickerStorage creates a new TickerStorage instance
func NewTickerStorage(db *BadgerDB, logger arbor.ILogger) interfaces.TickerStorage {
	return &TickerStorage{
		db:     db,
		logger: logger,
	}
}

func (s *TickerStorage) Upsert(ctx context.Context, ticker *models.Ticker) error {
	if ticker.Symbol == "" {
		return fmt.Errorf("ticker symbol is required")
	}
	ticker.Symbol = models.NormalizeSymbol(ticker.Symbol)
	if err := s.db.Store().Upsert(ticker.Symbol, ticker); err != nil {
		return fmt.Errorf("failed to upsert ticker %s: %w", ticker.Symbol, err)
	}
	return nil
}

func (s *TickerStorage) Get(ctx context.Context, symbol string) (*models.Ticker, error) {
	var ticker models.Ticker
	if err := s.db.Store().Get(models.NormalizeSymbol(symbol), &ticker); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ticker %s: %w", symbol, err)
	}
	return &ticker, nil
}

func (s *TickerStorage) List(ctx context.Context) ([]*models.Ticker, error) {
	var tickers []models.Ticker
	if err := s.db.Store().Find(&tickers, nil); err != nil {
		return nil, fmt.Errorf("failed to list tickers: %w", err)
	}
	result := make([]*models.Ticker, len(tickers))
	for i := range tickers {
		result[i] = &tickers[i]
	}
	return result, nil
}

func (s *TickerStorage) Touch(ctx context.Context, symbol string, seen time.Time) (*models.Ticker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticker, err := s.Get(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if ticker == nil {
		ticker = &models.Ticker{
			Symbol:    models.NormalizeSymbol(symbol),
			FirstSeen: seen,
		}
	}
	if seen.After(ticker.LastSeen) {
		ticker.LastSeen = seen
	}
	if err := s.Upsert(ctx, ticker); err != nil {
		return nil, err
	}
	return ticker, nil
}

func (s *TickerStorage) AdvancePriceWatermark(ctx context.Context, symbol string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticker, err := s.Get(ctx, symbol)
	if err != nil {
		return err
	}
	if ticker == nil {
		return fmt.Errorf("ticker %s not found", symbol)
	}
	// Watermarks are monotonic; a partially failed batch must not regress
	// or overshoot what has been durably stored.
	if !ts.After(ticker.PriceWatermark) {
		return nil
	}
	ticker.PriceWatermark = ts
	return s.Upsert(ctx, ticker)
}

func (s *TickerStorage) AdvanceNewsWatermark(ctx context.Context, symbol string, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticker, err := s.Get(ctx, symbol)
	if err != nil {
		return err
	}
	if ticker == nil {
		return fmt.Errorf("ticker %s not found", symbol)
	}
	// Dates are YYYY-MM-DD, so string comparison orders correctly.
	if date <= ticker.NewsWatermark {
		return nil
	}
	ticker.NewsWatermark = date
	return s.Upsert(ctx, ticker)
}

func (s *TickerStorage) AdvanceAggregateWatermark(ctx context.Context, symbol string, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticker, err := s.Get(ctx, symbol)
	if err != nil {
		return err
	}
	if ticker == nil {
		return fmt.Errorf("ticker %s not found", symbol)
	}
	if date <= ticker.AggregateWatermark {
		return nil
	}
	ticker.AggregateWatermark = date
	return s.Upsert(ctx, ticker)
}
