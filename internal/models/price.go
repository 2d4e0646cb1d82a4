package models

import (
	"fmt"
	"time"
)

// PricePoint is one OHLCV bar for a ticker at a given interval timestamp.
// The ID is derived from (ticker, timestamp), so re-ingesting the same bar
// overwrites rather than duplicates.
type PricePoint struct {
	ID        string    `json:"id" badgerhold:"key"`
	Ticker    string    `json:"ticker" badgerhold:"index"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	StoredAt  time.Time `json:"stored_at"`
}

// PriceKey builds the deterministic storage key for a bar.
func PriceKey(ticker string, ts time.Time) string {
	return fmt.Sprintf("%s_%s", NormalizeSymbol(ticker), ts.UTC().Format("20060102_150405"))
}

// Validate checks the invariants a bar must satisfy before storage.
func (p *PricePoint) Validate() error {
	if p.Ticker == "" {
		return fmt.Errorf("price point missing ticker")
	}
	if p.Timestamp.IsZero() {
		return fmt.Errorf("price point missing timestamp")
	}
	if p.Open < 0 || p.High < 0 || p.Low < 0 || p.Close < 0 {
		return fmt.Errorf("price point has negative price")
	}
	if p.Volume < 0 {
		return fmt.Errorf("price point has negative volume")
	}
	if p.High < p.Low {
		return fmt.Errorf("price point high %f below low %f", p.High, p.Low)
	}
	return nil
}
