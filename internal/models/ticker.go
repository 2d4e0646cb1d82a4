package models

import (
	"strings"
	"time"
)

// Ticker is the root entity for a tracked symbol. The three watermarks record
// the newest data each job has durably stored; jobs resume from them and the
// storage layer never lets them regress.
type Ticker struct {
	Symbol   string `json:"symbol" badgerhold:"key"`
	Exchange string `json:"exchange,omitempty"`
	Name     string `json:"name,omitempty"`

	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`

	// PriceWatermark is the timestamp of the newest stored price bar.
	PriceWatermark time.Time `json:"price_watermark"`
	// NewsWatermark and AggregateWatermark are YYYY-MM-DD dates; the string
	// format compares lexicographically in date order.
	NewsWatermark      string `json:"news_watermark,omitempty"`
	AggregateWatermark string `json:"aggregate_watermark,omitempty"`
}

// NormalizeSymbol canonicalizes a ticker symbol for use as a storage key.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
