package models

import (
	"fmt"
	"math"
	"time"
)

// Sentiment score thresholds for counting an article as bullish or bearish.
const (
	BullishThreshold = 0.1
	BearishThreshold = -0.1
)

// AggregateRecord is the per-ticker-per-day summary of news sentiment.
// Attention counts every stored article for the day; the sentiment stats
// cover only the articles that carry a sentiment annotation.
type AggregateRecord struct {
	ID     string `json:"id" badgerhold:"key"`
	Ticker string `json:"ticker" badgerhold:"index"`
	Date   string `json:"date"` // YYYY-MM-DD

	Attention     int     `json:"attention"`
	BullishCount  int     `json:"bullish_count"`
	BearishCount  int     `json:"bearish_count"`
	BullBearRatio float64 `json:"bull_bear_ratio"`
	SentMean      float64 `json:"sent_mean"`
	SentStd       float64 `json:"sent_std"`
	ScoredCount   int     `json:"scored_count"`

	ComputedAt time.Time `json:"computed_at"`
}

// AggregateKey builds the deterministic storage key for a ticker-day summary.
func AggregateKey(ticker, date string) string {
	return fmt.Sprintf("%s_%s", NormalizeSymbol(ticker), date)
}

// ComputeAggregate derives the summary for one ticker-day from its articles.
// Deterministic: the same article set always produces the same record.
func ComputeAggregate(ticker, date string, articles []*NewsArticle) *AggregateRecord {
	record := &AggregateRecord{
		ID:        AggregateKey(ticker, date),
		Ticker:    NormalizeSymbol(ticker),
		Date:      date,
		Attention: len(articles),
	}

	var scores []float64
	for _, a := range articles {
		if a.Sentiment == nil {
			continue
		}
		scores = append(scores, a.Sentiment.Score)
		if a.Sentiment.Score > BullishThreshold {
			record.BullishCount++
		} else if a.Sentiment.Score < BearishThreshold {
			record.BearishCount++
		}
	}
	record.ScoredCount = len(scores)

	// Floor of 1 on the denominator keeps the ratio finite on all-bullish days.
	bearish := record.BearishCount
	if bearish < 1 {
		bearish = 1
	}
	record.BullBearRatio = float64(record.BullishCount) / float64(bearish)

	if len(scores) > 0 {
		var sum float64
		for _, s := range scores {
			sum += s
		}
		record.SentMean = sum / float64(len(scores))

		if len(scores) > 1 {
			var sq float64
			for _, s := range scores {
				d := s - record.SentMean
				sq += d * d
			}
			record.SentStd = math.Sqrt(sq / float64(len(scores)-1))
		}
	}

	return record
}
