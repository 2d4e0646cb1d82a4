package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(score float64) *NewsArticle {
	return &NewsArticle{Sentiment: &Sentiment{Score: score}}
}

func TestComputeAggregateDeterministic(t *testing.T) {
	// 10 articles: 4 bullish, 3 bearish, 2 neutral-scored, 1 unscored.
	articles := []*NewsArticle{
		scored(0.8), scored(0.5), scored(0.3), scored(0.15),
		scored(-0.6), scored(-0.4), scored(-0.2),
		scored(0.05), scored(-0.05),
		{Title: "no sentiment yet"},
	}

	record := ComputeAggregate("aapl", "2026-08-28", articles)

	assert.Equal(t, "AAPL_2026-08-28", record.ID)
	assert.Equal(t, "AAPL", record.Ticker)
	assert.Equal(t, 10, record.Attention, "attention counts every article")
	assert.Equal(t, 9, record.ScoredCount, "stats cover only annotated articles")
	assert.Equal(t, 4, record.BullishCount)
	assert.Equal(t, 3, record.BearishCount)
	assert.InDelta(t, 4.0/3.0, record.BullBearRatio, 1e-9)

	scores := []float64{0.8, 0.5, 0.3, 0.15, -0.6, -0.4, -0.2, 0.05, -0.05}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(len(scores))
	var sq float64
	for _, s := range scores {
		sq += (s - mean) * (s - mean)
	}
	std := math.Sqrt(sq / float64(len(scores)-1))

	assert.InDelta(t, mean, record.SentMean, 1e-9)
	assert.InDelta(t, std, record.SentStd, 1e-9)

	// Same inputs again, same numbers.
	again := ComputeAggregate("AAPL", "2026-08-28", articles)
	assert.Equal(t, record.Attention, again.Attention)
	assert.Equal(t, record.BullishCount, again.BullishCount)
	assert.Equal(t, record.BearishCount, again.BearishCount)
	assert.Equal(t, record.SentMean, again.SentMean)
	assert.Equal(t, record.SentStd, again.SentStd)
}

func TestComputeAggregateBearishFloor(t *testing.T) {
	articles := []*NewsArticle{scored(0.5), scored(0.3)}
	record := ComputeAggregate("TSLA", "2026-08-28", articles)

	assert.Equal(t, 2, record.BullishCount)
	assert.Equal(t, 0, record.BearishCount)
	assert.Equal(t, 2.0, record.BullBearRatio, "denominator floors at 1")
}

func TestComputeAggregateThresholdBoundaries(t *testing.T) {
	// Exactly at the thresholds counts as neither bullish nor bearish.
	articles := []*NewsArticle{scored(BullishThreshold), scored(BearishThreshold)}
	record := ComputeAggregate("MSFT", "2026-08-28", articles)

	assert.Equal(t, 0, record.BullishCount)
	assert.Equal(t, 0, record.BearishCount)
	assert.Equal(t, 2, record.ScoredCount)
}

func TestComputeAggregateEmptyDay(t *testing.T) {
	record := ComputeAggregate("NVDA", "2026-08-28", nil)
	require.NotNil(t, record)

	assert.Equal(t, 0, record.Attention)
	assert.Equal(t, 0, record.ScoredCount)
	assert.Equal(t, 0.0, record.BullBearRatio)
	assert.Equal(t, 0.0, record.SentMean)
	assert.Equal(t, 0.0, record.SentStd)
}

func TestComputeAggregateSingleScoreHasZeroStd(t *testing.T) {
	record := ComputeAggregate("AMD", "2026-08-28", []*NewsArticle{scored(0.42)})
	assert.InDelta(t, 0.42, record.SentMean, 1e-9)
	assert.Equal(t, 0.0, record.SentStd, "sample std undefined for n=1, reported as 0")
}
