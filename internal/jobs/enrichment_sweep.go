package jobs

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/models"
)

// EnrichmentSweepJobName identifies the catch-up enrichment job.
const EnrichmentSweepJobName = "enrichment_sweep"

// EnrichmentSweep re-attempts sentiment and embedding enrichment for articles
// that were stored without annotations, usually because a provider was down
// or rate limited during ingestion.
type EnrichmentSweep struct {
	processor *Processor
	limit     int
	logger    arbor.ILogger
}

// NewEnrichmentSweep creates the sweep job. limit bounds how many articles a
// single run will touch.
func NewEnrichmentSweep(processor *Processor, limit int, logger arbor.ILogger) *EnrichmentSweep {
	if limit <= 0 {
		limit = 100
	}
	return &EnrichmentSweep{
		processor: processor,
		limit:     limit,
		logger:    logger,
	}
}

func (j *EnrichmentSweep) Name() string {
	return EnrichmentSweepJobName
}

func (j *EnrichmentSweep) Run(ctx context.Context) (*models.JobRun, error) {
	run := models.NewJobRun(EnrichmentSweepJobName)

	enriched, err := j.processor.EnrichPending(ctx, j.limit)
	if err != nil {
		run.Fail(err)
		return run, err
	}

	run.Record("_sweep", models.TickerOutcome{
		Status: "ok",
		Stored: enriched,
	})
	run.Finish()

	j.logger.Info().
		Int("enriched", enriched).
		Msg("Enrichment sweep complete")
	return run, nil
}
