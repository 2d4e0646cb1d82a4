// Package enrichment annotates stored articles with model-derived sentiment
// scores and vector embeddings.
package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/common"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/interfaces"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/models"
)

const sentimentSystemPrompt = `You are a financial sentiment classifier. Given a news article about a publicly traded company, respond with a single JSON object and nothing else:
{"positive": <0..1>, "neutral": <0..1>, "negative": <0..1>}
The three values must sum to 1. Judge the sentiment toward the company's stock, not the general tone of the writing.`

// maxScoreInputChars bounds what we send per article; the head of a news
// article carries the sentiment signal.
const maxScoreInputChars = 6000

// ClaudeScorer scores article text with the Anthropic API.
type ClaudeScorer struct {
	config  *common.ClaudeConfig
	client  anthropic.Client
	logger  arbor.ILogger
	timeout time.Duration
}

// NewClaudeScorer creates a sentiment scorer backed by the Anthropic API.
func NewClaudeScorer(config *common.ClaudeConfig, logger arbor.ILogger) (interfaces.SentimentScorer, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required for the sentiment scorer (set ANTHROPIC_API_KEY or sentiment.api_key)")
	}
	if config.Model == "" {
		config.Model = "claude-haiku-4-5"
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := anthropic.NewClient(
		option.WithAPIKey(config.APIKey),
	)

	logger.Debug().
		Str("model", config.Model).
		Dur("timeout", timeout).
		Msg("Claude sentiment scorer initialized")

	return &ClaudeScorer{
		config:  config,
		client:  client,
		logger:  logger,
		timeout: timeout,
	}, nil
}

// Score classifies the text and returns the breakdown plus the derived
// score (positive minus negative, in [-1, 1]).
func (s *ClaudeScorer) Score(ctx context.Context, text string) (*models.Sentiment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("cannot score empty text")
	}
	if len(text) > maxScoreInputChars {
		text = text[:maxScoreInputChars]
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	maxTokens := s.config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 256
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
		System: []anthropic.TextBlockParam{
			{Text: sentimentSystemPrompt},
		},
	}

	resp, err := s.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return nil, fmt.Errorf("sentiment request failed: %w", err)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}
	if response.Len() == 0 {
		return nil, fmt.Errorf("no response generated for sentiment request")
	}

	sentiment, err := parseSentimentResponse(response.String())
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Float64("score", sentiment.Score).
		Int("input_chars", len(text)).
		Msg("Article scored")

	return sentiment, nil
}

// parseSentimentResponse extracts the JSON breakdown from the model output.
// Models occasionally wrap the object in prose or a code fence.
func parseSentimentResponse(text string) (*models.Sentiment, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in sentiment response: %q", text)
	}

	var breakdown struct {
		Positive float64 `json:"positive"`
		Neutral  float64 `json:"neutral"`
		Negative float64 `json:"negative"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &breakdown); err != nil {
		return nil, fmt.Errorf("failed to parse sentiment response: %w", err)
	}

	if breakdown.Positive < 0 || breakdown.Positive > 1 ||
		breakdown.Neutral < 0 || breakdown.Neutral > 1 ||
		breakdown.Negative < 0 || breakdown.Negative > 1 {
		return nil, fmt.Errorf("sentiment values out of range: %+v", breakdown)
	}

	return &models.Sentiment{
		Score:    breakdown.Positive - breakdown.Negative,
		Positive: breakdown.Positive,
		Neutral:  breakdown.Neutral,
		Negative: breakdown.Negative,
	}, nil
}
