package enrichment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/common"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/interfaces"
)

// maxEmbedInputChars bounds the text sent to the embedding model.
const maxEmbedInputChars = 8000

// GeminiEmbedder produces article embeddings with the Gemini embedding API.
type GeminiEmbedder struct {
	config  *common.GeminiConfig
	client  *genai.Client
	logger  arbor.ILogger
	timeout time.Duration
}

// NewGeminiEmbedder creates an embedder backed by the Gemini API.
func NewGeminiEmbedder(ctx context.Context, config *common.GeminiConfig, logger arbor.ILogger) (interfaces.Embedder, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required for the embedder (set GEMINI_API_KEY or embedding.api_key)")
	}
	if config.Model == "" {
		config.Model = "gemini-embedding-001"
	}
	if config.Dimension <= 0 {
		config.Dimension = 768
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	logger.Debug().
		Str("model", config.Model).
		Int("dimension", config.Dimension).
		Msg("Gemini embedder initialized")

	return &GeminiEmbedder{
		config:  config,
		client:  client,
		logger:  logger,
		timeout: timeout,
	}, nil
}

func (e *GeminiEmbedder) ModelName() string {
	return e.config.Model
}

// Embed generates the embedding vector for a text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}
	if len(text) > maxEmbedInputChars {
		text = text[:maxEmbedInputChars]
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	outputDim := int32(e.config.Dimension)
	embeddingConfig := &genai.EmbedContentConfig{
		OutputDimensionality: &outputDim,
	}

	result, err := e.client.Models.EmbedContent(timeoutCtx, e.config.Model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, embeddingConfig)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	var embedding []float32
	if result != nil && len(result.Embeddings) > 0 {
		embedding = result.Embeddings[0].Values
	}
	if embedding == nil {
		return nil, fmt.Errorf("no embedding returned from API")
	}
	if len(embedding) != e.config.Dimension {
		return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", e.config.Dimension, len(embedding))
	}

	return embedding, nil
}
