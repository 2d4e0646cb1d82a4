package enrichment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSentimentResponse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
		wantErr  bool
	}{
		{
			name:     "bare json",
			input:    `{"positive": 0.7, "neutral": 0.2, "negative": 0.1}`,
			expected: 0.6,
		},
		{
			name:     "code fence",
			input:    "```json\n{\"positive\": 0.1, \"neutral\": 0.3, \"negative\": 0.6}\n```",
			expected: -0.5,
		},
		{
			name:     "wrapped in prose",
			input:    `Here is the classification: {"positive": 0.3, "neutral": 0.4, "negative": 0.3} as requested.`,
			expected: 0.0,
		},
		{
			name:    "no json",
			input:   "The sentiment is broadly positive.",
			wantErr: true,
		},
		{
			name:    "values out of range",
			input:   `{"positive": 1.5, "neutral": 0.0, "negative": -0.5}`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			input:   `{"positive": 0.7, "neutral":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sentiment, err := parseSentimentResponse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, sentiment.Score, 1e-9)
			assert.GreaterOrEqual(t, sentiment.Score, -1.0)
			assert.LessOrEqual(t, sentiment.Score, 1.0)
		})
	}
}
