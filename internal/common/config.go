package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Logging     LoggingConfig `toml:"logging"`
	Tickers     TickersConfig `toml:"tickers"`
	Jobs        JobsConfig    `toml:"jobs"`
	Fetch       FetchConfig   `toml:"fetch"`
	Sentiment   ClaudeConfig  `toml:"sentiment"`
	Embedding   GeminiConfig  `toml:"embedding"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port" validate:"gte=0,lte=65535"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
	// GCInterval controls how often the value-log garbage collector runs.
	GCInterval time.Duration `toml:"gc_interval"`
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=debug info warn error"`
	Output []string `toml:"output"` // "stdout", "file"
}

// TickersConfig points at the YAML watchlist of tracked symbols.
type TickersConfig struct {
	WatchlistPath string `toml:"watchlist_path"`
	// Symbols overrides the watchlist when non-empty (useful for testing).
	Symbols []string `toml:"symbols"`
}

// JobsConfig holds cron schedules for the scheduled jobs. Standard 5-field
// cron expressions.
type JobsConfig struct {
	PricesSchedule     string `toml:"prices_schedule"`
	NewsSchedule       string `toml:"news_schedule"`
	EnrichmentSchedule string `toml:"enrichment_schedule"`
	AggregatesSchedule string `toml:"aggregates_schedule"`
	EnrichmentLimit    int    `toml:"enrichment_limit" validate:"gte=0"`
	// RunOnStart triggers an immediate staggered run of every job after the
	// scheduler starts instead of waiting for the first tick.
	RunOnStart bool `toml:"run_on_start"`
}

// FetchConfig tunes the outbound fetch layers.
type FetchConfig struct {
	TickerConcurrency int           `toml:"ticker_concurrency" validate:"gte=1"` // per-job ticker fan-out pool
	BodyConcurrency   int           `toml:"body_concurrency" validate:"gte=1"`   // article body worker pool
	RequestTimeout    time.Duration `toml:"request_timeout"`
	BodyTimeout       time.Duration `toml:"body_timeout"`
	MaxRetries        int           `toml:"max_retries" validate:"gte=1"`
	InitialBackoff    time.Duration `toml:"initial_backoff"`
	MaxBackoff        time.Duration `toml:"max_backoff"`
	RateLimit         int           `toml:"rate_limit" validate:"gte=1"` // requests per second per source
	PriceLookbackDays int           `toml:"price_lookback_days" validate:"gte=1"`
	NewsLookbackDays  int           `toml:"news_lookback_days" validate:"gte=1"`
	YahooMaxPages     int           `toml:"yahoo_max_pages" validate:"gte=1"`
	// RenderJavaScript enables chromedp rendering for the Yahoo listing page
	// (an infinite-scroll SPA); plain HTTP is used when disabled.
	RenderJavaScript bool          `toml:"render_javascript"`
	RenderWaitTime   time.Duration `toml:"render_wait_time"`
	UserAgentRotation bool         `toml:"user_agent_rotation"`
}

// ClaudeConfig contains Anthropic Claude API configuration for the sentiment scorer
type ClaudeConfig struct {
	APIKey    string        `toml:"api_key"`
	Model     string        `toml:"model"`
	MaxTokens int           `toml:"max_tokens" validate:"gte=1"`
	Timeout   time.Duration `toml:"timeout"`
}

// GeminiConfig contains Google Gemini API configuration for the embedder
type GeminiConfig struct {
	APIKey    string        `toml:"api_key"`
	Model     string        `toml:"model"`
	Dimension int           `toml:"dimension" validate:"gte=1"`
	Timeout   time.Duration `toml:"timeout"`
}

// NewDefaultConfig creates a configuration with default values. Technical
// parameters are hardcoded here for production stability; only user-facing
// settings belong in sentimentdelta.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "localhost",
			Port: 8085,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:       "./data",
				GCInterval: 10 * time.Minute,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Tickers: TickersConfig{
			WatchlistPath: "./watchlist.yaml",
		},
		Jobs: JobsConfig{
			PricesSchedule:     "0 * * * *",    // hourly
			NewsSchedule:       "15 */4 * * *", // six times daily
			EnrichmentSchedule: "30 */6 * * *",
			AggregatesSchedule: "5 1 * * *", // daily, after the last news run
			EnrichmentLimit:    200,
			RunOnStart:         true,
		},
		Fetch: FetchConfig{
			TickerConcurrency: 4,
			BodyConcurrency:   6,
			RequestTimeout:    30 * time.Second,
			BodyTimeout:       20 * time.Second,
			MaxRetries:        3,
			InitialBackoff:    time.Second,
			MaxBackoff:        30 * time.Second,
			RateLimit:         2,
			PriceLookbackDays: 30,
			NewsLookbackDays:  7,
			YahooMaxPages:     10,
			RenderJavaScript:  false,
			RenderWaitTime:    3 * time.Second,
			UserAgentRotation: true,
		},
		Sentiment: ClaudeConfig{
			Model:     "claude-haiku-4-5",
			MaxTokens: 512,
			Timeout:   60 * time.Second,
		},
		Embedding: GeminiConfig{
			Model:     "gemini-embedding-001",
			Dimension: 768,
			Timeout:   30 * time.Second,
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SENTIMENTDELTA_ENV"); env != "" {
		config.Environment = env
	}
	if host := os.Getenv("SENTIMENTDELTA_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SENTIMENTDELTA_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if path := os.Getenv("SENTIMENTDELTA_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}
	if level := os.Getenv("SENTIMENTDELTA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("SENTIMENTDELTA_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
	if tickers := os.Getenv("SENTIMENTDELTA_TICKERS"); tickers != "" {
		symbols := []string{}
		for _, t := range strings.Split(tickers, ",") {
			if trimmed := strings.ToUpper(strings.TrimSpace(t)); trimmed != "" {
				symbols = append(symbols, trimmed)
			}
		}
		if len(symbols) > 0 {
			config.Tickers.Symbols = symbols
		}
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && config.Sentiment.APIKey == "" {
		config.Sentiment.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && config.Embedding.APIKey == "" {
		config.Embedding.APIKey = key
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}
