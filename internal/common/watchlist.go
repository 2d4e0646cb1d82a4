package common

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// WatchlistEntry is one tracked symbol in the YAML watchlist.
type WatchlistEntry struct {
	Symbol   string `yaml:"symbol"`
	Exchange string `yaml:"exchange,omitempty"`
	Name     string `yaml:"name,omitempty"`
}

// Watchlist is the set of tracked symbols.
type Watchlist struct {
	Tickers []WatchlistEntry `yaml:"tickers"`
}

// LoadWatchlist resolves the tracked symbols: the config symbol override wins,
// otherwise the YAML watchlist file is read. Symbols are upper-cased and
// deduplicated, preserving order.
func LoadWatchlist(config *Config) ([]WatchlistEntry, error) {
	if len(config.Tickers.Symbols) > 0 {
		entries := make([]WatchlistEntry, 0, len(config.Tickers.Symbols))
		for _, s := range config.Tickers.Symbols {
			entries = append(entries, WatchlistEntry{Symbol: strings.ToUpper(strings.TrimSpace(s))})
		}
		return dedupeEntries(entries), nil
	}

	data, err := os.ReadFile(config.Tickers.WatchlistPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read watchlist %s: %w", config.Tickers.WatchlistPath, err)
	}

	var wl Watchlist
	if err := yaml.Unmarshal(data, &wl); err != nil {
		return nil, fmt.Errorf("failed to parse watchlist %s: %w", config.Tickers.WatchlistPath, err)
	}
	if len(wl.Tickers) == 0 {
		return nil, fmt.Errorf("watchlist %s contains no tickers", config.Tickers.WatchlistPath)
	}

	for i := range wl.Tickers {
		wl.Tickers[i].Symbol = strings.ToUpper(strings.TrimSpace(wl.Tickers[i].Symbol))
	}
	return dedupeEntries(wl.Tickers), nil
}

func dedupeEntries(entries []WatchlistEntry) []WatchlistEntry {
	seen := make(map[string]bool, len(entries))
	out := entries[:0]
	for _, e := range entries {
		if e.Symbol == "" || seen[e.Symbol] {
			continue
		}
		seen[e.Symbol] = true
		out = append(out, e)
	}
	return out
}
