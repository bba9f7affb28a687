package models

import "time"

// SourceConfig describes one upstream odds provider
// The source list is loaded once at startup and never mutated afterwards
type SourceConfig struct {
	Name              string `json:"name" mapstructure:"name"`
	BaseURL           string `json:"base_url" mapstructure:"base_url"`
	RequestsPerMinute int    `json:"requests_per_minute" mapstructure:"requests_per_minute"`
	Enabled           bool   `json:"enabled" mapstructure:"enabled"`
	OddsPath          string `json:"odds_path" mapstructure:"odds_path"`
}

// RawSelection is one priced selection exactly as the upstream labels it,
// before any name normalization
type RawSelection struct {
	Event     string  `json:"event"`
	Market    string  `json:"market"`
	Selection string  `json:"selection"`
	Price     float64 `json:"price"`
}

// Quote is one priced outcome observed from one source at one point in time
type Quote struct {
	Source           string    `json:"source"`
	NormalizedSource string    `json:"normalized_source"`
	Sport            string    `json:"sport"`
	Event            string    `json:"event"`
	Market           string    `json:"market"`
	Selection        string    `json:"selection"`
	Price            float64   `json:"price"`
	ObservedAt       time.Time `json:"observed_at"`
	Confidence       float64   `json:"confidence"` // normalization confidence, 0.0-1.0
}

// NormalizationResult is the outcome of normalizing one raw vendor string
type NormalizationResult struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// AggregateStats summarizes all quotes for one (event, market, selection) group
type AggregateStats struct {
	Event      string  `json:"event"`
	Market     string  `json:"market"`
	Selection  string  `json:"selection"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Mean       float64 `json:"mean"`
	Variance   float64 `json:"variance"` // population variance
	Count      int     `json:"count"`
	BestSource string  `json:"best_source"` // source offering Max
}

// ArbitrageEntry surfaces the price spread for one group quoted by 2+ sources
type ArbitrageEntry struct {
	Event     string  `json:"event"`
	Market    string  `json:"market"`
	Selection string  `json:"selection"`
	Source    string  `json:"source"`    // source offering the best price
	Price     float64 `json:"price"`     // the best price
	Advantage float64 `json:"advantage"` // max price - min price within the group
}

// AggregateResult is the full cross-source statistics view for one collection pass
type AggregateResult struct {
	Groups          map[string]AggregateStats `json:"groups"`
	Arbitrage       []ArbitrageEntry          `json:"arbitrage"`
	AverageVariance float64                   `json:"average_variance"`
}

// SourceRateStatus reports rate-limit headroom for one source
type SourceRateStatus struct {
	Name               string `json:"name"`
	Enabled            bool   `json:"enabled"`
	RequestsLastMinute int    `json:"requests_last_minute"`
	Limit              int    `json:"limit"`
	Available          int    `json:"available"`
}

// CollectorStatus is the health view over all configured sources
type CollectorStatus struct {
	TotalSources   int                `json:"total_sources"`
	EnabledSources int                `json:"enabled_sources"`
	Sources        []SourceRateStatus `json:"sources"`
}
