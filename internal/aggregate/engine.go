package aggregate

import (
	"fmt"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/XavierBriggs/Argus/pkg/models"
)

// maxArbitrageEntries caps the ranked discrepancy list
const maxArbitrageEntries = 10

// Engine derives cross-source statistics from collected quotes. It is a pure
// function over its input: no shared state, safe for concurrent use.
type Engine struct{}

// NewEngine creates an aggregation engine
func NewEngine() *Engine {
	return &Engine{}
}

// Aggregate groups quotes by (event, market, selection), computes summary
// statistics per group, and ranks cross-source price gaps. Sources and group
// keys are walked in sorted order so ties resolve the same way on every call.
func (e *Engine) Aggregate(quotesBySource map[string][]models.Quote) models.AggregateResult {
	sourceNames := make([]string, 0, len(quotesBySource))
	for name := range quotesBySource {
		sourceNames = append(sourceNames, name)
	}
	sort.Strings(sourceNames)

	groups := make(map[string][]models.Quote)
	for _, name := range sourceNames {
		for _, quote := range quotesBySource[name] {
			key := groupKey(quote)
			groups[key] = append(groups[key], quote)
		}
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := models.AggregateResult{
		Groups:    make(map[string]models.AggregateStats, len(groups)),
		Arbitrage: make([]models.ArbitrageEntry, 0),
	}

	varianceSum := 0.0
	multiSourceGroups := 0

	for _, key := range keys {
		group := groups[key]

		prices := make(stats.Float64Data, 0, len(group))
		for _, quote := range group {
			prices = append(prices, quote.Price)
		}

		minPrice, maxPrice, mean, variance, err := summarize(prices)
		if err != nil {
			// Only possible for an empty group, which grouping never produces
			continue
		}

		// Ties for the maximum resolve to the earliest quote in source order
		best := group[0]
		for _, quote := range group[1:] {
			if quote.Price > best.Price {
				best = quote
			}
		}

		result.Groups[key] = models.AggregateStats{
			Event:      group[0].Event,
			Market:     group[0].Market,
			Selection:  group[0].Selection,
			Min:        minPrice,
			Max:        maxPrice,
			Mean:       mean,
			Variance:   variance,
			Count:      len(group),
			BestSource: best.Source,
		}

		if countSources(group) < 2 {
			continue
		}

		varianceSum += variance
		multiSourceGroups++

		result.Arbitrage = append(result.Arbitrage, models.ArbitrageEntry{
			Event:     group[0].Event,
			Market:    group[0].Market,
			Selection: group[0].Selection,
			Source:    best.Source,
			Price:     maxPrice,
			Advantage: maxPrice - minPrice,
		})
	}

	sort.SliceStable(result.Arbitrage, func(i, j int) bool {
		return result.Arbitrage[i].Advantage > result.Arbitrage[j].Advantage
	})
	if len(result.Arbitrage) > maxArbitrageEntries {
		result.Arbitrage = result.Arbitrage[:maxArbitrageEntries]
	}

	if multiSourceGroups > 0 {
		result.AverageVariance = varianceSum / float64(multiSourceGroups)
	}

	return result
}

// groupKey builds the composite key shared by quotes describing one outcome.
// Format: {event}::{market}::{selection}
func groupKey(quote models.Quote) string {
	return fmt.Sprintf("%s::%s::%s", quote.Event, quote.Market, quote.Selection)
}

// summarize computes the descriptive statistics for one group's prices.
// Variance is the population variance, the mean of squared deviations.
func summarize(prices stats.Float64Data) (minPrice, maxPrice, mean, variance float64, err error) {
	minPrice, err = stats.Min(prices)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	maxPrice, err = stats.Max(prices)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	mean, err = stats.Mean(prices)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	variance, err = stats.PopulationVariance(prices)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return minPrice, maxPrice, mean, variance, nil
}

// countSources counts the distinct reporting sources within a group
func countSources(group []models.Quote) int {
	seen := make(map[string]struct{}, len(group))
	for _, quote := range group {
		seen[quote.Source] = struct{}{}
	}
	return len(seen)
}
