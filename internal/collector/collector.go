package collector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/XavierBriggs/Argus/internal/cache"
	"github.com/XavierBriggs/Argus/internal/metrics"
	"github.com/XavierBriggs/Argus/internal/normalize"
	"github.com/XavierBriggs/Argus/internal/ratelimit"
	"github.com/XavierBriggs/Argus/internal/registry"
	"github.com/XavierBriggs/Argus/pkg/models"
)

const (
	// defaultCacheTTL is how long a source's quote list is reused before refetching
	defaultCacheTTL = 300 * time.Second

	// fetchTimeout bounds a single upstream fetch so a hung source cannot
	// stall the collection join
	fetchTimeout = 10 * time.Second

	// normalizeHint accompanies raw source names sent to the normalizer
	normalizeHint = "odds source"
)

// Collector fans out quote collection across all enabled sources. Each source
// runs as its own task behind the rate limiter and the cache; a slow or
// failing source yields an empty list for itself and never disturbs siblings.
type Collector struct {
	sources    []models.SourceConfig
	registry   *registry.FetcherRegistry
	limiter    *ratelimit.Limiter
	cache      *cache.Aside[[]models.Quote]
	normalizer *normalize.Normalizer
	cacheTTL   time.Duration
	logger     *slog.Logger
}

// NewCollector creates a collector over the given source configurations.
// A non-positive cacheTTL falls back to the 300s default; a nil logger falls
// back to slog.Default().
func NewCollector(
	sources []models.SourceConfig,
	reg *registry.FetcherRegistry,
	limiter *ratelimit.Limiter,
	store cache.Store,
	normalizer *normalize.Normalizer,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}

	return &Collector{
		sources:    sources,
		registry:   reg,
		limiter:    limiter,
		cache:      cache.NewAside[[]models.Quote](store, logger),
		normalizer: normalizer,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// Collect gathers quotes for a sport from every enabled source concurrently.
// The call returns only after every source has resolved; sources that were
// rate limited or failed contribute an empty list rather than an error.
func (c *Collector) Collect(ctx context.Context, sport string) map[string][]models.Quote {
	start := time.Now()

	results := make(map[string][]models.Quote, len(c.sources))

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, source := range c.sources {
		if !source.Enabled {
			continue
		}

		wg.Add(1)
		go func(source models.SourceConfig) {
			defer wg.Done()

			quotes := c.collectSource(ctx, source, sport)

			mu.Lock()
			results[source.Name] = quotes
			mu.Unlock()
		}(source)
	}

	wg.Wait()

	metrics.CollectionDuration.Observe(time.Since(start).Seconds())
	return results
}

// collectSource resolves one source's quotes through the cache. Any compute
// failure is absorbed here so the fan-out never sees an error.
func (c *Collector) collectSource(ctx context.Context, source models.SourceConfig, sport string) []models.Quote {
	key := fmt.Sprintf("odds:source:%s:%s", source.Name, sport)

	quotes, err := c.cache.GetOrCompute(ctx, key, c.cacheTTL, func(ctx context.Context) ([]models.Quote, error) {
		return c.fetchSource(ctx, source, sport)
	})
	if err != nil {
		c.logger.Warn("source collection failed", "source", source.Name, "sport", sport, "error", err)
		return []models.Quote{}
	}
	if quotes == nil {
		quotes = []models.Quote{}
	}
	return quotes
}

// fetchSource is the compute path behind the cache: admission check, upstream
// fetch, then quote assembly with the source name normalized once per batch.
func (c *Collector) fetchSource(ctx context.Context, source models.SourceConfig, sport string) ([]models.Quote, error) {
	if !c.limiter.Admit(source.Name) {
		metrics.RateLimitDenials.WithLabelValues(source.Name).Inc()
		c.logger.Warn("rate limit reached, skipping fetch", "source", source.Name, "sport", sport)
		return []models.Quote{}, nil
	}

	fetcher, ok := c.registry.Get(source.Name)
	if !ok {
		return nil, fmt.Errorf("no fetcher registered for source %s", source.Name)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	selections, err := fetcher.Fetch(fetchCtx, source, sport)
	if err != nil {
		metrics.FetchesTotal.WithLabelValues(source.Name, "error").Inc()
		return nil, fmt.Errorf("fetch %s: %w", source.Name, err)
	}
	metrics.FetchesTotal.WithLabelValues(source.Name, "success").Inc()

	norm := c.normalizer.Normalize(ctx, source.Name, normalizeHint)

	observedAt := time.Now().UTC()
	quotes := make([]models.Quote, 0, len(selections))
	for _, sel := range selections {
		quotes = append(quotes, models.Quote{
			Source:           source.Name,
			NormalizedSource: norm.Name,
			Sport:            sport,
			Event:            sel.Event,
			Market:           sel.Market,
			Selection:        sel.Selection,
			Price:            sel.Price,
			ObservedAt:       observedAt,
			Confidence:       norm.Confidence,
		})
	}

	metrics.QuotesCollected.WithLabelValues(source.Name).Add(float64(len(quotes)))
	return quotes, nil
}

// Status reports configured totals and per-source rate-limit usage.
func (c *Collector) Status() models.CollectorStatus {
	status := models.CollectorStatus{
		TotalSources: len(c.sources),
		Sources:      make([]models.SourceRateStatus, 0, len(c.sources)),
	}

	for _, source := range c.sources {
		if source.Enabled {
			status.EnabledSources++
		}

		used, limit := c.limiter.Usage(source.Name)
		available := limit - used
		if available < 0 {
			available = 0
		}

		status.Sources = append(status.Sources, models.SourceRateStatus{
			Name:               source.Name,
			Enabled:            source.Enabled,
			RequestsLastMinute: used,
			Limit:              limit,
			Available:          available,
		})
	}

	return status
}
