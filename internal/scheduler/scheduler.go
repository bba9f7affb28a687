package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/XavierBriggs/Argus/internal/aggregate"
	"github.com/XavierBriggs/Argus/internal/collector"
	"github.com/XavierBriggs/Argus/internal/metrics"
	"github.com/XavierBriggs/Argus/internal/writer"
	"github.com/XavierBriggs/Argus/pkg/models"
)

const (
	defaultPollInterval = 60 * time.Second

	// defaultJitterSeconds staggers per-sport tickers so fan-outs for
	// different sports do not fire in lockstep
	defaultJitterSeconds = 5
)

// Scheduler orchestrates periodic collection cycles for all configured sports
type Scheduler struct {
	collector  *collector.Collector
	aggregator *aggregate.Engine
	writer     *writer.Writer // optional history writer
	sports     []string
	interval   time.Duration
	jitter     int
	logger     *slog.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a polling scheduler. historyWriter may be nil when
// persistence is not configured; a non-positive interval falls back to 60s.
func NewScheduler(
	coll *collector.Collector,
	aggregator *aggregate.Engine,
	historyWriter *writer.Writer,
	sports []string,
	interval time.Duration,
	logger *slog.Logger,
) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}

	return &Scheduler{
		collector:  coll,
		aggregator: aggregator,
		writer:     historyWriter,
		sports:     sports,
		interval:   interval,
		jitter:     defaultJitterSeconds,
		logger:     logger,
		stopChan:   make(chan struct{}),
	}
}

// Start begins one polling loop per configured sport
func (s *Scheduler) Start(ctx context.Context) error {
	if len(s.sports) == 0 {
		return fmt.Errorf("no sports configured")
	}

	if s.writer != nil {
		s.writer.Start(ctx)
	}

	for _, sport := range s.sports {
		s.wg.Add(1)
		go func(sport string) {
			defer s.wg.Done()
			s.pollSport(ctx, sport)
		}(sport)

		s.logger.Info("started polling", "sport", sport, "interval", s.interval)
	}

	return nil
}

// Stop gracefully shuts down the scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
	if s.writer != nil {
		s.writer.Stop()
	}
}

// pollSport runs collection cycles for one sport until shutdown
func (s *Scheduler) pollSport(ctx context.Context, sport string) {
	// Initial cycle immediately
	s.runCycle(ctx, sport)

	ticker := time.NewTicker(addJitter(s.interval, s.jitter))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runCycle(ctx, sport)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// runCycle executes the full pipeline: collect → persist → aggregate → publish
func (s *Scheduler) runCycle(ctx context.Context, sport string) {
	runID := uuid.NewString()
	start := time.Now()

	quotesBySource := s.collector.Collect(ctx, sport)

	responding := 0
	flat := make([]models.Quote, 0)
	for _, quotes := range quotesBySource {
		if len(quotes) > 0 {
			responding++
		}
		flat = append(flat, quotes...)
	}

	metrics.LastCycleQuotes.WithLabelValues(sport).Set(float64(len(flat)))

	if s.writer != nil && len(flat) > 0 {
		if err := s.writer.Write(ctx, flat); err != nil {
			s.logger.Warn("history write failed", "run_id", runID, "sport", sport, "error", err)
		}
	}

	result := s.aggregator.Aggregate(quotesBySource)

	if s.writer != nil && len(result.Arbitrage) > 0 {
		if err := s.writer.PublishArbitrage(ctx, sport, result.Arbitrage); err != nil {
			s.logger.Warn("arbitrage publish failed", "run_id", runID, "sport", sport, "error", err)
		}
	}

	s.logger.Info("collection cycle complete",
		"run_id", runID,
		"sport", sport,
		"sources", len(quotesBySource),
		"responding", responding,
		"quotes", len(flat),
		"groups", len(result.Groups),
		"arbitrage", len(result.Arbitrage),
		"avg_variance", result.AverageVariance,
		"duration", time.Since(start))

	if len(result.Arbitrage) > 0 {
		top := result.Arbitrage[0]
		s.logger.Info("top price gap",
			"run_id", runID,
			"sport", sport,
			"event", top.Event,
			"market", top.Market,
			"selection", top.Selection,
			"source", top.Source,
			"price", top.Price,
			"advantage", top.Advantage)
	}
}

// addJitter adds random jitter to prevent synchronized tickers
func addJitter(duration time.Duration, jitterSeconds int) time.Duration {
	if jitterSeconds == 0 {
		return duration
	}

	jitter := time.Duration(rand.Intn(jitterSeconds)) * time.Second
	return duration + jitter
}
