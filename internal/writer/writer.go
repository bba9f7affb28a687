package writer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/XavierBriggs/Argus/internal/metrics"
	"github.com/XavierBriggs/Argus/pkg/models"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = 5 * time.Second
	arbitrageStreamKey   = "odds.arbitrage"
)

// Writer batches quote history inserts and publishes arbitrage alerts to a
// Redis stream. The database is the durable record; stream publishes are
// best effort.
type Writer struct {
	db     *sql.DB
	redis  *redis.Client
	logger *slog.Logger

	batchSize     int
	flushInterval time.Duration

	buffer []models.Quote
	mu     sync.Mutex

	flushTicker *time.Ticker
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

// alertMessage is the payload published per arbitrage entry
type alertMessage struct {
	Sport      string    `json:"sport"`
	Event      string    `json:"event"`
	Market     string    `json:"market"`
	Selection  string    `json:"selection"`
	Source     string    `json:"source"`
	Price      float64   `json:"price"`
	Advantage  float64   `json:"advantage"`
	DetectedAt time.Time `json:"detected_at"`
}

// NewWriter creates a new batching history writer
func NewWriter(db *sql.DB, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Writer{
		db:            db,
		logger:        logger,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		buffer:        make([]models.Quote, 0, defaultBatchSize),
		stopChan:      make(chan struct{}),
	}
}

// SetAlertStream sets the Redis client used for arbitrage alert publishing
func (w *Writer) SetAlertStream(client *redis.Client) {
	w.redis = client
}

// Start begins the background flush ticker
func (w *Writer) Start(ctx context.Context) {
	w.flushTicker = time.NewTicker(w.flushInterval)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.flushTicker.C:
				if err := w.Flush(ctx); err != nil {
					w.logger.Warn("history flush failed", "error", err)
				}
			case <-w.stopChan:
				w.flushTicker.Stop()
				return
			case <-ctx.Done():
				w.flushTicker.Stop()
				return
			}
		}
	}()
}

// Stop halts the flush loop and drains any buffered quotes. The final flush
// runs on its own timeout, independent of the Start context.
func (w *Writer) Stop() {
	close(w.stopChan)
	w.wg.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.Flush(flushCtx); err != nil {
		w.logger.Warn("final history flush failed", "error", err)
	}
}

// Write adds quotes to the buffer and flushes if batch size is reached.
// Without a database this is a no-op so alert publishing can run alone.
func (w *Writer) Write(ctx context.Context, quotes []models.Quote) error {
	if w.db == nil {
		return nil
	}

	w.mu.Lock()
	w.buffer = append(w.buffer, quotes...)
	shouldFlush := len(w.buffer) >= w.batchSize
	w.mu.Unlock()

	if shouldFlush {
		return w.Flush(ctx)
	}

	return nil
}

// Flush writes buffered quotes to the history table
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	if len(w.buffer) == 0 {
		w.mu.Unlock()
		return nil
	}

	// Swap buffer
	quotes := w.buffer
	w.buffer = make([]models.Quote, 0, w.batchSize)
	w.mu.Unlock()

	if err := w.insertQuotes(ctx, quotes); err != nil {
		metrics.WriterFlushErrors.Inc()
		return fmt.Errorf("insert quotes: %w", err)
	}

	metrics.WriterRowsTotal.Add(float64(len(quotes)))
	return nil
}

// insertQuotes performs one batch insert using UNNEST
func (w *Writer) insertQuotes(ctx context.Context, quotes []models.Quote) error {
	query := `
		INSERT INTO quote_history (
			source, normalized_source, sport, event, market, selection,
			price, confidence, observed_at
		)
		SELECT * FROM UNNEST(
			$1::text[], $2::text[], $3::text[], $4::text[], $5::text[],
			$6::text[], $7::decimal[], $8::decimal[], $9::timestamptz[]
		)
	`

	sources := make([]string, len(quotes))
	normalized := make([]string, len(quotes))
	sports := make([]string, len(quotes))
	events := make([]string, len(quotes))
	markets := make([]string, len(quotes))
	selections := make([]string, len(quotes))
	prices := make([]float64, len(quotes))
	confidences := make([]float64, len(quotes))
	observedAts := make([]time.Time, len(quotes))

	for i, q := range quotes {
		sources[i] = q.Source
		normalized[i] = q.NormalizedSource
		sports[i] = q.Sport
		events[i] = q.Event
		markets[i] = q.Market
		selections[i] = q.Selection
		prices[i] = q.Price
		confidences[i] = q.Confidence
		observedAts[i] = q.ObservedAt
	}

	_, err := w.db.ExecContext(ctx, query,
		pq.Array(sources), pq.Array(normalized), pq.Array(sports), pq.Array(events),
		pq.Array(markets), pq.Array(selections), pq.Array(prices), pq.Array(confidences),
		pq.Array(observedAts),
	)

	return err
}

// PublishArbitrage publishes ranked arbitrage entries to the alert stream.
// Without a configured stream client this is a no-op.
func (w *Writer) PublishArbitrage(ctx context.Context, sport string, entries []models.ArbitrageEntry) error {
	if w.redis == nil || len(entries) == 0 {
		return nil
	}

	detectedAt := time.Now().UTC()
	pipe := w.redis.Pipeline()

	for _, entry := range entries {
		msg := alertMessage{
			Sport:      sport,
			Event:      entry.Event,
			Market:     entry.Market,
			Selection:  entry.Selection,
			Source:     entry.Source,
			Price:      entry.Price,
			Advantage:  entry.Advantage,
			DetectedAt: detectedAt,
		}

		msgJSON, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal alert message: %w", err)
		}

		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: arbitrageStreamKey,
			Values: map[string]interface{}{
				"data": msgJSON,
			},
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline exec for stream: %w", err)
	}

	return nil
}
