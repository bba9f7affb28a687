package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/XavierBriggs/Argus/pkg/contracts"
	"github.com/XavierBriggs/Argus/pkg/models"
)

// NewTestSource creates an enabled source configuration for tests
func NewTestSource(name string, requestsPerMinute int) models.SourceConfig {
	return models.SourceConfig{
		Name:              name,
		BaseURL:           "http://" + name + ".test",
		RequestsPerMinute: requestsPerMinute,
		Enabled:           true,
		OddsPath:          "/v1/odds",
	}
}

// NewTestSelection creates a raw selection as a fetcher would return it
func NewTestSelection(event, market, selection string, price float64) models.RawSelection {
	return models.RawSelection{
		Event:     event,
		Market:    market,
		Selection: selection,
		Price:     price,
	}
}

// NewTestQuote creates a fully normalized quote
func NewTestQuote(source, event, market, selection string, price float64) models.Quote {
	return models.Quote{
		Source:           source,
		NormalizedSource: source,
		Sport:            "soccer_epl",
		Event:            event,
		Market:           market,
		Selection:        selection,
		Price:            price,
		ObservedAt:       time.Now(),
		Confidence:       1.0,
	}
}

// MockSourceFetcher is a test fetcher returning predetermined selections
type MockSourceFetcher struct {
	FetchFunc func(ctx context.Context, source models.SourceConfig, sport string) ([]models.RawSelection, error)
	Calls     atomic.Int32
}

var _ contracts.SourceFetcher = (*MockSourceFetcher)(nil)

func (m *MockSourceFetcher) Fetch(ctx context.Context, source models.SourceConfig, sport string) ([]models.RawSelection, error) {
	m.Calls.Add(1)
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, source, sport)
	}
	return []models.RawSelection{}, nil
}

// MemStore is a mutex-protected in-memory key/value store for tests
type MemStore struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string]string)}
}

func (s *MemStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

// NullStore discards writes and never finds a key, forcing a recompute on
// every cache lookup
type NullStore struct{}

func (NullStore) Get(context.Context, string) (string, bool, error) { return "", false, nil }

func (NullStore) Set(context.Context, string, string, time.Duration) error { return nil }

// MockRemoteNormalizer is a test double for the semantic normalization service
type MockRemoteNormalizer struct {
	Enabled       bool
	NormalizeFunc func(ctx context.Context, raw, hint string) (models.NormalizationResult, error)
	Calls         atomic.Int32
}

var _ contracts.RemoteNormalizer = (*MockRemoteNormalizer)(nil)

func (m *MockRemoteNormalizer) IsEnabled() bool { return m.Enabled }

func (m *MockRemoteNormalizer) Normalize(ctx context.Context, raw, hint string) (models.NormalizationResult, error) {
	m.Calls.Add(1)
	if m.NormalizeFunc != nil {
		return m.NormalizeFunc(ctx, raw, hint)
	}
	return models.NormalizationResult{Name: raw, Confidence: 1.0}, nil
}
