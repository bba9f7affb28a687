package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/XavierBriggs/Argus/internal/cache"
	"github.com/XavierBriggs/Argus/internal/normalize"
	"github.com/XavierBriggs/Argus/internal/ratelimit"
	"github.com/XavierBriggs/Argus/internal/registry"
	"github.com/XavierBriggs/Argus/pkg/models"
	"github.com/XavierBriggs/Argus/pkg/testutil"
)

func fetcherReturning(selections ...models.RawSelection) *testutil.MockSourceFetcher {
	return &testutil.MockSourceFetcher{
		FetchFunc: func(context.Context, models.SourceConfig, string) ([]models.RawSelection, error) {
			return selections, nil
		},
	}
}

func newTestCollector(t *testing.T, store cache.Store, sources []models.SourceConfig, fetchers map[string]*testutil.MockSourceFetcher) *Collector {
	t.Helper()

	reg := registry.NewFetcherRegistry()
	for name, fetcher := range fetchers {
		if err := reg.Register(name, fetcher); err != nil {
			t.Fatalf("Register(%s) returned error: %v", name, err)
		}
	}

	limiter := ratelimit.NewLimiter(sources, nil)
	normalizer := normalize.NewNormalizer(nil, nil)
	return NewCollector(sources, reg, limiter, store, normalizer, 0, nil)
}

func TestCollector_CollectAllSources(t *testing.T) {
	sources := []models.SourceConfig{
		testutil.NewTestSource("betfair", 60),
		testutil.NewTestSource("pinnacle", 60),
	}
	fetchers := map[string]*testutil.MockSourceFetcher{
		"betfair": fetcherReturning(
			testutil.NewTestSelection("A vs B", "1X2", "A", 2.5),
			testutil.NewTestSelection("A vs B", "1X2", "B", 2.9),
		),
		"pinnacle": fetcherReturning(
			testutil.NewTestSelection("A vs B", "1X2", "A", 2.8),
		),
	}

	c := newTestCollector(t, testutil.NewMemStore(), sources, fetchers)
	results := c.Collect(context.Background(), "soccer_epl")

	if len(results) != 2 {
		t.Fatalf("got %d source entries, want 2", len(results))
	}
	if len(results["betfair"]) != 2 {
		t.Errorf("betfair quotes = %d, want 2", len(results["betfair"]))
	}
	if len(results["pinnacle"]) != 1 {
		t.Errorf("pinnacle quotes = %d, want 1", len(results["pinnacle"]))
	}

	q := results["pinnacle"][0]
	if q.Source != "pinnacle" || q.NormalizedSource != "Pinnacle" {
		t.Errorf("quote source = %q normalized %q, want pinnacle / Pinnacle", q.Source, q.NormalizedSource)
	}
	if q.Sport != "soccer_epl" || q.Event != "A vs B" || q.Market != "1X2" || q.Selection != "A" || q.Price != 2.8 {
		t.Errorf("quote = %+v, want A vs B / 1X2 / A @ 2.8 in soccer_epl", q)
	}
	if q.Confidence <= 0 || q.Confidence > 1 {
		t.Errorf("confidence = %v, want value in (0,1]", q.Confidence)
	}
	if q.ObservedAt.IsZero() {
		t.Error("ObservedAt is zero, want assembly timestamp")
	}
}

func TestCollector_FailingSourceIsolated(t *testing.T) {
	sources := []models.SourceConfig{
		testutil.NewTestSource("betfair", 60),
		testutil.NewTestSource("pinnacle", 60),
		testutil.NewTestSource("unibet", 60),
	}
	fetchers := map[string]*testutil.MockSourceFetcher{
		"betfair": fetcherReturning(testutil.NewTestSelection("A vs B", "1X2", "A", 2.5)),
		"pinnacle": {
			FetchFunc: func(context.Context, models.SourceConfig, string) ([]models.RawSelection, error) {
				return nil, errors.New("connection refused")
			},
		},
		"unibet": fetcherReturning(testutil.NewTestSelection("A vs B", "1X2", "A", 2.7)),
	}

	c := newTestCollector(t, testutil.NewMemStore(), sources, fetchers)
	results := c.Collect(context.Background(), "soccer_epl")

	if len(results) != 3 {
		t.Fatalf("got %d source entries, want all 3 sources present", len(results))
	}
	if len(results["pinnacle"]) != 0 {
		t.Errorf("failing source quotes = %d, want 0", len(results["pinnacle"]))
	}
	if results["pinnacle"] == nil {
		t.Error("failing source entry is nil, want empty slice")
	}
	if len(results["betfair"]) != 1 || len(results["unibet"]) != 1 {
		t.Errorf("healthy sources returned %d and %d quotes, want 1 and 1",
			len(results["betfair"]), len(results["unibet"]))
	}
}

func TestCollector_RateLimitDeniesThirdCall(t *testing.T) {
	sources := []models.SourceConfig{
		testutil.NewTestSource("pinnacle", 2),
		testutil.NewTestSource("betfair", 60),
	}
	fetchers := map[string]*testutil.MockSourceFetcher{
		"pinnacle": fetcherReturning(testutil.NewTestSelection("A vs B", "1X2", "A", 2.8)),
		"betfair":  fetcherReturning(testutil.NewTestSelection("A vs B", "1X2", "A", 2.5)),
	}

	// NullStore forces a fresh compute per call so each one hits the limiter
	c := newTestCollector(t, testutil.NullStore{}, sources, fetchers)

	for call := 1; call <= 2; call++ {
		results := c.Collect(context.Background(), "soccer_epl")
		if len(results["pinnacle"]) != 1 {
			t.Fatalf("call %d: pinnacle quotes = %d, want 1", call, len(results["pinnacle"]))
		}
	}

	results := c.Collect(context.Background(), "soccer_epl")
	if len(results["pinnacle"]) != 0 {
		t.Errorf("3rd call: pinnacle quotes = %d, want 0 (limit 2/min reached)", len(results["pinnacle"]))
	}
	if len(results["betfair"]) != 1 {
		t.Errorf("3rd call: betfair quotes = %d, want 1 (unaffected by sibling's limit)", len(results["betfair"]))
	}
	if got := fetchers["pinnacle"].Calls.Load(); got != 2 {
		t.Errorf("pinnacle fetch calls = %d, want 2 (denied call must not reach the network)", got)
	}
}

func TestCollector_CacheHitSkipsFetch(t *testing.T) {
	sources := []models.SourceConfig{testutil.NewTestSource("betfair", 60)}
	fetchers := map[string]*testutil.MockSourceFetcher{
		"betfair": fetcherReturning(testutil.NewTestSelection("A vs B", "1X2", "A", 2.5)),
	}

	c := newTestCollector(t, testutil.NewMemStore(), sources, fetchers)

	first := c.Collect(context.Background(), "soccer_epl")
	second := c.Collect(context.Background(), "soccer_epl")

	if got := fetchers["betfair"].Calls.Load(); got != 1 {
		t.Errorf("fetch calls = %d, want 1 (second collect should hit the cache)", got)
	}
	if len(second["betfair"]) != len(first["betfair"]) {
		t.Errorf("cached quotes = %d, want %d", len(second["betfair"]), len(first["betfair"]))
	}
}

func TestCollector_DisabledSourceSkipped(t *testing.T) {
	disabled := testutil.NewTestSource("bovada", 60)
	disabled.Enabled = false
	sources := []models.SourceConfig{
		testutil.NewTestSource("betfair", 60),
		disabled,
	}
	fetchers := map[string]*testutil.MockSourceFetcher{
		"betfair": fetcherReturning(testutil.NewTestSelection("A vs B", "1X2", "A", 2.5)),
		"bovada":  fetcherReturning(testutil.NewTestSelection("A vs B", "1X2", "A", 2.6)),
	}

	c := newTestCollector(t, testutil.NewMemStore(), sources, fetchers)
	results := c.Collect(context.Background(), "soccer_epl")

	if _, present := results["bovada"]; present {
		t.Error("disabled source appears in results, want it skipped")
	}
	if got := fetchers["bovada"].Calls.Load(); got != 0 {
		t.Errorf("disabled source fetch calls = %d, want 0", got)
	}
	if len(results["betfair"]) != 1 {
		t.Errorf("betfair quotes = %d, want 1", len(results["betfair"]))
	}
}

func TestCollector_UnregisteredSourceEmpty(t *testing.T) {
	sources := []models.SourceConfig{
		testutil.NewTestSource("betfair", 60),
		testutil.NewTestSource("ghostbook", 60),
	}
	fetchers := map[string]*testutil.MockSourceFetcher{
		"betfair": fetcherReturning(testutil.NewTestSelection("A vs B", "1X2", "A", 2.5)),
	}

	c := newTestCollector(t, testutil.NewMemStore(), sources, fetchers)
	results := c.Collect(context.Background(), "soccer_epl")

	if len(results["ghostbook"]) != 0 {
		t.Errorf("unregistered source quotes = %d, want 0", len(results["ghostbook"]))
	}
	if _, present := results["ghostbook"]; !present {
		t.Error("unregistered source missing from results, want empty entry")
	}
	if len(results["betfair"]) != 1 {
		t.Errorf("betfair quotes = %d, want 1", len(results["betfair"]))
	}
}

func TestCollector_Status(t *testing.T) {
	disabled := testutil.NewTestSource("bovada", 30)
	disabled.Enabled = false
	sources := []models.SourceConfig{
		testutil.NewTestSource("betfair", 60),
		disabled,
	}
	fetchers := map[string]*testutil.MockSourceFetcher{
		"betfair": fetcherReturning(testutil.NewTestSelection("A vs B", "1X2", "A", 2.5)),
	}

	c := newTestCollector(t, testutil.NullStore{}, sources, fetchers)
	c.Collect(context.Background(), "soccer_epl")

	status := c.Status()
	if status.TotalSources != 2 || status.EnabledSources != 1 {
		t.Errorf("totals = %d/%d, want 2 configured with 1 enabled",
			status.TotalSources, status.EnabledSources)
	}
	if len(status.Sources) != 2 {
		t.Fatalf("got %d source statuses, want 2", len(status.Sources))
	}

	byName := make(map[string]models.SourceRateStatus, len(status.Sources))
	for _, s := range status.Sources {
		byName[s.Name] = s
	}

	betfair := byName["betfair"]
	if betfair.RequestsLastMinute != 1 || betfair.Limit != 60 || betfair.Available != 59 {
		t.Errorf("betfair status = %d used / %d limit / %d available, want 1/60/59",
			betfair.RequestsLastMinute, betfair.Limit, betfair.Available)
	}

	bovada := byName["bovada"]
	if bovada.Enabled || bovada.RequestsLastMinute != 0 || bovada.Available != 30 {
		t.Errorf("bovada status = %+v, want disabled with 0 used and 30 available", bovada)
	}
}
