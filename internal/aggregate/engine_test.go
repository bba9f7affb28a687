package aggregate

import (
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/XavierBriggs/Argus/pkg/models"
	"github.com/XavierBriggs/Argus/pkg/testutil"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEngine_AggregateTwoSourceGroup(t *testing.T) {
	input := map[string][]models.Quote{
		"betfair":  {testutil.NewTestQuote("betfair", "A vs B", "1X2", "A", 2.5)},
		"pinnacle": {testutil.NewTestQuote("pinnacle", "A vs B", "1X2", "A", 2.8)},
	}

	result := NewEngine().Aggregate(input)

	group, ok := result.Groups["A vs B::1X2::A"]
	if !ok {
		t.Fatalf("group key missing, got keys %v", groupKeys(result))
	}

	if group.Count != 2 {
		t.Errorf("Count = %d, want 2", group.Count)
	}
	if !almostEqual(group.Min, 2.5) || !almostEqual(group.Max, 2.8) {
		t.Errorf("Min/Max = %v/%v, want 2.5/2.8", group.Min, group.Max)
	}
	if !almostEqual(group.Mean, 2.65) {
		t.Errorf("Mean = %v, want 2.65", group.Mean)
	}
	if !almostEqual(group.Variance, 0.0225) {
		t.Errorf("Variance = %v, want population variance 0.0225", group.Variance)
	}
	if group.BestSource != "pinnacle" {
		t.Errorf("BestSource = %q, want pinnacle", group.BestSource)
	}

	if len(result.Arbitrage) != 1 {
		t.Fatalf("got %d arbitrage entries, want 1", len(result.Arbitrage))
	}
	entry := result.Arbitrage[0]
	if entry.Source != "pinnacle" || !almostEqual(entry.Price, 2.8) {
		t.Errorf("arbitrage source/price = %q/%v, want pinnacle/2.8", entry.Source, entry.Price)
	}
	if !almostEqual(entry.Advantage, 0.3) {
		t.Errorf("Advantage = %v, want 0.3", entry.Advantage)
	}
	if !almostEqual(result.AverageVariance, 0.0225) {
		t.Errorf("AverageVariance = %v, want 0.0225", result.AverageVariance)
	}
}

func TestEngine_SingleSourceGroupHasNoArbitrage(t *testing.T) {
	input := map[string][]models.Quote{
		"betfair": {testutil.NewTestQuote("betfair", "A vs B", "1X2", "A", 2.5)},
	}

	result := NewEngine().Aggregate(input)

	group := result.Groups["A vs B::1X2::A"]
	if group.Count != 1 {
		t.Errorf("Count = %d, want 1", group.Count)
	}
	if group.Variance != 0 {
		t.Errorf("Variance = %v, want 0 for a single quote", group.Variance)
	}
	if !almostEqual(group.Min, group.Mean) || !almostEqual(group.Mean, group.Max) {
		t.Errorf("Min/Mean/Max = %v/%v/%v, want all equal", group.Min, group.Mean, group.Max)
	}
	if len(result.Arbitrage) != 0 {
		t.Errorf("got %d arbitrage entries, want 0 for a single-source group", len(result.Arbitrage))
	}
	if result.AverageVariance != 0 {
		t.Errorf("AverageVariance = %v, want 0 with no multi-source groups", result.AverageVariance)
	}
}

func TestEngine_IdenticalPricesZeroVariance(t *testing.T) {
	input := map[string][]models.Quote{
		"betfair":  {testutil.NewTestQuote("betfair", "A vs B", "1X2", "A", 2.5)},
		"pinnacle": {testutil.NewTestQuote("pinnacle", "A vs B", "1X2", "A", 2.5)},
		"unibet":   {testutil.NewTestQuote("unibet", "A vs B", "1X2", "A", 2.5)},
	}

	result := NewEngine().Aggregate(input)

	group := result.Groups["A vs B::1X2::A"]
	if group.Variance != 0 {
		t.Errorf("Variance = %v, want 0 for identical prices", group.Variance)
	}
	if len(result.Arbitrage) != 1 {
		t.Fatalf("got %d arbitrage entries, want 1", len(result.Arbitrage))
	}
	if adv := result.Arbitrage[0].Advantage; adv != 0 {
		t.Errorf("Advantage = %v, want 0", adv)
	}
}

func TestEngine_MaxTieResolvesToFirstSourceInOrder(t *testing.T) {
	input := map[string][]models.Quote{
		"pinnacle": {testutil.NewTestQuote("pinnacle", "A vs B", "1X2", "A", 2.8)},
		"betfair":  {testutil.NewTestQuote("betfair", "A vs B", "1X2", "A", 2.8)},
		"unibet":   {testutil.NewTestQuote("unibet", "A vs B", "1X2", "A", 2.4)},
	}

	result := NewEngine().Aggregate(input)

	// betfair sorts before pinnacle, so the tie goes to betfair
	if got := result.Groups["A vs B::1X2::A"].BestSource; got != "betfair" {
		t.Errorf("BestSource = %q, want betfair on a max-price tie", got)
	}
	if len(result.Arbitrage) != 1 {
		t.Fatalf("got %d arbitrage entries, want 1", len(result.Arbitrage))
	}
	if got := result.Arbitrage[0].Source; got != "betfair" {
		t.Errorf("arbitrage source = %q, want betfair on a max-price tie", got)
	}
}

func TestEngine_ArbitrageRankedAndTruncated(t *testing.T) {
	input := map[string][]models.Quote{
		"betfair":  {},
		"pinnacle": {},
	}
	for i := 0; i < 12; i++ {
		event := fmt.Sprintf("Event %02d", i)
		gap := float64(i+1) * 0.01
		input["betfair"] = append(input["betfair"],
			testutil.NewTestQuote("betfair", event, "1X2", "Home", 2.0))
		input["pinnacle"] = append(input["pinnacle"],
			testutil.NewTestQuote("pinnacle", event, "1X2", "Home", 2.0+gap))
	}

	result := NewEngine().Aggregate(input)

	if len(result.Arbitrage) != maxArbitrageEntries {
		t.Fatalf("got %d arbitrage entries, want %d", len(result.Arbitrage), maxArbitrageEntries)
	}
	for i := 1; i < len(result.Arbitrage); i++ {
		if result.Arbitrage[i].Advantage > result.Arbitrage[i-1].Advantage {
			t.Fatalf("arbitrage not sorted at %d: %v after %v",
				i, result.Arbitrage[i].Advantage, result.Arbitrage[i-1].Advantage)
		}
	}
	if !almostEqual(result.Arbitrage[0].Advantage, 0.12) {
		t.Errorf("top advantage = %v, want 0.12", result.Arbitrage[0].Advantage)
	}
	if !almostEqual(result.Arbitrage[9].Advantage, 0.03) {
		t.Errorf("last kept advantage = %v, want 0.03", result.Arbitrage[9].Advantage)
	}
}

func TestEngine_EqualAdvantagesKeepGroupKeyOrder(t *testing.T) {
	input := map[string][]models.Quote{
		"betfair": {
			testutil.NewTestQuote("betfair", "C vs D", "1X2", "Home", 2.0),
			testutil.NewTestQuote("betfair", "A vs B", "1X2", "Home", 2.0),
		},
		"pinnacle": {
			testutil.NewTestQuote("pinnacle", "C vs D", "1X2", "Home", 2.2),
			testutil.NewTestQuote("pinnacle", "A vs B", "1X2", "Home", 2.2),
		},
	}

	result := NewEngine().Aggregate(input)

	if len(result.Arbitrage) != 2 {
		t.Fatalf("got %d arbitrage entries, want 2", len(result.Arbitrage))
	}
	if result.Arbitrage[0].Event != "A vs B" || result.Arbitrage[1].Event != "C vs D" {
		t.Errorf("tied entries ordered %q then %q, want sorted group-key order",
			result.Arbitrage[0].Event, result.Arbitrage[1].Event)
	}
}

func TestEngine_AverageVarianceAcrossMultiSourceGroups(t *testing.T) {
	input := map[string][]models.Quote{
		"betfair": {
			testutil.NewTestQuote("betfair", "A vs B", "1X2", "A", 2.5),
			testutil.NewTestQuote("betfair", "C vs D", "1X2", "C", 3.0),
			testutil.NewTestQuote("betfair", "E vs F", "1X2", "E", 4.0),
		},
		"pinnacle": {
			testutil.NewTestQuote("pinnacle", "A vs B", "1X2", "A", 2.8),
			testutil.NewTestQuote("pinnacle", "C vs D", "1X2", "C", 3.1),
		},
	}

	result := NewEngine().Aggregate(input)

	// variances: 0.0225 (2.5/2.8) and 0.0025 (3.0/3.1); the single-source
	// group contributes nothing
	if !almostEqual(result.AverageVariance, 0.0125) {
		t.Errorf("AverageVariance = %v, want 0.0125", result.AverageVariance)
	}
}

func TestEngine_EmptyInput(t *testing.T) {
	result := NewEngine().Aggregate(map[string][]models.Quote{})

	if len(result.Groups) != 0 {
		t.Errorf("got %d groups, want 0", len(result.Groups))
	}
	if result.Arbitrage == nil || len(result.Arbitrage) != 0 {
		t.Errorf("Arbitrage = %v, want empty non-nil slice", result.Arbitrage)
	}
	if result.AverageVariance != 0 {
		t.Errorf("AverageVariance = %v, want 0", result.AverageVariance)
	}
}

func TestEngine_Deterministic(t *testing.T) {
	build := func() map[string][]models.Quote {
		return map[string][]models.Quote{
			"betfair": {
				testutil.NewTestQuote("betfair", "A vs B", "1X2", "A", 2.5),
				testutil.NewTestQuote("betfair", "C vs D", "1X2", "C", 3.0),
			},
			"pinnacle": {
				testutil.NewTestQuote("pinnacle", "A vs B", "1X2", "A", 2.8),
				testutil.NewTestQuote("pinnacle", "C vs D", "1X2", "C", 3.3),
			},
			"unibet": {
				testutil.NewTestQuote("unibet", "A vs B", "1X2", "A", 2.8),
			},
		}
	}

	engine := NewEngine()
	first := engine.Aggregate(build())
	for i := 0; i < 20; i++ {
		next := engine.Aggregate(build())
		if !reflect.DeepEqual(first.Arbitrage, next.Arbitrage) {
			t.Fatalf("run %d produced different arbitrage order:\nfirst: %+v\nnext:  %+v",
				i, first.Arbitrage, next.Arbitrage)
		}
		if !almostEqual(first.AverageVariance, next.AverageVariance) {
			t.Fatalf("run %d produced different AverageVariance", i)
		}
	}
}

func groupKeys(result models.AggregateResult) []string {
	keys := make([]string, 0, len(result.Groups))
	for key := range result.Groups {
		keys = append(keys, key)
	}
	return keys
}
