package market

import (
	"testing"

	"github.com/epokrso/steam-analyzer/config"
	"github.com/epokrso/steam-analyzer/internal/model"
)

func analysisConfig() config.AnalysisConfig {
	return config.AnalysisConfig{MinDailySales: 2, TurnoverThreshold: 0.15}
}

func history(volumes ...int) []model.SalesHistoryPoint {
	points := make([]model.SalesHistoryPoint, len(volumes))
	for i, v := range volumes {
		points[i] = model.SalesHistoryPoint{Timestamp: int64(1700000000 + i*86400), Volume: v}
	}
	return points
}

func TestEvaluateRecommendedPrice(t *testing.T) {
	depth := []model.PriceLevel{{PriceCents: 100, Quantity: 5}, {PriceCents: 150, Quantity: 10}}

	// avgDailySales 3: first row already covers a day of sales.
	res := Evaluate(Listing{PriceLevels: depth, History: history(3)}, analysisConfig())
	if res.RecommendedPriceCents != 100 {
		t.Fatalf("recommended = %d, want 100", res.RecommendedPriceCents)
	}

	// avgDailySales 7: need the second row's cumulative quantity.
	res = Evaluate(Listing{PriceLevels: depth, History: history(7)}, analysisConfig())
	if res.RecommendedPriceCents != 150 {
		t.Fatalf("recommended = %d, want 150", res.RecommendedPriceCents)
	}

	// No history: cheapest row.
	res = Evaluate(Listing{PriceLevels: depth}, analysisConfig())
	if res.RecommendedPriceCents != 100 {
		t.Fatalf("recommended without history = %d, want 100", res.RecommendedPriceCents)
	}

	// Demand beyond total depth: cheapest row.
	res = Evaluate(Listing{PriceLevels: depth, History: history(100)}, analysisConfig())
	if res.RecommendedPriceCents != 100 {
		t.Fatalf("recommended beyond depth = %d, want 100", res.RecommendedPriceCents)
	}
}

func TestEvaluateHistoryWindow(t *testing.T) {
	// Ten points; only the last seven are averaged.
	res := Evaluate(Listing{
		PriceLevels: []model.PriceLevel{{PriceCents: 10, Quantity: 1000}},
		History:     history(1000, 1000, 1000, 7, 7, 7, 7, 7, 7, 7),
	}, analysisConfig())
	if res.AvgDailySales != 7 {
		t.Fatalf("avg daily sales = %v, want 7", res.AvgDailySales)
	}
}

func TestEvaluateTurnover(t *testing.T) {
	res := Evaluate(Listing{
		PriceLevels: []model.PriceLevel{{PriceCents: 100, Quantity: 20}},
		History:     history(3),
	}, analysisConfig())

	if res.ListingsTotal != 20 {
		t.Fatalf("listings total = %d, want 20", res.ListingsTotal)
	}
	if res.Turnover != 0.15 {
		t.Fatalf("turnover = %v, want 0.15", res.Turnover)
	}
}

func TestEvaluateDecisionBoundary(t *testing.T) {
	cfg := config.AnalysisConfig{MinDailySales: 2, TurnoverThreshold: 0.2}

	// Both metrics exactly at their thresholds: sell.
	res := Evaluate(Listing{
		PriceLevels: []model.PriceLevel{{PriceCents: 100, Quantity: 10}},
		History:     history(2),
	}, cfg)
	if res.Decision != model.DecisionSell {
		t.Fatalf("decision at exact thresholds = %s, want sell (avg=%v turnover=%v)", res.Decision, res.AvgDailySales, res.Turnover)
	}

	// Sales strictly below the minimum: hold.
	res = Evaluate(Listing{
		PriceLevels: []model.PriceLevel{{PriceCents: 100, Quantity: 5}},
		History:     history(1),
	}, cfg)
	if res.Decision != model.DecisionHold {
		t.Fatalf("decision below min sales = %s, want hold", res.Decision)
	}

	// Turnover strictly below the threshold: hold.
	res = Evaluate(Listing{
		PriceLevels: []model.PriceLevel{{PriceCents: 100, Quantity: 100}},
		History:     history(3),
	}, cfg)
	if res.Decision != model.DecisionHold {
		t.Fatalf("decision below turnover = %s, want hold", res.Decision)
	}
}

func TestEvaluateTextualTotalFallback(t *testing.T) {
	// No depth rows; the textual total still feeds turnover.
	res := Evaluate(Listing{ListingsTotal: 10, History: history(3)}, analysisConfig())
	if res.Status != model.StatusOK {
		t.Fatalf("status = %s, want ok", res.Status)
	}
	if res.ListingsTotal != 10 {
		t.Fatalf("listings total = %d, want 10", res.ListingsTotal)
	}
	if res.RecommendedPriceCents != 0 {
		t.Fatalf("recommended without depth = %d, want 0", res.RecommendedPriceCents)
	}
	if res.Turnover != 0.3 {
		t.Fatalf("turnover = %v, want 0.3", res.Turnover)
	}
}

func TestEvaluateNoData(t *testing.T) {
	res := Evaluate(Listing{}, analysisConfig())
	if res.Status != model.StatusSkipped || res.Reason != model.ReasonNoData {
		t.Fatalf("unexpected result for empty listing: %+v", res)
	}
	if res.Decision != model.DecisionHold {
		t.Fatalf("empty listing decision = %s, want hold", res.Decision)
	}
}

func TestEvaluateHistoryOnlyZeroListings(t *testing.T) {
	// History exists but nothing is listed: turnover guard keeps 0.
	res := Evaluate(Listing{History: history(5)}, analysisConfig())
	if res.Status != model.StatusOK {
		t.Fatalf("status = %s, want ok", res.Status)
	}
	if res.Turnover != 0 {
		t.Fatalf("turnover = %v, want 0", res.Turnover)
	}
	if res.Decision != model.DecisionHold {
		t.Fatalf("decision = %s, want hold", res.Decision)
	}
}
